package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dream-ai/pdfchat/config"
	"github.com/dream-ai/pdfchat/internal/app"
	"github.com/dream-ai/pdfchat/internal/logger"
	"github.com/dream-ai/pdfchat/internal/server"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to config file (default ~/.pdfchat/config.yaml)")
		migrateFlag = flag.Bool("migrate", false, "Create the database schema and exit")
		writeConfig = flag.Bool("write-config", false, "Write the effective config (without secrets) to the config path and exit")
		issueToken  = flag.String("issue-token", "", "Print a bearer token for this user id and exit")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Server.Mode)

	if *writeConfig {
		if err := cfg.WithoutSecrets().Save(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config written")
		return
	}

	if *issueToken != "" {
		if cfg.Server.JWTSecret == "" {
			fmt.Fprintln(os.Stderr, "JWT_SECRET is not set")
			os.Exit(1)
		}
		tok, err := server.IssueToken(*issueToken, cfg.Server.JWTSecret, 24*time.Hour)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error issuing token: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(tok)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *migrateFlag {
		if err := migrate(ctx, cfg); err != nil {
			logger.Error("Migration failed", "error", err)
			os.Exit(1)
		}
		fmt.Println("Migrations completed successfully")
		return
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if cfg.Server.JWTSecret == "" {
		logger.Warn("JWT_SECRET is empty; /pdf routes will reject every token")
	}

	srv := server.New(cfg, server.Deps{
		Bot:           a.Bot,
		Conversations: a.Conversations,
		Indexer:       a.Indexer,
		Answerer:      a.Answerer,
		Index:         a.Index,
	})
	if err := srv.Run(ctx); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server exited")
}

func migrate(ctx context.Context, cfg *config.Config) error {
	a, err := app.NewScoped(ctx, cfg, app.ScopeStore)
	if err != nil {
		return err
	}
	defer a.Close()
	return a.Migrate(ctx)
}
