package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dream-ai/pdfchat/config"
	"github.com/dream-ai/pdfchat/internal/app"
	"github.com/dream-ai/pdfchat/internal/documents"
	"github.com/dream-ai/pdfchat/internal/logger"
	"github.com/dream-ai/pdfchat/internal/tui"
	"github.com/google/uuid"
)

const usage = `Usage: ragctl [flags] <command> [args]

Commands:
  index <file.pdf>...   extract, embed and store PDFs
  ask [question]        answer a question, or open the ask console without one
  docs                  list indexed documents
  rm <document-id>      delete a document and its chunks
  migrate               create the database schema

Flags:
`

func main() {
	var (
		configPath = flag.String("config", "", "Path to config file (default ~/.pdfchat/config.yaml)")
		userID     = flag.String("user", os.Getenv("USER"), "User id whose documents to act on")
		topK       = flag.Int("k", 0, "Number of chunks to retrieve (default from config)")
	)
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}
	if *userID == "" {
		fmt.Fprintln(os.Stderr, "Error: -user is required")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	// keep stdout for command output
	logger.InitWriter(os.Stderr, cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.NewScoped(ctx, cfg, scopeFor(args[0]))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing: %v\n", err)
		os.Exit(1)
	}

	err = run(ctx, a, *userID, *topK, args[0], args[1:])
	a.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// scopeFor limits setup to what cmd uses; only ask needs the chat model.
func scopeFor(cmd string) app.Scope {
	switch cmd {
	case "index":
		return app.ScopeIndexing
	case "ask":
		return app.ScopeFull
	default:
		return app.ScopeStore
	}
}

func run(ctx context.Context, a *app.App, userID string, k int, cmd string, args []string) error {
	switch cmd {
	case "index":
		return runIndex(ctx, a, userID, args)
	case "ask":
		return runAsk(ctx, a, userID, k, args)
	case "docs":
		docs, err := a.Index.ListDocuments(ctx, userID)
		if err != nil {
			return err
		}
		fmt.Println(tui.RenderDocuments(docs))
		return nil
	case "rm":
		if len(args) != 1 {
			return errors.New("rm takes exactly one document id")
		}
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid document id: %w", err)
		}
		if err := a.Index.DeleteDocument(ctx, userID, id); err != nil {
			return err
		}
		fmt.Println("Deleted", id)
		return nil
	case "migrate":
		if err := a.Migrate(ctx); err != nil {
			return err
		}
		fmt.Println("Migrations completed successfully")
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func runIndex(ctx context.Context, a *app.App, userID string, paths []string) error {
	if len(paths) == 0 {
		return errors.New("index needs at least one PDF")
	}
	files := make([]documents.File, 0, len(paths))
	for _, p := range paths {
		f, err := documents.LoadFile(p)
		if err != nil {
			return err
		}
		files = append(files, f)
	}

	report, err := a.Indexer.IndexDocuments(ctx, userID, files)
	if report != nil {
		fmt.Println(tui.RenderReport(report))
	}
	return err
}

func runAsk(ctx context.Context, a *app.App, userID string, k int, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		_, err := tea.NewProgram(tui.New(a.Answerer, userID, k), tea.WithAltScreen()).Run()
		return err
	}

	sources, err := a.Answerer.AskStream(ctx, userID, question, k, func(s string) {
		fmt.Print(s)
	})
	fmt.Println()
	if err != nil {
		return err
	}
	if len(sources) > 0 {
		fmt.Println()
		fmt.Println(tui.FormatSources(sources))
	}
	return nil
}
