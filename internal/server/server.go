// Package server exposes the chatbot and the PDF endpoints over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dream-ai/pdfchat/config"
	"github.com/dream-ai/pdfchat/internal/chat"
	"github.com/dream-ai/pdfchat/internal/documents"
	"github.com/dream-ai/pdfchat/internal/logger"
	"github.com/dream-ai/pdfchat/internal/rag"
	"github.com/dream-ai/pdfchat/internal/vectorstore"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Deps are the services the handlers call.
type Deps struct {
	Bot           *chat.Bot
	Conversations chat.Store
	Indexer       *documents.Indexer
	Answerer      *rag.Answerer
	Index         vectorstore.VectorIndex
}

// Server is the HTTP front end.
type Server struct {
	cfg     *config.Config
	deps    Deps
	limiter *clientLimiter
	router  *gin.Engine
}

// New builds the router.
func New(cfg *config.Config, deps Deps) *Server {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:     cfg,
		deps:    deps,
		limiter: newClientLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst),
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.Server.CORSOrigins) == 0 || cfg.Server.CORSOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.Server.CORSOrigins
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})
	router.POST("/chatbot", s.handleChatbot)
	router.POST("/reset", s.handleReset)

	pdf := router.Group("/pdf")
	pdf.Use(RequireAuth(cfg.Server.JWTSecret), s.limiter.RateLimit())
	pdf.POST("/upload", s.handleUpload)
	pdf.POST("/ask", s.handleAsk)
	pdf.GET("/documents", s.handleListDocuments)
	pdf.DELETE("/documents/:id", s.handleDeleteDocument)

	s.router = router
	return s
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.cfg.Server.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "port", s.cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
