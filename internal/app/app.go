// Package app wires the configured backends into the services the binaries run.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/dream-ai/pdfchat/config"
	"github.com/dream-ai/pdfchat/internal/chat"
	"github.com/dream-ai/pdfchat/internal/db"
	"github.com/dream-ai/pdfchat/internal/documents"
	"github.com/dream-ai/pdfchat/internal/embeddings"
	"github.com/dream-ai/pdfchat/internal/llm"
	"github.com/dream-ai/pdfchat/internal/logger"
	"github.com/dream-ai/pdfchat/internal/ollama"
	"github.com/dream-ai/pdfchat/internal/rag"
	"github.com/dream-ai/pdfchat/internal/vectorstore"
	"github.com/dream-ai/pdfchat/internal/vectorstore/memory"
)

// App holds the constructed services.
type App struct {
	Config        *config.Config
	DB            *db.DB // nil with the memory store
	Index         vectorstore.VectorIndex
	Embedder      embeddings.Embedder
	Generator     llm.Generator
	Indexer       *documents.Indexer
	Retriever     *rag.Retriever
	Answerer      *rag.Answerer
	Bot           *chat.Bot
	Conversations chat.Store

	closers []func()
}

// Scope selects how much of the stack is built.
type Scope int

const (
	// ScopeStore opens the vector index only.
	ScopeStore Scope = iota
	// ScopeIndexing adds the embedder, indexer and retriever.
	ScopeIndexing
	// ScopeFull adds the chat model, answerer, bot and conversation store.
	ScopeFull
)

// New builds every service from cfg. Call Close when done.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	return NewScoped(ctx, cfg, ScopeFull)
}

// NewScoped builds the services up to scope. Fields past the scope stay nil,
// so commands that never call a model need no model credentials.
func NewScoped(ctx context.Context, cfg *config.Config, scope Scope) (*App, error) {
	a := &App{Config: cfg}
	if err := a.init(ctx, scope); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context, scope Scope) error {
	cfg := a.Config

	switch cfg.Store.Type {
	case "memory":
		a.Index = memory.NewStorage()
	default:
		database, err := db.New(ctx, cfg.Database.ConnectionString, db.PoolOptions{MaxConns: cfg.Database.MaxConns})
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, database.Close)
		a.DB = database
		a.Index = database
	}

	if scope < ScopeIndexing {
		logger.Info("Services initialized", "store", cfg.Store.Type)
		return nil
	}

	embedder, err := newEmbedder(ctx, cfg)
	if err != nil {
		return err
	}
	if c, ok := embedder.(interface{ Close() error }); ok {
		a.closers = append(a.closers, func() { c.Close() })
	}
	a.Embedder = embedder

	extractor, err := documents.NewExtractor(cfg.Processing.Extractor)
	if err != nil {
		return err
	}
	chunker, err := documents.NewChunker(cfg.Processing.ChunkSize, cfg.Processing.ChunkOverlap)
	if err != nil {
		return err
	}
	a.Indexer = documents.NewIndexer(a.Index, a.Embedder, extractor, chunker, cfg.Processing.Workers)
	a.Retriever = rag.NewRetriever(a.Embedder, a.Index, cfg.Processing.TopK)

	if scope < ScopeFull {
		logger.Info("Services initialized", "store", cfg.Store.Type, "embeddings", cfg.Embeddings.Provider)
		return nil
	}

	generator, err := newGenerator(ctx, cfg)
	if err != nil {
		return err
	}
	a.Generator = generator

	opts := llm.Options{
		MaxTokens:   cfg.Chat.MaxTokens,
		Temperature: cfg.Chat.Temperature,
		TopP:        cfg.Chat.TopP,
	}
	a.Answerer = rag.NewAnswerer(a.Retriever, a.Generator, opts)
	a.Bot = chat.NewBot(a.Generator, cfg.Chat.SystemPrompt, cfg.Chat.MaxTurns, opts)

	ttl := time.Duration(cfg.Conversations.TTLMinutes) * time.Minute
	switch cfg.Conversations.Store {
	case "redis":
		rdb, err := chat.NewRedisClient(ctx, cfg.Conversations.RedisURL)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() { rdb.Close() })
		a.Conversations = chat.NewRedisStore(rdb, ttl)
	default:
		a.Conversations = chat.NewMemoryStore(ttl)
	}

	logger.Info("Services initialized",
		"store", cfg.Store.Type,
		"embeddings", cfg.Embeddings.Provider,
		"chat", cfg.Chat.Provider,
		"conversations", cfg.Conversations.Store,
	)
	return nil
}

// Migrate creates the schema when running against Postgres.
func (a *App) Migrate(ctx context.Context) error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Migrate(ctx, a.Config.Embeddings.Dimensions)
}

// Close releases connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func newEmbedder(ctx context.Context, cfg *config.Config) (embeddings.Embedder, error) {
	e := cfg.Embeddings
	switch e.Provider {
	case "openai":
		return embeddings.NewOpenAIEmbedder(e.APIKey, e.BaseURL, e.TextModel), nil
	case "google":
		return embeddings.NewGoogleEmbedder(ctx, e.APIKey, e.TextModel)
	default:
		baseURL := e.BaseURL
		if baseURL == "" {
			baseURL = cfg.Ollama.BaseURL
		}
		ms := ollama.NewModelSelector(ollama.NewClient(baseURL, ""))
		if ok, err := ms.HasModel(ctx, e.TextModel); err != nil {
			logger.Warn("Could not list Ollama models", "error", err)
		} else if !ok {
			logger.Warn("Embedding model not installed in Ollama", "model", e.TextModel)
		}
		return embeddings.NewTextEmbedder(baseURL, e.TextModel), nil
	}
}

func newGenerator(ctx context.Context, cfg *config.Config) (llm.Generator, error) {
	c := cfg.Chat
	switch c.Provider {
	case "ollama":
		baseURL := c.BaseURL
		if baseURL == "" {
			baseURL = cfg.Ollama.BaseURL
		}
		preferred := c.Model
		if preferred == "" {
			preferred = cfg.Ollama.DefaultModel
		}
		client := ollama.NewClient(baseURL, preferred)
		model, err := ollama.NewModelSelector(client).ResolveChatModel(ctx, preferred)
		if err != nil {
			if preferred == "" {
				return nil, fmt.Errorf("failed to select chat model: %w", err)
			}
			logger.Warn("Could not resolve Ollama chat model, using configured name", "model", preferred, "error", err)
			model = preferred
		}
		client.SetModel(model)
		return client, nil
	default:
		if c.APIKey == "" {
			return nil, fmt.Errorf("chat.api_key (or HF_TOKEN) is required for the openai chat provider")
		}
		return llm.NewOpenAIClient(c.APIKey, c.BaseURL, c.Model), nil
	}
}
