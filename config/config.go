package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	Server struct {
		Port        string   `yaml:"port"`
		Mode        string   `yaml:"mode"`
		CORSOrigins []string `yaml:"cors_origins"`
		JWTSecret   string   `yaml:"jwt_secret"`
		// Requests per second allowed per client on the /pdf routes.
		RateLimit float64 `yaml:"rate_limit"`
		RateBurst int     `yaml:"rate_burst"`
		// Upper bound for a multipart upload, in bytes.
		MaxUploadSize int64 `yaml:"max_upload_size"`
	} `yaml:"server"`
	Database struct {
		ConnectionString string `yaml:"connection_string"`
		MaxConns         int32  `yaml:"max_conns"`
	} `yaml:"database"`
	Store struct {
		// postgres or memory
		Type string `yaml:"type"`
	} `yaml:"store"`
	Ollama struct {
		BaseURL      string `yaml:"base_url"`
		DefaultModel string `yaml:"default_model"`
	} `yaml:"ollama"`
	Embeddings struct {
		// ollama, openai or google
		Provider   string `yaml:"provider"`
		TextModel  string `yaml:"text_model"`
		Dimensions int    `yaml:"dimensions"`
		BaseURL    string `yaml:"base_url"`
		APIKey     string `yaml:"api_key"`
	} `yaml:"embeddings"`
	Chat struct {
		// ollama or openai (any OpenAI compatible endpoint, the Hugging Face router by default)
		Provider     string  `yaml:"provider"`
		BaseURL      string  `yaml:"base_url"`
		APIKey       string  `yaml:"api_key"`
		Model        string  `yaml:"model"`
		SystemPrompt string  `yaml:"system_prompt"`
		MaxTurns     int     `yaml:"max_turns"`
		MaxTokens    int     `yaml:"max_tokens"`
		Temperature  float32 `yaml:"temperature"`
		TopP         float32 `yaml:"top_p"`
	} `yaml:"chat"`
	Conversations struct {
		// memory or redis
		Store      string `yaml:"store"`
		RedisURL   string `yaml:"redis_url"`
		TTLMinutes int    `yaml:"ttl_minutes"`
	} `yaml:"conversations"`
	Processing struct {
		ChunkSize    int    `yaml:"chunk_size"`
		ChunkOverlap int    `yaml:"chunk_overlap"`
		TopK         int    `yaml:"top_k"`
		Extractor    string `yaml:"extractor"`
		Workers      int    `yaml:"workers"`
	} `yaml:"processing"`
}

// DefaultSystemPrompt is the assistant persona used when none is configured.
const DefaultSystemPrompt = "You are a helpful AI assistant. " +
	"Answer clearly and concisely in full sentences. " +
	"Do not show reasoning steps."

// DefaultPath returns the per-user config file location.
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".pdfchat", "config.yaml")
}

// Load loads configuration from file or returns defaults.
// Environment variables (optionally from a .env file) override file values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return cfg, fmt.Errorf("error loading .env file: %w", err)
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save saves configuration to file
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}

// WithoutSecrets returns a copy fit for writing to disk: API keys and the JWT
// secret are cleared and passwords are removed from connection URLs.
func (c *Config) WithoutSecrets() *Config {
	out := *c
	out.Server.JWTSecret = ""
	out.Embeddings.APIKey = ""
	out.Chat.APIKey = ""
	out.Database.ConnectionString = stripPassword(c.Database.ConnectionString)
	out.Conversations.RedisURL = stripPassword(c.Conversations.RedisURL)
	return &out
}

// stripPassword drops the password from URL-style connection strings and
// leaves anything else untouched.
func stripPassword(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); !ok {
		return raw
	}
	u.User = url.User(u.User.Username())
	return u.String()
}

// Default returns default configuration
func Default() *Config {
	cfg := &Config{}

	cfg.Server.Port = "5000"
	cfg.Server.Mode = "release"
	cfg.Server.CORSOrigins = []string{"*"}
	cfg.Server.RateLimit = 2
	cfg.Server.RateBurst = 10
	cfg.Server.MaxUploadSize = 50 << 20
	cfg.Database.ConnectionString = "postgres://postgres@localhost/postgres?sslmode=disable"
	cfg.Database.MaxConns = 10
	cfg.Store.Type = "postgres"
	cfg.Ollama.BaseURL = "http://localhost:11434"
	cfg.Embeddings.Provider = "ollama"
	cfg.Embeddings.TextModel = "nomic-embed-text"
	cfg.Embeddings.Dimensions = 768
	cfg.Chat.Provider = "openai"
	cfg.Chat.BaseURL = "https://router.huggingface.co/v1"
	cfg.Chat.Model = "zai-org/GLM-4.7-Flash:novita"
	cfg.Chat.SystemPrompt = DefaultSystemPrompt
	cfg.Chat.MaxTurns = 6
	cfg.Chat.MaxTokens = 200
	cfg.Chat.Temperature = 0.3
	cfg.Chat.TopP = 0.9
	cfg.Conversations.Store = "memory"
	cfg.Conversations.RedisURL = "localhost:6379"
	cfg.Conversations.TTLMinutes = 24 * 60
	cfg.Processing.ChunkSize = 900
	cfg.Processing.ChunkOverlap = 150
	cfg.Processing.TopK = 8
	cfg.Processing.Extractor = "fitz"
	cfg.Processing.Workers = 4

	return cfg
}

// Validate reports settings the pipeline cannot run with.
func (c *Config) Validate() error {
	p := c.Processing
	if p.ChunkSize <= 0 {
		return fmt.Errorf("processing.chunk_size must be positive, got %d", p.ChunkSize)
	}
	if p.ChunkOverlap < 0 || p.ChunkOverlap >= p.ChunkSize {
		return fmt.Errorf("processing.chunk_overlap must be in [0, %d), got %d", p.ChunkSize, p.ChunkOverlap)
	}
	switch c.Store.Type {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown store type: %s", c.Store.Type)
	}
	switch c.Embeddings.Provider {
	case "ollama", "openai", "google":
	default:
		return fmt.Errorf("unknown embeddings provider: %s", c.Embeddings.Provider)
	}
	switch c.Chat.Provider {
	case "ollama", "openai":
	default:
		return fmt.Errorf("unknown chat provider: %s", c.Chat.Provider)
	}
	switch c.Conversations.Store {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown conversation store: %s", c.Conversations.Store)
	}
	switch c.Processing.Extractor {
	case "fitz", "gopdf":
	default:
		return fmt.Errorf("unknown extractor: %s", c.Processing.Extractor)
	}
	if c.Embeddings.Dimensions <= 0 {
		return fmt.Errorf("embeddings.dimensions must be positive")
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.Mode = getEnv("GIN_MODE", c.Server.Mode)
	c.Server.JWTSecret = getEnv("JWT_SECRET", c.Server.JWTSecret)
	c.Database.ConnectionString = getEnv("DATABASE_URL", c.Database.ConnectionString)
	c.Store.Type = getEnv("VECTOR_STORE", c.Store.Type)
	c.Ollama.BaseURL = getEnv("OLLAMA_BASE_URL", c.Ollama.BaseURL)
	c.Conversations.RedisURL = getEnv("REDIS_URL", c.Conversations.RedisURL)

	switch c.Chat.Provider {
	case "openai":
		c.Chat.APIKey = getEnv("HF_TOKEN", getEnv("OPENAI_API_KEY", c.Chat.APIKey))
	}
	switch c.Embeddings.Provider {
	case "openai":
		c.Embeddings.APIKey = getEnv("OPENAI_API_KEY", c.Embeddings.APIKey)
	case "google":
		c.Embeddings.APIKey = getEnv("GEMINI_API_KEY", c.Embeddings.APIKey)
	}

	c.Processing.ChunkSize = getEnvInt("CHUNK_SIZE", c.Processing.ChunkSize)
	c.Processing.ChunkOverlap = getEnvInt("CHUNK_OVERLAP", c.Processing.ChunkOverlap)
	c.Processing.TopK = getEnvInt("TOP_K", c.Processing.TopK)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
