package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dream-ai/pdfchat/internal/llm"
)

// Client wraps Ollama API interactions
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

var (
	_ llm.Generator = (*Client)(nil)
	_ llm.Streamer  = (*Client)(nil)
)

// NewClient creates a new Ollama client for model
func NewClient(baseURL, model string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

// Model returns the model used for chat requests.
func (c *Client) Model() string { return c.model }

// SetModel switches the chat model.
func (c *Client) SetModel(model string) { c.model = model }

// ChatRequest represents a chat request
type ChatRequest struct {
	Model    string         `json:"model"`
	Messages []llm.Message  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

// ChatResponse is one line of a chat response
type ChatResponse struct {
	Model     string      `json:"model"`
	CreatedAt string      `json:"created_at"`
	Message   llm.Message `json:"message"`
	Done      bool        `json:"done"`
	Error     string      `json:"error,omitempty"`
	EvalCount int         `json:"eval_count,omitempty"`
}

func (c *Client) newChatRequest(messages []llm.Message, opts llm.Options, stream bool) *ChatRequest {
	req := &ChatRequest{Model: c.model, Messages: messages, Stream: stream}
	options := map[string]any{}
	if opts.MaxTokens > 0 {
		options["num_predict"] = opts.MaxTokens
	}
	if opts.Temperature > 0 {
		options["temperature"] = opts.Temperature
	}
	if opts.TopP > 0 {
		options["top_p"] = opts.TopP
	}
	if len(options) > 0 {
		req.Options = options
	}
	return req
}

// Generate returns the full assistant reply
func (c *Client) Generate(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error) {
	var result strings.Builder
	if err := c.chat(ctx, c.newChatRequest(messages, opts, false), func(s string) { result.WriteString(s) }); err != nil {
		return "", err
	}
	return strings.TrimSpace(result.String()), nil
}

// Stream delivers the reply to onChunk as Ollama produces it
func (c *Client) Stream(ctx context.Context, messages []llm.Message, opts llm.Options, onChunk func(string)) error {
	return c.chat(ctx, c.newChatRequest(messages, opts, true), func(s string) {
		if s != "" {
			onChunk(s)
		}
	})
}

func (c *Client) chat(ctx context.Context, req *ChatRequest, onChunk func(string)) error {
	url := fmt.Sprintf("%s/api/chat", c.baseURL)

	jsonData, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ollama API error: %d - %s", resp.StatusCode, string(body))
	}

	// one JSON object per line when streaming, a single one otherwise
	decoder := json.NewDecoder(resp.Body)
	for {
		var chatResp ChatResponse
		if err := decoder.Decode(&chatResp); err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("failed to decode response: %w", err)
		}
		if chatResp.Error != "" {
			return fmt.Errorf("ollama error: %s", chatResp.Error)
		}

		onChunk(chatResp.Message.Content)

		if chatResp.Done {
			break
		}
	}

	return nil
}
