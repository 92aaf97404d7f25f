// Package llm defines the chat completion contract shared by the chatbot
// and the PDF answer endpoint.
package llm

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options tune a single completion. Zero values leave the backend default.
type Options struct {
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// Generator produces the assistant reply for a conversation.
type Generator interface {
	Generate(ctx context.Context, messages []Message, opts Options) (string, error)
}

// Streamer is implemented by generators that can deliver the reply incrementally.
type Streamer interface {
	Stream(ctx context.Context, messages []Message, opts Options, onChunk func(string)) error
}
