// Package chat holds the general chatbot: conversation state, its storage
// and the reply loop.
package chat

import (
	"slices"
	"time"

	"github.com/dream-ai/pdfchat/internal/llm"
	"github.com/google/uuid"
)

// Conversation is the full state of one chat, keyed by ID. Handlers load it,
// pass it to Bot.Reply and save what comes back.
type Conversation struct {
	ID        string        `json:"id"`
	Messages  []llm.Message `json:"messages"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewConversation starts a conversation with a fresh id.
func NewConversation() *Conversation {
	return &Conversation{ID: uuid.NewString(), UpdatedAt: time.Now()}
}

func (c *Conversation) clone() *Conversation {
	cp := *c
	cp.Messages = slices.Clone(c.Messages)
	return &cp
}
