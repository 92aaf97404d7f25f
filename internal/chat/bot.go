package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dream-ai/pdfchat/internal/llm"
	"github.com/dream-ai/pdfchat/internal/logger"
)

// ErrEmptyPrompt is returned for blank user input.
var ErrEmptyPrompt = errors.New("empty input")

const DefaultMaxTurns = 6

// Bot is the general purpose assistant behind /chatbot.
type Bot struct {
	generator    llm.Generator
	systemPrompt string
	maxTurns     int
	opts         llm.Options
}

// NewBot creates a bot. maxTurns <= 0 uses DefaultMaxTurns.
func NewBot(generator llm.Generator, systemPrompt string, maxTurns int, opts llm.Options) *Bot {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Bot{
		generator:    generator,
		systemPrompt: systemPrompt,
		maxTurns:     maxTurns,
		opts:         opts,
	}
}

// Reply adds prompt to conv, asks the model and returns the updated
// conversation with the reply. conv is not modified; nil starts a new one.
// A model failure is not an error: the reply records it and the turn is kept.
func (b *Bot) Reply(ctx context.Context, conv *Conversation, prompt string) (*Conversation, string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return conv, "", ErrEmptyPrompt
	}

	var next *Conversation
	if conv == nil {
		next = NewConversation()
	} else {
		next = conv.clone()
	}

	history := append(nonSystem(next.Messages), llm.Message{Role: llm.RoleUser, Content: prompt})
	if keep := b.maxTurns*2 + 1; len(history) > keep {
		history = history[len(history)-keep:]
	}
	next.Messages = append([]llm.Message{{Role: llm.RoleSystem, Content: b.systemPrompt}}, history...)

	reply, err := b.generator.Generate(ctx, next.Messages, b.opts)
	if err != nil {
		logger.Warn("Chat inference failed", "conversation_id", next.ID, "error", err)
		reply = "Inference error: " + err.Error()
	}

	next.Messages = append(next.Messages, llm.Message{Role: llm.RoleAssistant, Content: reply})
	next.UpdatedAt = time.Now()
	return next, reply, nil
}

func nonSystem(msgs []llm.Message) []llm.Message {
	out := make([]llm.Message, 0, len(msgs)+1)
	for _, m := range msgs {
		if m.Role != llm.RoleSystem {
			out = append(out, m)
		}
	}
	return out
}
