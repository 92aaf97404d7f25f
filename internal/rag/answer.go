package rag

import (
	"context"
	"fmt"

	"github.com/dream-ai/pdfchat/internal/llm"
)

// Answer is a generated reply with the sources it was grounded on.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// Answerer retrieves context for a question and asks the model to answer it.
type Answerer struct {
	retriever *Retriever
	generator llm.Generator
	builder   *ContextBuilder
	opts      llm.Options
}

// NewAnswerer creates a new answerer
func NewAnswerer(retriever *Retriever, generator llm.Generator, opts llm.Options) *Answerer {
	return &Answerer{
		retriever: retriever,
		generator: generator,
		builder:   NewContextBuilder(),
		opts:      opts,
	}
}

// Ask answers question from userID's documents. When nothing is retrieved
// the model is not called and NotFoundAnswer is returned.
func (a *Answerer) Ask(ctx context.Context, userID, question string, k int) (*Answer, error) {
	res, err := a.retriever.Retrieve(ctx, userID, question, k)
	if err != nil {
		return nil, err
	}
	if res.Empty() {
		return &Answer{Answer: NotFoundAnswer, Sources: res.Sources}, nil
	}

	reply, err := a.generator.Generate(ctx, a.builder.BuildMessages(res.Context, question), a.opts)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	return &Answer{Answer: reply, Sources: res.Sources}, nil
}

// AskStream is Ask for generators that stream; others get the reply in one chunk.
func (a *Answerer) AskStream(ctx context.Context, userID, question string, k int, onChunk func(string)) ([]Source, error) {
	res, err := a.retriever.Retrieve(ctx, userID, question, k)
	if err != nil {
		return nil, err
	}
	if res.Empty() {
		onChunk(NotFoundAnswer)
		return res.Sources, nil
	}

	messages := a.builder.BuildMessages(res.Context, question)
	if s, ok := a.generator.(llm.Streamer); ok {
		if err := s.Stream(ctx, messages, a.opts, onChunk); err != nil {
			return nil, fmt.Errorf("generate answer: %w", err)
		}
		return res.Sources, nil
	}
	reply, err := a.generator.Generate(ctx, messages, a.opts)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	onChunk(reply)
	return res.Sources, nil
}
