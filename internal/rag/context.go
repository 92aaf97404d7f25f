package rag

import (
	"fmt"
	"strings"

	"github.com/dream-ai/pdfchat/internal/db"
	"github.com/dream-ai/pdfchat/internal/llm"
)

const blockSeparator = "\n\n---\n\n"

// NotFoundAnswer is returned without calling the model when retrieval finds nothing.
const NotFoundAnswer = "I couldn't find that in your uploaded PDFs."

const answerInstructions = "You answer questions using only the PDF excerpts provided. " +
	"If the excerpts do not contain the answer, say you couldn't find it in the uploaded PDFs. " +
	"Cite the source file and page for facts you use."

// ContextBuilder renders retrieved chunks for the model
type ContextBuilder struct{}

// NewContextBuilder creates a new context builder
func NewContextBuilder() *ContextBuilder {
	return &ContextBuilder{}
}

// BuildContext renders each hit as a source-tagged block, in the order given.
func (cb *ContextBuilder) BuildContext(hits []*db.Hit) string {
	blocks := make([]string, 0, len(hits))
	for _, h := range hits {
		blocks = append(blocks, fmt.Sprintf("[Source: %s | Page: %d]\n%s", h.Source, h.Page, h.Content))
	}
	return strings.Join(blocks, blockSeparator)
}

// BuildMessages creates the chat messages that ask the model to answer
// question from context.
func (cb *ContextBuilder) BuildMessages(context, question string) []llm.Message {
	var parts []string
	parts = append(parts, "PDF excerpts:")
	parts = append(parts, context)
	parts = append(parts, "")
	parts = append(parts, "Question:")
	parts = append(parts, strings.TrimSpace(question))

	return []llm.Message{
		{Role: llm.RoleSystem, Content: answerInstructions},
		{Role: llm.RoleUser, Content: strings.Join(parts, "\n")},
	}
}
