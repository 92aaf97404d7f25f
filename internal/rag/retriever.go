package rag

import (
	"context"
	"fmt"

	"github.com/dream-ai/pdfchat/internal/embeddings"
	"github.com/dream-ai/pdfchat/internal/vectorstore"
	"github.com/google/uuid"
)

// DefaultTopK is used when a caller asks for k <= 0.
const DefaultTopK = 8

// Retriever finds a user's most relevant chunks for a question
type Retriever struct {
	embedder embeddings.Embedder
	index    vectorstore.VectorIndex
	topK     int
	builder  *ContextBuilder
}

// NewRetriever creates a new retriever
func NewRetriever(embedder embeddings.Embedder, index vectorstore.VectorIndex, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{
		embedder: embedder,
		index:    index,
		topK:     topK,
		builder:  NewContextBuilder(),
	}
}

// Source identifies where a retrieved chunk came from.
type Source struct {
	Source     string    `json:"source"`
	Page       int       `json:"page"`
	DocumentID uuid.UUID `json:"document_id"`
}

// Result is the rendered context and the sources behind it, best match first.
type Result struct {
	Context string   `json:"context"`
	Sources []Source `json:"sources"`
}

// Empty reports whether nothing was retrieved.
func (r *Result) Empty() bool { return len(r.Sources) == 0 }

// Retrieve embeds query and returns the top k chunks from userID's
// partition. k <= 0 uses the configured default. A user with no indexed
// chunks gets an empty result, not an error.
func (r *Retriever) Retrieve(ctx context.Context, userID, query string, k int) (*Result, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if k <= 0 {
		k = r.topK
	}

	vecs, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, &embeddings.EmbeddingError{Err: fmt.Errorf("got %d vectors for query", len(vecs))}
	}

	hits, err := r.index.SearchChunks(ctx, userID, vecs[0], k)
	if err != nil {
		return nil, err
	}

	result := &Result{Sources: make([]Source, 0, len(hits))}
	for _, h := range hits {
		result.Sources = append(result.Sources, Source{
			Source:     h.Source,
			Page:       h.Page,
			DocumentID: h.DocumentID,
		})
	}
	result.Context = r.builder.BuildContext(hits)
	return result, nil
}
