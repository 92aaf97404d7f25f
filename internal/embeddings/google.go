package embeddings

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/pgvector/pgvector-go"
	"google.golang.org/api/option"
)

const (
	googleBackend = "google"
	// BatchEmbedContents accepts at most this many requests per call.
	googleMaxBatch = 100
)

// GoogleEmbedder uses the Generative AI batch embedding API (text-embedding-004 by default).
type GoogleEmbedder struct {
	client *genai.Client
	model  string

	// batchEmbed embeds one API-sized batch; replaced in tests.
	batchEmbed func(ctx context.Context, texts []string) ([][]float32, error)
}

func NewGoogleEmbedder(ctx context.Context, apiKey, model string) (*GoogleEmbedder, error) {
	if apiKey == "" {
		return nil, errors.New("missing GEMINI_API_KEY for embeddings")
	}
	if model == "" {
		model = "text-embedding-004"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	e := &GoogleEmbedder{client: client, model: model}
	e.batchEmbed = e.embedBatch
	return e, nil
}

// Embed sends texts in order, in batches of at most googleMaxBatch.
func (e *GoogleEmbedder) Embed(ctx context.Context, texts []string) ([]pgvector.Vector, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vecs := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += googleMaxBatch {
		end := min(start+googleMaxBatch, len(texts))
		batch, err := e.batchEmbed(ctx, texts[start:end])
		if err != nil {
			return nil, &EmbeddingError{Backend: googleBackend, Err: fmt.Errorf("texts %d-%d: %w", start, end-1, err)}
		}
		if len(batch) != end-start {
			return nil, &EmbeddingError{Backend: googleBackend, Err: fmt.Errorf("got %d vectors for %d texts", len(batch), end-start)}
		}
		vecs = append(vecs, batch...)
	}
	return checkVectors(googleBackend, len(texts), vecs)
}

func (e *GoogleEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	em := e.client.EmbeddingModel(e.model)
	batch := em.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}
	resp, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, err
	}

	vecs := make([][]float32, 0, len(resp.Embeddings))
	for _, emb := range resp.Embeddings {
		if emb == nil {
			vecs = append(vecs, nil)
			continue
		}
		vecs = append(vecs, emb.Values)
	}
	return vecs, nil
}

// Close releases the underlying client.
func (e *GoogleEmbedder) Close() error {
	if e.client == nil {
		return nil
	}
	return e.client.Close()
}
