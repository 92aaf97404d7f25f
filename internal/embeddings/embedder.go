package embeddings

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
)

// Embedder maps texts to fixed-length vectors, one per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([]pgvector.Vector, error)
}

// EmbeddingError reports an embedding backend failure. No vector from a
// failed call may be used.
type EmbeddingError struct {
	Backend string
	Err     error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("%s embeddings: %v", e.Backend, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// checkVectors verifies a backend answered with one non-empty vector per input,
// all of the same dimensionality.
func checkVectors(backend string, inputs int, vecs [][]float32) ([]pgvector.Vector, error) {
	if len(vecs) != inputs {
		return nil, &EmbeddingError{Backend: backend, Err: fmt.Errorf("got %d vectors for %d inputs", len(vecs), inputs)}
	}
	out := make([]pgvector.Vector, len(vecs))
	for i, v := range vecs {
		if len(v) == 0 {
			return nil, &EmbeddingError{Backend: backend, Err: fmt.Errorf("empty embedding for input %d", i)}
		}
		if len(v) != len(vecs[0]) {
			return nil, &EmbeddingError{Backend: backend, Err: fmt.Errorf("input %d has %d dimensions, want %d", i, len(v), len(vecs[0]))}
		}
		out[i] = pgvector.NewVector(v)
	}
	return out, nil
}
