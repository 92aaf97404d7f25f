package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

func validChunks(n int) []*Chunk {
	docID := uuid.New()
	chunks := make([]*Chunk, n)
	for i := range chunks {
		chunks[i] = &Chunk{
			UserID:     "alice",
			DocumentID: docID,
			Source:     "a.pdf",
			Page:       1,
			ChunkIndex: i,
			Content:    fmt.Sprintf("chunk %d", i),
			Embedding:  pgvector.NewVector([]float32{1, 0, 0}),
		}
	}
	return chunks
}

func TestValidateChunks(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]*Chunk)
		ok     bool
	}{
		{"valid", func([]*Chunk) {}, true},
		{"missing user", func(c []*Chunk) { c[1].UserID = "" }, false},
		{"mixed users", func(c []*Chunk) { c[1].UserID = "bob" }, false},
		{"mixed documents", func(c []*Chunk) { c[1].DocumentID = uuid.New() }, false},
		{"page zero", func(c []*Chunk) { c[0].Page = 0 }, false},
		{"blank content", func(c []*Chunk) { c[2].Content = " \n\t" }, false},
		{"dimension mismatch", func(c []*Chunk) { c[2].Embedding = pgvector.NewVector([]float32{1, 0}) }, false},
		{"duplicate index", func(c []*Chunk) { c[2].ChunkIndex = 1 }, false},
		{"same index on other page", func(c []*Chunk) { c[2].ChunkIndex = 1; c[2].Page = 2 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := validChunks(3)
			tt.mutate(chunks)
			err := ValidateChunks(chunks)
			if (err == nil) != tt.ok {
				t.Fatalf("ValidateChunks() err = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestStoreErrorUnwrap(t *testing.T) {
	err := storeErr("delete document", fmt.Errorf("document x: %w", ErrNotFound))
	var se *StoreError
	if !errors.As(err, &se) || se.Op != "delete document" {
		t.Fatalf("errors.As failed for %v", err)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound in chain: %v", err)
	}
	if storeErr("noop", nil) != nil {
		t.Fatal("storeErr(nil) should be nil")
	}
}
