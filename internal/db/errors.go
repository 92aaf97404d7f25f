package db

import (
	"errors"
	"fmt"
	"strings"
)

// StoreError reports a persistence failure on a read or write.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// ErrNotFound is returned when a user-scoped lookup matches nothing.
var ErrNotFound = errors.New("not found")

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// ValidateChunks checks records at the store boundary before anything is written.
// Every chunk in a batch must belong to the same user and document.
func ValidateChunks(chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	first := chunks[0]
	if first == nil {
		return errors.New("chunk 0 is nil")
	}
	dim := first.Embedding.Slice()
	seen := make(map[[2]int]bool, len(chunks))
	for i, c := range chunks {
		switch {
		case c == nil:
			return fmt.Errorf("chunk %d is nil", i)
		case c.UserID == "":
			return fmt.Errorf("chunk %d has no user id", i)
		case c.UserID != first.UserID || c.DocumentID != first.DocumentID:
			return fmt.Errorf("chunk %d belongs to a different document or user", i)
		case c.Page < 1:
			return fmt.Errorf("chunk %d has page %d", i, c.Page)
		case c.ChunkIndex < 0:
			return fmt.Errorf("chunk %d has index %d", i, c.ChunkIndex)
		case strings.TrimSpace(c.Content) == "":
			return fmt.Errorf("chunk %d has empty content", i)
		case len(c.Embedding.Slice()) == 0:
			return fmt.Errorf("chunk %d has no embedding", i)
		case len(c.Embedding.Slice()) != len(dim):
			return fmt.Errorf("chunk %d embedding has %d dimensions, want %d", i, len(c.Embedding.Slice()), len(dim))
		}
		key := [2]int{c.Page, c.ChunkIndex}
		if seen[key] {
			return fmt.Errorf("chunk %d repeats index %d on page %d", i, c.ChunkIndex, c.Page)
		}
		seen[key] = true
	}
	return nil
}
