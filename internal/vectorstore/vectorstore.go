package vectorstore

import (
	"context"

	"github.com/dream-ai/pdfchat/internal/db"
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// VectorIndex persists documents and their embedded chunks and searches them
// per user. Implementations must never return or accept a chunk across user ids.
type VectorIndex interface {
	CreateDocument(ctx context.Context, userID, filename string, pageCount int) (*db.Document, error)
	// InsertChunks stores one document's chunks; either all become visible or none do.
	InsertChunks(ctx context.Context, chunks []*db.Chunk) error
	// SearchChunks returns at most k (clamped to >= 1) of the user's chunks ordered by
	// descending similarity. No indexed chunks yields an empty slice, not an error.
	SearchChunks(ctx context.Context, userID string, query pgvector.Vector, k int) ([]*db.Hit, error)
	ListDocuments(ctx context.Context, userID string) ([]*db.Document, error)
	DeleteDocument(ctx context.Context, userID string, id uuid.UUID) error
}

var _ VectorIndex = (*db.DB)(nil)
