package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// Document is one uploaded PDF owned by a user.
type Document struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	Filename  string    `json:"filename"`
	PageCount int       `json:"page_count"`
	CreatedAt time.Time `json:"created_at"`
}

// Chunk is one retrievable segment of a page. Source duplicates the
// document filename so search results can be cited without a join.
type Chunk struct {
	ID         int64           `json:"id"`
	UserID     string          `json:"user_id"`
	DocumentID uuid.UUID       `json:"document_id"`
	Source     string          `json:"source"`
	Page       int             `json:"page"`
	ChunkIndex int             `json:"chunk_index"`
	Content    string          `json:"content"`
	Embedding  pgvector.Vector `json:"-"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Hit is a chunk returned by similarity search.
type Hit struct {
	Chunk
	Similarity float64 `json:"similarity"`
}
