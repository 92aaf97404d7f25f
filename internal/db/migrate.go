package db

import (
	"context"
	"fmt"
)

const schema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS pdf_documents (
	id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	user_id    TEXT NOT NULL,
	filename   TEXT NOT NULL,
	page_count INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS pdf_documents_user_id_idx ON pdf_documents (user_id);

CREATE TABLE IF NOT EXISTS pdf_chunks (
	id          BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	user_id     TEXT NOT NULL,
	document_id UUID NOT NULL REFERENCES pdf_documents (id) ON DELETE CASCADE,
	source      TEXT NOT NULL,
	page        INTEGER NOT NULL CHECK (page >= 1),
	chunk_index INTEGER NOT NULL CHECK (chunk_index >= 0),
	content     TEXT NOT NULL CHECK (btrim(content) <> ''),
	embedding   vector(%d) NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (document_id, page, chunk_index)
);

CREATE INDEX IF NOT EXISTS pdf_chunks_user_id_idx ON pdf_chunks (user_id);
-- Searches filter on user_id after the approximate scan. SearchChunks turns on
-- hnsw.iterative_scan (pgvector 0.8+) so a user still gets min(k, own chunks)
-- hits; older pgvector can return fewer when other users dominate the table.
CREATE INDEX IF NOT EXISTS pdf_chunks_embedding_idx ON pdf_chunks USING hnsw (embedding vector_cosine_ops);
`

// Migrate creates the pgvector extension and the document/chunk tables.
// The embedding column is sized for the configured model.
func (db *DB) Migrate(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("invalid embedding dimensions: %d", dimensions)
	}
	if _, err := db.pool.Exec(ctx, fmt.Sprintf(schema, dimensions)); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
