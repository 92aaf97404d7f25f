package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/dream-ai/pdfchat/internal/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

// CreateDocument creates a new document record
func (db *DB) CreateDocument(ctx context.Context, userID, filename string, pageCount int) (*Document, error) {
	if userID == "" {
		return nil, storeErr("create document", errors.New("empty user id"))
	}
	var doc Document
	err := db.pool.QueryRow(ctx,
		`INSERT INTO pdf_documents (user_id, filename, page_count)
		 VALUES ($1, $2, $3)
		 RETURNING id, user_id, filename, page_count, created_at`,
		userID, filename, pageCount,
	).Scan(&doc.ID, &doc.UserID, &doc.Filename, &doc.PageCount, &doc.CreatedAt)
	if err != nil {
		return nil, storeErr("create document", err)
	}
	return &doc, nil
}

// InsertChunks inserts one document's chunks in a single transaction.
// The target document must be owned by the chunks' user.
func (db *DB) InsertChunks(ctx context.Context, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := ValidateChunks(chunks); err != nil {
		return storeErr("insert chunks", err)
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return storeErr("insert chunks", err)
	}
	defer tx.Rollback(ctx)

	var owner string
	err = tx.QueryRow(ctx,
		`SELECT user_id FROM pdf_documents WHERE id = $1 FOR SHARE`,
		chunks[0].DocumentID,
	).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && owner != chunks[0].UserID) {
		return storeErr("insert chunks", fmt.Errorf("document %s: %w", chunks[0].DocumentID, ErrNotFound))
	}
	if err != nil {
		return storeErr("insert chunks", err)
	}

	batch := &pgx.Batch{}
	for _, c := range chunks {
		batch.Queue(
			`INSERT INTO pdf_chunks (user_id, document_id, source, page, chunk_index, content, embedding)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING id, created_at`,
			c.UserID, c.DocumentID, c.Source, c.Page, c.ChunkIndex, c.Content, c.Embedding,
		)
	}
	br := tx.SendBatch(ctx, batch)
	for i, c := range chunks {
		if err := br.QueryRow().Scan(&c.ID, &c.CreatedAt); err != nil {
			br.Close()
			return storeErr("insert chunks", fmt.Errorf("chunk %d: %w", i, err))
		}
	}
	if err := br.Close(); err != nil {
		return storeErr("insert chunks", err)
	}

	return storeErr("insert chunks", tx.Commit(ctx))
}

// SearchChunks finds the k chunks of one user closest to the query embedding.
// Ties on distance fall back to insertion order.
func (db *DB) SearchChunks(ctx context.Context, userID string, query pgvector.Vector, k int) ([]*Hit, error) {
	if k < 1 {
		k = 1
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, storeErr("search chunks", err)
	}
	defer tx.Rollback(ctx)
	db.enableIterativeScan(ctx, tx)

	rows, err := tx.Query(ctx,
		`SELECT id, user_id, document_id, source, page, chunk_index, content, created_at,
		        1 - (embedding <=> $2) AS similarity
		 FROM pdf_chunks
		 WHERE user_id = $1
		 ORDER BY embedding <=> $2, id
		 LIMIT $3`,
		userID, query, k,
	)
	if err != nil {
		return nil, storeErr("search chunks", err)
	}
	defer rows.Close()

	hits := []*Hit{}
	for rows.Next() {
		var h Hit
		if err := rows.Scan(
			&h.ID, &h.UserID, &h.DocumentID, &h.Source, &h.Page,
			&h.ChunkIndex, &h.Content, &h.CreatedAt, &h.Similarity,
		); err != nil {
			return nil, storeErr("search chunks", err)
		}
		hits = append(hits, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("search chunks", err)
	}
	return hits, nil
}

// enableIterativeScan keeps the HNSW scan going until LIMIT rows pass the
// user filter instead of stopping after ef_search candidates. The setting
// exists from pgvector 0.8; older servers reject it, so it is tried in a
// savepoint once and then skipped.
func (db *DB) enableIterativeScan(ctx context.Context, tx pgx.Tx) {
	if db.noIterativeScan.Load() {
		return
	}
	sp, err := tx.Begin(ctx)
	if err != nil {
		return
	}
	if _, err := sp.Exec(ctx, "SET LOCAL hnsw.iterative_scan = strict_order"); err != nil {
		sp.Rollback(ctx)
		db.noIterativeScan.Store(true)
		logger.Warn("pgvector without iterative index scans; searches may return fewer than k chunks when many users share the table", "error", err)
		return
	}
	sp.Commit(ctx)
}

// ListDocuments returns a user's documents, newest first
func (db *DB) ListDocuments(ctx context.Context, userID string) ([]*Document, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, user_id, filename, page_count, created_at
		 FROM pdf_documents WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, storeErr("list documents", err)
	}
	defer rows.Close()

	docs := []*Document{}
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.UserID, &doc.Filename, &doc.PageCount, &doc.CreatedAt); err != nil {
			return nil, storeErr("list documents", err)
		}
		docs = append(docs, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list documents", err)
	}
	return docs, nil
}

// DeleteDocument deletes a user's document; its chunks go with it
func (db *DB) DeleteDocument(ctx context.Context, userID string, docID uuid.UUID) error {
	tag, err := db.pool.Exec(ctx,
		`DELETE FROM pdf_documents WHERE id = $1 AND user_id = $2`,
		docID, userID,
	)
	if err != nil {
		return storeErr("delete document", err)
	}
	if tag.RowsAffected() == 0 {
		return storeErr("delete document", fmt.Errorf("document %s: %w", docID, ErrNotFound))
	}
	return nil
}
