package memory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/dream-ai/pdfchat/internal/db"
	"github.com/dream-ai/pdfchat/internal/vectorstore"
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// Storage is an in-process vector index using brute-force cosine similarity.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	nextID    int64
	docs      map[uuid.UUID]*db.Document
	order     []uuid.UUID
	chunks    []*db.Chunk
}

var _ vectorstore.VectorIndex = (*Storage)(nil)

func NewStorage() *Storage {
	return &Storage{docs: make(map[uuid.UUID]*db.Document)}
}

func (s *Storage) CreateDocument(_ context.Context, userID, filename string, pageCount int) (*db.Document, error) {
	if userID == "" {
		return nil, &db.StoreError{Op: "create document", Err: errors.New("empty user id")}
	}
	doc := &db.Document{
		ID:        uuid.New(),
		UserID:    userID,
		Filename:  filename,
		PageCount: pageCount,
		CreatedAt: time.Now(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = doc
	s.order = append(s.order, doc.ID)
	cp := *doc
	return &cp, nil
}

func (s *Storage) InsertChunks(_ context.Context, chunks []*db.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := db.ValidateChunks(chunks); err != nil {
		return &db.StoreError{Op: "insert chunks", Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[chunks[0].DocumentID]
	if !ok || doc.UserID != chunks[0].UserID {
		return &db.StoreError{Op: "insert chunks", Err: fmt.Errorf("document %s: %w", chunks[0].DocumentID, db.ErrNotFound)}
	}
	dim := len(chunks[0].Embedding.Slice())
	if s.dimension != 0 && dim != s.dimension {
		return &db.StoreError{Op: "insert chunks", Err: fmt.Errorf("vector dimension %d, index holds %d", dim, s.dimension)}
	}
	for _, existing := range s.chunks {
		if existing.DocumentID != doc.ID {
			continue
		}
		for _, c := range chunks {
			if existing.Page == c.Page && existing.ChunkIndex == c.ChunkIndex {
				return &db.StoreError{Op: "insert chunks", Err: fmt.Errorf("duplicate chunk %d on page %d", c.ChunkIndex, c.Page)}
			}
		}
	}

	s.dimension = dim
	now := time.Now()
	for _, c := range chunks {
		s.nextID++
		c.ID = s.nextID
		c.CreatedAt = now
		cp := *c
		s.chunks = append(s.chunks, &cp)
	}
	return nil
}

func (s *Storage) SearchChunks(_ context.Context, userID string, query pgvector.Vector, k int) ([]*db.Hit, error) {
	if k < 1 {
		k = 1
	}
	q := query.Slice()
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dimension != 0 && len(q) != s.dimension {
		return nil, &db.StoreError{Op: "search chunks", Err: fmt.Errorf("query dimension %d, index holds %d", len(q), s.dimension)}
	}

	hits := []*db.Hit{}
	for _, c := range s.chunks {
		if c.UserID != userID {
			continue
		}
		hits = append(hits, &db.Hit{Chunk: *c, Similarity: cosine(c.Embedding.Slice(), q)})
	}
	// chunks are kept in insertion order, so a stable sort breaks ties by it
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (s *Storage) ListDocuments(_ context.Context, userID string) ([]*db.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := []*db.Document{}
	for i := len(s.order) - 1; i >= 0; i-- {
		if d := s.docs[s.order[i]]; d.UserID == userID {
			cp := *d
			docs = append(docs, &cp)
		}
	}
	return docs, nil
}

func (s *Storage) DeleteDocument(_ context.Context, userID string, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok || doc.UserID != userID {
		return &db.StoreError{Op: "delete document", Err: fmt.Errorf("document %s: %w", id, db.ErrNotFound)}
	}
	delete(s.docs, id)
	for i, d := range s.order {
		if d == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	kept := s.chunks[:0]
	for _, c := range s.chunks {
		if c.DocumentID != id {
			kept = append(kept, c)
		}
	}
	s.chunks = kept
	return nil
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
