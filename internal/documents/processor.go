package documents

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dream-ai/pdfchat/internal/db"
	"github.com/dream-ai/pdfchat/internal/embeddings"
	"github.com/dream-ai/pdfchat/internal/logger"
	"github.com/dream-ai/pdfchat/internal/vectorstore"
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"golang.org/x/sync/errgroup"
)

const defaultFilename = "uploaded.pdf"

// File is one uploaded PDF.
type File struct {
	Name string
	Data []byte
}

// LoadFile reads a PDF from disk.
func LoadFile(path string) (File, error) {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".pdf" {
		return File{}, fmt.Errorf("unsupported file type: %s", ext)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return File{Name: filepath.Base(path), Data: data}, nil
}

// FileResult is the outcome for one file of a batch.
type FileResult struct {
	Filename   string    `json:"filename"`
	DocumentID uuid.UUID `json:"document_id,omitempty"`
	Pages      int       `json:"pages"`
	Chunks     int       `json:"chunks"`
	Err        error     `json:"-"`
}

func (r FileResult) OK() bool { return r.Err == nil }

// Report summarizes an indexing batch. Documents, Pages and Chunks count
// successful files only; Filenames lists every file attempted.
type Report struct {
	Documents int          `json:"documents"`
	Pages     int          `json:"pages"`
	Chunks    int          `json:"chunks"`
	Filenames []string     `json:"filenames"`
	Files     []FileResult `json:"-"`
}

// Indexer turns uploaded PDFs into embedded chunks in a user's partition.
type Indexer struct {
	store     vectorstore.VectorIndex
	embedder  embeddings.Embedder
	extractor Extractor
	chunker   *Chunker
	workers   int
}

// NewIndexer creates a new indexer. workers bounds concurrent extraction.
func NewIndexer(
	store vectorstore.VectorIndex,
	embedder embeddings.Embedder,
	extractor Extractor,
	chunker *Chunker,
	workers int,
) *Indexer {
	if workers <= 0 {
		workers = 1
	}
	return &Indexer{
		store:     store,
		embedder:  embedder,
		extractor: extractor,
		chunker:   chunker,
		workers:   workers,
	}
}

type pendingChunk struct {
	page  int
	index int
	text  string
}

type prepared struct {
	pages  int
	chunks []pendingChunk
	err    error
}

// IndexDocuments extracts, chunks, embeds and stores every file for userID.
// A failing file is recorded in the report and skipped. The returned error
// is non-nil only when the batch stored no chunks at all; the report is
// always returned.
func (ix *Indexer) IndexDocuments(ctx context.Context, userID string, files []File) (*Report, error) {
	if userID == "" {
		return nil, errors.New("user id is required")
	}

	files = slices.Clone(files)
	report := &Report{
		Filenames: make([]string, len(files)),
		Files:     make([]FileResult, len(files)),
	}
	for i := range files {
		if files[i].Name == "" {
			files[i].Name = defaultFilename
		}
		report.Filenames[i] = files[i].Name
		report.Files[i].Filename = files[i].Name
	}

	preps, err := ix.prepare(ctx, files)
	if err != nil {
		return report, err
	}

	// embedding and storage stay sequential in upload order
	for i, prep := range preps {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res := &report.Files[i]
		if prep.err != nil {
			res.Err = prep.err
			logger.Warn("Skipping unreadable PDF", "user_id", userID, "filename", res.Filename, "error", prep.err)
			continue
		}
		if err := ix.indexFile(ctx, userID, res, prep); err != nil {
			res.Err = err
			logger.Warn("Failed to index PDF", "user_id", userID, "filename", res.Filename, "error", err)
			continue
		}
		report.Documents++
		report.Pages += res.Pages
		report.Chunks += res.Chunks
	}

	logger.Info("Indexed PDFs",
		"user_id", userID,
		"files", len(files),
		"documents", report.Documents,
		"pages", report.Pages,
		"chunks", report.Chunks,
	)

	if report.Chunks == 0 {
		return report, batchError(report.Files)
	}
	return report, nil
}

// prepare extracts and chunks files concurrently.
func (ix *Indexer) prepare(ctx context.Context, files []File) ([]prepared, error) {
	preps := make([]prepared, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.workers)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			preps[i] = ix.split(f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return preps, nil
}

func (ix *Indexer) split(f File) prepared {
	pages, total, err := ix.extractor.Extract(f.Data)
	if err != nil {
		var ee *ExtractionError
		if errors.As(err, &ee) {
			ee.Filename = f.Name
			return prepared{err: ee}
		}
		return prepared{err: &ExtractionError{Filename: f.Name, Err: err}}
	}

	p := prepared{pages: total}
	for _, page := range pages {
		for _, seg := range ix.chunker.Split(strings.TrimSpace(page.Text)) {
			p.chunks = append(p.chunks, pendingChunk{page: page.Number, index: seg.Index, text: seg.Content})
		}
	}
	return p
}

// indexFile embeds one file's chunks and stores them. Embedding happens before
// the document row exists so a failed call leaves nothing behind.
func (ix *Indexer) indexFile(ctx context.Context, userID string, res *FileResult, prep prepared) error {
	res.Pages = prep.pages

	var texts []string
	for _, c := range prep.chunks {
		texts = append(texts, augment(res.Filename, c.page, c.text))
	}
	var vectors []pgvector.Vector
	if len(texts) > 0 {
		var err error
		if vectors, err = ix.embedder.Embed(ctx, texts); err != nil {
			return err
		}
		if len(vectors) != len(texts) {
			return &embeddings.EmbeddingError{Err: fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(texts))}
		}
	}

	doc, err := ix.store.CreateDocument(ctx, userID, res.Filename, prep.pages)
	if err != nil {
		return err
	}
	res.DocumentID = doc.ID
	if len(prep.chunks) == 0 {
		return nil
	}

	chunks := make([]*db.Chunk, len(prep.chunks))
	for i, c := range prep.chunks {
		chunks[i] = &db.Chunk{
			UserID:     userID,
			DocumentID: doc.ID,
			Source:     res.Filename,
			Page:       c.page,
			ChunkIndex: c.index,
			Content:    c.text,
			Embedding:  vectors[i],
		}
	}
	if err := ix.store.InsertChunks(ctx, chunks); err != nil {
		if derr := ix.store.DeleteDocument(context.WithoutCancel(ctx), userID, doc.ID); derr != nil {
			logger.Error("Failed to remove document after insert failure", "document_id", doc.ID, "error", derr)
		}
		res.DocumentID = uuid.Nil
		return err
	}
	res.Chunks = len(chunks)
	return nil
}

// augment prefixes chunk text with its location so the vector carries
// the document name and page.
func augment(source string, page int, content string) string {
	return fmt.Sprintf("%s p.%d\n%s", source, page, content)
}

func batchError(results []FileResult) error {
	var (
		firstExtract error
		firstOther   error
		extractFails int
	)
	for _, r := range results {
		if r.Err == nil {
			continue
		}
		var ee *ExtractionError
		if errors.As(r.Err, &ee) {
			extractFails++
			if firstExtract == nil {
				firstExtract = r.Err
			}
		} else if firstOther == nil {
			firstOther = r.Err
		}
	}
	switch {
	case firstOther != nil:
		return firstOther
	case len(results) > 0 && extractFails == len(results):
		return firstExtract
	default:
		return &NoContentError{Files: len(results)}
	}
}
