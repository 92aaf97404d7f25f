package documents

import (
	"fmt"
	"strings"
)

const (
	DefaultChunkSize    = 900
	DefaultChunkOverlap = 150
)

// Segment is one chunk of a page. Offset is the rune offset of the window
// start in the page text; Index is dense and 0-based per page.
type Segment struct {
	Index   int
	Offset  int
	Content string
}

// Chunker splits text into fixed-size overlapping windows.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker; overlap must be smaller than size.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split cuts text into windows of size characters, each starting overlap
// characters before the previous one ended. Windows that are blank after
// trimming are dropped without consuming an index.
func (c *Chunker) Split(text string) []Segment {
	runes := []rune(text)
	n := len(runes)

	var segments []Segment
	start := 0
	for start < n {
		end := min(start+c.size, n)
		if content := strings.TrimSpace(string(runes[start:end])); content != "" {
			segments = append(segments, Segment{
				Index:   len(segments),
				Offset:  start,
				Content: content,
			})
		}
		if end == n {
			break
		}
		start = max(end-c.overlap, 0)
	}
	return segments
}
