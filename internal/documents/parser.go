package documents

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"
)

// Page is the extracted text of one PDF page. Number is 1-based.
type Page struct {
	Number int
	Text   string
}

// Extractor pulls per-page text out of raw PDF bytes.
type Extractor interface {
	// Extract returns the pages with text, in document order, and the total page count.
	Extract(data []byte) ([]Page, int, error)
}

// NewExtractor returns the extractor registered under name ("fitz" or "gopdf").
func NewExtractor(name string) (Extractor, error) {
	switch name {
	case "fitz", "":
		return FitzExtractor{}, nil
	case "gopdf":
		return GoPDFExtractor{}, nil
	default:
		return nil, fmt.Errorf("unsupported extractor: %s", name)
	}
}

// FitzExtractor extracts text with MuPDF
type FitzExtractor struct{}

func (FitzExtractor) Extract(data []byte) ([]Page, int, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, 0, &ExtractionError{Err: fmt.Errorf("failed to open PDF: %w", err)}
	}
	defer doc.Close()

	total := doc.NumPage()
	var pages []Page
	for i := 0; i < total; i++ {
		text, err := doc.Text(i)
		if err != nil {
			// a page without a text layer is skipped, not fatal
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, Page{Number: i + 1, Text: text})
		}
	}
	return pages, total, nil
}

// GoPDFExtractor is a pure Go extractor for builds without cgo.
type GoPDFExtractor struct{}

func (GoPDFExtractor) Extract(data []byte) (pages []Page, total int, err error) {
	// the parser panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			pages, total = nil, 0
			err = &ExtractionError{Err: fmt.Errorf("malformed PDF: %v", r)}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, 0, &ExtractionError{Err: fmt.Errorf("failed to create PDF reader: %w", err)}
	}

	total = reader.NumPage()
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, Page{Number: i, Text: text})
		}
	}
	return pages, total, nil
}
