package documents

import "fmt"

// ExtractionError reports PDF bytes that could not be read.
type ExtractionError struct {
	Filename string
	Err      error
}

func (e *ExtractionError) Error() string {
	if e.Filename == "" {
		return fmt.Sprintf("extract text: %v", e.Err)
	}
	return fmt.Sprintf("extract text from %s: %v", e.Filename, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// NoContentError means a whole upload batch produced no chunks, which
// usually means image-only scans that need OCR first.
type NoContentError struct {
	Files int
}

func (e *NoContentError) Error() string {
	return "No text extracted from PDFs (scanned PDFs need OCR)."
}
