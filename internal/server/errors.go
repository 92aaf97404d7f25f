package server

import (
	"errors"
	"net/http"

	"github.com/dream-ai/pdfchat/internal/db"
	"github.com/dream-ai/pdfchat/internal/documents"
	"github.com/dream-ai/pdfchat/internal/embeddings"
	"github.com/gin-gonic/gin"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
}

func respondWithError(c *gin.Context, statusCode int, errorCode, message string, details any) {
	c.AbortWithStatusJSON(statusCode, ErrorResponse{
		ErrorCode: errorCode,
		Message:   message,
		Details:   details,
	})
}

func respondWithBadRequest(c *gin.Context, message string) {
	respondWithError(c, http.StatusBadRequest, "bad_request", message, nil)
}

// classify maps pipeline errors onto an HTTP status and error code.
func classify(err error) (int, string) {
	var (
		noContent  *documents.NoContentError
		extraction *documents.ExtractionError
		embedding  *embeddings.EmbeddingError
		store      *db.StoreError
	)
	switch {
	case errors.As(err, &noContent):
		return http.StatusUnprocessableEntity, "no_content"
	case errors.As(err, &extraction):
		return http.StatusUnprocessableEntity, "extraction_failed"
	case errors.As(err, &embedding):
		return http.StatusBadGateway, "embedding_failed"
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.As(err, &store):
		return http.StatusInternalServerError, "store_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func respondWithPipelineError(c *gin.Context, err error) {
	status, code := classify(err)
	respondWithError(c, status, code, err.Error(), nil)
}
