package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/dream-ai/pdfchat/internal/chat"
	"github.com/dream-ai/pdfchat/internal/documents"
	"github.com/dream-ai/pdfchat/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const conversationCookie = "conversation_id"

type chatRequest struct {
	Prompt string `json:"prompt"`
}

func (s *Server) handleChatbot(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Prompt) == "" {
		c.String(http.StatusBadRequest, "Empty input")
		return
	}

	ctx := c.Request.Context()
	var conv *chat.Conversation
	if id, err := c.Cookie(conversationCookie); err == nil && id != "" {
		conv, err = s.deps.Conversations.Load(ctx, id)
		if err != nil && !errors.Is(err, chat.ErrNotFound) {
			logger.Error("Failed to load conversation", "conversation_id", id, "error", err)
			c.String(http.StatusInternalServerError, "Conversation unavailable")
			return
		}
	}

	next, reply, err := s.deps.Bot.Reply(ctx, conv, req.Prompt)
	if errors.Is(err, chat.ErrEmptyPrompt) {
		c.String(http.StatusBadRequest, "Empty input")
		return
	}
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.deps.Conversations.Save(ctx, next); err != nil {
		logger.Error("Failed to save conversation", "conversation_id", next.ID, "error", err)
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(conversationCookie, next.ID, s.cfg.Conversations.TTLMinutes*60, "/", "", s.cfg.Server.Mode == "release", true)
	c.String(http.StatusOK, reply)
}

func (s *Server) handleReset(c *gin.Context) {
	if id, err := c.Cookie(conversationCookie); err == nil && id != "" {
		if err := s.deps.Conversations.Delete(c.Request.Context(), id); err != nil {
			logger.Error("Failed to reset conversation", "conversation_id", id, "error", err)
		}
	}
	c.String(http.StatusOK, "Chat reset")
}

type fileResponse struct {
	Filename   string     `json:"filename"`
	DocumentID *uuid.UUID `json:"document_id,omitempty"`
	Pages      int        `json:"pages"`
	Chunks     int        `json:"chunks"`
	Error      string     `json:"error,omitempty"`
}

func fileResponses(results []documents.FileResult) []fileResponse {
	out := make([]fileResponse, len(results))
	for i, r := range results {
		out[i] = fileResponse{Filename: r.Filename, Pages: r.Pages, Chunks: r.Chunks}
		if r.DocumentID != uuid.Nil {
			id := r.DocumentID
			out[i].DocumentID = &id
		}
		if r.Err != nil {
			out[i].Error = r.Err.Error()
		}
	}
	return out
}

func (s *Server) handleUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.Server.MaxUploadSize)
	form, err := c.MultipartForm()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Invalid multipart upload", "error_code": "bad_request"})
		return
	}
	headers := form.File["pdfs"]
	if len(headers) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"ok": false, "error": "No PDF files uploaded", "error_code": "bad_request"})
		return
	}

	files := make([]documents.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Unreadable upload: " + fh.Filename, "error_code": "bad_request"})
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Unreadable upload: " + fh.Filename, "error_code": "bad_request"})
			return
		}
		files = append(files, documents.File{Name: fh.Filename, Data: data})
	}

	report, err := s.deps.Indexer.IndexDocuments(c.Request.Context(), currentUser(c), files)
	if err != nil {
		status, code := classify(err)
		body := gin.H{"ok": false, "error": err.Error(), "error_code": code}
		if report != nil {
			body["files"] = fileResponses(report.Files)
		}
		c.AbortWithStatusJSON(status, body)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"pdf_count": report.Documents,
		"pages":     report.Pages,
		"chunks":    report.Chunks,
		"pdf_names": report.Filenames,
		"files":     fileResponses(report.Files),
	})
}

type askRequest struct {
	Question string `json:"question"`
	K        int    `json:"k"`
}

func (s *Server) handleAsk(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithBadRequest(c, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		respondWithBadRequest(c, "Question is required")
		return
	}

	answer, err := s.deps.Answerer.Ask(c.Request.Context(), currentUser(c), req.Question, req.K)
	if err != nil {
		logger.Error("Failed to answer question", "user_id", currentUser(c), "error", err)
		respondWithPipelineError(c, err)
		return
	}
	c.JSON(http.StatusOK, answer)
}

func (s *Server) handleListDocuments(c *gin.Context) {
	docs, err := s.deps.Index.ListDocuments(c.Request.Context(), currentUser(c))
	if err != nil {
		respondWithPipelineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

func (s *Server) handleDeleteDocument(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondWithBadRequest(c, "Invalid document id")
		return
	}
	if err := s.deps.Index.DeleteDocument(c.Request.Context(), currentUser(c), id); err != nil {
		respondWithPipelineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
