package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dream-ai/pdfchat/config"
	"github.com/dream-ai/pdfchat/internal/chat"
	"github.com/dream-ai/pdfchat/internal/db"
	"github.com/dream-ai/pdfchat/internal/documents"
	"github.com/dream-ai/pdfchat/internal/embeddings"
	"github.com/dream-ai/pdfchat/internal/llm"
	"github.com/dream-ai/pdfchat/internal/rag"
	"github.com/dream-ai/pdfchat/internal/vectorstore/memory"
	"github.com/gin-gonic/gin"
	"github.com/pgvector/pgvector-go"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

// textExtractor treats the upload bytes as a single page of text;
// bytes starting with "%bad" fail extraction.
type textExtractor struct{}

func (textExtractor) Extract(data []byte) ([]documents.Page, int, error) {
	if bytes.HasPrefix(data, []byte("%bad")) {
		return nil, 0, &documents.ExtractionError{Err: errors.New("corrupt")}
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, 1, nil
	}
	return []documents.Page{{Number: 1, Text: text}}, 1, nil
}

type lengthEmbedder struct {
	err error
}

func (e *lengthEmbedder) Embed(_ context.Context, texts []string) ([]pgvector.Vector, error) {
	if e.err != nil {
		return nil, &embeddings.EmbeddingError{Backend: "test", Err: e.err}
	}
	out := make([]pgvector.Vector, len(texts))
	for i, t := range texts {
		out[i] = pgvector.NewVector([]float32{float32(len(t)%7) + 1, 1})
	}
	return out, nil
}

type echoGenerator struct {
	calls int
}

func (g *echoGenerator) Generate(_ context.Context, msgs []llm.Message, _ llm.Options) (string, error) {
	g.calls++
	return "echo: " + msgs[len(msgs)-1].Content, nil
}

type testServer struct {
	*Server
	store *memory.Storage
	gen   *echoGenerator
	emb   *lengthEmbedder
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Mode = "debug"
	cfg.Server.JWTSecret = testSecret
	cfg.Server.RateLimit = 1000
	cfg.Server.RateBurst = 1000

	store := memory.NewStorage()
	emb := &lengthEmbedder{}
	gen := &echoGenerator{}
	chunker, err := documents.NewChunker(900, 150)
	if err != nil {
		t.Fatal(err)
	}
	srv := New(cfg, Deps{
		Bot:           chat.NewBot(gen, "sys", 6, llm.Options{}),
		Conversations: chat.NewMemoryStore(time.Hour),
		Indexer:       documents.NewIndexer(store, emb, textExtractor{}, chunker, 2),
		Answerer:      rag.NewAnswerer(rag.NewRetriever(emb, store, 8), gen, llm.Options{}),
		Index:         store,
	})
	return &testServer{Server: srv, store: store, gen: gen, emb: emb}
}

func token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := IssueToken(userID, testSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	ts.Handler().ServeHTTP(w, req)
	return w
}

func uploadRequest(t *testing.T, userID string, files map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, content := range files {
		fw, err := mw.CreateFormFile("pdfs", name)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(content))
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/pdf/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, userID))
	}
	return req
}

func newAskRequest(t *testing.T, userID, question string) *http.Request {
	t.Helper()
	body, _ := json.Marshal(map[string]any{"question": question, "k": 8})
	req := httptest.NewRequest(http.MethodPost, "/pdf/ask", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token(t, userID))
	return req
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestChatbotKeepsConversationPerCookie(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/chatbot", strings.NewReader(`{"prompt":"hello"}`))
	w := ts.do(req)
	if w.Code != http.StatusOK || w.Body.String() != "echo: hello" {
		t.Fatalf("first reply: %d %q", w.Code, w.Body.String())
	}
	cookies := w.Result().Cookies()
	if len(cookies) == 0 || cookies[0].Name != conversationCookie {
		t.Fatal("no conversation cookie set")
	}

	req = httptest.NewRequest(http.MethodPost, "/chatbot", strings.NewReader(`{"prompt":"again"}`))
	req.AddCookie(cookies[0])
	ts.do(req)

	conv, err := ts.deps.Conversations.Load(context.Background(), cookies[0].Value)
	if err != nil {
		t.Fatal(err)
	}
	// system, hello, reply, again, reply
	if len(conv.Messages) != 5 {
		t.Fatalf("conversation has %d messages, want 5", len(conv.Messages))
	}

	req = httptest.NewRequest(http.MethodPost, "/reset", nil)
	req.AddCookie(cookies[0])
	if w := ts.do(req); w.Body.String() != "Chat reset" {
		t.Fatalf("reset body = %q", w.Body.String())
	}
	if _, err := ts.deps.Conversations.Load(context.Background(), cookies[0].Value); !errors.Is(err, chat.ErrNotFound) {
		t.Fatalf("conversation survived reset: %v", err)
	}
}

func TestChatbotEmptyInput(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(httptest.NewRequest(http.MethodPost, "/chatbot", strings.NewReader(`{"prompt":"   "}`)))
	if w.Code != http.StatusBadRequest || w.Body.String() != "Empty input" {
		t.Fatalf("got %d %q", w.Code, w.Body.String())
	}
	if ts.gen.calls != 0 {
		t.Fatal("model called for empty input")
	}
}

func TestPDFRoutesRequireAuth(t *testing.T) {
	ts := newTestServer(t)
	badToken, _ := IssueToken("alice", "other-secret", time.Hour)
	expired, _ := IssueToken("alice", testSecret, -time.Minute)

	for name, header := range map[string]string{
		"missing":      "",
		"wrong secret": "Bearer " + badToken,
		"expired":      "Bearer " + expired,
		"not bearer":   "Basic abc",
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/pdf/documents", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			if w := ts.do(req); w.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", w.Code)
			}
		})
	}
}

func TestPDFRoutesWithoutSecret(t *testing.T) {
	ts := newTestServer(t)
	cfg := *ts.cfg
	cfg.Server.JWTSecret = ""
	open := New(&cfg, ts.deps)

	req := httptest.NewRequest(http.MethodGet, "/pdf/documents", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, "alice"))
	w := httptest.NewRecorder()
	open.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}

func TestUploadAndAsk(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(uploadRequest(t, "alice", map[string]string{"notes.pdf": "The launch date is March 3."}))
	if w.Code != http.StatusOK {
		t.Fatalf("upload status = %d: %s", w.Code, w.Body.String())
	}
	var up struct {
		OK       bool     `json:"ok"`
		PDFCount int      `json:"pdf_count"`
		Pages    int      `json:"pages"`
		Chunks   int      `json:"chunks"`
		Names    []string `json:"pdf_names"`
	}
	json.Unmarshal(w.Body.Bytes(), &up)
	if !up.OK || up.PDFCount != 1 || up.Pages != 1 || up.Chunks != 1 || up.Names[0] != "notes.pdf" {
		t.Fatalf("upload response = %+v", up)
	}

	w = ts.do(newAskRequest(t, "alice", "When is the launch?"))
	if w.Code != http.StatusOK {
		t.Fatalf("ask status = %d: %s", w.Code, w.Body.String())
	}
	var ans rag.Answer
	json.Unmarshal(w.Body.Bytes(), &ans)
	if len(ans.Sources) != 1 || ans.Sources[0].Source != "notes.pdf" || ans.Sources[0].Page != 1 {
		t.Fatalf("sources = %+v", ans.Sources)
	}
	if !strings.Contains(ans.Answer, "[Source: notes.pdf | Page: 1]") {
		t.Errorf("model did not receive the context: %q", ans.Answer)
	}
}

func TestAskOtherUserGetsNothing(t *testing.T) {
	ts := newTestServer(t)
	ts.do(uploadRequest(t, "alice", map[string]string{"secret.pdf": "alice's salary is private"}))
	calls := ts.gen.calls

	w := ts.do(newAskRequest(t, "bob", "what is alice's salary?"))
	var ans rag.Answer
	json.Unmarshal(w.Body.Bytes(), &ans)
	if ans.Answer != rag.NotFoundAnswer || len(ans.Sources) != 0 {
		t.Fatalf("bob got %+v", ans)
	}
	if ts.gen.calls != calls {
		t.Fatal("model called with empty context")
	}
}

func TestUploadErrors(t *testing.T) {
	tests := []struct {
		name     string
		files    map[string]string
		embedErr error
		status   int
		code     string
	}{
		{"scanned only", map[string]string{"scan.pdf": "   "}, nil, http.StatusUnprocessableEntity, "no_content"},
		{"all corrupt", map[string]string{"bad.pdf": "%bad"}, nil, http.StatusUnprocessableEntity, "extraction_failed"},
		{"embedder down", map[string]string{"ok.pdf": "text"}, errors.New("down"), http.StatusBadGateway, "embedding_failed"},
		{"no files", map[string]string{}, nil, http.StatusBadRequest, "bad_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.emb.err = tt.embedErr

			w := ts.do(uploadRequest(t, "alice", tt.files))
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.status, w.Body.String())
			}
			var body struct {
				OK        bool   `json:"ok"`
				ErrorCode string `json:"error_code"`
			}
			json.Unmarshal(w.Body.Bytes(), &body)
			if body.OK || body.ErrorCode != tt.code {
				t.Fatalf("body = %s", w.Body.String())
			}
		})
	}
}

func TestUploadPartialFailure(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(uploadRequest(t, "alice", map[string]string{"good.pdf": "real text", "bad.pdf": "%bad"}))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		PDFCount int            `json:"pdf_count"`
		Files    []fileResponse `json:"files"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body.PDFCount != 1 || len(body.Files) != 2 {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestDocumentsListAndDelete(t *testing.T) {
	ts := newTestServer(t)
	ts.do(uploadRequest(t, "alice", map[string]string{"a.pdf": "alpha"}))

	req := httptest.NewRequest(http.MethodGet, "/pdf/documents", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, "alice"))
	w := ts.do(req)
	var list struct {
		Documents []db.Document `json:"documents"`
	}
	json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Documents) != 1 {
		t.Fatalf("documents = %s", w.Body.String())
	}
	id := list.Documents[0].ID.String()

	req = httptest.NewRequest(http.MethodDelete, "/pdf/documents/"+id, nil)
	req.Header.Set("Authorization", "Bearer "+token(t, "bob"))
	if w := ts.do(req); w.Code != http.StatusNotFound {
		t.Fatalf("bob deleted alice's document: %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/pdf/documents/"+id, nil)
	req.Header.Set("Authorization", "Bearer "+token(t, "alice"))
	if w := ts.do(req); w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/pdf/documents/not-a-uuid", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, "alice"))
	if w := ts.do(req); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d", w.Code)
	}
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t)
	cfg := *ts.cfg
	cfg.Server.RateLimit = 0.001
	cfg.Server.RateBurst = 2
	limited := New(&cfg, ts.deps)

	codes := make([]int, 3)
	for i := range codes {
		req := httptest.NewRequest(http.MethodGet, "/pdf/documents", nil)
		req.Header.Set("Authorization", "Bearer "+token(t, "alice"))
		w := httptest.NewRecorder()
		limited.Handler().ServeHTTP(w, req)
		codes[i] = w.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}

	req := httptest.NewRequest(http.MethodGet, "/pdf/documents", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, "bob"))
	w := httptest.NewRecorder()
	limited.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("bob limited by alice's usage: %d", w.Code)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{&documents.NoContentError{}, http.StatusUnprocessableEntity},
		{&documents.ExtractionError{Err: errors.New("x")}, http.StatusUnprocessableEntity},
		{&embeddings.EmbeddingError{Err: errors.New("x")}, http.StatusBadGateway},
		{&db.StoreError{Op: "search", Err: errors.New("x")}, http.StatusInternalServerError},
		{&db.StoreError{Op: "delete", Err: db.ErrNotFound}, http.StatusNotFound},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got, _ := classify(tt.err); got != tt.status {
			t.Errorf("classify(%v) = %d, want %d", tt.err, got, tt.status)
		}
	}
}
