package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dream-ai/pdfchat/internal/llm"
)

func TestGenerate(t *testing.T) {
	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(ChatResponse{Message: llm.Message{Role: "assistant", Content: " hello \n"}, Done: true})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "llama3.2")
	reply, err := c.Generate(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}}, llm.Options{MaxTokens: 200, Temperature: 0.3})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if reply != "hello" {
		t.Errorf("reply = %q", reply)
	}
	if got.Model != "llama3.2" || got.Stream {
		t.Errorf("request = %+v", got)
	}
	if got.Options["num_predict"] != float64(200) {
		t.Errorf("num_predict = %v", got.Options["num_predict"])
	}
	if _, ok := got.Options["top_p"]; ok {
		t.Errorf("zero top_p sent")
	}
}

func TestStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		enc := json.NewEncoder(w)
		for _, part := range []string{"The ", "answer", ""} {
			enc.Encode(ChatResponse{Message: llm.Message{Role: "assistant", Content: part}, Done: part == ""})
		}
	}))
	defer srv.Close()

	var chunks []string
	err := NewClient(srv.URL, "m").Stream(context.Background(), nil, llm.Options{}, func(s string) {
		chunks = append(chunks, s)
	})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(chunks, "|") != "The |answer" {
		t.Errorf("chunks = %q", chunks)
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"status", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not found", http.StatusNotFound)
		}},
		{"error body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"error":"out of memory"}`))
		}},
		{"bad json", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{not json`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			if _, err := NewClient(srv.URL, "m").Generate(context.Background(), nil, llm.Options{}); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func tagsServer(t *testing.T, models ...ModelInfo) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(ListModelsResponse{Models: models})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestResolveChatModel(t *testing.T) {
	installed := []ModelInfo{
		{Name: "nomic-embed-text:latest", Size: 900},
		{Name: "phi3:mini", Size: 100},
		{Name: "mistral:7b", Size: 400},
		{Name: "big-model:70b", Size: 4000},
	}
	tests := []struct {
		name      string
		models    []ModelInfo
		preferred string
		want      string
	}{
		{"configured tag", installed, "phi3:mini", "phi3:mini"},
		{"configured without tag", installed, "phi3", "phi3:mini"},
		{"priority list", installed, "llama3.2", "mistral:7b"},
		{"largest fallback", installed[:2], "", "phi3:mini"},
		{"embedders skipped", []ModelInfo{installed[0], installed[3]}, "", "big-model:70b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := NewModelSelector(NewClient(tagsServer(t, tt.models...).URL, ""))
			got, err := ms.ResolveChatModel(context.Background(), tt.preferred)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveChatModelNoneInstalled(t *testing.T) {
	ms := NewModelSelector(NewClient(tagsServer(t, ModelInfo{Name: "nomic-embed-text"}).URL, ""))
	if _, err := ms.ResolveChatModel(context.Background(), ""); err == nil {
		t.Fatal("expected error")
	}
}

func TestHasModel(t *testing.T) {
	ms := NewModelSelector(NewClient(tagsServer(t, ModelInfo{Name: "nomic-embed-text:latest"}).URL, ""))
	ok, err := ms.HasModel(context.Background(), "nomic-embed-text")
	if err != nil || !ok {
		t.Fatalf("HasModel = %v, %v", ok, err)
	}
	ok, _ = ms.HasModel(context.Background(), "mxbai-embed-large")
	if ok {
		t.Fatal("unexpected model found")
	}
}
