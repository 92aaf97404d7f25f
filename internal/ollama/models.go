package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

// ModelInfo represents information about an Ollama model
type ModelInfo struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	ModifiedAt string `json:"modified_at"`
}

// ListModelsResponse represents the response from listing models
type ListModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// chat models tried in order when none is configured
var preferredChatModels = []string{
	"llama3.2",
	"llama3.1",
	"qwen2.5",
	"mistral",
	"gemma",
}

// ModelSelector picks installed models for chat and embeddings
type ModelSelector struct {
	client *Client
}

// NewModelSelector creates a new model selector
func NewModelSelector(client *Client) *ModelSelector {
	return &ModelSelector{client: client}
}

// ListModels lists all installed Ollama models
func (ms *ModelSelector) ListModels(ctx context.Context) ([]ModelInfo, error) {
	url := fmt.Sprintf("%s/api/tags", ms.client.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := ms.client.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API error: %d - %s", resp.StatusCode, string(body))
	}

	var result ListModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return result.Models, nil
}

// HasModel reports whether name is installed. A name without a tag
// matches any tag of that model.
func (ms *ModelSelector) HasModel(ctx context.Context, name string) (bool, error) {
	models, err := ms.ListModels(ctx)
	if err != nil {
		return false, err
	}
	for _, m := range models {
		if matchesModel(m.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

// ResolveChatModel returns preferred if installed, otherwise the best
// installed chat model. Embedding-only models are never picked.
func (ms *ModelSelector) ResolveChatModel(ctx context.Context, preferred string) (string, error) {
	models, err := ms.ListModels(ctx)
	if err != nil {
		return "", err
	}

	var chat []ModelInfo
	for _, m := range models {
		if preferred != "" && matchesModel(m.Name, preferred) {
			return m.Name, nil
		}
		if !strings.Contains(strings.ToLower(m.Name), "embed") {
			chat = append(chat, m)
		}
	}
	if len(chat) == 0 {
		return "", fmt.Errorf("no chat models installed")
	}

	for _, p := range preferredChatModels {
		for _, m := range chat {
			if strings.Contains(strings.ToLower(m.Name), p) {
				return m.Name, nil
			}
		}
	}

	sort.Slice(chat, func(i, j int) bool {
		return chat[i].Size > chat[j].Size
	})
	return chat[0].Name, nil
}

func matchesModel(installed, name string) bool {
	if installed == name {
		return true
	}
	if !strings.Contains(name, ":") {
		base, _, _ := strings.Cut(installed, ":")
		return base == name
	}
	return false
}
