package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dream-ai/pdfchat/internal/rag"
)

type stubAsker struct {
	userID string
	k      int
	err    error
}

func (s *stubAsker) Ask(_ context.Context, userID, question string, k int) (*rag.Answer, error) {
	s.userID, s.k = userID, k
	if s.err != nil {
		return nil, s.err
	}
	return &rag.Answer{
		Answer:  "It says **yes** about " + question,
		Sources: []rag.Source{{Source: "a.pdf", Page: 2}, {Source: "a.pdf", Page: 2}},
	}, nil
}

func typeQuestion(t *testing.T, m Model, q string) (Model, tea.Cmd) {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = next.(Model)
	for _, r := range q {
		next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = next.(Model)
	}
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model), cmd
}

func TestAskRoundTrip(t *testing.T) {
	asker := &stubAsker{}
	m, cmd := typeQuestion(t, New(asker, "alice", 8), "refunds")
	if cmd == nil {
		t.Fatal("enter did not start a request")
	}
	if !m.loading || len(m.Messages()) != 2 {
		t.Fatalf("state after enter: loading=%v messages=%d", m.loading, len(m.Messages()))
	}

	next, _ := m.Update(cmd())
	m = next.(Model)
	if asker.userID != "alice" || asker.k != 8 {
		t.Errorf("asked as %q k=%d", asker.userID, asker.k)
	}
	last := m.Messages()[1]
	if last.Content != "It says **yes** about refunds" || len(last.Sources) != 2 {
		t.Fatalf("answer message = %+v", last)
	}
	if m.loading {
		t.Error("still loading after answer")
	}
	if !strings.Contains(m.View(), "a.pdf p.2") {
		t.Error("sources not rendered")
	}
}

func TestAskError(t *testing.T) {
	m, cmd := typeQuestion(t, New(&stubAsker{err: errors.New("embedder offline")}, "alice", 8), "x")
	next, _ := m.Update(cmd())
	m = next.(Model)
	if got := m.Messages()[1].Content; got != "Error: embedder offline" {
		t.Fatalf("content = %q", got)
	}
}

func TestEmptyQuestionIgnored(t *testing.T) {
	m, cmd := typeQuestion(t, New(&stubAsker{}, "alice", 8), "   ")
	if cmd != nil || len(m.Messages()) != 0 {
		t.Fatal("blank question was sent")
	}
}

func TestFormatSourcesDeduplicates(t *testing.T) {
	out := FormatSources([]rag.Source{{Source: "a.pdf", Page: 1}, {Source: "b.pdf", Page: 3}, {Source: "a.pdf", Page: 1}})
	if strings.Count(out, "a.pdf p.1") != 1 || !strings.Contains(out, "b.pdf p.3") {
		t.Fatalf("sources = %q", out)
	}
}

func TestFormatMarkdownKeepsText(t *testing.T) {
	out := FormatMarkdown("## Terms\n- net **30** days\nplain")
	for _, want := range []string{"Terms", "net", "30", "days", "plain"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
	if strings.Contains(out, "**") || strings.Contains(out, "##") {
		t.Errorf("markdown markers left in %q", out)
	}
}
