package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dream-ai/pdfchat/internal/rag"
)

// Asker answers questions over one user's documents.
type Asker interface {
	Ask(ctx context.Context, userID, question string, k int) (*rag.Answer, error)
}

// Message is one entry in the console transcript.
type Message struct {
	Role    string
	Content string
	Sources []rag.Source
}

type answerMsg struct {
	answer *rag.Answer
	err    error
}

// Model is the ask console: a scrolling transcript above a prompt.
type Model struct {
	asker    Asker
	userID   string
	k        int
	timeout  time.Duration
	input    textinput.Model
	viewport viewport.Model
	messages []Message
	status   string
	loading  bool
	ready    bool
}

// New creates a console that asks on behalf of userID.
func New(asker Asker, userID string, k int) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about your PDFs and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	return Model{
		asker:    asker,
		userID:   userID,
		k:        k,
		timeout:  5 * time.Minute,
		input:    ti,
		viewport: viewport.New(0, 0),
		status:   fmt.Sprintf("Asking as %s. Ctrl+C to quit.", userID),
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptStyle.GetFrameSize()
		_, ih := inputStyle.GetFrameSize()
		reserved := 1 + 1 + ih + 1 // header, status, input, input line
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-th)
		m.refresh()
		return m, nil

	case answerMsg:
		m.loading = false
		last := &m.messages[len(m.messages)-1]
		if msg.err != nil {
			last.Content = "Error: " + msg.err.Error()
			m.status = "Request failed"
		} else {
			last.Content = msg.answer.Answer
			last.Sources = msg.answer.Sources
			m.status = fmt.Sprintf("%d sources", len(msg.answer.Sources))
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			return m, tea.Quit
		case tea.KeyPgUp:
			m.viewport.PageUp()
			return m, nil
		case tea.KeyPgDown:
			m.viewport.PageDown()
			return m, nil
		}
		if msg.Type == tea.KeyEnter {
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.loading {
				return m, nil
			}
			m.input.SetValue("")
			m.loading = true
			m.status = "Thinking..."
			m.messages = append(m.messages,
				Message{Role: "user", Content: q},
				Message{Role: "assistant", Content: "Thinking..."},
			)
			m.refresh()
			return m, m.ask(q)
		}
	}

	// keys go to the prompt only; the transcript scrolls with PgUp/PgDown
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(question string) tea.Cmd {
	asker, userID, k, timeout := m.asker, m.userID, m.k, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		ans, err := asker.Ask(ctx, userID, question, k)
		return answerMsg{answer: ans, err: err}
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(renderTranscript(m.messages, m.viewport.Width))
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("PDF Chat")
	transcript := transcriptStyle.Render(m.viewport.View())
	input := inputStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

// Messages returns the transcript so far.
func (m Model) Messages() []Message { return m.messages }

func renderTranscript(messages []Message, width int) string {
	if len(messages) == 0 {
		return mutedStyle.Render("No questions yet.")
	}
	var lines []string
	for _, msg := range messages {
		if msg.Role == "user" {
			lines = append(lines, userStyle.Render("You: ")+msg.Content)
			continue
		}
		lines = append(lines, lipgloss.NewStyle().Width(max(20, width-4)).Render("AI: "+FormatMarkdown(msg.Content)))
		if len(msg.Sources) > 0 {
			lines = append(lines, "", FormatSources(msg.Sources))
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

var (
	headerStyle     = lipgloss.NewStyle().Bold(true)
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	mutedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	accentStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)
