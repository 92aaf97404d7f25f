package tui

import (
	"fmt"
	"strings"

	"github.com/dream-ai/pdfchat/internal/rag"
)

// FormatMarkdown renders the small subset of markdown models tend to emit:
// headers, bullets and **bold**.
func FormatMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "#"):
			header := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			out = append(out, accentStyle.Bold(true).Render(header))
		case strings.HasPrefix(trimmed, "- "), strings.HasPrefix(trimmed, "* "):
			item := trimmed[2:]
			out = append(out, "  "+mutedStyle.Render("•")+" "+renderBold(item))
		default:
			out = append(out, renderBold(line))
		}
	}
	return strings.Join(out, "\n")
}

// renderBold styles text between ** pairs; an unclosed pair is styled to the end.
func renderBold(text string) string {
	parts := strings.Split(text, "**")
	if len(parts) == 1 {
		return text
	}
	var b strings.Builder
	for i, p := range parts {
		if i%2 == 1 {
			b.WriteString(accentStyle.Render(p))
		} else {
			b.WriteString(p)
		}
	}
	return b.String()
}

// FormatSources lists distinct source pages in retrieval order.
func FormatSources(sources []rag.Source) string {
	seen := make(map[string]bool)
	lines := []string{accentStyle.Render("Sources:")}
	for _, s := range sources {
		label := fmt.Sprintf("%s p.%d", s.Source, s.Page)
		if seen[label] {
			continue
		}
		seen[label] = true
		lines = append(lines, mutedStyle.Render("  - "+label))
	}
	return strings.Join(lines, "\n")
}
