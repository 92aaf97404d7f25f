package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dream-ai/pdfchat/internal/db"
	"github.com/dream-ai/pdfchat/internal/documents"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	cellStyle  = lipgloss.NewStyle().PaddingRight(2)
)

// RenderDocuments renders a user's documents as a table.
func RenderDocuments(docs []*db.Document) string {
	if len(docs) == 0 {
		return mutedStyle.Render("No documents indexed.")
	}

	rows := [][]string{{"ID", "FILENAME", "PAGES", "UPLOADED"}}
	for _, d := range docs {
		rows = append(rows, []string{
			d.ID.String(),
			d.Filename,
			fmt.Sprint(d.PageCount),
			d.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	return titleStyle.Render("Documents") + "\n" + renderTable(rows)
}

// RenderReport summarizes an indexing batch, one line per file.
func RenderReport(report *documents.Report) string {
	var lines []string
	lines = append(lines, titleStyle.Render("Indexing report"))
	for _, f := range report.Files {
		if f.OK() {
			lines = append(lines, okStyle.Render("  ✓ ")+fmt.Sprintf("%s  %d pages, %d chunks", f.Filename, f.Pages, f.Chunks))
		} else {
			lines = append(lines, errorStyle.Render("  ✗ ")+fmt.Sprintf("%s  %v", f.Filename, f.Err))
		}
	}
	lines = append(lines, "", fmt.Sprintf("%d documents, %d pages, %d chunks", report.Documents, report.Pages, report.Chunks))
	return strings.Join(lines, "\n")
}

func renderTable(rows [][]string) string {
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	var b strings.Builder
	for r, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			style := cellStyle.Width(widths[i] + 2)
			if r == 0 {
				style = style.Bold(true)
			}
			cells[i] = style.Render(cell)
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
