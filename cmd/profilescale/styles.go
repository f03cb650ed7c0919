package main

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Palette
var (
	colorAccent  = lipgloss.Color("#8BC34A") // lime green
	colorMuted   = lipgloss.Color("#8a94a6")
	colorWarning = lipgloss.Color("#FFC107")
	colorError   = lipgloss.Color("#e53935")
	colorInfo    = lipgloss.Color("#2196F3")
)

// styles holds the styles for one output stream. Colors are only emitted
// when that stream is a color-capable terminal.
type styles struct {
	Title   lipgloss.Style
	Bold    lipgloss.Style
	Body    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		Title:   r.NewStyle().Bold(true).Foreground(colorAccent),
		Bold:    r.NewStyle().Bold(true),
		Body:    r.NewStyle(),
		Muted:   r.NewStyle().Foreground(colorMuted),
		Success: r.NewStyle().Foreground(colorAccent),
		Warning: r.NewStyle().Foreground(colorWarning),
		Error:   r.NewStyle().Bold(true).Foreground(colorError),
		Info:    r.NewStyle().Foreground(colorInfo),
	}
}

// table renders rows under a header with columns sized to their widest cell.
type table struct {
	headers []string
	rows    [][]string
}

func newTable(headers ...string) *table {
	return &table{headers: headers}
}

func (t *table) addRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) render(s styles) string {
	if len(t.rows) == 0 {
		return ""
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}
	// Width includes the padding
	for i := range widths {
		widths[i] += 2
	}

	var sb strings.Builder
	line := func(cells []string, style lipgloss.Style) {
		for i, cell := range cells {
			if i >= len(widths) {
				break
			}
			sb.WriteString(style.Padding(0, 1).Width(widths[i]).Render(cell))
			if i < len(cells)-1 && i < len(widths)-1 {
				sb.WriteString(s.Muted.Render("|"))
			}
		}
		sb.WriteString("\n")
	}

	line(t.headers, s.Bold)
	for i, w := range widths {
		sb.WriteString(s.Muted.Render(strings.Repeat("-", w)))
		if i < len(widths)-1 {
			sb.WriteString(s.Muted.Render("+"))
		}
	}
	sb.WriteString("\n")
	for _, row := range t.rows {
		line(row, s.Body)
	}
	return sb.String()
}
