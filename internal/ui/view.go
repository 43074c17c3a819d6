package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

const labelWidth = 10

func (r *scriptRow) style() lipgloss.Style {
	switch r.state {
	case rowWritten, rowCached:
		return okStyle
	case rowFailed:
		return failStyle
	case rowQueued:
		return dimStyle
	}
	return accentStyle
}

// detail is what follows the path: the error of a failed script or the
// time a settled one took.
func (r *scriptRow) detail() string {
	if r.state == rowFailed && r.err != "" {
		return failStyle.Render(r.err)
	}
	if r.state.settled() && r.elapsed > 0 {
		return dimStyle.Render(r.elapsed.Round(time.Millisecond).String())
	}
	return ""
}

func (m *compileModel) View() string {
	if len(m.rows) == 0 {
		return ""
	}
	counts := countRows(m.rows)

	var b strings.Builder
	mark := m.spinner.View()
	if m.done {
		mark = okStyle.Render("✓")
		if counts.failed > 0 || m.failure != "" {
			mark = failStyle.Render("✗")
		}
	}
	fmt.Fprintf(&b, "%s %s %s\n", mark, titleStyle.Render(m.title), dimStyle.Render(fmt.Sprintf("[%d/%d]", counts.settled(), len(m.rows))))
	if m.failure != "" {
		fmt.Fprintf(&b, "  %s\n", failStyle.Render(m.failure))
	}
	b.WriteString("\n")

	pathWidth := max(m.width-labelWidth-4, 20)
	for i := range m.rows {
		row := &m.rows[i]
		label := row.style().Render(fmt.Sprintf("%-*s", labelWidth, row.label()))
		line := "  " + label + " " + fitPath(row.path, pathWidth)
		if d := row.detail(); d != "" {
			line += "  " + d
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.bar.ViewAs(1))
	} else {
		b.WriteString(m.bar.View())
	}
	fmt.Fprintf(&b, "\n%d compiled, %d cached, %d failed\n", counts.compiled, counts.cached, counts.failed)
	return b.String()
}

// fitPath shortens path to width cells, keeping its tail: the script name
// is the part worth seeing.
func fitPath(path string, width int) string {
	w := runewidth.StringWidth(path)
	if width <= 0 || w <= width {
		return path
	}
	if width <= 3 {
		return runewidth.TruncateLeft(path, w-width, "")
	}
	return runewidth.TruncateLeft(path, w-width+3, "...")
}
