package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/algotutor/internal/ui/theme"
)

// ProgressBar is a horizontal bar with a fixed-width label column.
type ProgressBar struct {
	Label      string
	LabelWidth int
	Percent    float64 // 0..1
	Suffix     string  // shown after the bar, e.g. "3x" or "80%"
	Width      int
	Warn       bool // use the warning fill colour
}

// View renders the bar.
func (p ProgressBar) View() string {
	label := p.Label
	if p.LabelWidth > 0 {
		label = fmt.Sprintf("%-*s", p.LabelWidth, truncate(label, p.LabelWidth))
	}
	result := lipgloss.NewStyle().Foreground(theme.Text).Render(label) + "  "

	suffix := ""
	if p.Suffix != "" {
		suffix = "  " + p.Suffix
	}
	barWidth := max(p.Width-lipgloss.Width(result)-lipgloss.Width(suffix), 4)

	filled := min(max(int(float64(barWidth)*p.Percent), 0), barWidth)
	fill := theme.ProgressFilled
	if p.Warn {
		fill = theme.ProgressWarn
	}
	result += fill.Render(strings.Repeat(" ", filled)) +
		theme.ProgressEmpty.Render(strings.Repeat(" ", barWidth-filled))

	if suffix != "" {
		result += lipgloss.NewStyle().Foreground(theme.TextDim).Render(suffix)
	}
	return result
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
