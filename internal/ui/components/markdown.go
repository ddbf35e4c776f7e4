package components

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// Markdown renders tutor replies for the terminal. The renderer is rebuilt
// only when the wrap width changes.
type Markdown struct {
	width    int
	renderer *glamour.TermRenderer
}

// Render returns md rendered at width, or md unchanged if rendering fails.
func (m *Markdown) Render(md string, width int) string {
	if width < 10 {
		return md
	}
	if m.renderer == nil || m.width != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return md
		}
		m.renderer, m.width = r, width
	}
	out, err := m.renderer.Render(md)
	if err != nil {
		return md
	}
	return strings.Trim(out, "\n")
}
