package chat

import (
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/algotutor/internal/ui/theme"
)

// View renders the tail of the transcript that fits above the prompt.
func (s *ChatScreen) View(width, height int) string {
	inner := max(width-4, 10)

	var blocks []string
	for i := range s.entries {
		blocks = append(blocks, s.renderEntry(&s.entries[i], inner))
	}
	if s.pending {
		blocks = append(blocks, theme.Hint.Render(s.persona.Label()+" is thinking..."))
	}

	prompt := lipgloss.NewStyle().
		Width(inner).
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(theme.Border).
		Render(s.input.View())

	avail := max(height-lipgloss.Height(prompt), 0)
	lines := tail(strings.Split(strings.Join(blocks, "\n\n"), "\n"), avail)

	return lipgloss.NewStyle().Padding(0, 2).Render(strings.Join(lines, "\n") + "\n" + prompt)
}

func (s *ChatScreen) renderEntry(e *entry, width int) string {
	switch e.kind {
	case entryUser:
		body := lipgloss.NewStyle().Width(width).Foreground(theme.Text).Render(e.text)
		return theme.UserLabel.Render("You") + "\n" + body
	case entryTutor:
		if e.renderedWidth != width {
			e.rendered = s.md.Render(e.text, width)
			e.renderedWidth = width
		}
		return theme.PersonaColor(e.persona).Render(e.persona.Label()) + "\n" + e.rendered
	default:
		return theme.Hint.Width(width).Render(e.text)
	}
}

// tail returns exactly n lines: the last n of lines, padded at the top
// with blanks so the newest message sits just above the prompt.
func tail(lines []string, n int) []string {
	if len(lines) >= n {
		return lines[len(lines)-n:]
	}
	return append(make([]string, n-len(lines)), lines...)
}
