package theme

import (
	"charm.land/lipgloss/v2"

	"github.com/abhisek/algotutor/internal/tutor"
)

// Color palette
var (
	Primary   = lipgloss.Color("#6366F1") // Indigo
	Secondary = lipgloss.Color("#14B8A6") // Teal
	Accent    = lipgloss.Color("#F59E0B") // Amber
	Success   = lipgloss.Color("#22C55E") // Green
	Error     = lipgloss.Color("#F43F5E") // Rose
	Text      = lipgloss.Color("#F8FAFC")
	TextDim   = lipgloss.Color("#94A3B8")
	BgCard    = lipgloss.Color("#1E293B")
	Border    = lipgloss.Color("#334155")
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)

	ErrorText = lipgloss.NewStyle().
			Foreground(Error)
)

// Chat transcript
var (
	UserLabel = lipgloss.NewStyle().
			Foreground(Accent).
			Bold(true)

	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)
)

// PersonaColor is the label color of each persona.
func PersonaColor(p tutor.Persona) lipgloss.Style {
	c := Primary
	switch p {
	case tutor.PersonaInterviewer:
		c = Error
	case tutor.PersonaStudent:
		c = Secondary
	}
	return lipgloss.NewStyle().Foreground(c).Bold(true)
}

// Progress bars
var (
	ProgressFilled = lipgloss.NewStyle().
			Background(Secondary)

	ProgressWarn = lipgloss.NewStyle().
			Background(Error)

	ProgressEmpty = lipgloss.NewStyle().
			Background(Border)
)
