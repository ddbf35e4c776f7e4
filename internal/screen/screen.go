// Package screen defines what a TUI screen must provide to the router.
package screen

import (
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/algotutor/internal/ui/layout"
)

// Screen is one full-page view of the TUI.
type Screen interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Screen, tea.Cmd)

	// View renders the content area, excluding header and footer.
	View(width, height int) string

	// Title is shown in the header.
	Title() string
}

// KeyHintProvider lets a screen replace the default footer hints.
type KeyHintProvider interface {
	KeyHints() []layout.KeyHint
}

// StatusProvider lets a screen put a short status, such as the active
// persona, on the right of the header.
type StatusProvider interface {
	Status() string
}
