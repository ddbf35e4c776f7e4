// Package welcome is the splash screen shown before the chat opens.
package welcome

import (
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/algotutor/internal/router"
	"github.com/abhisek/algotutor/internal/screen"
	"github.com/abhisek/algotutor/internal/ui/theme"
)

const (
	tickInterval = 100 * time.Millisecond
	bannerAt     = 300 * time.Millisecond
	totalDur     = 1500 * time.Millisecond
)

const tagline = "Think first, code second."

// personas are revealed one at a time under the banner.
var personas = []string{
	"Tutor        guides you with hints, never full solutions",
	"Interviewer  runs a mock technical interview",
	"Student      lets you teach a concept to Alex",
}

type tickMsg time.Time

// WelcomeScreen plays a short intro and hands over to the chat on any key.
type WelcomeScreen struct {
	next         func() screen.Screen
	elapsed      time.Duration
	transitioned bool
}

var _ screen.Screen = (*WelcomeScreen)(nil)

// New returns a WelcomeScreen that replaces itself with next() on a key
// press.
func New(next func() screen.Screen) *WelcomeScreen {
	return &WelcomeScreen{next: next}
}

func (w *WelcomeScreen) Title() string { return "" }

func (w *WelcomeScreen) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (w *WelcomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg.(type) {
	case tickMsg:
		if w.elapsed >= totalDur {
			return w, nil
		}
		w.elapsed += tickInterval
		return w, tick()

	case tea.KeyPressMsg:
		return w, w.transition()
	}
	return w, nil
}

func (w *WelcomeScreen) transition() tea.Cmd {
	if w.transitioned {
		return nil
	}
	w.transitioned = true
	next := w.next()
	return func() tea.Msg {
		return router.ReplaceScreenMsg{Screen: next}
	}
}

// revealed returns how many persona lines are visible.
func (w *WelcomeScreen) revealed() int {
	if w.elapsed < bannerAt {
		return 0
	}
	step := (totalDur - bannerAt) / time.Duration(len(personas))
	return min(int((w.elapsed-bannerAt)/step)+1, len(personas))
}

func (w *WelcomeScreen) View(width, height int) string {
	sections := []string{RenderBanner(width), ""}

	if w.elapsed >= bannerAt {
		sections = append(sections, theme.Body.Bold(true).Render(tagline), "")
		for _, p := range personas[:w.revealed()] {
			sections = append(sections, theme.Hint.Italic(false).Render(p))
		}
	}
	if w.elapsed >= totalDur {
		sections = append(sections, "", theme.Hint.Render("press any key to start"))
	}

	content := lipgloss.NewStyle().Align(lipgloss.Left).Render(strings.Join(sections, "\n"))
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}
