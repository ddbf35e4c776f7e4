// Package profile shows what the tutor has learned about the student.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/algotutor/internal/screen"
	"github.com/abhisek/algotutor/internal/store"
	"github.com/abhisek/algotutor/internal/tutor"
	"github.com/abhisek/algotutor/internal/ui/components"
	"github.com/abhisek/algotutor/internal/ui/layout"
	"github.com/abhisek/algotutor/internal/ui/theme"
)

// Source loads profile snapshots.
type Source interface {
	Profile(ctx context.Context, sessionID string) (tutor.ProfileSnapshot, error)
}

type loadedMsg struct {
	Snap tutor.ProfileSnapshot
	Err  error
}

// ProfileScreen renders a ProfileSnapshot.
type ProfileScreen struct {
	source    Source
	sessionID string
	snap      *tutor.ProfileSnapshot
	missing   bool
	errMsg    string
}

var (
	_ screen.Screen          = (*ProfileScreen)(nil)
	_ screen.KeyHintProvider = (*ProfileScreen)(nil)
)

func New(source Source, sessionID string) *ProfileScreen {
	return &ProfileScreen{source: source, sessionID: sessionID}
}

func (p *ProfileScreen) Title() string { return "Profile" }

func (p *ProfileScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "R", Description: "Refresh"},
		{Key: "Esc", Description: "Back"},
	}
}

func (p *ProfileScreen) Init() tea.Cmd {
	return p.load()
}

func (p *ProfileScreen) load() tea.Cmd {
	source, id := p.source, p.sessionID
	return func() tea.Msg {
		snap, err := source.Profile(context.Background(), id)
		return loadedMsg{Snap: snap, Err: err}
	}
}

func (p *ProfileScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		p.snap, p.missing, p.errMsg = nil, false, ""
		switch {
		case errors.Is(msg.Err, store.ErrNotFound):
			p.missing = true
		case msg.Err != nil:
			p.errMsg = msg.Err.Error()
		default:
			snap := msg.Snap
			p.snap = &snap
		}
	case tea.KeyPressMsg:
		if msg.String() == "r" {
			return p, p.load()
		}
	}
	return p, nil
}

func (p *ProfileScreen) View(width, height int) string {
	var body string
	switch {
	case p.errMsg != "":
		body = theme.ErrorText.Render("Could not load profile: " + p.errMsg)
	case p.missing:
		body = theme.Hint.Render("No conversation yet. Go back and say hi.")
	case p.snap == nil:
		body = theme.Hint.Render("Loading profile...")
	default:
		body = render(*p.snap, min(width-8, 72))
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Top,
		theme.Card.Render(body))
}

func render(s tutor.ProfileSnapshot, width int) string {
	var b strings.Builder

	state := tutor.TeachingState(s.CurrentState)
	fmt.Fprintf(&b, "%s  %s\n", theme.Title.Render("State"), state)
	fmt.Fprintf(&b, "%s  %s\n", theme.Title.Render("Persona"), tutor.PersonaForState(state).Label())
	fmt.Fprintf(&b, "%s  %s\n", theme.Title.Render("Skill"), s.CurrentSkill)
	fmt.Fprintf(&b, "%s  %d messages\n", theme.Title.Render("History"), len(s.History))
	if title := problemTitle(s.CurrentProblem); title != "" {
		fmt.Fprintf(&b, "%s  %s\n", theme.Title.Render("Problem"), title)
	}

	b.WriteString("\n" + theme.Title.Render("Weaknesses") + "\n")
	if len(s.Weaknesses) == 0 {
		b.WriteString(theme.Hint.Render("none recorded yet") + "\n")
	} else {
		keys, top := sortedByCount(s.Weaknesses)
		for _, k := range keys {
			bar := components.ProgressBar{
				Label:      k,
				LabelWidth: 22,
				Percent:    float64(s.Weaknesses[k]) / float64(top),
				Suffix:     fmt.Sprintf("%dx", s.Weaknesses[k]),
				Width:      width,
				Warn:       true,
			}
			b.WriteString(bar.View() + "\n")
		}
	}

	if len(s.MasteryLevels) > 0 {
		b.WriteString("\n" + theme.Title.Render("Mastery") + "\n")
		keys := make([]string, 0, len(s.MasteryLevels))
		for k := range s.MasteryLevels {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v := s.MasteryLevels[k]
			bar := components.ProgressBar{
				Label:      k,
				LabelWidth: 22,
				Percent:    v,
				Suffix:     fmt.Sprintf("%3d%%", int(v*100)),
				Width:      width,
			}
			b.WriteString(bar.View() + "\n")
		}
	}

	if len(s.Strengths) > 0 {
		b.WriteString("\n" + theme.Title.Render("Strengths") + "\n")
		b.WriteString(strings.Join(s.Strengths, ", ") + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// sortedByCount orders keys by descending count, then name, and returns
// the largest count.
func sortedByCount(m map[string]int) ([]string, int) {
	keys := make([]string, 0, len(m))
	top := 1
	for k, v := range m {
		keys = append(keys, k)
		top = max(top, v)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys, top
}

// problemTitle pulls the title out of a stored problem payload.
func problemTitle(raw string) string {
	if raw == "" {
		return ""
	}
	var p struct {
		Title      string `json:"title"`
		Difficulty string `json:"difficulty"`
	}
	if err := json.Unmarshal([]byte(raw), &p); err != nil || p.Title == "" {
		return ""
	}
	if p.Difficulty == "" {
		return p.Title
	}
	return fmt.Sprintf("%s (%s)", p.Title, p.Difficulty)
}
