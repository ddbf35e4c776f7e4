// Package chat is the main TUI screen: a scrolling transcript with the
// prompt underneath.
package chat

import (
	"context"
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/algotutor/internal/agent"
	"github.com/abhisek/algotutor/internal/router"
	"github.com/abhisek/algotutor/internal/screen"
	"github.com/abhisek/algotutor/internal/screens/profile"
	"github.com/abhisek/algotutor/internal/tutor"
	"github.com/abhisek/algotutor/internal/ui/components"
	"github.com/abhisek/algotutor/internal/ui/layout"
)

// Tutor is what the chat screen needs from the agent.
type Tutor interface {
	Chat(ctx context.Context, sessionID, userID, input string) (agent.Reply, error)
	Profile(ctx context.Context, sessionID string) (tutor.ProfileSnapshot, error)
	Reset(ctx context.Context, sessionID string) error
}

type entryKind int

const (
	entryUser entryKind = iota
	entryTutor
	entryNotice
)

// entry is one block of the transcript. rendered caches the markdown
// output for renderedWidth.
type entry struct {
	kind          entryKind
	persona       tutor.Persona
	text          string
	rendered      string
	renderedWidth int
}

// ChatScreen implements screen.Screen for a tutoring conversation.
type ChatScreen struct {
	tutor     Tutor
	sessionID string
	userID    string

	input   components.TextInput
	md      components.Markdown
	entries []entry
	pending bool

	persona tutor.Persona
	state   tutor.TeachingState
	skill   tutor.SkillModule
}

var (
	_ screen.Screen          = (*ChatScreen)(nil)
	_ screen.KeyHintProvider = (*ChatScreen)(nil)
	_ screen.StatusProvider  = (*ChatScreen)(nil)
)

// New returns a chat screen for sessionID.
func New(t Tutor, sessionID, userID string) *ChatScreen {
	return &ChatScreen{
		tutor:     t,
		sessionID: sessionID,
		userID:    userID,
		input:     components.NewTextInput("Say hi, paste code, or ask to be interviewed...", 0),
		persona:   tutor.PersonaTutor,
		state:     tutor.StateIntake,
		entries: []entry{{
			kind: entryNotice,
			text: "Type a message and press Enter. \"exit\" or \"quit\" leaves.",
		}},
	}
}

func (s *ChatScreen) Init() tea.Cmd {
	return s.input.Init()
}

func (s *ChatScreen) Title() string { return "Chat" }

// Status shows who is speaking and where the conversation stands.
func (s *ChatScreen) Status() string {
	return s.persona.Label() + " · " + string(s.state)
}

func (s *ChatScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Send"},
		{Key: "Ctrl+P", Description: "Profile"},
		{Key: "Ctrl+R", Description: "Reset"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

func (s *ChatScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case replyMsg:
		return s.handleReply(msg)
	case resetDoneMsg:
		return s.handleReset(msg)
	case tea.KeyPressMsg:
		switch msg.String() {
		case "enter":
			return s.submit()
		case "ctrl+p":
			return s, s.openProfile()
		case "ctrl+r":
			if s.pending {
				return s, nil
			}
			s.pending = true
			s.input.SetDisabled(true)
			return s, s.reset()
		}
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *ChatScreen) submit() (screen.Screen, tea.Cmd) {
	if s.pending {
		return s, nil
	}
	text := s.input.Take()
	if text == "" {
		return s, nil
	}
	switch strings.ToLower(text) {
	case "exit", "quit":
		return s, tea.Quit
	}

	s.entries = append(s.entries, entry{kind: entryUser, text: text})
	s.pending = true
	s.input.SetDisabled(true)
	return s, s.send(text)
}

func (s *ChatScreen) send(text string) tea.Cmd {
	t, sessionID, userID := s.tutor, s.sessionID, s.userID
	return func() tea.Msg {
		reply, err := t.Chat(context.Background(), sessionID, userID, text)
		return replyMsg{Reply: reply, Err: err}
	}
}

func (s *ChatScreen) reset() tea.Cmd {
	t, sessionID := s.tutor, s.sessionID
	return func() tea.Msg {
		return resetDoneMsg{Err: t.Reset(context.Background(), sessionID)}
	}
}

func (s *ChatScreen) openProfile() tea.Cmd {
	p := profile.New(s.tutor, s.sessionID)
	return func() tea.Msg {
		return router.PushScreenMsg{Screen: p}
	}
}

func (s *ChatScreen) handleReply(msg replyMsg) (screen.Screen, tea.Cmd) {
	s.pending = false
	s.input.SetDisabled(false)

	if msg.Err != nil {
		s.entries = append(s.entries, entry{kind: entryNotice, text: "Error: " + msg.Err.Error()})
		return s, nil
	}
	r := msg.Reply
	s.persona, s.state, s.skill = r.Persona, r.State, r.Skill
	s.entries = append(s.entries, entry{kind: entryTutor, persona: r.Persona, text: r.Text})
	return s, nil
}

func (s *ChatScreen) handleReset(msg resetDoneMsg) (screen.Screen, tea.Cmd) {
	s.pending = false
	s.input.SetDisabled(false)
	if msg.Err != nil {
		s.entries = append(s.entries, entry{kind: entryNotice, text: "Reset failed: " + msg.Err.Error()})
		return s, nil
	}
	s.entries = []entry{{kind: entryNotice, text: "Progress cleared. Say hi to start again."}}
	s.persona, s.state, s.skill = tutor.PersonaTutor, tutor.StateIntake, ""
	return s, nil
}
