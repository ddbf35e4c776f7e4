// Package chatbot holds the transport-neutral part of the chat frontends:
// command handling, reply formatting and message splitting.
package chatbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/abhisek/algotutor/internal/agent"
	"github.com/abhisek/algotutor/internal/store"
	"github.com/abhisek/algotutor/internal/tutor"
)

const welcome = "Hi! I'm your DSA tutor. Tell me what you'd like to practise, " +
	"ask me to interview you, or offer to teach me a concept.\n\n" +
	"Commands: /reset clears your progress, /profile shows what I know about you."

// Tutor is the agent surface the bots use.
type Tutor interface {
	Chat(ctx context.Context, sessionID, userID, input string) (agent.Reply, error)
	Profile(ctx context.Context, sessionID string) (tutor.ProfileSnapshot, error)
	Reset(ctx context.Context, sessionID string) error
}

// Responder turns an incoming chat message into the text to send back.
type Responder struct {
	tutor Tutor
}

// NewResponder returns a Responder for t.
func NewResponder(t Tutor) *Responder {
	return &Responder{tutor: t}
}

// Respond handles one message. Commands start with "/" or "!"; anything
// else is a tutor turn. Errors are reported as text, never returned.
func (r *Responder) Respond(ctx context.Context, sessionID, userID, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	switch command(text) {
	case "start", "help":
		return welcome
	case "reset":
		if err := r.tutor.Reset(ctx, sessionID); err != nil {
			slog.ErrorContext(ctx, "reset failed", "session_id", sessionID, "error", err)
			return "Sorry, I couldn't reset your progress."
		}
		return "Progress cleared. Say hi to start again."
	case "profile":
		return r.profile(ctx, sessionID)
	}

	reply, err := r.tutor.Chat(ctx, sessionID, userID, text)
	if err != nil {
		slog.ErrorContext(ctx, "chat failed", "session_id", sessionID, "error", err)
		return "Sorry, I ran into a problem answering that. Please try again."
	}
	return FormatReply(reply)
}

func (r *Responder) profile(ctx context.Context, sessionID string) string {
	snap, err := r.tutor.Profile(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return "We haven't talked yet. Say hi!"
	}
	if err != nil {
		slog.ErrorContext(ctx, "load profile failed", "session_id", sessionID, "error", err)
		return "Sorry, I couldn't load your profile."
	}
	return FormatProfile(snap)
}

// command returns the lower-cased command name of text, or "" when text is
// not a command. "/reset@algotutor_bot" yields "reset".
func command(text string) string {
	if !strings.HasPrefix(text, "/") && !strings.HasPrefix(text, "!") {
		return ""
	}
	name := strings.Fields(text[1:])
	if len(name) == 0 {
		return ""
	}
	cmd, _, _ := strings.Cut(name[0], "@")
	return strings.ToLower(cmd)
}

// FormatReply prefixes the reply with the persona speaking.
func FormatReply(r agent.Reply) string {
	return fmt.Sprintf("%s: %s", r.Persona.Label(), r.Text)
}

// FormatProfile renders a short plain-text profile summary.
func FormatProfile(s tutor.ProfileSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "State: %s\nSkill: %s\nExchanges: %d\n", s.CurrentState, s.CurrentSkill, len(s.History))

	if len(s.Weaknesses) == 0 {
		b.WriteString("Weaknesses: none recorded")
	} else {
		keys := make([]string, 0, len(s.Weaknesses))
		for k := range s.Weaknesses {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			if s.Weaknesses[keys[i]] != s.Weaknesses[keys[j]] {
				return s.Weaknesses[keys[i]] > s.Weaknesses[keys[j]]
			}
			return keys[i] < keys[j]
		})
		b.WriteString("Weaknesses:")
		for _, k := range keys {
			fmt.Fprintf(&b, "\n- %s (%d)", k, s.Weaknesses[k])
		}
	}
	if s.CurrentProblem != "" {
		b.WriteString("\nWorking on a problem: yes")
	}
	return b.String()
}

// Split breaks text into chunks of at most limit runes, preferring to cut
// at newlines, then spaces.
func Split(text string, limit int) []string {
	if limit <= 0 {
		return []string{text}
	}
	var chunks []string
	rest := []rune(text)
	for len(rest) > limit {
		cut := lastIndex(rest[:limit], '\n')
		if cut <= 0 {
			cut = lastIndex(rest[:limit], ' ')
		}
		if cut <= 0 {
			cut = limit
		}
		chunks = append(chunks, strings.TrimRight(string(rest[:cut]), " \n"))
		rest = []rune(strings.TrimLeft(string(rest[cut:]), " \n"))
	}
	if len(rest) > 0 {
		chunks = append(chunks, string(rest))
	}
	return chunks
}

func lastIndex(rs []rune, r rune) int {
	for i := len(rs) - 1; i >= 0; i-- {
		if rs[i] == r {
			return i
		}
	}
	return -1
}
