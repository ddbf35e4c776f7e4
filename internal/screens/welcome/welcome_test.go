package welcome

import (
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/algotutor/internal/router"
	"github.com/abhisek/algotutor/internal/screen"
)

type stubScreen struct{}

func (s *stubScreen) Init() tea.Cmd                          { return nil }
func (s *stubScreen) Update(tea.Msg) (screen.Screen, tea.Cmd) { return s, nil }
func (s *stubScreen) View(int, int) string                   { return "chat" }
func (s *stubScreen) Title() string                          { return "Chat" }

func newTestWelcome() (*WelcomeScreen, *int) {
	calls := 0
	return New(func() screen.Screen {
		calls++
		return &stubScreen{}
	}), &calls
}

func sendTicks(w *WelcomeScreen, n int) tea.Cmd {
	var cmd tea.Cmd
	for i := 0; i < n; i++ {
		_, cmd = w.Update(tickMsg(time.Now()))
	}
	return cmd
}

func TestRevealSequence(t *testing.T) {
	w, _ := newTestWelcome()

	if strings.Contains(w.View(100, 30), tagline) {
		t.Error("tagline should not be visible before the banner delay")
	}

	sendTicks(w, 3)
	view := w.View(100, 30)
	if !strings.Contains(view, tagline) {
		t.Error("tagline should be visible after the banner delay")
	}
	if w.revealed() != 1 {
		t.Errorf("revealed = %d, want 1", w.revealed())
	}

	if cmd := sendTicks(w, 20); cmd != nil {
		t.Error("ticking should stop once the intro has finished")
	}
	if w.elapsed != totalDur {
		t.Errorf("elapsed = %v, want %v", w.elapsed, totalDur)
	}
	view = w.View(100, 30)
	if !strings.Contains(view, "press any key") || w.revealed() != len(personas) {
		t.Error("all personas and the key hint should be visible at the end")
	}
}

func TestKeypressReplacesWithNext(t *testing.T) {
	w, calls := newTestWelcome()
	sendTicks(w, 2)

	_, cmd := w.Update(tea.KeyPressMsg{Code: ' '})
	if cmd == nil {
		t.Fatal("key press should transition, even mid-intro")
	}
	msg, ok := cmd().(router.ReplaceScreenMsg)
	if !ok || msg.Screen == nil {
		t.Fatalf("expected ReplaceScreenMsg with a screen, got %#v", cmd())
	}
	if *calls != 1 {
		t.Errorf("next called %d times", *calls)
	}

	if _, cmd := w.Update(tea.KeyPressMsg{Code: 'x'}); cmd != nil {
		t.Error("second key press should do nothing")
	}
	if *calls != 1 {
		t.Errorf("next called %d times", *calls)
	}
}

func TestCompactBanner(t *testing.T) {
	if !strings.Contains(RenderBanner(40), bannerCompact) {
		t.Error("narrow terminals should get the compact banner")
	}
}
