package cmd

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/abhisek/algotutor/internal/agent"
	"github.com/abhisek/algotutor/internal/chatbot"
	"github.com/abhisek/algotutor/internal/tutor"
)

type echoTutor struct {
	inputs []string
}

func (e *echoTutor) Chat(_ context.Context, _, _, input string) (agent.Reply, error) {
	e.inputs = append(e.inputs, input)
	return agent.Reply{Text: "echo " + input, Persona: tutor.PersonaStudent}, nil
}

func (e *echoTutor) Profile(context.Context, string) (tutor.ProfileSnapshot, error) {
	return tutor.ProfileSnapshot{}, nil
}

func (e *echoTutor) Reset(context.Context, string) error { return nil }

func TestPlainLoop(t *testing.T) {
	et := &echoTutor{}
	in := strings.NewReader("hello\n\n  teach me  \nquit\nnever read\n")
	var out bytes.Buffer

	if err := plainLoop(context.Background(), chatbot.NewResponder(et), in, &out, "s", "u", nil); err != nil {
		t.Fatal(err)
	}
	if len(et.inputs) != 2 || et.inputs[1] != "teach me" {
		t.Fatalf("inputs = %q", et.inputs)
	}
	got := out.String()
	for _, want := range []string{"AlgoTutor Ready", "Student (Alex): echo hello", "Goodbye! Happy coding."} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestPlainLoopEOF(t *testing.T) {
	var out bytes.Buffer
	err := plainLoop(context.Background(), chatbot.NewResponder(&echoTutor{}), strings.NewReader("hi"), &out, "s", "u",
		func(s string) string { return "<" + s + ">" })
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "<Student (Alex): echo hi>") {
		t.Errorf("render not applied:\n%s", out.String())
	}
}

func TestPlainLoopCancelWhileWaitingForInput(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	var out bytes.Buffer
	done := make(chan error, 1)
	et := &echoTutor{}
	go func() {
		done <- plainLoop(ctx, chatbot.NewResponder(et), pr, &out, "s", "u", nil)
	}()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("plainLoop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("plainLoop did not return after cancel")
	}
	if len(et.inputs) != 0 {
		t.Fatalf("inputs = %q", et.inputs)
	}
	if !strings.Contains(out.String(), "Goodbye!") {
		t.Errorf("output missing goodbye:\n%s", out.String())
	}
}
