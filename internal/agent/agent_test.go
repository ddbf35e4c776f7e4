package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/abhisek/algotutor/internal/intent"
	"github.com/abhisek/algotutor/internal/llm"
	"github.com/abhisek/algotutor/internal/problems"
	"github.com/abhisek/algotutor/internal/sandbox"
	"github.com/abhisek/algotutor/internal/store"
	"github.com/abhisek/algotutor/internal/trace"
	"github.com/abhisek/algotutor/internal/tutor"
)

type fakeProblems struct {
	p   *problems.Problem
	err error
	n   int
}

func (f *fakeProblems) Random(context.Context) (*problems.Problem, error) {
	f.n++
	return f.p, f.err
}

type fakeExecutor struct {
	code string
}

func (f *fakeExecutor) Execute(_ context.Context, code string) sandbox.Result {
	f.code = code
	return sandbox.Result{Success: true, Output: "5\n"}
}

type recordingSink struct {
	mu     sync.Mutex
	traces []*trace.Tracer
}

func (r *recordingSink) Write(_ context.Context, t *trace.Tracer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.traces = append(r.traces, t)
	return nil
}

func text(s string) llm.MockResponse {
	return llm.MockResponse{Content: s}
}

func route(target tutor.Persona) llm.MockResponse {
	return text(fmt.Sprintf(`{"target_agent":%q,"reasoning":"test"}`, target))
}

type fixture struct {
	tutor    *Tutor
	chat     *llm.MockProvider
	router   *llm.MockProvider
	problems *fakeProblems
	repo     *store.MemoryProfileRepo
	sink     *recordingSink
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		chat:   llm.NewMockProvider(),
		router: llm.NewMockProvider(),
		problems: &fakeProblems{p: &problems.Problem{
			Title: "Two Sum", Slug: "two-sum", Difficulty: problems.Easy,
			Categories: []string{"Array"}, Hints: []string{}, Constraints: "See description",
		}},
		repo: store.NewMemoryProfileRepo(),
		sink: &recordingSink{},
	}
	f.tutor = New(Deps{
		Chat:     f.chat,
		Router:   intent.NewRouter(f.router),
		Problems: f.problems,
		Profiles: f.repo,
		Sink:     f.sink,
	}, cfg)
	return f
}

func TestChat_Greeting(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.router.AddResponse(route(tutor.PersonaTutor))
	f.chat.AddResponse(text("Hello! Ready to practice?"))

	reply, err := f.tutor.Chat(context.Background(), "s1", "alice", "Hi there")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Text != "Hello! Ready to practice?" {
		t.Errorf("text = %q", reply.Text)
	}
	if reply.Directive != tutor.DirectiveGreeting || reply.State != tutor.StateIntake {
		t.Errorf("got directive %s state %s", reply.Directive, reply.State)
	}
	if reply.Persona != tutor.PersonaTutor {
		t.Errorf("persona = %s", reply.Persona)
	}

	req := f.chat.Calls[0]
	if !strings.Contains(req.System, "Current Phase: INTAKE") {
		t.Errorf("system prompt missing phase:\n%s", req.System)
	}
	last := req.Messages[len(req.Messages)-1].Content
	if last != "\nUser: Hi there\nDirective: GREETING" {
		t.Errorf("message = %q", last)
	}
}

func TestChat_FetchProblem(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.chat.AddResponse(text("Here's a problem for you."))

	reply, err := f.tutor.Chat(context.Background(), "s1", "alice", "Let's start with a problem")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Directive != tutor.DirectiveFetchProblem || reply.State != tutor.StateAssessment {
		t.Fatalf("got directive %s state %s", reply.Directive, reply.State)
	}
	if len(reply.Tools) != 1 || reply.Tools[0] != ToolFetchProblem {
		t.Errorf("tools = %v", reply.Tools)
	}
	if f.problems.n != 1 {
		t.Errorf("problem fetched %d times", f.problems.n)
	}

	msg := f.chat.Calls[0].Messages[0].Content
	if !strings.HasPrefix(msg, "\n[System] Retrieved Problem: {") {
		t.Errorf("message should start with problem context:\n%s", msg)
	}
	if !strings.HasSuffix(msg, "\nUser: Let's start with a problem\nDirective: FETCH_PROBLEM") {
		t.Errorf("unexpected message tail:\n%s", msg)
	}

	snap, err := f.tutor.Profile(context.Background(), "s1")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(snap.CurrentProblem, `"title": "Two Sum"`) {
		t.Errorf("current problem = %q", snap.CurrentProblem)
	}
}

func TestChat_FetchProblemFailureStillAnswers(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.problems.err = errors.New("leetcode down")
	f.chat.AddResponse(text("Let me try again later."))

	reply, err := f.tutor.Chat(context.Background(), "s1", "", "start")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Text == "" {
		t.Fatal("expected a reply")
	}
	msg := f.chat.Calls[0].Messages[0].Content
	if !strings.Contains(msg, `{"error":"failed to fetch problem: leetcode down"}`) {
		t.Errorf("message should carry the error payload:\n%s", msg)
	}
	snap, _ := f.tutor.Profile(context.Background(), "s1")
	if snap.CurrentProblem != "" {
		t.Errorf("failed fetch should not set a current problem, got %q", snap.CurrentProblem)
	}
}

func TestChat_RouterSwitchesPersona(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.router.AddResponse(route(tutor.PersonaInterviewer))
	f.chat.AddResponse(text("Let's begin. Tell me about yourself."))

	reply, err := f.tutor.Chat(context.Background(), "s1", "", "can we do a mock interview")
	if err != nil {
		t.Fatal(err)
	}
	if reply.State != tutor.StateInterviewMode || reply.Persona != tutor.PersonaInterviewer {
		t.Fatalf("got state %s persona %s", reply.State, reply.Persona)
	}
	if reply.Directive != tutor.DirectiveInterviewInteraction {
		t.Errorf("directive = %s", reply.Directive)
	}
	if !strings.Contains(f.chat.Calls[0].System, "Senior Software Engineer") {
		t.Error("system prompt should use the interviewer persona")
	}

	// Router says TUTOR while interviewing: back to guidance.
	f.router.AddResponse(route(tutor.PersonaTutor))
	f.chat.AddResponse(text("Sure, let's work through it together."))
	reply, err = f.tutor.Chat(context.Background(), "s1", "", "can you explain this instead")
	if err != nil {
		t.Fatal(err)
	}
	if reply.State != tutor.StateGuidance || reply.Persona != tutor.PersonaTutor {
		t.Fatalf("got state %s persona %s", reply.State, reply.Persona)
	}
}

func TestChat_RouterFailureKeepsState(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.router.AddResponse(llm.MockResponse{Err: errors.New("quota")})
	f.chat.AddResponse(text("Hi!"))

	reply, err := f.tutor.Chat(context.Background(), "s1", "", "hello")
	if err != nil {
		t.Fatal(err)
	}
	if reply.State != tutor.StateIntake {
		t.Fatalf("state = %s", reply.State)
	}
}

func TestChat_EmptyReply(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.chat.AddResponse(text("   "))

	reply, err := f.tutor.Chat(context.Background(), "s1", "", "hi")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Text != NoResponse {
		t.Fatalf("text = %q", reply.Text)
	}
}

func TestChat_ProviderError(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.chat.AddResponse(llm.MockResponse{Err: errors.New("boom")})

	if _, err := f.tutor.Chat(context.Background(), "s1", "", "start a problem"); err == nil {
		t.Fatal("expected error")
	}

	// State changes made before the failure are kept and persisted.
	rec, err := f.repo.Load(context.Background(), "s1")
	if err != nil || rec == nil {
		t.Fatalf("profile not persisted: %v", err)
	}
	if rec.State != string(tutor.StateAssessment) {
		t.Errorf("state = %s", rec.State)
	}

	if len(f.sink.traces) != 1 {
		t.Fatalf("traces = %d", len(f.sink.traces))
	}
	events := f.sink.traces[0].Events()
	if events[len(events)-1].Type != trace.Error {
		t.Errorf("last event = %s, want error", events[len(events)-1].Type)
	}
}

func TestChat_HistoryReplay(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HistoryLimit = 2
	f := newFixture(t, cfg)
	for i := 0; i < 3; i++ {
		f.chat.AddResponse(text(fmt.Sprintf("reply %d", i)))
	}

	ctx := context.Background()
	for _, in := range []string{"hi", "hello again", "and again"} {
		if _, err := f.tutor.Chat(ctx, "s1", "", in); err != nil {
			t.Fatal(err)
		}
	}

	if got := len(f.chat.Calls[0].Messages); got != 1 {
		t.Errorf("first turn messages = %d, want 1", got)
	}
	third := f.chat.Calls[2].Messages
	if len(third) != 3 {
		t.Fatalf("third turn messages = %d, want 3", len(third))
	}
	if third[0].Role != llm.RoleUser || third[0].Content != "hello again" {
		t.Errorf("oldest replayed message = %+v", third[0])
	}
	if third[1].Role != llm.RoleAssistant || third[1].Content != "reply 1" {
		t.Errorf("replayed reply = %+v", third[1])
	}
}

func TestChat_ExecutesCode(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	exec := &fakeExecutor{}
	f.tutor.deps.Executor = exec
	f.chat.AddResponse(text("Your function prints 5."))

	input := "please run this:\n```python\nprint(2 + 3)\n```"
	reply, err := f.tutor.Chat(context.Background(), "s1", "", input)
	if err != nil {
		t.Fatal(err)
	}
	if exec.code != "print(2 + 3)" {
		t.Errorf("executed %q", exec.code)
	}
	if len(reply.Tools) != 1 || reply.Tools[0] != ToolExecuteCode {
		t.Errorf("tools = %v", reply.Tools)
	}
	msg := f.chat.Calls[0].Messages[0].Content
	if !strings.Contains(msg, `[System] Code Execution Result: {"success":true,"output":"5\n"}`) {
		t.Errorf("missing execution context:\n%s", msg)
	}
}

func TestChat_CodeWithoutRunRequestIsNotExecuted(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	exec := &fakeExecutor{}
	f.tutor.deps.Executor = exec
	f.chat.AddResponse(text("Looks fine."))

	if _, err := f.tutor.Chat(context.Background(), "s1", "", "is this right?\n```python\nx = 1\n```"); err != nil {
		t.Fatal(err)
	}
	if exec.code != "" {
		t.Error("code should not run without an explicit request")
	}
}

func TestChat_PersistsAndRestores(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.chat.AddResponse(text("Here you go."))
	ctx := context.Background()

	if _, err := f.tutor.Chat(ctx, "s1", "alice", "give me a problem"); err != nil {
		t.Fatal(err)
	}

	rec, err := f.repo.Load(ctx, "s1")
	if err != nil || rec == nil {
		t.Fatalf("not persisted: %v", err)
	}
	if rec.UserID != "alice" || rec.State != string(tutor.StateAssessment) {
		t.Errorf("record = %+v", rec)
	}

	// A second tutor sharing the repository resumes the session.
	chat := llm.NewMockProvider(text("What constraints matter here?"))
	resumed := New(Deps{Chat: chat, Profiles: f.repo}, DefaultConfig())
	reply, err := resumed.Chat(ctx, "s1", "", "what is the input size?")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Directive != tutor.DirectiveClarifyConstraint {
		t.Errorf("directive = %s, want CLARIFY_CONSTRAINT", reply.Directive)
	}
	if len(chat.Calls[0].Messages) != 3 {
		t.Errorf("restored history not replayed: %d messages", len(chat.Calls[0].Messages))
	}
}

func TestReset(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.chat.AddResponse(text("ok"))
	ctx := context.Background()

	if _, err := f.tutor.Chat(ctx, "s1", "", "start"); err != nil {
		t.Fatal(err)
	}
	if err := f.tutor.Reset(ctx, "s1"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.tutor.Profile(ctx, "s1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after reset, got %v", err)
	}

	f.chat.AddResponse(text("welcome"))
	reply, err := f.tutor.Chat(ctx, "s1", "", "hi")
	if err != nil {
		t.Fatal(err)
	}
	if reply.State != tutor.StateIntake {
		t.Errorf("state after reset = %s", reply.State)
	}
}

func TestProfile_Unknown(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	if _, err := f.tutor.Profile(context.Background(), "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestChat_TraceEvents(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.router.AddResponse(route(tutor.PersonaTutor))
	f.chat.AddResponse(text("problem time"))

	if _, err := f.tutor.Chat(context.Background(), "s1", "", "start"); err != nil {
		t.Fatal(err)
	}
	if len(f.sink.traces) != 1 {
		t.Fatalf("traces = %d", len(f.sink.traces))
	}

	var types []string
	for _, e := range f.sink.traces[0].Events() {
		types = append(types, string(e.Type))
	}
	want := []string{
		"session_start", "user_input", "intent_routing", "state_transition",
		"tool_call", "tool_response", "llm_request", "llm_response", "agent_response",
	}
	if strings.Join(types, ",") != strings.Join(want, ",") {
		t.Fatalf("events = %v\nwant   %v", types, want)
	}
	if got := f.sink.traces[0].Tools(); len(got) != 1 || got[0] != ToolFetchProblem {
		t.Errorf("trace tools = %v", got)
	}
}

// threadSafeRouter answers every routing call with TUTOR.
type threadSafeRouter struct{}

func (threadSafeRouter) Generate(context.Context, llm.Request) (*llm.Response, error) {
	return &llm.Response{Content: `{"target_agent":"TUTOR","reasoning":"ok"}`}, nil
}

func (threadSafeRouter) ModelID() string { return "router" }

type echoProvider struct{}

func (echoProvider) Generate(_ context.Context, req llm.Request) (*llm.Response, error) {
	return &llm.Response{Content: req.Messages[len(req.Messages)-1].Content}, nil
}

func (echoProvider) ModelID() string { return "echo" }

func TestChat_ConcurrentSessions(t *testing.T) {
	tut := New(Deps{
		Chat:   echoProvider{},
		Router: intent.NewRouter(threadSafeRouter{}),
	}, DefaultConfig())

	const sessions, turns = 8, 5
	var wg sync.WaitGroup
	for i := 0; i < sessions; i++ {
		for j := 0; j < turns; j++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				if _, err := tut.Chat(context.Background(), id, "", "hello"); err != nil {
					t.Error(err)
				}
			}(fmt.Sprintf("s%d", i))
		}
	}
	wg.Wait()

	for i := 0; i < sessions; i++ {
		snap, err := tut.Profile(context.Background(), fmt.Sprintf("s%d", i))
		if err != nil {
			t.Fatal(err)
		}
		if len(snap.History) != 2*turns {
			t.Errorf("session s%d history = %d, want %d", i, len(snap.History), 2*turns)
		}
	}
}

func TestChat_SharedRepositorySeesResetFromOtherTutor(t *testing.T) {
	repo := store.NewMemoryProfileRepo()
	chatA := llm.NewMockProvider(text("Here you go."), text("welcome back"))
	a := New(Deps{Chat: chatA, Profiles: repo}, DefaultConfig())
	b := New(Deps{Chat: llm.NewMockProvider(), Profiles: repo}, DefaultConfig())
	ctx := context.Background()

	if _, err := a.Chat(ctx, "s1", "", "give me a problem"); err != nil {
		t.Fatal(err)
	}
	if err := b.Reset(ctx, "s1"); err != nil {
		t.Fatal(err)
	}

	reply, err := a.Chat(ctx, "s1", "", "hi")
	if err != nil {
		t.Fatal(err)
	}
	if reply.State != tutor.StateIntake {
		t.Errorf("state = %s, want INTAKE after reset elsewhere", reply.State)
	}
	if n := len(chatA.Calls[1].Messages); n != 1 {
		t.Errorf("history survived reset: %d messages", n)
	}
}

func TestChat_SharedRepositorySeesTurnsFromOtherTutor(t *testing.T) {
	repo := store.NewMemoryProfileRepo()
	a := New(Deps{Chat: llm.NewMockProvider(text("one"), text("three")), Profiles: repo}, DefaultConfig())
	b := New(Deps{Chat: llm.NewMockProvider(text("two")), Profiles: repo}, DefaultConfig())
	ctx := context.Background()

	for _, turn := range []struct {
		tut   *Tutor
		input string
	}{{a, "hello"}, {b, "hello again"}, {a, "still here"}} {
		if _, err := turn.tut.Chat(ctx, "s1", "", turn.input); err != nil {
			t.Fatal(err)
		}
	}

	snap, err := b.Profile(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.History) != 6 {
		t.Fatalf("history = %d, want 6", len(snap.History))
	}
	if snap.History[2].Content != "hello again" || snap.History[5].Content != "three" {
		t.Errorf("history = %+v", snap.History)
	}
}

// gatedDeleteRepo blocks Delete until released.
type gatedDeleteRepo struct {
	*store.MemoryProfileRepo
	entered chan struct{}
	release chan struct{}
}

func (g *gatedDeleteRepo) Delete(ctx context.Context, sessionID string) error {
	close(g.entered)
	<-g.release
	return g.MemoryProfileRepo.Delete(ctx, sessionID)
}

func TestReset_TurnDuringDeleteStartsFresh(t *testing.T) {
	repo := &gatedDeleteRepo{
		MemoryProfileRepo: store.NewMemoryProfileRepo(),
		entered:           make(chan struct{}),
		release:           make(chan struct{}),
	}
	tut := New(Deps{Chat: llm.NewMockProvider(text("Here you go."), text("welcome")), Profiles: repo}, DefaultConfig())
	ctx := context.Background()

	if _, err := tut.Chat(ctx, "s1", "", "give me a problem"); err != nil {
		t.Fatal(err)
	}

	resetDone := make(chan error, 1)
	go func() { resetDone <- tut.Reset(ctx, "s1") }()
	<-repo.entered

	type result struct {
		reply Reply
		err   error
	}
	chatDone := make(chan result, 1)
	go func() {
		r, err := tut.Chat(ctx, "s1", "", "hi")
		chatDone <- result{r, err}
	}()

	close(repo.release)
	if err := <-resetDone; err != nil {
		t.Fatal(err)
	}
	res := <-chatDone
	if res.err != nil {
		t.Fatal(res.err)
	}
	if res.reply.State != tutor.StateIntake {
		t.Errorf("state = %s, want INTAKE", res.reply.State)
	}
	rec, err := repo.Load(ctx, "s1")
	if err != nil || rec == nil {
		t.Fatalf("load: %v", err)
	}
	if rec.State != string(tutor.StateIntake) {
		t.Errorf("stored state = %s, want INTAKE", rec.State)
	}
}

func TestChat_IdleSessionsAreEvicted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SessionIdleTTL = time.Millisecond
	tut := New(Deps{Chat: echoProvider{}}, cfg)
	ctx := context.Background()

	if _, err := tut.Chat(ctx, "s1", "", "hello"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := tut.Chat(ctx, "s2", "", "hello"); err != nil {
		t.Fatal(err)
	}

	tut.mu.Lock()
	_, cached := tut.sessions["s1"]
	n := len(tut.sessions)
	tut.mu.Unlock()
	if cached || n != 1 {
		t.Errorf("s1 cached = %v, sessions = %d", cached, n)
	}

	snap, err := tut.Profile(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.History) != 2 {
		t.Errorf("evicted session lost history: %d", len(snap.History))
	}
}
