// Package agent runs chat turns end to end: it routes each message to a
// persona, lets the orchestrator pick a directive, runs any tool the
// directive calls for, asks the model for a reply, and persists the
// learner profile.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/abhisek/algotutor/internal/intent"
	"github.com/abhisek/algotutor/internal/llm"
	"github.com/abhisek/algotutor/internal/problems"
	"github.com/abhisek/algotutor/internal/sandbox"
	"github.com/abhisek/algotutor/internal/store"
	"github.com/abhisek/algotutor/internal/trace"
	"github.com/abhisek/algotutor/internal/tutor"
)

// Tool names reported in replies and traces.
const (
	ToolFetchProblem = "fetch_leetcode_problem"
	ToolExecuteCode  = "execute_python_code"
)

// NoResponse is returned when the model produces no text.
const NoResponse = "No response generated"

// ProblemFetcher supplies practice problems.
type ProblemFetcher interface {
	Random(ctx context.Context) (*problems.Problem, error)
}

// Deps are the collaborators a Tutor needs. Only Chat is required.
type Deps struct {
	Chat     llm.Provider
	Router   *intent.Router
	Problems ProblemFetcher
	Executor sandbox.Executor

	// Profiles persists learner profiles. Nil keeps them in memory only.
	Profiles store.ProfileRepo

	// Sink receives one trace per turn. Nil disables tracing.
	Sink trace.Sink

	Classifier tutor.WeaknessClassifier
}

// Reply is the outcome of one chat turn.
type Reply struct {
	Text      string              `json:"text"`
	Persona   tutor.Persona       `json:"persona"`
	Directive tutor.Directive     `json:"directive"`
	State     tutor.TeachingState `json:"state"`
	Skill     tutor.SkillModule   `json:"skill"`
	Tools     []string            `json:"tools,omitempty"`
}

// Tutor serves chat turns for any number of sessions. Turns of one session
// are serialised; distinct sessions proceed independently. The profile is
// read from the repository at the start of every turn, so tutors sharing a
// repository see each other's turns and resets. Turns of one session that
// run at the same moment on two tutors are last-writer-wins.
type Tutor struct {
	deps Deps
	cfg  Config

	mu        sync.Mutex
	sessions  map[string]*session
	lastSweep time.Time
}

type session struct {
	mu     sync.Mutex
	id     string
	userID string
	orch   *tutor.Orchestrator

	// unsaved is set when the last save failed; the cached profile is then
	// newer than the repository.
	unsaved bool

	// gone marks a session dropped from the map by Reset or idle eviction.
	// Whoever waited on mu must look the session up again.
	gone     bool
	lastUsed time.Time
}

// New returns a Tutor. Profiles defaults to an in-memory repository; a
// nil Router keeps every turn in the current persona.
func New(deps Deps, cfg Config) *Tutor {
	if deps.Profiles == nil {
		deps.Profiles = store.NewMemoryProfileRepo()
	}
	if deps.Router == nil {
		deps.Router = intent.NewRouter(nil)
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultConfig().HistoryLimit
	}
	if cfg.SessionIdleTTL <= 0 {
		cfg.SessionIdleTTL = DefaultConfig().SessionIdleTTL
	}
	return &Tutor{
		deps:     deps,
		cfg:      cfg,
		sessions: make(map[string]*session),
	}
}

// Chat runs one turn of sessionID for userInput.
func (t *Tutor) Chat(ctx context.Context, sessionID, userID, userInput string) (Reply, error) {
	s := t.acquire(sessionID)
	defer t.release(s)

	ctx = llm.WithSession(ctx, sessionID)
	if err := t.ensureLoaded(ctx, s, userID); err != nil {
		return Reply{}, err
	}

	var tr *trace.Tracer
	if t.deps.Sink != nil {
		tr = trace.New(sessionID)
	}
	defer t.flush(ctx, tr)

	tr.Log(trace.SessionStart, map[string]any{"session_id": sessionID, "user_id": s.userID})
	tr.Log(trace.UserInput, map[string]any{"input": userInput})

	o := s.orch
	t.route(ctx, o, userInput, tr)

	o.AnalyzeInteraction(userInput, lastAssistantReply(o.Profile()))

	before := o.State()
	directive := o.DetermineNextStep(userInput)
	if after := o.State(); after != before {
		tr.Log(trace.StateTransition, map[string]any{
			"from_state": string(before),
			"to_state":   string(after),
			"directive":  string(directive),
		})
	}
	systemPrompt := o.SystemPrompt()

	var (
		toolContext strings.Builder
		tools       []string
	)
	if directive == tutor.DirectiveFetchProblem {
		toolContext.WriteString(t.fetchProblem(ctx, o, directive, tr))
		tools = append(tools, ToolFetchProblem)
	}
	if code, ok := wantsExecution(userInput); ok && t.deps.Executor != nil {
		toolContext.WriteString(t.execute(ctx, code, tr))
		tools = append(tools, ToolExecuteCode)
	}

	message := fmt.Sprintf("%s\nUser: %s\nDirective: %s", toolContext.String(), userInput, directive)
	text, err := t.generate(ctx, o, systemPrompt, message, tr)
	if err != nil {
		tr.Log(trace.Error, map[string]any{"stage": "llm", "error": err.Error()})
		t.persist(ctx, s)
		return Reply{}, err
	}

	tr.Log(trace.AgentResponse, map[string]any{"response": trace.Preview(text, 200)})
	o.RecordExchange(userInput, text)
	t.persist(ctx, s)

	return Reply{
		Text:      text,
		Persona:   o.Persona(),
		Directive: directive,
		State:     o.State(),
		Skill:     o.Skill(),
		Tools:     tools,
	}, nil
}

// route asks the intent router which persona should answer and switches
// the teaching state accordingly.
func (t *Tutor) route(ctx context.Context, o *tutor.Orchestrator, userInput string, tr *trace.Tracer) {
	current := o.Persona()
	start := time.Now()
	d := t.deps.Router.Route(ctx, userInput, current)
	tr.LogTimed(trace.IntentRouting, map[string]any{
		"current_mode": string(current),
		"target_agent": string(d.Target),
		"reasoning":    d.Reasoning,
	}, time.Since(start))

	old := o.State()
	switch {
	case d.Target == tutor.PersonaInterviewer:
		o.SetState(tutor.StateInterviewMode)
	case d.Target == tutor.PersonaStudent:
		o.SetState(tutor.StateTeachingMode)
	case d.Target == tutor.PersonaTutor && current != tutor.PersonaTutor:
		o.SetState(tutor.StateGuidance)
	}
	if o.State() != old {
		tr.Log(trace.StateTransition, map[string]any{
			"from_state": string(old),
			"to_state":   string(o.State()),
		})
	}
}

func (t *Tutor) fetchProblem(ctx context.Context, o *tutor.Orchestrator, d tutor.Directive, tr *trace.Tracer) string {
	tr.Log(trace.ToolCall, map[string]any{"tool": ToolFetchProblem, "directive": string(d)})

	if t.deps.Problems == nil {
		payload := problems.ErrorJSON(fmt.Errorf("problem fetching is not configured"))
		tr.Log(trace.ToolResponse, map[string]any{"tool": ToolFetchProblem, "error": payload})
		return fmt.Sprintf("\n[System] Retrieved Problem: %s\n", payload)
	}

	start := time.Now()
	p, err := t.deps.Problems.Random(ctx)
	elapsed := time.Since(start)

	var payload string
	if err != nil {
		slog.WarnContext(ctx, "problem fetch failed", "error", err)
		payload = problems.ErrorJSON(fmt.Errorf("failed to fetch problem: %w", err))
		tr.Log(trace.Error, map[string]any{"stage": "tool", "tool": ToolFetchProblem, "error": err.Error()})
	} else {
		payload = p.JSON()
		o.Profile().SetCurrentProblem(payload)
	}

	tr.LogTimed(trace.ToolResponse, map[string]any{
		"tool":            ToolFetchProblem,
		"response_length": len(payload),
	}, elapsed)
	return fmt.Sprintf("\n[System] Retrieved Problem: %s\n", payload)
}

func (t *Tutor) execute(ctx context.Context, code string, tr *trace.Tracer) string {
	tr.Log(trace.ToolCall, map[string]any{"tool": ToolExecuteCode, "code_length": len(code)})

	start := time.Now()
	res := t.deps.Executor.Execute(ctx, code)
	payload := res.JSON()

	tr.LogTimed(trace.ToolResponse, map[string]any{
		"tool":            ToolExecuteCode,
		"success":         res.Success,
		"response_length": len(payload),
	}, time.Since(start))
	return fmt.Sprintf("\n[System] Code Execution Result: %s\n", payload)
}

func (t *Tutor) generate(ctx context.Context, o *tutor.Orchestrator, systemPrompt, message string, tr *trace.Tracer) (string, error) {
	msgs := t.historyMessages(o.Profile())
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: message})

	tr.Log(trace.LLMRequest, map[string]any{
		"message":     trace.Preview(message, 200),
		"instruction": trace.Preview(systemPrompt, 200),
		"history":     len(msgs) - 1,
	})

	ctx = llm.WithPurpose(ctx, llm.PurposeTutor)
	if t.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := t.deps.Chat.Generate(ctx, llm.Request{
		System:      systemPrompt,
		Messages:    msgs,
		MaxTokens:   t.cfg.MaxTokens,
		Temperature: t.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("generate reply: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	tr.LogTimed(trace.LLMResponse, map[string]any{
		"response_length":  len(text),
		"response_preview": trace.Preview(text, 200),
		"model":            resp.Model,
	}, time.Since(start))

	if text == "" {
		return NoResponse, nil
	}
	return text, nil
}

// historyMessages replays the most recent transcript entries.
func (t *Tutor) historyMessages(p *tutor.Profile) []llm.Message {
	history := p.History()
	if n := t.cfg.HistoryLimit; len(history) > n {
		history = history[len(history)-n:]
	}
	msgs := make([]llm.Message, 0, len(history)+1)
	for _, h := range history {
		role := llm.RoleUser
		if h.Role == "assistant" {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: h.Content})
	}
	return msgs
}

func lastAssistantReply(p *tutor.Profile) string {
	h := p.History()
	for i := len(h) - 1; i >= 0; i-- {
		if h[i].Role == "assistant" {
			return h[i].Content
		}
	}
	return ""
}

var runWordRe = regexp.MustCompile(`\b(run|execute)\b`)

// wantsExecution reports whether the user asked to run a fenced snippet.
func wantsExecution(input string) (string, bool) {
	if !runWordRe.MatchString(strings.ToLower(input)) {
		return "", false
	}
	return sandbox.ExtractCode(input)
}

// acquire returns the live session for id with its lock held.
func (t *Tutor) acquire(id string) *session {
	for {
		t.mu.Lock()
		t.sweepLocked(time.Now())
		s, ok := t.sessions[id]
		if !ok {
			s = &session{id: id}
			t.sessions[id] = s
		}
		t.mu.Unlock()

		s.mu.Lock()
		if !s.gone {
			return s
		}
		s.mu.Unlock()
	}
}

func (t *Tutor) release(s *session) {
	s.lastUsed = time.Now()
	s.mu.Unlock()
}

// sweepLocked drops sessions idle for longer than SessionIdleTTL. Their
// profiles are already in the repository. Called with t.mu held.
func (t *Tutor) sweepLocked(now time.Time) {
	ttl := t.cfg.SessionIdleTTL
	if now.Sub(t.lastSweep) < ttl/4 {
		return
	}
	t.lastSweep = now
	for id, s := range t.sessions {
		if !s.mu.TryLock() {
			continue
		}
		if !s.lastUsed.IsZero() && now.Sub(s.lastUsed) > ttl && !s.unsaved {
			s.gone = true
			delete(t.sessions, id)
		}
		s.mu.Unlock()
	}
}

// ensureLoaded reads the session's profile from the repository. A missing
// record starts a fresh profile, so a reset made elsewhere takes effect on
// the next turn. Called with s.mu held.
func (t *Tutor) ensureLoaded(ctx context.Context, s *session, userID string) error {
	if userID != "" {
		s.userID = userID
	}
	if s.orch != nil && s.unsaved {
		return nil
	}

	rec, err := t.deps.Profiles.Load(ctx, s.id)
	if err != nil {
		return fmt.Errorf("load profile %s: %w", s.id, err)
	}
	if rec == nil {
		s.orch = tutor.NewOrchestrator(t.deps.Classifier)
		return nil
	}

	if s.userID == "" {
		s.userID = rec.UserID
	}
	orch, err := decodeProfile(rec, t.deps.Classifier)
	if err != nil {
		slog.WarnContext(ctx, "discarding unreadable profile", "session_id", s.id, "error", err)
		orch = tutor.NewOrchestrator(t.deps.Classifier)
	}
	s.orch = orch
	return nil
}

func decodeProfile(rec *store.ProfileRecord, c tutor.WeaknessClassifier) (*tutor.Orchestrator, error) {
	var snap tutor.ProfileSnapshot
	if err := json.Unmarshal(rec.Data, &snap); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return tutor.RestoreOrchestrator(snap, c)
}

// persist saves the session profile. Failures are logged; a turn that was
// answered is not turned into an error by a storage hiccup.
func (t *Tutor) persist(ctx context.Context, s *session) {
	snap := s.orch.Snapshot()
	data, err := json.Marshal(snap)
	if err != nil {
		slog.ErrorContext(ctx, "encode profile", "session_id", s.id, "error", err)
		return
	}
	rec := store.ProfileRecord{
		SessionID: s.id,
		UserID:    s.userID,
		State:     snap.CurrentState,
		Data:      data,
		UpdatedAt: time.Now(),
	}
	if err := t.deps.Profiles.Save(context.WithoutCancel(ctx), rec); err != nil {
		slog.WarnContext(ctx, "save profile failed", "session_id", s.id, "error", err)
		s.unsaved = true
		return
	}
	s.unsaved = false
}

func (t *Tutor) flush(ctx context.Context, tr *trace.Tracer) {
	if tr == nil {
		return
	}
	if err := t.deps.Sink.Write(context.WithoutCancel(ctx), tr); err != nil {
		slog.WarnContext(ctx, "write trace failed", "session_id", tr.SessionID(), "error", err)
	}
}

// Profile returns the current snapshot of sessionID, from memory when the
// session has an unsaved profile or from the repository otherwise. It
// returns an error wrapping store.ErrNotFound for unknown sessions.
func (t *Tutor) Profile(ctx context.Context, sessionID string) (tutor.ProfileSnapshot, error) {
	t.mu.Lock()
	s, ok := t.sessions[sessionID]
	t.mu.Unlock()
	if ok {
		s.mu.Lock()
		if !s.gone && s.unsaved && s.orch != nil {
			snap := s.orch.Snapshot()
			s.mu.Unlock()
			return snap, nil
		}
		s.mu.Unlock()
	}

	rec, err := t.deps.Profiles.Load(ctx, sessionID)
	if err != nil {
		return tutor.ProfileSnapshot{}, fmt.Errorf("load profile %s: %w", sessionID, err)
	}
	if rec == nil {
		return tutor.ProfileSnapshot{}, fmt.Errorf("session %s: %w", sessionID, store.ErrNotFound)
	}
	var snap tutor.ProfileSnapshot
	if err := json.Unmarshal(rec.Data, &snap); err != nil {
		return tutor.ProfileSnapshot{}, fmt.Errorf("decode profile %s: %w", sessionID, err)
	}
	return snap, nil
}

// Reset forgets sessionID in memory and in the repository. The next turn
// starts from a fresh profile in INTAKE. The session stays locked until the
// record is gone, so a turn arriving meanwhile waits and then starts fresh.
func (t *Tutor) Reset(ctx context.Context, sessionID string) error {
	s := t.acquire(sessionID)
	defer s.mu.Unlock()

	err := t.deps.Profiles.Delete(ctx, sessionID)

	t.mu.Lock()
	s.gone = true
	if t.sessions[sessionID] == s {
		delete(t.sessions, sessionID)
	}
	t.mu.Unlock()

	if err != nil {
		return fmt.Errorf("reset session %s: %w", sessionID, err)
	}
	return nil
}
