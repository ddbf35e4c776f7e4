package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/abhisek/algotutor/internal/agent"
)

// Chatter is the tutor surface the evaluator drives.
type Chatter interface {
	Chat(ctx context.Context, sessionID, userID, input string) (agent.Reply, error)
}

// Scores holds the per-metric and weighted scores of one case.
type Scores struct {
	ResponseMatch  float64 `json:"response_match_score"`
	ToolTrajectory float64 `json:"tool_trajectory_score"`
	Socratic       float64 `json:"socratic_method_score"`
	Overall        float64 `json:"overall_score"`
}

// CaseResult is the outcome of one test case.
type CaseResult struct {
	TestCaseID        string   `json:"test_case_id"`
	TestCaseName      string   `json:"test_case_name"`
	Difficulty        string   `json:"difficulty"`
	Metrics           Scores   `json:"metrics"`
	Passed            bool     `json:"passed"`
	ResponseLength    int      `json:"response_length"`
	ToolsCalled       []string `json:"tools_called,omitempty"`
	AntiPatternsFound []string `json:"anti_patterns_found,omitempty"`
	Error             string   `json:"error,omitempty"`
}

// Summary aggregates a run.
type Summary struct {
	TestSuite    string       `json:"test_suite"`
	SessionID    string       `json:"session_id"`
	TotalTests   int          `json:"total_tests"`
	Passed       int          `json:"passed"`
	Failed       int          `json:"failed"`
	PassRate     float64      `json:"pass_rate"`
	AverageScore float64      `json:"average_score"`
	Results      []CaseResult `json:"results"`
}

// Evaluator runs an EvalSet against a tutor.
type Evaluator struct {
	cfg Config
	set EvalSet
	now func() time.Time
}

// New returns an Evaluator for cfg and set.
func New(cfg Config, set EvalSet) *Evaluator {
	return &Evaluator{cfg: cfg, set: set, now: time.Now}
}

// Run plays every test case, in order, within a single session so later
// cases see the state built up by earlier ones. A case whose chat fails
// scores zero.
func (e *Evaluator) Run(ctx context.Context, tutor Chatter) Summary {
	sessionID := "eval_" + e.now().Format("20060102_150405")
	weights := e.cfg.Weights()
	threshold := e.cfg.threshold()

	slog.InfoContext(ctx, "starting evaluation",
		"suite", e.cfg.TestSuite, "cases", len(e.set.TestCases), "session_id", sessionID)

	sum := Summary{TestSuite: e.cfg.TestSuite, SessionID: sessionID}
	total := 0.0
	for _, tc := range e.set.TestCases {
		r := e.runCase(ctx, tutor, sessionID, tc, weights)
		r.Passed = r.Error == "" && r.Metrics.Overall >= threshold
		if r.Passed {
			sum.Passed++
		}
		total += r.Metrics.Overall
		sum.Results = append(sum.Results, r)
	}

	sum.TotalTests = len(sum.Results)
	sum.Failed = sum.TotalTests - sum.Passed
	if sum.TotalTests > 0 {
		sum.PassRate = float64(sum.Passed) / float64(sum.TotalTests)
		sum.AverageScore = total / float64(sum.TotalTests)
	}

	slog.InfoContext(ctx, "evaluation complete",
		"total", sum.TotalTests, "passed", sum.Passed, "failed", sum.Failed,
		"pass_rate", fmt.Sprintf("%.1f%%", sum.PassRate*100),
		"average_score", fmt.Sprintf("%.2f", sum.AverageScore))
	return sum
}

func (e *Evaluator) runCase(ctx context.Context, tutor Chatter, sessionID string, tc TestCase, weights map[string]float64) CaseResult {
	r := CaseResult{TestCaseID: tc.ID, TestCaseName: tc.Name, Difficulty: tc.Difficulty}
	if r.Difficulty == "" {
		r.Difficulty = "unknown"
	}

	slog.InfoContext(ctx, "evaluating case", "id", tc.ID, "name", tc.Name)
	reply, err := tutor.Chat(ctx, sessionID, "evaluator", tc.Input)
	if err != nil {
		slog.ErrorContext(ctx, "case failed", "id", tc.ID, "error", err)
		r.Error = err.Error()
		return r
	}

	var found []string
	r.Metrics.ResponseMatch, found = ResponseMatch(reply.Text, tc)
	r.Metrics.ToolTrajectory = ToolTrajectory(reply.Tools, tc)
	r.Metrics.Socratic = SocraticMethod(reply.Text, tc)
	r.Metrics.Overall = r.Metrics.ResponseMatch*weights[MetricResponseMatch] +
		r.Metrics.ToolTrajectory*weights[MetricToolTrajectory] +
		r.Metrics.Socratic*weights[MetricSocratic]
	r.ResponseLength = len(reply.Text)
	r.ToolsCalled = reply.Tools
	r.AntiPatternsFound = found

	for _, p := range found {
		slog.WarnContext(ctx, "anti-pattern detected", "id", tc.ID, "pattern", p)
	}
	slog.DebugContext(ctx, "case scored", "id", tc.ID,
		"response_match", r.Metrics.ResponseMatch,
		"tool_trajectory", r.Metrics.ToolTrajectory,
		"socratic", r.Metrics.Socratic,
		"overall", r.Metrics.Overall)
	return r
}

// Save writes the summary to dir/results_<timestamp>.json and returns the
// path.
func (s Summary) Save(dir string, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create results dir: %w", err)
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal summary: %w", err)
	}
	path := filepath.Join(dir, "results_"+now.Format("20060102_150405")+".json")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
