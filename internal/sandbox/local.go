package sandbox

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// LocalExecutor runs code with the host Python interpreter in isolated
// mode (-I).
type LocalExecutor struct {
	Python  string
	Timeout time.Duration
}

// NewLocalExecutor returns an executor using python3 and DefaultTimeout.
func NewLocalExecutor() *LocalExecutor {
	return &LocalExecutor{Python: "python3", Timeout: DefaultTimeout}
}

func (e *LocalExecutor) Execute(ctx context.Context, code string) Result {
	if err := Check(ctx, code); err != nil {
		return violationResult(err)
	}

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	python := e.Python
	if python == "" {
		python = "python3"
	}
	// Read the program from stdin; a single argument is capped by the
	// kernel at 128KiB.
	cmd := exec.CommandContext(runCtx, python, "-I", "-")
	cmd.Stdin = strings.NewReader(guardProgram(code))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return timeoutResult(timeout)
	}

	if res, ok := parseGuardOutput(stdout.Bytes()); ok {
		slog.DebugContext(ctx, "sandbox run finished", "executor", "local",
			"success", res.Success, "duration", time.Since(start))
		return res
	}

	msg := "Process terminated unexpectedly."
	if err != nil {
		msg = strings.TrimSpace(msg + " " + strings.TrimSpace(stderr.String()))
		slog.WarnContext(ctx, "sandbox process failed", "executor", "local", "error", err)
	}
	return Result{Output: stdout.String(), Error: msg}
}
