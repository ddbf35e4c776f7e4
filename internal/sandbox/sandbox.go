// Package sandbox runs student Python snippets with a deny-list of imports
// and builtins, a wall-clock timeout and, optionally, inside a throwaway
// Docker container. Isolation is best effort; it is not a security
// boundary.
package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DefaultTimeout bounds a single execution.
const DefaultTimeout = 5 * time.Second

// BannedImports are top-level modules student code may not import.
var BannedImports = []string{
	"os", "sys", "subprocess", "shutil", "net", "socket", "urllib",
	"requests", "http", "pickle", "importlib", "inspect",
}

// BannedBuiltins are removed from the builtins visible to student code.
// __import__ is replaced by a guarded version rather than removed.
var BannedBuiltins = []string{"open", "exec", "eval", "input", "exit", "quit"}

// ErrBannedImport matches any *ImportViolation.
var ErrBannedImport = errors.New("banned import")

// ImportViolation reports a banned module found before execution.
type ImportViolation struct {
	Module string
}

func (v *ImportViolation) Error() string {
	return fmt.Sprintf("Security Violation: Import of '%s' is not allowed.", v.Module)
}

func (v *ImportViolation) Is(target error) bool { return target == ErrBannedImport }

// Result is the outcome of one execution.
type Result struct {
	Success   bool   `json:"success"`
	Output    string `json:"output"`
	Error     string `json:"error,omitempty"`
	ErrorType string `json:"error_type,omitempty"`
}

// JSON renders r for inclusion in a prompt.
func (r Result) JSON() string {
	b, _ := json.Marshal(r)
	return string(b)
}

// Executor runs Python source and reports what happened. Failures of the
// student program are reported in the Result, never as a Go error.
type Executor interface {
	Execute(ctx context.Context, code string) Result
}

func timeoutResult(d time.Duration) Result {
	return Result{Error: fmt.Sprintf("Execution timed out after %g seconds.", d.Seconds())}
}

func violationResult(err error) Result {
	return Result{Error: err.Error(), ErrorType: "SecurityViolation"}
}

var fenceRe = regexp.MustCompile("(?s)```(?:python|py)?[ \t]*\n(.*?)```")

// ExtractCode returns the first fenced code block in message.
func ExtractCode(message string) (string, bool) {
	m := fenceRe.FindStringSubmatch(message)
	if m == nil {
		return "", false
	}
	code := strings.TrimSpace(m[1])
	return code, code != ""
}
