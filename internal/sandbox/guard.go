package sandbox

import (
	"encoding/json"
	"fmt"
	"strings"
)

// guardTemplate wraps student code. It runs the code with a filtered
// builtins table and a guarded __import__, captures everything the code
// prints, and writes exactly one JSON Result line to the real stdout.
const guardTemplate = `import builtins as _b, contextlib as _cl, io as _io, json as _j, sys as _s

_banned_mods = set(%s)
_banned_builtins = set(%s)
_real_import = _b.__import__

def _guarded_import(name, globals=None, locals=None, fromlist=(), level=0):
    if level == 0 and name.split(".")[0] in _banned_mods:
        raise ImportError("Import of '%%s' is restricted for safety." %% name)
    return _real_import(name, globals, locals, fromlist, level)

_safe = {k: getattr(_b, k) for k in dir(_b) if k not in _banned_builtins}
_safe["__import__"] = _guarded_import
_code = %s
_buf = _io.StringIO()
_res = {"success": True, "output": ""}
try:
    with _cl.redirect_stdout(_buf), _cl.redirect_stderr(_buf):
        exec(compile(_code, "<student>", "exec"), {"__builtins__": _safe, "__name__": "__main__"})
except BaseException as _e:
    _res = {"success": False, "error": str(_e), "error_type": type(_e).__name__}
_res["output"] = _buf.getvalue()
_s.__stdout__.write("\n" + _j.dumps(_res) + "\n")
`

// guardProgram returns the Python program that executes code under the
// deny-lists.
func guardProgram(code string) string {
	return fmt.Sprintf(guardTemplate, pyList(BannedImports), pyList(BannedBuiltins), pyString(code))
}

// pyString renders s as a Python string literal. JSON string syntax is a
// subset of Python's.
func pyString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func pyList(items []string) string {
	quoted := make([]string, len(items))
	for i, it := range items {
		quoted[i] = pyString(it)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// parseGuardOutput decodes the result line written by the guard program.
func parseGuardOutput(stdout []byte) (Result, bool) {
	lines := strings.Split(strings.TrimRight(string(stdout), "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		var r Result
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			return Result{}, false
		}
		return r, true
	}
	return Result{}, false
}
