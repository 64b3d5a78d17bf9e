// Package sandbox implements the Code Sandbox (spec.md §4.2): executes an
// agent-emitted snippet in a persistent namespace shared across turns,
// captures stdout/stderr/log output, and annotates errors with per-line
// markers pointing at the magic source sentinel.
//
// Grounded on pkg/mcp/executor.go's subprocess dispatch + recovery idiom
// and lowkaihon-cli-coding-agent/tools/bash.go's os/exec + timeout +
// captured-output pattern. The snippet language is POSIX shell (bash):
// unlike the teacher's Python-hosted original, Go has no embeddable eval,
// so "code" here means a shell snippet run by a persistent bash process
// per agent session — variable assignments persist via a namespace file
// sourced before, and re-captured after, every execution.
package sandbox

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/codeready-toolchain/tarsy/pkg/tools"
)

// AgentGeneratedCodeSentinel is the magic source name preserved from the
// teacher so annotated error reports remain stable across implementations.
const AgentGeneratedCodeSentinel = "<agent_generated_code>"

// maxCapturedBytes bounds stdout/stderr/log capture to fit a context
// budget, per spec.md §4.2.
const maxCapturedBytes = 32 * 1024

// Result is the outcome of one Execute call.
type Result struct {
	Stdout  string
	Stderr  string
	Logging string
	Err     *ExecError
}

// ExecError annotates a failing snippet with its source and the failing
// line, attributed by walking the bash xtrace output back to the last
// line marker emitted before the process exited non-zero.
type ExecError struct {
	Message          string
	Snippet          string
	LineNumber       int // 1-based, 0 if not determined
	AnnotatedSnippet string
}

func (e *ExecError) Error() string { return e.Message }

// Sandbox owns one persistent bash namespace for one agent session.
// Execute calls are serialized (spec.md §5: stdout/stderr capture is
// process-wide-shaped here and must not interleave across concurrent
// executions in the same sandbox).
type Sandbox struct {
	mu          sync.Mutex
	workDir     string
	namespaceFile string
	registry    *tools.Registry
	timeout     time.Duration
}

// New creates a Sandbox rooted at workDir with an empty namespace. The
// tool registry is bound as the `tools` shell function inside every
// execution.
func New(workDir string, registry *tools.Registry, timeout time.Duration) *Sandbox {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Sandbox{
		workDir:       workDir,
		namespaceFile: filepath.Join(workDir, ".agent_namespace.env"),
		registry:      registry,
		timeout:       timeout,
	}
}

// Execute runs one snippet. The namespace persists across calls:
// assignments made by this call are available to the next one. Execution
// errors are never fatal to the sandbox — the namespace is preserved even
// when the snippet fails.
func (s *Sandbox) Execute(ctx context.Context, snippet string) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	execCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	script := s.buildScript(snippet)

	reqR, reqW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create tool-call request pipe: %w", err)
	}
	respR, respW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create tool-call response pipe: %w", err)
	}

	// A dedicated xtrace fd (BASH_XTRACEFD) keeps line-number tracing out
	// of the snippet's real stderr capture.
	traceR, traceW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create xtrace pipe: %w", err)
	}

	cmd := exec.CommandContext(execCtx, "bash", "--noprofile", "--norc", "-c", script)
	cmd.Dir = s.workDir
	cmd.Stdin = strings.NewReader("") // stdin is always empty; never blocks waiting for a human.
	// ExtraFiles assigns fd 3, 4, 5 in this order inside the child.
	cmd.ExtraFiles = []*os.File{reqW, respR, traceW}

	var stdout, stderr, xtrace bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	bridgeDone := make(chan struct{})
	go s.serveToolBridge(execCtx, reqR, respW, bridgeDone)

	traceDone := make(chan struct{})
	go func() {
		defer close(traceDone)
		_, _ = xtrace.ReadFrom(traceR)
	}()

	runErr := cmd.Run()

	// Close the child-side fds we duplicated; the parent-side copies are
	// what the goroutines above use, and they exit once the pipes EOF.
	reqW.Close()
	respR.Close()
	traceW.Close()
	<-bridgeDone
	<-traceDone
	reqR.Close()
	respW.Close()
	traceR.Close()

	result := &Result{
		Stdout: truncate(stdout.String(), maxCapturedBytes),
		Stderr: truncate(stderr.String(), maxCapturedBytes),
	}

	if runErr != nil {
		lineNo := lastTracedLine(xtrace.String())
		result.Err = &ExecError{
			Message:          runErr.Error(),
			Snippet:          snippet,
			LineNumber:       lineNo,
			AnnotatedSnippet: AnnotateSnippet(snippet, lineNo),
		}
	}

	return result, nil
}

// buildScript wraps the snippet with the namespace load/save preamble and
// the tools() bridge function. PS4/BASH_XTRACEFD trace only the snippet
// body (fd 9), not the preamble, so line numbers reported to the caller
// are relative to the snippet the model wrote.
func (s *Sandbox) buildScript(snippet string) string {
	var sb strings.Builder
	sb.WriteString("set -o pipefail\n")
	sb.WriteString(fmt.Sprintf("[ -f %q ] && source %q\n", s.namespaceFile, s.namespaceFile))
	sb.WriteString(toolBridgeFunction)
	sb.WriteString("export BASH_XTRACEFD=5\n")
	sb.WriteString("PS4='+LINENO:${LINENO}: '\n")
	sb.WriteString("set -x\n")
	sb.WriteString(snippet)
	sb.WriteString("\nset +x\n")
	sb.WriteString(s.namespaceDumpCommand())
	return sb.String()
}

// toolBridgeFunction is the shell function bound as `tools` — the
// namespace-level stand-in for tools.<name> calls into the Go registry.
// Usage: tools <name> '<json-args>'
const toolBridgeFunction = `
tools() {
  local name="$1"; shift
  local args="$*"
  printf '%s %s\n' "$name" "$args" >&3
  local result
  IFS= read -r -u 4 result
  printf '%s\n' "$result"
}
`

// namespaceDumpCommand filters `declare -p` output to user-assigned
// scalar/array variables and appends it to the namespace file, so the
// next Execute call starts from where this one left off.
func (s *Sandbox) namespaceDumpCommand() string {
	return fmt.Sprintf(`{ declare -p | grep -v -E '^declare -[a-zA-Z-]*r' ; } > %q 2>/dev/null || true`, s.namespaceFile)
}

func (s *Sandbox) serveToolBridge(ctx context.Context, reqR *os.File, respW *os.File, done chan<- struct{}) {
	defer close(done)
	scanner := bufio.NewScanner(reqR)
	for scanner.Scan() {
		line := scanner.Text()
		parts := strings.SplitN(line, " ", 2)
		name := parts[0]
		rawArgs := ""
		if len(parts) > 1 {
			rawArgs = parts[1]
		}
		result, err := s.registry.Call(ctx, name, parseShellArgs(rawArgs))
		var out string
		if err != nil {
			out = fmt.Sprintf(`{"error": %q}`, err.Error())
		} else {
			out = formatToolResult(result)
		}
		fmt.Fprintln(respW, out)
	}
}

// parseShellArgs turns "k=v k2=v2" style bridge args into a map. The
// snippet author is expected to write `tools my_tool key=value`.
func parseShellArgs(raw string) map[string]any {
	args := make(map[string]any)
	for _, field := range strings.Fields(raw) {
		kv := strings.SplitN(field, "=", 2)
		if len(kv) == 2 {
			args[kv[0]] = kv[1]
		}
	}
	return args
}

func formatToolResult(v any) string {
	return fmt.Sprintf("%v", v)
}

// lastTracedLine extracts the last "+LINENO:<n>:" marker from the xtrace
// stream, which is the line that was executing when the snippet failed —
// the same "walk the traceback back to the failing frame" contract as the
// teacher, expressed over bash's own tracing facility instead of a
// traceback object.
func lastTracedLine(trace string) int {
	lines := strings.Split(trace, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		const marker = "+LINENO:"
		idx := strings.Index(lines[i], marker)
		if idx == -1 {
			continue
		}
		rest := lines[i][idx+len(marker):]
		end := strings.Index(rest, ":")
		if end == -1 {
			continue
		}
		if n, err := strconv.Atoi(rest[:end]); err == nil {
			return n
		}
	}
	return 0
}

// AnnotateSnippet marks up the snippet with per-line markers (error
// indicator, 1-based line number, byte length, content) for inclusion in
// the follow-up model turn — spec.md §4.2.
func AnnotateSnippet(snippet string, errorLine int) string {
	lines := strings.Split(snippet, "\n")
	var sb strings.Builder
	for i, line := range lines {
		lineNo := i + 1
		indicator := "  "
		if lineNo == errorLine {
			indicator = "->"
		}
		sb.WriteString(fmt.Sprintf("%s %4d (%3d) %s\n", indicator, lineNo, len(line), line))
	}
	return sb.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n[output truncated]"
}
