// Package runner executes external tools (git, uv, linters) synchronously
// and captures their exit code and output.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"
)

// Cmd describes one external invocation.
type Cmd struct {
	Args []string
	Dir  string
	Env  map[string]string // added to the inherited environment
}

// String renders the argv for logs and messages.
func (c Cmd) String() string {
	return strings.Join(c.Args, " ")
}

// Result is the captured outcome of a finished process.
type Result struct {
	ExitCode int           `json:"exit_code"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	Duration time.Duration `json:"-"`
}

// OK reports a zero exit code.
func (r Result) OK() bool {
	return r.ExitCode == 0
}

// Lines returns the non-blank stdout lines, trimmed of trailing whitespace.
func (r Result) Lines() []string {
	return splitLines(r.Stdout)
}

// ErrorText returns trimmed stderr, falling back to stdout when stderr is empty.
func (r Result) ErrorText() string {
	if s := strings.TrimSpace(r.Stderr); s != "" {
		return s
	}
	return strings.TrimSpace(r.Stdout)
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

// Runner runs commands. A non-zero exit is reported in Result, not as an
// error; the error is reserved for processes that could not be started.
type Runner interface {
	Run(ctx context.Context, cmd Cmd) (Result, error)
}

// ErrNotFound is wrapped when the requested binary is not on PATH.
var ErrNotFound = errors.New("command not found")

// Exec runs commands with os/exec.
type Exec struct {
	Log *slog.Logger
}

// Run implements Runner.
func (e Exec) Run(ctx context.Context, cmd Cmd) (Result, error) {
	if len(cmd.Args) == 0 {
		return Result{}, fmt.Errorf("runner: empty command")
	}
	c := exec.CommandContext(ctx, cmd.Args[0], cmd.Args[1:]...) // #nosec G204 -- argv comes from config and fixed tool invocations
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), envPairs(cmd.Env)...)
	}
	var stdoutBuf, stderrBuf bytes.Buffer
	c.Stdout = &stdoutBuf
	c.Stderr = &stderrBuf

	start := time.Now()
	err := c.Run()
	res := Result{
		Stdout:   stdoutBuf.String(),
		Stderr:   stderrBuf.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.As(err, &exitErr):
			res.ExitCode = exitErr.ExitCode()
		case errors.Is(err, exec.ErrNotFound):
			return res, fmt.Errorf("%s: %w", cmd.Args[0], ErrNotFound)
		default:
			return res, fmt.Errorf("run %s: %w", cmd.Args[0], err)
		}
	}

	if e.Log != nil {
		e.Log.Debug("command finished",
			"cmd", cmd.String(),
			"dir", cmd.Dir,
			"exit", res.ExitCode,
			"duration_ms", res.Duration.Milliseconds(),
		)
	}
	return res, nil
}

// envPairs renders env as sorted KEY=VALUE pairs.
func envPairs(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+env[k])
	}
	return pairs
}
