// Package testutil provides fakes and fixtures shared by package tests.
package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/relkit/relkit/internal/runner"
)

type scripted struct {
	prefix  []string
	results []runner.Result
	err     error
}

// FakeRunner answers commands from a script keyed by argv prefix. The entry
// with the longest matching prefix wins, the latest among equals, so a test
// can override a shared setup. Unmatched commands get Default.
// Safe for concurrent use.
type FakeRunner struct {
	mu      sync.Mutex
	entries []*scripted
	calls   []runner.Cmd

	Default runner.Result
}

// NewFakeRunner returns a FakeRunner whose unmatched commands succeed with
// empty output.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{}
}

// On scripts results for commands starting with prefix. Results are returned
// in order; the last one repeats.
func (f *FakeRunner) On(prefix []string, results ...runner.Result) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(results) == 0 {
		results = []runner.Result{{}}
	}
	f.entries = append(f.entries, &scripted{prefix: prefix, results: results})
	return f
}

// Stdout scripts a successful command printing out.
func (f *FakeRunner) Stdout(out string, prefix ...string) *FakeRunner {
	return f.On(prefix, runner.Result{Stdout: out})
}

// Exit scripts a failing command.
func (f *FakeRunner) Exit(code int, stderr string, prefix ...string) *FakeRunner {
	return f.On(prefix, runner.Result{ExitCode: code, Stderr: stderr})
}

// Error scripts a command that cannot be started.
func (f *FakeRunner) Error(err error, prefix ...string) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, &scripted{prefix: prefix, err: err})
	return f
}

// Run implements runner.Runner.
func (f *FakeRunner) Run(_ context.Context, cmd runner.Cmd) (runner.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cmd)

	var best *scripted
	for _, e := range f.entries {
		if hasPrefix(cmd.Args, e.prefix) && (best == nil || len(e.prefix) >= len(best.prefix)) {
			best = e
		}
	}
	if best == nil {
		return f.Default, nil
	}
	if best.err != nil {
		return runner.Result{}, best.err
	}
	res := best.results[0]
	if len(best.results) > 1 {
		best.results = best.results[1:]
	}
	return res, nil
}

// Calls returns every command run so far.
func (f *FakeRunner) Calls() []runner.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]runner.Cmd(nil), f.calls...)
}

// Called reports whether any command starting with prefix was run.
func (f *FakeRunner) Called(prefix ...string) bool {
	return f.Count(prefix...) > 0
}

// Count returns how many commands starting with prefix were run.
func (f *FakeRunner) Count(prefix ...string) int {
	n := 0
	for _, c := range f.Calls() {
		if hasPrefix(c.Args, prefix) {
			n++
		}
	}
	return n
}

// CommandLines renders every call as a single string, for assertions.
func (f *FakeRunner) CommandLines() []string {
	var out []string
	for _, c := range f.Calls() {
		out = append(out, strings.Join(c.Args, " "))
	}
	return out
}

func hasPrefix(args, prefix []string) bool {
	if len(prefix) > len(args) {
		return false
	}
	for i, p := range prefix {
		if args[i] != p {
			return false
		}
	}
	return true
}
