package main

import (
	"fmt"
	"os"

	"github.com/relkit/relkit/internal/ui"
)

// FatalError writes an error message to stderr and exits with code 1.
// Use this for configuration problems that prevent any command from running,
// such as a missing pyproject.toml.
func FatalError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// FatalErrorWithHint writes an error message with a hint to stderr and exits.
//
// Example:
//
//	FatalErrorWithHint("pyproject.toml not found", "Run relkit from inside a uv project")
func FatalErrorWithHint(message, hint string) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", message)
	fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
	os.Exit(1)
}

// WarnError writes a warning message to stderr and returns.
// Use this for auxiliary features (telemetry, pager) whose failure must not
// stop a release step.
func WarnError(format string, args ...interface{}) {
	fmt.Fprintln(os.Stderr, ui.Warning(fmt.Sprintf(format, args...)))
}
