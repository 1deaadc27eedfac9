// Package debug gates diagnostic output behind RELKIT_DEBUG or --verbose and
// builds the structured logger handed to checks, guards and workflows.
package debug

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

var (
	enabled     = os.Getenv("RELKIT_DEBUG") != ""
	verboseMode = false
	quietMode   = false
)

func Enabled() bool {
	return enabled || verboseMode
}

// SetVerbose enables verbose/debug output
func SetVerbose(verbose bool) {
	verboseMode = verbose
}

// SetQuiet enables quiet mode (suppress non-essential output)
func SetQuiet(quiet bool) {
	quietMode = quiet
}

// IsQuiet returns true if quiet mode is enabled
func IsQuiet() bool {
	return quietMode
}

// PrintNormal writes to w unless quiet mode is enabled.
// Use this for normal informational output that should be suppressed in quiet mode
func PrintNormal(w io.Writer, format string, args ...interface{}) error {
	if IsQuiet() {
		return nil
	}
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

// PrintlnNormal writes a line to w unless quiet mode is enabled
func PrintlnNormal(w io.Writer, args ...interface{}) error {
	if IsQuiet() {
		return nil
	}
	_, err := fmt.Fprintln(w, args...)
	return err
}

// Level is Debug when debug output is on and Warn otherwise.
func Level() slog.Level {
	if Enabled() {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

// Logger returns a text logger on stderr at Level.
func Logger() *slog.Logger {
	return NewLogger(os.Stderr)
}

// NewLogger returns a text logger writing to w at Level.
func NewLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: Level()}))
}
