package ui

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/term"
)

// PagerOptions controls pager behavior.
type PagerOptions struct {
	// NoPager disables the pager (--no-pager).
	NoPager bool
}

// shouldUsePager is false with NoPager, with RELKIT_NO_PAGER set, or when
// stdout is not a terminal.
func shouldUsePager(opts PagerOptions) bool {
	if opts.NoPager || os.Getenv("RELKIT_NO_PAGER") != "" {
		return false
	}
	return IsTerminal()
}

// pagerCommand returns RELKIT_PAGER, then PAGER, then "less".
func pagerCommand() string {
	if p := os.Getenv("RELKIT_PAGER"); p != "" {
		return p
	}
	if p := os.Getenv("PAGER"); p != "" {
		return p
	}
	return "less"
}

func terminalHeight() int {
	fd := int(os.Stdout.Fd()) // #nosec G115 -- fd fits in int
	if !term.IsTerminal(fd) {
		return 0
	}
	_, h, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return h
}

func lineCount(content string) int {
	if content == "" {
		return 0
	}
	return strings.Count(content, "\n") + 1
}

// ToPager writes content to w, through a pager when stdout is a terminal
// and the content is taller than it.
func ToPager(w io.Writer, content string, opts PagerOptions) error {
	if !shouldUsePager(opts) {
		_, err := fmt.Fprint(w, content)
		return err
	}
	if h := terminalHeight(); h > 0 && lineCount(content) <= h-1 {
		_, err := fmt.Fprint(w, content)
		return err
	}

	parts := strings.Fields(pagerCommand())
	if len(parts) == 0 {
		_, err := fmt.Fprint(w, content)
		return err
	}
	cmd := exec.Command(parts[0], parts[1:]...) // #nosec G204 -- pager is user-configured
	cmd.Stdin = strings.NewReader(content)
	cmd.Stdout = w
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()
	if os.Getenv("LESS") == "" {
		// -R keeps ANSI colors, -F quits when content fits, -X keeps the screen.
		cmd.Env = append(cmd.Env, "LESS=-RFX")
	}
	return cmd.Run()
}
