package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// IsTerminal reports whether stdout is a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd())) // #nosec G115 -- fd fits in int
}

// ShouldUseColor follows the NO_COLOR and CLICOLOR conventions:
//   - NO_COLOR set (any value) disables color
//   - CLICOLOR=0 disables color
//   - CLICOLOR_FORCE set enables color without a TTY
//   - otherwise color is used on a TTY only
func ShouldUseColor() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("CLICOLOR") == "0" {
		return false
	}
	if v := os.Getenv("CLICOLOR_FORCE"); v != "" && v != "0" {
		return true
	}
	return IsTerminal()
}

// ShouldUseEmoji reports whether icons may use non-ASCII glyphs.
// RELKIT_NO_EMOJI disables them.
func ShouldUseEmoji() bool {
	if os.Getenv("RELKIT_NO_EMOJI") != "" {
		return false
	}
	return IsTerminal()
}

// ApplyColorProfile configures lipgloss for the current environment. Call
// once at startup, before rendering.
func ApplyColorProfile() {
	if !ShouldUseColor() {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	if !IsTerminal() {
		// Forced color without a TTY: termenv cannot query the terminal, assume ANSI256.
		lipgloss.SetColorProfile(termenv.ANSI256)
		return
	}
	lipgloss.SetColorProfile(termenv.NewOutput(os.Stdout).EnvColorProfile())
}

// Width returns the terminal width, or fallback when unknown.
func Width(fallback int) int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 { // #nosec G115 -- fd fits in int
		return w
	}
	return fallback
}
