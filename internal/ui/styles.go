// Package ui renders relkit results for the terminal.
// Colors follow the Ayu theme with adaptive light/dark variants.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Ayu palette
// Dark: https://terminalcolors.com/themes/ayu/dark/
// Light: https://terminalcolors.com/themes/ayu/light/
var (
	ColorPass = lipgloss.AdaptiveColor{
		Light: "#86b300",
		Dark:  "#c2d94c",
	}
	ColorWarn = lipgloss.AdaptiveColor{
		Light: "#f2ae49",
		Dark:  "#ffb454",
	}
	ColorFail = lipgloss.AdaptiveColor{
		Light: "#f07171",
		Dark:  "#f07178",
	}
	ColorMuted = lipgloss.AdaptiveColor{
		Light: "#828c99",
		Dark:  "#6c7680",
	}
	ColorAccent = lipgloss.AdaptiveColor{
		Light: "#399ee6",
		Dark:  "#59c2ff",
	}
)

var (
	PassStyle   = lipgloss.NewStyle().Foreground(ColorPass)
	WarnStyle   = lipgloss.NewStyle().Foreground(ColorWarn)
	FailStyle   = lipgloss.NewStyle().Foreground(ColorFail)
	MutedStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
	AccentStyle = lipgloss.NewStyle().Foreground(ColorAccent)

	// HeaderStyle marks section titles such as "Next steps".
	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	// TokenStyle highlights a value the user must copy back.
	TokenStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorWarn)
)

// Status icons
const (
	IconPass = "✓"
	IconWarn = "⚠"
	IconFail = "✗"
	IconInfo = "ℹ"
	IconNext = "→"
	IconKey  = "🔑"
)

// Plain fallbacks when emoji are disabled.
const (
	plainPass = "[ok]"
	plainWarn = "[!]"
	plainFail = "[x]"
	plainInfo = "[i]"
	plainNext = "->"
	plainKey  = "*"
)

const indent = "  "

// RenderPass renders text in the pass color.
func RenderPass(s string) string {
	return PassStyle.Render(s)
}

// RenderWarn renders text in the warning color.
func RenderWarn(s string) string {
	return WarnStyle.Render(s)
}

// RenderFail renders text in the fail color.
func RenderFail(s string) string {
	return FailStyle.Render(s)
}

// RenderMuted renders text in the muted color.
func RenderMuted(s string) string {
	return MutedStyle.Render(s)
}

// RenderAccent renders text in the accent color.
func RenderAccent(s string) string {
	return AccentStyle.Render(s)
}

// RenderHeader renders a section title.
func RenderHeader(s string) string {
	return HeaderStyle.Render(s)
}

// RenderSeparator renders a muted rule of width n.
func RenderSeparator(n int) string {
	return MutedStyle.Render(strings.Repeat("─", n))
}

func passIcon() string {
	if !ShouldUseEmoji() {
		return RenderPass(plainPass)
	}
	return RenderPass(IconPass)
}

func failIcon() string {
	if !ShouldUseEmoji() {
		return RenderFail(plainFail)
	}
	return RenderFail(IconFail)
}

func warnIcon() string {
	if !ShouldUseEmoji() {
		return RenderWarn(plainWarn)
	}
	return RenderWarn(IconWarn)
}

func infoIcon() string {
	if !ShouldUseEmoji() {
		return RenderAccent(plainInfo)
	}
	return RenderAccent(IconInfo)
}

// Warning renders a one-line warning for stderr.
func Warning(msg string) string {
	return warnIcon() + " " + RenderWarn(msg)
}

// Info renders a one-line notice, e.g. the status watch banner.
func Info(msg string) string {
	return infoIcon() + " " + RenderMuted(msg)
}

func nextIcon() string {
	if !ShouldUseEmoji() {
		return RenderAccent(plainNext)
	}
	return RenderAccent(IconNext)
}

func keyIcon() string {
	if !ShouldUseEmoji() {
		return plainKey
	}
	return IconKey
}
