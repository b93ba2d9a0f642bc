// Package ui provides terminal styling, menus and prompts for gpti.
// Uses the Ayu color theme with adaptive light/dark mode support.
package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Ayu theme color palette
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
	// LabelStyle is used for the left column of story pretty-printing.
	LabelStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
)

// render applies style only when colour output is enabled, so piped output
// and tests see plain text.
func render(style lipgloss.Style, s string) string {
	if !ShouldUseColor() {
		return s
	}
	return style.Render(s)
}

// RenderPass renders text with pass (green) styling
func RenderPass(s string) string {
	return render(PassStyle, s)
}

// RenderWarn renders text with warning (yellow) styling
func RenderWarn(s string) string {
	return render(WarnStyle, s)
}

// RenderFail renders text with fail (red) styling
func RenderFail(s string) string {
	return render(FailStyle, s)
}

// RenderMuted renders text with muted (gray) styling
func RenderMuted(s string) string {
	return render(MutedStyle, s)
}

// RenderLabel right-aligns a "Name: " label in a column of width.
func RenderLabel(label string, width int) string {
	return render(LabelStyle, fmt.Sprintf("%*s", width, label+": "))
}

// Progress formats the "label... OK" progress line printed around git steps.
func Progress(label string) string {
	return label + "... "
}

// OK is printed when a progress step completes.
func OK() string {
	return RenderPass("OK")
}
