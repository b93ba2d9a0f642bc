package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// RenderMarkdown renders story descriptions and comments with glamour,
// word-wrapped at width. Returns the original text when colours are off or
// rendering fails.
func RenderMarkdown(markdown string, width int) string {
	if !ShouldUseColor() {
		return markdown
	}

	const maxReadableWidth = 100
	if width <= 0 {
		width = DefaultWidth
	}
	if width > maxReadableWidth {
		width = maxReadableWidth
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return markdown
	}

	rendered, err := renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.Trim(rendered, "\n")
}
