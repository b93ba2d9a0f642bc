package ui

import (
	"os"
	"testing"
)

func TestShouldUseColor(t *testing.T) {
	tests := []struct {
		name          string
		noColor       string
		cliColor      string
		cliColorForce string
		wantColor     bool
	}{
		{name: "NO_COLOR disables color", noColor: "1", wantColor: false},
		{name: "CLICOLOR=0 disables color", cliColor: "0", wantColor: false},
		{name: "CLICOLOR_FORCE enables color even in non-TTY", cliColorForce: "1", wantColor: true},
		{name: "NO_COLOR takes precedence over CLICOLOR_FORCE", noColor: "1", cliColorForce: "1", wantColor: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{"NO_COLOR", "CLICOLOR", "CLICOLOR_FORCE"} {
				t.Setenv(k, "")
				os.Unsetenv(k)
			}
			if tt.noColor != "" {
				t.Setenv("NO_COLOR", tt.noColor)
			}
			if tt.cliColor != "" {
				t.Setenv("CLICOLOR", tt.cliColor)
			}
			if tt.cliColorForce != "" {
				t.Setenv("CLICOLOR_FORCE", tt.cliColorForce)
			}

			if got := ShouldUseColor(); got != tt.wantColor {
				t.Errorf("ShouldUseColor() = %v, want %v", got, tt.wantColor)
			}
		})
	}
}

func TestPlainOutputWithoutColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	if got := RenderPass("OK"); got != "OK" {
		t.Errorf("RenderPass() = %q, want plain text", got)
	}
	if got := Progress("Pulling develop") + OK(); got != "Pulling develop... OK" {
		t.Errorf("progress line = %q", got)
	}
	for _, render := range []func(string) string{RenderFail, RenderWarn, RenderMuted} {
		if got := render("FAIL: git push"); got != "FAIL: git push" {
			t.Errorf("render() = %q, want plain text", got)
		}
	}
	if got := RenderLabel("Title", 13); got != "      Title: " {
		t.Errorf("RenderLabel() = %q", got)
	}
	if got := RenderMarkdown("**bold**", 80); got != "**bold**" {
		t.Errorf("RenderMarkdown() = %q, want source unchanged", got)
	}
}

func TestTerminalWidth(t *testing.T) {
	// stdout is not a TTY under go test
	if got := TerminalWidth(); got <= 0 {
		t.Errorf("TerminalWidth() = %d", got)
	}
}
