package ui

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestWrapText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxWidth int
		wantLine int
	}{
		{"short line unchanged", "hello world", 80, 1},
		{"wrap long line", "the quick brown fox jumps over the lazy dog", 20, 3},
		{"preserve newlines", "line 1\nline 2", 80, 2},
		{"overlong word kept whole", "supercalifragilisticexpialidocious", 10, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WrapText(tt.text, tt.maxWidth)
			gotLines := strings.Count(got, "\n") + 1
			if gotLines != tt.wantLine {
				t.Errorf("WrapText() got %d lines, want %d lines\nOutput: %q", gotLines, tt.wantLine, got)
			}
			for _, line := range strings.Split(got, "\n") {
				if utf8.RuneCountInString(line) > tt.maxWidth && strings.Contains(line, " ") {
					t.Errorf("line %q exceeds width %d", line, tt.maxWidth)
				}
			}
		})
	}
}

func TestIndent(t *testing.T) {
	got := Indent("a\nb\nc", "  ")
	if got != "a\n  b\n  c" {
		t.Errorf("Indent() = %q", got)
	}
}
