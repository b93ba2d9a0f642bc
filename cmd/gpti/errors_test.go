package main

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/v2gpti/gpti/internal/git"
	"github.com/v2gpti/gpti/internal/shell"
	"github.com/v2gpti/gpti/internal/story"
	"github.com/v2gpti/gpti/internal/ui"
)

func TestDescribeError(t *testing.T) {
	exitErr := &shell.ExitError{
		Command:  shell.Git("push", "--quiet", "origin", "develop"),
		Stderr:   "rejected: non-fast-forward\n",
		ExitCode: 1,
	}

	tests := []struct {
		name        string
		err         error
		wantCode    int
		wantMessage string
		wantHint    string
		wantDetail  string
	}{
		{"quit", ui.ErrQuit, 0, farewell, "", ""},
		{"wrapped quit", fmt.Errorf("menu: %w", ui.ErrQuit), 0, farewell, "", ""},
		{"stdin closed", fmt.Errorf("description: %w", ui.ErrNoInput), 1, "input ended before a required answer was given", "pipe every answer", ""},
		{"interrupted", context.Canceled, 130, "interrupted", "", ""},
		{"subprocess", fmt.Errorf("push: %w", exitErr), 1, "FAIL: git push --quiet origin develop", "", "rejected: non-fast-forward"},
		{"usage", &usageError{msg: "no label mode given", hint: labelModeHint}, 1, "no label mode given", labelModeHint, ""},
		{"dirty tree", git.ErrUncommittedChanges, 1, "There are some unstaged changes in your current branch.", "git add .", ""},
		{"not trivial", fmt.Errorf("%w: rebase", git.ErrNotTrivialMerge), 1, "", "rebase", ""},
		{"no branch story", errNoBranchStory, 1, errNoBranchStory.Error(), "gpti start", ""},
		{"no story", fmt.Errorf("%w: nothing to start", story.ErrNoStory), 1, "", "gpti newfeature", ""},
		{"report project", errReportProject, 1, errReportProject.Error(), "report.project-id", ""},
		{"plain", fmt.Errorf("boom"), 1, "boom", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := describeError(tt.err)
			if f.code != tt.wantCode {
				t.Errorf("code = %d, want %d", f.code, tt.wantCode)
			}
			if tt.wantMessage != "" && f.message != tt.wantMessage {
				t.Errorf("message = %q, want %q", f.message, tt.wantMessage)
			}
			if !strings.Contains(f.hint, tt.wantHint) {
				t.Errorf("hint = %q, want it to contain %q", f.hint, tt.wantHint)
			}
			if f.detail != tt.wantDetail {
				t.Errorf("detail = %q, want %q", f.detail, tt.wantDetail)
			}
		})
	}
}
