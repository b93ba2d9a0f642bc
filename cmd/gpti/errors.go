package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/v2gpti/gpti/internal/config"
	"github.com/v2gpti/gpti/internal/git"
	"github.com/v2gpti/gpti/internal/shell"
	"github.com/v2gpti/gpti/internal/story"
	"github.com/v2gpti/gpti/internal/ui"
)

// farewell is printed when the user quits from a menu or prompt.
const farewell = "Thank you for using v2gpti"

// usageError is a bad invocation that comes with a suggestion.
type usageError struct {
	msg  string
	hint string
}

func (e *usageError) Error() string {
	return e.msg
}

// FatalError writes an error message to stderr and exits with code 1.
// Use this for fatal errors that prevent the command from completing.
func FatalError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	exit(1)
}

// FatalErrorWithHint writes an error message with a hint to stderr and exits.
func FatalErrorWithHint(message, hint string) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", message)
	fmt.Fprintf(os.Stderr, "%s %s\n", color.YellowString("Hint:"), hint)
	exit(1)
}

// WarnError writes a warning message to stderr and returns.
// Use this for bookkeeping steps whose failure must not stop the workflow:
// time logging, release notes, hook installation.
func WarnError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s %s\n", ui.RenderWarn("Warning:"), fmt.Sprintf(format, args...))
}

// failure is how an error is reported to the user.
type failure struct {
	message string
	hint    string
	// detail is extra output shown under the message, e.g. git's stderr.
	detail string
	code   int
}

// describeError maps a command error onto what the user sees and the exit code.
func describeError(err error) failure {
	var (
		exitErr *shell.ExitError
		usage   *usageError
	)
	switch {
	case errors.Is(err, ui.ErrQuit):
		return failure{message: farewell, code: 0}
	case errors.Is(err, ui.ErrNoInput):
		return failure{
			message: "input ended before a required answer was given",
			hint:    "run gpti from a terminal, or pipe every answer on its own line",
			code:    1,
		}
	case errors.Is(err, context.Canceled):
		return failure{message: "interrupted", code: 130}
	case errors.As(err, &exitErr):
		return failure{
			message: "FAIL: " + exitErr.Command.String(),
			detail:  strings.TrimSpace(exitErr.Stderr),
			code:    1,
		}
	case errors.As(err, &usage):
		return failure{message: usage.msg, hint: usage.hint, code: 1}
	case errors.Is(err, git.ErrUncommittedChanges):
		return failure{
			message: "There are some unstaged changes in your current branch.",
			hint:    "commit them first:\n  git add .\n  git commit -m '<your-commit-message>'",
			code:    1,
		}
	case errors.Is(err, git.ErrNotTrivialMerge):
		return failure{
			message: err.Error(),
			hint:    "rebase the development branch onto its root branch, then run 'gpti finish' again",
			code:    1,
		}
	case errors.Is(err, git.ErrNoRootBranch), errors.Is(err, errNoBranchStory):
		return failure{message: err.Error(), hint: "start the story with 'gpti start' first", code: 1}
	case errors.Is(err, story.ErrNoStory):
		return failure{message: err.Error(), hint: "create one with 'gpti newfeature' or 'gpti newbug'", code: 1}
	case errors.Is(err, errReportProject):
		return failure{message: err.Error(), hint: "gpti config set " + config.KeyReportProjectID + " <id>", code: 1}
	}
	return failure{message: err.Error(), code: 1}
}

// exitOnError reports err and exits. A nil error returns immediately.
func exitOnError(err error) {
	if err == nil {
		return
	}
	f := describeError(err)
	switch {
	case f.code == 0:
		fmt.Println(color.GreenString(f.message))
		exit(0)
	case strings.HasPrefix(f.message, "FAIL: "):
		fmt.Fprintln(os.Stderr, ui.RenderFail(f.message))
		if f.detail != "" {
			fmt.Fprintln(os.Stderr, ui.RenderMuted(ui.Indent(f.detail, "  ")))
		}
		exit(f.code)
	case f.hint != "":
		FatalErrorWithHint(f.message, f.hint)
	default:
		fmt.Fprintf(os.Stderr, "Error: %s\n", f.message)
		exit(f.code)
	}
}
