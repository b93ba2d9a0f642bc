// Package shell runs external commands (git, xcrun, platform tooling) as subprocesses.
//
// Commands are always described as a program name plus an argument vector.
// Nothing is ever passed through /bin/sh, so story names and branch names can
// contain quotes or spaces without being reinterpreted.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/google/shlex"
)

// Command is a program invocation.
type Command struct {
	Name string
	Args []string
	// Dir overrides the working directory. Empty means the process CWD.
	Dir string
}

// Git is shorthand for a git invocation.
func Git(args ...string) Command {
	return Command{Name: "git", Args: args}
}

// In returns a copy of c that runs in dir.
func (c Command) In(dir string) Command {
	c.Dir = dir
	return c
}

// String renders the command line for messages and logs.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Name)
	for _, a := range c.Args {
		if a == "" || strings.ContainsAny(a, " \t\n\"'") {
			a = fmt.Sprintf("%q", a)
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// Parse splits a configured command line (e.g. "xcrun agvtool new-version -all {build}")
// into a Command using shell-style quoting rules.
func Parse(line string) (Command, error) {
	words, err := shlex.Split(line)
	if err != nil {
		return Command{}, fmt.Errorf("parse command %q: %w", line, err)
	}
	if len(words) == 0 {
		return Command{}, fmt.Errorf("parse command %q: empty command", line)
	}
	return Command{Name: words[0], Args: words[1:]}, nil
}

// ExitError is returned when a command exits non-zero or cannot be started.
type ExitError struct {
	Command  Command
	Output   string // captured stdout
	Stderr   string
	ExitCode int
	Err      error
}

func (e *ExitError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %s", e.Command, strings.TrimSpace(e.Stderr))
	}
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Executor runs commands and captures their standard output.
type Executor interface {
	// Exec runs cmd and returns its stdout. A non-zero exit yields *ExitError.
	Exec(ctx context.Context, cmd Command) (string, error)
	// ExecAllowFailure runs cmd and returns whatever stdout was captured,
	// ignoring a non-zero exit status.
	ExecAllowFailure(ctx context.Context, cmd Command) string
}

// Runner is the subprocess-backed Executor.
type Runner struct {
	// Trace, when set, is called with every command line before it runs.
	Trace func(cmd Command)
}

// NewRunner returns a Runner.
func NewRunner() *Runner {
	return &Runner{}
}

func (r *Runner) Exec(ctx context.Context, c Command) (string, error) {
	if r.Trace != nil {
		r.Trace(c)
	}
	cmd := exec.CommandContext(ctx, c.Name, c.Args...) // #nosec G204 - argv form, no shell
	cmd.Dir = c.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return stdout.String(), &ExitError{
			Command:  c,
			Output:   stdout.String(),
			Stderr:   stderr.String(),
			ExitCode: code,
			Err:      err,
		}
	}
	return stdout.String(), nil
}

func (r *Runner) ExecAllowFailure(ctx context.Context, c Command) string {
	out, _ := r.Exec(ctx, c)
	return out
}
