// Package shelltest provides a scripted shell.Executor for tests.
package shelltest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/v2gpti/gpti/internal/shell"
)

// Response is the scripted result of one command line.
type Response struct {
	Output string
	Fail   bool
}

// Fake records every command and answers from a script.
//
// Lookup order: Handler (if it reports handled), then Responses keyed by the
// exact command line, then Prefixes (longest match wins). Unknown commands
// succeed with empty output.
type Fake struct {
	mu        sync.Mutex
	Responses map[string]Response
	Prefixes  map[string]Response
	Handler   func(cmd shell.Command) (Response, bool)
	Calls     []shell.Command
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{
		Responses: map[string]Response{},
		Prefixes:  map[string]Response{},
	}
}

// On scripts output for an exact command line, e.g. On("git branch", "* main\n").
func (f *Fake) On(line, output string) *Fake {
	f.Responses[line] = Response{Output: output}
	return f
}

// Fail scripts a non-zero exit for an exact command line.
func (f *Fake) Fail(line string) *Fake {
	f.Responses[line] = Response{Fail: true}
	return f
}

// OnPrefix scripts output for every command line starting with prefix.
func (f *Fake) OnPrefix(prefix, output string) *Fake {
	f.Prefixes[prefix] = Response{Output: output}
	return f
}

func (f *Fake) lookup(c shell.Command) Response {
	if f.Handler != nil {
		if r, ok := f.Handler(c); ok {
			return r
		}
	}
	line := c.String()
	if r, ok := f.Responses[line]; ok {
		return r
	}
	best := ""
	for p := range f.Prefixes {
		if strings.HasPrefix(line, p) && len(p) > len(best) {
			best = p
		}
	}
	if best != "" {
		return f.Prefixes[best]
	}
	return Response{}
}

func (f *Fake) Exec(_ context.Context, c shell.Command) (string, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, c)
	r := f.lookup(c)
	f.mu.Unlock()

	if r.Fail {
		return r.Output, &shell.ExitError{Command: c, Output: r.Output, ExitCode: 1, Err: fmt.Errorf("exit status 1")}
	}
	return r.Output, nil
}

func (f *Fake) ExecAllowFailure(ctx context.Context, c shell.Command) string {
	out, _ := f.Exec(ctx, c)
	return out
}

// Lines returns the recorded command lines in order.
func (f *Fake) Lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := make([]string, len(f.Calls))
	for i, c := range f.Calls {
		lines[i] = c.String()
	}
	return lines
}

// Ran reports whether the exact command line was executed.
func (f *Fake) Ran(line string) bool {
	for _, l := range f.Lines() {
		if l == line {
			return true
		}
	}
	return false
}
