// Package uitest provides a scripted ui.Picker and ui.Prompter for tests.
package uitest

import (
	"context"
	"fmt"
	"sync"

	"github.com/v2gpti/gpti/internal/ui"
)

// Quit is a scripted pick that selects the Quit entry.
const Quit = -1

// MenuCall records one menu shown to the user.
type MenuCall struct {
	Prompt string
	Labels []string
}

// Script answers menus and prompts from queues, recording what was asked.
// An exhausted queue is a test failure reported as an error.
type Script struct {
	mu       sync.Mutex
	picks    []int
	answers  []string
	confirms []bool

	Menus     []MenuCall
	Questions []string
}

var (
	_ ui.Picker   = (*Script)(nil)
	_ ui.Prompter = (*Script)(nil)
)

// New returns an empty script.
func New() *Script {
	return &Script{}
}

// Choose queues menu choices by index; Quit selects the Quit entry.
func (s *Script) Choose(indexes ...int) *Script {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.picks = append(s.picks, indexes...)
	return s
}

// Answer queues free-text answers.
func (s *Script) Answer(answers ...string) *Script {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers = append(s.answers, answers...)
	return s
}

// Confirms queues yes/no answers.
func (s *Script) Confirms(answers ...bool) *Script {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirms = append(s.confirms, answers...)
	return s
}

// Pick implements ui.Picker.
func (s *Script) Pick(_ context.Context, prompt string, labels []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Menus = append(s.Menus, MenuCall{Prompt: prompt, Labels: append([]string(nil), labels...)})
	if len(s.picks) == 0 {
		return -1, fmt.Errorf("unexpected menu %q", prompt)
	}
	i := s.picks[0]
	s.picks = s.picks[1:]
	if i == Quit {
		return -1, ui.ErrQuit
	}
	return i, nil
}

// Ask implements ui.Prompter.
func (s *Script) Ask(_ context.Context, question string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Questions = append(s.Questions, question)
	if len(s.answers) == 0 {
		return "", fmt.Errorf("unexpected question %q", question)
	}
	a := s.answers[0]
	s.answers = s.answers[1:]
	return a, nil
}

// Confirm implements ui.Prompter.
func (s *Script) Confirm(_ context.Context, question string, _ bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Questions = append(s.Questions, question)
	if len(s.confirms) == 0 {
		return false, fmt.Errorf("unexpected confirmation %q", question)
	}
	c := s.confirms[0]
	s.confirms = s.confirms[1:]
	return c, nil
}

// Done reports whether every queued answer was consumed.
func (s *Script) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.picks) == 0 && len(s.answers) == 0 && len(s.confirms) == 0
}
