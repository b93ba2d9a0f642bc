package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/huh"
)

// Prompter asks the user for free text and yes/no answers.
type Prompter interface {
	Ask(ctx context.Context, question string) (string, error)
	Confirm(ctx context.Context, question string, def bool) (bool, error)
}

// TerminalPrompter prompts with huh inputs. In and Out default to stdin and
// stdout.
type TerminalPrompter struct {
	Accessible bool
	In         io.Reader
	Out        io.Writer

	once  sync.Once
	input *eofReader
}

// NewTerminalPrompter returns a prompter that switches to accessible mode
// when stdin is not a terminal.
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{Accessible: !IsInputTerminal()}
}

func (p *TerminalPrompter) reader() *eofReader {
	p.once.Do(func() { p.input = newEOFReader(p.In) })
	return p.input
}

func (p *TerminalPrompter) run(ctx context.Context, field huh.Field) error {
	in := p.reader()
	if in.exhausted() {
		return ErrNoInput
	}
	form := huh.NewForm(huh.NewGroup(field)).WithAccessible(p.Accessible).WithInput(in)
	if p.Out != nil {
		form = form.WithOutput(p.Out)
	}
	err := form.RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrQuit
	}
	if errors.Is(err, io.EOF) {
		return ErrNoInput
	}
	return err
}

// Ask implements Prompter. The answer is trimmed. An empty answer read at
// the end of stdin is ErrNoInput.
func (p *TerminalPrompter) Ask(ctx context.Context, question string) (string, error) {
	var answer string
	if err := p.run(ctx, huh.NewInput().Title(question).Value(&answer)); err != nil {
		return "", err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" && p.reader().exhausted() {
		return "", ErrNoInput
	}
	return answer, nil
}

// Confirm implements Prompter.
func (p *TerminalPrompter) Confirm(ctx context.Context, question string, def bool) (bool, error) {
	answer := def
	field := huh.NewConfirm().
		Title(question).
		Affirmative("Yes").
		Negative("No").
		Value(&answer)
	if err := p.run(ctx, field); err != nil {
		return false, err
	}
	return answer, nil
}

// AskUntil repeats question until valid accepts the trimmed answer.
func AskUntil(ctx context.Context, p Prompter, question string, valid func(string) bool) (string, error) {
	for {
		answer, err := p.Ask(ctx, question)
		if err != nil {
			return "", err
		}
		answer = strings.TrimSpace(answer)
		if valid(answer) {
			return answer, nil
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
	}
}

// AskRequired repeats question until the answer is non-empty.
func AskRequired(ctx context.Context, p Prompter, question string) (string, error) {
	return AskUntil(ctx, p, question, func(s string) bool { return s != "" })
}

// AskDefault asks question, returning def for an empty answer.
func AskDefault(ctx context.Context, p Prompter, question, def string) (string, error) {
	if def != "" {
		question = fmt.Sprintf("%s [%s]", question, def)
	}
	answer, err := p.Ask(ctx, question)
	if err != nil {
		return "", err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return def, nil
	}
	return answer, nil
}
