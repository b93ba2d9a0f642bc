package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/huh"
)

// ErrQuit is returned when the user picks the Quit entry or aborts a form.
var ErrQuit = errors.New("quit")

// QuitLabel is the menu entry that leaves the program.
const QuitLabel = "Quit"

// Picker presents labels and returns the index chosen. A Quit entry is
// always offered; choosing it returns ErrQuit.
type Picker interface {
	Pick(ctx context.Context, prompt string, labels []string) (int, error)
}

// Menu collects labelled choices and blocks in Choose until one is picked.
type Menu[T any] struct {
	picker Picker
	prompt string
	labels []string
	values []T
}

// NewMenu returns an empty menu shown through p.
func NewMenu[T any](p Picker) *Menu[T] {
	return &Menu[T]{picker: p}
}

// SetPrompt sets the question shown above the choices.
func (m *Menu[T]) SetPrompt(prompt string) *Menu[T] {
	m.prompt = prompt
	return m
}

// AddChoice appends a choice; entries are shown in insertion order.
func (m *Menu[T]) AddChoice(label string, value T) *Menu[T] {
	m.labels = append(m.labels, label)
	m.values = append(m.values, value)
	return m
}

// Len returns the number of choices, not counting Quit.
func (m *Menu[T]) Len() int {
	return len(m.labels)
}

// Choose shows the menu and returns the value of the chosen entry.
func (m *Menu[T]) Choose(ctx context.Context) (T, error) {
	var zero T
	if len(m.labels) == 0 {
		return zero, fmt.Errorf("menu %q has no choices", m.prompt)
	}
	i, err := m.picker.Pick(ctx, m.prompt, m.labels)
	if err != nil {
		return zero, err
	}
	if i < 0 || i >= len(m.values) {
		return zero, fmt.Errorf("menu choice %d out of range", i)
	}
	return m.values[i], nil
}

// TerminalPicker shows menus with huh. Accessible mode reads a numbered
// choice from plain stdin, for use when stdin is not a terminal.
type TerminalPicker struct {
	Accessible bool
	In         io.Reader
	Out        io.Writer

	once  sync.Once
	input *eofReader
}

// NewTerminalPicker returns a picker that switches to accessible mode when
// stdin is not a terminal.
func NewTerminalPicker() *TerminalPicker {
	return &TerminalPicker{Accessible: !IsInputTerminal()}
}

// Pick implements Picker.
func (p *TerminalPicker) Pick(ctx context.Context, prompt string, labels []string) (int, error) {
	opts := make([]huh.Option[int], 0, len(labels)+1)
	for i, l := range labels {
		opts = append(opts, huh.NewOption(l, i))
	}
	opts = append(opts, huh.NewOption(QuitLabel, -1))

	p.once.Do(func() { p.input = newEOFReader(p.In) })
	if p.input.exhausted() {
		return -1, ErrNoInput
	}

	choice := 0
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title(prompt).
				Options(opts...).
				Value(&choice),
		),
	).WithAccessible(p.Accessible).WithInput(p.input)
	if p.Out != nil {
		form = form.WithOutput(p.Out)
	}

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return -1, ErrQuit
		}
		if errors.Is(err, io.EOF) {
			return -1, ErrNoInput
		}
		return -1, fmt.Errorf("menu: %w", err)
	}
	if choice < 0 {
		return -1, ErrQuit
	}
	return choice, nil
}
