package story

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/v2gpti/gpti/internal/pivotal"
)

// LabelMode is what `label` does with the named labels.
type LabelMode string

const (
	LabelAdd    LabelMode = "add"
	LabelRemove LabelMode = "remove"
	LabelList   LabelMode = "list"
	// LabelOnce moves labels onto the story, removing them from every other
	// story in the project.
	LabelOnce LabelMode = "once"
)

// LabelModes lists the accepted modes.
var LabelModes = []LabelMode{LabelAdd, LabelRemove, LabelList, LabelOnce}

// ParseLabelMode validates a mode argument.
func ParseLabelMode(s string) (LabelMode, error) {
	m := LabelMode(strings.ToLower(s))
	if !slices.Contains(LabelModes, m) {
		return "", fmt.Errorf("unknown label mode %q (want one of add, remove, list, once)", s)
	}
	return m, nil
}

// LabelTracker is the subset of the Tracker client used for labelling.
type LabelTracker interface {
	Story(ctx context.Context, projectID, storyID int64) (*pivotal.Story, error)
	Stories(ctx context.Context, projectID int64, q pivotal.StoryQuery) ([]pivotal.Story, error)
	AddLabel(ctx context.Context, projectID, storyID int64, name string) (*pivotal.Label, error)
	RemoveLabel(ctx context.Context, projectID, storyID, labelID int64) error
}

// Labeler applies label modes to stories and reports each change on out.
type Labeler struct {
	tracker LabelTracker
	out     io.Writer
}

// NewLabeler returns a Labeler.
func NewLabeler(tracker LabelTracker, out io.Writer) *Labeler {
	if out == nil {
		out = io.Discard
	}
	return &Labeler{tracker: tracker, out: out}
}

func (l *Labeler) report(st *pivotal.Story, before, after []string) {
	_, _ = fmt.Fprintf(l.out, "Updated labels on %s:\n[%s] => [%s]\n", st.Name, strings.Join(before, ", "), strings.Join(after, ", "))
}

// Add attaches the labels the story does not already carry.
func (l *Labeler) Add(ctx context.Context, st *pivotal.Story, names ...string) error {
	before := st.LabelNames()
	changed := false
	for _, name := range names {
		if name == "" || st.HasLabel(name) {
			continue
		}
		label, err := l.tracker.AddLabel(ctx, st.ProjectID, st.ID, name)
		if err != nil {
			return err
		}
		st.Labels = append(st.Labels, *label)
		changed = true
	}
	if changed {
		l.report(st, before, st.LabelNames())
	}
	return nil
}

// Remove detaches the named labels from the story.
func (l *Labeler) Remove(ctx context.Context, st *pivotal.Story, names ...string) error {
	current := slices.Clone(st.Labels)
	before := st.LabelNames()
	kept := make([]pivotal.Label, 0, len(current))
	for _, label := range current {
		if !slices.Contains(names, label.Name) {
			kept = append(kept, label)
			continue
		}
		if err := l.tracker.RemoveLabel(ctx, st.ProjectID, st.ID, label.ID); err != nil {
			return err
		}
	}
	if len(kept) != len(current) {
		st.Labels = kept
		l.report(st, before, st.LabelNames())
	}
	return nil
}

// Once removes the labels from every other story in the project, then adds
// them to st.
func (l *Labeler) Once(ctx context.Context, st *pivotal.Story, names ...string) error {
	for _, name := range names {
		others, err := l.tracker.Stories(ctx, st.ProjectID, pivotal.StoryQuery{
			Filter: fmt.Sprintf("label:%q", name),
			Fields: ":default,labels",
		})
		if err != nil {
			return err
		}
		for i := range others {
			other := &others[i]
			if other.ID == st.ID || other.Name == st.Name || !other.HasLabel(name) {
				continue
			}
			if err := l.Remove(ctx, other, name); err != nil {
				return err
			}
		}
	}
	return l.Add(ctx, st, names...)
}

// List prints the story's labels, one per line.
func (l *Labeler) List(st *pivotal.Story) {
	_, _ = fmt.Fprintln(l.out, "Story labels:")
	for _, name := range st.LabelNames() {
		_, _ = fmt.Fprintln(l.out, name)
	}
}

// Apply runs mode against the story.
func (l *Labeler) Apply(ctx context.Context, st *pivotal.Story, mode LabelMode, names ...string) error {
	switch mode {
	case LabelAdd:
		return l.Add(ctx, st, names...)
	case LabelRemove:
		return l.Remove(ctx, st, names...)
	case LabelOnce:
		return l.Once(ctx, st, names...)
	case LabelList:
		l.List(st)
		return nil
	}
	return fmt.Errorf("unknown label mode %q", mode)
}
