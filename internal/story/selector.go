// Package story selects, creates and labels Tracker stories for the
// workflow commands.
package story

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/v2gpti/gpti/internal/pivotal"
	"github.com/v2gpti/gpti/internal/ui"
)

var (
	// ErrNoStory is returned when no story matches a selection.
	ErrNoStory = errors.New("no story available")
	// ErrNotRelease is returned when a release was requested by id but the
	// story is of another type.
	ErrNotRelease = errors.New("not a valid release story")

	errNoLastVersion = errors.New("no previous version to increment")
)

// DefaultLimit bounds the candidates offered for a generic selection.
const DefaultLimit = 5

// DefaultReleaseLimit bounds the release candidates offered.
const DefaultReleaseLimit = 10

// CandidateStates are the states a story can be started from.
var CandidateStates = []string{pivotal.StateUnstarted, pivotal.StateRejected, pivotal.StateUnscheduled}

// Tracker is the subset of the Tracker client the selector needs.
type Tracker interface {
	Story(ctx context.Context, projectID, storyID int64) (*pivotal.Story, error)
	Stories(ctx context.Context, projectID int64, q pivotal.StoryQuery) ([]pivotal.Story, error)
	CreateStory(ctx context.Context, projectID int64, params pivotal.StoryParams) (*pivotal.Story, error)
}

// Selector picks the story a command works on.
type Selector struct {
	tracker  Tracker
	picker   ui.Picker
	prompter ui.Prompter
	out      io.Writer
	versions VersionStrategy
}

// NewSelector returns a selector that asks for version numbers manually.
func NewSelector(tracker Tracker, picker ui.Picker, prompter ui.Prompter, out io.Writer) *Selector {
	if out == nil {
		out = io.Discard
	}
	return &Selector{
		tracker:  tracker,
		picker:   picker,
		prompter: prompter,
		out:      out,
		versions: ManualVersion{Prompter: prompter},
	}
}

// WithVersionStrategy sets how the next version release is numbered.
func (s *Selector) WithVersionStrategy(v VersionStrategy) *Selector {
	s.versions = v
	return s
}

// ParseID returns the story id in filter, accepting an optional leading '#'.
func ParseID(filter string) (int64, bool) {
	f := strings.TrimPrefix(strings.TrimSpace(filter), "#")
	id, err := strconv.ParseInt(f, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// GenericFilter builds the Tracker search for startable stories. A story
// type narrows the search; estimate -1 excludes unestimated features.
func GenericFilter(storyType string) string {
	filter := "state:" + strings.Join([]string{pivotal.StateUnstarted, pivotal.StateRejected, pivotal.StateUnscheduled}, ",")
	if slices.Contains(pivotal.StoryTypes, storyType) {
		filter += " type:" + storyType
		if storyType == pivotal.TypeFeature {
			filter += " -estimate:-1"
		}
	} else {
		filter += " type:" + strings.Join(pivotal.StoryTypes, ",")
	}
	return filter
}

// Startable drops features without a usable estimate, keeping order.
func Startable(stories []pivotal.Story) []pivotal.Story {
	out := make([]pivotal.Story, 0, len(stories))
	for _, st := range stories {
		if st.StoryType == pivotal.TypeFeature && !st.IsEstimated() {
			continue
		}
		out = append(out, st)
	}
	return out
}

// MenuLabel formats a story for the generic selection menu.
func MenuLabel(st *pivotal.Story) string {
	return fmt.Sprintf("%-7s %s", strings.ToUpper(st.StoryType), st.Name)
}

// Select resolves filter to a story. A numeric filter fetches that story
// directly; a story type or empty filter lists startable candidates and
// asks the user to choose when more than one remains.
func (s *Selector) Select(ctx context.Context, projectID int64, filter string, limit int) (*pivotal.Story, error) {
	if id, ok := ParseID(filter); ok {
		return s.tracker.Story(ctx, projectID, id)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	stories, err := s.tracker.Stories(ctx, projectID, pivotal.StoryQuery{
		Filter: GenericFilter(strings.ToLower(strings.TrimSpace(filter))),
		Limit:  limit,
	})
	if err != nil {
		return nil, err
	}
	candidates := Startable(stories)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	switch len(candidates) {
	case 0:
		return nil, fmt.Errorf("%w: nothing to start", ErrNoStory)
	case 1:
		return &candidates[0], nil
	}

	_, _ = fmt.Fprintf(s.out, "\nUnestimated features can not be started.\n\n")
	menu := ui.NewMenu[*pivotal.Story](s.picker).SetPrompt("Choose a story to start:")
	for i := range candidates {
		menu.AddChoice(MenuLabel(&candidates[i]), &candidates[i])
	}
	return menu.Choose(ctx)
}

// ReleaseFilter builds the Tracker search for open release stories of kind.
func ReleaseFilter(kind ReleaseKind) string {
	return fmt.Sprintf("type:release state:%s,%s name:/%s*/", pivotal.StateUnstarted, pivotal.StateRejected, kind.Marker())
}

// isConsumed reports whether a release story already carries its own name
// as a label, meaning it was tagged by a previous delivery or release.
func isConsumed(st *pivotal.Story) bool {
	return st.HasLabel(st.Name)
}

// OpenReleases keeps releases of kind that have not been consumed.
func OpenReleases(stories []pivotal.Story, kind ReleaseKind) []pivotal.Story {
	out := make([]pivotal.Story, 0, len(stories))
	for _, st := range stories {
		if st.StoryType != pivotal.TypeRelease || !strings.HasPrefix(st.Name, kind.Marker()) || isConsumed(&st) {
			continue
		}
		out = append(out, st)
	}
	return out
}

// SelectRelease resolves filter to a release story of kind. A numeric filter
// must name a release story. Otherwise open releases are offered, and when
// none exist a new one is created after the last finished release.
func (s *Selector) SelectRelease(ctx context.Context, projectID int64, filter string, kind ReleaseKind, limit int) (*pivotal.Story, error) {
	if id, ok := ParseID(filter); ok {
		st, err := s.tracker.Story(ctx, projectID, id)
		if err != nil {
			return nil, err
		}
		if st.StoryType != pivotal.TypeRelease {
			return nil, fmt.Errorf("specified story#%d is %w", id, ErrNotRelease)
		}
		return st, nil
	}
	if limit <= 0 {
		limit = DefaultReleaseLimit
	}

	stories, err := s.tracker.Stories(ctx, projectID, pivotal.StoryQuery{Filter: ReleaseFilter(kind), Limit: limit})
	if err != nil {
		return nil, err
	}
	candidates := OpenReleases(stories, kind)

	switch len(candidates) {
	case 0:
		return s.NewRelease(ctx, projectID, kind)
	case 1:
		return &candidates[0], nil
	}

	menu := ui.NewMenu[*pivotal.Story](s.picker).SetPrompt("Choose a release story:")
	for i := range candidates {
		menu.AddChoice(candidates[i].Name, &candidates[i])
	}
	return menu.Choose(ctx)
}

// LastRelease returns the highest consumed release of kind, or nil.
func (s *Selector) LastRelease(ctx context.Context, projectID int64, kind ReleaseKind) (*pivotal.Story, error) {
	stories, err := s.tracker.Stories(ctx, projectID, pivotal.StoryQuery{
		Filter: fmt.Sprintf("type:release name:/%s*/", kind.Marker()),
	})
	if err != nil {
		return nil, err
	}
	return latestRelease(stories, kind), nil
}

func latestRelease(stories []pivotal.Story, kind ReleaseKind) *pivotal.Story {
	var best *pivotal.Story
	for i := range stories {
		st := &stories[i]
		if st.StoryType != pivotal.TypeRelease || !strings.HasPrefix(st.Name, kind.Marker()) || !isConsumed(st) {
			continue
		}
		if best == nil || CompareVersions(kind.Token(st.Name), kind.Token(best.Name)) > 0 {
			best = st
		}
	}
	return best
}

// NextReleaseName picks the name for the release that follows last. Builds
// always take the string successor; versions use the selector's strategy.
// Without a previous release the user is asked.
func (s *Selector) NextReleaseName(ctx context.Context, last *pivotal.Story, kind ReleaseKind) (string, error) {
	question := fmt.Sprintf("To create a new %s, enter a name for the new release story:", kind)
	if last == nil {
		name, err := ui.AskRequired(ctx, s.prompter, question)
		if err != nil {
			return "", err
		}
		return kind.Name(name), nil
	}

	token := kind.Token(last.Name)
	if kind == Build {
		return kind.Name(StringSuccessor(token)), nil
	}
	next, err := s.versions.NextVersion(ctx, token)
	if err != nil {
		return "", err
	}
	return kind.Name(next), nil
}

// NewRelease creates an unstarted release story following the last release.
func (s *Selector) NewRelease(ctx context.Context, projectID int64, kind ReleaseKind) (*pivotal.Story, error) {
	_, _ = fmt.Fprintln(s.out, "There are no available release stories.")

	last, err := s.LastRelease(ctx, projectID, kind)
	if err != nil {
		return nil, err
	}
	if last != nil {
		_, _ = fmt.Fprintf(s.out, " The last %s release was %s.\n", kind, last.Name)
	}

	name, err := s.NextReleaseName(ctx, last, kind)
	if err != nil {
		return nil, err
	}
	_, _ = fmt.Fprintf(s.out, "New %s release number is: %s\n", kind, name)

	return s.tracker.CreateStory(ctx, projectID, pivotal.StoryParams{
		Name:         name,
		StoryType:    pivotal.TypeRelease,
		CurrentState: pivotal.StateUnstarted,
	})
}
