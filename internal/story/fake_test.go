package story

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/v2gpti/gpti/internal/pivotal"
)

// fakeTracker serves stories from memory and records every call.
type fakeTracker struct {
	mu      sync.Mutex
	stories map[int64]*pivotal.Story
	// listing is returned from Stories keyed by filter; a missing key
	// returns nothing.
	listing map[string][]pivotal.Story
	created []pivotal.StoryParams
	calls   []string
	nextID  int64
	labelID int64
}

func newFakeTracker(stories ...pivotal.Story) *fakeTracker {
	f := &fakeTracker{
		stories: map[int64]*pivotal.Story{},
		listing: map[string][]pivotal.Story{},
		nextID:  1000,
		labelID: 9000,
	}
	for i := range stories {
		st := stories[i]
		st.Labels = slices.Clone(st.Labels)
		f.stories[st.ID] = &st
	}
	return f
}

func (f *fakeTracker) record(format string, args ...interface{}) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeTracker) called(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (f *fakeTracker) Story(_ context.Context, projectID, storyID int64) (*pivotal.Story, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Story %d", storyID)
	st, ok := f.stories[storyID]
	if !ok {
		return nil, &pivotal.APIError{StatusCode: 404, Message: "not found"}
	}
	cp := *st
	cp.Labels = slices.Clone(st.Labels)
	return &cp, nil
}

func (f *fakeTracker) Stories(_ context.Context, _ int64, q pivotal.StoryQuery) ([]pivotal.Story, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Stories %s", q.Filter)
	return slices.Clone(f.listing[q.Filter]), nil
}

func (f *fakeTracker) CreateStory(_ context.Context, projectID int64, p pivotal.StoryParams) (*pivotal.Story, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateStory %s", p.Name)
	f.created = append(f.created, p)
	f.nextID++
	st := &pivotal.Story{ID: f.nextID, ProjectID: projectID, Name: p.Name, StoryType: p.StoryType, CurrentState: p.CurrentState}
	f.stories[st.ID] = st
	return st, nil
}

func (f *fakeTracker) AddLabel(_ context.Context, _ int64, storyID int64, name string) (*pivotal.Label, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("AddLabel %d %s", storyID, name)
	f.labelID++
	label := pivotal.Label{ID: f.labelID, Name: name}
	if st, ok := f.stories[storyID]; ok {
		st.Labels = append(st.Labels, label)
	}
	return &label, nil
}

func (f *fakeTracker) RemoveLabel(_ context.Context, _ int64, storyID, labelID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("RemoveLabel %d %d", storyID, labelID)
	if st, ok := f.stories[storyID]; ok {
		st.Labels = slices.DeleteFunc(st.Labels, func(l pivotal.Label) bool { return l.ID == labelID })
	}
	return nil
}

func est(n int) *int { return &n }

func labels(names ...string) []pivotal.Label {
	out := make([]pivotal.Label, len(names))
	for i, n := range names {
		out[i] = pivotal.Label{ID: int64(100 + i), Name: n}
	}
	return out
}
