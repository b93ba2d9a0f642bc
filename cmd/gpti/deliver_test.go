package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v2gpti/gpti/internal/pivotal"
	"github.com/v2gpti/gpti/internal/story"
)

const (
	filterAcceptedReleases = "current_state:accepted type:release"
	filterOpenReleases     = "current_state:unstarted type:release"
)

func lastBuildFilter() string {
	return "type:release name:/b*/"
}

func release(id int64, name, state string, labels ...string) pivotal.Story {
	st := pivotal.Story{ID: id, Name: name, StoryType: pivotal.TypeRelease, CurrentState: state}
	for i, l := range labels {
		st.Labels = append(st.Labels, pivotal.Label{ID: id*10 + int64(i), Name: l})
	}
	return st
}

func TestDeliver(t *testing.T) {
	b4 := release(400, "b4", pivotal.StateDelivered, "b4")
	b5 := release(500, "b5", pivotal.StateUnstarted)
	finished := []pivotal.Story{
		{ID: 1, Name: "Search box", StoryType: pivotal.TypeFeature, CurrentState: pivotal.StateFinished},
		{ID: 2, Name: "Crash on save", StoryType: pivotal.TypeBug, CurrentState: pivotal.StateFinished},
		{ID: 3, Name: "Bump deps", StoryType: pivotal.TypeChore, CurrentState: pivotal.StateFinished},
	}
	env := newTestEnv(t, "develop", append([]pivotal.Story{b4, b5}, finished...)...)
	env.tracker.list(story.ReleaseFilter(story.Build), b5)
	env.tracker.list("current_state:finished type:bug,chore,feature -id:500", finished...)
	env.tracker.list(lastBuildFilter(), b4, b5)
	env.tracker.list(filterOpenReleases, b5)

	require.NoError(t, runDeliver(context.Background(), env.cc, ""))

	// Ordering: every delivered story and the release follow b4.
	for _, id := range []int64{1, 2, 3, 500} {
		updates := env.tracker.updatesFor(id)
		require.NotEmpty(t, updates, "story %d", id)
		require.NotNil(t, updates[0].AfterID, "story %d", id)
		assert.Equal(t, int64(400), *updates[0].AfterID, "story %d", id)
	}

	lines := env.repo.Lines()
	want := []string{
		"git pull --quiet",
		"git checkout --quiet QA",
		"git reset --quiet --hard origin/QA",
		"git merge --quiet --no-edit -s recursive --strategy-option theirs develop",
		"git push --quiet",
		"git checkout --quiet develop",
	}
	for _, w := range want {
		assert.Contains(t, lines, w)
	}
	assert.Contains(t, strings.Join(lines, "\n"), "Update build number to 5 for delivery to QA")
	assert.Equal(t, "develop", env.repo.current())

	notes, err := os.ReadFile(filepath.Join(env.cc.Root, ReleaseNotesDir, "Demo-b5.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Included Stories\n1 - Search box\n2 - Crash on save\n3 - Bump deps\n", string(notes))
	assert.Contains(t, env.out.String(), "Included Stories")
	assert.Contains(t, env.out.String(), "Last release: b4")

	for _, id := range []int64{1, 2, 3, 500} {
		assert.Contains(t, env.tracker.story(id).LabelNames(), "b5", "story %d", id)
	}
	assert.Equal(t, pivotal.StateDelivered, env.tracker.story(1).CurrentState)
	assert.Equal(t, pivotal.StateDelivered, env.tracker.story(2).CurrentState)
	assert.Equal(t, pivotal.StateAccepted, env.tracker.story(3).CurrentState)
	assert.Equal(t, pivotal.StateUnstarted, env.tracker.story(500).CurrentState, "the release keeps its state")
}

func TestDeliverRequiresRootBranch(t *testing.T) {
	env := newTestEnv(t, "42-feature")
	env.script.Confirms(false)

	err := runDeliver(context.Background(), env.cc, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "develop")
	assert.False(t, env.repo.Ran("git checkout --quiet develop"))
}

func TestDeliverChecksOutAndPullsRootBranch(t *testing.T) {
	env := newTestEnv(t, "42-feature", pivotal.Story{ID: 9, Name: "Task", StoryType: pivotal.TypeChore})
	env.script.Confirms(true)

	// Story 9 is not a release, so the delivery stops right after the checkout.
	err := runDeliver(context.Background(), env.cc, "9")
	assert.True(t, errors.Is(err, story.ErrNotRelease), "err = %v", err)

	lines := env.repo.Lines()
	assert.Contains(t, lines, "git checkout --quiet develop")
	assert.Contains(t, lines, "git pull --quiet")
}

func TestSortForDeliver(t *testing.T) {
	b5 := release(500, "b5", pivotal.StateUnstarted)

	t.Run("nothing to deliver", func(t *testing.T) {
		env := newTestEnv(t, "develop", b5)
		err := sortForDeliver(context.Background(), env.cc, &b5, nil)
		assert.True(t, errors.Is(err, errNothingToDeliver))
	})

	t.Run("first delivery follows the first finished story", func(t *testing.T) {
		stories := []pivotal.Story{{ID: 1, Name: "One"}, {ID: 2, Name: "Two"}}
		env := newTestEnv(t, "develop", b5, stories[0], stories[1])

		require.NoError(t, sortForDeliver(context.Background(), env.cc, &b5, stories))
		assert.Empty(t, env.tracker.updatesFor(1))
		assert.Equal(t, int64(1), *env.tracker.updatesFor(2)[0].AfterID)
		assert.Equal(t, int64(1), *env.tracker.updatesFor(500)[0].AfterID)
		assert.Contains(t, env.out.String(), "Last release: One")
	})

	t.Run("single open release follows the last accepted one", func(t *testing.T) {
		b3 := release(300, "b3", pivotal.StateAccepted, "b3")
		b4 := release(400, "b4", pivotal.StateDelivered, "b4")
		stories := []pivotal.Story{{ID: 1, Name: "One"}}
		env := newTestEnv(t, "develop", b5, stories[0])
		env.tracker.list(lastBuildFilter(), b3, b4)
		env.tracker.list(filterAcceptedReleases, b3)
		env.tracker.list(filterOpenReleases, b5)

		require.NoError(t, sortForDeliver(context.Background(), env.cc, &b5, stories))
		assert.Equal(t, int64(300), *env.tracker.updatesFor(1)[0].AfterID)
		assert.Equal(t, int64(300), *env.tracker.updatesFor(500)[0].AfterID)
	})

	t.Run("accepted last release with several open ones", func(t *testing.T) {
		b4 := release(400, "b4", pivotal.StateAccepted, "b4")
		b6 := release(600, "b6", pivotal.StateUnstarted)
		stories := []pivotal.Story{{ID: 1, Name: "One"}}
		env := newTestEnv(t, "develop", b5, b6, stories[0])
		env.tracker.list(lastBuildFilter(), b4)
		env.tracker.list(filterOpenReleases, b5, b6)

		require.NoError(t, sortForDeliver(context.Background(), env.cc, &b5, stories))
		assert.Equal(t, int64(500), *env.tracker.updatesFor(1)[0].AfterID)
		assert.Empty(t, env.tracker.updatesFor(500), "a story is never placed after itself")
	})
}

func TestReleaseNotes(t *testing.T) {
	assert.Equal(t, "Included Stories\n", releaseNotes(nil))
	assert.Equal(t, "Included Stories\n7 - Seven\n", releaseNotes([]pivotal.Story{{ID: 7, Name: "Seven"}}))
}
