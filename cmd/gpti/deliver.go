package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/v2gpti/gpti/internal/config"
	"github.com/v2gpti/gpti/internal/pivotal"
	"github.com/v2gpti/gpti/internal/story"
	"github.com/v2gpti/gpti/internal/versionupdate"
)

// ReleaseNotesDir holds one notes file per delivered build.
const ReleaseNotesDir = "release_notes"

var errNothingToDeliver = errors.New("there are no last release stories or finished stories to deliver")

var deliverCmd = &cobra.Command{
	Use:   "deliver [release-story-id]",
	Short: "Deliver finished stories to QA as a new build",
	Long: `Deliver the finished stories: pick or create a build release story (b<N>),
merge the root branch into QA, stamp the build number, push, write release
notes and mark the included stories delivered.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		filter := ""
		if len(args) > 0 {
			filter = args[0]
		}
		runCommand(cmd, true, func(ctx context.Context, cc *CommandContext) error {
			return runDeliver(ctx, cc, filter)
		})
	},
}

func init() {
	rootCmd.AddCommand(deliverCmd)
}

func runDeliver(ctx context.Context, cc *CommandContext, filter string) error {
	root := config.GetString(config.KeyRootBranch)
	qa := config.GetString(config.KeyQABranch)
	if err := cc.ensureBranch(ctx, root, true); err != nil {
		return err
	}

	release, err := cc.selector().SelectRelease(ctx, cc.ProjectID, filter, story.Build, config.GetInt(config.KeyReleaseLimit))
	if err != nil {
		return err
	}
	cc.Log.Info("delivering", "release", release.Name, "story", release.ID)

	included, err := finishedStories(ctx, cc, release)
	if err != nil {
		return err
	}
	if err := sortForDeliver(ctx, cc, release, included); err != nil {
		return err
	}
	story.PrettyPrint(cc.Out, release, cc.Width)

	cc.printf("Merging from origin %s...\n", root)
	if err := cc.Git.Pull(ctx); err != nil {
		return err
	}
	if err := cc.Git.Checkout(ctx, qa); err != nil {
		return err
	}
	if err := cc.Git.ResetHard(ctx, "origin/"+qa); err != nil {
		return err
	}
	if err := cc.Git.Pull(ctx); err != nil {
		return err
	}
	if err := cc.Git.MergePreferTheirs(ctx, root); err != nil {
		return err
	}
	cc.printf("Merged '%s' in to '%s'\n", root, qa)

	build := story.Build.Token(release.Name)
	cc.printf("Story Name:         %s\n", release.Name)
	cc.printf("Build Number:       %s\n", build)
	cc.printf("Working Directory:  %s\n\n", cc.Root)

	if err := cc.stamper().StampBuild(ctx, versionupdate.StageQA, build); err != nil {
		return err
	}
	if err := cc.Git.CreateCommit(ctx, fmt.Sprintf("Update build number to %s for delivery to %s", build, qa), release.ID); err != nil {
		return err
	}
	if err := cc.Git.PushCurrent(ctx); err != nil {
		return err
	}
	if err := cc.Git.Checkout(ctx, root); err != nil {
		return err
	}

	if path, err := writeReleaseNotes(cc.Root, cc.ProjectName, release, included); err != nil {
		WarnError("unable to write release notes: %v", err)
	} else {
		cc.Log.Info("release notes written", "path", path)
	}
	printIncluded(cc, included)

	return deliverStories(ctx, cc, release, included)
}

// finishedStories lists the finished stories a build delivers.
func finishedStories(ctx context.Context, cc *CommandContext, release *pivotal.Story) ([]pivotal.Story, error) {
	return cc.Tracker.Stories(ctx, cc.ProjectID, pivotal.StoryQuery{
		Filter: fmt.Sprintf("current_state:finished type:bug,chore,feature -id:%d", release.ID),
		Limit:  1000,
	})
}

// sortForDeliver moves the delivered stories and the release marker after
// the previous release so the backlog reads in delivery order.
func sortForDeliver(ctx context.Context, cc *CommandContext, release *pivotal.Story, stories []pivotal.Story) error {
	last, err := cc.selector().LastRelease(ctx, cc.ProjectID, story.Build)
	if err != nil {
		return err
	}
	pending := slices.Clone(stories)
	if last == nil {
		if len(pending) == 0 {
			return errNothingToDeliver
		}
		last = &pending[0]
		pending = pending[1:]
	}
	pending = append(pending, *release)
	cc.printf("Last release: %s\n", last.Name)

	accepted, err := cc.Tracker.Stories(ctx, cc.ProjectID, pivotal.StoryQuery{Filter: "current_state:accepted type:release"})
	if err != nil {
		return err
	}
	var lastAccepted *pivotal.Story
	if len(accepted) > 0 {
		lastAccepted = &accepted[len(accepted)-1]
	}
	open, err := cc.Tracker.Stories(ctx, cc.ProjectID, pivotal.StoryQuery{Filter: "current_state:unstarted type:release"})
	if err != nil {
		return err
	}

	after := last.ID
	switch {
	case len(open) == 1 && lastAccepted != nil:
		after = lastAccepted.ID
	case last.CurrentState == pivotal.StateAccepted && len(open) >= 2:
		after = open[len(open)-2].ID
	}

	slices.Reverse(pending)
	for _, st := range pending {
		if st.ID == after {
			continue
		}
		if _, err := cc.Tracker.UpdateStory(ctx, cc.ProjectID, st.ID, pivotal.StoryUpdate{AfterID: pivotal.Ptr(after)}); err != nil {
			return err
		}
	}
	return nil
}

// releaseNotes renders the notes file for a build.
func releaseNotes(stories []pivotal.Story) string {
	var b strings.Builder
	b.WriteString("Included Stories\n")
	for _, st := range stories {
		fmt.Fprintf(&b, "%d - %s\n", st.ID, st.Name)
	}
	return b.String()
}

// writeReleaseNotes writes release_notes/<project>-<release>.txt under root.
func writeReleaseNotes(root, project string, release *pivotal.Story, stories []pivotal.Story) (string, error) {
	dir := filepath.Join(root, ReleaseNotesDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-%s.txt", project, release.Name))
	// #nosec G306 - release notes are meant to be shared
	if err := os.WriteFile(path, []byte(releaseNotes(stories)), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func printIncluded(cc *CommandContext, stories []pivotal.Story) {
	cc.printf("%s", releaseNotes(stories))
}

// deliverStories labels the stories and the release with the release name
// and moves features and bugs to delivered, chores to accepted.
func deliverStories(ctx context.Context, cc *CommandContext, release *pivotal.Story, stories []pivotal.Story) error {
	labeler := cc.labeler()
	all := append(slices.Clone(stories), *release)
	for i := range all {
		st := &all[i]
		if err := labeler.Add(ctx, st, release.Name); err != nil {
			return err
		}

		var state string
		switch st.StoryType {
		case pivotal.TypeFeature, pivotal.TypeBug:
			state = pivotal.StateDelivered
		case pivotal.TypeChore:
			state = pivotal.StateAccepted
		default:
			continue
		}
		if _, err := cc.Tracker.UpdateStory(ctx, cc.ProjectID, st.ID, pivotal.StoryUpdate{CurrentState: pivotal.Ptr(state)}); err != nil {
			return err
		}
	}
	return nil
}
