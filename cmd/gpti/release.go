package main

import (
	"context"
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/v2gpti/gpti/internal/config"
	"github.com/v2gpti/gpti/internal/pivotal"
	"github.com/v2gpti/gpti/internal/story"
)

var releaseCmd = &cobra.Command{
	Use:   "release [release-story-id]",
	Short: "Release the QA branch as a new version",
	Long: `Release the QA build: pick or create a version release story (v<N>), merge
QA into the release branch, stamp the version, tag it and label the
delivered stories that shipped in it.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		filter := ""
		if len(args) > 0 {
			filter = args[0]
		}
		runCommand(cmd, true, func(ctx context.Context, cc *CommandContext) error {
			return runRelease(ctx, cc, filter)
		})
	},
}

func init() {
	rootCmd.AddCommand(releaseCmd)
}

func runRelease(ctx context.Context, cc *CommandContext, filter string) error {
	qa := config.GetString(config.KeyQABranch)
	master := config.GetString(config.KeyReleaseBranch)

	release, err := cc.selector().SelectRelease(ctx, cc.ProjectID, filter, story.Version, config.GetInt(config.KeyReleaseLimit))
	if err != nil {
		return err
	}
	cc.Log.Info("releasing", "release", release.Name, "story", release.ID)

	if err := placeVersionRelease(ctx, cc, release); err != nil {
		return err
	}
	if err := moveRejected(ctx, cc, release); err != nil {
		return err
	}
	story.PrettyPrint(cc.Out, release, cc.Width)

	current, err := cc.Git.CurrentBranch(ctx)
	if err != nil {
		return err
	}

	if err := cc.Git.Checkout(ctx, qa); err != nil {
		return err
	}
	if err := cc.Git.Fetch(ctx); err != nil {
		return err
	}
	if err := cc.Git.MergePreferTheirs(ctx, "origin/"+qa); err != nil {
		return err
	}
	if err := cc.Git.Checkout(ctx, master); err != nil {
		return err
	}
	if err := cc.Git.Pull(ctx); err != nil {
		return err
	}
	if err := cc.Git.MergePreferTheirs(ctx, qa); err != nil {
		return err
	}
	cc.printf("Merged '%s' in to '%s'\n", qa, master)

	version := story.Version.Token(release.Name)
	cc.printf("Story Name:         %s\n", release.Name)
	cc.printf("Version Number:     %s\n", version)
	cc.printf("Working Directory:  %s\n\n", cc.Root)

	stamper := cc.stamper()
	if err := stamper.StampVersion(ctx, version); err != nil {
		return err
	}
	if err := cc.Git.CreateCommit(ctx, fmt.Sprintf("Update version number to %s for delivery to %s", version, qa), release.ID); err != nil {
		return err
	}
	if err := cc.Git.PushCurrent(ctx); err != nil {
		return err
	}
	tag, err := cc.Git.CreateReleaseTag(ctx, version, release.ID)
	if err != nil {
		return err
	}
	if err := cc.Git.Push(ctx, tag); err != nil {
		return err
	}
	if stamper.PublishesSpec() {
		if err := cc.Git.Checkout(ctx, tag); err != nil {
			return err
		}
		if err := stamper.PublishSpec(ctx, config.GetString(config.KeyPodRepo)); err != nil {
			return err
		}
	}
	if err := cc.Git.Checkout(ctx, current); err != nil {
		return err
	}

	labeler := cc.labeler()
	if err := labeler.Add(ctx, release, release.Name); err != nil {
		return err
	}
	return labelShipped(ctx, cc, release)
}

// placeVersionRelease puts the release after the previous unaccepted
// release, or before the first story in progress when it is the only one.
func placeVersionRelease(ctx context.Context, cc *CommandContext, release *pivotal.Story) error {
	open, err := cc.Tracker.Stories(ctx, cc.ProjectID, pivotal.StoryQuery{Filter: "current_state:unstarted type:release"})
	if err != nil {
		return err
	}
	found := false
	for _, st := range open {
		if st.ID == release.ID {
			found = true
			break
		}
	}
	if !found {
		open = append(open, *release)
	}

	var update pivotal.StoryUpdate
	if len(open) > 1 {
		prev := open[len(open)-2]
		if prev.ID == release.ID {
			return nil
		}
		update.AfterID = pivotal.Ptr(prev.ID)
	} else {
		active, err := cc.Tracker.Stories(ctx, cc.ProjectID, pivotal.StoryQuery{
			Filter: fmt.Sprintf("current_state:unstarted,started,finished,delivered,rejected -id:%d", release.ID),
			Limit:  1,
		})
		if err != nil {
			return err
		}
		if len(active) == 0 || active[0].ID == release.ID {
			return nil
		}
		update.BeforeID = pivotal.Ptr(active[0].ID)
	}
	_, err = cc.Tracker.UpdateStory(ctx, cc.ProjectID, release.ID, update)
	return err
}

// moveRejected moves rejected stories after the release so they ship later.
func moveRejected(ctx context.Context, cc *CommandContext, release *pivotal.Story) error {
	rejected, err := cc.Tracker.Stories(ctx, cc.ProjectID, pivotal.StoryQuery{
		Filter: "current_state:rejected type:bug,chore,feature",
	})
	if err != nil {
		return err
	}
	for _, st := range rejected {
		if st.ID == release.ID {
			continue
		}
		if _, err := cc.Tracker.UpdateStory(ctx, cc.ProjectID, st.ID, pivotal.StoryUpdate{AfterID: pivotal.Ptr(release.ID)}); err != nil {
			return err
		}
	}
	return nil
}

var (
	buildLabel   = regexp.MustCompile(`^b\d`)
	versionLabel = regexp.MustCompile(`^v\d`)
)

// unreleased reports whether a story was delivered in more builds than it
// has shipped in versions.
func unreleased(st *pivotal.Story) bool {
	builds, versions := 0, 0
	for _, name := range st.LabelNames() {
		switch {
		case buildLabel.MatchString(name):
			builds++
		case versionLabel.MatchString(name):
			versions++
		}
	}
	return builds > versions
}

// labelShipped adds the release label to the delivered stories that have
// not shipped in a version yet.
func labelShipped(ctx context.Context, cc *CommandContext, release *pivotal.Story) error {
	delivered, err := cc.Tracker.Stories(ctx, cc.ProjectID, pivotal.StoryQuery{
		Filter: fmt.Sprintf("current_state:delivered type:bug,chore,feature -id:%d", release.ID),
		Limit:  1000,
	})
	if err != nil {
		return err
	}
	cc.println("Included stories:")
	labeler := cc.labeler()
	for i := range delivered {
		st := &delivered[i]
		if !unreleased(st) {
			continue
		}
		cc.printf("%d\n", st.ID)
		if err := labeler.Add(ctx, st, release.Name); err != nil {
			return err
		}
	}
	return nil
}
