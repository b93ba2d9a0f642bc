package main

import (
	"context"
	"fmt"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/v2gpti/gpti/internal/config"
	"github.com/v2gpti/gpti/internal/pivotal"
	"github.com/v2gpti/gpti/internal/toggl"
	"github.com/v2gpti/gpti/internal/ui"
	"github.com/v2gpti/gpti/internal/versionupdate"
)

type finishOptions struct {
	noComplete bool
	// started is a natural-language start time for the time entry.
	started string
}

var finishCmd = &cobra.Command{
	Use:   "finish",
	Short: "Merge the story branch into its root branch and push",
	Long: `Finish the story of the current branch: verify the merge is trivial, commit a
new build number, log the time spent, merge into the root branch with a
[Completes #id] trailer, delete the branch, push and request a code review.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		opts := finishOptions{}
		opts.noComplete, _ = cmd.Flags().GetBool("no-complete")
		opts.started, _ = cmd.Flags().GetString("started")
		runCommand(cmd, true, func(ctx context.Context, cc *CommandContext) error {
			return runFinish(ctx, cc, opts)
		})
	},
}

func init() {
	finishCmd.Flags().Bool("no-complete", false, "Reference the story in the merge commit without completing it")
	finishCmd.Flags().String("started", "", `When work began, e.g. "2 hours ago" or "9am" (default: now minus time spent)`)
	rootCmd.AddCommand(finishCmd)
}

func runFinish(ctx context.Context, cc *CommandContext, opts finishOptions) error {
	if err := cc.Git.RequireClean(ctx); err != nil {
		return err
	}
	var started time.Time
	if opts.started != "" {
		t, err := parseStarted(opts.started, cc.Now())
		if err != nil {
			return &usageError{msg: err.Error(), hint: `try --started "2 hours ago" or --started 9am`}
		}
		started = t
	}

	if err := cc.Git.TrivialMergeCheck(ctx); err != nil {
		return err
	}
	st, err := cc.currentStory(ctx)
	if err != nil {
		return err
	}

	if err := commitBuildNumber(ctx, cc, st); err != nil {
		return err
	}

	answer, err := ui.AskUntil(ctx, cc.Prompter, "How much time did you spend on this task? (example: 15m, 2.5h)", toggl.IsElapsed)
	if err != nil {
		return err
	}
	spent, err := toggl.ParseElapsed(answer)
	if err != nil {
		return err
	}
	logTime(ctx, cc, st, spent, started)

	if err := cc.Git.Merge(ctx, st.ID, opts.noComplete); err != nil {
		return err
	}
	branch, err := cc.Git.CurrentBranch(ctx)
	if err != nil {
		return err
	}
	if err := cc.Git.Push(ctx, branch); err != nil {
		return err
	}

	return cc.labeler().Add(ctx, st, config.GetString(config.KeyReviewLabel))
}

// commitBuildNumber stamps a fresh DEV build number and commits it.
func commitBuildNumber(ctx context.Context, cc *CommandContext, st *pivotal.Story) error {
	stamper := cc.stamper()
	build := stamper.BuildNumber(cc.Now())
	cc.printf("Build number: %s\n", build)
	if err := stamper.StampBuild(ctx, versionupdate.StageDev, build); err != nil {
		return err
	}
	return cc.Git.CreateCommit(ctx, "Update build number to "+build, st.ID)
}

// logTime books the time spent on Toggl. Failures are reported and the
// finish carries on.
func logTime(ctx context.Context, cc *CommandContext, st *pivotal.Story, spent time.Duration, started time.Time) {
	if cc.Toggl == nil {
		cc.Log.Info("time logging skipped", "reason", "no toggl api token")
		return
	}
	projectID, err := cc.Project.TogglProjectID()
	if err != nil || projectID == 0 {
		cc.Log.Info("time logging skipped", "reason", "no toggl project", "error", err)
		return
	}
	sha, err := cc.Git.HeadSHA(ctx)
	if err != nil {
		WarnError("Unable to log the time: %v", err)
		return
	}

	logger := toggl.NewTimeLogger(cc.Toggl, projectID, cc.Log)
	if _, err := logger.Log(ctx, toggl.Work{
		StoryID:   st.ID,
		StoryName: st.Name,
		StoryType: st.StoryType,
		Estimate:  st.Estimate,
		CommitSHA: sha,
		Spent:     spent,
		Start:     started,
	}); err != nil {
		cc.Log.Warn("time entry failed", "story", st.ID, "error", err)
		WarnError("Unable to log the time: %v", err)
	}
}

// parseStarted reads a start time such as "2 hours ago" relative to now.
func parseStarted(text string, now time.Time) (time.Time, error) {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	r, err := w.Parse(text, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("cannot parse start time %q: %w", text, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("cannot parse start time %q", text)
	}
	if r.Time.After(now) {
		return time.Time{}, fmt.Errorf("start time %q is in the future", text)
	}
	return r.Time, nil
}
