package main

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/v2gpti/gpti/internal/config"
	"github.com/v2gpti/gpti/internal/git"
	"github.com/v2gpti/gpti/internal/pivotal"
	"github.com/v2gpti/gpti/internal/story"
	"github.com/v2gpti/gpti/internal/ui"
)

//go:embed templates/prepare-commit-msg
var prepareCommitMsgHook []byte

// askStoryType is the --new value meaning "ask which type".
const askStoryType = "?"

var storyTypeKeys = map[string]string{
	"f": pivotal.TypeFeature,
	"b": pivotal.TypeBug,
	"c": pivotal.TypeChore,
}

type startOptions struct {
	filter string
	// newType is f, b, c or askStoryType to create a story; empty selects one.
	newType string
}

var startCmd = &cobra.Command{
	Use:   "start [story-id | feature | bug | chore]",
	Short: "Start a story on a new development branch",
	Long: `Start a story: pick it (by id, by type or from a menu), create a branch
named after it from the current branch, and mark it started and owned by you.

With --new a story is created first.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		opts := startOptions{}
		if len(args) > 0 {
			opts.filter = args[0]
		}
		opts.newType, _ = cmd.Flags().GetString("new")
		runCommand(cmd, true, func(ctx context.Context, cc *CommandContext) error {
			return runStart(ctx, cc, opts)
		})
	},
}

func init() {
	startCmd.Flags().StringP("new", "n", "", "Create a new story of type f (feature), b (bug) or c (chore)")
	startCmd.Flags().Lookup("new").NoOptDefVal = askStoryType
	rootCmd.AddCommand(startCmd)
}

func runStart(ctx context.Context, cc *CommandContext, opts startOptions) error {
	if err := cc.ensureBranch(ctx, config.GetString(config.KeyRootBranch), false); err != nil {
		return err
	}

	var (
		st  *pivotal.Story
		err error
	)
	if opts.newType != "" {
		st, err = createStartStory(ctx, cc, opts.newType)
	} else {
		st, err = cc.selector().Select(ctx, cc.ProjectID, opts.filter, config.GetInt(config.KeyStoryLimit))
	}
	if err != nil {
		return err
	}
	cc.Log.Info("story selected", "story", st.ID, "type", st.StoryType)

	if st.StoryType == pivotal.TypeFeature && !st.IsEstimated() {
		estimate, err := askEstimate(ctx, cc.Prompter, false)
		if err != nil {
			return err
		}
		if st, err = cc.Tracker.UpdateStory(ctx, cc.ProjectID, st.ID, pivotal.StoryUpdate{Estimate: estimate}); err != nil {
			return err
		}
	}

	story.PrettyPrint(cc.Out, st, cc.Width)

	branch, err := askBranchName(ctx, cc.Prompter, st)
	if err != nil {
		return err
	}
	if err := cc.Git.CreateBranch(ctx, branch, true); err != nil {
		return err
	}
	if err := cc.Config.Set(ctx, git.KeyStoryID, strconv.FormatInt(st.ID, 10), git.ScopeBranch); err != nil {
		return err
	}
	if _, err := git.InstallHook(ctx, cc.Shell, "prepare-commit-msg", prepareCommitMsgHook, false); err != nil {
		WarnError("unable to install the prepare-commit-msg hook: %v", err)
	}

	return startOnTracker(ctx, cc, st)
}

// createStartStory asks for the details of a new unstarted story.
func createStartStory(ctx context.Context, cc *CommandContext, key string) (*pivotal.Story, error) {
	storyType, ok := storyTypeKeys[strings.ToLower(key)]
	if !ok {
		answer, err := ui.AskUntil(ctx, cc.Prompter, "Please enter f for feature, b for bug, or c for chore", func(s string) bool {
			_, ok := storyTypeKeys[strings.ToLower(s)]
			return ok
		})
		if err != nil {
			return nil, err
		}
		storyType = storyTypeKeys[strings.ToLower(answer)]
	}

	title, err := ui.AskRequired(ctx, cc.Prompter, fmt.Sprintf("Please enter the title for this %s.", storyType))
	if err != nil {
		return nil, err
	}
	params := pivotal.StoryParams{
		Name:         title,
		StoryType:    storyType,
		CurrentState: pivotal.StateUnstarted,
	}
	if storyType == pivotal.TypeFeature {
		if params.Estimate, err = askEstimate(ctx, cc.Prompter, false); err != nil {
			return nil, err
		}
	}
	return cc.Tracker.CreateStory(ctx, cc.ProjectID, params)
}

// parseEstimate accepts the point values 0 to 3.
func parseEstimate(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 || n > 3 {
		return 0, false
	}
	return n, true
}

// askEstimate asks for story points. With skippable set, "n" returns nil.
func askEstimate(ctx context.Context, p ui.Prompter, skippable bool) (*int, error) {
	question := "Please enter the estimate points(0/1/2/3) for this story."
	if skippable {
		question = "Please enter the estimate points(0/1/2/3) for this story, or n to skip."
	}
	answer, err := ui.AskUntil(ctx, p, question, func(s string) bool {
		if skippable && strings.EqualFold(s, "n") {
			return true
		}
		_, ok := parseEstimate(s)
		return ok
	})
	if err != nil {
		return nil, err
	}
	n, ok := parseEstimate(answer)
	if !ok {
		return nil, nil
	}
	return &n, nil
}

// askBranchName asks for a branch suffix, offering one derived from the
// story name.
func askBranchName(ctx context.Context, p ui.Prompter, st *pivotal.Story) (string, error) {
	suggested := story.SuggestBranchSuffix(st.Name)
	suffix, err := p.Ask(ctx, fmt.Sprintf("Enter branch name (%d-<%s>): ", st.ID, suggested))
	if err != nil {
		return "", err
	}
	if suffix = strings.TrimSpace(suffix); suffix == "" {
		suffix = suggested
	}
	return story.BranchName(st.ID, suffix), nil
}

// startOnTracker marks the story started and owned by the current user.
func startOnTracker(ctx context.Context, cc *CommandContext, st *pivotal.Story) error {
	cc.printf("Starting story on Pivotal Tracker... ")
	me, err := cc.Tracker.Me(ctx)
	if err != nil {
		return err
	}
	if _, err := cc.Tracker.UpdateStory(ctx, cc.ProjectID, st.ID, pivotal.StoryUpdate{
		CurrentState: pivotal.Ptr(pivotal.StateStarted),
		OwnerIDs:     []int64{me.ID},
	}); err != nil {
		return err
	}
	cc.println(ui.OK())
	return nil
}
