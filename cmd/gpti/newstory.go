package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/v2gpti/gpti/internal/pivotal"
	"github.com/v2gpti/gpti/internal/ui"
)

type newStoryOptions struct {
	storyType string
	title     string
	icebox    bool
	backlog   bool
	top       bool
	bottom    bool
	// estimate is -1 when not given on the command line.
	estimate int
}

func newStoryCommand(storyType string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   fmt.Sprintf("new%s [title]", storyType),
		Short: fmt.Sprintf("Create a new %s story in the icebox or backlog", storyType),
		Args:  cobra.ArbitraryArgs,
		Run: func(cmd *cobra.Command, args []string) {
			opts := newStoryOptions{storyType: storyType, title: strings.Join(args, " ")}
			opts.icebox, _ = cmd.Flags().GetBool("icebox")
			opts.backlog, _ = cmd.Flags().GetBool("backlog")
			opts.top, _ = cmd.Flags().GetBool("top")
			opts.bottom, _ = cmd.Flags().GetBool("bottom")
			opts.estimate, _ = cmd.Flags().GetInt("points")
			runCommand(cmd, true, func(ctx context.Context, cc *CommandContext) error {
				return runNewStory(ctx, cc, opts)
			})
		},
	}
	cmd.Flags().BoolP("icebox", "i", false, "Create the story in the icebox (unscheduled)")
	cmd.Flags().BoolP("backlog", "b", false, "Create the story in the backlog (unstarted)")
	cmd.Flags().Bool("top", false, "Place the story before the first story in its state")
	cmd.Flags().Bool("bottom", false, "Place the story after the last story in its state")
	if storyType == pivotal.TypeFeature {
		cmd.Flags().IntP("points", "p", -1, "Estimate in points (0-3)")
	}
	return cmd
}

func init() {
	rootCmd.AddCommand(newStoryCommand(pivotal.TypeBug), newStoryCommand(pivotal.TypeFeature))
}

func runNewStory(ctx context.Context, cc *CommandContext, opts newStoryOptions) error {
	if opts.icebox && opts.backlog {
		return &usageError{msg: "--icebox and --backlog are exclusive", hint: "pick one of -i or -b"}
	}
	if opts.top && opts.bottom {
		return &usageError{msg: "--top and --bottom are exclusive", hint: "pick one of --top or --bottom"}
	}

	state := pivotal.StateUnstarted
	switch {
	case opts.icebox:
		state = pivotal.StateUnscheduled
	case opts.backlog:
	default:
		ok, err := cc.Prompter.Confirm(ctx, "Do you want to create this story in the icebox?", true)
		if err != nil {
			return err
		}
		if !ok {
			return ui.ErrQuit
		}
		state = pivotal.StateUnscheduled
	}

	title := strings.TrimSpace(opts.title)
	if title == "" {
		var err error
		if title, err = ui.AskRequired(ctx, cc.Prompter, "Please enter the title for the story"); err != nil {
			return err
		}
	}

	params := pivotal.StoryParams{
		Name:         title,
		StoryType:    opts.storyType,
		CurrentState: state,
	}
	if opts.storyType == pivotal.TypeFeature {
		if opts.estimate >= 0 {
			if _, ok := parseEstimate(fmt.Sprint(opts.estimate)); !ok {
				return &usageError{msg: fmt.Sprintf("invalid estimate %d", opts.estimate), hint: "points are 0, 1, 2 or 3"}
			}
			params.Estimate = pivotal.Ptr(opts.estimate)
		} else {
			estimate, err := askEstimate(ctx, cc.Prompter, true)
			if err != nil {
				return err
			}
			params.Estimate = estimate
		}
	}

	st, err := cc.Tracker.CreateStory(ctx, cc.ProjectID, params)
	if err != nil {
		return err
	}
	cc.Log.Info("story created", "story", st.ID, "type", st.StoryType, "state", state)

	if opts.top || opts.bottom {
		if err := placeNewStory(ctx, cc, st, opts.top); err != nil {
			return err
		}
	}
	cc.printf("A new %s story has been created successfully with ID:%d\n", opts.storyType, st.ID)
	return nil
}

// placeNewStory moves st before the first or after the last other story in
// its state.
func placeNewStory(ctx context.Context, cc *CommandContext, st *pivotal.Story, top bool) error {
	stories, err := cc.Tracker.Stories(ctx, cc.ProjectID, pivotal.StoryQuery{WithState: st.CurrentState})
	if err != nil {
		return err
	}
	others := stories[:0]
	for _, other := range stories {
		if other.ID != st.ID {
			others = append(others, other)
		}
	}
	if len(others) == 0 {
		return nil
	}

	var update pivotal.StoryUpdate
	if top {
		update.BeforeID = pivotal.Ptr(others[0].ID)
	} else {
		update.AfterID = pivotal.Ptr(others[len(others)-1].ID)
	}
	_, err = cc.Tracker.UpdateStory(ctx, cc.ProjectID, st.ID, update)
	return err
}
