package main

import (
	"context"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/v2gpti/gpti/internal/pivotal"
	"github.com/v2gpti/gpti/internal/ui"
)

// markStates are the states a story can be moved to with `gpti mark`.
var markStates = []string{
	pivotal.StateUnstarted,
	pivotal.StateStarted,
	pivotal.StateFinished,
	pivotal.StateDelivered,
	pivotal.StateRejected,
	pivotal.StateAccepted,
}

var markCmd = &cobra.Command{
	Use:   "mark [state]",
	Short: "Set the state of the current branch's story",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		state := ""
		if len(args) > 0 {
			state = args[0]
		}
		runCommand(cmd, true, func(ctx context.Context, cc *CommandContext) error {
			return runMark(ctx, cc, state)
		})
	},
}

func init() {
	rootCmd.AddCommand(markCmd)
}

func runMark(ctx context.Context, cc *CommandContext, state string) error {
	st, err := cc.currentStory(ctx)
	if err != nil {
		return err
	}

	state = strings.ToLower(state)
	if !slices.Contains(markStates, state) {
		menu := ui.NewMenu[string](cc.Picker).SetPrompt("Choose story state from above list: ")
		for _, s := range markStates {
			menu.AddChoice(s, s)
		}
		if state, err = menu.Choose(ctx); err != nil {
			return err
		}
	}

	if _, err := cc.Tracker.UpdateStory(ctx, cc.ProjectID, st.ID, pivotal.StoryUpdate{CurrentState: pivotal.Ptr(state)}); err != nil {
		return err
	}
	cc.printf("Changed state to %s\n", state)
	return nil
}
