package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/v2gpti/gpti/internal/story"
)

const labelModeHint = "You need to specify mode first [add, remove, list, once], e.g. 'gpti label add to_qa'"

var labelCmd = &cobra.Command{
	Use:   "label add|remove|list|once [labels...]",
	Short: "Change the labels of the current branch's story",
	Long: `Change the labels of the story started on the current branch.

  add     attach the labels
  remove  detach the labels
  once    attach the labels and remove them from every other story
  list    print the story's labels`,
	Args: cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runCommand(cmd, true, func(ctx context.Context, cc *CommandContext) error {
			return runLabel(ctx, cc, args)
		})
	},
}

func init() {
	rootCmd.AddCommand(labelCmd)
}

func runLabel(ctx context.Context, cc *CommandContext, args []string) error {
	if len(args) == 0 {
		return &usageError{msg: "no label mode given", hint: labelModeHint}
	}
	mode, err := story.ParseLabelMode(args[0])
	if err != nil {
		return &usageError{msg: err.Error(), hint: labelModeHint}
	}
	labels := args[1:]
	if mode != story.LabelList && len(labels) == 0 {
		return &usageError{msg: "no labels given", hint: labelModeHint}
	}

	st, err := cc.currentStory(ctx)
	if errors.Is(err, errNoBranchStory) {
		return &usageError{msg: "You need to be on started story branch to add label to it!", hint: "start the story with 'gpti start' first"}
	}
	if err != nil {
		return err
	}
	return cc.labeler().Apply(ctx, st, mode, labels...)
}
