package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/v2gpti/gpti/internal/pivotal"
	"github.com/v2gpti/gpti/internal/ui"
)

var assignCmd = &cobra.Command{
	Use:   "assign [username]",
	Short: "Assign the current branch's story to a project member",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		username := ""
		if len(args) > 0 {
			username = args[0]
		}
		runCommand(cmd, true, func(ctx context.Context, cc *CommandContext) error {
			return runAssign(ctx, cc, username)
		})
	},
}

func init() {
	rootCmd.AddCommand(assignCmd)
}

func runAssign(ctx context.Context, cc *CommandContext, username string) error {
	st, err := cc.currentStory(ctx)
	if err != nil {
		return err
	}
	members, err := cc.Tracker.Memberships(ctx, cc.ProjectID)
	if err != nil {
		return err
	}

	owner := findMember(members, username)
	if owner == nil {
		menu := ui.NewMenu[*pivotal.Person](cc.Picker).SetPrompt("Choose an user from above list: ")
		for i := range members {
			menu.AddChoice(members[i].Person.Name, &members[i].Person)
		}
		if owner, err = menu.Choose(ctx); err != nil {
			return err
		}
	}

	if _, err := cc.Tracker.UpdateStory(ctx, cc.ProjectID, st.ID, pivotal.StoryUpdate{OwnerIDs: []int64{owner.ID}}); err != nil {
		return err
	}
	cc.println(fmt.Sprintf("Story assigned to %s", owner.Name))
	return nil
}

// findMember matches name against member names and usernames, ignoring case.
func findMember(members []pivotal.Membership, name string) *pivotal.Person {
	if name == "" {
		return nil
	}
	for i := range members {
		p := &members[i].Person
		if strings.EqualFold(p.Name, name) || strings.EqualFold(p.Username, name) {
			return p
		}
	}
	return nil
}
