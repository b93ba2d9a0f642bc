package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/v2gpti/gpti/internal/config"
	"github.com/v2gpti/gpti/internal/git"
	"github.com/v2gpti/gpti/internal/pivotal"
	"github.com/v2gpti/gpti/internal/ui"
)

// reportLabel marks stories filed with `gpti report`.
const reportLabel = "userreported"

var errReportProject = errors.New("no project is configured to receive bug reports")

var reportCmd = &cobra.Command{
	Use:   `report "<title>"`,
	Short: "Report a bug in gpti, attaching the local log file",
	Args:  cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runCommand(cmd, true, func(ctx context.Context, cc *CommandContext) error {
			return runReport(ctx, cc, args)
		})
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func runReport(ctx context.Context, cc *CommandContext, args []string) error {
	if len(args) != 1 {
		return &usageError{msg: "report needs exactly one title argument", hint: `gpti report "<title>"`}
	}
	title := args[0]

	description, err := ui.AskRequired(ctx, cc.Prompter, "Description of bug:")
	if err != nil {
		return err
	}
	user, err := cc.Config.Get(ctx, "user.name", git.ScopeInherited)
	if err != nil {
		return err
	}
	email, err := cc.Config.Get(ctx, "user.email", git.ScopeInherited)
	if err != nil {
		return err
	}

	projectID := config.GetInt64(config.KeyReportProjectID)
	if projectID == 0 {
		return errReportProject
	}

	var attachments []pivotal.FileAttachment
	if fileExists(cc.LogPath) {
		a, err := cc.Tracker.UploadAttachment(ctx, projectID, cc.LogPath, "text/plain")
		if err != nil {
			return err
		}
		attachments = append(attachments, *a)
	} else {
		WarnError("no log file at %s, the report is sent without it", cc.LogPath)
	}

	params := pivotal.StoryParams{
		Name:        fmt.Sprintf("User Reported - %s - %s", user, title),
		StoryType:   pivotal.TypeBug,
		Description: fmt.Sprintf("%s\n%s\n%s", cc.ProjectName, email, description),
		Labels:      []pivotal.Label{{Name: reportLabel}},
	}
	if owner := config.GetInt64(config.KeyReportOwnerID); owner > 0 {
		params.OwnerIDs = []int64{owner}
	}
	st, err := cc.Tracker.CreateStory(ctx, projectID, params)
	if err != nil {
		return err
	}
	cc.Log.Info("bug reported", "project", projectID, "story", st.ID)

	if len(attachments) > 0 {
		if _, err := cc.Tracker.AddComment(ctx, projectID, st.ID, "Log file", attachments...); err != nil {
			return err
		}
	}
	cc.printf("Bug report #%d has been filed. Thank you!\n", st.ID)
	return nil
}
