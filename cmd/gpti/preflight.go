package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/v2gpti/gpti/internal/config"
	"github.com/v2gpti/gpti/internal/git"
	"github.com/v2gpti/gpti/internal/ui"
)

// git config keys holding credentials and the tracker project.
const (
	keyTrackerToken     = "pivotal.api-token"
	keyTrackerProjectID = "pivotal.project-id"
	keyTogglToken       = "toggl.api-token"
	keyPushDefault      = "push.default"
)

var errNoMembership = errors.New("no access to the Pivotal Tracker project")

// preflight prepares a tracker command: it checks the git setup, ensures the
// project file, connects to the tracker and verifies membership.
func (cc *CommandContext) preflight(ctx context.Context) error {
	if config.GetBool(config.KeyCheckPushDefault) {
		if err := cc.checkPushDefault(ctx); err != nil {
			return err
		}
	}

	root, err := git.RepositoryRoot(ctx, cc.Shell)
	if err != nil {
		return err
	}
	cc.Root = root

	project, err := config.EnsureProject(ctx, root, cc.Prompter, cc.Out)
	if err != nil {
		return err
	}
	cc.Project = project
	if cc.ProjectID, err = project.TrackerProjectID(); err != nil {
		return err
	}
	if err := cc.rememberProjectID(ctx); err != nil {
		return err
	}

	token, err := cc.trackerToken(ctx)
	if err != nil {
		return err
	}
	cc.Tracker = cc.newTracker(token)

	if err := cc.checkMembership(ctx); err != nil {
		return err
	}
	p, err := cc.Tracker.Project(ctx, cc.ProjectID)
	if err != nil {
		return err
	}
	cc.ProjectName = p.Name

	if t, _ := cc.Config.Get(ctx, keyTogglToken, git.ScopeInherited); t != "" {
		cc.Toggl = cc.newToggl(t)
	}
	cc.Log.Debug("preflight done", "root", root, "project", cc.ProjectID, "platform", project.PlatformName(), "toggl", cc.Toggl != nil)
	return nil
}

// checkPushDefault makes `git push` push only the current branch.
func (cc *CommandContext) checkPushDefault(ctx context.Context) error {
	current, err := cc.Config.Get(ctx, keyPushDefault, git.ScopeGlobal)
	if err != nil {
		return err
	}
	if current == "simple" {
		return nil
	}
	cc.println("git config --global push.default simple")
	return cc.Config.Set(ctx, keyPushDefault, "simple", git.ScopeGlobal)
}

// rememberProjectID mirrors the project id into the repository's git config
// so git aliases and hooks can read it.
func (cc *CommandContext) rememberProjectID(ctx context.Context) error {
	id := strconv.FormatInt(cc.ProjectID, 10)
	stored, err := cc.Config.Get(ctx, keyTrackerProjectID, git.ScopeLocal)
	if err != nil || stored == id {
		return err
	}
	return cc.Config.Set(ctx, keyTrackerProjectID, id, git.ScopeLocal)
}

// trackerToken returns the API token, asking for it and storing it globally
// on first use.
func (cc *CommandContext) trackerToken(ctx context.Context) (string, error) {
	token, err := cc.Config.Get(ctx, keyTrackerToken, git.ScopeInherited)
	if err != nil || token != "" {
		return token, err
	}
	token, err = ui.AskRequired(ctx, cc.Prompter, "Pivotal API Token (found at https://www.pivotaltracker.com/profile):")
	if err != nil {
		return "", err
	}
	if err := cc.Config.Set(ctx, keyTrackerToken, token, git.ScopeGlobal); err != nil {
		return "", err
	}
	return token, nil
}

func membershipMessage(p *config.ProjectConfig, projectID int64) string {
	return fmt.Sprintf("This project requires access to the Pivotal Tracker project [%s - %d]. "+
		"Please speak with project manager [%s - %s] and ask to be added to the project in Pivotal Tracker.",
		p.Project.Name, projectID, p.Project.Manager, p.Project.ManagerEmail)
}

// checkMembership verifies the user can see the configured project. The
// membership-check setting decides whether a missing membership aborts.
func (cc *CommandContext) checkMembership(ctx context.Context) error {
	projects, err := cc.Tracker.Projects(ctx)
	if err != nil {
		return err
	}
	for _, p := range projects {
		if p.ID == cc.ProjectID {
			return nil
		}
	}

	msg := membershipMessage(cc.Project, cc.ProjectID)
	if config.GetString(config.KeyMembershipCheck) == config.MembershipWarn {
		cc.Log.Warn("not a project member", "project", cc.ProjectID)
		WarnError("%s", msg)
		return nil
	}
	return fmt.Errorf("%w: %s", errNoMembership, msg)
}
