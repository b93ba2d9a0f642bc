package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/v2gpti/gpti/internal/config"
	"github.com/v2gpti/gpti/internal/debug"
	"github.com/v2gpti/gpti/internal/git"
	"github.com/v2gpti/gpti/internal/pivotal"
	"github.com/v2gpti/gpti/internal/shell"
	"github.com/v2gpti/gpti/internal/story"
	"github.com/v2gpti/gpti/internal/telemetry"
	"github.com/v2gpti/gpti/internal/toggl"
	"github.com/v2gpti/gpti/internal/ui"
	"github.com/v2gpti/gpti/internal/versionupdate"
)

// errNoBranchStory means the checked-out branch has no story recorded.
var errNoBranchStory = errors.New("the current branch is not associated with a story")

// trackerAPI is the part of the Tracker client the commands use.
type trackerAPI interface {
	story.Tracker
	story.LabelTracker
	Me(ctx context.Context) (*pivotal.Person, error)
	Projects(ctx context.Context) ([]pivotal.Project, error)
	Project(ctx context.Context, projectID int64) (*pivotal.Project, error)
	Memberships(ctx context.Context, projectID int64) ([]pivotal.Membership, error)
	UpdateStory(ctx context.Context, projectID, storyID int64, update pivotal.StoryUpdate) (*pivotal.Story, error)
	AddComment(ctx context.Context, projectID, storyID int64, text string, attachments ...pivotal.FileAttachment) (*pivotal.Comment, error)
	UploadAttachment(ctx context.Context, projectID int64, path, contentType string) (*pivotal.FileAttachment, error)
}

var _ trackerAPI = (*pivotal.Client)(nil)

// CommandContext holds everything a command handler works with. It is
// built once per invocation; the preflight fills in the project half.
type CommandContext struct {
	Log      *slog.Logger
	Out      io.Writer
	Shell    shell.Executor
	Config   *git.ConfigStore
	Git      *git.Workflow
	Picker   ui.Picker
	Prompter ui.Prompter
	Now      func() time.Time
	LogPath  string
	Width    int

	// Set by preflight.
	Root        string
	Project     *config.ProjectConfig
	ProjectID   int64
	ProjectName string
	Tracker     trackerAPI
	Toggl       *toggl.Client

	newTracker func(token string) trackerAPI
	newToggl   func(token string) *toggl.Client
}

func newCommandContext(log *slog.Logger, out io.Writer, logPath string) *CommandContext {
	runner := shell.NewRunner()
	runner.Trace = func(c shell.Command) {
		log.Debug("exec", "cmd", c.String(), "dir", c.Dir)
		debug.Logf("exec: %s\n", c)
	}
	cfg := git.NewConfigStore(runner)
	return &CommandContext{
		Log:        log,
		Out:        out,
		Shell:      runner,
		Config:     cfg,
		Git:        git.NewWorkflow(runner, cfg, out),
		Picker:     ui.NewTerminalPicker(),
		Prompter:   ui.NewTerminalPrompter(),
		Now:        time.Now,
		LogPath:    logPath,
		Width:      ui.TerminalWidth(),
		newTracker: newTrackerClient,
		newToggl:   newTogglClient,
	}
}

func newTrackerClient(token string) trackerAPI {
	return pivotal.NewClient(token).
		WithBaseURL(config.GetString(config.KeyTrackerURL)).
		WithHTTPClient(&http.Client{Transport: telemetry.WrapTransport(nil, "tracker")})
}

func newTogglClient(token string) *toggl.Client {
	return toggl.NewClient(token).
		WithBaseURL(config.GetString(config.KeyTogglURL)).
		WithHTTPClient(&http.Client{Transport: telemetry.WrapTransport(nil, "toggl")})
}

func (cc *CommandContext) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(cc.Out, format, args...)
}

func (cc *CommandContext) println(args ...interface{}) {
	_, _ = fmt.Fprintln(cc.Out, args...)
}

// selector returns a story selector numbering version releases the
// configured way.
func (cc *CommandContext) selector() *story.Selector {
	s := story.NewSelector(cc.Tracker, cc.Picker, cc.Prompter, cc.Out)
	if config.GetString(config.KeyVersionStrategy) == config.VersionIncrement {
		s.WithVersionStrategy(story.IncrementVersion{})
	}
	return s
}

func (cc *CommandContext) labeler() *story.Labeler {
	return story.NewLabeler(cc.Tracker, cc.Out)
}

func (cc *CommandContext) stamper() *versionupdate.Stamper {
	return versionupdate.New(cc.Shell, versionupdate.Options{
		Root:             cc.Root,
		Platform:         cc.Project.PlatformName(),
		XcodeProjectPath: cc.Project.Project.XcodeProjectPath,
		SpecPath:         cc.Project.Spec.Path,
		Command:          cc.Project.Platform.VersionCommand,
	}, cc.Out)
}

// currentStory loads the story recorded for the checked-out branch.
func (cc *CommandContext) currentStory(ctx context.Context) (*pivotal.Story, error) {
	raw, err := cc.Config.Get(ctx, git.KeyStoryID, git.ScopeBranch)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, errNoBranchStory
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("branch story id %q: %w", raw, err)
	}
	return cc.Tracker.Story(ctx, cc.ProjectID, id)
}

// ensureBranch offers to check out want when another branch is current.
// With required set, declining is an error and the checkout is pulled.
func (cc *CommandContext) ensureBranch(ctx context.Context, want string, required bool) error {
	if want == "" {
		return nil
	}
	current, err := cc.Git.CurrentBranch(ctx)
	if err != nil {
		return err
	}
	if current == want {
		return nil
	}

	question := fmt.Sprintf("Your currently checked out branch is '%s'. Do you want to checkout '%s' before starting?", current, want)
	if required {
		question = fmt.Sprintf("Your currently checked out branch is '%s'. You must be on the %s branch to run this command.\n\n Do you want to checkout '%s' before starting?", current, want, want)
	}
	ok, err := cc.Prompter.Confirm(ctx, question, true)
	if err != nil {
		return err
	}
	if !ok {
		if required {
			return fmt.Errorf("you must be on the %s branch to run this command", want)
		}
		return nil
	}

	cc.printf("Checking out branch '%s'...\n\n", want)
	if err := cc.Git.Checkout(ctx, want); err != nil {
		return err
	}
	if !required {
		return nil
	}
	return cc.Git.Pull(ctx)
}

// fileExists reports whether path names an existing file.
func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
