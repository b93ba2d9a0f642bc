package git

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/v2gpti/gpti/internal/shell"
	"github.com/v2gpti/gpti/internal/ui"
)

// ReleaseBranchName is the throwaway branch used while tagging a release.
const ReleaseBranchName = "pivotal-tracker-release"

var (
	// ErrNotTrivialMerge means the root branch advanced since the development
	// branch was created. The branch must be rebased before finishing.
	ErrNotTrivialMerge = errors.New("root branch has commits that are not in the development branch")

	// ErrNoRootBranch means the branch was not created by `start`.
	ErrNoRootBranch = errors.New("no root branch recorded for the current branch")

	// ErrUncommittedChanges means the working tree has changes `git status -s` reports.
	ErrUncommittedChanges = errors.New("there are uncommitted changes in the current branch")
)

// Workflow composes git commands into the per-story branch lifecycle.
// Every step stops at the first failing command; nothing is rolled back.
type Workflow struct {
	sh  shell.Executor
	cfg *ConfigStore
	out io.Writer
}

// NewWorkflow returns a Workflow. Progress lines go to out (nil disables them).
func NewWorkflow(sh shell.Executor, cfg *ConfigStore, out io.Writer) *Workflow {
	if out == nil {
		out = io.Discard
	}
	return &Workflow{sh: sh, cfg: cfg, out: out}
}

func (w *Workflow) git(ctx context.Context, args ...string) (string, error) {
	return w.sh.Exec(ctx, shell.Git(args...))
}

func (w *Workflow) begin(format string, args ...interface{}) {
	fmt.Fprint(w.out, ui.Progress(fmt.Sprintf(format, args...)))
}

func (w *Workflow) ok() {
	fmt.Fprintln(w.out, ui.OK())
}

// CurrentBranch returns the checked-out branch.
func (w *Workflow) CurrentBranch(ctx context.Context) (string, error) {
	return CurrentBranch(ctx, w.sh)
}

// RootBranch returns the branch the current branch was created from.
func (w *Workflow) RootBranch(ctx context.Context) (string, error) {
	root, err := w.cfg.Get(ctx, KeyRootBranch, ScopeBranch)
	if err != nil {
		return "", err
	}
	if root == "" {
		return "", ErrNoRootBranch
	}
	return root, nil
}

// CreateBranch pulls the current branch fast-forward-only, then creates and
// checks out name from it, recording the current branch and its remote as the
// new branch's root-branch and root-remote.
func (w *Workflow) CreateBranch(ctx context.Context, name string, printMessages bool) error {
	rootBranch, err := w.CurrentBranch(ctx)
	if err != nil {
		return err
	}
	rootRemote, err := w.cfg.Get(ctx, KeyRemote, ScopeBranch)
	if err != nil {
		return err
	}

	if printMessages {
		w.begin("Pulling %s", rootBranch)
	}
	if _, err := w.git(ctx, "pull", "--quiet", "--ff-only"); err != nil {
		return err
	}
	if printMessages {
		w.ok()
		w.begin("Creating and checking out %s", name)
	}
	if _, err := w.git(ctx, "checkout", "--quiet", "-b", name); err != nil {
		return err
	}
	if err := w.cfg.Set(ctx, KeyRootBranch, rootBranch, ScopeBranch); err != nil {
		return err
	}
	if rootRemote != "" {
		if err := w.cfg.Set(ctx, KeyRootRemote, rootRemote, ScopeBranch); err != nil {
			return err
		}
	}
	if printMessages {
		w.ok()
	}
	return nil
}

// IsTrivialMerge reports whether merging into the root would be trivial:
// the root tip must be exactly the merge base of root and development branch.
func IsTrivialMerge(rootTip, mergeBase string) bool {
	return rootTip == mergeBase
}

// TrivialMergeCheck refreshes the root branch and verifies that the current
// development branch descends from its tip. Returns ErrNotTrivialMerge otherwise.
func (w *Workflow) TrivialMergeCheck(ctx context.Context) error {
	dev, err := w.CurrentBranch(ctx)
	if err != nil {
		return err
	}
	root, err := w.RootBranch(ctx)
	if err != nil {
		return err
	}

	w.begin("Checking for trivial merge from %s to %s", dev, root)
	if _, err := w.git(ctx, "checkout", "--quiet", root); err != nil {
		return err
	}
	if _, err := w.git(ctx, "pull", "--quiet", "--ff-only"); err != nil {
		return err
	}
	if _, err := w.git(ctx, "checkout", "--quiet", dev); err != nil {
		return err
	}

	rootTip, err := w.git(ctx, "rev-parse", root)
	if err != nil {
		return err
	}
	base, err := w.git(ctx, "merge-base", root, dev)
	if err != nil {
		return err
	}
	if !IsTrivialMerge(rootTip, base) {
		fmt.Fprintln(w.out, "FAIL")
		return fmt.Errorf("%w: rebase %s onto %s first", ErrNotTrivialMerge, dev, root)
	}
	w.ok()
	return nil
}

// MergeMessage builds the merge commit message with the tracker trailer.
// With noComplete the trailer only references the story.
func MergeMessage(dev, root string, storyID int64, noComplete bool) string {
	verb := "Completes "
	if noComplete {
		verb = ""
	}
	return fmt.Sprintf("Merge %s to %s\n\n[%s#%d]", dev, root, verb, storyID)
}

// Merge merges the current branch into its root with --no-ff and deletes it.
func (w *Workflow) Merge(ctx context.Context, storyID int64, noComplete bool) error {
	dev, err := w.CurrentBranch(ctx)
	if err != nil {
		return err
	}
	root, err := w.RootBranch(ctx)
	if err != nil {
		return err
	}

	w.begin("Merging %s to %s", dev, root)
	if _, err := w.git(ctx, "checkout", "--quiet", root); err != nil {
		return err
	}
	if _, err := w.git(ctx, "merge", "--quiet", "--no-ff", "-m", MergeMessage(dev, root, storyID, noComplete), dev); err != nil {
		return err
	}
	w.ok()

	w.begin("Deleting %s", dev)
	if _, err := w.git(ctx, "branch", "--quiet", "-D", dev); err != nil {
		return err
	}
	w.ok()
	return nil
}

// CommitMessage appends the [#id] story trailer to message.
func CommitMessage(message string, storyID int64) string {
	return fmt.Sprintf("%s\n\n[#%d]", message, storyID)
}

// CreateCommit commits all tracked changes (allowing an empty commit).
func (w *Workflow) CreateCommit(ctx context.Context, message string, storyID int64) error {
	_, err := w.git(ctx, "commit", "--quiet", "--all", "--allow-empty", "--message", CommitMessage(message, storyID))
	return err
}

// CreateReleaseTag commits "<name> Release" on a throwaway branch, tags it
// v<name>, then returns to the original branch and drops the throwaway branch.
func (w *Workflow) CreateReleaseTag(ctx context.Context, name string, storyID int64) (string, error) {
	root, err := w.CurrentBranch(ctx)
	if err != nil {
		return "", err
	}
	tag := "v" + name

	w.begin("Creating tag %s", tag)
	if err := w.CreateBranch(ctx, ReleaseBranchName, false); err != nil {
		return "", err
	}
	if err := w.CreateCommit(ctx, name+" Release", storyID); err != nil {
		return "", err
	}
	if _, err := w.git(ctx, "tag", tag); err != nil {
		return "", err
	}
	if _, err := w.git(ctx, "checkout", "--quiet", root); err != nil {
		return "", err
	}
	if _, err := w.git(ctx, "branch", "--quiet", "-D", ReleaseBranchName); err != nil {
		return "", err
	}
	w.ok()
	return tag, nil
}

// Push pushes refs to the current branch's configured remote.
func (w *Workflow) Push(ctx context.Context, refs ...string) error {
	remote, err := w.cfg.Get(ctx, KeyRemote, ScopeBranch)
	if err != nil {
		return err
	}
	if remote == "" {
		remote = "origin"
	}

	w.begin("Pushing to %s", remote)
	args := append([]string{"push", "--quiet", remote}, refs...)
	if _, err := w.git(ctx, args...); err != nil {
		return err
	}
	w.ok()
	return nil
}

// HasUncommittedChanges reports whether `git status -s` lists anything.
func (w *Workflow) HasUncommittedChanges(ctx context.Context) (bool, error) {
	out, err := w.git(ctx, "status", "-s")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// RequireClean returns ErrUncommittedChanges when the working tree is dirty.
func (w *Workflow) RequireClean(ctx context.Context) error {
	dirty, err := w.HasUncommittedChanges(ctx)
	if err != nil {
		return err
	}
	if dirty {
		return ErrUncommittedChanges
	}
	return nil
}

// Checkout switches to branch.
func (w *Workflow) Checkout(ctx context.Context, branch string) error {
	_, err := w.git(ctx, "checkout", "--quiet", branch)
	return err
}

// Pull pulls the current branch.
func (w *Workflow) Pull(ctx context.Context) error {
	_, err := w.git(ctx, "pull", "--quiet")
	return err
}

// Fetch fetches from the default remote.
func (w *Workflow) Fetch(ctx context.Context) error {
	_, err := w.git(ctx, "fetch", "--quiet")
	return err
}

// ResetHard resets the current branch to ref.
func (w *Workflow) ResetHard(ctx context.Context, ref string) error {
	_, err := w.git(ctx, "reset", "--quiet", "--hard", ref)
	return err
}

// MergePreferTheirs merges ref into the current branch, resolving conflicts
// in favour of ref.
func (w *Workflow) MergePreferTheirs(ctx context.Context, ref string) error {
	_, err := w.git(ctx, "merge", "--quiet", "--no-edit", "-s", "recursive", "--strategy-option", "theirs", ref)
	return err
}

// PushCurrent pushes the current branch to its upstream.
func (w *Workflow) PushCurrent(ctx context.Context) error {
	_, err := w.git(ctx, "push", "--quiet")
	return err
}

// HeadSHA returns the abbreviated (7 char) commit id of HEAD.
func (w *Workflow) HeadSHA(ctx context.Context) (string, error) {
	out, err := w.git(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	sha := strings.TrimSpace(out)
	if len(sha) > 7 {
		sha = sha[:7]
	}
	return sha, nil
}
