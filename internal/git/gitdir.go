// Package git wraps the git executable: configuration scopes, branch discovery,
// hooks, and the branch-per-story workflow (create, verify, merge, tag, push).
package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/v2gpti/gpti/internal/shell"
)

// CurrentBranch returns the name of the checked-out branch, taken from the
// line `git branch` marks with "* ".
func CurrentBranch(ctx context.Context, sh shell.Executor) (string, error) {
	out, err := sh.Exec(ctx, shell.Git("branch"))
	if err != nil {
		return "", fmt.Errorf("list branches: %w", err)
	}
	if name, ok := parseCurrentBranch(out); ok {
		return name, nil
	}
	return "", fmt.Errorf("no current branch in git branch output")
}

func parseCurrentBranch(out string) (string, bool) {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.HasPrefix(line, "* ") {
			return strings.TrimSpace(line[2:]), true
		}
	}
	return "", false
}

// GetGitDir returns the .git directory for the current repository.
// In a worktree .git is a file, so this asks git instead of joining paths.
func GetGitDir(ctx context.Context, sh shell.Executor) (string, error) {
	out, err := sh.Exec(ctx, shell.Git("rev-parse", "--git-dir"))
	if err != nil {
		return "", fmt.Errorf("not a git repository: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// GetGitHooksDir returns the hooks directory of the current repository.
func GetGitHooksDir(ctx context.Context, sh shell.Executor) (string, error) {
	gitDir, err := GetGitDir(ctx, sh)
	if err != nil {
		return "", err
	}
	return filepath.Join(gitDir, "hooks"), nil
}

// RepositoryRoot returns the top-level directory of the working tree.
func RepositoryRoot(ctx context.Context, sh shell.Executor) (string, error) {
	out, err := sh.Exec(ctx, shell.Git("rev-parse", "--show-toplevel"))
	if err != nil {
		return "", fmt.Errorf("current working directory is not in a git repository: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// InstallHook writes a hook script into the hooks directory. An existing hook
// is left alone unless overwrite is set. Reports whether the file was written.
func InstallHook(ctx context.Context, sh shell.Executor, name string, content []byte, overwrite bool) (bool, error) {
	hooksDir, err := GetGitHooksDir(ctx, sh)
	if err != nil {
		return false, err
	}
	hook := filepath.Join(hooksDir, name)
	if !overwrite {
		if _, err := os.Stat(hook); err == nil {
			return false, nil
		}
	}
	if err := os.MkdirAll(hooksDir, 0o755); err != nil {
		return false, fmt.Errorf("create hooks dir: %w", err)
	}
	// #nosec G306 - hooks must be executable
	if err := os.WriteFile(hook, content, 0o755); err != nil {
		return false, fmt.Errorf("write hook %s: %w", name, err)
	}
	return true, nil
}
