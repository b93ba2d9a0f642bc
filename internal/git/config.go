package git

import (
	"context"
	"fmt"
	"strings"

	"github.com/v2gpti/gpti/internal/shell"
)

// Scope selects which git configuration file a key is read from or written to.
type Scope int

const (
	// ScopeInherited reads the effective value (git config <key>). Read-only.
	ScopeInherited Scope = iota
	// ScopeBranch namespaces the key under the checked-out branch:
	// branch.<current-branch>.<key> in the repository config.
	ScopeBranch
	// ScopeLocal is the repository config (.git/config).
	ScopeLocal
	// ScopeGlobal is the user's ~/.gitconfig.
	ScopeGlobal
)

func (s Scope) String() string {
	switch s {
	case ScopeInherited:
		return "inherited"
	case ScopeBranch:
		return "branch"
	case ScopeLocal:
		return "local"
	case ScopeGlobal:
		return "global"
	}
	return fmt.Sprintf("Scope(%d)", int(s))
}

// Branch-scoped keys written by the workflow.
const (
	KeyRemote     = "remote"
	KeyRootBranch = "root-branch"
	KeyRootRemote = "root-remote"
	KeyStoryID    = "pivotal-story-id"
)

// ConfigStore reads and writes string settings through `git config`.
type ConfigStore struct {
	sh shell.Executor
}

// NewConfigStore returns a ConfigStore backed by sh.
func NewConfigStore(sh shell.Executor) *ConfigStore {
	return &ConfigStore{sh: sh}
}

// Get returns the value of key at scope, or "" when it is unset.
// An error is returned only when the current branch cannot be determined
// for ScopeBranch. An unknown scope panics.
func (c *ConfigStore) Get(ctx context.Context, key string, scope Scope) (string, error) {
	var args []string
	switch scope {
	case ScopeInherited:
		args = []string{"config", key}
	case ScopeLocal:
		args = []string{"config", "--local", key}
	case ScopeGlobal:
		args = []string{"config", "--global", key}
	case ScopeBranch:
		branch, err := CurrentBranch(ctx, c.sh)
		if err != nil {
			return "", err
		}
		args = []string{"config", branchKey(branch, key)}
	default:
		panic(fmt.Sprintf("git: unable to get configuration for scope %s", scope))
	}

	// git config exits 1 for missing keys; that is "unset", not a failure.
	out := c.sh.ExecAllowFailure(ctx, shell.Git(args...))
	return strings.TrimSpace(out), nil
}

// Set writes key=value at scope. ScopeInherited (or any unknown scope) panics.
func (c *ConfigStore) Set(ctx context.Context, key, value string, scope Scope) error {
	var args []string
	switch scope {
	case ScopeLocal:
		args = []string{"config", "--local", key, value}
	case ScopeGlobal:
		args = []string{"config", "--global", key, value}
	case ScopeBranch:
		branch, err := CurrentBranch(ctx, c.sh)
		if err != nil {
			return err
		}
		args = []string{"config", "--local", branchKey(branch, key), value}
	default:
		panic(fmt.Sprintf("git: unable to set configuration for scope %s", scope))
	}

	if _, err := c.sh.Exec(ctx, shell.Git(args...)); err != nil {
		return fmt.Errorf("set %s (%s): %w", key, scope, err)
	}
	return nil
}

func branchKey(branch, key string) string {
	return "branch." + branch + "." + key
}
