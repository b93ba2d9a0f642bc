package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/v2gpti/gpti/internal/config"
	"github.com/v2gpti/gpti/internal/git"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change gpti settings",
	Long: `Show or change gpti settings.

Settings live in ~/.config/gpti/config.yaml (or $GPTI_CONFIG) and can be
overridden with GPTI_* environment variables, e.g. GPTI_STORY_LIMIT=10.
The project file .v2gpti/config at the repository root is shown alongside.

Examples:
  gpti config show
  gpti config set membership-check warn
  gpti config set release.version-strategy increment
  gpti config set report.project-id 1234567`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the merged settings and the project file as YAML",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runCommand(cmd, false, runConfigShow)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Persist a setting",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runCommand(cmd, false, func(ctx context.Context, cc *CommandContext) error {
			return runConfigSet(cc, args[0], args[1])
		})
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}

type configView struct {
	Settings map[string]interface{} `yaml:"settings"`
	Project  *config.ProjectConfig  `yaml:"project,omitempty"`
}

func runConfigShow(ctx context.Context, cc *CommandContext) error {
	view := configView{Settings: config.AllSettings()}
	if root, err := git.RepositoryRoot(ctx, cc.Shell); err == nil {
		if p, err := config.LoadProject(root); err == nil {
			view.Project = p
		} else {
			cc.Log.Debug("no project file", "root", root, "error", err)
		}
	}

	enc := yaml.NewEncoder(cc.Out)
	enc.SetIndent(2)
	if err := enc.Encode(view); err != nil {
		return err
	}
	return enc.Close()
}

func runConfigSet(cc *CommandContext, key, value string) error {
	if !config.IsKnownKey(key) {
		return &usageError{
			msg:  fmt.Sprintf("unknown setting %q", key),
			hint: "known settings: " + strings.Join(config.Keys(), ", "),
		}
	}
	path, err := config.SaveSetting(key, value)
	if err != nil {
		return err
	}
	cc.Log.Info("setting saved", "key", key, "path", path)
	cc.printf("Set %s = %s (%s)\n", key, value, path)
	return nil
}
