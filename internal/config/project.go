package config

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/v2gpti/gpti/internal/ui"
)

// Project file location, relative to the repository root.
const (
	ProjectDir  = ".v2gpti"
	ProjectFile = "config"
)

// Platforms.
const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
	PlatformRubyGem = "ruby-gem"
	PlatformOthers  = "others"
)

// Platforms lists the accepted platform-name values.
var Platforms = []string{PlatformIOS, PlatformAndroid, PlatformRubyGem, PlatformOthers}

//go:embed template.toml
var projectTemplate []byte

// ProjectConfig is the committed per-repository configuration. Values are
// kept as strings so that an unfilled template stays valid.
type ProjectConfig struct {
	PivotalTracker struct {
		ProjectID string `toml:"project-id" yaml:"project-id"`
	} `toml:"pivotal-tracker" yaml:"pivotal-tracker"`

	Platform struct {
		Name           string `toml:"platform-name" yaml:"platform-name"`
		VersionCommand string `toml:"version-command" yaml:"version-command"`
	} `toml:"platform" yaml:"platform"`

	Project struct {
		Name             string `toml:"project-name" yaml:"project-name"`
		Manager          string `toml:"project-manager" yaml:"project-manager"`
		ManagerEmail     string `toml:"project-manager-email" yaml:"project-manager-email"`
		XcodeProjectPath string `toml:"xcode-project-path" yaml:"xcode-project-path"`
	} `toml:"project" yaml:"project"`

	Toggl struct {
		ProjectID string `toml:"project-id" yaml:"project-id"`
	} `toml:"toggl" yaml:"toggl"`

	Spec struct {
		Path string `toml:"spec-path" yaml:"spec-path"`
	} `toml:"spec" yaml:"spec"`
}

// TrackerProjectID parses pivotal-tracker.project-id.
func (c *ProjectConfig) TrackerProjectID() (int64, error) {
	return parseProjectID("pivotal-tracker.project-id", c.PivotalTracker.ProjectID)
}

// TogglProjectID parses toggl.project-id. Zero means time logging is off.
func (c *ProjectConfig) TogglProjectID() (int64, error) {
	if strings.TrimSpace(c.Toggl.ProjectID) == "" {
		return 0, nil
	}
	return parseProjectID("toggl.project-id", c.Toggl.ProjectID)
}

func parseProjectID(key, s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, s)
	}
	return id, nil
}

// PlatformName returns the lower-cased platform name.
func (c *ProjectConfig) PlatformName() string {
	return strings.ToLower(strings.TrimSpace(c.Platform.Name))
}

// IsPlatform reports whether name is an accepted platform.
func IsPlatform(name string) bool {
	for _, p := range Platforms {
		if p == name {
			return true
		}
	}
	return false
}

type projectField struct {
	key      string
	question string
	value    *string
}

func (c *ProjectConfig) optionalFields() []projectField {
	return []projectField{
		{"project.project-name", "Project name", &c.Project.Name},
		{"project.project-manager", "Project manager name", &c.Project.Manager},
		{"project.project-manager-email", "Project manager email", &c.Project.ManagerEmail},
		{"project.xcode-project-path", "Xcode project path (iOS only)", &c.Project.XcodeProjectPath},
		{"toggl.project-id", "Toggl project ID", &c.Toggl.ProjectID},
		{"spec.spec-path", "Gem or pod spec path", &c.Spec.Path},
		{"platform.version-command", "Version stamping command", &c.Platform.VersionCommand},
	}
}

// ProjectPath returns the project file path under root.
func ProjectPath(root string) string {
	return filepath.Join(root, ProjectDir, ProjectFile)
}

// LoadProject reads the project file under root.
func LoadProject(root string) (*ProjectConfig, error) {
	path := ProjectPath(root)
	data, err := os.ReadFile(path) // #nosec G304 -- path is under the repository root
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var cfg ProjectConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// SaveProject writes cfg to the project file under root.
func SaveProject(root string, cfg *ProjectConfig) error {
	path := ProjectPath(root)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", ProjectDir, err)
	}
	f, err := os.Create(path) // #nosec G304 -- path is under the repository root
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}

// EnsureProject loads the project file under root, creating it from the
// template when missing, and asks for mandatory values that are empty or
// invalid. On first creation every optional value is offered as well; a blank
// answer skips it. Answers are written back to the file.
func EnsureProject(ctx context.Context, root string, p ui.Prompter, out io.Writer) (*ProjectConfig, error) {
	if out == nil {
		out = io.Discard
	}
	path := ProjectPath(root)
	created := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", ProjectDir, err)
		}
		if err := os.WriteFile(path, projectTemplate, 0o644); err != nil { // #nosec G306 -- committed project file
			return nil, fmt.Errorf("create %s: %w", path, err)
		}
		fmt.Fprintf(out, "Created %s\n", filepath.Join(ProjectDir, ProjectFile))
		created = true
	}

	cfg, err := LoadProject(root)
	if err != nil {
		return nil, err
	}

	changed := false
	if _, err := cfg.TrackerProjectID(); err != nil {
		id, err := ui.AskUntil(ctx, p, "Pivotal Tracker project ID:", func(s string) bool {
			_, err := parseProjectID("", s)
			return err == nil
		})
		if err != nil {
			return nil, err
		}
		cfg.PivotalTracker.ProjectID = id
		changed = true
	}
	if !IsPlatform(cfg.PlatformName()) {
		name, err := ui.AskUntil(ctx, p, "Platform name (ios, android, ruby-gem or others):", func(s string) bool {
			return IsPlatform(strings.ToLower(s))
		})
		if err != nil {
			return nil, err
		}
		cfg.Platform.Name = strings.ToLower(name)
		changed = true
	}

	if created {
		for _, f := range cfg.optionalFields() {
			if *f.value != "" {
				continue
			}
			answer, err := p.Ask(ctx, f.question+" (blank to skip):")
			if err != nil {
				return nil, err
			}
			if answer = strings.TrimSpace(answer); answer != "" {
				*f.value = answer
				changed = true
			}
		}
	}

	if changed {
		if err := SaveProject(root, cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
