// Package config holds gpti's tool settings (viper) and the per-repository
// project file (.v2gpti/config).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/v2gpti/gpti/internal/pivotal"
	"github.com/v2gpti/gpti/internal/toggl"
)

// EnvPrefix is prepended to setting names when read from the environment:
// story-limit is GPTI_STORY_LIMIT.
const EnvPrefix = "GPTI"

// Setting keys.
const (
	KeyTrackerURL       = "tracker-url"
	KeyTogglURL         = "toggl-url"
	KeyLogFile          = "log-file"
	KeyRootBranch       = "root-branch"
	KeyQABranch         = "qa-branch"
	KeyReleaseBranch    = "release-branch"
	KeyMembershipCheck  = "membership-check"
	KeyVersionStrategy  = "release.version-strategy"
	KeyPodRepo          = "release.pod-repo"
	KeyReportProjectID  = "report.project-id"
	KeyReportOwnerID    = "report.owner-id"
	KeyStoryLimit       = "story-limit"
	KeyReleaseLimit     = "release-limit"
	KeyReviewLabel      = "review-label"
	KeyCheckPushDefault = "check-push-default"
	KeyTelemetry        = "telemetry"
)

// Membership policies.
const (
	MembershipAbort = "abort"
	MembershipWarn  = "warn"
)

// Version strategies for version releases.
const (
	VersionManual    = "manual"
	VersionIncrement = "increment"
)

var v *viper.Viper

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyTrackerURL, pivotal.DefaultAPIEndpoint)
	v.SetDefault(KeyTogglURL, toggl.DefaultAPIEndpoint)
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyRootBranch, "develop")
	v.SetDefault(KeyQABranch, "QA")
	v.SetDefault(KeyReleaseBranch, "master")
	v.SetDefault(KeyMembershipCheck, MembershipAbort)
	v.SetDefault(KeyVersionStrategy, VersionManual)
	v.SetDefault(KeyPodRepo, "V2PodSpecs")
	v.SetDefault(KeyReportProjectID, 0)
	v.SetDefault(KeyReportOwnerID, 0)
	v.SetDefault(KeyStoryLimit, 5)
	v.SetDefault(KeyReleaseLimit, 10)
	v.SetDefault(KeyReviewLabel, "need code review")
	v.SetDefault(KeyCheckPushDefault, true)
	v.SetDefault(KeyTelemetry, false)
}

// SettingsPath returns the settings file: $GPTI_CONFIG when set, otherwise
// config.yaml under $XDG_CONFIG_HOME/gpti or ~/.config/gpti.
func SettingsPath() (string, error) {
	if p := os.Getenv(EnvPrefix + "_CONFIG"); p != "" {
		return p, nil
	}
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot locate home directory: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "gpti", "config.yaml"), nil
}

// Initialize builds the settings store from defaults, the settings file and
// GPTI_* environment variables. A missing settings file is not an error.
func Initialize() error {
	nv := viper.New()
	nv.SetConfigType("yaml")
	nv.SetEnvPrefix(EnvPrefix)
	nv.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	nv.AutomaticEnv()
	setDefaults(nv)

	path, err := SettingsPath()
	if err != nil {
		return err
	}
	nv.SetConfigFile(path)
	if _, err := os.Stat(path); err == nil {
		if err := nv.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	v = nv
	return nil
}

// ResetForTesting drops the settings store so the next Initialize starts clean.
func ResetForTesting() {
	v = nil
}

func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

func GetInt(key string) int {
	if v == nil {
		return 0
	}
	return v.GetInt(key)
}

func GetInt64(key string) int64 {
	if v == nil {
		return 0
	}
	return v.GetInt64(key)
}

func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

// Set overrides a setting for the current process only.
func Set(key string, value interface{}) {
	if v != nil {
		v.Set(key, value)
	}
}

// AllSettings returns the merged settings.
func AllSettings() map[string]interface{} {
	if v == nil {
		return map[string]interface{}{}
	}
	return v.AllSettings()
}

// Keys returns every known setting key, sorted.
func Keys() []string {
	if v == nil {
		return nil
	}
	keys := v.AllKeys()
	sort.Strings(keys)
	return keys
}

// IsKnownKey reports whether key has a default.
func IsKnownKey(key string) bool {
	for _, k := range Keys() {
		if k == key {
			return true
		}
	}
	return false
}

// ParseValue turns a command-line value into a typed setting so that "5"
// is stored as a number and "false" as a boolean.
func ParseValue(raw string) interface{} {
	var out interface{}
	if err := yaml.Unmarshal([]byte(raw), &out); err != nil || out == nil {
		return raw
	}
	switch out.(type) {
	case string, bool, int, float64:
		return out
	}
	return raw
}

// SaveSetting writes key to the settings file, leaving other keys as they
// are, and applies it to the current process.
func SaveSetting(key, raw string) (string, error) {
	path, err := SettingsPath()
	if err != nil {
		return "", err
	}
	value := ParseValue(raw)

	fv := viper.New()
	fv.SetConfigType("yaml")
	fv.SetConfigFile(path)
	if _, err := os.Stat(path); err == nil {
		if err := fv.ReadInConfig(); err != nil {
			return "", fmt.Errorf("failed to read %s: %w", path, err)
		}
	}
	fv.Set(key, value)

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("failed to create settings directory: %w", err)
	}
	if err := fv.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	Set(key, value)
	return path, nil
}
