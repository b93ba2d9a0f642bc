package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMain keeps settings discovery away from the developer's home directory.
func TestMain(m *testing.M) {
	tmp, err := os.MkdirTemp("", "gpti-config-tests-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create temp dir: %v\n", err)
		os.Exit(1)
	}
	oldWD, _ := os.Getwd()

	_ = os.Chdir(tmp)
	_ = os.Setenv("HOME", tmp)
	_ = os.Setenv("USERPROFILE", tmp)
	_ = os.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "xdg-config"))
	_ = os.Unsetenv("GPTI_CONFIG")
	ResetForTesting()

	code := m.Run()

	ResetForTesting()
	_ = os.Chdir(oldWD)
	_ = os.RemoveAll(tmp)
	os.Exit(code)
}

func TestDefaults(t *testing.T) {
	t.Setenv("GPTI_CONFIG", filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, Initialize())

	tests := []struct {
		key  string
		want interface{}
		get  func(string) interface{}
	}{
		{KeyRootBranch, "develop", func(k string) interface{} { return GetString(k) }},
		{KeyQABranch, "QA", func(k string) interface{} { return GetString(k) }},
		{KeyReleaseBranch, "master", func(k string) interface{} { return GetString(k) }},
		{KeyMembershipCheck, MembershipAbort, func(k string) interface{} { return GetString(k) }},
		{KeyVersionStrategy, VersionManual, func(k string) interface{} { return GetString(k) }},
		{KeyStoryLimit, 5, func(k string) interface{} { return GetInt(k) }},
		{KeyReleaseLimit, 10, func(k string) interface{} { return GetInt(k) }},
		{KeyReviewLabel, "need code review", func(k string) interface{} { return GetString(k) }},
		{KeyCheckPushDefault, true, func(k string) interface{} { return GetBool(k) }},
		{KeyTrackerURL, "https://www.pivotaltracker.com/services/v5", func(k string) interface{} { return GetString(k) }},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := tt.get(tt.key); got != tt.want {
				t.Errorf("%s = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestEnvironmentBinding(t *testing.T) {
	t.Setenv("GPTI_CONFIG", filepath.Join(t.TempDir(), "none.yaml"))
	t.Setenv("GPTI_STORY_LIMIT", "8")
	t.Setenv("GPTI_MEMBERSHIP_CHECK", "warn")
	t.Setenv("GPTI_RELEASE_VERSION_STRATEGY", "increment")
	require.NoError(t, Initialize())

	assert.Equal(t, 8, GetInt(KeyStoryLimit))
	assert.Equal(t, MembershipWarn, GetString(KeyMembershipCheck))
	assert.Equal(t, VersionIncrement, GetString(KeyVersionStrategy))
}

func TestSettingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("qa-branch: staging\nreport:\n  project-id: 99\n"), 0o600))
	t.Setenv("GPTI_CONFIG", path)
	require.NoError(t, Initialize())

	assert.Equal(t, "staging", GetString(KeyQABranch))
	assert.Equal(t, int64(99), GetInt64(KeyReportProjectID))
	assert.Equal(t, "develop", GetString(KeyRootBranch))
}

func TestSettingsPathUsesXDG(t *testing.T) {
	t.Setenv("GPTI_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	path, err := SettingsPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/cfg", "gpti", "config.yaml"), path)
}

func TestSaveSettingKeepsOtherKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	t.Setenv("GPTI_CONFIG", path)
	require.NoError(t, Initialize())

	_, err := SaveSetting(KeyQABranch, "staging")
	require.NoError(t, err)
	written, err := SaveSetting(KeyStoryLimit, "7")
	require.NoError(t, err)
	assert.Equal(t, path, written)

	require.NoError(t, Initialize())
	assert.Equal(t, "staging", GetString(KeyQABranch))
	assert.Equal(t, 7, GetInt(KeyStoryLimit))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "root-branch", "defaults must not be written")
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, 5, ParseValue("5"))
	assert.Equal(t, false, ParseValue("false"))
	assert.Equal(t, "develop", ParseValue("develop"))
	assert.Equal(t, "a: b", ParseValue("a: b"))
}

func TestGettersBeforeInitialize(t *testing.T) {
	ResetForTesting()
	defer ResetForTesting()

	assert.Empty(t, GetString(KeyRootBranch))
	assert.Zero(t, GetInt(KeyStoryLimit))
	assert.False(t, GetBool(KeyCheckPushDefault))
	assert.Empty(t, AllSettings())
	assert.False(t, IsKnownKey(KeyRootBranch))
}

func TestIsKnownKey(t *testing.T) {
	t.Setenv("GPTI_CONFIG", filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, Initialize())
	assert.True(t, IsKnownKey(KeyRootBranch))
	assert.True(t, IsKnownKey(KeyVersionStrategy))
	assert.False(t, IsKnownKey("no-such-key"))
}
