package main

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v2gpti/gpti/internal/config"
	"github.com/v2gpti/gpti/internal/pivotal"
)

func TestReport(t *testing.T) {
	withSetting(t, config.KeyReportProjectID, 555)
	withSetting(t, config.KeyReportOwnerID, 66)
	env := newTestEnv(t, "develop")
	env.repo.set("user.name", "Dana")
	env.repo.set("user.email", "dana@example.com")
	require.NoError(t, os.WriteFile(env.cc.LogPath, []byte("log"), 0o600))
	env.script.Answer("", "It crashes on start")

	require.NoError(t, runReport(context.Background(), env.cc, []string{"Crash"}))

	require.Len(t, env.tracker.created, 1)
	created := env.tracker.created[0]
	assert.Equal(t, "User Reported - Dana - Crash", created.Name)
	assert.Equal(t, pivotal.TypeBug, created.StoryType)
	assert.Equal(t, "Demo\ndana@example.com\nIt crashes on start", created.Description)
	assert.Equal(t, []int64{66}, created.OwnerIDs)
	assert.Equal(t, []pivotal.Label{{Name: reportLabel}}, created.Labels)

	assert.Equal(t, []string{env.cc.LogPath}, env.tracker.uploads)
	assert.Equal(t, []string{"1001 Log file (1 attachments)"}, env.tracker.comments)
	assert.Contains(t, env.out.String(), "#1001")
}

func TestReportWithoutLogFile(t *testing.T) {
	withSetting(t, config.KeyReportProjectID, 555)
	env := newTestEnv(t, "develop")
	env.script.Answer("Broken")

	require.NoError(t, runReport(context.Background(), env.cc, []string{"Crash"}))
	assert.Empty(t, env.tracker.uploads)
	assert.Empty(t, env.tracker.comments)
	require.Len(t, env.tracker.created, 1)
	assert.Nil(t, env.tracker.created[0].OwnerIDs)
}

func TestReportNeedsProject(t *testing.T) {
	env := newTestEnv(t, "develop")
	env.script.Answer("Broken")

	err := runReport(context.Background(), env.cc, []string{"Crash"})
	assert.True(t, errors.Is(err, errReportProject), "err = %v", err)
	assert.Empty(t, env.tracker.created)
}

func TestReportNeedsOneTitle(t *testing.T) {
	env := newTestEnv(t, "develop")
	for _, args := range [][]string{nil, {"a", "b"}} {
		err := runReport(context.Background(), env.cc, args)
		var usage *usageError
		require.True(t, errors.As(err, &usage), "args %v: err = %v", args, err)
		assert.Equal(t, `gpti report "<title>"`, usage.hint)
	}
	assert.Empty(t, env.script.Questions)
}
