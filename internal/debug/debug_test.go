package debug

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stderr
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stderr = w
	fn()
	_ = w.Close()
	os.Stderr = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

func resetModes(t *testing.T) {
	t.Helper()
	oldEnabled, oldVerbose, oldQuiet := enabled, verboseMode, quietMode
	t.Cleanup(func() {
		enabled, verboseMode, quietMode = oldEnabled, oldVerbose, oldQuiet
	})
	enabled, verboseMode, quietMode = false, false, false
}

func TestEnabled(t *testing.T) {
	resetModes(t)
	if Enabled() {
		t.Error("Enabled() = true with nothing set")
	}
	SetVerbose(true)
	if !Enabled() {
		t.Error("Enabled() = false with verbose set")
	}
	SetVerbose(false)
	enabled = true
	if !Enabled() {
		t.Error("Enabled() = false with GPTI_DEBUG set")
	}
}

func TestLogf(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		want    string
	}{
		{"outputs when verbose", true, "fetching story 42\n"},
		{"silent otherwise", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetModes(t)
			SetVerbose(tt.verbose)
			got := captureStderr(t, func() { Logf("fetching story %d\n", 42) })
			if got != tt.want {
				t.Errorf("Logf() output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSetQuiet(t *testing.T) {
	resetModes(t)
	if IsQuiet() {
		t.Fatal("IsQuiet() = true with nothing set")
	}
	SetQuiet(true)
	if !IsQuiet() {
		t.Error("IsQuiet() = false after SetQuiet(true)")
	}
}

func TestOpenLogWritesRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gpti.log")

	logger, closer, err := OpenLog(path, slog.LevelInfo)
	if err != nil {
		t.Fatalf("OpenLog() error = %v", err)
	}
	logger.Info("story started", "story", 42)
	logger.Debug("not written")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	if !strings.Contains(text, `msg="story started" story=42`) {
		t.Errorf("log missing record: %q", text)
	}
	if strings.Contains(text, "not written") {
		t.Errorf("debug record written at info level: %q", text)
	}
}

func TestOpenLogRotatesWeekly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gpti.log")
	if err := os.WriteFile(path, []byte("old\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	now := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	stale := now.Add(-RotateAfter - time.Hour)
	if err := os.Chtimes(path, stale, stale); err != nil {
		t.Fatal(err)
	}

	_, closer, err := openLog(path, slog.LevelInfo, now)
	if err != nil {
		t.Fatalf("openLog() error = %v", err)
	}
	defer closer.Close()

	rotated := filepath.Join(dir, "gpti.log.20240315")
	data, err := os.ReadFile(rotated)
	if err != nil {
		t.Fatalf("rotated file missing: %v", err)
	}
	if string(data) != "old\n" {
		t.Errorf("rotated content = %q", data)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 0 {
		t.Errorf("fresh log size = %d, want 0", info.Size())
	}
}

func TestOpenLogKeepsRecentFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gpti.log")
	if err := os.WriteFile(path, []byte("recent\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, closer, err := openLog(path, slog.LevelInfo, time.Now().Add(24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	defer closer.Close()

	data, _ := os.ReadFile(path)
	if string(data) != "recent\n" {
		t.Errorf("recent log was rotated, content = %q", data)
	}
}

func TestRotatedName(t *testing.T) {
	got := RotatedName("/home/a/.v2gpti_local.log", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	if got != "/home/a/.v2gpti_local.log.20240102" {
		t.Errorf("RotatedName() = %q", got)
	}
}
