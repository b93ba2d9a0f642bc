package debug

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// LogFileName is the default log file in the user's home directory.
const LogFileName = ".v2gpti_local.log"

// RotateAfter is the age at which the log file is rotated.
const RotateAfter = 7 * 24 * time.Hour

// DefaultLogPath returns ~/.v2gpti_local.log.
func DefaultLogPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot locate home directory: %w", err)
	}
	return filepath.Join(home, LogFileName), nil
}

// RotatedName is the name a log file is moved to when rotated at t.
func RotatedName(path string, t time.Time) string {
	return path + "." + t.Format("20060102")
}

// rotate moves path aside when it was last written before now-RotateAfter.
// The caller holds the lock.
func rotate(path string, now time.Time) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if now.Sub(info.ModTime()) < RotateAfter {
		return nil
	}
	return os.Rename(path, RotatedName(path, now))
}

// OpenLog opens (rotating weekly) the log file at path and returns a text
// logger writing to it. Close the returned closer on exit.
func OpenLog(path string, level slog.Level) (*slog.Logger, io.Closer, error) {
	return openLog(path, level, time.Now())
}

func openLog(path string, level slog.Level, now time.Time) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return nil, nil, fmt.Errorf("failed to lock log file: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	if err := rotate(path, now); err != nil {
		return nil, nil, fmt.Errorf("failed to rotate log file: %w", err)
	}

	// #nosec G304 - path comes from settings
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	return logger, f, nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
