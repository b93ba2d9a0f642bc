package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/v2gpti/gpti/internal/config"
	"github.com/v2gpti/gpti/internal/debug"
	"github.com/v2gpti/gpti/internal/telemetry"
)

var (
	verboseFlag bool
	quietFlag   bool

	// Signal-aware context for graceful cancellation
	rootCtx    context.Context
	rootCancel context.CancelFunc

	cmdCtx    *CommandContext
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "gpti",
	Short: "gpti - git workflow glue for Pivotal Tracker and Toggl",
	Long: `gpti drives the branch-per-story workflow: start a story on a fresh branch,
finish it with a trivial merge and a time entry, deliver builds to QA and
cut version releases, keeping Pivotal Tracker in step at every stage.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupSignalContext()
		applyVerbosityFlags()
		if err := config.Initialize(); err != nil {
			WarnError("%v", err)
		}
		log, logPath := openLogger()
		initTelemetry()
		cmdCtx = newCommandContext(log, commandOutput(), logPath)
		log.Info("command started", "command", cmd.CommandPath(), "args", args)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		shutdown()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output")
}

func setupSignalContext() {
	rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// applyVerbosityFlags propagates --verbose and --quiet to the debug package.
func applyVerbosityFlags() {
	debug.SetVerbose(verboseFlag)
	debug.SetQuiet(quietFlag)
}

func commandOutput() io.Writer {
	if debug.IsQuiet() {
		return io.Discard
	}
	return os.Stdout
}

// openLogger opens the diagnostic log. A log that cannot be opened is
// replaced by a discarding logger; gpti still runs.
func openLogger() (*slog.Logger, string) {
	path := config.GetString(config.KeyLogFile)
	if path == "" {
		p, err := debug.DefaultLogPath()
		if err != nil {
			WarnError("%v", err)
			return debug.Discard(), ""
		}
		path = p
	}
	level := slog.LevelInfo
	if verboseFlag || debug.Enabled() {
		level = slog.LevelDebug
	}
	log, closer, err := debug.OpenLog(path, level)
	if err != nil {
		WarnError("cannot open log file: %v", err)
		return debug.Discard(), ""
	}
	logCloser = closer
	return log, path
}

func initTelemetry() {
	var w io.Writer = os.Stderr
	if f, ok := logCloser.(io.Writer); ok {
		w = f
	}
	on := telemetry.EnvEnabled() || config.GetBool(config.KeyTelemetry)
	if err := telemetry.Init(rootCtx, on, "gpti", Version, w); err != nil {
		WarnError("telemetry disabled: %v", err)
	}
}

// shutdown flushes telemetry, closes the log and releases the signal context.
func shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	telemetry.Shutdown(ctx)
	if logCloser != nil {
		_ = logCloser.Close()
		logCloser = nil
	}
	if rootCancel != nil {
		rootCancel()
	}
}

// exit runs shutdown before leaving; os.Exit skips PersistentPostRun.
func exit(code int) {
	shutdown()
	os.Exit(code)
}

// runCommand executes fn inside a command span. Commands that talk to the
// tracker run the preflight first. Errors are logged and mapped to an exit.
func runCommand(cmd *cobra.Command, tracker bool, fn func(ctx context.Context, cc *CommandContext) error) {
	ctx, span := telemetry.StartCommand(rootCtx, cmd.Name())
	err := func() error {
		if tracker {
			if err := cmdCtx.preflight(ctx); err != nil {
				return err
			}
		}
		return fn(ctx, cmdCtx)
	}()
	telemetry.EndCommand(span, err)
	if err != nil {
		cmdCtx.Log.Error("command failed", "command", cmd.Name(), "error", err)
	}
	exitOnError(err)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
