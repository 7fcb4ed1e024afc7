package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/kolide/hybridenroll/pkg/log/filelogger"
	"github.com/kolide/hybridenroll/pkg/log/multislogger"
)

// setupLogging replaces the bootstrap handlers so logs go to stdout and are
// appended to the log file in opts.LogDir. The returned func puts the
// bootstrap handlers back and closes the file.
func setupLogging(systemMultiSlogger *multislogger.MultiSlogger, opts *options) func() {
	slogLevel := slog.LevelInfo
	if opts.Debug {
		slogLevel = slog.LevelDebug
	}

	fileLogger := filelogger.New(opts.LogDir, slogLevel)
	bootstrapHandlers := systemMultiSlogger.ReplaceHandlers(
		fileLogger.Handler(),
		slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slogLevel,
		}),
	)

	return func() {
		systemMultiSlogger.ReplaceHandlers(bootstrapHandlers...)
		if err := fileLogger.Close(); err != nil {
			systemMultiSlogger.Log(context.TODO(), slog.LevelWarn,
				"could not close log file",
				"err", err,
			)
		}
	}
}

func warnIfNotElevated(ctx context.Context, slogger *slog.Logger) {
	if isElevated() {
		return
	}

	slogger.Log(ctx, slog.LevelWarn,
		"not running elevated, registry and service changes will likely fail",
	)
}
