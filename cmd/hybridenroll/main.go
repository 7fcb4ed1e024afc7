package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/kolide/hybridenroll/pkg/converge"
	"github.com/kolide/hybridenroll/pkg/log/multislogger"
	"github.com/kolide/kit/version"
)

func main() {
	// stderr only until options are parsed and the log file is opened
	systemMultiSlogger := multislogger.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	ctx := context.WithValue(context.Background(), multislogger.RunIdKey, uuid.NewString())

	subcommand, args := splitSubcommand(os.Args[1:])

	var err error
	switch subcommand {
	case "run":
		err = runConverge(ctx, systemMultiSlogger, args)
	case "status":
		err = runStatus(ctx, systemMultiSlogger, args)
	case "version":
		version.PrintFull()
	default:
		usage(os.Stderr)
		err = fmt.Errorf("unknown subcommand %q", subcommand)
	}

	// run logs its own exit while the log file is still open
	if subcommand != "run" {
		logExit(ctx, systemMultiSlogger.Logger, subcommand, err)
	}

	os.Exit(exitCode(err))
}

// splitSubcommand treats a leading non-flag argument as the subcommand name.
func splitSubcommand(args []string) (string, []string) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return "run", args
	}
	return args[0], args[1:]
}

// exitCode maps the result of a subcommand to the process exit code. A
// requested reboot and a signal-driven shutdown are both clean exits.
func exitCode(err error) int {
	switch {
	case err == nil, IsInfoCmd(err),
		errors.Is(err, converge.ErrRebootIssued),
		errors.Is(err, context.Canceled):
		return 0
	default:
		return 1
	}
}

func logExit(ctx context.Context, slogger *slog.Logger, subcommand string, err error) {
	switch {
	case err == nil, IsInfoCmd(err):
		return
	case errors.Is(err, converge.ErrRebootIssued):
		slogger.Log(ctx, slog.LevelInfo,
			"exiting for reboot",
		)
	case errors.Is(err, context.Canceled):
		slogger.Log(ctx, slog.LevelInfo,
			"exiting after shutdown request",
		)
	default:
		slogger.Log(ctx, slog.LevelError,
			"exiting with error",
			"subcommand", subcommand,
			"err", err,
		)
	}
}
