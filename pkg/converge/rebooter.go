package converge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kolide/hybridenroll/pkg/allowedcmd"
)

// Rebooter restarts the host.
type Rebooter interface {
	Reboot(ctx context.Context) error
}

type shutdownRebooter struct {
	slogger *slog.Logger
	cmdFn   allowedcmd.AllowedCommandFunc
}

type RebooterOption func(*shutdownRebooter)

func WithRebootCommand(cmdFn allowedcmd.AllowedCommandFunc) RebooterOption {
	return func(r *shutdownRebooter) {
		r.cmdFn = cmdFn
	}
}

// NewRebooter reboots immediately and forcibly via shutdown.exe.
func NewRebooter(slogger *slog.Logger, opts ...RebooterOption) *shutdownRebooter {
	r := &shutdownRebooter{
		slogger: slogger.With("component", "rebooter"),
		cmdFn:   allowedcmd.Shutdown,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *shutdownRebooter) Reboot(ctx context.Context) error {
	cmd, err := r.cmdFn(ctx, "/r", "/f", "/t", "0")
	if err != nil {
		return fmt.Errorf("creating shutdown command: %w", err)
	}

	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("running %s: output %q: %w", cmd.String(), string(out), err)
	}

	r.slogger.Log(ctx, slog.LevelInfo,
		"reboot requested",
		"cmd", cmd.String(),
	)

	return nil
}
