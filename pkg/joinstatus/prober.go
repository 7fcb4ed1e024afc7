package joinstatus

import (
	"context"
	"log/slog"

	"github.com/kolide/hybridenroll/pkg/allowedcmd"
)

type dsregcmdProber struct {
	slogger *slog.Logger
	cmdFn   allowedcmd.AllowedCommandFunc
}

type Option func(*dsregcmdProber)

// WithCommand overrides the dsregcmd command constructor.
func WithCommand(cmdFn allowedcmd.AllowedCommandFunc) Option {
	return func(p *dsregcmdProber) {
		p.cmdFn = cmdFn
	}
}

func New(slogger *slog.Logger, opts ...Option) *dsregcmdProber {
	p := &dsregcmdProber{
		slogger: slogger.With("component", "join_status_prober"),
		cmdFn:   allowedcmd.Dsregcmd,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Probe never fails: a command that cannot run is logged and yields
// NeitherOrUnknown, the same as output that cannot be understood.
func (p *dsregcmdProber) Probe(ctx context.Context) JoinStatus {
	cmd, err := p.cmdFn(ctx, "/status")
	if err != nil {
		p.slogger.Log(ctx, slog.LevelWarn,
			"could not create dsregcmd command",
			"err", err,
		)
		return JoinStatus{State: NeitherOrUnknown}
	}

	out, err := cmd.Output()
	if err != nil {
		// dsregcmd output is still worth parsing when it exits non-zero
		p.slogger.Log(ctx, slog.LevelWarn,
			"dsregcmd /status returned error",
			"err", err,
		)
	}

	return ParseStatus(out)
}

// Join asks dsregcmd to attempt a join. It runs to completion but its outcome
// is deliberately not inspected; the next probe is the only judge.
func (p *dsregcmdProber) Join(ctx context.Context) {
	cmd, err := p.cmdFn(ctx, "/join")
	if err != nil {
		p.slogger.Log(ctx, slog.LevelWarn,
			"could not create dsregcmd command",
			"err", err,
		)
		return
	}

	out, err := cmd.CombinedOutput()
	p.slogger.Log(ctx, slog.LevelInfo,
		"ran dsregcmd /join",
		"output", string(out),
		"err", err,
	)
}
