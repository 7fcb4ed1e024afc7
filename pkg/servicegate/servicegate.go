// Package servicegate holds the session broker agent service down while the
// host is enrolling, and releases it afterwards. Users cannot be brokered onto
// a host whose agent is stopped.
package servicegate

import (
	"context"
	"log/slog"
	"time"

	"github.com/kolide/hybridenroll/pkg/sleeper"
)

const (
	DefaultServiceName  = "RDAgentBootLoader"
	DefaultPollInterval = 5 * time.Second
)

type RunState int

const (
	StateUnknown RunState = iota
	StateStopped
	StatePending
	StateRunning
)

func (s RunState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	default:
		return "unknown"
	}
}

type StartMode int

const (
	StartAutomatic StartMode = iota
	StartDisabled
)

func (m StartMode) String() string {
	if m == StartDisabled {
		return "disabled"
	}
	return "automatic"
}

// Controller is the slice of the service control manager the gate needs. Every
// call is best effort; the gate only trusts what State reports afterwards.
type Controller interface {
	State(ctx context.Context) (RunState, error)
	SetStartMode(ctx context.Context, mode StartMode) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type Gate struct {
	slogger      *slog.Logger
	ctrl         Controller
	clk          sleeper.Clock
	pollInterval time.Duration
}

type Option func(*Gate)

func WithClock(clk sleeper.Clock) Option {
	return func(g *Gate) {
		g.clk = clk
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(g *Gate) {
		g.pollInterval = d
	}
}

func New(slogger *slog.Logger, ctrl Controller, opts ...Option) *Gate {
	g := &Gate{
		slogger:      slogger.With("component", "service_gate"),
		ctrl:         ctrl,
		clk:          sleeper.Default(),
		pollInterval: DefaultPollInterval,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

type target struct {
	name   string
	mode   StartMode
	want   RunState
	action func(context.Context) error
}

// Suppress disables and stops the service, and keeps doing so until it reports
// stopped. The service manager may race a start attempt against us, so both
// are reasserted on every poll. It only returns early on ctx cancellation.
func (g *Gate) Suppress(ctx context.Context) error {
	return g.converge(ctx, target{
		name:   "suppress",
		mode:   StartDisabled,
		want:   StateStopped,
		action: g.ctrl.Stop,
	})
}

// Restore is the inverse of Suppress: automatic start mode, started, confirmed
// running.
func (g *Gate) Restore(ctx context.Context) error {
	return g.converge(ctx, target{
		name:   "restore",
		mode:   StartAutomatic,
		want:   StateRunning,
		action: g.ctrl.Start,
	})
}

// IsRestored reports whether the service is running right now.
func (g *Gate) IsRestored(ctx context.Context) bool {
	state, err := g.ctrl.State(ctx)
	if err != nil {
		g.slogger.Log(ctx, slog.LevelWarn,
			"could not query service state",
			"err", err,
		)
		return false
	}

	return state == StateRunning
}

func (g *Gate) converge(ctx context.Context, t target) error {
	g.slogger.Log(ctx, slog.LevelInfo,
		"converging service",
		"operation", t.name,
		"start_mode", t.mode.String(),
		"want_state", t.want.String(),
	)

	for attempt := 1; ; attempt++ {
		if err := g.ctrl.SetStartMode(ctx, t.mode); err != nil {
			g.slogger.Log(ctx, slog.LevelWarn,
				"could not set service start mode",
				"operation", t.name,
				"start_mode", t.mode.String(),
				"attempt", attempt,
				"err", err,
			)
		}

		if err := t.action(ctx); err != nil {
			g.slogger.Log(ctx, slog.LevelDebug,
				"service control request returned error",
				"operation", t.name,
				"attempt", attempt,
				"err", err,
			)
		}

		state, err := g.ctrl.State(ctx)
		if err == nil && state == t.want {
			g.slogger.Log(ctx, slog.LevelInfo,
				"service reached desired state",
				"operation", t.name,
				"state", state.String(),
				"attempts", attempt,
			)
			return nil
		}

		g.slogger.Log(ctx, slog.LevelInfo,
			"service not yet in desired state",
			"operation", t.name,
			"state", state.String(),
			"want_state", t.want.String(),
			"attempt", attempt,
			"err", err,
		)

		if err := sleeper.Sleep(ctx, g.clk, g.pollInterval); err != nil {
			return err
		}
	}
}
