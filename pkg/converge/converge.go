// Package converge drives a host toward a hybrid-joined, MDM-enrolled state.
// A single Run is one pass: it returns after requesting a reboot, after
// enrollment is confirmed, or when ctx is canceled. The process is expected to
// be started again on every boot; persistent flags carry progress across
// reboots.
package converge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kolide/hybridenroll/pkg/enrollconfig"
	"github.com/kolide/hybridenroll/pkg/flagstore"
	"github.com/kolide/hybridenroll/pkg/joinstatus"
	"github.com/kolide/hybridenroll/pkg/log/multislogger"
	"github.com/kolide/hybridenroll/pkg/sleeper"
)

const (
	DefaultPollInterval = 30 * time.Second
	DefaultJoinSettle   = 60 * time.Second
	DefaultRebootGrace  = 120 * time.Second
	DefaultRestoreGrace = 180 * time.Second
)

// ErrRebootIssued is returned by Run once a reboot has been requested. Callers
// should exit cleanly and let the reboot proceed.
var ErrRebootIssued = errors.New("reboot issued")

type Flags interface {
	FlagExists(ctx context.Context, flag flagstore.Flag) bool
	SetFlag(ctx context.Context, flag flagstore.Flag) error
}

type Configurator interface {
	EnsureConfigured(ctx context.Context) ([]enrollconfig.EntryResult, error)
}

type Gate interface {
	Suppress(ctx context.Context) error
	Restore(ctx context.Context) error
	IsRestored(ctx context.Context) bool
}

type Verifier interface {
	AwaitSuccessSignal(ctx context.Context) error
}

// JoinPurpose is derived once per run from the join purpose marker.
type JoinPurpose int

const (
	DomainJoinedByPurpose JoinPurpose = iota
	CloudJoinedByPurpose
)

func (p JoinPurpose) String() string {
	if p == CloudJoinedByPurpose {
		return "cloud_joined_by_purpose"
	}
	return "domain_joined_by_purpose"
}

type Loop struct {
	slogger      *slog.Logger
	flags        Flags
	prober       joinstatus.Prober
	configurator Configurator
	verifier     Verifier
	rebooter     Rebooter
	gate         Gate
	clk          sleeper.Clock
	mode         Mode

	pollInterval time.Duration
	joinSettle   time.Duration
	rebootGrace  time.Duration
	restoreGrace time.Duration

	rebootIssued bool
}

type Option func(*Loop)

func WithMode(mode Mode) Option {
	return func(l *Loop) {
		l.mode = mode
	}
}

// WithGate sets the service gate. Required in ModeV2.
func WithGate(gate Gate) Option {
	return func(l *Loop) {
		l.gate = gate
	}
}

func WithClock(clk sleeper.Clock) Option {
	return func(l *Loop) {
		l.clk = clk
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(l *Loop) {
		l.pollInterval = d
	}
}

func WithJoinSettle(d time.Duration) Option {
	return func(l *Loop) {
		l.joinSettle = d
	}
}

func WithRebootGrace(d time.Duration) Option {
	return func(l *Loop) {
		l.rebootGrace = d
	}
}

func WithRestoreGrace(d time.Duration) Option {
	return func(l *Loop) {
		l.restoreGrace = d
	}
}

func New(slogger *slog.Logger, flags Flags, prober joinstatus.Prober, configurator Configurator, verifier Verifier, rebooter Rebooter, opts ...Option) *Loop {
	l := &Loop{
		slogger:      slogger.With("component", "converge"),
		flags:        flags,
		prober:       prober,
		configurator: configurator,
		verifier:     verifier,
		rebooter:     rebooter,
		clk:          sleeper.Default(),
		mode:         ModeV2,
		pollInterval: DefaultPollInterval,
		joinSettle:   DefaultJoinSettle,
		rebootGrace:  DefaultRebootGrace,
		restoreGrace: DefaultRestoreGrace,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Run performs one convergence pass. It returns ErrRebootIssued after a
// reboot request, nil once enrollment is verified, and ctx.Err() on cancel.
func (l *Loop) Run(ctx context.Context) error {
	if l.mode == ModeV2 && l.gate == nil {
		return errors.New("mode v2 requires a service gate")
	}

	l.slogger.Log(ctx, slog.LevelInfo,
		"starting convergence pass",
		"mode", l.mode.String(),
		"reboot_occurred", l.flags.FlagExists(ctx, flagstore.RebootOccurred),
	)

	purpose := DomainJoinedByPurpose
	if l.mode == ModeV2 {
		purpose = l.classifyJoinPurpose(ctx)
		if err := l.applyGate(ctx, purpose); err != nil {
			return err
		}
	}

	// Configuration problems never block the rest of the pass; a later boot
	// will try again.
	if _, err := l.configurator.EnsureConfigured(ctx); err != nil {
		l.slogger.Log(ctx, slog.LevelError,
			"could not ensure enrollment configuration",
			"err", err,
		)
	}

	switch {
	case purpose == CloudJoinedByPurpose:
		l.slogger.Log(ctx, slog.LevelInfo,
			"device is cloud joined by purpose, skipping hybrid join",
		)
	case l.flags.FlagExists(ctx, flagstore.RebootOccurred):
		l.slogger.Log(ctx, slog.LevelInfo,
			"post-join reboot already happened, skipping hybrid join",
		)
	default:
		if err := l.convergeJoin(ctx); err != nil {
			return err
		}
	}

	return l.verifyEnrollment(ctx)
}

func (l *Loop) classifyJoinPurpose(ctx context.Context) JoinPurpose {
	purpose := DomainJoinedByPurpose
	if l.flags.FlagExists(ctx, flagstore.CloudJoinPurpose) {
		purpose = CloudJoinedByPurpose
	}

	l.slogger.Log(ctx, slog.LevelInfo,
		"classified join purpose",
		"purpose", purpose.String(),
	)

	return purpose
}

func (l *Loop) applyGate(ctx context.Context, purpose JoinPurpose) error {
	if purpose == CloudJoinedByPurpose {
		if err := l.gate.Restore(ctx); err != nil {
			return fmt.Errorf("restoring dependent service: %w", err)
		}
		return nil
	}

	if err := l.gate.Suppress(ctx); err != nil {
		return fmt.Errorf("suppressing dependent service: %w", err)
	}
	return nil
}

// convergeJoin polls join status until the device is both domain and cloud
// joined, then reboots. It only returns with ErrRebootIssued, a reboot
// failure, or a ctx error.
func (l *Loop) convergeJoin(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		actx := context.WithValue(ctx, multislogger.AttemptKey, attempt)
		status := l.prober.Probe(actx)

		switch status.State {
		case joinstatus.BothJoined:
			return l.rebootOnce(actx)

		case joinstatus.DomainOnlyNotCloud:
			l.slogger.Log(actx, slog.LevelInfo,
				"device is domain joined but not cloud joined, requesting join",
			)
			l.prober.Join(actx)
			if err := sleeper.Sleep(actx, l.clk, l.joinSettle); err != nil {
				return err
			}

		default:
			l.slogger.Log(actx, slog.LevelInfo,
				"join state not yet determinable",
				"domain_joined", status.DomainJoined,
				"azure_ad_joined", status.AzureAdJoined,
			)
			if err := sleeper.Sleep(actx, l.clk, l.pollInterval); err != nil {
				return err
			}
		}
	}
}

func (l *Loop) rebootOnce(ctx context.Context) error {
	if l.rebootIssued {
		l.slogger.Log(ctx, slog.LevelWarn,
			"reboot already issued by this process, not issuing again",
		)
		return ErrRebootIssued
	}

	if !l.flags.FlagExists(ctx, flagstore.RebootOccurred) {
		// A failed write is logged by the flag store. The reboot still goes
		// ahead; the next boot re-probes, sees both joined, and lands here
		// again.
		_ = l.flags.SetFlag(ctx, flagstore.RebootOccurred)
	}

	l.slogger.Log(ctx, slog.LevelInfo,
		"device is hybrid joined, rebooting after grace period",
		"grace", l.rebootGrace.String(),
	)

	if err := sleeper.Sleep(ctx, l.clk, l.rebootGrace); err != nil {
		return err
	}

	for {
		err := l.rebooter.Reboot(ctx)
		if err == nil {
			l.rebootIssued = true
			return ErrRebootIssued
		}

		l.slogger.Log(ctx, slog.LevelError,
			"could not issue reboot, retrying",
			"err", err,
			"retry_in", l.pollInterval.String(),
		)

		if err := sleeper.Sleep(ctx, l.clk, l.pollInterval); err != nil {
			return err
		}
	}
}

func (l *Loop) verifyEnrollment(ctx context.Context) error {
	if err := l.verifier.AwaitSuccessSignal(ctx); err != nil {
		return fmt.Errorf("awaiting enrollment success: %w", err)
	}

	if l.mode == ModeV1 {
		l.slogger.Log(ctx, slog.LevelInfo,
			"mdm enrollment verified",
		)
		return nil
	}

	if err := l.flags.SetFlag(ctx, flagstore.EnrollmentVerified); err != nil {
		l.slogger.Log(ctx, slog.LevelError,
			"could not record enrollment verification, continuing",
			"err", err,
		)
	}

	if err := sleeper.Sleep(ctx, l.clk, l.restoreGrace); err != nil {
		return err
	}

	// Running state is checked rather than the flag so a crash partway through
	// a restore still converges on the next pass.
	if l.gate.IsRestored(ctx) {
		l.slogger.Log(ctx, slog.LevelInfo,
			"dependent service already running",
		)
		return nil
	}

	if err := l.gate.Restore(ctx); err != nil {
		return fmt.Errorf("restoring dependent service: %w", err)
	}

	l.slogger.Log(ctx, slog.LevelInfo,
		"mdm enrollment verified and dependent service restored",
	)

	return nil
}
