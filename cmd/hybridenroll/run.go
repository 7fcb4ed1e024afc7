package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/kolide/hybridenroll/pkg/converge"
	"github.com/kolide/hybridenroll/pkg/enrollconfig"
	"github.com/kolide/hybridenroll/pkg/enrollverify"
	"github.com/kolide/hybridenroll/pkg/flagstore"
	"github.com/kolide/hybridenroll/pkg/joinstatus"
	"github.com/kolide/hybridenroll/pkg/log/multislogger"
	"github.com/kolide/hybridenroll/pkg/servicegate"
	"github.com/kolide/hybridenroll/pkg/sleeper"
	"github.com/kolide/kit/version"
	"github.com/oklog/run"
	"github.com/shirou/gopsutil/v4/host"
)

// runConverge performs one convergence pass, until reboot, verified
// enrollment, or a shutdown signal.
func runConverge(ctx context.Context, systemMultiSlogger *multislogger.MultiSlogger, args []string) (err error) {
	opts, err := parseOptions("run", args)
	if err != nil {
		logExit(ctx, systemMultiSlogger.Logger, "run", err)
		return err
	}

	closeLogs := setupLogging(systemMultiSlogger, opts)
	defer closeLogs()
	slogger := systemMultiSlogger.Logger
	defer func() {
		logExit(ctx, slogger, "run", err)
	}()

	slogger.Log(ctx, slog.LevelInfo,
		"hybridenroll started",
		"version", version.Version().Version,
		"mode", opts.Mode.String(),
		"flag_store", opts.FlagStore,
		"pid", os.Getpid(),
	)
	warnIfNotElevated(ctx, slogger)

	// Each boot starts a new pass; uptime ties a pass to the boot it follows.
	if uptimeSeconds, err := host.UptimeWithContext(ctx); err == nil {
		slogger.Log(ctx, slog.LevelInfo,
			"host uptime",
			"uptime", (time.Duration(uptimeSeconds) * time.Second).String(),
		)
	}

	kv, closeStore, err := openFlagStore(ctx, slogger, opts)
	defer closeStore()
	if err != nil {
		return err
	}

	loop := newLoop(slogger, flagstore.New(slogger, kv), opts)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var runGroup run.Group

	// listen for signals
	sigListener := newSignalListener(make(chan os.Signal, 1), cancel, slogger)
	runGroup.Add(sigListener.Execute, sigListener.Interrupt)

	// converge
	runGroup.Add(func() error {
		if opts.DelayStart > 0 {
			slogger.Log(ctx, slog.LevelInfo,
				"delaying start",
				"delay_start", opts.DelayStart.String(),
			)
			if err := sleeper.Sleep(ctx, sleeper.Default(), opts.DelayStart); err != nil {
				return err
			}
		}
		return loop.Run(ctx)
	}, func(error) {
		cancel()
	})

	if err := runGroup.Run(); err != nil {
		return fmt.Errorf("converging: %w", err)
	}

	return nil
}

func newLoop(slogger *slog.Logger, flags *flagstore.FlagStore, opts *options) *converge.Loop {
	gate := servicegate.New(slogger,
		servicegate.NewController(slogger, opts.ServiceName),
		servicegate.WithPollInterval(opts.GatePollInterval),
	)

	verifier := enrollverify.New(slogger,
		enrollverify.NewEventSource(slogger),
		enrollverify.WithChannel(opts.EventChannel),
		enrollverify.WithEventID(opts.EventID),
		enrollverify.WithPollInterval(opts.PollInterval),
	)

	configurator := enrollconfig.New(slogger,
		enrollconfig.NewRegistryValueStore(slogger),
		enrollconfig.WithTenantID(opts.TenantID),
	)

	return converge.New(slogger,
		flags,
		joinstatus.New(slogger),
		configurator,
		verifier,
		converge.NewRebooter(slogger),
		converge.WithMode(opts.Mode),
		converge.WithGate(gate),
		converge.WithPollInterval(opts.PollInterval),
		converge.WithJoinSettle(opts.JoinSettle),
		converge.WithRebootGrace(opts.RebootGrace),
		converge.WithRestoreGrace(opts.RestoreGrace),
	)
}
