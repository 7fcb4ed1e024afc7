package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/kolide/hybridenroll/pkg/enrollconfig"
	"github.com/kolide/hybridenroll/pkg/enrollverify"
	"github.com/kolide/hybridenroll/pkg/flagstore"
	"github.com/kolide/hybridenroll/pkg/joinstatus"
	"github.com/kolide/hybridenroll/pkg/log/multislogger"
	"github.com/kolide/hybridenroll/pkg/servicegate"
	"github.com/kolide/hybridenroll/pkg/wmi"
	"github.com/shirou/gopsutil/v4/host"
)

type (
	flagChecker interface {
		FlagExists(ctx context.Context, flag flagstore.Flag) bool
	}

	configInspector interface {
		Inspect(ctx context.Context) ([]enrollconfig.EntryResult, error)
	}

	serviceStater interface {
		State(ctx context.Context) (servicegate.RunState, error)
	}

	eventChecker interface {
		Check(ctx context.Context) bool
	}

	uptimeFunc func(ctx context.Context) (uint64, error)

	membershipFunc func(ctx context.Context) (wmi.DomainMembership, error)

	// statusSources is everything the status report reads from.
	statusSources struct {
		flags      flagChecker
		prober     joinstatus.Prober
		inspector  configInspector
		service    serviceStater
		events     eventChecker
		uptime     uptimeFunc
		membership membershipFunc
	}
)

// runStatus prints what a convergence pass would see, without changing
// anything on the host.
func runStatus(ctx context.Context, systemMultiSlogger *multislogger.MultiSlogger, args []string) error {
	opts, err := parseOptions("status", args)
	if err != nil {
		return err
	}

	// Keep diagnostics off stdout so the report stays readable.
	slogger := systemMultiSlogger.Logger

	kv, closeStore, err := openFlagStore(ctx, slogger, opts)
	defer closeStore()
	if err != nil {
		return err
	}

	return writeStatus(ctx, os.Stdout, opts, statusSources{
		flags:     flagstore.New(slogger, kv),
		prober:    joinstatus.New(slogger),
		inspector: enrollconfig.New(slogger, enrollconfig.NewRegistryValueStore(slogger), enrollconfig.WithTenantID(opts.TenantID)),
		service:   servicegate.NewController(slogger, opts.ServiceName),
		events: enrollverify.New(slogger,
			enrollverify.NewEventSource(slogger),
			enrollverify.WithChannel(opts.EventChannel),
			enrollverify.WithEventID(opts.EventID),
		),
		uptime: host.UptimeWithContext,
		membership: func(ctx context.Context) (wmi.DomainMembership, error) {
			return wmi.QueryDomainMembership(ctx, slogger)
		},
	})
}

func writeStatus(ctx context.Context, out io.Writer, opts *options, src statusSources) error {
	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)

	fmt.Fprintf(w, "mode\t%s\n", opts.Mode.String())
	fmt.Fprintf(w, "flag store\t%s\n", opts.FlagStore)

	if uptimeSeconds, err := src.uptime(ctx); err != nil {
		fmt.Fprintf(w, "uptime\terror: %s\n", err)
	} else {
		fmt.Fprintf(w, "uptime\t%s\n", (time.Duration(uptimeSeconds) * time.Second).String())
	}

	for _, flag := range []flagstore.Flag{flagstore.RebootOccurred, flagstore.EnrollmentVerified, flagstore.CloudJoinPurpose} {
		fmt.Fprintf(w, "flag %s\t%s\n", flag.String(), presence(src.flags.FlagExists(ctx, flag)))
	}

	status := src.prober.Probe(ctx)
	fmt.Fprintf(w, "join state\t%s (DomainJoined=%q AzureAdJoined=%q)\n", status.State.String(), status.DomainJoined, status.AzureAdJoined)

	if m, err := src.membership(ctx); err != nil {
		fmt.Fprintf(w, "wmi domain\terror: %s\n", err)
	} else {
		fmt.Fprintf(w, "wmi domain\t%s (PartOfDomain=%t)\n", m.Domain, m.PartOfDomain)
	}

	results, err := src.inspector.Inspect(ctx)
	if err != nil {
		fmt.Fprintf(w, "enrollment config\terror: %s\n", err)
	}
	for _, r := range results {
		state := "ok"
		switch {
		case r.Outcome == enrollconfig.Failed:
			state = "unreadable"
		case r.Outcome == enrollconfig.Corrected && !r.Existed:
			state = "missing"
		case r.Outcome == enrollconfig.Corrected:
			state = fmt.Sprintf("wrong (%q)", r.Previous)
		}
		fmt.Fprintf(w, "config %s\t%s\n", r.Name, state)
	}

	runState, err := src.service.State(ctx)
	if err != nil {
		fmt.Fprintf(w, "service %s\terror: %s\n", opts.ServiceName, err)
	} else {
		fmt.Fprintf(w, "service %s\t%s\n", opts.ServiceName, runState.String())
	}

	fmt.Fprintf(w, "enrollment event %d\t%s\n", opts.EventID, presence(src.events.Check(ctx)))

	return w.Flush()
}

func presence(b bool) string {
	if b {
		return "present"
	}
	return "absent"
}
