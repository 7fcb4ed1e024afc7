package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/kolide/hybridenroll/pkg/converge"
	"github.com/kolide/hybridenroll/pkg/enrollverify"
	"github.com/kolide/hybridenroll/pkg/servicegate"
	"github.com/kolide/kit/version"
	"github.com/peterbourgon/ff/v3"
)

// skip environmental variable parsing on windows
const skipEnvParse = runtime.GOOS == "windows"

// options is the set of configurable options that may be set when running
// hybridenroll
type options struct {
	// RootDirectory holds the bbolt flag store and, unless LogDir is set, the log file.
	RootDirectory string
	// LogDir is where hybridenroll.log is written.
	LogDir string
	// FlagStore selects the persistent flag backend: registry or bbolt.
	FlagStore string
	// RegistryPath is the HKLM key holding flags when FlagStore is registry.
	RegistryPath string

	// Mode is v1 (join and verify only) or v2 (also gate the dependent service).
	Mode converge.Mode
	// ServiceName is the dependent service gated in v2.
	ServiceName string
	// TenantID pins the TenantInfo subkey to configure. Empty means discover it.
	TenantID string
	// EventChannel and EventID identify the enrollment success event.
	EventChannel string
	EventID      int

	PollInterval     time.Duration
	JoinSettle       time.Duration
	RebootGrace      time.Duration
	RestoreGrace     time.Duration
	GatePollInterval time.Duration
	// DelayStart waits before the first step, giving the OS time to settle
	// after boot.
	DelayStart time.Duration

	Debug bool
}

// parseOptions parses the options that may be configured via command-line
// flags, a config file and (except on windows) environment variables.
func parseOptions(subcommandName string, args []string) (*options, error) {
	flagset := flag.NewFlagSet(subcommandName, flag.ContinueOnError)
	flagset.SetOutput(io.Discard)

	var (
		flRootDirectory = flagset.String("root_directory", defaultRootDirectory(), "The location of the local database and logs")
		flLogDir        = flagset.String("log_dir", "", "Directory for hybridenroll.log (default: root_directory)")
		flFlagStore     = flagset.String("flag_store", defaultFlagStore(), "Where persistent flags are kept (options: registry, bbolt)")
		flRegistryPath  = flagset.String("registry_path", defaultRegistryPath, "HKLM key holding flags when flag_store is registry")

		flMode         = flagset.String("mode", converge.ModeV2.String(), "Convergence mode (options: v1, v2)")
		flServiceName  = flagset.String("service_name", servicegate.DefaultServiceName, "Dependent service to gate in v2")
		flTenantID     = flagset.String("tenant_id", "", "TenantInfo subkey to configure (default: discover)")
		flEventChannel = flagset.String("event_channel", enrollverify.DefaultChannel, "Event log channel holding the enrollment result")
		flEventID      = flagset.Int("event_id", enrollverify.DefaultEventID, "Event ID signalling successful enrollment")

		flPollInterval     = flagset.Duration("poll_interval", converge.DefaultPollInterval, "Interval between join status and event log checks")
		flJoinSettle       = flagset.Duration("join_settle", converge.DefaultJoinSettle, "Wait after requesting a join")
		flRebootGrace      = flagset.Duration("reboot_grace", converge.DefaultRebootGrace, "Wait between observing the hybrid join and rebooting")
		flRestoreGrace     = flagset.Duration("restore_grace", converge.DefaultRestoreGrace, "Wait between observing enrollment and restoring the dependent service")
		flGatePollInterval = flagset.Duration("gate_poll_interval", servicegate.DefaultPollInterval, "Interval between dependent service state checks")
		flDelayStart       = flagset.Duration("delay_start", 0, "How much time to wait before starting")

		flDebug   = flagset.Bool("debug", false, "Whether or not debug logging is enabled (default: false)")
		flVersion = flagset.Bool("version", false, "Print hybridenroll version and exit")
	)

	ffOpts := []ff.Option{
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
	}

	if !skipEnvParse {
		ffOpts = append(ffOpts, ff.WithEnvVarPrefix("HYBRIDENROLL"))
	}

	if err := ff.Parse(flagset, args, ffOpts...); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			usage(os.Stderr)
			flagset.SetOutput(os.Stderr)
			flagset.PrintDefaults()
			return nil, NewInfoCmdError("--help")
		}
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	// handle --version
	if *flVersion {
		version.PrintFull()
		return nil, NewInfoCmdError("--version")
	}

	mode, err := converge.ParseMode(*flMode)
	if err != nil {
		return nil, err
	}

	switch *flFlagStore {
	case flagStoreRegistry, flagStoreBbolt:
	default:
		return nil, fmt.Errorf("unknown flag_store %q, expected %s or %s", *flFlagStore, flagStoreRegistry, flagStoreBbolt)
	}

	if *flFlagStore == flagStoreRegistry && runtime.GOOS != "windows" {
		return nil, fmt.Errorf("flag_store %s is only available on windows", flagStoreRegistry)
	}

	for name, d := range map[string]time.Duration{
		"poll_interval":      *flPollInterval,
		"join_settle":        *flJoinSettle,
		"reboot_grace":       *flRebootGrace,
		"restore_grace":      *flRestoreGrace,
		"gate_poll_interval": *flGatePollInterval,
	} {
		if d <= 0 {
			return nil, fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}

	logDir := *flLogDir
	if logDir == "" {
		logDir = *flRootDirectory
	}

	opts := &options{
		RootDirectory:    *flRootDirectory,
		LogDir:           logDir,
		FlagStore:        *flFlagStore,
		RegistryPath:     *flRegistryPath,
		Mode:             mode,
		ServiceName:      *flServiceName,
		TenantID:         *flTenantID,
		EventChannel:     *flEventChannel,
		EventID:          *flEventID,
		PollInterval:     *flPollInterval,
		JoinSettle:       *flJoinSettle,
		RebootGrace:      *flRebootGrace,
		RestoreGrace:     *flRestoreGrace,
		GatePollInterval: *flGatePollInterval,
		DelayStart:       *flDelayStart,
		Debug:            *flDebug,
	}

	return opts, nil
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "hybridenroll, by Kolide (version %s)\n", version.Version().Version)
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Usage: hybridenroll [run|status|version] --option=value\n")
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Options may also be given in a file via --config, one `name value` per line.\n")
	if !skipEnvParse {
		fmt.Fprintf(w, "  All options can be set as environment variables using the following convention:\n")
		fmt.Fprintf(w, "      HYBRIDENROLL_OPTION=value hybridenroll\n")
	}
	fmt.Fprintf(w, "\n")
}
