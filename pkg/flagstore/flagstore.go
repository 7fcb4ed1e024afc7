// Package flagstore records the convergence loop's durable progress markers.
// A flag is either present or absent; presence is what matters, the stored
// value is a fixed sentinel.
package flagstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kolide/hybridenroll/pkg/agent/types"
)

const SentinelValue = "1"

type Flag []byte

func (f Flag) String() string {
	return string(f)
}

var (
	// RebootOccurred is written immediately before the single reboot is issued
	// and is never cleared.
	RebootOccurred Flag = []byte("RebootOccurred")

	// EnrollmentVerified is written once the MDM enrollment success event has
	// been observed.
	EnrollmentVerified Flag = []byte("EnrollmentVerified")

	// CloudJoinPurpose is the join purpose marker. It is provisioned by the image
	// build for hosts meant to be cloud-only joined and is only ever read here.
	CloudJoinPurpose Flag = []byte("CloudJoinPurpose")
)

type FlagStore struct {
	slogger *slog.Logger
	store   types.GetterSetter
}

func New(slogger *slog.Logger, store types.GetterSetter) *FlagStore {
	return &FlagStore{
		slogger: slogger.With("component", "flag_store"),
		store:   store,
	}
}

// FlagExists reports whether the flag is present. A store that cannot be read
// is logged and reported as absent.
func (f *FlagStore) FlagExists(ctx context.Context, flag Flag) bool {
	v, err := f.store.Get(flag)
	if err != nil {
		f.slogger.Log(ctx, slog.LevelWarn,
			"could not read flag, treating as absent",
			"flag", flag.String(),
			"err", err,
		)
		return false
	}

	return v != nil
}

// SetFlag writes the sentinel for the flag. Writing an already-present flag is
// harmless. Failures are logged and returned; none is fatal to the caller.
func (f *FlagStore) SetFlag(ctx context.Context, flag Flag) error {
	if err := f.store.Set(flag, []byte(SentinelValue)); err != nil {
		f.slogger.Log(ctx, slog.LevelError,
			"could not set flag",
			"flag", flag.String(),
			"err", err,
		)
		return fmt.Errorf("setting flag %s: %w", flag.String(), err)
	}

	f.slogger.Log(ctx, slog.LevelInfo,
		"set flag",
		"flag", flag.String(),
	)

	return nil
}
