// Package enrollverify waits for the event log to confirm that automatic MDM
// enrollment succeeded.
package enrollverify

import (
	"context"
	"log/slog"
	"time"

	"github.com/kolide/hybridenroll/pkg/sleeper"
)

const (
	DefaultChannel      = "Microsoft-Windows-DeviceManagement-Enterprise-Diagnostics-Provider/Admin"
	DefaultEventID      = 75 // "Auto MDM Enroll: Succeeded"
	DefaultPollInterval = 30 * time.Second
)

// EventSource answers whether the channel holds an event with the given ID.
type EventSource interface {
	HasEvent(ctx context.Context, channel string, eventID int) (bool, error)
}

type Verifier struct {
	slogger      *slog.Logger
	source       EventSource
	clk          sleeper.Clock
	channel      string
	eventID      int
	pollInterval time.Duration
}

type Option func(*Verifier)

func WithClock(clk sleeper.Clock) Option {
	return func(v *Verifier) {
		v.clk = clk
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(v *Verifier) {
		v.pollInterval = d
	}
}

func WithChannel(channel string) Option {
	return func(v *Verifier) {
		v.channel = channel
	}
}

func WithEventID(eventID int) Option {
	return func(v *Verifier) {
		v.eventID = eventID
	}
}

func New(slogger *slog.Logger, source EventSource, opts ...Option) *Verifier {
	v := &Verifier{
		slogger:      slogger.With("component", "enrollment_verifier"),
		source:       source,
		clk:          sleeper.Default(),
		channel:      DefaultChannel,
		eventID:      DefaultEventID,
		pollInterval: DefaultPollInterval,
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

// Check queries the event log once. Query failures count as "not yet".
func (v *Verifier) Check(ctx context.Context) bool {
	found, err := v.source.HasEvent(ctx, v.channel, v.eventID)
	if err != nil {
		v.slogger.Log(ctx, slog.LevelWarn,
			"could not query event log",
			"channel", v.channel,
			"event_id", v.eventID,
			"err", err,
		)
		return false
	}

	return found
}

// AwaitSuccessSignal polls until the success event is seen. There is no
// attempt limit; it returns an error only when ctx is canceled.
func (v *Verifier) AwaitSuccessSignal(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		if v.Check(ctx) {
			v.slogger.Log(ctx, slog.LevelInfo,
				"observed mdm enrollment success event",
				"event_id", v.eventID,
				"attempts", attempt,
			)
			return nil
		}

		v.slogger.Log(ctx, slog.LevelInfo,
			"mdm enrollment success event not yet present",
			"event_id", v.eventID,
			"attempt", attempt,
		)

		if err := sleeper.Sleep(ctx, v.clk, v.pollInterval); err != nil {
			return err
		}
	}
}
