package enrollverify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kolide/hybridenroll/pkg/allowedcmd"
)

type winEventSource struct {
	slogger *slog.Logger
	cmdFn   allowedcmd.AllowedCommandFunc
}

type EventSourceOption func(*winEventSource)

// WithCommand overrides the powershell command constructor.
func WithCommand(cmdFn allowedcmd.AllowedCommandFunc) EventSourceOption {
	return func(w *winEventSource) {
		w.cmdFn = cmdFn
	}
}

// NewEventSource queries the event log through Get-WinEvent.
func NewEventSource(slogger *slog.Logger, opts ...EventSourceOption) *winEventSource {
	w := &winEventSource{
		slogger: slogger.With("component", "event_source"),
		cmdFn:   allowedcmd.Powershell,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// winEvent is the subset of an EventLogRecord we select. TimeCreated is left out
// on purpose: ConvertTo-Json renders it as an opaque /Date()/ string.
type winEvent struct {
	Id      int    `json:"Id"`
	LogName string `json:"LogName"`
	Message string `json:"Message"`
}

func getWinEventScript(channel string, eventID int) string {
	// Get-WinEvent raises when nothing matches; SilentlyContinue turns that into
	// empty output.
	return fmt.Sprintf(
		`Get-WinEvent -FilterHashtable @{LogName='%s'; Id=%d} -MaxEvents 1 -ErrorAction SilentlyContinue | Select-Object Id, LogName, Message | ConvertTo-Json -Compress`,
		strings.ReplaceAll(channel, "'", "''"),
		eventID,
	)
}

func (w *winEventSource) HasEvent(ctx context.Context, channel string, eventID int) (bool, error) {
	cmd, err := w.cmdFn(ctx, "-NoProfile", "-NonInteractive", "-Command", getWinEventScript(channel, eventID))
	if err != nil {
		return false, fmt.Errorf("creating powershell command: %w", err)
	}

	out, err := cmd.Output()
	if err != nil {
		return false, fmt.Errorf("running Get-WinEvent: %w", err)
	}

	return parseEvents(out, eventID)
}

// parseEvents accepts what ConvertTo-Json emits: nothing, a single object, or
// an array of objects.
func parseEvents(out []byte, eventID int) (bool, error) {
	out = bytes.TrimSpace(bytes.TrimPrefix(out, []byte("\uFEFF")))
	if len(out) == 0 {
		return false, nil
	}

	var events []winEvent
	if out[0] == '[' {
		if err := json.Unmarshal(out, &events); err != nil {
			return false, fmt.Errorf("unmarshalling events: %w", err)
		}
	} else {
		var single winEvent
		if err := json.Unmarshal(out, &single); err != nil {
			return false, fmt.Errorf("unmarshalling event: %w", err)
		}
		events = append(events, single)
	}

	for _, e := range events {
		if e.Id == eventID {
			return true, nil
		}
	}

	return false, nil
}
