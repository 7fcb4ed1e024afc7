package multislogger

import (
	"context"
	"io"
	"log/slog"

	slogmulti "github.com/samber/slog-multi"
)

type contextKey string

func (c contextKey) String() string {
	return string(c)
}

const (
	// RunIdKey identifies a single invocation of the convergence loop. Every
	// reboot produces a new invocation, so this is what ties log lines from
	// one boot together.
	RunIdKey   contextKey = "run_id"
	AttemptKey contextKey = "attempt"
)

// ctxValueKeysToAdd is a list of context keys that will be
// added as log attributes
var ctxValueKeysToAdd = []contextKey{
	RunIdKey,
	AttemptKey,
}

type MultiSlogger struct {
	*slog.Logger
	handlers []slog.Handler
}

// New creates a new multislogger if no handlers are passed in, it will
// create a logger that discards all logs
func New(h ...slog.Handler) *MultiSlogger {
	ms := new(MultiSlogger)

	if len(h) == 0 {
		// do not add the discard handler to the handlers so it will not be
		// included when a handler is added
		ms.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		return ms
	}

	ms.AddHandler(h...)
	return ms
}

// NewNopLogger returns a slogger that discards everything.
func NewNopLogger() *slog.Logger {
	return New().Logger
}

// AddHandler adds a handler to the multislogger, this creates a brand new
// slog.Logger under the hood, meaning any attributes added with
// Logger.With will be lost
func (m *MultiSlogger) AddHandler(handler ...slog.Handler) {
	m.handlers = append(m.handlers, handler...)
	m.rebuild()
}

// ReplaceHandlers swaps every handler for the given ones and returns the
// previous set, so a caller can put them back later. Like AddHandler, it
// builds a new slog.Logger; loggers taken from Logger earlier keep writing to
// the old handlers.
func (m *MultiSlogger) ReplaceHandlers(handler ...slog.Handler) []slog.Handler {
	previous := m.handlers
	m.handlers = append([]slog.Handler(nil), handler...)
	m.rebuild()
	return previous
}

func (m *MultiSlogger) rebuild() {
	if len(m.handlers) == 0 {
		m.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		return
	}

	// we have to rebuild the handler everytime because the slogmulti package we're
	// using doesn't support adding handlers after the Fanout handler has been created
	m.Logger = slog.New(
		slogmulti.
			Pipe(slogmulti.NewHandleInlineMiddleware(utcTimeMiddleware)).
			Pipe(slogmulti.NewHandleInlineMiddleware(ctxValuesMiddleWare)).
			Handler(slogmulti.Fanout(m.handlers...)),
	)
}

func utcTimeMiddleware(ctx context.Context, record slog.Record, next func(context.Context, slog.Record) error) error {
	record.Time = record.Time.UTC()
	return next(ctx, record)
}

func ctxValuesMiddleWare(ctx context.Context, record slog.Record, next func(context.Context, slog.Record) error) error {
	for _, key := range ctxValueKeysToAdd {
		if v := ctx.Value(key); v != nil {
			record.AddAttrs(slog.Attr{
				Key:   key.String(),
				Value: slog.AnyValue(v),
			})
		}
	}

	return next(ctx, record)
}
