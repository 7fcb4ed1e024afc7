// Package filelogger writes the human-readable audit log that operators read
// when a host fails to enroll. Every line takes the form
// `{timestamp} - {message} key=value ...`.
package filelogger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	LogFileName     = "hybridenroll.log"
	timestampFormat = "2006-01-02 15:04:05"

	// maxSizeMB is 1TiB. A host never writes that much, so the file is not
	// rotated in practice.
	maxSizeMB = 1 << 20
)

type fileLogger struct {
	lj      *lumberjack.Logger
	handler *LineHandler
}

// New opens (or creates) the audit log in logDir. Files are only appended to
// and never rotated.
func New(logDir string, level slog.Leveler) *fileLogger {
	lj := &lumberjack.Logger{
		Filename: filepath.Join(logDir, LogFileName),
		MaxSize:  maxSizeMB,
		// Backups are never pruned should a rotation ever happen.
		MaxBackups: 0,
		MaxAge:     0,
		Compress:   false,
	}

	return &fileLogger{
		lj:      lj,
		handler: NewLineHandler(lj, level),
	}
}

func (fl *fileLogger) Handler() slog.Handler {
	return fl.handler
}

func (fl *fileLogger) Close() error {
	return fl.lj.Close()
}

// LineHandler is a slog.Handler producing `{timestamp} - {message}` lines.
type LineHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	level  slog.Leveler
	attrs  []slog.Attr
	prefix string
}

func NewLineHandler(w io.Writer, level slog.Leveler) *LineHandler {
	if level == nil {
		level = slog.LevelInfo
	}

	return &LineHandler{
		mu:    &sync.Mutex{},
		w:     w,
		level: level,
	}
}

func (h *LineHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *LineHandler) Handle(_ context.Context, r slog.Record) error {
	var sb strings.Builder

	sb.WriteString(r.Time.Format(timestampFormat))
	sb.WriteString(" - ")
	if r.Level != slog.LevelInfo {
		sb.WriteString(r.Level.String())
		sb.WriteString(": ")
	}
	sb.WriteString(r.Message)

	for _, a := range h.attrs {
		writeAttr(&sb, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&sb, h.prefix, a)
		return true
	})
	sb.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := io.WriteString(h.w, sb.String())
	return err
}

func (h *LineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := *h
	h2.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	h2.attrs = append(h2.attrs, h.attrs...)
	for _, a := range attrs {
		h2.attrs = append(h2.attrs, slog.Attr{Key: h.prefix + a.Key, Value: a.Value})
	}
	return &h2
}

func (h *LineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	h2 := *h
	h2.prefix = h.prefix + name + "."
	return &h2
}

func writeAttr(sb *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		groupPrefix := prefix
		if a.Key != "" {
			groupPrefix = prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			writeAttr(sb, groupPrefix, ga)
		}
		return
	}

	sb.WriteString(" ")
	sb.WriteString(prefix)
	sb.WriteString(a.Key)
	sb.WriteString("=")
	sb.WriteString(formatValue(a.Value))
}

func formatValue(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindString:
		s = v.String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = fmt.Sprintf("%+v", v.Any())
		}
	default:
		s = v.String()
	}

	if s == "" || strings.ContainsAny(s, " \t\r\n\"=") {
		return strconv.Quote(s)
	}

	return s
}
