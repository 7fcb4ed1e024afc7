package filelogger

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLineHandler(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name     string
		log      func(*slog.Logger)
		expected string
	}{
		{
			name:     "message only",
			log:      func(l *slog.Logger) { l.Info("checking join state") },
			expected: " - checking join state\n",
		},
		{
			name:     "attributes",
			log:      func(l *slog.Logger) { l.Info("join state", "domain_joined", "YES", "attempt", 3) },
			expected: " - join state domain_joined=YES attempt=3\n",
		},
		{
			name:     "quoted values",
			log:      func(l *slog.Logger) { l.Info("value", "previous", "", "current", "two words") },
			expected: ` - value previous="" current="two words"` + "\n",
		},
		{
			name:     "errors",
			log:      func(l *slog.Logger) { l.Error("failed", "err", errors.New("boom")) },
			expected: " - ERROR: failed err=boom\n",
		},
		{
			name:     "with attrs and group",
			log:      func(l *slog.Logger) { l.With("component", "gate").WithGroup("svc").Info("state", "name", "RDAgentBootLoader") },
			expected: " - state component=gate svc.name=RDAgentBootLoader\n",
		},
	} {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			tt.log(slog.New(NewLineHandler(&buf, slog.LevelDebug)))

			line := buf.String()
			require.True(t, strings.HasSuffix(line, tt.expected), "got %q", line)

			ts := strings.SplitN(line, " - ", 2)[0]
			_, err := time.Parse(timestampFormat, ts)
			require.NoError(t, err, "line should begin with timestamp")
		})
	}
}

func TestLineHandler_Level(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(NewLineHandler(&buf, slog.LevelInfo))

	logger.Debug("hidden")
	require.Empty(t, buf.String())

	logger.Warn("shown")
	require.Contains(t, buf.String(), " - WARN: shown")
}

func TestNew_AppendsToFile(t *testing.T) {
	t.Parallel()

	logDir := t.TempDir()
	logPath := filepath.Join(logDir, LogFileName)
	require.NoError(t, os.WriteFile(logPath, []byte("existing line\n"), 0644))

	fl := New(logDir, slog.LevelInfo)
	slog.New(fl.Handler()).Info("first run")
	require.NoError(t, fl.Close())

	contents, err := os.ReadFile(logPath)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(contents), "existing line\n"))
	require.Contains(t, string(contents), " - first run\n")
}

func TestNew_NeverRotates(t *testing.T) {
	t.Parallel()

	fl := New(t.TempDir(), slog.LevelInfo)
	t.Cleanup(func() { fl.Close() })

	require.GreaterOrEqual(t, fl.lj.MaxSize, 1<<20)
	require.Zero(t, fl.lj.MaxBackups)
	require.Zero(t, fl.lj.MaxAge)
}
