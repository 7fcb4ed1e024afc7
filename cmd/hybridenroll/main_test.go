package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/kolide/hybridenroll/pkg/converge"
	"github.com/kolide/hybridenroll/pkg/log/filelogger"
	"github.com/kolide/hybridenroll/pkg/log/multislogger"
	"github.com/stretchr/testify/require"
)

func Test_splitSubcommand(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		args               []string
		expectedSubcommand string
		expectedArgs       []string
	}{
		{args: nil, expectedSubcommand: "run", expectedArgs: nil},
		{args: []string{"-debug"}, expectedSubcommand: "run", expectedArgs: []string{"-debug"}},
		{args: []string{"status", "-debug"}, expectedSubcommand: "status", expectedArgs: []string{"-debug"}},
		{args: []string{"version"}, expectedSubcommand: "version", expectedArgs: []string{}},
	} {
		subcommand, args := splitSubcommand(tt.args)
		require.Equal(t, tt.expectedSubcommand, subcommand)
		require.Equal(t, tt.expectedArgs, args)
	}
}

func Test_exitCode(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name     string
		err      error
		expected int
	}{
		{name: "success", err: nil, expected: 0},
		{name: "info cmd", err: NewInfoCmdError("--version"), expected: 0},
		{name: "reboot", err: fmt.Errorf("converging: %w", converge.ErrRebootIssued), expected: 0},
		{name: "shutdown", err: fmt.Errorf("converging: %w", context.Canceled), expected: 0},
		{name: "failure", err: errors.New("opening flag database: timeout"), expected: 1},
	} {
		require.Equal(t, tt.expected, exitCode(tt.err), tt.name)
	}
}

func Test_logExit(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name     string
		err      error
		expected string
	}{
		{name: "success", err: nil, expected: ""},
		{name: "info cmd", err: NewInfoCmdError("--version"), expected: ""},
		{name: "reboot", err: fmt.Errorf("converging: %w", converge.ErrRebootIssued), expected: "exiting for reboot"},
		{name: "shutdown", err: context.Canceled, expected: "exiting after shutdown request"},
		{name: "failure", err: errors.New("opening flag database: timeout"), expected: "exiting with error"},
	} {
		var buf bytes.Buffer
		logExit(t.Context(), slog.New(slog.NewTextHandler(&buf, nil)), "run", tt.err)

		if tt.expected == "" {
			require.Empty(t, buf.String(), tt.name)
			continue
		}
		require.Contains(t, buf.String(), tt.expected, tt.name)
	}
}

func Test_setupLogging(t *testing.T) {
	t.Parallel()

	var bootstrapBuf bytes.Buffer
	systemMultiSlogger := multislogger.New(slog.NewTextHandler(&bootstrapBuf, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	logDir := t.TempDir()
	closeLogs := setupLogging(systemMultiSlogger, &options{LogDir: logDir})

	systemMultiSlogger.Log(t.Context(), slog.LevelWarn, "not running elevated")
	require.Empty(t, bootstrapBuf.String(), "warnings should not also reach the bootstrap handler")

	closeLogs()

	logPath := filepath.Join(logDir, filelogger.LogFileName)
	contents, err := os.ReadFile(logPath)
	require.NoError(t, err)
	require.Contains(t, string(contents), " - WARN: not running elevated")

	// After closing, records go back to the bootstrap handler and the file is
	// left alone.
	systemMultiSlogger.Log(t.Context(), slog.LevelWarn, "late warning")
	require.Contains(t, bootstrapBuf.String(), "late warning")

	after, err := os.ReadFile(logPath)
	require.NoError(t, err)
	require.Equal(t, contents, after)
}
