package allowedcmd

import (
	"errors"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEcho(t *testing.T) {
	t.Parallel()

	// echo is the only one available on all platforms and likely to be available in CI
	tracedCmd, err := Echo(t.Context(), "hello")
	require.NoError(t, err)
	require.Contains(t, tracedCmd.Args, "hello")

	out, err := tracedCmd.Output()
	require.NoError(t, err)
	require.Contains(t, string(out), "hello")
}

func Test_newCmd(t *testing.T) {
	t.Parallel()

	cmdPath := filepath.Join("some", "path", "to", "a", "command")
	tracedCmd := newCmd(t.Context(), cmdPath, "arg")
	require.Equal(t, cmdPath, tracedCmd.Path)
	require.Equal(t, "[some/path/to/a/command arg]", filepath.ToSlash(tracedCmd.String()))
}

func Test_validatedCommand_missing(t *testing.T) {
	t.Parallel()

	_, err := validatedCommand(t.Context(), filepath.Join(t.TempDir(), "not-a-real-binary"))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrCommandNotFound))
}

func TestWindowsOnlyCommands(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("windows-only commands are present on windows")
	}

	for _, fn := range []AllowedCommandFunc{Dsregcmd, Powershell, Shutdown} {
		_, err := fn(t.Context(), "/status")
		require.ErrorIs(t, err, ErrCommandNotFound)
	}
}
