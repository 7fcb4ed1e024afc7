//go:build windows
// +build windows

package allowedcmd

import (
	"context"
	"os"
	"path/filepath"
)

func Dsregcmd(ctx context.Context, arg ...string) (*TracedCmd, error) {
	return validatedCommand(ctx, filepath.Join(os.Getenv("WINDIR"), "System32", "dsregcmd.exe"), arg...)
}

func Echo(ctx context.Context, arg ...string) (*TracedCmd, error) {
	// echo on Windows is only available as a command in cmd.exe
	return validatedCommand(ctx, filepath.Join(os.Getenv("WINDIR"), "System32", "cmd.exe"), append([]string{"/C", "echo"}, arg...)...)
}

func Powershell(ctx context.Context, arg ...string) (*TracedCmd, error) {
	return validatedCommand(ctx, filepath.Join(os.Getenv("WINDIR"), "System32", "WindowsPowerShell", "v1.0", "powershell.exe"), arg...)
}

func Shutdown(ctx context.Context, arg ...string) (*TracedCmd, error) {
	return validatedCommand(ctx, filepath.Join(os.Getenv("WINDIR"), "System32", "shutdown.exe"), arg...)
}
