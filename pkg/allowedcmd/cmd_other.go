//go:build !windows
// +build !windows

package allowedcmd

import (
	"context"
	"fmt"
)

// The join client, event log and shutdown commands only exist on Windows. Other
// platforms compile so the portable packages can be developed and tested there.

func Dsregcmd(_ context.Context, _ ...string) (*TracedCmd, error) {
	return nil, fmt.Errorf("%w: dsregcmd is only available on windows", ErrCommandNotFound)
}

func Echo(ctx context.Context, arg ...string) (*TracedCmd, error) {
	for _, p := range []string{"/bin/echo", "/usr/bin/echo"} {
		if cmd, err := validatedCommand(ctx, p, arg...); err == nil {
			return cmd, nil
		}
	}

	return nil, fmt.Errorf("%w: echo", ErrCommandNotFound)
}

func Powershell(_ context.Context, _ ...string) (*TracedCmd, error) {
	return nil, fmt.Errorf("%w: powershell is only available on windows", ErrCommandNotFound)
}

func Shutdown(_ context.Context, _ ...string) (*TracedCmd, error) {
	return nil, fmt.Errorf("%w: shutdown is only available on windows", ErrCommandNotFound)
}
