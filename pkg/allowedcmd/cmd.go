// Package allowedcmd wraps access to exec.Cmd in order to consolidate path lookup logic.
// Every executable this agent runs lives at a hardcoded, known-safe location; all usage
// of exec.Cmd should go through this package.
package allowedcmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/kolide/hybridenroll/pkg/traces"
)

var ErrCommandNotFound = errors.New("command not found")

// AllowedCommandFunc is the shape shared by every constructor in this package, so
// callers can accept one as a dependency and tests can substitute Echo.
type AllowedCommandFunc func(ctx context.Context, arg ...string) (*TracedCmd, error)

type TracedCmd struct {
	Ctx context.Context // nolint:containedctx // This is an approved usage of context for short lived cmd
	*exec.Cmd
}

func (t *TracedCmd) String() string {
	return fmt.Sprintf("%+v", t.Args)
}

// Run overrides the Run method to add tracing before running the command.
func (t *TracedCmd) Run() error {
	_, span := traces.StartSpan(t.Ctx, "path", t.Path, "args", fmt.Sprintf("%+v", t.Args))
	defer span.End()

	return t.Cmd.Run() //nolint:forbidigo // This is our approved usage of t.Cmd.Run()
}

// Output overrides the Output method to add tracing before capturing output.
func (t *TracedCmd) Output() ([]byte, error) {
	_, span := traces.StartSpan(t.Ctx, "path", t.Path, "args", fmt.Sprintf("%+v", t.Args))
	defer span.End()

	return t.Cmd.Output() //nolint:forbidigo // This is our approved usage of t.Cmd.Output()
}

// CombinedOutput overrides the CombinedOutput method to add tracing before capturing combined output.
func (t *TracedCmd) CombinedOutput() ([]byte, error) {
	_, span := traces.StartSpan(t.Ctx, "path", t.Path, "args", fmt.Sprintf("%+v", t.Args))
	defer span.End()

	out, err := t.Cmd.CombinedOutput() //nolint:forbidigo // This is our approved usage of t.Cmd.CombinedOutput()
	if err != nil {
		traces.SetError(span, err)
	}

	return out, err
}

func newCmd(ctx context.Context, fullPathToCmd string, arg ...string) *TracedCmd {
	return &TracedCmd{
		Ctx: ctx,
		Cmd: exec.CommandContext(ctx, fullPathToCmd, arg...), //nolint:forbidigo // This is our approved usage of exec.CommandContext
	}
}

func validatedCommand(ctx context.Context, knownPath string, arg ...string) (*TracedCmd, error) {
	knownPath = filepath.Clean(knownPath)

	if _, err := os.Stat(knownPath); err != nil {
		return nil, fmt.Errorf("%w: not found at %s: %w", ErrCommandNotFound, knownPath, err)
	}

	return newCmd(ctx, knownPath, arg...), nil
}
