//go:build !windows
// +build !windows

package servicegate

import (
	"context"
	"errors"
	"log/slog"
)

var errUnsupportedPlatform = errors.New("service control is only available on windows")

type scmController struct{}

func NewController(_ *slog.Logger, _ string) *scmController {
	return &scmController{}
}

func (c *scmController) State(_ context.Context) (RunState, error) {
	return StateUnknown, errUnsupportedPlatform
}

func (c *scmController) SetStartMode(_ context.Context, _ StartMode) error {
	return errUnsupportedPlatform
}

func (c *scmController) Start(_ context.Context) error {
	return errUnsupportedPlatform
}

func (c *scmController) Stop(_ context.Context) error {
	return errUnsupportedPlatform
}
