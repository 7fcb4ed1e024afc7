//go:build !windows
// +build !windows

package wmi

import (
	"context"
	"errors"
	"log/slog"
)

var errUnsupportedPlatform = errors.New("wmi is only available on windows")

func Query(_ context.Context, _ *slog.Logger, _ string, _ []string) ([]map[string]interface{}, error) {
	return nil, errUnsupportedPlatform
}
