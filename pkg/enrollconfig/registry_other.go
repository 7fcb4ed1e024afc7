//go:build !windows
// +build !windows

package enrollconfig

import (
	"context"
	"errors"
	"log/slog"
)

var errUnsupportedPlatform = errors.New("registry is only available on windows")

type registryValueStore struct{}

func NewRegistryValueStore(_ *slog.Logger) *registryValueStore {
	return &registryValueStore{}
}

func (r *registryValueStore) GetString(_ context.Context, _, _ string) (string, bool, error) {
	return "", false, errUnsupportedPlatform
}

func (r *registryValueStore) SetString(_ context.Context, _, _, _ string) error {
	return errUnsupportedPlatform
}

func (r *registryValueStore) SubKeys(_ context.Context, _ string) ([]string, error) {
	return nil, errUnsupportedPlatform
}
