//go:build windows
// +build windows

package enrollconfig

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sys/windows/registry"
)

type registryValueStore struct {
	slogger *slog.Logger
}

func NewRegistryValueStore(slogger *slog.Logger) *registryValueStore {
	return &registryValueStore{
		slogger: slogger.With("component", "registry_value_store"),
	}
}

func (r *registryValueStore) GetString(ctx context.Context, path, name string) (string, bool, error) {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, path, registry.QUERY_VALUE)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("opening registry key %s: %w", path, err)
	}
	defer r.closeKey(ctx, k, path)

	val, _, err := k.GetStringValue(name)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return "", false, nil
		}
		return "", true, fmt.Errorf("reading registry value %s: %w", name, err)
	}

	return val, true, nil
}

func (r *registryValueStore) SetString(ctx context.Context, path, name, value string) error {
	k, _, err := registry.CreateKey(registry.LOCAL_MACHINE, path, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("creating registry key %s: %w", path, err)
	}
	defer r.closeKey(ctx, k, path)

	if err := k.SetStringValue(name, value); err != nil {
		return fmt.Errorf("setting registry value %s: %w", name, err)
	}

	return nil
}

func (r *registryValueStore) SubKeys(ctx context.Context, path string) ([]string, error) {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, path, registry.ENUMERATE_SUB_KEYS)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening registry key %s: %w", path, err)
	}
	defer r.closeKey(ctx, k, path)

	names, err := k.ReadSubKeyNames(-1)
	if err != nil {
		return nil, fmt.Errorf("reading subkeys of %s: %w", path, err)
	}

	return names, nil
}

func (r *registryValueStore) closeKey(ctx context.Context, k registry.Key, path string) {
	if err := k.Close(); err != nil {
		r.slogger.Log(ctx, slog.LevelInfo,
			"could not close registry key",
			"key_name", path,
			"err", err,
		)
	}
}
