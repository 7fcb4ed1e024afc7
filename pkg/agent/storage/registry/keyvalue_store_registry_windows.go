//go:build windows
// +build windows

package agentregistry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/sys/windows/registry"
)

// registryKeyValueStore keeps values as REG_SZ values under a single key in
// HKEY_LOCAL_MACHINE. Key names in the store are registry value names.
type registryKeyValueStore struct {
	slogger *slog.Logger
	path    string
}

func NewStore(slogger *slog.Logger, path string) (*registryKeyValueStore, error) {
	if path == "" {
		return nil, errors.New("registry path is blank")
	}

	return &registryKeyValueStore{
		slogger: slogger.With("registry_path", path),
		path:    path,
	}, nil
}

func (s *registryKeyValueStore) Get(key []byte) ([]byte, error) {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, s.path, registry.QUERY_VALUE)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening registry key %s: %w", s.path, err)
	}
	defer s.closeKey(k)

	val, _, err := k.GetStringValue(string(key))
	switch {
	case err == nil:
		return []byte(val), nil
	case errors.Is(err, registry.ErrNotExist):
		return nil, nil
	case errors.Is(err, registry.ErrUnexpectedType):
		// Markers set by hand are frequently DWORDs
		intVal, _, intErr := k.GetIntegerValue(string(key))
		if intErr != nil {
			return nil, fmt.Errorf("reading registry value %s as integer: %w", string(key), intErr)
		}
		return []byte(strconv.FormatUint(intVal, 10)), nil
	default:
		return nil, fmt.Errorf("reading registry value %s: %w", string(key), err)
	}
}

func (s *registryKeyValueStore) Set(key, value []byte) error {
	if len(key) == 0 {
		return errors.New("key is blank")
	}

	// CreateKey opens the key if it already exists, and creates any missing parents
	k, _, err := registry.CreateKey(registry.LOCAL_MACHINE, s.path, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("creating registry key %s: %w", s.path, err)
	}
	defer s.closeKey(k)

	if err := k.SetStringValue(string(key), string(value)); err != nil {
		return fmt.Errorf("setting registry value %s: %w", string(key), err)
	}

	return nil
}

func (s *registryKeyValueStore) closeKey(k registry.Key) {
	if err := k.Close(); err != nil {
		s.slogger.Log(context.TODO(), slog.LevelInfo,
			"could not close registry key",
			"err", err,
		)
	}
}
