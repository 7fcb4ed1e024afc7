//go:build !windows
// +build !windows

package agentregistry

import (
	"errors"
	"log/slog"

	"github.com/kolide/hybridenroll/pkg/agent/types"
)

var errUnsupportedPlatform = errors.New("registry store is only available on windows")

func NewStore(_ *slog.Logger, _ string) (types.KVStore, error) {
	return nil, errUnsupportedPlatform
}
