package flagstore

import (
	"errors"
	"testing"

	"github.com/kolide/hybridenroll/pkg/agent/storage/inmemory"
	"github.com/kolide/hybridenroll/pkg/log/multislogger"
	"github.com/stretchr/testify/require"
)

type brokenStore struct{}

func (brokenStore) Get(_ []byte) ([]byte, error) { return nil, errors.New("access denied") }
func (brokenStore) Set(_, _ []byte) error        { return errors.New("access denied") }

func TestFlagStore(t *testing.T) {
	t.Parallel()

	kv := inmemory.NewStore()
	f := New(multislogger.NewNopLogger(), kv)

	require.False(t, f.FlagExists(t.Context(), RebootOccurred))
	require.NoError(t, f.SetFlag(t.Context(), RebootOccurred))
	require.True(t, f.FlagExists(t.Context(), RebootOccurred))
	require.False(t, f.FlagExists(t.Context(), EnrollmentVerified), "flags are independent")

	// redundant sets leave the same state behind
	require.NoError(t, f.SetFlag(t.Context(), RebootOccurred))
	v, err := kv.Get(RebootOccurred)
	require.NoError(t, err)
	require.Equal(t, SentinelValue, string(v))
}

func TestFlagStore_PresenceNotValue(t *testing.T) {
	t.Parallel()

	kv := inmemory.NewStore()
	require.NoError(t, kv.Set(CloudJoinPurpose, []byte("0")))

	f := New(multislogger.NewNopLogger(), kv)
	require.True(t, f.FlagExists(t.Context(), CloudJoinPurpose), "any stored value counts as present")
}

func TestFlagStore_Unreadable(t *testing.T) {
	t.Parallel()

	f := New(multislogger.NewNopLogger(), brokenStore{})
	require.False(t, f.FlagExists(t.Context(), RebootOccurred))
	require.Error(t, f.SetFlag(t.Context(), RebootOccurred))
}
