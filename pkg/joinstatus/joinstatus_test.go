package joinstatus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kolide/hybridenroll/pkg/allowedcmd"
	"github.com/kolide/hybridenroll/pkg/log/multislogger"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	t.Parallel()

	var tests = []struct {
		name           string
		input          []byte
		expectedState  JoinState
		expectedDomain string
		expectedCloud  string
	}{
		{
			name:           "hybrid joined",
			input:          mustReadFile(filepath.Join("test-data", "dsregcmd_hybrid_joined.txt")),
			expectedState:  BothJoined,
			expectedDomain: "YES",
			expectedCloud:  "YES",
		},
		{
			name:           "domain only",
			input:          mustReadFile(filepath.Join("test-data", "dsregcmd_domain_only.txt")),
			expectedState:  DomainOnlyNotCloud,
			expectedDomain: "YES",
			expectedCloud:  "NO",
		},
		{
			name:           "not joined",
			input:          mustReadFile(filepath.Join("test-data", "dsregcmd_not_joined.txt")),
			expectedState:  NeitherOrUnknown,
			expectedDomain: "NO",
			expectedCloud:  "NO",
		},
		{
			name:          "localized output",
			input:         mustReadFile(filepath.Join("test-data", "dsregcmd_localized.txt")),
			expectedState: NeitherOrUnknown,
		},
		{
			name:          "empty input",
			expectedState: NeitherOrUnknown,
		},
		{
			name:           "windows line endings and lowercase",
			input:          []byte("\uFEFF  DomainJoined : yes\r\n  AzureAdJoined : no\r\n"),
			expectedState:  DomainOnlyNotCloud,
			expectedDomain: "yes",
			expectedCloud:  "no",
		},
		{
			name:           "reordered fields",
			input:          []byte("AzureAdJoined : YES\nDomainJoined : YES\n"),
			expectedState:  BothJoined,
			expectedDomain: "YES",
			expectedCloud:  "YES",
		},
		{
			name:           "missing cloud label",
			input:          []byte("DomainJoined : YES\n"),
			expectedState:  NeitherOrUnknown,
			expectedDomain: "YES",
		},
		{
			name:          "label without delimiter",
			input:         []byte("DomainJoined YES\nAzureAdJoined YES\n"),
			expectedState: NeitherOrUnknown,
		},
		{
			name:           "unexpected value",
			input:          []byte("DomainJoined : YES\nAzureAdJoined : PENDING\n"),
			expectedState:  NeitherOrUnknown,
			expectedDomain: "YES",
			expectedCloud:  "PENDING",
		},
		{
			name:           "cloud joined only",
			input:          []byte("DomainJoined : NO\nAzureAdJoined : YES\n"),
			expectedState:  NeitherOrUnknown,
			expectedDomain: "NO",
			expectedCloud:  "YES",
		},
		{
			name:          "binary garbage",
			input:         []byte{0x00, 0xff, 0xfe, ':', '\n', 0x10},
			expectedState: NeitherOrUnknown,
		},
		{
			name:          "delimiter only",
			input:         []byte("DomainJoined :\nAzureAdJoined :\n"),
			expectedState: NeitherOrUnknown,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var actual JoinStatus
			require.NotPanics(t, func() { actual = ParseStatus(tt.input) })
			require.Equal(t, tt.expectedState, actual.State)
			require.Equal(t, tt.expectedDomain, actual.DomainJoined)
			require.Equal(t, tt.expectedCloud, actual.AzureAdJoined)
		})
	}
}

func TestJoinState_String(t *testing.T) {
	t.Parallel()

	require.Equal(t, "both_joined", BothJoined.String())
	require.Equal(t, "domain_only_not_cloud", DomainOnlyNotCloud.String())
	require.Equal(t, "neither_or_unknown", NeitherOrUnknown.String())
	require.Equal(t, "neither_or_unknown", JoinState(42).String())
}

func TestProbe(t *testing.T) {
	t.Parallel()

	fixture := strings.TrimSpace(string(mustReadFile(filepath.Join("test-data", "dsregcmd_domain_only.txt"))))

	var receivedArgs []string
	p := New(multislogger.NewNopLogger(), WithCommand(func(ctx context.Context, arg ...string) (*allowedcmd.TracedCmd, error) {
		receivedArgs = arg
		return allowedcmd.Echo(ctx, fixture)
	}))

	status := p.Probe(t.Context())
	require.Equal(t, []string{"/status"}, receivedArgs)
	require.Equal(t, DomainOnlyNotCloud, status.State)
}

func TestProbe_CommandUnavailable(t *testing.T) {
	t.Parallel()

	p := New(multislogger.NewNopLogger(), WithCommand(func(_ context.Context, _ ...string) (*allowedcmd.TracedCmd, error) {
		return nil, errors.New("not here")
	}))

	require.Equal(t, JoinStatus{State: NeitherOrUnknown}, p.Probe(t.Context()))
	require.NotPanics(t, func() { p.Join(t.Context()) })
}

func TestJoin(t *testing.T) {
	t.Parallel()

	var receivedArgs []string
	p := New(multislogger.NewNopLogger(), WithCommand(func(ctx context.Context, arg ...string) (*allowedcmd.TracedCmd, error) {
		receivedArgs = arg
		return allowedcmd.Echo(ctx, "joining")
	}))

	p.Join(t.Context())
	require.Equal(t, []string{"/join"}, receivedArgs)
}

func mustReadFile(path string) []byte {
	b, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}
	return b
}
