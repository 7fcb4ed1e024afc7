package traces

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
)

func Test_buildAttributes(t *testing.T) {
	t.Parallel()

	attrs := buildAttributes("/src/pkg/joinstatus/prober.go",
		"args", []string{"/status"},
		"attempt", 4,
		"ok", true,
		5, "bad key",
		"struct", struct{}{},
	)

	require.Len(t, attrs, 5)
	require.Equal(t, attribute.Key("hybridenroll.joinstatus.args"), attrs[0].Key)
	require.Equal(t, []string{"/status"}, attrs[0].Value.AsStringSlice())
	require.Equal(t, int64(4), attrs[1].Value.AsInt64())
	require.True(t, attrs[2].Value.AsBool())
	require.Equal(t, attribute.Key("bad key type int: 5"), attrs[3].Key)
	require.Contains(t, attrs[4].Value.AsString(), "unsupported value of type")
}

func TestStartSpan(t *testing.T) {
	t.Parallel()

	ctx, span := StartSpan(t.Context(), "key", "value")
	require.NotNil(t, ctx)
	require.NotNil(t, span)
	span.End()
}

// TestStartSpan_Recorded swaps the global tracer provider, so it is not parallel.
func TestStartSpan_Recorded(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)))
	t.Cleanup(func() {
		otel.SetTracerProvider(noop.NewTracerProvider())
	})

	_, span := StartSpan(t.Context(), "cmd", "dsregcmd")
	SetError(span, errors.New("exit status 1"))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, "traces.TestStartSpan_Recorded", spans[0].Name())
	require.Equal(t, codes.Error, spans[0].Status().Code)
	require.Equal(t, "exit status 1", spans[0].Status().Description)
	require.Contains(t, spans[0].Attributes(), attribute.String("hybridenroll.traces.cmd", "dsregcmd"))
	require.Len(t, spans[0].Events(), 1, "error is recorded as a span event")
}
