package multislogger

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMultiSlogger(t *testing.T) {
	t.Parallel()

	var consoleBuf, fileBuf bytes.Buffer

	clearBufsFn := func() {
		consoleBuf.Reset()
		fileBuf.Reset()
	}

	multislogger := New()
	multislogger.Logger.DebugContext(t.Context(), "dont panic")

	multislogger = New(slog.NewJSONHandler(&fileBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	consoleLevel := new(slog.LevelVar)
	consoleLevel.Set(slog.LevelInfo)
	multislogger.AddHandler(slog.NewJSONHandler(&consoleBuf, &slog.HandlerOptions{Level: consoleLevel}))

	multislogger.Logger.DebugContext(t.Context(), "debug_msg")

	require.Contains(t, fileBuf.String(), "debug_msg", "should be in file log since it's debug level")
	require.Empty(t, consoleBuf.String(), "should not be in console log since it's debug level")
	clearBufsFn()

	multislogger.Logger.InfoContext(t.Context(), "info_msg")

	require.Contains(t, fileBuf.String(), "info_msg")
	require.Contains(t, consoleBuf.String(), "info_msg")
	clearBufsFn()

	consoleLevel.Set(slog.LevelDebug)
	multislogger.Logger.DebugContext(t.Context(), "debug_msg_2")

	require.Contains(t, fileBuf.String(), "debug_msg_2")
	require.Contains(t, consoleBuf.String(), "debug_msg_2", "should now be in console log since its level was set to debug")
	clearBufsFn()

	// ensure that run_id gets added as an attribute when present in context
	ctx := context.WithValue(t.Context(), RunIdKey, "run-1234")
	multislogger.Logger.Log(ctx, slog.LevelDebug, "info_with_interesting_ctx_value")

	require.Contains(t, fileBuf.String(), "info_with_interesting_ctx_value")
	requireContainsAttribute(t, &fileBuf, RunIdKey.String(), "run-1234")

	require.Contains(t, consoleBuf.String(), "info_with_interesting_ctx_value")
	requireContainsAttribute(t, &consoleBuf, RunIdKey.String(), "run-1234")
}

func TestMultiSlogger_ReplaceHandlers(t *testing.T) {
	t.Parallel()

	var bootstrapBuf, fileBuf bytes.Buffer

	multislogger := New(slog.NewTextHandler(&bootstrapBuf, nil))
	previous := multislogger.ReplaceHandlers(slog.NewTextHandler(&fileBuf, nil))
	require.Len(t, previous, 1)

	multislogger.Logger.WarnContext(t.Context(), "after_replace")
	require.Empty(t, bootstrapBuf.String(), "replaced handler should not see new records")
	require.Contains(t, fileBuf.String(), "after_replace")

	multislogger.ReplaceHandlers(previous...)
	fileBuf.Reset()

	multislogger.Logger.WarnContext(t.Context(), "after_restore")
	require.Contains(t, bootstrapBuf.String(), "after_restore")
	require.Empty(t, fileBuf.String())

	multislogger.ReplaceHandlers()
	require.NotPanics(t, func() {
		multislogger.Logger.WarnContext(t.Context(), "discarded")
	})
}

func TestMultiSlogger_UTC(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	multislogger := New(slog.NewJSONHandler(&buf, nil))
	multislogger.Logger.InfoContext(t.Context(), "utc please")

	records := jsonl(t, &buf)
	require.Len(t, records, 1)

	ts, ok := records[0]["time"].(string)
	require.True(t, ok)

	parsed, err := time.Parse(time.RFC3339Nano, ts)
	require.NoError(t, err)
	_, offset := parsed.Zone()
	require.Equal(t, 0, offset)
}

func TestNewNopLogger(t *testing.T) {
	t.Parallel()

	require.NotPanics(t, func() {
		NewNopLogger().Log(t.Context(), slog.LevelError, "nowhere")
	})
}

func requireContainsAttribute(t *testing.T, r io.Reader, key, value string) {
	for _, data := range jsonl(t, r) {
		if v, ok := data[key]; ok {
			require.Equal(t, value, v)
			return
		}
	}

	t.Fatal("attribute not found")
}

func jsonl(t *testing.T, reader io.Reader) []map[string]interface{} {
	var result []map[string]interface{}

	decoder := json.NewDecoder(reader)
	for {
		var data map[string]interface{}

		err := decoder.Decode(&data)
		if err == io.EOF {
			break
		}

		require.NoError(t, err)
		result = append(result, data)
	}

	return result
}
