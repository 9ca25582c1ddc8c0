package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureJSON(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	old := Logger
	Logger = NewLogger(Config{Level: slog.LevelDebug, Format: "json", Writer: buf})
	t.Cleanup(func() { Logger = old })
	return buf
}

func TestContextValuesAppearInLogs(t *testing.T) {
	buf := captureJSON(t)

	ctx := WithContextValue(context.Background(), SessionIDKey, "abc-123")
	ctx = WithContextValue(ctx, ConnectionKey, "local")
	InfoContext(ctx, "query executed", "rows", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "query executed", entry["msg"])
	assert.Equal(t, "abc-123", entry["session_id"])
	assert.Equal(t, "local", entry["connection"])
	assert.Equal(t, float64(3), entry["rows"])
}

func TestExtractContextValues(t *testing.T) {
	assert.Nil(t, ExtractContextValues(context.Background()))

	ctx := WithContextValue(context.Background(), RequestIDKey, "req-9")
	assert.Equal(t, []any{"request_id", "req-9"}, ExtractContextValues(ctx))
}

func TestLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	old := Logger
	Logger = NewLogger(Config{Level: slog.LevelWarn, Format: "text", Writer: buf})
	t.Cleanup(func() { Logger = old })

	Debug("hidden")
	Info("hidden too")
	Warn("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
}

func TestNewLoggerDefaultsWriter(t *testing.T) {
	assert.NotNil(t, NewLogger(Config{Format: "text"}))
	assert.NotNil(t, NewLogger(Config{Format: "json"}))
}
