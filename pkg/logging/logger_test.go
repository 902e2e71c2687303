package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLast(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

func TestLogger_ContextAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: LevelInfo, ServiceName: "pick-ticket-service", Environment: "test", Output: &buf})

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithRunID(ctx, "PT-1")
	logger.WithContext(ctx).WithComponent("engine").WithError(errors.New("boom")).Info("run failed")

	entry := decodeLast(t, &buf)
	assert.Equal(t, "pick-ticket-service", entry["service"])
	assert.Equal(t, "req-1", entry["requestId"])
	assert.Equal(t, "PT-1", entry["runId"])
	assert.Equal(t, "engine", entry["component"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "run failed", entry["msg"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: LevelWarn, ServiceName: "svc", Output: &buf})

	logger.Info("hidden")
	assert.Zero(t, buf.Len())

	logger.HTTPRequest(context.Background(), "GET", "/health", 503, time.Millisecond, "127.0.0.1", "test")
	entry := decodeLast(t, &buf)
	assert.Equal(t, "ERROR", entry["level"])
	assert.EqualValues(t, 503, entry["status"])
}

func TestLogger_Performance(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: LevelInfo, ServiceName: "svc", Output: &buf})

	logger.Performance(context.Background(), "GeneratePickTicket", 1500*time.Millisecond, true, map[string]any{"jobs": 3})

	entry := decodeLast(t, &buf)
	assert.EqualValues(t, 1500, entry["durationMs"])
	assert.EqualValues(t, 3, entry["jobs"])
	assert.Equal(t, true, entry["success"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelWarn, ParseLevel(" warn "))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}
