package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
	assert.False(t, ValidLevel("bogus"))
	assert.True(t, ValidLevel("Warn"))
}

func TestNew_JSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "warn", "json")
	logger.Info("dropped")
	logger.Warn("kept", "k", 1)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["msg"])
	assert.EqualValues(t, 1, line["k"])
}

func TestWithFields_CarriesFieldsAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	ctx := NewContext(context.Background(), New(&buf, "info", "json"))
	ctx = context.WithValue(ctx, middleware.RequestIDKey, "req-1")

	ctx, logger := WithFields(ctx, "batch_id", "b-1")
	logger.Info("first")
	FromContext(ctx).Info("second")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	for _, l := range lines {
		var m map[string]any
		require.NoError(t, json.Unmarshal(l, &m))
		assert.Equal(t, "b-1", m["batch_id"])
		assert.Equal(t, "req-1", m["request_id"])
	}
}

func TestFromContext_DefaultsToSlogDefault(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))
}
