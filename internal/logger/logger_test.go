package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Level: "debug", Format: "json", Output: &buf})
	require.NoError(t, err)

	log.Named("classifier").Warn(context.Background(), "fallback",
		String("reason", "timeout"),
		Int("clause_id", 4),
		Error(errors.New("deadline exceeded")),
	)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "fallback", entry["msg"])
	assert.Equal(t, "classifier", entry["component"])
	assert.Equal(t, "timeout", entry["reason"])
	assert.EqualValues(t, 4, entry["clause_id"])
	assert.Equal(t, "deadline exceeded", entry["error"])
	assert.Contains(t, entry["source"], "logger_test.go:")
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Level: "warn", Output: &buf})
	require.NoError(t, err)

	log.Info(context.Background(), "hidden")
	assert.Zero(t, buf.Len())

	log.Error(context.Background(), "shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_Rejects(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	assert.Error(t, err)

	_, err = New(Options{Format: "xml"})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().Named("x").Error(context.Background(), "dropped", Any("k", 1))
	})
}
