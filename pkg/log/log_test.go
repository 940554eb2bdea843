package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextLogger(t *testing.T) {
	ctx := context.Background()

	// Test Ctx without a logger in the context
	l1 := Ctx(ctx)
	require.NotNil(t, l1, "Ctx returned nil instead of default logger")
	assert.Equal(t, defaultLogger, l1, "Ctx should return defaultLogger")

	customLogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	require.NotEqual(t, defaultLogger, customLogger, "Failed to create a distinct custom logger for testing")

	// Test With and Ctx with a logger in the context
	ctxWithLogger := With(ctx, customLogger)
	l2 := Ctx(ctxWithLogger)
	require.NotNil(t, l2, "Ctx returned nil, expected custom logger")
	assert.Equal(t, customLogger, l2, "Ctx should return customLogger")
}

func TestSetOutput(t *testing.T) {
	prev := defaultLogger
	t.Cleanup(func() { defaultLogger = prev })

	var buf bytes.Buffer
	SetOutput(&buf)
	SetDefaultLogLevel(slog.LevelInfo)

	Ctx(context.Background()).Info("hello", slog.String("inverter", "1"))
	Ctx(context.Background()).Debug("dropped")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "1", entry["inverter"])
	assert.NotContains(t, buf.String(), "dropped")
}

func TestRotatingWriter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	w, err := RotatingWriter(dir, 24*time.Hour)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Write([]byte("{\"msg\":\"poll\"}\n"))
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(dir, "solarlog.*.log"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "poll")
}
