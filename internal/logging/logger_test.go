package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelInfo, Format: "text", Output: &buf})

	ctx := context.Background()
	logger.Debug(ctx, "debug message")
	assert.Empty(t, buf.String(), "debug should be filtered at info level")

	logger.Info(ctx, "info message")
	assert.Contains(t, buf.String(), "info message")
}

func TestLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelDebug, Format: "json", Output: &buf})

	logger.Error(context.Background(), errors.New("boom"), "render failed", "card", "Alpha")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "render failed", entry["msg"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "Alpha", entry["card"])
}

func TestLoggerWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelDebug, Format: "json", Output: &buf})

	scoped := logger.WithComponent("watcher").With("deck", "race-to-agi")
	scoped.Info(context.Background(), "started")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "watcher", entry["component"])
	assert.Equal(t, "race-to-agi", entry["deck"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelInfo, ParseLevel("info"))
	assert.Equal(t, LevelWarn, ParseLevel("warn"))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel("bogus"))
}
