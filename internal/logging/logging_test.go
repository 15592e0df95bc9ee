package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFromString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.LevelError, levelFromString("ERROR"))
	assert.Equal(t, slog.LevelWarn, levelFromString(" warning "))
	assert.Equal(t, slog.LevelDebug, levelFromString("debug"))
	assert.Equal(t, slog.LevelInfo, levelFromString(""))
}

func TestComponentJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := Component(NewWithWriter(&buf, "info", "json"), "stage.judge")
	logger.Debug("hidden")
	logger.Info("scored", "article_id", "a1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "stage.judge", entry["component"])
	assert.Equal(t, "a1", entry["article_id"])
	assert.Equal(t, "scored", entry["msg"])
}
