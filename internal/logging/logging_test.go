package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWriter_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := Component(NewWriter(&buf, "info", "json"), "pipeline")
	log.Debug("hidden")
	log.Info("run finished", "records", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "run finished", entry["msg"])
	assert.Equal(t, "pipeline", entry["component"])
	assert.EqualValues(t, 3, entry["records"])
}

func TestLevelFromString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.LevelError, levelFromString("ERROR"))
	assert.Equal(t, slog.LevelWarn, levelFromString("warning"))
	assert.Equal(t, slog.LevelInfo, levelFromString(" info "))
	assert.Equal(t, slog.LevelDebug, levelFromString(""))
}

func TestComponent_NilParent(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() {
		Component(nil, "x").Info("dropped")
	})
}
