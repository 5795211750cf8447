//go:build unit

package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"finance-hub/internal/config"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	t.Run("console format", func(t *testing.T) {
		var buf bytes.Buffer
		log := New(config.LogConfig{Level: "info", Format: "console"}, &buf)

		log.Info("hello world")

		output := buf.String()
		assert.Contains(t, output, "hello world")
		assert.NotContains(t, output, "{", "expected console format")
	})

	t.Run("json format", func(t *testing.T) {
		var buf bytes.Buffer
		log := New(config.LogConfig{Level: "error", Format: "json"}, &buf)

		log.Error(errors.New("test error"), "an error occurred")

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "output: %s", buf.String())
		assert.Equal(t, "error", entry["level"])
		assert.Equal(t, "an error occurred", entry["message"])
		assert.Equal(t, "test error", entry["error"])
	})

	t.Run("log level filtering", func(t *testing.T) {
		var buf bytes.Buffer
		log := New(config.LogConfig{Level: "warn", Format: "console"}, &buf)

		log.Info("this should be ignored")
		log.Warn("this should appear")

		assert.NotContains(t, buf.String(), "this should be ignored")
		assert.Contains(t, buf.String(), "this should appear")
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		var buf bytes.Buffer
		log := New(config.LogConfig{Level: "loud", Format: "json"}, &buf)

		log.Debug("hidden")
		log.Info("shown")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})

	t.Run("with adds fields", func(t *testing.T) {
		var buf bytes.Buffer
		log := New(config.LogConfig{Level: "info", Format: "json"}, &buf).
			With(map[string]interface{}{"component": "assist"})

		log.Info("scraped")

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "assist", entry["component"])
	})
}
