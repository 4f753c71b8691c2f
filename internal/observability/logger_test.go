// File: internal/observability/logger_test.go
package observability

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/wildmooseai/pageprep/internal/config"
)

// syncBuffer adapts a bytes.Buffer into a zapcore.WriteSyncer.
type syncBuffer struct {
	bytes.Buffer
}

func (s *syncBuffer) Sync() error { return nil }

func TestInitialize(t *testing.T) {
	t.Run("console format colorizes the level", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)

		var buf syncBuffer
		cfg := config.LoggerConfig{
			Level:       "debug",
			Format:      "console",
			ServiceName: "TestService",
			Colors:      config.ColorConfig{Info: "green"},
		}
		Initialize(cfg, zapcore.Lock(&buf))

		GetLogger().Info("readiness wait started")

		output := buf.String()
		assert.Contains(t, output, "INFO")
		assert.Contains(t, output, "readiness wait started")
		assert.Contains(t, output, colorGreen)
		assert.Contains(t, output, colorReset)
		assert.Contains(t, output, "TestService.")
	})

	t.Run("json format produces parseable lines", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)

		var buf syncBuffer
		cfg := config.LoggerConfig{
			Level:       "info",
			Format:      "json",
			ServiceName: "TestService",
		}
		Initialize(cfg, zapcore.Lock(&buf))

		GetLogger().Info("structural root found")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "INFO", entry["level"])
		assert.Equal(t, "structural root found", entry["msg"])
	})

	t.Run("level filter drops lower levels", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)

		var buf syncBuffer
		cfg := config.LoggerConfig{Level: "warn", Format: "json", ServiceName: "TestService"}
		Initialize(cfg, zapcore.Lock(&buf))

		GetLogger().Info("should be filtered")
		GetLogger().Warn("should appear")

		output := buf.String()
		assert.NotContains(t, output, "should be filtered")
		assert.Contains(t, output, "should appear")
	})

	t.Run("second Initialize is a no-op", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)

		var first, second syncBuffer
		cfg := config.LoggerConfig{Level: "info", Format: "json", ServiceName: "First"}
		Initialize(cfg, zapcore.Lock(&first))
		Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "Second"}, zapcore.Lock(&second))

		GetLogger().Info("hello")

		assert.Contains(t, first.String(), "hello")
		assert.Empty(t, second.String())
	})
}

func TestGetLoggerFallback(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	logger := GetLogger()
	require.NotNil(t, logger)
}
