package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
	}{
		{name: "default config", config: nil},
		{name: "json format", config: &Config{Level: LevelInfo, Format: "json", Output: &bytes.Buffer{}}},
		{name: "text format", config: &Config{Level: LevelDebug, Format: "text", Output: &bytes.Buffer{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLogger(tt.config)
			require.NotNil(t, logger)
		})
	}
}

func TestLoggerWithDeviceAndRequest(t *testing.T) {
	var buf bytes.Buffer
	config := &Config{Level: LevelDebug, Format: "text", Output: &buf, Sync: true, NoColor: true}

	logger := NewLogger(config)

	deviceLogger := logger.WithDevice("abc123")
	deviceLogger.Info("device connected")

	output := buf.String()
	require.Contains(t, output, "unique_id=abc123")

	buf.Reset()
	requestLogger := deviceLogger.WithRequest("req-1", "get_address")
	requestLogger.Info("request admitted")

	output = buf.String()
	require.Contains(t, output, "unique_id=abc123")
	require.Contains(t, output, "request_id=req-1")
	require.Contains(t, output, "op=get_address")
}

func TestLoggerWithError(t *testing.T) {
	var buf bytes.Buffer
	config := &Config{Level: LevelDebug, Format: "text", Output: &buf, Sync: true, NoColor: true}

	logger := NewLogger(config)
	errorLogger := logger.WithError(errors.New("transport disconnected"))
	errorLogger.Error("write_report failed")

	require.Contains(t, buf.String(), "transport disconnected")
}

func TestLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	config := &Config{Level: LevelInfo, Format: "json", Output: &buf}

	logger := NewLogger(config).WithDevice("xyz")
	logger.Info("features_updated")

	output := buf.String()
	require.True(t, strings.Contains(output, `"msg":"features_updated"`))
	require.True(t, strings.Contains(output, `"unique_id":"xyz"`))
}

func TestGlobalLoggerFunctions(t *testing.T) {
	var buf bytes.Buffer
	config := &Config{Level: LevelDebug, Format: "text", Output: &buf, Sync: true, NoColor: true}

	SetDefault(NewLogger(config))

	Debug("debug message", "key", "value")
	require.Contains(t, buf.String(), "debug message")
	require.Contains(t, buf.String(), "key=value")

	buf.Reset()
	Info("info message")
	require.Contains(t, buf.String(), "info message")

	buf.Reset()
	Warn("warning message")
	require.Contains(t, buf.String(), "warning message")

	buf.Reset()
	Error("error message")
	require.Contains(t, buf.String(), "error message")
}
