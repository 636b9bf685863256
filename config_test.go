package keepkey

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Values(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, DefaultReportReadTimeout, cfg.ReportReadTimeout)
	require.Equal(t, DefaultMaxContinuationReports, cfg.MaxContinuationReports)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, "text", cfg.LogFormat)
}

func TestLoadConfigFile_OverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := "log_level: debug\nevent_buffer_size: 128\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 128, cfg.EventBufferSize)
	// Untouched fields keep their defaults.
	require.Equal(t, DefaultMaxContinuationReports, cfg.MaxContinuationReports)
}

func TestLoadConfigFile_MissingFile(t *testing.T) {
	_, err := LoadConfigFile("/nonexistent/path/config.yaml")
	require.Error(t, err)
	require.True(t, IsCode(err, ErrCodeIO))
}

func TestLoadConfigFile_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not: valid: yaml: [: :"), 0o644))

	_, err := LoadConfigFile(path)
	require.Error(t, err)
}

func TestConfig_LoggingConfigTranslation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "warn"
	cfg.LogFormat = "json"
	lc := cfg.loggingConfig()
	require.Equal(t, "json", lc.Format)
}
