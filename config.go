package keepkey

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/keepkey/device-gateway/internal/interfaces"
	"github.com/keepkey/device-gateway/internal/logging"
)

// Config parameterizes a Gateway. DefaultConfig returns every field filled
// in, and LoadConfigFile overlays a YAML file onto those defaults (a plain
// struct of knobs plus a constructor, not a builder). Open applies
// EnumerationPollInterval, and LogLevel/LogFormat when Options.Logger is nil.
// It does not pass ReportReadTimeout, MaxContinuationReports,
// ConsecutiveTimeoutsBeforeInvalidState, VendorID, EventBufferSize or
// CommandBufferSize on to any collaborator: device workers run with the
// internal/constants defaults, enumeration matches the fixed VendorID
// constant, and Subscribe callers size their own event channels.
type Config struct {
	// ReportReadTimeout bounds a single report read; a lone timeout is not
	// fatal, see ConsecutiveTimeoutsBeforeInvalidState.
	ReportReadTimeout time.Duration `yaml:"report_read_timeout"`

	// MaxContinuationReports bounds how many reports the framing codec will
	// read while reassembling one message.
	MaxContinuationReports int `yaml:"max_continuation_reports"`

	// EnumerationPollInterval is the enumerator's polling cadence when no OS
	// hotplug callback is available.
	EnumerationPollInterval time.Duration `yaml:"enumeration_poll_interval"`

	// ConsecutiveTimeoutsBeforeInvalidState is how many back-to-back
	// report-read timeouts promote a worker into an invalid/wedged state.
	ConsecutiveTimeoutsBeforeInvalidState int `yaml:"consecutive_timeouts_before_invalid_state"`

	// VendorID filters enumeration to this USB vendor ID.
	VendorID uint16 `yaml:"vendor_id"`

	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `yaml:"log_level"`

	// LogFormat is "text" or "json".
	LogFormat string `yaml:"log_format"`

	// EventBufferSize bounds the outbound event bus channel.
	EventBufferSize int `yaml:"event_buffer_size"`

	// CommandBufferSize bounds the inbound UI-command bus channel.
	CommandBufferSize int `yaml:"command_buffer_size"`
}

// DefaultConfig returns sensible defaults for every knob, matching
// internal/constants' package-level defaults.
func DefaultConfig() Config {
	return Config{
		ReportReadTimeout:                     DefaultReportReadTimeout,
		MaxContinuationReports:                DefaultMaxContinuationReports,
		EnumerationPollInterval:                DefaultEnumerationPollInterval,
		ConsecutiveTimeoutsBeforeInvalidState:  DefaultConsecutiveTimeoutsBeforeInvalidState,
		VendorID:                               uint16(VendorID),
		LogLevel:                               "info",
		LogFormat:                              "text",
		EventBufferSize:                        64,
		CommandBufferSize:                      64,
	}
}

// LoadConfigFile reads a YAML config file and overlays it onto
// DefaultConfig, so a file only needs to specify the fields it wants to
// override.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, &Error{Op: "load_config", Code: ErrCodeIO, Msg: err.Error(), Inner: err}
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, WrapError("parse_config", err)
	}
	return cfg, nil
}

// loggingConfig translates Config's log fields into internal/logging's
// Config shape.
func (c Config) loggingConfig() *logging.Config {
	level := logging.LevelInfo
	switch c.LogLevel {
	case "debug":
		level = logging.LevelDebug
	case "warn":
		level = logging.LevelWarn
	case "error":
		level = logging.LevelError
	}
	return &logging.Config{
		Level:  level,
		Format: c.LogFormat,
		Output: os.Stderr,
	}
}

var _ interfaces.Logger = (*logging.Logger)(nil)
