// Package logging provides simple leveled logging for the device gateway.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// Logger wraps stdlib log with level support and a set of key=value fields
// carried along for every call. Child loggers produced by With* share the
// underlying writer and mutex with their parent and only add to the field
// set — they never mutate it.
type Logger struct {
	logger *log.Logger
	level  LogLevel
	format string
	fields []string // pre-rendered "key=value" pairs applied to every line
	mu     *sync.Mutex
}

var (
	defaultLogger *Logger
	mu            sync.RWMutex
)

// LogLevel represents the available log levels.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Config holds logging configuration.
type Config struct {
	Level   LogLevel
	Format  string // "text" (default) or "json"
	Output  io.Writer
	Sync    bool // reserved for a future buffered writer; logging is synchronous today
	NoColor bool
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:  LevelInfo,
		Format: "text",
		Output: os.Stderr,
	}
}

// NewLogger creates a new logger.
func NewLogger(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	output := config.Output
	if output == nil {
		output = os.Stderr
	}
	format := config.Format
	if format == "" {
		format = "text"
	}
	return &Logger{
		logger: log.New(output, "", log.LstdFlags),
		level:  config.Level,
		format: format,
		mu:     &sync.Mutex{},
	}
}

// Default returns the default logger, creating it if necessary.
func Default() *Logger {
	mu.RLock()
	if defaultLogger != nil {
		defer mu.RUnlock()
		return defaultLogger
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewLogger(nil)
	}
	return defaultLogger
}

// SetDefault sets the default logger.
func SetDefault(logger *Logger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = logger
}

// With returns a child logger that prepends the given key/value pairs to
// every subsequent line.
func (l *Logger) With(args ...any) *Logger {
	child := &Logger{
		logger: l.logger,
		level:  l.level,
		format: l.format,
		mu:     l.mu,
	}
	child.fields = append(append([]string{}, l.fields...), formatPairs(args)...)
	return child
}

// WithDevice scopes the logger to a single device's unique_id. Every
// DeviceWorker holds one of these for the lifetime of its goroutine.
func (l *Logger) WithDevice(uniqueID string) *Logger {
	return l.With("unique_id", uniqueID)
}

// WithRequest scopes the logger to one in-flight request or prompt,
// tagging it with its correlation id and the operation it belongs to.
func (l *Logger) WithRequest(requestID, op string) *Logger {
	return l.With("request_id", requestID, "op", op)
}

// WithError attaches an error to every subsequent line from the returned
// child logger.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.With("error", err.Error())
}

func formatPairs(args []any) []string {
	var out []string
	for i := 0; i+1 < len(args); i += 2 {
		out = append(out, fmt.Sprintf("%v=%v", args[i], args[i+1]))
	}
	return out
}

// formatArgs converts key-value pairs to the " key=value ..." suffix used by
// the text formatter.
func (l *Logger) formatArgs(args []any) string {
	all := append(append([]string{}, l.fields...), formatPairs(args)...)
	if len(all) == 0 {
		return ""
	}
	return " " + strings.Join(all, " ")
}

func (l *Logger) log(level LogLevel, prefix, msg string, args ...any) {
	if level < l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	suffix := l.formatArgs(args)
	if l.format == "json" {
		l.logger.Printf(`{"level":%q,"msg":%q%s}`, strings.Trim(prefix, "[]"), msg, jsonFields(suffix))
		return
	}
	l.logger.Printf("%s %s%s", prefix, msg, suffix)
}

// jsonFields turns the " key=value key2=value2" text suffix into trailing
// JSON object members; this is a diagnostic stream, not a parsed API, so it
// does no escaping beyond %q.
func jsonFields(suffix string) string {
	suffix = strings.TrimSpace(suffix)
	if suffix == "" {
		return ""
	}
	var b strings.Builder
	for _, pair := range strings.Fields(suffix) {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			continue
		}
		fmt.Fprintf(&b, ",%q:%q", kv[0], kv[1])
	}
	return b.String()
}

func (l *Logger) Debug(msg string, args ...any) {
	l.log(LevelDebug, "[DEBUG]", msg, args...)
}

func (l *Logger) Info(msg string, args ...any) {
	l.log(LevelInfo, "[INFO]", msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.log(LevelWarn, "[WARN]", msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.log(LevelError, "[ERROR]", msg, args...)
}

// Printf-style logging, for callers holding the narrow interfaces.Logger
// contract instead of the concrete type.
func (l *Logger) Debugf(format string, args ...any) {
	l.log(LevelDebug, "[DEBUG]", fmt.Sprintf(format, args...))
}

func (l *Logger) Infof(format string, args ...any) {
	l.log(LevelInfo, "[INFO]", fmt.Sprintf(format, args...))
}

func (l *Logger) Warnf(format string, args ...any) {
	l.log(LevelWarn, "[WARN]", fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...any) {
	l.log(LevelError, "[ERROR]", fmt.Sprintf(format, args...))
}

// Printf for compatibility with interfaces.Logger.
func (l *Logger) Printf(format string, args ...any) {
	l.Infof(format, args...)
}

// Global convenience functions operating on the default logger.
func Debug(msg string, args ...any) { Default().Debug(msg, args...) }
func Info(msg string, args ...any)  { Default().Info(msg, args...) }
func Warn(msg string, args ...any)  { Default().Warn(msg, args...) }
func Error(msg string, args ...any) { Default().Error(msg, args...) }
