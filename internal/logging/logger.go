package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/UMD-UROC/ssh-operations-hub/internal/target"
)

// LogLevel represents the logging level
type LogLevel string

const (
	LevelInfo  LogLevel = "info"
	LevelError LogLevel = "error"
)

// LogFormat represents the output format for logs
type LogFormat string

const (
	FormatJSON LogFormat = "json"
	FormatText LogFormat = "text"
)

// Config holds logging configuration
type Config struct {
	Level  LogLevel  // Minimum log level to output
	Format LogFormat // Output format (json or text)
	Output io.Writer // Output destination (defaults to stderr)
	Quiet  bool      // If true, suppress non-error output
}

// Logger wraps slog.Logger with dispatch-domain helpers
type Logger struct {
	logger *slog.Logger
	config Config
}

// NewLogger creates a new logger instance
func NewLogger(config Config) *Logger {
	if config.Output == nil {
		config.Output = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level: convertLogLevel(config.Level),
	}

	var handler slog.Handler
	switch config.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(config.Output, opts)
	default:
		handler = slog.NewTextHandler(config.Output, opts)
	}

	return &Logger{
		logger: slog.New(handler),
		config: config,
	}
}

// NewLoggerFromConfig creates a logger from application configuration strings.
func NewLoggerFromConfig(logLevel, logFormat string, quiet bool) *Logger {
	level := LevelInfo
	if logLevel == "error" {
		level = LevelError
	}

	format := FormatText
	if logFormat == "json" {
		format = FormatJSON
	}

	return NewLogger(Config{Level: level, Format: format, Quiet: quiet})
}

func convertLogLevel(level LogLevel) slog.Level {
	if level == LevelError {
		return slog.LevelError
	}
	return slog.LevelInfo
}

// WithRunID returns a logger that tags every entry with the run identifier.
func (l *Logger) WithRunID(runID string) *Logger {
	return &Logger{
		logger: l.logger.With("run_id", runID),
		config: l.config,
	}
}

// Info logs an informational message
func (l *Logger) Info(msg string, args ...any) {
	if l.config.Quiet {
		return
	}
	l.logger.Info(msg, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, args ...any) {
	if l.config.Quiet {
		return
	}
	l.logger.Warn(msg, args...)
}

// Error logs an error message
func (l *Logger) Error(msg string, args ...any) {
	l.logger.Error(msg, args...)
}

// IsQuiet returns whether the logger is in quiet mode
func (l *Logger) IsQuiet() bool {
	return l.config.Quiet
}

// LogConfigLoad logs configuration loading events
func (l *Logger) LogConfigLoad(source string) {
	l.Info("configuration loaded", "source", source)
}

// LogConfigError logs configuration errors
func (l *Logger) LogConfigError(source string, err error) {
	l.Error("configuration error", "source", source, "error", err.Error())
}

// LogValidationError logs a per-suffix validation failure
func (l *Logger) LogValidationError(message string) {
	l.Error("host validation failed", "error", message)
}

// LogDuplicateSuffix logs the non-fatal advisory for a repeated suffix
func (l *Logger) LogDuplicateSuffix(suffix string) {
	l.Warn("skipping duplicate IP suffix", "suffix", suffix)
}

// LogDispatchStart logs the start of a dispatch run
func (l *Logger) LogDispatchStart(taskCount, workers int) {
	l.Info("dispatch started", "task_count", taskCount, "workers", workers)
}

// LogDispatchComplete logs the completion of a dispatch run
func (l *Logger) LogDispatchComplete(expected, emitted, failed int, duration time.Duration) {
	l.Info("dispatch completed",
		"expected", expected,
		"emitted", emitted,
		"failed", failed,
		"total_duration_ms", duration.Milliseconds(),
	)
}

// LogProbeFailure logs a failed reachability probe
func (l *Logger) LogProbeFailure(host target.Host, user string) {
	l.Error("ssh probe failed",
		"host", host.Addr(),
		"user", user,
	)
}

// LogCommandStart logs the start of the command phase on one host
func (l *Logger) LogCommandStart(host target.Host, user, command string) {
	l.Info("running command",
		"host", host.Addr(),
		"user", user,
		"command", command,
	)
}

// LogCommandResult logs one finished command phase
func (l *Logger) LogCommandResult(host target.Host, user string, exitCode int, duration time.Duration) {
	l.Info("command finished",
		"host", host.Addr(),
		"user", user,
		"exit_code", exitCode,
		"duration_ms", duration.Milliseconds(),
	)
}

// LogShutdown logs receipt of an interrupt signal
func (l *Logger) LogShutdown(signal string) {
	l.Error("interrupted, stopping all SSH connections", "signal", signal)
}
