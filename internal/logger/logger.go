// Package logger provides structured logging for the faceted search client
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger wraps zerolog with search-client specific functionality
type Logger struct {
	zlog zerolog.Logger
}

// Config holds logger configuration
type Config struct {
	Level      string // debug, info, warn, error
	Pretty     bool   // pretty-print for development
	Output     io.Writer
	WithCaller bool
}

// NewLogger creates a new structured logger
func NewLogger(cfg Config) *Logger {
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	zlog := zerolog.New(output).
		With().
		Timestamp().
		Str("service", "facetsearch").
		Logger()

	if cfg.WithCaller {
		zlog = zlog.With().Caller().Logger()
	}

	return &Logger{zlog: zlog}
}

// GetZerolog returns the underlying zerolog logger
func (l *Logger) GetZerolog() *zerolog.Logger {
	return &l.zlog
}

// Info logs an info message
func (l *Logger) Info(msg string) *zerolog.Event {
	return l.zlog.Info().Str("msg", msg)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string) *zerolog.Event {
	return l.zlog.Debug().Str("msg", msg)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string) *zerolog.Event {
	return l.zlog.Warn().Str("msg", msg)
}

// Error logs an error message
func (l *Logger) Error(msg string) *zerolog.Event {
	return l.zlog.Error().Str("msg", msg)
}

// HTTPLogger returns a logger for outbound API calls
func (l *Logger) HTTPLogger(endpoint string) *Logger {
	return &Logger{
		zlog: l.zlog.With().
			Str("component", "http").
			Str("endpoint", endpoint).
			Logger(),
	}
}

// SessionLogger returns a logger for search-session operations
func (l *Logger) SessionLogger(operation string) *Logger {
	return &Logger{
		zlog: l.zlog.With().
			Str("component", "session").
			Str("operation", operation).
			Logger(),
	}
}

// LogHTTPRequest logs an outbound API request with structured fields
func (l *Logger) LogHTTPRequest(method, endpoint, requestID string, status int, duration time.Duration, err error) {
	event := l.zlog.Info().
		Str("component", "http").
		Str("method", method).
		Str("endpoint", endpoint).
		Str("request_id", requestID).
		Int("status", status).
		Dur("duration_ms", duration)

	if err != nil {
		event = l.zlog.Error().
			Str("component", "http").
			Str("method", method).
			Str("endpoint", endpoint).
			Str("request_id", requestID).
			Dur("duration_ms", duration).
			Err(err)
	}

	event.Msg("API request completed")
}

// LogSearch logs a completed search dispatch with its sequence number
func (l *Logger) LogSearch(seq uint64, scope string, hits int, duration time.Duration, err error) {
	event := l.zlog.Info().
		Str("component", "session").
		Uint64("seq", seq).
		Str("scope", scope).
		Int("hits", hits).
		Dur("duration_ms", duration)

	if err != nil {
		event = l.zlog.Error().
			Str("component", "session").
			Uint64("seq", seq).
			Str("scope", scope).
			Dur("duration_ms", duration).
			Err(err)
	}

	event.Msg("Search completed")
}

// LogStaleResponse logs a discarded out-of-date search response
func (l *Logger) LogStaleResponse(seq, latest uint64) {
	l.zlog.Debug().
		Str("component", "session").
		Uint64("seq", seq).
		Uint64("latest", latest).
		Msg("Discarded stale search response")
}

// Global logger instance
var globalLogger *Logger

// InitGlobalLogger initializes the global logger
func InitGlobalLogger(cfg Config) {
	globalLogger = NewLogger(cfg)
	log.Logger = *globalLogger.GetZerolog()
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() *Logger {
	if globalLogger == nil {
		// Initialize with defaults if not set
		InitGlobalLogger(Config{
			Level:  "info",
			Pretty: true,
		})
	}
	return globalLogger
}
