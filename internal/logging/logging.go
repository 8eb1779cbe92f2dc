// Package logging configures the process-wide slog logger and provides the
// event helpers used by the CLI, the HTTP API and the websocket reader.
//
// The logger writes to stderr by default so passages printed on stdout stay
// clean when piped.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// RequestIDKey is the context key for request IDs.
const RequestIDKey ContextKey = "request_id"

var defaultLogger *slog.Logger

func init() {
	InitLogger(os.Stderr, LevelWarn, FormatText)
}

// Level is the minimum severity written.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var slogLevels = map[Level]slog.Level{
	LevelDebug: slog.LevelDebug,
	LevelInfo:  slog.LevelInfo,
	LevelWarn:  slog.LevelWarn,
	LevelError: slog.LevelError,
}

var levelNames = map[string]Level{
	"":        LevelInfo,
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
}

// Format selects the slog handler.
type Format int

const (
	FormatJSON Format = iota
	FormatText
)

// ParseLevel accepts debug, info, warn (or warning) and error in any case.
// The empty string means info.
func ParseLevel(s string) (Level, error) {
	if l, ok := levelNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return l, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// ParseFormat accepts json or text. The empty string means text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "text", "":
		return FormatText, nil
	}
	return FormatText, fmt.Errorf("unknown log format %q", s)
}

// InitLogger replaces the global logger. Timestamps are RFC 3339.
func InitLogger(w io.Writer, level Level, format Format) {
	sl, ok := slogLevels[level]
	if !ok {
		sl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{
		Level: sl,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler = slog.NewTextHandler(w, opts)
	if format == FormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	}
	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// LoggerFromContext returns the global logger, tagged with the request ID
// when ctx carries one.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if id := GetRequestID(ctx); id != "" {
		return defaultLogger.With("request_id", id)
	}
	return defaultLogger
}

func Debug(msg string, args ...any) { defaultLogger.Debug(msg, args...) }
func Info(msg string, args ...any)  { defaultLogger.Info(msg, args...) }
func Warn(msg string, args ...any)  { defaultLogger.Warn(msg, args...) }
func Error(msg string, args ...any) { defaultLogger.Error(msg, args...) }

func InfoContext(ctx context.Context, msg string, args ...any) {
	LoggerFromContext(ctx).Info(msg, args...)
}

func WarnContext(ctx context.Context, msg string, args ...any) {
	LoggerFromContext(ctx).Warn(msg, args...)
}

func ErrorContext(ctx context.Context, msg string, args ...any) {
	LoggerFromContext(ctx).Error(msg, args...)
}

// HTTPRequestContext logs one served request.
func HTTPRequestContext(ctx context.Context, method, path, remoteAddr string, statusCode int, duration time.Duration, args ...any) {
	fields := []any{
		"method", method,
		"path", path,
		"remote_addr", remoteAddr,
		"status_code", statusCode,
		"duration_ms", duration.Milliseconds(),
	}
	LoggerFromContext(ctx).Info("http_request", append(fields, args...)...)
}

// CorpusLoaded logs a dataset that finished loading.
func CorpusLoaded(path string, books, verses int, duration time.Duration, args ...any) {
	fields := []any{
		"path", path,
		"books", books,
		"verses", verses,
		"duration_ms", duration.Milliseconds(),
	}
	defaultLogger.Info("corpus_loaded", append(fields, args...)...)
}

// Autocorrect logs a book name that was resolved by alias or fuzzy match,
// e.g. input "genisis" read as "Genesis".
func Autocorrect(ctx context.Context, input, canonical, match string, args ...any) {
	fields := []any{"input", input, "canonical", canonical, "match", match}
	LoggerFromContext(ctx).Info("book_autocorrect", append(fields, args...)...)
}

// WebSocketEvent logs a reader session connecting, leaving or misbehaving.
func WebSocketEvent(event, sessionID string, args ...any) {
	fields := []any{"event", event, "session_id", sessionID}
	defaultLogger.Info("websocket_event", append(fields, args...)...)
}

// ServerStartup logs the listening address and the served corpus.
func ServerStartup(serverType, protocol string, port int, args ...any) {
	fields := []any{"server_type", serverType, "protocol", protocol, "port", port}
	defaultLogger.Info("server_startup", append(fields, args...)...)
}

// SecurityEvent logs rejected requests and security-relevant settings at
// warn level, so they show with the CLI's default verbosity.
func SecurityEvent(event, component string, args ...any) {
	fields := []any{"event", event, "component", component}
	defaultLogger.Warn("security_event", append(fields, args...)...)
}
