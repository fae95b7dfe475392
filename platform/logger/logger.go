// Package logger is the slog setup shared by the API, the worker and certctl.
// Event helpers keep message keys stable for log queries.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type contextKey string

// Context keys set by httpkit and picked up by WithContext.
const (
	RequestIDKey contextKey = "request_id"
	UserIDKey    contextKey = "user_id"
)

type Logger struct {
	*slog.Logger
}

// New logs to stdout: text at debug level in development, JSON otherwise.
func New(env string) *Logger {
	return NewWithWriter(env, os.Stdout)
}

func NewWithWriter(env string, w io.Writer) *Logger {
	if strings.EqualFold(env, "development") {
		return &Logger{Logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))}
	}
	return &Logger{Logger: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))}
}

func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// WithContext adds request_id and user_id when ctx carries them.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}
	var attrs []any
	for _, key := range []contextKey{RequestIDKey, UserIDKey} {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			attrs = append(attrs, slog.String(string(key), v))
		}
	}
	if len(attrs) == 0 {
		return l
	}
	return &Logger{Logger: l.With(attrs...)}
}

func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// RequestFailed records the cause behind a 500 response.
func (l *Logger) RequestFailed(method, path string, err error) {
	l.Error("request_failed",
		slog.String("method", method),
		slog.String("path", path),
		slog.String("error", err.Error()),
	)
}

func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}

// StatusChanged logs a committed workflow transition.
func (l *Logger) StatusChanged(entityType string, entityID int64, oldStatus, newStatus, changedBy string) {
	l.Info("status_changed",
		slog.String("entity_type", entityType),
		slog.Int64("entity_id", entityID),
		slog.String("old_status", oldStatus),
		slog.String("new_status", newStatus),
		slog.String("changed_by", changedBy),
	)
}

// SideEffectFailed logs a best-effort step (mail, render, storage) that failed
// after the core transition was committed.
func (l *Logger) SideEffectFailed(step string, err error, attrs ...any) {
	args := append([]any{slog.String("step", step), slog.String("error", err.Error())}, attrs...)
	l.Error("side_effect_failed", args...)
}

// ReconciliationAmbiguity logs a composite key shared by several applications.
func (l *Logger) ReconciliationAmbiguity(key string, applicationIDs []int64, chosen int64) {
	l.Warn("reconciliation_ambiguity",
		slog.String("key", key),
		slog.Any("application_ids", applicationIDs),
		slog.Int64("chosen_application_id", chosen),
	)
}
