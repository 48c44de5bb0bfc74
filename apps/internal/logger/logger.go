// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

package logger

import (
	"context"
	"log/slog"
)

type Level string

const (
	Info  Level = "info"
	Err   Level = "error"
	Warn  Level = "warn"
	Debug Level = "debug"
)

// Logger wraps a *slog.Logger. The zero value and a nil *Logger discard everything.
type Logger struct {
	logging *slog.Logger
}

// New creates a new logger instance. When slogLogger is nil, log output is discarded:
// stdout belongs to the access token and stderr to diagnostics chosen by the caller.
func New(slogLogger *slog.Logger) *Logger {
	if slogLogger == nil {
		return &Logger{logging: slog.New(slog.DiscardHandler)}
	}
	return &Logger{logging: slogLogger}
}

// Log writes message at level with the structured fields.
func (a *Logger) Log(ctx context.Context, level Level, message string, fields ...any) {
	if a == nil || a.logging == nil {
		return
	}
	var slogLevel slog.Level
	switch level {
	case Info:
		slogLevel = slog.LevelInfo
	case Err:
		slogLevel = slog.LevelError
	case Warn:
		slogLevel = slog.LevelWarn
	case Debug:
		slogLevel = slog.LevelDebug
	default:
		slogLevel = slog.LevelInfo
	}

	a.logging.Log(ctx, slogLevel, message, fields...)
}

// Field creates a slog field for any value
func Field(key string, value any) any {
	return slog.Any(key, value)
}
