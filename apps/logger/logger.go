// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

// Package logger builds the *slog.Logger values handed to confidential.WithLogger and routes
// Azure SDK log events into them.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	azlog "github.com/Azure/azure-sdk-for-go/sdk/azcore/log"
)

type Level string

const (
	Info  Level = "info"
	Err   Level = "error"
	Warn  Level = "warn"
	Debug Level = "debug"
)

// ParseLevel returns the Level named by s, ignoring case.
func ParseLevel(s string) (Level, error) {
	switch l := Level(strings.ToLower(s)); l {
	case Info, Err, Warn, Debug:
		return l, nil
	case "err":
		return Err, nil
	}
	return "", fmt.Errorf("unknown log level %q, want one of debug, info, warn, error", s)
}

func (l Level) slogLevel() slog.Level {
	switch l {
	case Err:
		return slog.LevelError
	case Warn:
		return slog.LevelWarn
	case Debug:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// New returns a logger writing text records at level or above to w.
func New(w io.Writer, level Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level.slogLevel()}))
}

// AzureSDKListener returns an azcore log listener that writes Azure SDK events to l at debug level.
// Install it with azlog.SetListener.
func AzureSDKListener(l *slog.Logger) func(azlog.Event, string) {
	return func(event azlog.Event, msg string) {
		l.Log(context.Background(), slog.LevelDebug, msg, slog.String("azure_event", string(event)))
	}
}
