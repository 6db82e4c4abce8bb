// Copyright (c) 2025 SQLAI
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"io"
	"log/slog"

	"github.com/pterm/pterm"
)

// Options configures NewLogger.
type Options struct {
	Level  slog.Level
	JSON   bool
	Writer io.Writer
}

// NewLogger returns a slog.Logger rendered by pterm, so structured progress
// lines share the console style of the rest of the CLI.
func NewLogger(opts Options) *slog.Logger {
	writer := opts.Writer
	if writer == nil {
		writer = io.Discard
	}
	pl := pterm.DefaultLogger.
		WithLevel(ptermLevel(opts.Level)).
		WithWriter(writer)
	if opts.JSON {
		pl = pl.WithFormatter(pterm.LogFormatterJSON)
	}
	return slog.New(pterm.NewSlogHandler(pl))
}

// Discard returns a logger that drops everything; handy in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptermLevel(level slog.Level) pterm.LogLevel {
	switch {
	case level <= slog.LevelDebug:
		return pterm.LogLevelDebug
	case level <= slog.LevelInfo:
		return pterm.LogLevelInfo
	case level <= slog.LevelWarn:
		return pterm.LogLevelWarn
	default:
		return pterm.LogLevelError
	}
}
