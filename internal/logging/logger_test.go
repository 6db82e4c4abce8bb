// Copyright (c) 2025 SQLAI
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/pterm/pterm"
)

func TestNewLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Options{Level: slog.LevelDebug, JSON: true, Writer: &buf})
	logger.Info("completion_attempt", slog.Int("credential_index", 2))

	out := buf.String()
	if !strings.Contains(out, "completion_attempt") {
		t.Fatalf("log output missing message: %q", out)
	}
	if !strings.Contains(out, "credential_index") {
		t.Fatalf("log output missing attribute: %q", out)
	}
}

func TestNewLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Options{Level: slog.LevelWarn, JSON: true, Writer: &buf})
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %q", buf.String())
	}
}

func TestPtermLevel(t *testing.T) {
	tests := []struct {
		in   slog.Level
		want pterm.LogLevel
	}{
		{slog.LevelDebug, pterm.LogLevelDebug},
		{slog.LevelInfo, pterm.LogLevelInfo},
		{slog.LevelWarn, pterm.LogLevelWarn},
		{slog.LevelError, pterm.LogLevelError},
	}
	for _, tt := range tests {
		if got := ptermLevel(tt.in); got != tt.want {
			t.Errorf("ptermLevel(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPresentError(t *testing.T) {
	err := errors.New("connect postgres://u:p@host/db: refused")
	if got := PresentError("connect", err); got != "connect: connect postgres://*:*@host/db: refused" {
		t.Errorf("PresentError() = %q", got)
	}
	if got := PresentError("", nil); got != "" {
		t.Errorf("PresentError(nil) = %q", got)
	}
}
