// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package util

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger returns a text logger without time and level attributes, for
// clean CLI output.
func NewLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}

// InitLogger returns the process logger on stderr and installs it as the
// slog default. Set APVAULT_DEBUG=1 to enable debug logging.
func InitLogger() *slog.Logger {
	logger := NewLogger(os.Stderr, os.Getenv("APVAULT_DEBUG") != "")
	slog.SetDefault(logger)
	return logger
}
