// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the zerolog logger used by every chatdesk command.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Destination selects where log lines go.
type Destination int

const (
	// ToFile writes to a rotating log file. The terminal UI uses this since
	// it owns stdout and stderr.
	ToFile Destination = iota
	// ToStderr writes to standard error.
	ToStderr
)

// Options configures Setup.
type Options struct {
	Level       string // debug, info, warn, error
	Format      string // auto, console, json (stderr only)
	File        string // log file for ToFile
	Destination Destination
}

// Logger is a configured logger plus the file handle behind it.
type Logger struct {
	zerolog.Logger
	closer io.Closer
}

// Close flushes and closes the log file, if any.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// ParseLevel maps a config level name to a zerolog level.
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "info", "":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// Setup builds a logger from opts.
func Setup(opts Options) (*Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	var (
		w      io.Writer
		closer io.Closer
	)
	switch opts.Destination {
	case ToFile:
		if opts.File == "" {
			return nil, fmt.Errorf("log file path is required")
		}
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		rotating := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		w = zerolog.ConsoleWriter{Out: rotating, NoColor: true, TimeFormat: time.RFC3339}
		closer = rotating
	case ToStderr:
		w = stderrWriter(opts.Format, os.Stderr)
	default:
		return nil, fmt.Errorf("unknown log destination %d", opts.Destination)
	}

	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return &Logger{Logger: logger, closer: closer}, nil
}

// stderrWriter picks console or JSON output. "auto" uses the console
// writer only when f is a terminal.
func stderrWriter(format string, f *os.File) io.Writer {
	switch format {
	case "json":
		return f
	case "console":
		return zerolog.ConsoleWriter{Out: f, TimeFormat: time.Kitchen}
	default:
		if term.IsTerminal(int(f.Fd())) {
			return zerolog.ConsoleWriter{Out: f, TimeFormat: time.Kitchen}
		}
		return f
	}
}

// New returns a JSON logger writing to w at level, for tests and embedding.
func New(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
