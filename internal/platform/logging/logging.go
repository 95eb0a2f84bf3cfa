// Package logging builds the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Level       string
	Development bool

	// File enables a rotating JSON log file in addition to stdout.
	File           string
	FileMaxSizeMB  int
	FileMaxBackups int
	FileMaxAgeDays int
}

// New returns a timestamped logger. Stdout is human-readable in development
// and JSON otherwise; the optional file sink is always JSON.
func New(opts Options) zerolog.Logger {
	return NewWithWriter(os.Stdout, opts)
}

func NewWithWriter(stdout io.Writer, opts Options) zerolog.Logger {
	var console io.Writer = stdout
	if opts.Development {
		console = zerolog.ConsoleWriter{Out: stdout}
	}

	writers := []io.Writer{console}
	if opts.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.FileMaxSizeMB,
			MaxBackups: opts.FileMaxBackups,
			MaxAge:     opts.FileMaxAgeDays,
			Compress:   true,
		})
	}

	var out io.Writer = console
	if len(writers) > 1 {
		out = zerolog.MultiLevelWriter(writers...)
	}

	return zerolog.New(out).
		Level(ParseLevel(opts.Level)).
		With().
		Timestamp().
		Str("service", "docs-server").
		Logger()
}

// ParseLevel maps a config string to a zerolog level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || s == "" {
		return zerolog.InfoLevel
	}
	return lvl
}
