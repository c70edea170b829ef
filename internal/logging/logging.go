// SPDX-License-Identifier: MPL-2.0

// Package logging builds the application logger: a *slog.Logger backed by a
// charmbracelet/log handler.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultPrefix is written before every log line.
const DefaultPrefix = "bidsflow"

var (
	// ErrInvalidLevel is returned for an unknown level name.
	ErrInvalidLevel = errors.New("invalid log level")
	// ErrInvalidFormat is returned for an unknown formatter name.
	ErrInvalidFormat = errors.New("invalid log format")
)

// Options configures New. Level and Format take the names accepted in settings
// ("debug", "info", "warn", "error" and "text", "json", "logfmt").
type Options struct {
	Level  string
	Format string
	// Prefix defaults to DefaultPrefix; set NoPrefix to omit it.
	Prefix   string
	NoPrefix bool
	// Timestamps adds a time field to every line.
	Timestamps bool
}

// New returns a logger writing to w.
func New(w io.Writer, opts Options) (*slog.Logger, error) {
	level := log.InfoLevel
	if opts.Level != "" {
		var err error
		if level, err = log.ParseLevel(opts.Level); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidLevel, opts.Level)
		}
	}

	formatter, err := parseFormatter(opts.Format)
	if err != nil {
		return nil, err
	}

	prefix := opts.Prefix
	if prefix == "" && !opts.NoPrefix {
		prefix = DefaultPrefix
	}

	handler := log.NewWithOptions(w, log.Options{
		Prefix:          prefix,
		Level:           level,
		Formatter:       formatter,
		ReportTimestamp: opts.Timestamps,
		TimeFormat:      time.RFC3339,
	})
	return slog.New(handler), nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func parseFormatter(name string) (log.Formatter, error) {
	switch name {
	case "", "text":
		return log.TextFormatter, nil
	case "json":
		return log.JSONFormatter, nil
	case "logfmt":
		return log.LogfmtFormatter, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, name)
	}
}
