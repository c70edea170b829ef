// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// OutputJSONLines writes one JSON array per record.
	OutputJSONLines OutputFormat = "jsonl"
	// OutputYAML writes a YAML document per record.
	OutputYAML OutputFormat = "yaml"
	// OutputSQLite indexes records into a SQLite database.
	OutputSQLite OutputFormat = "sqlite"

	// LogLevelDebug shows every diagnostic, including expected filtering.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo is the default level.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn shows only warnings and errors.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError shows only errors.
	LogLevelError LogLevel = "error"

	// LogFormatText is human-readable, styled output.
	LogFormatText LogFormat = "text"
	// LogFormatJSON emits one JSON object per line.
	LogFormatJSON LogFormat = "json"
	// LogFormatLogfmt emits key=value pairs.
	LogFormatLogfmt LogFormat = "logfmt"
)

var (
	// ErrInvalidOutputFormat is returned when an OutputFormat value is not recognized.
	ErrInvalidOutputFormat = errors.New("invalid output format")
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidLogFormat is returned when a LogFormat value is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format")
	// ErrInvalidWorkers is returned for a negative worker count.
	ErrInvalidWorkers = errors.New("invalid worker count")
	// ErrInvalidBroadcastEntity is returned when the broadcast entity is empty or whitespace-only.
	ErrInvalidBroadcastEntity = errors.New("invalid broadcast entity")
	// ErrMissingOutputPath is returned when the sqlite output has no database path.
	ErrMissingOutputPath = errors.New("output path required")
	// ErrInvalidSettings is the sentinel error wrapped by InvalidSettingsError.
	ErrInvalidSettings = errors.New("invalid settings")
)

type (
	// OutputFormat selects the record sink.
	OutputFormat string

	// InvalidOutputFormatError is returned when an OutputFormat value is not recognized.
	// It wraps ErrInvalidOutputFormat for errors.Is() compatibility.
	InvalidOutputFormatError struct {
		Value OutputFormat
	}

	// LogLevel is the minimum level written by the logger.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	// It wraps ErrInvalidLogLevel for errors.Is() compatibility.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// LogFormat selects the log line encoding.
	LogFormat string

	// InvalidLogFormatError is returned when a LogFormat value is not recognized.
	// It wraps ErrInvalidLogFormat for errors.Is() compatibility.
	InvalidLogFormatError struct {
		Value LogFormat
	}

	// InvalidSettingsError is returned when Settings has invalid fields.
	// It wraps ErrInvalidSettings for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidSettingsError struct {
		FieldErrors []error
	}

	// Settings holds the application settings.
	Settings struct {
		// DatasetRoot is the directory record paths are made relative to.
		// Shell variables are expanded at load time.
		DatasetRoot string `json:"dataset_root" mapstructure:"dataset_root"`
		// Workers bounds concurrent suffix handlers (0 uses GOMAXPROCS).
		Workers int `json:"workers" mapstructure:"workers"`
		// BroadcastEntity is the entity whose absence marks a record task-independent.
		BroadcastEntity string `json:"broadcast_entity" mapstructure:"broadcast_entity"`
		// Output configures where records are written.
		Output OutputSettings `json:"output" mapstructure:"output"`
		// Log configures the logger.
		Log LogSettings `json:"log" mapstructure:"log"`
	}

	// OutputSettings configures the record sink.
	OutputSettings struct {
		Format OutputFormat `json:"format" mapstructure:"format"`
		// Path is the output file; empty writes to stdout.
		Path string `json:"path" mapstructure:"path"`
	}

	// LogSettings configures the logger.
	LogSettings struct {
		Level  LogLevel  `json:"level" mapstructure:"level"`
		Format LogFormat `json:"format" mapstructure:"format"`
	}
)

// DefaultSettings returns the built-in settings.
func DefaultSettings() *Settings {
	return &Settings{
		Workers:         0,
		BroadcastEntity: "task",
		Output: OutputSettings{
			Format: OutputJSONLines,
		},
		Log: LogSettings{
			Level:  LogLevelInfo,
			Format: LogFormatText,
		},
	}
}

// String returns the string representation of the OutputFormat.
func (f OutputFormat) String() string { return string(f) }

// IsValid returns whether the OutputFormat is one of the defined formats.
func (f OutputFormat) IsValid() (bool, []error) {
	switch f {
	case OutputJSONLines, OutputYAML, OutputSQLite:
		return true, nil
	default:
		return false, []error{&InvalidOutputFormatError{Value: f}}
	}
}

// Error implements the error interface.
func (e *InvalidOutputFormatError) Error() string {
	return fmt.Sprintf("invalid output format %q (valid: jsonl, yaml, sqlite)", e.Value)
}

// Unwrap returns ErrInvalidOutputFormat for errors.Is() compatibility.
func (e *InvalidOutputFormatError) Unwrap() error { return ErrInvalidOutputFormat }

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// IsValid returns whether the LogLevel is one of the defined levels.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

// Error implements the error interface.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns ErrInvalidLogLevel for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// String returns the string representation of the LogFormat.
func (f LogFormat) String() string { return string(f) }

// IsValid returns whether the LogFormat is one of the defined formats.
func (f LogFormat) IsValid() (bool, []error) {
	switch f {
	case LogFormatText, LogFormatJSON, LogFormatLogfmt:
		return true, nil
	default:
		return false, []error{&InvalidLogFormatError{Value: f}}
	}
}

// Error implements the error interface.
func (e *InvalidLogFormatError) Error() string {
	return fmt.Sprintf("invalid log format %q (valid: text, json, logfmt)", e.Value)
}

// Unwrap returns ErrInvalidLogFormat for errors.Is() compatibility.
func (e *InvalidLogFormatError) Unwrap() error { return ErrInvalidLogFormat }

// IsValid returns whether the OutputSettings are usable.
func (o OutputSettings) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := o.Format.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if o.Format == OutputSQLite && strings.TrimSpace(o.Path) == "" {
		errs = append(errs, fmt.Errorf("%w: the sqlite output cannot be written to stdout", ErrMissingOutputPath))
	}
	return len(errs) == 0, errs
}

// IsValid returns whether the LogSettings are usable.
func (l LogSettings) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := l.Level.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := l.Format.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	return len(errs) == 0, errs
}

// IsValid returns whether the Settings have valid fields.
func (s Settings) IsValid() (bool, []error) {
	var errs []error
	if s.Workers < 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidWorkers, s.Workers))
	}
	if strings.TrimSpace(s.BroadcastEntity) == "" {
		errs = append(errs, ErrInvalidBroadcastEntity)
	}
	if valid, fieldErrs := s.Output.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := s.Log.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidSettingsError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidSettingsError.
func (e *InvalidSettingsError) Error() string {
	lines := make([]string, 0, len(e.FieldErrors))
	for _, err := range e.FieldErrors {
		lines = append(lines, "  "+err.Error())
	}
	return fmt.Sprintf("invalid settings: %d field error(s)\n%s", len(e.FieldErrors), strings.Join(lines, "\n"))
}

// Unwrap returns ErrInvalidSettings and every field error.
func (e *InvalidSettingsError) Unwrap() []error {
	return append([]error{ErrInvalidSettings}, e.FieldErrors...)
}
