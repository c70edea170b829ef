// SPDX-License-Identifier: MPL-2.0

// Package diag defines the structured, non-fatal diagnostics produced while
// analysing configuration and grouping files. Diagnostics are returned to
// callers rather than written directly, so the CLI decides how to render them.
package diag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

const (
	// SeverityDebug marks expected steady-state filtering (a file skipped for a suffix).
	SeverityDebug Severity = "debug"
	// SeverityWarning marks a dropped contribution or a suspicious configuration.
	SeverityWarning Severity = "warning"
)

const (
	// CodeNoPatternMatch: a file matched none of a named or mixed set's groups.
	CodeNoPatternMatch Code = "no_pattern_match"
	// CodeMissingOrderEntity: a file lacks an entity a sequential set orders by.
	CodeMissingOrderEntity Code = "missing_order_entity"
	// CodeFilteredOut: a file failed a plain set's filter pattern.
	CodeFilteredOut Code = "filtered_out"
	// CodeExcludedEntity: a file carries an entity on the exclude list.
	CodeExcludedEntity Code = "excluded_entity"
	// CodePathOutsideRoot: a file path could not be made relative to the dataset root.
	CodePathOutsideRoot Code = "path_outside_root"
	// CodePlainDuplicate: two plain items resolved to the same group key.
	CodePlainDuplicate Code = "plain_duplicate"
	// CodeNamedDuplicate: two items matched the same group under one group key.
	CodeNamedDuplicate Code = "named_duplicate"
	// CodeSequenceDuplicate: two items occupy the same sequence position.
	CodeSequenceDuplicate Code = "sequence_duplicate"
	// CodeNamedIncomplete: required named groups are missing for a group key.
	CodeNamedIncomplete Code = "named_incomplete"
	// CodeMixedIncomplete: required mixed groups are missing for a group key.
	CodeMixedIncomplete Code = "mixed_incomplete"
	// CodePartsIncomplete: a sequence position lacks one of the configured parts.
	CodePartsIncomplete Code = "parts_incomplete"
	// CodeShadowedGroup: a named group can never match because an earlier one is equivalent.
	CodeShadowedGroup Code = "shadowed_group"
	// CodeUnmatchedSuffix: files carry a suffix no configuration entry handles.
	CodeUnmatchedSuffix Code = "unmatched_suffix"
	// CodeBroadcastUnavailable: the broadcast entity is not a loop-over entity.
	CodeBroadcastUnavailable Code = "broadcast_unavailable"
	// CodeExtensionGap: a sequence position lacks a file for an extension other positions have.
	CodeExtensionGap Code = "extension_gap"
)

var (
	// ErrInvalidSeverity is returned when a Severity value is not recognized.
	ErrInvalidSeverity = errors.New("invalid diagnostic severity")
	// ErrInvalidCode is returned when a Code value is not recognized.
	ErrInvalidCode = errors.New("invalid diagnostic code")
)

type (
	// Severity represents diagnostic severity.
	Severity string

	// Code is a machine-readable diagnostic identifier.
	Code string

	// Diagnostic is one structured, non-fatal finding.
	Diagnostic struct {
		// Severity is the diagnostic level.
		Severity Severity
		// Code is a machine-readable identifier (e.g., "named_incomplete").
		Code Code
		// Message is the human-readable description.
		Message string
		// Suffix is the configuration key the diagnostic concerns (optional).
		Suffix string
		// Path is the dataset file involved (optional).
		Path string
	}
)

// IsValid returns whether the Severity is one of the defined levels.
func (s Severity) IsValid() (bool, []error) {
	switch s {
	case SeverityDebug, SeverityWarning:
		return true, nil
	default:
		return false, []error{fmt.Errorf("%w: %q", ErrInvalidSeverity, string(s))}
	}
}

// Level maps the severity onto a slog level.
func (s Severity) Level() slog.Level {
	if s == SeverityWarning {
		return slog.LevelWarn
	}
	return slog.LevelDebug
}

// IsValid returns whether the Code is one of the defined diagnostic codes.
func (c Code) IsValid() (bool, []error) {
	switch c {
	case CodeNoPatternMatch, CodeMissingOrderEntity, CodeFilteredOut, CodeExcludedEntity,
		CodePathOutsideRoot, CodePlainDuplicate, CodeNamedDuplicate, CodeSequenceDuplicate,
		CodeNamedIncomplete, CodeMixedIncomplete, CodePartsIncomplete, CodeShadowedGroup,
		CodeUnmatchedSuffix, CodeBroadcastUnavailable, CodeExtensionGap:
		return true, nil
	default:
		return false, []error{fmt.Errorf("%w: %q", ErrInvalidCode, string(c))}
	}
}

// Debugf builds a debug diagnostic.
func Debugf(code Code, suffix, path, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: SeverityDebug, Code: code, Suffix: suffix, Path: path, Message: fmt.Sprintf(format, args...)}
}

// Warnf builds a warning diagnostic.
func Warnf(code Code, suffix, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: SeverityWarning, Code: code, Suffix: suffix, Message: fmt.Sprintf(format, args...)}
}

// String renders the diagnostic on one line.
func (d Diagnostic) String() string {
	s := fmt.Sprintf("[%s] %s", d.Code, d.Message)
	if d.Suffix != "" {
		s = d.Suffix + ": " + s
	}
	if d.Path != "" {
		s += " (" + d.Path + ")"
	}
	return s
}

// Log writes every diagnostic to logger at its severity's level.
func Log(ctx context.Context, logger *slog.Logger, diags []Diagnostic) {
	if logger == nil {
		return
	}
	for _, d := range diags {
		attrs := []any{"code", string(d.Code)}
		if d.Suffix != "" {
			attrs = append(attrs, "suffix", d.Suffix)
		}
		if d.Path != "" {
			attrs = append(attrs, "path", d.Path)
		}
		logger.Log(ctx, d.Severity.Level(), d.Message, attrs...)
	}
}

// Count returns the number of diagnostics at the given severity.
func Count(diags []Diagnostic, s Severity) int {
	n := 0
	for _, d := range diags {
		if d.Severity == s {
			n++
		}
	}
	return n
}
