// SPDX-License-Identifier: MPL-2.0

package setconfig

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidDocument is the sentinel error wrapped by InvalidDocumentError.
	ErrInvalidDocument = errors.New("invalid grouping configuration")

	// ErrMissingLoopOver is returned when loop_over is absent or empty.
	ErrMissingLoopOver = errors.New("loop_over must list at least one entity")
	// ErrDuplicateEntity is returned when an entity list names the same entity twice.
	ErrDuplicateEntity = errors.New("entity listed more than once")
	// ErrMissingSetType is returned when a key declares none of the set types.
	ErrMissingSetType = errors.New("no set type declared (expected one of plain_set, named_set, sequential_set, mixed_set)")
	// ErrMultipleSetTypes is returned when a key declares more than one set type.
	ErrMultipleSetTypes = errors.New("more than one set type declared")
	// ErrInvalidOrder is returned for an unrecognized sequential order mode.
	ErrInvalidOrder = errors.New("invalid order (valid: hierarchical, flat)")
	// ErrMissingOrderEntity is returned when a sequential or mixed set has no ordering entity.
	ErrMissingOrderEntity = errors.New("no ordering entity declared")
	// ErrConflictingOrderEntity is returned when several ordering-entity fields are set at once.
	ErrConflictingOrderEntity = errors.New("ordering entity declared more than once")
	// ErrEmptyGroups is returned when a named or mixed set defines no groups.
	ErrEmptyGroups = errors.New("no named groups defined")
	// ErrUnknownGroup is returned when required names a group that is not defined.
	ErrUnknownGroup = errors.New("required group is not defined")
	// ErrRequiredWithoutGroups is returned when required is set on a plain or sequential set.
	ErrRequiredWithoutGroups = errors.New("required applies only to named_set and mixed_set")
	// ErrUnknownInclude is returned when include names a key that is not configured.
	ErrUnknownInclude = errors.New("included key is not configured")
	// ErrInvalidParts is returned when a parts list is empty or repeats a name.
	ErrInvalidParts = errors.New("invalid parts list")
	// ErrInvalidPattern is returned when a pattern value is neither string nor integer.
	ErrInvalidPattern = errors.New("pattern values must be strings or integers")
	// ErrEmptyName is returned when an entity, group, or key name is empty.
	ErrEmptyName = errors.New("name must not be empty")
)

type (
	// FieldError locates a validation failure at a key and field of the document.
	FieldError struct {
		// Suffix is the top-level configuration key ("" for document-level fields).
		Suffix string
		// Field is the dotted field path inside the key (e.g. "sequential_set.order").
		Field string
		// Err is the underlying cause, usually one of the package sentinels.
		Err error
	}

	// InvalidDocumentError is returned when a document has invalid fields.
	// It wraps ErrInvalidDocument and every field error for errors.Is() compatibility.
	InvalidDocumentError struct {
		FieldErrors []error
	}
)

// Error implements the error interface for FieldError.
func (e *FieldError) Error() string {
	switch {
	case e.Suffix == "":
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	case e.Field == "":
		return fmt.Sprintf("%s: %v", e.Suffix, e.Err)
	default:
		return fmt.Sprintf("%s.%s: %v", e.Suffix, e.Field, e.Err)
	}
}

// Unwrap returns the underlying cause.
func (e *FieldError) Unwrap() error { return e.Err }

// Error implements the error interface for InvalidDocumentError.
func (e *InvalidDocumentError) Error() string {
	lines := make([]string, len(e.FieldErrors))
	for i, fe := range e.FieldErrors {
		lines[i] = fe.Error()
	}
	if len(lines) == 1 {
		return fmt.Sprintf("%v: %s", ErrInvalidDocument, lines[0])
	}
	return fmt.Sprintf("%v: %d field error(s):\n  %s", ErrInvalidDocument, len(lines), strings.Join(lines, "\n  "))
}

// Unwrap returns ErrInvalidDocument followed by every field error.
func (e *InvalidDocumentError) Unwrap() []error {
	return append([]error{ErrInvalidDocument}, e.FieldErrors...)
}

func fieldErr(suffix, field string, err error) error {
	return &FieldError{Suffix: suffix, Field: field, Err: err}
}
