// SPDX-License-Identifier: MPL-2.0

package entity

import (
	"errors"
	"fmt"
	"maps"
	"strings"
)

// ErrInvalidFile is the sentinel error wrapped by InvalidFileError.
var ErrInvalidFile = errors.New("invalid file record")

type (
	// File is one dataset file: a path, its suffix, and its entities keyed by
	// short name with unprefixed values. A File is never mutated after construction.
	File struct {
		path      string
		suffix    string
		extension string
		entities  map[string]string
		sidecar   string
		metadata  map[string]any
	}

	// FileOption configures optional File fields at construction time.
	FileOption func(*File)

	// InvalidFileError is returned when a File cannot be constructed.
	// It wraps ErrInvalidFile for errors.Is() compatibility.
	InvalidFileError struct {
		Path   string
		Reason string
	}
)

// WithSidecar records the path of a JSON sidecar that belongs to the file.
func WithSidecar(path string) FileOption {
	return func(f *File) {
		f.sidecar = path
	}
}

// WithMetadata attaches free-form metadata. The map is copied.
func WithMetadata(md map[string]any) FileOption {
	return func(f *File) {
		f.metadata = maps.Clone(md)
	}
}

// NewFile builds a File. Entity keys are normalized to short names; the map is
// copied so later changes by the caller do not leak in.
func NewFile(path, suffix string, entities map[string]string, opts ...FileOption) (*File, error) {
	if strings.TrimSpace(path) == "" {
		return nil, &InvalidFileError{Path: path, Reason: "path must be non-empty"}
	}
	if strings.TrimSpace(suffix) == "" {
		return nil, &InvalidFileError{Path: path, Reason: "suffix must be non-empty"}
	}

	f := &File{
		path:      path,
		suffix:    suffix,
		extension: Extension(path),
		entities:  make(map[string]string, len(entities)),
	}
	for k, v := range entities {
		f.entities[ShortName(k)] = v
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// MustFile is NewFile for fixtures whose inputs are known to be valid.
func MustFile(path, suffix string, entities map[string]string, opts ...FileOption) *File {
	f, err := NewFile(path, suffix, entities, opts...)
	if err != nil {
		panic(err)
	}
	return f
}

// Path returns the file path as provided by the extractor.
func (f *File) Path() string { return f.path }

// Suffix returns the data-type token (e.g. "T1w", "bold").
func (f *File) Suffix() string { return f.suffix }

// Extension returns the full extension including compound forms such as ".nii.gz".
func (f *File) Extension() string { return f.extension }

// SidecarPath returns the sidecar path, or "" when none was recorded.
func (f *File) SidecarPath() string { return f.sidecar }

// Metadata returns a copy of the free-form metadata.
func (f *File) Metadata() map[string]any { return maps.Clone(f.metadata) }

// Entities returns a copy of the short-name entity map.
func (f *File) Entities() map[string]string { return maps.Clone(f.entities) }

// Get resolves name through the normalization table and returns the entity
// value, or NA when the file does not carry it.
func (f *File) Get(name string) string {
	v, ok := f.entities[ShortName(name)]
	if !ok || v == "" {
		return NA
	}
	return v
}

// Has reports whether the file carries the entity with a non-sentinel value.
func (f *File) Has(name string) bool {
	return f.Get(name) != NA
}

// Error implements the error interface for InvalidFileError.
func (e *InvalidFileError) Error() string {
	return fmt.Sprintf("invalid file record %q: %s", e.Path, e.Reason)
}

// Unwrap returns ErrInvalidFile for errors.Is() compatibility.
func (e *InvalidFileError) Unwrap() error { return ErrInvalidFile }
