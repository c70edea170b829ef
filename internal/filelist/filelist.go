// SPDX-License-Identifier: MPL-2.0

// Package filelist reads and writes file list documents and scans dataset
// directories into entity files.
//
// A file list is a JSON, YAML, or TOML document holding entries either as a
// top-level list or under a "files" key:
//
//	files:
//	  - path: sub-01/anat/sub-01_T1w.nii.gz
//	    suffix: T1w
//	    entities: {subject: "01"}
//	  - path: sub-01/dwi/sub-01_dir-AP_dwi.nii.gz
//
// Entries without suffix or entities get them from the BIDS file name.
package filelist

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/bidsflow/bidsflow/internal/entity"
)

const (
	// FormatJSON is a JSON file list.
	FormatJSON Format = "json"
	// FormatYAML is a YAML file list.
	FormatYAML Format = "yaml"
	// FormatTOML is a TOML file list.
	FormatTOML Format = "toml"
)

var (
	// ErrUnknownFormat is returned for an unsupported file list extension.
	ErrUnknownFormat = errors.New("unknown file list format")
	// ErrInvalidEntry is the sentinel error wrapped by InvalidEntryError.
	ErrInvalidEntry = errors.New("invalid file list entry")
)

type (
	// Format identifies a file list syntax.
	Format string

	// Entry is one file of a file list.
	Entry struct {
		Path     string            `json:"path" yaml:"path" toml:"path"`
		Suffix   string            `json:"suffix,omitempty" yaml:"suffix,omitempty" toml:"suffix,omitempty"`
		Entities map[string]string `json:"entities,omitempty" yaml:"entities,omitempty" toml:"entities,omitempty"`
		Sidecar  string            `json:"sidecar,omitempty" yaml:"sidecar,omitempty" toml:"sidecar,omitempty"`
		Metadata map[string]any    `json:"metadata,omitempty" yaml:"metadata,omitempty" toml:"metadata,omitempty"`
	}

	// document is the keyed form of a file list.
	document struct {
		Files []Entry `json:"files" yaml:"files" toml:"files"`
	}

	// InvalidEntryError locates an entry that cannot become a file.
	// It wraps ErrInvalidEntry for errors.Is() compatibility.
	InvalidEntryError struct {
		Index int
		Path  string
		Err   error
	}
)

// Error implements the error interface for InvalidEntryError.
func (e *InvalidEntryError) Error() string {
	return fmt.Sprintf("file list entry %d (%q): %v", e.Index, e.Path, e.Err)
}

// Unwrap returns ErrInvalidEntry and the underlying cause.
func (e *InvalidEntryError) Unwrap() []error { return []error{ErrInvalidEntry, e.Err} }

// DetectFormat infers the format from a file name's extension.
func DetectFormat(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %q (expected .json, .yaml, .yml or .toml)", ErrUnknownFormat, name)
	}
}

// Load reads the file list at path.
func Load(path string) ([]*entity.File, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file list: %w", err)
	}
	return Parse(data, format)
}

// Parse decodes a file list document.
func Parse(data []byte, format Format) ([]*entity.File, error) {
	entries, err := decode(data, format)
	if err != nil {
		return nil, err
	}
	files := make([]*entity.File, 0, len(entries))
	for i, e := range entries {
		f, err := e.File()
		if err != nil {
			return nil, &InvalidEntryError{Index: i, Path: e.Path, Err: err}
		}
		files = append(files, f)
	}
	return files, nil
}

func decode(data []byte, format Format) ([]Entry, error) {
	switch format {
	case FormatJSON, FormatYAML:
		// YAML is a superset of JSON, so one decoder serves both.
		var root yaml.Node
		if err := yaml.Unmarshal(data, &root); err != nil {
			return nil, fmt.Errorf("failed to parse file list: %w", err)
		}
		if len(root.Content) == 0 {
			return nil, nil
		}
		node := root.Content[0]
		if node.Kind == yaml.SequenceNode {
			var entries []Entry
			if err := node.Decode(&entries); err != nil {
				return nil, fmt.Errorf("failed to decode file list: %w", err)
			}
			return entries, nil
		}
		var doc document
		if err := node.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode file list: %w", err)
		}
		return doc.Files, nil
	case FormatTOML:
		var doc document
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse file list: %w", err)
		}
		return doc.Files, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, string(format))
	}
}

// File converts the entry, filling a missing suffix or entity map from the
// BIDS file name.
func (e Entry) File() (*entity.File, error) {
	suffix, entities := e.Suffix, e.Entities
	if suffix == "" || entities == nil {
		parsed, err := entity.ParseFilename(e.Path)
		if err != nil {
			return nil, err
		}
		if suffix == "" {
			suffix = parsed.Suffix()
		}
		if entities == nil {
			entities = parsed.Entities()
		}
	}

	var opts []entity.FileOption
	if e.Sidecar != "" {
		opts = append(opts, entity.WithSidecar(e.Sidecar))
	}
	if len(e.Metadata) > 0 {
		opts = append(opts, entity.WithMetadata(e.Metadata))
	}
	return entity.NewFile(e.Path, suffix, entities, opts...)
}

// FromFile converts a file back into an entry with long entity names.
func FromFile(f *entity.File) Entry {
	ents := make(map[string]string)
	for k, v := range f.Entities() {
		ents[entity.LongName(k)] = v
	}
	md := f.Metadata()
	if len(md) == 0 {
		md = nil
	}
	return Entry{Path: f.Path(), Suffix: f.Suffix(), Entities: ents, Sidecar: f.SidecarPath(), Metadata: md}
}

// Write encodes files as a keyed file list document.
func Write(w io.Writer, files []*entity.File, format Format) error {
	doc := document{Files: make([]Entry, len(files))}
	for i, f := range files {
		doc.Files[i] = FromFile(f)
	}

	var buf bytes.Buffer
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		if err := enc.Close(); err != nil {
			return err
		}
	case FormatJSON:
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return err
		}
	case FormatTOML:
		if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, string(format))
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// Suffixes returns the distinct suffixes of files with their counts.
func Suffixes(files []*entity.File) map[string]int {
	counts := make(map[string]int)
	for _, f := range files {
		counts[f.Suffix()]++
	}
	return counts
}
