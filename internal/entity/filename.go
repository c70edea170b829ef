// SPDX-License-Identifier: MPL-2.0

package entity

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// ExtNIfTI is the extension category for .nii and .nii.gz images.
	ExtNIfTI = "nii"
	// ExtJSON is the extension category for JSON sidecars.
	ExtJSON = "json"
	// ExtTSV is the extension category for .tsv and .tsv.gz tables.
	ExtTSV = "tsv"
	// ExtBval is the extension category for diffusion b-values.
	ExtBval = "bval"
	// ExtBvec is the extension category for diffusion b-vectors.
	ExtBvec = "bvec"
)

// auxiliary categories describe another file and never represent an item on their own.
var auxiliary = map[string]bool{
	ExtJSON: true,
	ExtBval: true,
	ExtBvec: true,
}

// Extension returns the extension of path, keeping compound ".gz" forms intact
// (".nii.gz", ".tsv.gz").
func Extension(path string) string {
	name := filepath.Base(path)
	ext := filepath.Ext(name)
	if ext == ".gz" {
		inner := filepath.Ext(strings.TrimSuffix(name, ext))
		return inner + ext
	}
	return ext
}

// BaseName returns path with its (possibly compound) extension removed.
func BaseName(path string) string {
	return strings.TrimSuffix(path, Extension(path))
}

// ClassifyExtension maps a path to its extension category: "nii" for NIfTI
// images, "tsv" for tables, otherwise the extension without dot or ".gz".
func ClassifyExtension(path string) string {
	ext := strings.TrimSuffix(strings.ToLower(Extension(path)), ".gz")
	ext = strings.TrimPrefix(ext, ".")
	switch ext {
	case "nii":
		return ExtNIfTI
	case "":
		return "none"
	default:
		return ext
	}
}

// IsAuxiliary reports whether an extension category only accompanies a primary file.
func IsAuxiliary(category string) bool {
	return auxiliary[category]
}

// ParseFilename builds a File from a BIDS-style path such as
// "sub-01/anat/sub-01_acq-mprage_T1w.nii.gz". The last underscore-separated
// token is the suffix; every other token must be a key-value pair.
func ParseFilename(path string) (*File, error) {
	base := filepath.Base(BaseName(path))
	tokens := strings.Split(base, "_")
	if len(tokens) < 2 {
		return nil, &InvalidFileError{Path: path, Reason: "expected at least one entity and a suffix"}
	}

	suffix := tokens[len(tokens)-1]
	if suffix == "" || strings.Contains(suffix, "-") {
		return nil, &InvalidFileError{Path: path, Reason: fmt.Sprintf("invalid suffix %q", suffix)}
	}

	entities := make(map[string]string, len(tokens)-1)
	for _, tok := range tokens[:len(tokens)-1] {
		key, value, ok := strings.Cut(tok, "-")
		if !ok || key == "" || value == "" {
			return nil, &InvalidFileError{Path: path, Reason: fmt.Sprintf("malformed entity %q", tok)}
		}
		short := ShortName(key)
		if _, dup := entities[short]; dup {
			return nil, &InvalidFileError{Path: path, Reason: fmt.Sprintf("duplicate entity %q", key)}
		}
		entities[short] = value
	}

	return NewFile(path, suffix, entities)
}
