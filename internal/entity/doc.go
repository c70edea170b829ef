// SPDX-License-Identifier: MPL-2.0

// Package entity models a single dataset file as a path plus a normalized map of
// filename-encoded entities (sub-01_ses-02_... tokens).
//
// The package owns the fixed long-name/short-name normalization table used to
// resolve configuration-supplied entity names, and the value normalization that
// makes "flip-02" and "2" compare equal. Every pattern match and sort comparison
// in the grouping engine goes through these rules.
//
// File organization:
//   - entity.go: File type and attribute lookup
//   - normalize.go: name table and value normalization
//   - filename.go: BIDS filename parsing and extension classification
package entity
