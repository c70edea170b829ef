// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides shared CUE parsing utilities.
//
// Documents may be written in CUE, JSON, or YAML. All three are compiled into
// a CUE value and checked against an embedded schema in the same three steps:
//
//  1. Compile the embedded schema
//  2. Compile user data and unify with schema
//  3. Validate and (optionally) decode to a Go struct
//
// # Usage
//
//	//go:embed schema.cue
//	var schemaBytes []byte
//
//	res, err := cueutil.Parse(schemaBytes, data, "#Document",
//	    cueutil.WithFilename("sets.yaml"),
//	)
//	if err != nil {
//	    return nil, err // includes the offending JSON path
//	}
//
// Parse keeps the user value alongside the unified one so callers can walk
// fields in declaration order and distinguish absent keys from defaults.
package cueutil
