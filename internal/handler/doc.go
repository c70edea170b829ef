// SPDX-License-Identifier: MPL-2.0

// Package handler implements the four grouping strategies applied to the
// files of one configured suffix: plain, named, sequential, and mixed.
//
// Every handler receives the files routed to its key, asks the shared Layout
// to relativize paths and fold auxiliary files (JSON sidecars, bval, bvec)
// into logical items, and returns one Fragment per group key. Handlers never
// share state, so the engine runs them concurrently.
//
// Soft filtering (no pattern match, missing ordering entity) and completeness
// failures (missing required groups or parts) are reported as diagnostics and
// never abort the run.
package handler
