// SPDX-License-Identifier: MPL-2.0

// Package testutil builds on-disk BIDS fixtures for tests and wraps the file
// operations they need so failures stop the test at the caller's line.
package testutil
