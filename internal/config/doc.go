// SPDX-License-Identifier: MPL-2.0

// Package config loads application settings using Viper with CUE as the file format.
//
// Settings are read from an explicit --settings path, else bidsflow.cue in the
// user config directory, else bidsflow.cue in the working directory. Values in
// the file are validated against an embedded CUE schema and can be overridden by
// BIDSFLOW_* environment variables (BIDSFLOW_OUTPUT_FORMAT for output.format).
package config
