// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the failed operation, the resource involved and
// remediation hints. Errors may link an Issue, a markdown catalog entry the CLI
// renders with glamour when a run fails.
package issue
