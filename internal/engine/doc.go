// SPDX-License-Identifier: MPL-2.0

// Package engine runs a grouping configuration over a file list.
//
// A run has four phases:
//
//  1. Routing: each configuration key receives the files of its physical suffix.
//  2. Handling: one handler per key runs concurrently, bounded by Options.Workers.
//  3. Unification: after every handler finishes, fragments sharing a group key
//     merge into one record.
//  4. Broadcasting: task-independent data (the broadcast entity is NA) is copied
//     into task-specific records that request it through include. Independent
//     records keep only what no sibling consumed and vanish when nothing is left.
//
// A run that produces no records fails with ErrNoRecords.
package engine
