// SPDX-License-Identifier: MPL-2.0

// Package record defines the output unit of grouping: a ChannelRecord keyed
// by a GroupKey. Records are immutable; every update returns a new value and
// leaves the receiver untouched, so records can be shared freely between
// broadcasting steps and sinks.
package record
