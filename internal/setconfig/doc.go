// SPDX-License-Identifier: MPL-2.0

// Package setconfig turns a grouping configuration document into typed,
// validated per-suffix set configurations.
//
// A document is YAML, JSON, or CUE. It is first checked against the embedded
// CUE schema (#Document), then walked in declaration order and reified into
// one SetConfig per top-level key. Every structural problem is reported before
// any file is processed, as a FieldError naming the suffix key and field.
//
// # Example
//
//	loop_over: [subject, session, run, task]
//	T1w:
//	  plain_set: {}
//	dwi:
//	  named_set:
//	    ap: {direction: AP}
//	    pa: {direction: PA}
//	  required: [ap, pa]
//	bold:
//	  plain_set: {}
//	  include: [T1w]
package setconfig
