// SPDX-License-Identifier: MPL-2.0

// Package benchmark holds benchmarks over the grouping hot paths:
//   - configuration parsing and schema validation
//   - filename parsing and file list decoding
//   - dataset scans
//   - end-to-end engine runs, with and without broadcasting
//
// The CPU profile of these benchmarks is suitable for PGO:
//
//	go test -run '^$' -bench . -cpuprofile default.pgo ./internal/benchmark
package benchmark
