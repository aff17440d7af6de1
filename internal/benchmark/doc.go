// SPDX-License-Identifier: MPL-2.0

// Package benchmark provides comprehensive benchmarks for PGO profile generation.
// These benchmarks cover the hot paths in the keel codebase:
//   - Flattening typed settings trees into datastore pairs
//   - Expanding stored pairs back into typed trees
//   - Defaults parsing, validation, and store population
//   - Filesystem datastore staging and commit
//
// To generate a PGO profile, run:
//
//	go test -bench=. -cpuprofile=default.pgo ./internal/benchmark
package benchmark
