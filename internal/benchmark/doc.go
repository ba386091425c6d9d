// SPDX-License-Identifier: MPL-2.0

// Package benchmark provides benchmarks for PGO profile generation.
// They cover the hot paths of a build:
//   - route table compilation
//   - manifest parsing and target rendering
//   - CUE configuration loading
//   - cache snapshot archiving and artifact zipping
//
// To generate a profile, run:
//
//	go test -run='^$' -bench=. -cpuprofile=default.pgo ./internal/benchmark
package benchmark
