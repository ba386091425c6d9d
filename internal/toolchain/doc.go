// SPDX-License-Identifier: MPL-2.0

// Package toolchain drives the cargo executable.
//
// Every invocation runs with an explicit environment map built by EnvBuilder;
// the ambient process environment is never inherited implicitly. Output of
// `cargo build` is streamed to the configured writers as is.
package toolchain
