// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the rustfn CLI: building Rust functions into
// deployable artifacts, generating route tables, managing the target-folder
// cache and running a rebuild-on-change dev loop.
//
// Commands are thin adapters. They load configuration through the App's
// ConfigProvider, translate flags into pipeline requests and render results;
// the work happens in internal/pipeline, internal/routes and internal/cache.
package cmd
