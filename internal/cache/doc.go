// SPDX-License-Identifier: MPL-2.0

// Package cache persists cargo's incremental build state between builds.
//
// Prepare moves a workspace's target directory into a cache root and
// returns the cache-safe subset of its files: the .fingerprint, build and
// deps trees of the debug and release profiles. Archive and Restore move a
// snapshot through a single tar stream compressed with zstd or gzip.
package cache
