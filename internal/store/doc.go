// SPDX-License-Identifier: MPL-2.0

// Package store persists build caches and artifacts outside the workspace,
// either in a local directory (Dir) or an S3-compatible bucket (S3).
package store
