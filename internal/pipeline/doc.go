// SPDX-License-Identifier: MPL-2.0

// Package pipeline orchestrates a build: locate the manifest, register the
// target, run cargo, locate the binary and package it.
//
// A single entrypoint and a whole cargo workspace are both expressed as a
// TargetSet; Builder drives either one and returns artifacts keyed by output
// name.
package pipeline
