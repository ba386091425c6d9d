// SPDX-License-Identifier: MPL-2.0

// Package manifest locates, parses and edits Cargo.toml manifests.
//
// It finds the manifest that owns an entrypoint (Walk, WalkLocator), resolves
// the binary target name that builds it (ResolveBinaryName), and registers a
// synthesized [[bin]] target when none is declared (Editor). In ephemeral mode
// the edit is scoped by a Lease that restores the original manifest on every
// exit path.
package manifest
