// SPDX-License-Identifier: MPL-2.0

// Package platform provides cross-platform compatibility utilities.
//
// It centralizes the OS name constants used for runtime.GOOS comparisons and
// the executable naming rules that differ between platform families, such as
// the ".exe" suffix that compiled binaries carry on Windows.
package platform
