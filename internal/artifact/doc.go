// SPDX-License-Identifier: MPL-2.0

// Package artifact locates compiled binaries and packages them, together
// with extra files, into deployable function artifacts.
package artifact
