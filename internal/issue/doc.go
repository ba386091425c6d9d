// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// Every failure surfaced by the build pipeline is an ActionableError carrying
// the failed operation, the resource involved, a Kind from the error taxonomy
// (configuration, toolchain, io, packaging) and remediation suggestions. The
// catalog in issue.go maps well-known failures to Markdown guidance rendered
// with glamour by the CLI.
package issue
