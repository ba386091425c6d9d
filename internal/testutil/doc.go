// SPDX-License-Identifier: MPL-2.0

// Package testutil provides test helpers that fail the test instead of
// returning errors: file setup (MustWriteFile, MustMkdirAll), a scripted
// stand-in for cargo (FakeCargo) and a limiter for container-backed tests.
package testutil
