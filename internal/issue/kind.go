// SPDX-License-Identifier: MPL-2.0

package issue

import "errors"

const (
	// KindUnknown is the zero value for errors that were never classified.
	KindUnknown Kind = iota
	// KindConfiguration covers missing environment variables, malformed
	// manifests and artifact name collisions.
	KindConfiguration
	// KindToolchain covers non-zero exits from cargo subcommands.
	KindToolchain
	// KindIO covers manifest read/write/move and artifact file failures.
	KindIO
	// KindPackaging covers bootstrap collisions and missing compiled binaries.
	KindPackaging
)

// Kind classifies a failure in the build error taxonomy.
// All kinds are fatal; none of them is retried.
type Kind int

// String returns the lower-case kind name used in log fields.
func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindToolchain:
		return "toolchain"
	case KindIO:
		return "io"
	case KindPackaging:
		return "packaging"
	default:
		return "unknown"
	}
}

// KindOf walks the error chain and returns the Kind of the outermost
// ActionableError that has one. Errors outside the taxonomy report KindUnknown.
func KindOf(err error) Kind {
	for err != nil {
		var ae *ActionableError
		if !errors.As(err, &ae) {
			return KindUnknown
		}
		if ae.Kind != KindUnknown {
			return ae.Kind
		}
		err = ae.Cause
	}
	return KindUnknown
}
