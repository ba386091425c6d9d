// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *ActionableError
		expected string
	}{
		{
			name:     "operation only",
			err:      &ActionableError{Operation: "parse manifest"},
			expected: "failed to parse manifest",
		},
		{
			name:     "operation with resource",
			err:      &ActionableError{Operation: "parse manifest", Resource: "./Cargo.toml"},
			expected: "failed to parse manifest: ./Cargo.toml",
		},
		{
			name: "full context",
			err: &ActionableError{
				Operation: "build binary",
				Resource:  "hello",
				Cause:     errors.New("exit status 101"),
			},
			expected: "failed to build binary: hello: exit status 101",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestActionableError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("permission denied")
	err := NewErrorContext().
		WithOperation("write manifest").
		WithKind(KindIO).
		Wrap(cause).
		BuildError()

	if !errors.Is(err, cause) {
		t.Errorf("errors.Is(err, cause) = false, want true")
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()

	err := NewErrorContext().
		WithOperation("package artifact").
		WithResource("bootstrap").
		WithKind(KindPackaging).
		WithSuggestion("Narrow the include_files globs").
		Wrap(errors.New("collision")).
		Build()

	short := err.Format(false)
	if !strings.Contains(short, "• Narrow the include_files globs") {
		t.Errorf("Format(false) missing suggestion: %q", short)
	}
	if strings.Contains(short, "Error chain") {
		t.Errorf("Format(false) should not include the error chain: %q", short)
	}

	long := err.Format(true)
	if !strings.Contains(long, "Kind: packaging") {
		t.Errorf("Format(true) missing kind: %q", long)
	}
	if !strings.Contains(long, "1. collision") {
		t.Errorf("Format(true) missing error chain: %q", long)
	}
}

func TestErrorContext_BuildRequiresOperation(t *testing.T) {
	t.Parallel()

	if err := NewErrorContext().WithResource("x").BuildError(); err != nil {
		t.Errorf("BuildError() without operation = %v, want nil", err)
	}
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	inner := WrapWithContext(errors.New("boom"), KindToolchain, "run cargo", "build")
	outer := NewErrorContext().WithOperation("build entrypoint").Wrap(inner).BuildError()

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "nil", err: nil, want: KindUnknown},
		{name: "plain error", err: errors.New("x"), want: KindUnknown},
		{name: "direct", err: inner, want: KindToolchain},
		{name: "nested unclassified wrapper", err: outer, want: KindToolchain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	t.Parallel()

	for kind, want := range map[Kind]string{
		KindUnknown:       "unknown",
		KindConfiguration: "configuration",
		KindToolchain:     "toolchain",
		KindIO:            "io",
		KindPackaging:     "packaging",
	} {
		if got := kind.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}
