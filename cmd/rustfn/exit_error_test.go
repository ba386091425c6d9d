// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"testing"

	"github.com/rustfn/rustfn/internal/hook"
	"github.com/rustfn/rustfn/internal/issue"
	"github.com/rustfn/rustfn/internal/toolchain"
)

func TestExitCodeFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want toolchain.ExitCode
	}{
		{name: "nil", err: nil, want: 0},
		{name: "plain error", err: errors.New("boom"), want: 1},
		{name: "explicit exit error", err: &ExitError{Code: 7}, want: 7},
		{
			name: "cargo status passes through",
			err:  fmt.Errorf("build: %w", &toolchain.BuildFailedError{ExitCode: 101}),
			want: 101,
		},
		{
			name: "build script status passes through",
			err:  &hook.ScriptFailedError{ExitCode: 3},
			want: 3,
		},
		{
			name: "configuration error",
			err:  issue.WrapWithContext(errors.New("bad"), issue.KindConfiguration, "load config", "rustfn.cue"),
			want: 2,
		},
		{
			name: "io error",
			err:  issue.WrapWithContext(errors.New("disk full"), issue.KindIO, "write artifact zip", "out.zip"),
			want: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestExitError(t *testing.T) {
	t.Parallel()

	inner := errors.New("cargo exploded")
	e := &ExitError{Code: 101, Err: inner}
	if e.Error() != "cargo exploded" || !errors.Is(e, inner) {
		t.Errorf("ExitError = %q, Is(inner) = %v", e.Error(), errors.Is(e, inner))
	}
	if got := (&ExitError{Code: 4}).Error(); got != "exit status 4" {
		t.Errorf("Error() = %q", got)
	}
}
