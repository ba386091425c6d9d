// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"

	"github.com/rustfn/rustfn/internal/hook"
	"github.com/rustfn/rustfn/internal/issue"
	"github.com/rustfn/rustfn/internal/toolchain"
)

const (
	exitFailure       toolchain.ExitCode = 1
	exitConfiguration toolchain.ExitCode = 2
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
type ExitError struct {
	Code toolchain.ExitCode
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitCodeFor maps a command error onto the process exit code. Failed cargo
// and build.sh runs pass their own status through; configuration errors
// exit 2; everything else exits 1.
func exitCodeFor(err error) toolchain.ExitCode {
	if err == nil {
		return 0
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	var buildErr *toolchain.BuildFailedError
	if errors.As(err, &buildErr) && passThrough(buildErr.ExitCode) {
		return buildErr.ExitCode
	}
	var scriptErr *hook.ScriptFailedError
	if errors.As(err, &scriptErr) && passThrough(scriptErr.ExitCode) {
		return scriptErr.ExitCode
	}
	if issue.KindOf(err) == issue.KindConfiguration {
		return exitConfiguration
	}
	return exitFailure
}

func passThrough(code toolchain.ExitCode) bool {
	valid, _ := code.IsValid()
	return valid && !code.IsSuccess()
}
