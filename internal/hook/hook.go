// SPDX-License-Identifier: MPL-2.0

// Package hook runs the optional build.sh placed next to an entrypoint.
//
// Scripts run in an embedded POSIX shell interpreter, so no system shell is
// required. They see the same explicit environment that cargo does.
package hook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/rustfn/rustfn/internal/issue"
	"github.com/rustfn/rustfn/internal/toolchain"
)

// ScriptName is the hook file looked up in the entrypoint directory.
const ScriptName = "build.sh"

// ErrScriptFailed is the sentinel wrapped by ScriptFailedError.
var ErrScriptFailed = errors.New("build script failed")

type (
	// Runner runs build hooks.
	Runner struct {
		// Env is the complete script environment.
		Env    map[string]string
		Stdout io.Writer
		Stderr io.Writer
		// Logger defaults to log.Default().
		Logger *log.Logger
	}

	// ScriptFailedError reports a non-zero script exit.
	ScriptFailedError struct {
		Script   string
		ExitCode toolchain.ExitCode
	}
)

// Error implements the error interface.
func (e *ScriptFailedError) Error() string {
	return fmt.Sprintf("%s exited with status %s", e.Script, e.ExitCode)
}

// Unwrap returns ErrScriptFailed so callers can use errors.Is for programmatic detection.
func (e *ScriptFailedError) Unwrap() error { return ErrScriptFailed }

// RunIfPresent runs entryDir/build.sh when it exists and reports whether it ran.
func (r *Runner) RunIfPresent(ctx context.Context, entryDir string) (bool, error) {
	script := filepath.Join(entryDir, ScriptName)
	info, err := os.Stat(script)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, issue.WrapWithContext(err, issue.KindIO, "stat build script", script)
	}
	if !info.Mode().IsRegular() {
		return false, nil
	}

	r.logger().Debug("running build script", "script", script)
	return true, r.Run(ctx, script)
}

// Run interprets script with its directory as the working directory.
func (r *Runner) Run(ctx context.Context, script string) error {
	f, err := os.Open(script)
	if err != nil {
		return issue.WrapWithContext(err, issue.KindIO, "open build script", script)
	}
	defer f.Close()

	prog, err := syntax.NewParser().Parse(f, script)
	if err != nil {
		return issue.WrapWithContext(fmt.Errorf("parse: %w", err), issue.KindConfiguration, "run build script", script)
	}

	runner, err := interp.New(
		interp.Dir(filepath.Dir(script)),
		interp.Env(expand.ListEnviron(toolchain.EnvToSlice(r.Env)...)),
		interp.StdIO(nil, writerOrDiscard(r.Stdout), writerOrDiscard(r.Stderr)),
	)
	if err != nil {
		return fmt.Errorf("create interpreter: %w", err)
	}

	if err := runner.Run(ctx, prog); err != nil {
		var status interp.ExitStatus
		if errors.As(err, &status) {
			return issue.NewErrorContext().
				WithOperation("run build script").
				WithResource(script).
				WithKind(issue.KindToolchain).
				WithSuggestion("Run the script by hand from its directory to reproduce the failure").
				Wrap(&ScriptFailedError{Script: script, ExitCode: toolchain.ExitCode(status)}).
				BuildError()
		}
		return issue.WrapWithContext(err, issue.KindToolchain, "run build script", script)
	}
	return nil
}

func (r *Runner) logger() *log.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return log.Default()
}

func writerOrDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}
