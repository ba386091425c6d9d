// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/rustfn/rustfn/internal/issue"
)

const manifestFileMode = 0o644

type (
	// Editor makes sure a workspace declares a [[bin]] target for an entrypoint.
	Editor struct {
		// Ephemeral restores the manifest after the edit.
		Ephemeral bool
		// Logger defaults to log.Default().
		Logger *log.Logger

		writeFile func(name string, data []byte, perm os.FileMode) error
	}

	// Edit describes the target an entrypoint builds as.
	Edit struct {
		Workspace  *Workspace
		BinaryName string
		// Declared is true when the manifest already declared the target and
		// was left untouched.
		Declared bool
	}
)

// WithTarget resolves the binary for entrypoint, writes a synthesized
// target into the manifest when needed and runs fn. In ephemeral mode the
// manifest is leased before writing and released after fn returns, fails or
// panics. A release failure is logged and only returned when nothing else
// failed.
func (e *Editor) WithTarget(ctx context.Context, ws *Workspace, entrypoint string, fn func(context.Context, Edit) error) (err error) {
	logger := e.logger()

	name, declared := ResolveBinaryName(ws.Targets, ws.Root, entrypoint)
	edit := Edit{Workspace: ws, BinaryName: name, Declared: declared}
	if declared {
		logger.Debug("using declared target", "bin", name, "manifest", ws.ManifestPath)
		return fn(ctx, edit)
	}

	content, err := ws.Render(Target{Name: name, Path: RelativeSource(ws.Root, entrypoint)})
	if err != nil {
		return issue.WrapWithContext(err, issue.KindConfiguration, "render manifest", ws.ManifestPath)
	}

	if e.Ephemeral {
		lease, lerr := Acquire(ws.ManifestPath)
		if lerr != nil {
			return leaseError(ws.ManifestPath, lerr)
		}
		logger.Debug("leased manifest", "manifest", lease.ManifestPath, "backup", lease.BackupPath)

		defer func() {
			rerr := lease.Release()
			if rerr == nil {
				logger.Debug("restored manifest", "manifest", lease.ManifestPath)
				return
			}
			logger.Error("failed to restore manifest", "manifest", lease.ManifestPath, "err", rerr)
			if err == nil {
				err = issue.NewErrorContext().
					WithOperation("restore manifest").
					WithResource(lease.ManifestPath).
					WithKind(issue.KindIO).
					WithIssue(issue.ManifestRestoreFailedId).
					WithSuggestion(fmt.Sprintf("Move %s back to %s by hand", lease.BackupPath, lease.ManifestPath)).
					Wrap(rerr).
					BuildError()
			}
		}()
	}

	logger.Debug("writing synthesized target", "bin", name, "manifest", ws.ManifestPath)
	if werr := e.write(ws.ManifestPath, content); werr != nil {
		return issue.WrapWithContext(werr, issue.KindIO, "write manifest", ws.ManifestPath)
	}

	return fn(ctx, edit)
}

func (e *Editor) write(name string, data []byte) error {
	if e.writeFile != nil {
		return e.writeFile(name, data, manifestFileMode)
	}
	return os.WriteFile(name, data, manifestFileMode)
}

func (e *Editor) logger() *log.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return log.Default()
}

func leaseError(path string, err error) error {
	ctx := issue.NewErrorContext().
		WithOperation("back up manifest").
		WithResource(path).
		WithKind(issue.KindIO).
		Wrap(err)
	switch {
	case errors.Is(err, ErrStaleBackup):
		ctx.WithIssue(issue.ManifestRestoreFailedId).
			WithSuggestion("A previous ephemeral build did not finish; restore or delete " + path + BackupSuffix)
	case errors.Is(err, ErrLeaseActive):
		ctx.WithSuggestion("Wait for the other build of this manifest to finish")
	}
	return ctx.BuildError()
}
