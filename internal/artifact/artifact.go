// SPDX-License-Identifier: MPL-2.0

package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"runtime"

	"github.com/rustfn/rustfn/internal/issue"
	"github.com/rustfn/rustfn/pkg/platform"
)

const (
	// BootstrapName is the executable the function runtime starts.
	BootstrapName = "bootstrap"

	// RuntimeProvided marks an artifact as a precompiled executable.
	RuntimeProvided = "provided"

	executableMode fs.FileMode = 0o755
)

// ErrCollision is the sentinel wrapped by CollisionError.
var ErrCollision = errors.New("artifact file collision")

type (
	// FileRef points at a file on disk that becomes part of an artifact.
	FileRef struct {
		FsPath string      `json:"fsPath"`
		Mode   fs.FileMode `json:"mode"`
	}

	// Binary is a compiled entrypoint. It is consumed once by the packager.
	Binary struct {
		Name       string
		Path       string
		Executable bool
	}

	// Artifact is a deployable function.
	Artifact struct {
		// Files maps artifact-relative names to their sources.
		Files   map[string]FileRef
		Handler string
		Runtime string
	}

	// Packager assembles artifacts.
	Packager struct {
		// GOOS selects the bootstrap executable suffix. Defaults to runtime.GOOS.
		GOOS string
	}

	// CollisionError reports an extra file that would replace the bootstrap.
	CollisionError struct {
		Name string
	}
)

// Error implements the error interface.
func (e *CollisionError) Error() string {
	return fmt.Sprintf("extra file %q collides with the bootstrap executable", e.Name)
}

// Unwrap returns ErrCollision so callers can use errors.Is for programmatic detection.
func (e *CollisionError) Unwrap() error { return ErrCollision }

// Bootstrap returns the platform bootstrap file name.
func (p Packager) Bootstrap() string {
	goos := p.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	return platform.ExecutableName(BootstrapName, goos)
}

// Package places bin under the bootstrap name, marked executable, next to
// the extra files. extra is not modified.
func (p Packager) Package(bin Binary, extra map[string]FileRef) (*Artifact, error) {
	bootstrap := p.Bootstrap()
	if _, clash := extra[bootstrap]; clash {
		return nil, issue.NewErrorContext().
			WithOperation("package artifact").
			WithResource(bin.Path).
			WithKind(issue.KindPackaging).
			WithIssue(issue.ArtifactCollisionId).
			WithSuggestion("Exclude " + bootstrap + " from include_files").
			Wrap(&CollisionError{Name: bootstrap}).
			BuildError()
	}

	files := make(map[string]FileRef, len(extra)+1)
	maps.Copy(files, extra)

	mode := fs.FileMode(0o644)
	if bin.Executable {
		mode = executableMode
	}
	files[bootstrap] = FileRef{FsPath: bin.Path, Mode: mode}

	return &Artifact{Files: files, Handler: bootstrap, Runtime: RuntimeProvided}, nil
}
