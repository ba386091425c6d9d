// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"path/filepath"
	"strings"

	"github.com/rustfn/rustfn/internal/artifact"
)

const (
	// LocateCargo finds manifests with `cargo locate-project`.
	LocateCargo = "cargo"
	// LocateWalk finds manifests by walking parent directories.
	LocateWalk = "walk"

	sourceExt   = ".rs"
	manifestExt = ".toml"
)

type (
	// Request is one build invocation. It is not modified by the builder.
	Request struct {
		// Entrypoint is a source file or Cargo.toml, relative to WorkPath or absolute.
		Entrypoint string
		// WorkPath is the workspace root. Output keys are relative to it.
		WorkPath string
		// Debug selects the debug profile with verbose cargo output.
		Debug bool
		// TargetTriple is an optional cross-compilation target.
		TargetTriple string
		// IncludeFiles are glob patterns of extra files, relative to the
		// entrypoint directory.
		IncludeFiles []string
		// Ephemeral restores the manifest after the build.
		Ephemeral bool
		// Workspace builds every binary target of the manifest.
		Workspace bool
		// Env is the explicit base environment (HOME, PATH, RUSTFLAGS, ...).
		Env map[string]string
		// CodegenFlags override the default RUSTFLAGS additions when non-nil.
		CodegenFlags []string
	}

	// Result holds the packaged artifacts keyed by output name.
	Result struct {
		// Output is set for single-entrypoint builds.
		Output *artifact.Artifact
		// Outputs holds every artifact, including Output.
		Outputs map[string]*artifact.Artifact
	}
)

// Profile returns the cargo profile the request builds.
func (r Request) Profile() artifact.Profile {
	return artifact.ProfileFor(r.Debug)
}

// EntrypointPath returns the absolute entrypoint path.
func (r Request) EntrypointPath() (string, error) {
	p := r.Entrypoint
	if !filepath.IsAbs(p) {
		p = filepath.Join(r.WorkPath, p)
	}
	return filepath.Abs(p)
}

// OutputKey returns the slash path of src relative to workPath without the
// source extension, e.g. "api/post/[id]".
func OutputKey(workPath, src string) string {
	rel, err := filepath.Rel(workPath, src)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(src)
	}
	return strings.TrimSuffix(filepath.ToSlash(rel), sourceExt)
}
