// SPDX-License-Identifier: MPL-2.0

package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rustfn/rustfn/internal/issue"
	"github.com/rustfn/rustfn/pkg/platform"
)

const (
	// ProfileDebug is cargo's unoptimized profile.
	ProfileDebug Profile = "debug"
	// ProfileRelease is cargo's optimized profile.
	ProfileRelease Profile = "release"
)

// ErrBinaryMissing is returned when the compiled binary is not where cargo
// should have written it.
var ErrBinaryMissing = errors.New("compiled binary not found")

type (
	// Profile is a cargo build profile directory name.
	Profile string

	// Locator computes where cargo writes binaries.
	Locator struct {
		// TargetDir is cargo's target directory.
		TargetDir string
		// Triple is an optional cross-compilation target triple.
		Triple  string
		Profile Profile
		// GOOS selects the executable suffix.
		GOOS string
	}
)

// ProfileFor returns ProfileDebug when debug is set.
func ProfileFor(debug bool) Profile {
	if debug {
		return ProfileDebug
	}
	return ProfileRelease
}

// BinaryPath returns targetDir[/triple]/profile/name[.exe].
func BinaryPath(targetDir, triple string, profile Profile, name, goos string) string {
	dir := targetDir
	if triple != "" {
		dir = filepath.Join(dir, triple)
	}
	return filepath.Join(dir, string(profile), platform.ExecutableName(name, goos))
}

// Path returns the expected path of binary name.
func (l Locator) Path(name string) string {
	return BinaryPath(l.TargetDir, l.Triple, l.Profile, name, l.GOOS)
}

// Binary returns the compiled binary name, failing when it does not exist.
func (l Locator) Binary(name string) (Binary, error) {
	path := l.Path(name)
	info, err := os.Stat(path)
	if err == nil && !info.Mode().IsRegular() {
		err = fmt.Errorf("%s is not a regular file", path)
	}
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("%w: %s", ErrBinaryMissing, path)
		}
		return Binary{}, issue.NewErrorContext().
			WithOperation("locate compiled binary").
			WithResource(path).
			WithKind(issue.KindPackaging).
			WithIssue(issue.BinaryMissingId).
			WithSuggestion("Check that the [[bin]] name in Cargo.toml matches " + name).
			WithSuggestion("Check CARGO_TARGET_DIR and build.target-dir settings").
			Wrap(err).
			BuildError()
	}
	return Binary{Name: name, Path: path, Executable: true}, nil
}
