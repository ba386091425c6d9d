// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// FileName is the manifest file name searched for.
const FileName = "Cargo.toml"

type (
	// Locator finds the manifest owning dir. found is false when no manifest
	// exists; err is reserved for failures of the lookup itself.
	Locator interface {
		Locate(ctx context.Context, dir string) (path string, found bool, err error)
	}

	// WalkLocator finds manifests by walking parent directories.
	WalkLocator struct {
		// Stat defaults to os.Stat.
		Stat func(name string) (fs.FileInfo, error)
	}
)

// Walk searches start and its ancestors for FileName, returning the first
// path for which exists reports true. It touches no global state.
func Walk(start string, exists func(path string) bool) (string, bool) {
	dir := filepath.Clean(start)
	for {
		candidate := filepath.Join(dir, FileName)
		if exists(candidate) {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// Locate implements Locator.
func (l WalkLocator) Locate(ctx context.Context, dir string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	stat := l.Stat
	if stat == nil {
		stat = os.Stat
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", false, err
	}

	var statErr error
	path, found := Walk(abs, func(p string) bool {
		info, err := stat(p)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) && statErr == nil {
				statErr = err
			}
			return false
		}
		return info.Mode().IsRegular()
	})
	if !found && statErr != nil {
		return "", false, statErr
	}
	return path, found, nil
}
