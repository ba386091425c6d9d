// SPDX-License-Identifier: MPL-2.0

package artifact

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// GatherExtraFiles matches patterns against entryDir. Keys are slash paths
// relative to entryDir; a later pattern overrides an earlier match of the
// same file.
func GatherExtraFiles(entryDir string, patterns []string) (map[string]FileRef, error) {
	files := make(map[string]FileRef)
	if len(patterns) == 0 {
		return files, nil
	}

	fsys := os.DirFS(entryDir)
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid include pattern %q", pattern)
		}
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %q in %s: %w", pattern, entryDir, err)
		}
		for _, m := range matches {
			full := filepath.Join(entryDir, filepath.FromSlash(m))
			info, err := os.Stat(full)
			if err != nil {
				return nil, err
			}
			files[m] = FileRef{FsPath: full, Mode: info.Mode().Perm()}
		}
	}
	return files, nil
}
