// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"path"
	"path/filepath"
	"strings"
)

var binaryNameReplacer = strings.NewReplacer("[", "_", "]", "_", ".", "_")

// SanitizeBinaryName replaces the route parameter brackets and dots that cargo
// rejects in target names with underscores.
func SanitizeBinaryName(name string) string {
	return binaryNameReplacer.Replace(name)
}

// RelativeSource returns entrypoint relative to root in slash form, the way
// [[bin]] paths are written.
func RelativeSource(root, entrypoint string) string {
	rel, err := filepath.Rel(root, entrypoint)
	if err != nil {
		rel = entrypoint
	}
	return path.Clean(filepath.ToSlash(rel))
}

// ResolveBinaryName returns the binary target name for entrypoint. When a
// declared target points at the entrypoint its name is returned with
// declared set. Otherwise the sanitized base name is returned, prefixed with
// parent directory names while it collides with another declared target.
func ResolveBinaryName(targets []Target, root, entrypoint string) (name string, declared bool) {
	rel := RelativeSource(root, entrypoint)

	taken := make(map[string]bool, len(targets))
	for _, t := range targets {
		if path.Clean(filepath.ToSlash(t.Path)) == rel {
			return t.Name, true
		}
		taken[t.Name] = true
	}

	dir, file := path.Split(rel)
	name = SanitizeBinaryName(strings.TrimSuffix(file, path.Ext(file)))

	parents := strings.Split(strings.Trim(dir, "/"), "/")
	for i := len(parents) - 1; taken[name] && i >= 0; i-- {
		if parents[i] == "" || parents[i] == "." || parents[i] == ".." {
			continue
		}
		name = SanitizeBinaryName(parents[i]) + "_" + name
	}
	return name, false
}
