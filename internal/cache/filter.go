// SPDX-License-Identifier: MPL-2.0

package cache

import (
	"maps"
	"regexp"
	"slices"
)

var allowedPath = regexp.MustCompile(`(?:^|/)target/(?:release|debug)/(?:\.fingerprint|build|deps)/`)

// Allowed reports whether the slash-separated relative path belongs to a
// cache-safe subtree.
func Allowed(rel string) bool {
	return allowedPath.MatchString(rel)
}

// Filter returns the entries whose keys are Allowed. entries is not modified.
func Filter[V any](entries map[string]V) map[string]V {
	out := make(map[string]V, len(entries))
	for rel, v := range entries {
		if Allowed(rel) {
			out[rel] = v
		}
	}
	return out
}

// FilterPaths returns the Allowed paths in lexical order.
func FilterPaths(paths []string) []string {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return slices.Sorted(maps.Keys(Filter(set)))
}
