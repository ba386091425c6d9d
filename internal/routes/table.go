// SPDX-License-Identifier: MPL-2.0

package routes

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultPattern selects the entrypoints compiled by Discover.
const DefaultPattern = "api/**/*.rs"

// Route is the externally consumed {src, dest} pair.
type Route struct {
	Src  string `json:"src"`
	Dest string `json:"dest"`
}

// Table projects compiled specs onto the host router contract, preserving order.
func Table(specs []Spec) []Route {
	out := make([]Route, len(specs))
	for i, s := range specs {
		out[i] = Route{Src: s.Src, Dest: s.Dest}
	}
	return out
}

// WriteJSON writes the route table as an indented JSON array.
func WriteJSON(w io.Writer, specs []Spec) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(Table(specs)); err != nil {
		return fmt.Errorf("encode route table: %w", err)
	}
	return nil
}

// Discover lists entrypoints in fsys matching pattern (DefaultPattern when
// empty), sorted lexically so compiled output never depends on walk order.
// Files under a "target" directory are skipped.
func Discover(fsys fs.FS, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}

	out := matches[:0]
	for _, m := range matches {
		if slices.Contains(strings.Split(path.Dir(m), "/"), "target") {
			continue
		}
		out = append(out, m)
	}
	slices.Sort(out)
	return out, nil
}
