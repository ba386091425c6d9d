// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/rustfn/rustfn/internal/issue"
)

const (
	binKey = "bin"

	synthesizedVersion = "0.1.0"
	synthesizedEdition = "2021"
)

// ErrParse is the sentinel wrapped by ParseError.
var ErrParse = errors.New("malformed manifest")

type (
	// Target is a declared [[bin]] target.
	Target struct {
		Name string `toml:"name"`
		Path string `toml:"path"`
	}

	// Workspace is the manifest owning an entrypoint and its declared targets.
	// It is read-only once loaded.
	Workspace struct {
		// Root is the directory containing the manifest.
		Root string
		// ManifestPath is the absolute manifest path.
		ManifestPath string
		// Targets are the declared [[bin]] targets in declaration order.
		Targets []Target
		// Synthesized is true when no manifest exists on disk yet.
		Synthesized bool

		doc map[string]any
		raw []byte
	}

	// ParseError reports a manifest that is not valid TOML or has an
	// unexpected [[bin]] shape.
	ParseError struct {
		Path  string
		Cause error
	}

	binTable struct {
		Bin []Target `toml:"bin"`
	}
)

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Cause)
}

// Unwrap returns ErrParse so callers can match with errors.Is.
func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Cause}
}

// Load reads and parses the manifest at path.
func Load(path string) (*Workspace, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("read manifest").
			WithResource(abs).
			WithKind(issue.KindIO).
			Wrap(err).
			BuildError()
	}
	return Parse(abs, data)
}

// Parse decodes manifest content read from path.
func Parse(path string, data []byte) (*Workspace, error) {
	ws := &Workspace{Root: filepath.Dir(path), ManifestPath: path, raw: bytes.Clone(data)}

	if err := toml.Unmarshal(data, &ws.doc); err != nil {
		return nil, parseError(path, err)
	}
	var bins binTable
	if err := toml.Unmarshal(data, &bins); err != nil {
		return nil, parseError(path, err)
	}
	ws.Targets = bins.Bin
	if ws.doc == nil {
		ws.doc = map[string]any{}
	}
	return ws, nil
}

// Synthesize returns an in-memory workspace for a directory without a
// manifest. The manifest is only written by Editor.
func Synthesize(dir, packageName string) *Workspace {
	return &Workspace{
		Root:         dir,
		ManifestPath: filepath.Join(dir, FileName),
		Synthesized:  true,
		doc: map[string]any{
			"package": map[string]any{
				"name":    packageName,
				"version": synthesizedVersion,
				"edition": synthesizedEdition,
			},
		},
	}
}

// Render returns the manifest with target appended to [[bin]]. A manifest
// read from disk keeps its bytes, comments and table order, and gets the
// target as a trailing [[bin]] table; an inline bin array or a synthesized
// workspace is re-encoded. The receiver is not modified.
func (w *Workspace) Render(target Target) ([]byte, error) {
	if w.raw != nil && w.appendable() {
		return w.appendTarget(target)
	}

	doc := make(map[string]any, len(w.doc)+1)
	for k, v := range w.doc {
		doc[k] = v
	}

	var bins []any
	if existing, ok := w.doc[binKey].([]any); ok {
		bins = append(bins, existing...)
	}
	doc[binKey] = append(bins, map[string]any{"name": target.Name, "path": target.Path})

	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode %s: %w", w.ManifestPath, err)
	}
	return buf.Bytes(), nil
}

// appendable reports whether a [[bin]] table can be appended to raw without
// redefining an inline bin array.
func (w *Workspace) appendable() bool {
	if _, declared := w.doc[binKey]; !declared {
		return true
	}
	return bytes.Contains(w.raw, []byte("[["+binKey+"]]"))
}

func (w *Workspace) appendTarget(target Target) ([]byte, error) {
	block, err := toml.Marshal(binTable{Bin: []Target{target}})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", w.ManifestPath, err)
	}

	var buf bytes.Buffer
	buf.Grow(len(w.raw) + len(block) + 2)
	buf.Write(w.raw)
	if len(w.raw) > 0 {
		if !bytes.HasSuffix(w.raw, []byte("\n")) {
			buf.WriteByte('\n')
		}
		buf.WriteByte('\n')
	}
	buf.Write(block)
	return buf.Bytes(), nil
}

func parseError(path string, err error) error {
	return issue.NewErrorContext().
		WithOperation("parse manifest").
		WithResource(path).
		WithKind(issue.KindConfiguration).
		WithIssue(issue.ManifestParseErrorId).
		WithSuggestion("Run 'cargo verify-project' to locate the syntax error").
		Wrap(&ParseError{Path: path, Cause: err}).
		BuildError()
}
