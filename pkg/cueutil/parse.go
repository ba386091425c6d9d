// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

type (
	// Schema is a compiled CUE definition documents are checked against.
	// Compile it once and share it; it is safe for concurrent use.
	Schema struct {
		// mu serializes use of the underlying cue.Context.
		mu   sync.Mutex
		def  cue.Value
		name string
	}

	// ParseResult holds a decoded document.
	ParseResult[T any] struct {
		Value *T
		// Unified is the document unified with the schema, for callers that
		// need fields Value does not carry.
		Unified cue.Value
	}
)

// CompileSchema compiles src and selects the definition at defPath, e.g.
// "#Config".
func CompileSchema(src []byte, defPath string) (*Schema, error) {
	root := cuecontext.New().CompileBytes(src)
	if err := root.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	def := root.LookupPath(cue.ParsePath(defPath))
	if !def.Exists() {
		return nil, fmt.Errorf("schema definition %s not found", defPath)
	}
	if err := def.Err(); err != nil {
		return nil, fmt.Errorf("schema definition %s: %w", defPath, err)
	}
	return &Schema{def: def, name: defPath}, nil
}

// Name returns the definition path the schema was compiled with.
func (s *Schema) Name() string { return s.name }

// Decode unifies data with s, validates the result and decodes it into T.
// Errors carry the JSON path of the offending field.
func Decode[T any](s *Schema, data []byte, opts ...Option) (*ParseResult[T], error) {
	o := newOptions(opts)
	if err := CheckFileSize(data, o.maxFileSize, o.filename); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.def.Context().CompileBytes(data, cue.Filename(o.filename))
	if err := doc.Err(); err != nil {
		return nil, FormatError(err, o.filename)
	}

	unified := s.def.Unify(doc)
	var validate []cue.Option
	if o.concrete {
		validate = append(validate, cue.Concrete(true))
	}
	if err := unified.Validate(validate...); err != nil {
		return nil, FormatError(err, o.filename)
	}

	var out T
	if err := unified.Decode(&out); err != nil {
		return nil, FormatError(err, o.filename)
	}
	return &ParseResult[T]{Value: &out, Unified: unified}, nil
}

// ParseAndDecode compiles schema and decodes data against the definition at
// schemaPath in one step. Prefer CompileSchema plus Decode when the same
// schema checks many documents.
func ParseAndDecode[T any](schema, data []byte, schemaPath string, opts ...Option) (*ParseResult[T], error) {
	s, err := CompileSchema(schema, schemaPath)
	if err != nil {
		return nil, err
	}
	return Decode[T](s, data, opts...)
}
