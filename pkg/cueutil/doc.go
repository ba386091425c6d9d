// SPDX-License-Identifier: MPL-2.0

// Package cueutil validates and decodes CUE documents against an embedded
// schema and reports failures with JSON-path prefixes.
//
//	//go:embed config_schema.cue
//	var schemaSrc []byte
//
//	schema, err := cueutil.CompileSchema(schemaSrc, "#Config")
//	...
//	result, err := cueutil.Decode[Config](schema, data,
//	    cueutil.WithFilename("rustfn.cue"),
//	    cueutil.WithConcrete(false),
//	)
package cueutil
