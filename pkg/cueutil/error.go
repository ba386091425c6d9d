// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue/errors"
)

// FormatError flattens a CUE error into lines of the form
// <file>: <json-path>: <message>, e.g.
//
//	rustfn.cue: toolchain.locate: 2 errors in empty disjunction
func FormatError(err error, filename string) error {
	if err == nil {
		return nil
	}

	list := errors.Errors(err)
	if len(list) == 0 {
		return fmt.Errorf("%s: %w", filename, err)
	}

	lines := make([]string, 0, len(list))
	for _, e := range list {
		lines = append(lines, fieldMessage(e))
	}
	if len(lines) == 1 {
		return fmt.Errorf("%s: %s", filename, lines[0])
	}
	return fmt.Errorf("%s: %d errors:\n  %s", filename, len(lines), strings.Join(lines, "\n  "))
}

// fieldMessage prefixes the message of e with its JSON path. CUE sometimes
// starts the message with the dotted path already; that copy is dropped.
func fieldMessage(e errors.Error) string {
	p := formatPath(errors.Path(e))
	msg := e.Error()
	if p == "" {
		return msg
	}
	if rest, ok := strings.CutPrefix(msg, p); ok {
		msg = strings.TrimSpace(strings.TrimPrefix(rest, ":"))
	}
	return p + ": " + msg
}

// formatPath renders a CUE path (["include_files", "0"]) in JSON-path
// notation ("include_files[0]").
func formatPath(path []string) string {
	var b strings.Builder
	for i, part := range path {
		switch {
		case i == 0:
			b.WriteString(part)
		case isIndex(part):
			b.WriteString("[" + part + "]")
		default:
			b.WriteString("." + part)
		}
	}
	return b.String()
}

func isIndex(s string) bool {
	return s != "" && strings.Trim(s, "0123456789") == ""
}

// CheckFileSize rejects data larger than maxSize.
func CheckFileSize(data []byte, maxSize int64, filename string) error {
	if n := int64(len(data)); n > maxSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes", filename, n, maxSize)
	}
	return nil
}
