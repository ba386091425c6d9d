// SPDX-License-Identifier: MPL-2.0

package routes

import (
	"fmt"
	"strings"
)

const (
	// ClassStatic routes contain only literal segments. Lowest rank, tried first.
	ClassStatic Class = iota
	// ClassDynamic routes end in a single named parameter segment.
	ClassDynamic
	// ClassCatchAll routes end in a catch-all or optional catch-all segment.
	ClassCatchAll
)

const (
	catchAllPattern         = `(\S+)`
	optionalCatchAllPattern = `(/\S+)?`
)

type (
	// Class is the precedence class of a route. Lower values win.
	Class int

	// Segment is one parsed path segment. The concrete types are Static,
	// Dynamic, CatchAll and OptionalCatchAll; the set is closed.
	Segment interface {
		// Pattern returns the regular expression fragment for the segment.
		Pattern() string
		// Class returns the precedence class the segment contributes.
		Class() Class
		segment()
	}

	// Static is a literal path segment.
	Static struct{ Literal string }

	// Dynamic is a single named parameter segment: [name].
	Dynamic struct{ Name string }

	// CatchAll matches one or more remaining path components: [...name].
	CatchAll struct{ Name string }

	// OptionalCatchAll matches zero or more remaining path components: [[...name]].
	OptionalCatchAll struct{ Name string }
)

// String returns the class name.
func (c Class) String() string {
	switch c {
	case ClassStatic:
		return "static"
	case ClassDynamic:
		return "dynamic"
	case ClassCatchAll:
		return "catch-all"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// ParseSegment classifies a single path segment.
// Optional catch-all is checked before catch-all because "[[...x]]" would
// otherwise also satisfy the dynamic bracket check.
func ParseSegment(s string) Segment {
	switch {
	case strings.HasPrefix(s, "[[...") && strings.HasSuffix(s, "]]"):
		return OptionalCatchAll{Name: s[len("[[...") : len(s)-len("]]")]}
	case strings.HasPrefix(s, "[...") && strings.HasSuffix(s, "]"):
		return CatchAll{Name: s[len("[...") : len(s)-len("]")]}
	case len(s) >= 2 && strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]"):
		return Dynamic{Name: s[1 : len(s)-1]}
	default:
		return Static{Literal: s}
	}
}

func (s Static) Pattern() string { return s.Literal }
func (Static) Class() Class      { return ClassStatic }
func (Static) segment()          {}

func (d Dynamic) Pattern() string { return "(?<" + d.Name + ">[^/]+)" }
func (Dynamic) Class() Class      { return ClassDynamic }
func (Dynamic) segment()          {}

func (CatchAll) Pattern() string { return catchAllPattern }
func (CatchAll) Class() Class    { return ClassCatchAll }
func (CatchAll) segment()        {}

// OptionalCatchAll shares the CatchAll rank even though its pattern also
// matches the empty remainder.
func (OptionalCatchAll) Pattern() string { return optionalCatchAllPattern }
func (OptionalCatchAll) Class() Class    { return ClassCatchAll }
func (OptionalCatchAll) segment()        {}
