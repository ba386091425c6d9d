// SPDX-License-Identifier: MPL-2.0

package routes

import (
	"slices"
	"strings"
)

const (
	// DefaultHandler is the destination every route rewrites to.
	DefaultHandler = "/api/main"

	sourceSuffix = ".rs"
)

type (
	// Spec is one compiled route. Specs are immutable once compiled.
	Spec struct {
		// Src is the regular expression matched against the request path.
		Src string
		// Dest is the handler path plus the captured parameters as a query string.
		Dest string
		// Depth is the number of path segments.
		Depth int
		// Class is the precedence class of the route.
		Class Class
	}

	// Option configures Compile.
	Option func(*options)

	options struct {
		handler string
	}
)

// WithHandler overrides DefaultHandler.
func WithHandler(handler string) Option {
	return func(o *options) {
		if handler != "" {
			o.handler = handler
		}
	}
}

// Compile converts entrypoint paths (e.g. "api/post/[id].rs") into routes
// ordered by class ascending, then depth descending. Ties keep input order.
func Compile(paths []string, opts ...Option) []Spec {
	o := options{handler: DefaultHandler}
	for _, opt := range opts {
		opt(&o)
	}

	specs := make([]Spec, 0, len(paths))
	for _, p := range paths {
		specs = append(specs, compileOne(p, o.handler))
	}

	slices.SortStableFunc(specs, func(a, b Spec) int {
		if a.Class != b.Class {
			return int(a.Class) - int(b.Class)
		}
		return b.Depth - a.Depth
	})

	return specs
}

func compileOne(path, handler string) Spec {
	route := strings.TrimSuffix(path, sourceSuffix)
	parts := strings.Split(route, "/")

	src := make([]string, 0, len(parts))
	var params []string
	class := ClassStatic
	for _, part := range parts {
		seg := ParseSegment(part)
		src = append(src, seg.Pattern())
		// The deepest classified segment decides the route class.
		class = seg.Class()
		if d, ok := seg.(Dynamic); ok && !slices.Contains(params, d.Name) {
			params = append(params, d.Name)
		}
	}

	return Spec{
		Src:   "/" + strings.Join(src, "/"),
		Dest:  handler + queryString(params),
		Depth: len(parts),
		Class: class,
	}
}

// queryString renders "?a=$a&b=$b" in declaration order, or "" without params.
// The "$" references are left unescaped so the host router substitutes them.
func queryString(params []string) string {
	if len(params) == 0 {
		return ""
	}
	pairs := make([]string, len(params))
	for i, name := range params {
		pairs[i] = name + "=$" + name
	}
	return "?" + strings.Join(pairs, "&")
}
