// SPDX-License-Identifier: MPL-2.0

package cache

import (
	"slices"
	"testing"
)

func TestFilterPaths(t *testing.T) {
	t.Parallel()

	got := FilterPaths([]string{
		"target/release/deps/foo.o",
		"target/release/obj/bar",
		"target/debug/build/x",
	})
	want := []string{"target/debug/build/x", "target/release/deps/foo.o"}
	if !slices.Equal(got, want) {
		t.Errorf("FilterPaths() = %v, want %v", got, want)
	}
}

func TestAllowed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rel  string
		want bool
	}{
		{"target/release/.fingerprint/foo-123/lib", true},
		{"target/release/build/ring-abc/out/x.o", true},
		{"target/release/deps/libserde.rlib", true},
		{"target/debug/.fingerprint/a", true},
		{"target/debug/build/b", true},
		{"target/debug/deps/c", true},
		{"api/target/release/deps/c", true},
		{"target/release/hello", false},
		{"target/release/incremental/x", false},
		{"target/x86_64-unknown-linux-musl/release/deps/c", false},
		{"mytarget/release/deps/c", false},
		{"target/release/depsx/c", false},
	}
	for _, tt := range tests {
		if got := Allowed(tt.rel); got != tt.want {
			t.Errorf("Allowed(%q) = %v, want %v", tt.rel, got, tt.want)
		}
	}
}

func TestFilter_DoesNotMutate(t *testing.T) {
	t.Parallel()

	in := map[string]int{"target/release/deps/a": 1, "src/main.rs": 2}
	out := Filter(in)
	if len(in) != 2 || len(out) != 1 || out["target/release/deps/a"] != 1 {
		t.Errorf("Filter() = %v (input %v)", out, in)
	}
}
