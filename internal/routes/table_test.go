// SPDX-License-Identifier: MPL-2.0

package routes

import (
	"bytes"
	"encoding/json"
	"slices"
	"strings"
	"testing"
	"testing/fstest"
)

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WriteJSON(&buf, Compile([]string{"api/a.rs", "api/[id].rs"})); err != nil {
		t.Fatalf("WriteJSON() error: %v", err)
	}

	var got []Route
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if len(got) != 2 || got[0].Src != "/api/a" || got[1].Dest != "/api/main?id=$id" {
		t.Errorf("unexpected table: %+v", got)
	}
	if strings.Contains(buf.String(), `\u0026`) {
		t.Errorf("ampersands must not be HTML-escaped: %s", buf.String())
	}
}

func TestDiscover(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"api/z.rs":                   {},
		"api/a/[id].rs":              {},
		"api/[...all].rs":            {},
		"api/readme.md":              {},
		"api/target/debug/build.rs":  {},
		"src/lib.rs":                 {},
		"api/nested/deeper/thing.rs": {},
	}

	got, err := Discover(fsys, "")
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}

	want := []string{
		"api/[...all].rs",
		"api/a/[id].rs",
		"api/nested/deeper/thing.rs",
		"api/z.rs",
	}
	if !slices.Equal(got, want) {
		t.Errorf("Discover() = %v, want %v", got, want)
	}
}
