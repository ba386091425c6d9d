// SPDX-License-Identifier: MPL-2.0

package cache

import (
	"archive/tar"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/rustfn/rustfn/internal/testutil"
)

func TestArchiveRestore_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, format := range []Format{FormatZstd, FormatGzip} {
		t.Run(string(format), func(t *testing.T) {
			t.Parallel()

			src := t.TempDir()
			writeTargetTree(t, filepath.Join(src, "fns"))
			snap, err := Scan(src)
			if err != nil {
				t.Fatal(err)
			}

			var buf bytes.Buffer
			if err := Archive(&buf, snap, format); err != nil {
				t.Fatalf("Archive() error: %v", err)
			}

			dest := t.TempDir()
			stale := filepath.Join(dest, "fns", "target", "release", "deps", "stale")
			testutil.MustWriteFile(t, stale, []byte("old"), 0o644)

			restored, err := Restore(&buf, dest, format)
			if err != nil {
				t.Fatalf("Restore() error: %v", err)
			}
			want := []string{
				"fns/target/debug/deps/libfoo.rlib",
				"fns/target/release/.fingerprint/foo/lib",
				"fns/target/release/build/foo/out",
				"fns/target/release/deps/libfoo.rlib",
			}
			if !slices.Equal(restored, want) {
				t.Errorf("restored = %v, want %v", restored, want)
			}

			data, err := os.ReadFile(filepath.Join(dest, "fns", "target", "release", "deps", "libfoo.rlib"))
			if err != nil || string(data) != "target/release/deps/libfoo.rlib" {
				t.Errorf("restored content = %q, %v", data, err)
			}
			if _, err := os.Stat(stale); !errors.Is(err, os.ErrNotExist) {
				t.Error("stale file survived restore")
			}
		})
	}
}

func TestRestore_RejectsTraversal(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	tw := tar.NewWriter(zw)
	body := []byte("evil")
	if err := tw.WriteHeader(&tar.Header{Name: "../../etc/evil", Mode: 0o644, Size: int64(len(body)), Typeflag: tar.TypeReg}); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write(body); err != nil {
		t.Fatal(err)
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := Restore(&buf, t.TempDir(), FormatZstd); !errors.Is(err, ErrUnsafePath) {
		t.Errorf("Restore() error = %v, want ErrUnsafePath", err)
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tests := map[string]Format{
		"":         FormatZstd,
		"zstd":     FormatZstd,
		".tar.zst": FormatZstd,
		"gzip":     FormatGzip,
		"tgz":      FormatGzip,
	}
	for in, want := range tests {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("xz"); err == nil {
		t.Error("ParseFormat(xz) succeeded")
	}
	if FormatGzip.Ext() != ".tar.gz" || FormatZstd.Ext() != ".tar.zst" {
		t.Error("Ext mismatch")
	}
}
