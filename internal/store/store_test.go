// SPDX-License-Identifier: MPL-2.0

package store

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		parts []string
		want  string
	}{
		{parts: []string{"cache", "api.tar.zst"}, want: "cache/api.tar.zst"},
		{parts: []string{"", "a"}, want: "a"},
		{parts: []string{"/p/", "/a//b"}, want: "p/a/b"},
		{parts: []string{"p", "../../x"}, want: "x"},
	}
	for _, tt := range tests {
		if got := Key(tt.parts...); got != tt.want {
			t.Errorf("Key(%q) = %q, want %q", tt.parts, got, tt.want)
		}
	}
}

func TestContentType(t *testing.T) {
	t.Parallel()

	for key, want := range map[string]string{
		"r.json":       "application/json",
		"c.tar.zst":    "application/zstd",
		"c.tar.gz":     "application/gzip",
		"fn.zip":       "application/zip",
		"whatever.bin": "application/octet-stream",
	} {
		if got := contentType(key); got != want {
			t.Errorf("contentType(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestDir_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	d := Dir{Root: t.TempDir()}

	if err := d.Put(ctx, "cache/api.tar.zst", strings.NewReader("payload"), 7); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	rc, err := d.Get(ctx, "cache/api.tar.zst")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "payload" {
		t.Errorf("Get() = %q", data)
	}

	entries, _ := os.ReadDir(filepath.Join(d.Root, "cache"))
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %v", entries)
	}

	if err := d.Delete(ctx, "cache/api.tar.zst"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := d.Get(ctx, "cache/api.tar.zst"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
	if err := d.Delete(ctx, "cache/api.tar.zst"); err != nil {
		t.Errorf("Delete() of missing key error: %v", err)
	}
}

func TestDir_StaysInsideRoot(t *testing.T) {
	t.Parallel()

	parent := t.TempDir()
	d := Dir{Root: filepath.Join(parent, "store")}
	if err := d.Put(context.Background(), "../escape", strings.NewReader("x"), 1); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(parent, "escape")); !errors.Is(err, os.ErrNotExist) {
		t.Error("key escaped the store root")
	}
}

func TestNewS3_RequiresBucket(t *testing.T) {
	t.Parallel()

	if _, err := NewS3(context.Background(), S3Options{}); err == nil {
		t.Error("expected error without bucket")
	}
}

func TestNewS3_PrefixedKeys(t *testing.T) {
	t.Parallel()

	s, err := NewS3(context.Background(), S3Options{
		Bucket:   "fns",
		Prefix:   "builds/",
		Endpoint: "http://127.0.0.1:9000",
		Env:      map[string]string{envAccessKey: "a", envSecretKey: "b"},
	})
	if err != nil {
		t.Fatalf("NewS3() error: %v", err)
	}
	if got := s.key("cache/api.tar.zst"); got != "builds/cache/api.tar.zst" {
		t.Errorf("key() = %q", got)
	}
	var _ Store = s
	var _ Store = Dir{}
}
