// SPDX-License-Identifier: MPL-2.0

package cache

import (
	"context"
	"errors"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/rustfn/rustfn/internal/issue"
	"github.com/rustfn/rustfn/internal/manifest"
	"github.com/rustfn/rustfn/internal/testutil"
	"github.com/rustfn/rustfn/internal/toolchain"
)

func writeTargetTree(t *testing.T, folder string) {
	t.Helper()
	for _, rel := range []string{
		"target/release/deps/libfoo.rlib",
		"target/release/.fingerprint/foo/lib",
		"target/release/build/foo/out",
		"target/release/hello",
		"target/release/incremental/x",
		"target/debug/deps/libfoo.rlib",
	} {
		testutil.MustWriteFile(t, filepath.Join(folder, filepath.FromSlash(rel)), []byte(rel), 0o644)
	}
}

func TestManager_Prepare(t *testing.T) {
	t.Parallel()

	work := t.TempDir()
	cachePath := t.TempDir()
	project := filepath.Join(work, "fns")
	testutil.MustWriteFile(t, filepath.Join(project, manifest.FileName), []byte("[package]\n"), 0o644)
	testutil.MustWriteFile(t, filepath.Join(project, "api", "hello.rs"), []byte("fn main() {}"), 0o644)
	writeTargetTree(t, project)

	// Stale leftovers must be replaced, not merged.
	stale := filepath.Join(cachePath, "fns", "target", "release", "deps", "stale.rlib")
	testutil.MustWriteFile(t, stale, []byte("old"), 0o644)

	m := &Manager{Locator: manifest.WalkLocator{}, Logger: log.New(io.Discard)}
	snap, err := m.Prepare(context.Background(), PrepareOptions{
		WorkPath:   work,
		CachePath:  cachePath,
		Entrypoint: "fns/api/hello.rs",
	})
	if err != nil {
		t.Fatalf("Prepare() error: %v", err)
	}

	got := slices.Sorted(maps.Keys(snap.Entries))
	want := []string{
		"fns/target/debug/deps/libfoo.rlib",
		"fns/target/release/.fingerprint/foo/lib",
		"fns/target/release/build/foo/out",
		"fns/target/release/deps/libfoo.rlib",
	}
	if !slices.Equal(got, want) {
		t.Errorf("snapshot = %v, want %v", got, want)
	}

	if _, err := os.Stat(filepath.Join(project, "target")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("live target directory still present: %v", err)
	}
	if _, err := os.Stat(stale); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("stale cache file survived: %v", err)
	}
	ref := snap.Entries["fns/target/release/deps/libfoo.rlib"]
	if ref.FsPath != filepath.Join(cachePath, "fns", "target", "release", "deps", "libfoo.rlib") {
		t.Errorf("FsPath = %q", ref.FsPath)
	}
}

type fixedMetadata struct {
	targetDir string
}

func (f *fixedMetadata) Metadata(context.Context, string, string) (*toolchain.Metadata, error) {
	return &toolchain.Metadata{TargetDirectory: f.targetDir}, nil
}

func TestManager_TargetDir(t *testing.T) {
	t.Parallel()

	work := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(work, "rust", manifest.FileName), []byte("[package]\n"), 0o644)
	testutil.MustMkdirAll(t, filepath.Join(work, "rust", "api"), 0o755)
	testutil.MustMkdirAll(t, filepath.Join(work, "loose"), 0o755)

	tests := []struct {
		name       string
		manager    *Manager
		entrypoint string
		want       string
	}{
		{
			name:       "manifest entrypoint",
			manager:    &Manager{Locator: manifest.WalkLocator{}},
			entrypoint: "rust/Cargo.toml",
			want:       filepath.Join(work, "rust", "target"),
		},
		{
			name:       "source entrypoint",
			manager:    &Manager{Locator: manifest.WalkLocator{}},
			entrypoint: "rust/api/hello.rs",
			want:       filepath.Join(work, "rust", "target"),
		},
		{
			name:       "relative CARGO_TARGET_DIR",
			manager:    &Manager{Locator: manifest.WalkLocator{}, Env: map[string]string{toolchain.EnvCargoTargetDir: "out/target"}},
			entrypoint: "rust/api/hello.rs",
			want:       filepath.Join(work, "rust", "out", "target"),
		},
		{
			name:       "absolute CARGO_TARGET_DIR",
			manager:    &Manager{Locator: manifest.WalkLocator{}, Env: map[string]string{toolchain.EnvCargoTargetDir: filepath.Join(work, "target")}},
			entrypoint: "rust/api/hello.rs",
			want:       filepath.Join(work, "target"),
		},
		{
			name: "metadata target directory",
			manager: &Manager{
				Locator:  manifest.WalkLocator{},
				Metadata: &fixedMetadata{targetDir: filepath.Join(work, "target")},
				Env:      map[string]string{toolchain.EnvCargoTargetDir: "ignored"},
			},
			entrypoint: "rust/api/hello.rs",
			want:       filepath.Join(work, "target"),
		},
		{
			name:       "no manifest",
			manager:    &Manager{Locator: manifest.WalkLocator{}},
			entrypoint: "loose/hello.rs",
			want:       filepath.Join(work, "loose", "target"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := tt.manager.TargetDir(context.Background(), work, tt.entrypoint)
			if err != nil {
				t.Fatal(err)
			}
			// "no manifest" only holds when no ancestor of the temp dir has one.
			if tt.name == "no manifest" && got != tt.want {
				t.Skipf("an ancestor of %s contains a manifest", work)
			}
			if got != tt.want {
				t.Errorf("TargetDir() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestManager_PrepareHonorsCargoTargetDir(t *testing.T) {
	t.Parallel()

	work := t.TempDir()
	cachePath := t.TempDir()
	project := filepath.Join(work, "fns")
	testutil.MustWriteFile(t, filepath.Join(project, manifest.FileName), []byte("[package]\n"), 0o644)
	testutil.MustWriteFile(t, filepath.Join(project, "api", "hello.rs"), []byte("fn main() {}"), 0o644)
	// The build wrote to <work>/build/target instead of fns/target.
	writeTargetTree(t, filepath.Join(work, "build"))

	m := &Manager{
		Locator: manifest.WalkLocator{},
		Env:     map[string]string{toolchain.EnvCargoTargetDir: filepath.Join(work, "build", "target")},
		Logger:  log.New(io.Discard),
	}
	snap, err := m.Prepare(context.Background(), PrepareOptions{
		WorkPath:   work,
		CachePath:  cachePath,
		Entrypoint: "fns/api/hello.rs",
	})
	if err != nil {
		t.Fatalf("Prepare() error: %v", err)
	}

	got := slices.Sorted(maps.Keys(snap.Entries))
	want := []string{
		"build/target/debug/deps/libfoo.rlib",
		"build/target/release/.fingerprint/foo/lib",
		"build/target/release/build/foo/out",
		"build/target/release/deps/libfoo.rlib",
	}
	if !slices.Equal(got, want) {
		t.Errorf("snapshot = %v, want %v", got, want)
	}
	if _, err := os.Stat(filepath.Join(work, "build", "target")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("live target directory still present: %v", err)
	}
}

func TestManager_PrepareRejectsUncacheableTargetDir(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		targetDir func(t *testing.T, work string) string
	}{
		{name: "outside the work path", targetDir: func(t *testing.T, _ string) string { return filepath.Join(t.TempDir(), "target") }},
		{name: "not named target", targetDir: func(_ *testing.T, work string) string { return filepath.Join(work, "out") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			work := t.TempDir()
			testutil.MustWriteFile(t, filepath.Join(work, manifest.FileName), []byte("[package]\n"), 0o644)
			m := &Manager{
				Env:    map[string]string{toolchain.EnvCargoTargetDir: tt.targetDir(t, work)},
				Logger: log.New(io.Discard),
			}
			_, err := m.Prepare(context.Background(), PrepareOptions{
				WorkPath:   work,
				CachePath:  t.TempDir(),
				Entrypoint: manifest.FileName,
			})
			if !errors.Is(err, ErrTargetOutsideWork) {
				t.Fatalf("Prepare() error = %v, want ErrTargetOutsideWork", err)
			}
			if issue.KindOf(err) != issue.KindConfiguration {
				t.Errorf("KindOf = %v, want configuration", issue.KindOf(err))
			}
		})
	}
}

func TestManager_PrepareWithoutTarget(t *testing.T) {
	t.Parallel()

	work := t.TempDir()
	m := &Manager{Logger: log.New(io.Discard)}
	snap, err := m.Prepare(context.Background(), PrepareOptions{
		WorkPath:   work,
		CachePath:  t.TempDir(),
		Entrypoint: "Cargo.toml",
	})
	if err != nil {
		t.Fatalf("Prepare() error: %v", err)
	}
	if len(snap.Entries) != 0 {
		t.Errorf("Entries = %v", snap.Entries)
	}
}
