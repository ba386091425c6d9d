// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

type recorder struct {
	mu    sync.Mutex
	calls [][]string
	fired chan struct{}
}

func newRecorder() *recorder {
	return &recorder{fired: make(chan struct{}, 16)}
}

func (r *recorder) onChange(_ context.Context, changed []string) error {
	r.mu.Lock()
	r.calls = append(r.calls, changed)
	r.mu.Unlock()
	r.fired <- struct{}{}
	return nil
}

func (r *recorder) snapshot() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

func (r *recorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.fired:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
	}
}

// start runs w until the test ends and fails the test if Run errors.
func start(t *testing.T, w *Watcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-errCh; err != nil {
			t.Errorf("Run() error: %v", err)
		}
	})
}

func write(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWatcher_Debounce(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rec := newRecorder()
	w, err := New(Config{
		BaseDir:  dir,
		Patterns: SourcePatterns(nil),
		Debounce: 100 * time.Millisecond,
		OnChange: rec.onChange,
		Logger:   log.New(io.Discard),
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	start(t, w)

	for _, name := range []string{"a.rs", "b.rs", "c.rs"} {
		write(t, filepath.Join(dir, name))
		time.Sleep(10 * time.Millisecond)
	}
	rec.wait(t)
	time.Sleep(250 * time.Millisecond)

	calls := rec.snapshot()
	if len(calls) != 1 {
		t.Fatalf("callbacks = %d, want 1: %v", len(calls), calls)
	}
	if !slices.Equal(calls[0], []string{"a.rs", "b.rs", "c.rs"}) {
		t.Errorf("changed = %v", calls[0])
	}
}

func TestWatcher_FiltersAndIgnores(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, sub := range []string{"target/release", "api/users", "static"} {
		if err := os.MkdirAll(filepath.Join(dir, filepath.FromSlash(sub)), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	rec := newRecorder()
	w, err := New(Config{
		BaseDir:  dir,
		Patterns: SourcePatterns([]string{"static/**"}),
		Ignore:   []string{"**/*.tmp.rs"},
		Debounce: 50 * time.Millisecond,
		OnChange: rec.onChange,
		Logger:   log.New(io.Discard),
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	start(t, w)

	write(t, filepath.Join(dir, "Cargo.toml"))
	write(t, filepath.Join(dir, "Cargo.toml.backup"))
	write(t, filepath.Join(dir, "target", "release", "main.rs"))
	write(t, filepath.Join(dir, "notes.md"))
	write(t, filepath.Join(dir, "scratch.tmp.rs"))
	time.Sleep(300 * time.Millisecond)
	if calls := rec.snapshot(); len(calls) != 0 {
		t.Fatalf("ignored files triggered callbacks: %v", calls)
	}

	write(t, filepath.Join(dir, "api", "users", "[id].rs"))
	write(t, filepath.Join(dir, "static", "index.html"))
	rec.wait(t)

	var changed []string
	for _, c := range rec.snapshot() {
		changed = append(changed, c...)
	}
	for _, want := range []string{"api/users/[id].rs", "static/index.html"} {
		if !slices.Contains(changed, want) {
			t.Errorf("changed = %v, missing %q", changed, want)
		}
	}
}

func TestWatcher_DefersWhileBusy(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var (
		mu      sync.Mutex
		calls   [][]string
		release = make(chan struct{})
		fired   = make(chan struct{}, 4)
	)
	w, err := New(Config{
		BaseDir:  dir,
		Debounce: 50 * time.Millisecond,
		Logger:   log.New(io.Discard),
		OnChange: func(_ context.Context, changed []string) error {
			mu.Lock()
			first := len(calls) == 0
			calls = append(calls, changed)
			mu.Unlock()
			fired <- struct{}{}
			if first {
				<-release
			}
			return errors.New("compile error")
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	start(t, w)

	write(t, filepath.Join(dir, "a.rs"))
	<-fired
	write(t, filepath.Join(dir, "b.rs"))
	time.Sleep(200 * time.Millisecond)
	close(release)

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("deferred change never rebuilt")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(calls) != 2 || !slices.Contains(calls[1], "b.rs") {
		t.Errorf("calls = %v", calls)
	}
}

func TestWatcher_NewDirectoriesAreWatched(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rec := newRecorder()
	w, err := New(Config{
		BaseDir:  dir,
		Patterns: []string{"**/*.rs"},
		Debounce: 50 * time.Millisecond,
		OnChange: rec.onChange,
		Logger:   log.New(io.Discard),
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	start(t, w)

	if err := os.Mkdir(filepath.Join(dir, "api"), 0o755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	write(t, filepath.Join(dir, "api", "hello.rs"))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-rec.fired:
			for _, c := range rec.snapshot() {
				if slices.Contains(c, "api/hello.rs") {
					return
				}
			}
		case <-deadline:
			t.Fatalf("change in new directory not seen: %v", rec.snapshot())
		}
	}
}

func TestWatcher_RunTwice(t *testing.T) {
	t.Parallel()

	w, err := New(Config{BaseDir: t.TempDir(), Logger: log.New(io.Discard)})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)

	if err := w.Run(ctx); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run() = %v, want ErrAlreadyRunning", err)
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() error: %v", err)
	}
}

func TestNew_InvalidPattern(t *testing.T) {
	t.Parallel()

	for _, cfg := range []Config{
		{Patterns: []string{"api/[.rs"}},
		{Ignore: []string{"{unclosed"}},
	} {
		cfg.BaseDir = t.TempDir()
		if _, err := New(cfg); err == nil {
			t.Errorf("New(%+v) succeeded, want pattern error", cfg)
		}
	}
}

func TestSourcePatterns(t *testing.T) {
	t.Parallel()

	got := SourcePatterns([]string{"static/**", "**/*.rs"})
	want := []string{"**/*.rs", "**/build.sh", "static/**"}
	if !slices.Equal(got, want) {
		t.Errorf("SourcePatterns() = %v, want %v", got, want)
	}
}
