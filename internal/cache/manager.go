// SPDX-License-Identifier: MPL-2.0

package cache

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/rustfn/rustfn/internal/artifact"
	"github.com/rustfn/rustfn/internal/issue"
	"github.com/rustfn/rustfn/internal/manifest"
	"github.com/rustfn/rustfn/internal/toolchain"
)

const (
	targetDirName = "target"
	manifestExt   = ".toml"
)

// ErrTargetOutsideWork reports a target directory the cache cannot mirror.
var ErrTargetOutsideWork = errors.New("target directory is not a target folder inside the work path")

type (
	// Manager moves target directories in and out of the cache root.
	Manager struct {
		// Locator finds the manifest owning a source entrypoint.
		Locator manifest.Locator
		// Metadata resolves the target directory through cargo when set.
		Metadata toolchain.MetadataReader
		// Env is consulted for CARGO_TARGET_DIR when Metadata is nil or no
		// manifest exists.
		Env map[string]string
		// Logger defaults to log.Default().
		Logger *log.Logger
	}

	// PrepareOptions locate the workspace and the cache root.
	PrepareOptions struct {
		// WorkPath is the workspace root.
		WorkPath string
		// CachePath is the cache root.
		CachePath string
		// Entrypoint is relative to WorkPath.
		Entrypoint string
	}

	// Snapshot is the cache-safe view of a cache root, keyed by slash paths
	// relative to Root.
	Snapshot struct {
		Root    string
		Entries map[string]artifact.FileRef
	}
)

// TargetDir returns the target directory cargo uses for entrypoint. A
// manifest entrypoint is its own manifest; a source entrypoint uses the
// manifest its Locator finds. Without a manifest the builder synthesizes one
// next to the entrypoint, so the target directory resolves there.
func (m *Manager) TargetDir(ctx context.Context, workPath, entrypoint string) (string, error) {
	entryPath := filepath.Join(workPath, entrypoint)
	entryDir := filepath.Dir(entryPath)

	var manifestPath string
	switch {
	case filepath.Ext(entrypoint) == manifestExt:
		manifestPath = entryPath
	case m.Locator != nil:
		found, ok, err := m.Locator.Locate(ctx, entryDir)
		if err != nil {
			return "", err
		}
		if ok {
			manifestPath = found
		}
	}
	if manifestPath == "" {
		return toolchain.TargetDir(m.Env, entryDir), nil
	}
	if _, err := os.Stat(manifestPath); errors.Is(err, fs.ErrNotExist) {
		return toolchain.TargetDir(m.Env, filepath.Dir(manifestPath)), nil
	}
	return toolchain.ResolveTargetDir(ctx, m.Metadata, m.Env, manifestPath)
}

// Prepare replaces the cached target directory with the live one and
// returns the filtered snapshot of the whole cache root. Cache keys mirror
// the target directory's path under WorkPath, so it must live there and be
// named target.
func (m *Manager) Prepare(ctx context.Context, opts PrepareOptions) (*Snapshot, error) {
	logger := m.logger()

	liveTarget, err := m.TargetDir(ctx, opts.WorkPath, opts.Entrypoint)
	if err != nil {
		return nil, err
	}
	rel, err := filepath.Rel(opts.WorkPath, liveTarget)
	if err != nil || !filepath.IsLocal(rel) || filepath.Base(rel) != targetDirName {
		return nil, issue.NewErrorContext().
			WithOperation("resolve cache directory").
			WithResource(liveTarget).
			WithKind(issue.KindConfiguration).
			WithSuggestion("Point CARGO_TARGET_DIR at a directory named target inside " + opts.WorkPath).
			Wrap(cmp.Or(err, ErrTargetOutsideWork)).
			BuildError()
	}
	cacheTarget := filepath.Join(opts.CachePath, rel)

	if err := os.RemoveAll(cacheTarget); err != nil {
		return nil, issue.WrapWithContext(err, issue.KindIO, "remove stale cache", cacheTarget)
	}
	if err := os.MkdirAll(filepath.Dir(cacheTarget), 0o755); err != nil {
		return nil, issue.WrapWithContext(err, issue.KindIO, "create cache directory", filepath.Dir(cacheTarget))
	}

	switch _, err := os.Stat(liveTarget); {
	case errors.Is(err, fs.ErrNotExist):
		logger.Warn("no target directory to cache", "dir", liveTarget)
	case err != nil:
		return nil, issue.WrapWithContext(err, issue.KindIO, "stat target directory", liveTarget)
	default:
		logger.Debug("moving target directory into cache", "from", liveTarget, "to", cacheTarget)
		if err := moveDir(liveTarget, cacheTarget); err != nil {
			return nil, issue.WrapWithContext(err, issue.KindIO, "move target directory", liveTarget)
		}
	}

	snap, err := Scan(opts.CachePath)
	if err != nil {
		return nil, issue.WrapWithContext(err, issue.KindIO, "scan cache", opts.CachePath)
	}
	logger.Debug("cache prepared", "root", opts.CachePath, "files", len(snap.Entries))
	return snap, nil
}

// Scan walks root and returns its cache-safe files.
func Scan(root string) (*Snapshot, error) {
	entries := make(map[string]artifact.FileRef)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !Allowed(rel) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		entries[rel] = artifact.FileRef{FsPath: path, Mode: info.Mode().Perm()}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		err = nil
	}
	if err != nil {
		return nil, err
	}
	return &Snapshot{Root: root, Entries: entries}, nil
}

func (m *Manager) logger() *log.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return log.Default()
}

// moveDir renames src to dst, copying when they are on different devices.
func moveDir(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil || !errors.Is(err, syscall.EXDEV) {
		return err
	}
	if err := copyTree(src, dst); err != nil {
		return fmt.Errorf("copy across devices: %w", err)
	}
	return os.RemoveAll(src)
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case d.Type().IsRegular():
			return copyFile(path, target, info.Mode().Perm())
		default:
			return nil
		}
	})
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
