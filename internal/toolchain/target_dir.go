// SPDX-License-Identifier: MPL-2.0

package toolchain

import (
	"context"
	"path/filepath"
)

const (
	// EnvCargoTargetDir overrides where cargo writes build output.
	EnvCargoTargetDir = "CARGO_TARGET_DIR"

	defaultTargetDir = "target"
)

// MetadataReader reads `cargo metadata` for a project. *Cargo implements it.
type MetadataReader interface {
	Metadata(ctx context.Context, dir, manifestPath string) (*Metadata, error)
}

// TargetDir returns the target directory for the project rooted at root:
// CARGO_TARGET_DIR from env (relative values resolve against root), else
// root/target.
func TargetDir(env map[string]string, root string) string {
	if dir := env[EnvCargoTargetDir]; dir != "" {
		if filepath.IsAbs(dir) {
			return dir
		}
		return filepath.Join(root, dir)
	}
	return filepath.Join(root, defaultTargetDir)
}

// ResolveTargetDir asks md for the target directory of manifestPath, which
// also covers workspace members and [build] target-dir. With a nil md, or
// metadata that omits the directory, it falls back to TargetDir.
func ResolveTargetDir(ctx context.Context, md MetadataReader, env map[string]string, manifestPath string) (string, error) {
	root := filepath.Dir(manifestPath)
	if md == nil {
		return TargetDir(env, root), nil
	}
	meta, err := md.Metadata(ctx, root, manifestPath)
	if err != nil {
		return "", err
	}
	if meta.TargetDirectory == "" {
		return TargetDir(env, root), nil
	}
	return meta.TargetDirectory, nil
}
