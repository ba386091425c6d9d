// SPDX-License-Identifier: MPL-2.0

package toolchain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/rustfn/rustfn/internal/issue"
)

const binKind = "bin"

type (
	// Metadata is the subset of `cargo metadata --format-version 1` used to
	// locate workspace binaries.
	Metadata struct {
		TargetDirectory string            `json:"target_directory"`
		WorkspaceRoot   string            `json:"workspace_root"`
		Packages        []MetadataPackage `json:"packages"`
	}

	// MetadataPackage is one workspace member.
	MetadataPackage struct {
		Name         string           `json:"name"`
		ManifestPath string           `json:"manifest_path"`
		Targets      []MetadataTarget `json:"targets"`
	}

	// MetadataTarget is one compilation target of a package.
	MetadataTarget struct {
		Name    string   `json:"name"`
		Kind    []string `json:"kind"`
		SrcPath string   `json:"src_path"`
	}
)

// Bins returns every binary target across packages in declaration order.
func (m *Metadata) Bins() []MetadataTarget {
	var bins []MetadataTarget
	for _, pkg := range m.Packages {
		for _, t := range pkg.Targets {
			if slices.Contains(t.Kind, binKind) {
				bins = append(bins, t)
			}
		}
	}
	return bins
}

// Metadata runs `cargo metadata` for manifestPath (or the project owning dir
// when manifestPath is empty).
func (c *Cargo) Metadata(ctx context.Context, dir, manifestPath string) (*Metadata, error) {
	args := []string{"metadata", "--format-version", "1", "--no-deps"}
	if manifestPath != "" {
		args = append(args, "--manifest-path", manifestPath)
	}

	var stdout, stderr bytes.Buffer
	if err := c.run(ctx, dir, args, &stdout, &stderr); err != nil {
		return nil, issue.WrapWithContext(withStderr(err, stderr.String()), issue.KindToolchain, "run cargo metadata", dir)
	}

	var md Metadata
	if err := json.Unmarshal(stdout.Bytes(), &md); err != nil {
		return nil, issue.WrapWithContext(fmt.Errorf("decode cargo metadata: %w", err), issue.KindToolchain, "run cargo metadata", dir)
	}
	return &md, nil
}
