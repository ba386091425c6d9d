// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rustfn/rustfn/internal/artifact"
	"github.com/rustfn/rustfn/internal/issue"
	"github.com/rustfn/rustfn/internal/manifest"
	"github.com/rustfn/rustfn/internal/toolchain"
)

type (
	// TargetSet is the set of binaries one build produces.
	TargetSet interface {
		build(ctx context.Context, s *session) (map[string]*artifact.Artifact, error)
	}

	// SingleTarget builds the binary of one source entrypoint.
	SingleTarget struct {
		Entrypoint string
	}

	// WorkspaceTargets builds every binary target declared by a manifest.
	WorkspaceTargets struct {
		// ManifestPath may be empty to locate the manifest from the work path.
		ManifestPath string
	}
)

// TargetsFor selects the target set of req. Manifest entrypoints and
// requests with Workspace set build the whole workspace.
func TargetsFor(req Request) (TargetSet, error) {
	entry, err := req.EntrypointPath()
	if err != nil {
		return nil, err
	}
	switch {
	case filepath.Ext(entry) == manifestExt:
		return WorkspaceTargets{ManifestPath: entry}, nil
	case req.Workspace:
		return WorkspaceTargets{}, nil
	default:
		return SingleTarget{Entrypoint: entry}, nil
	}
}

func (t SingleTarget) build(ctx context.Context, s *session) (map[string]*artifact.Artifact, error) {
	entryDir := filepath.Dir(t.Entrypoint)

	if _, err := s.hooks.RunIfPresent(ctx, entryDir); err != nil {
		return nil, err
	}
	extra, err := s.gather(entryDir)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("locating manifest", "dir", entryDir)
	ws, err := s.workspace(ctx, entryDir, t.Entrypoint)
	if err != nil {
		return nil, err
	}

	editor := &manifest.Editor{Ephemeral: s.req.Ephemeral, Logger: s.logger}
	var binName string
	err = editor.WithTarget(ctx, ws, t.Entrypoint, func(ctx context.Context, e manifest.Edit) error {
		binName = e.BinaryName
		s.logger.Info("building", "bin", binName, "profile", s.req.Profile(), "manifest", ws.ManifestPath)
		return s.cargo.Build(ctx, toolchain.BuildOptions{
			ManifestPath: ws.ManifestPath,
			Dir:          entryDir,
			Bins:         []string{binName},
			Debug:        s.req.Debug,
			Target:       s.req.TargetTriple,
		})
	})
	if err != nil {
		return nil, err
	}

	art, err := s.pack(toolchain.TargetDir(s.env, ws.Root), binName, extra)
	if err != nil {
		return nil, err
	}
	return map[string]*artifact.Artifact{OutputKey(s.req.WorkPath, t.Entrypoint): art}, nil
}

func (t WorkspaceTargets) build(ctx context.Context, s *session) (map[string]*artifact.Artifact, error) {
	manifestPath := t.ManifestPath
	if manifestPath == "" {
		found, ok, err := s.locator.Locate(ctx, s.req.WorkPath)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, issue.NewErrorContext().
				WithOperation("locate workspace manifest").
				WithResource(s.req.WorkPath).
				WithKind(issue.KindConfiguration).
				WithIssue(issue.ManifestNotFoundId).
				WithSuggestion("Workspace builds need a Cargo.toml declaring [[bin]] targets").
				BuildError()
		}
		manifestPath = found
	}
	dir := filepath.Dir(manifestPath)

	if _, err := s.hooks.RunIfPresent(ctx, dir); err != nil {
		return nil, err
	}

	md, err := s.cargo.Metadata(ctx, dir, manifestPath)
	if err != nil {
		return nil, err
	}
	bins := md.Bins()
	s.logger.Info("building workspace", "manifest", manifestPath, "bins", len(bins), "profile", s.req.Profile())

	err = s.cargo.Build(ctx, toolchain.BuildOptions{
		ManifestPath: manifestPath,
		Dir:          dir,
		AllBins:      true,
		Debug:        s.req.Debug,
		Target:       s.req.TargetTriple,
	})
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		outputs = make(map[string]*artifact.Artifact, len(bins))
	)
	var g errgroup.Group
	for _, bin := range bins {
		g.Go(func() error {
			extra, err := s.gather(filepath.Dir(bin.SrcPath))
			if err != nil {
				return err
			}
			art, err := s.pack(md.TargetDirectory, bin.Name, extra)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			outputs[OutputKey(s.req.WorkPath, bin.SrcPath)] = art
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}
