// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/rustfn/rustfn/internal/artifact"
	"github.com/rustfn/rustfn/internal/hook"
	"github.com/rustfn/rustfn/internal/issue"
	"github.com/rustfn/rustfn/internal/manifest"
	"github.com/rustfn/rustfn/internal/toolchain"
)

type (
	// Builder runs build requests. The zero value streams cargo output to
	// io.Discard and logs with log.Default().
	Builder struct {
		// Stdout and Stderr receive cargo and build script output.
		Stdout io.Writer
		Stderr io.Writer
		Logger *log.Logger
		// Locate selects LocateCargo (default) or LocateWalk.
		Locate string
		// GOOS selects executable suffixes. Defaults to runtime.GOOS.
		GOOS string
	}

	// session carries the per-request collaborators shared by target sets.
	session struct {
		req     Request
		env     map[string]string
		logger  *log.Logger
		cargo   *toolchain.Cargo
		locator manifest.Locator
		hooks   *hook.Runner
		goos    string
	}
)

// Build runs req to completion. Failures are never retried.
func (b *Builder) Build(ctx context.Context, req Request) (*Result, error) {
	s, err := b.newSession(req)
	if err != nil {
		return nil, err
	}
	if err := s.cargo.EnsureToolchain(); err != nil {
		return nil, err
	}

	set, err := TargetsFor(req)
	if err != nil {
		return nil, issue.WrapWithContext(err, issue.KindConfiguration, "resolve entrypoint", req.Entrypoint)
	}

	outputs, err := set.build(ctx, s)
	if err != nil {
		return nil, err
	}

	res := &Result{Outputs: outputs}
	if _, single := set.(SingleTarget); single {
		for _, a := range outputs {
			res.Output = a
		}
	}
	s.logger.Info("build complete", "outputs", len(outputs))
	return res, nil
}

func (b *Builder) newSession(req Request) (*session, error) {
	logger := b.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.With("entrypoint", req.Entrypoint)

	env, err := toolchain.EnvBuilder{Base: req.Env, CodegenFlags: req.CodegenFlags, GOOS: b.GOOS}.Build()
	if err != nil {
		ec := issue.NewErrorContext().
			WithOperation("prepare build environment").
			WithKind(issue.KindConfiguration).
			Wrap(err)
		var missing *toolchain.MissingEnvError
		if errors.As(err, &missing) {
			ec.WithResource(missing.Name).
				WithIssue(issue.MissingEnvId).
				WithSuggestion(fmt.Sprintf("Export %s before running the build", missing.Name))
		}
		return nil, ec.BuildError()
	}

	stdout, stderr := orDiscard(b.Stdout), orDiscard(b.Stderr)
	cargo := &toolchain.Cargo{Env: env, Stdout: stdout, Stderr: stderr, Logger: logger}

	var locator manifest.Locator = cargo
	switch b.Locate {
	case "", LocateCargo:
	case LocateWalk:
		locator = manifest.WalkLocator{}
	default:
		return nil, issue.NewErrorContext().
			WithOperation("select manifest locator").
			WithResource(b.Locate).
			WithKind(issue.KindConfiguration).
			WithSuggestion(`Set toolchain.locate to "cargo" or "walk"`).
			BuildError()
	}

	goos := b.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}

	return &session{
		req:     req,
		env:     env,
		logger:  logger,
		cargo:   cargo,
		locator: locator,
		hooks:   &hook.Runner{Env: env, Stdout: stdout, Stderr: stderr, Logger: logger},
		goos:    goos,
	}, nil
}

// workspace loads the manifest owning dir, or synthesizes one next to the
// entrypoint when none exists.
func (s *session) workspace(ctx context.Context, dir, entrypoint string) (*manifest.Workspace, error) {
	manifestPath, found, err := s.locator.Locate(ctx, dir)
	if err != nil {
		return nil, err
	}
	if !found {
		base := filepath.Base(entrypoint)
		name := manifest.SanitizeBinaryName(strings.TrimSuffix(base, filepath.Ext(base)))
		s.logger.Info("no Cargo.toml found, synthesizing one", "dir", dir)
		return manifest.Synthesize(dir, strings.Trim(name, "_")+"-fn"), nil
	}
	return manifest.Load(manifestPath)
}

func (s *session) gather(entryDir string) (map[string]artifact.FileRef, error) {
	extra, err := artifact.GatherExtraFiles(entryDir, s.req.IncludeFiles)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("gather extra files").
			WithResource(entryDir).
			WithKind(issue.KindConfiguration).
			WithSuggestion("Check the include_files patterns").
			Wrap(err).
			BuildError()
	}
	return extra, nil
}

func (s *session) pack(targetDir, binName string, extra map[string]artifact.FileRef) (*artifact.Artifact, error) {
	loc := artifact.Locator{
		TargetDir: targetDir,
		Triple:    s.req.TargetTriple,
		Profile:   s.req.Profile(),
		GOOS:      s.goos,
	}
	bin, err := loc.Binary(binName)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("packaging", "bin", binName, "path", bin.Path, "extra", len(extra))
	return artifact.Packager{GOOS: s.goos}.Package(bin, extra)
}

func orDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}
