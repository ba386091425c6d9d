// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/rustfn/rustfn/internal/artifact"
	"github.com/rustfn/rustfn/internal/config"
	"github.com/rustfn/rustfn/internal/issue"
	"github.com/rustfn/rustfn/internal/pipeline"
	"github.com/rustfn/rustfn/internal/store"
	"github.com/rustfn/rustfn/internal/toolchain"
	"github.com/rustfn/rustfn/pkg/platform"
)

const artifactPrefix = "artifacts"

type buildFlags struct {
	workspace bool
	debug     bool
	target    string
	include   []string
	ephemeral bool
	outDir    string
	report    bool
	upload    bool
}

func newBuildCommand(app *App) *cobra.Command {
	var flags buildFlags

	cmd := &cobra.Command{
		Use:   "build [entrypoint]",
		Short: "Build functions into deployable artifacts",
		Long: `Build one Rust entrypoint (api/hello.rs) or, with --workspace or a
Cargo.toml argument, every binary target of the workspace.

Each artifact is written as <out>/<name>.zip holding the bootstrap binary
and the files matched by include_files.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var entry string
			if len(args) == 1 {
				entry = args[0]
			}
			if entry == "" && !flags.workspace {
				return app.fail(issue.NewErrorContext().
					WithOperation("build").
					WithKind(issue.KindConfiguration).
					WithSuggestion("Pass an entrypoint such as api/hello.rs").
					WithSuggestion("Use --workspace to build every [[bin]] target").
					Wrap(fmt.Errorf("no entrypoint given")).
					BuildError())
			}
			return app.fail(runBuild(cmd, app, entry, flags))
		},
	}

	f := cmd.Flags()
	f.BoolVar(&flags.workspace, "workspace", false, "build every binary target of the workspace")
	f.BoolVar(&flags.debug, "debug", false, "build the debug profile with verbose cargo output")
	f.StringVar(&flags.target, "target", "", "cross-compilation target triple")
	f.StringSliceVar(&flags.include, "include", nil, "extra file globs relative to the entrypoint directory")
	f.BoolVar(&flags.ephemeral, "ephemeral", false, "restore Cargo.toml after the build")
	f.StringVarP(&flags.outDir, "out", "o", "", "artifact output directory (default build.output_dir)")
	f.BoolVar(&flags.report, "report", false, "print a JSON report with file digests")
	f.BoolVar(&flags.upload, "upload", false, "upload artifacts to the configured store")
	return cmd
}

// buildRequest merges configuration and changed flags into a request.
func buildRequest(cmd *cobra.Command, app *App, cfg *config.Config, workDir, entry string, flags buildFlags) pipeline.Request {
	req := pipeline.Request{
		Entrypoint:   entry,
		WorkPath:     workDir,
		Debug:        flags.debug || toolchain.IsDebug(app.Env),
		TargetTriple: cfg.Toolchain.Target,
		IncludeFiles: cfg.IncludeFiles,
		Ephemeral:    cfg.Build.Ephemeral,
		Workspace:    cfg.Workspace,
		Env:          app.Env,
		CodegenFlags: cfg.Toolchain.CodegenFlags,
	}
	f := cmd.Flags()
	if f.Changed("target") {
		req.TargetTriple = flags.target
	}
	if f.Changed("include") {
		req.IncludeFiles = flags.include
	}
	if f.Changed("ephemeral") {
		req.Ephemeral = flags.ephemeral
	}
	if f.Changed("workspace") {
		req.Workspace = flags.workspace
	}
	return req
}

func runBuild(cmd *cobra.Command, app *App, entry string, flags buildFlags) error {
	ctx := cmd.Context()
	cfg, _, err := app.loadConfig(ctx)
	if err != nil {
		return err
	}
	workDir, err := app.workDir()
	if err != nil {
		return err
	}
	logger := app.logger()

	req := buildRequest(cmd, app, cfg, workDir, entry, flags)
	res, written, err := app.buildAndWrite(ctx, cfg, req, outputDir(cfg, workDir, flags.outDir), logger)
	if err != nil {
		return err
	}

	if flags.upload {
		s, err := app.Stores.Open(ctx, cfg.Store, app.Env)
		if err != nil {
			return issue.WrapWithContext(err, issue.KindConfiguration, "open artifact store", cfg.Store.Bucket)
		}
		if err := uploadArtifacts(ctx, s, written); err != nil {
			return err
		}
		logger.Info("uploaded artifacts", "count", len(written), "bucket", cfg.Store.Bucket)
	}

	if flags.report {
		reports := make(map[string]*artifact.Report, len(res.Outputs))
		for name, a := range res.Outputs {
			r, err := artifact.NewReport(a)
			if err != nil {
				return issue.WrapWithContext(err, issue.KindIO, "hash artifact", name)
			}
			reports[name] = r
		}
		return artifact.WriteReports(app.stdout, reports)
	}
	return nil
}

// buildAndWrite runs req and zips its outputs into outDir.
func (a *App) buildAndWrite(ctx context.Context, cfg *config.Config, req pipeline.Request, outDir string, logger *log.Logger) (*pipeline.Result, map[string]string, error) {
	res, err := a.builder(cfg, logger).Build(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	written, err := writeArtifacts(outDir, res.Outputs)
	if err != nil {
		return nil, nil, err
	}
	for _, name := range slices.Sorted(maps.Keys(written)) {
		fmt.Fprintf(a.stderr, "%s %s -> %s\n", SuccessStyle.Render("✓"), KeyStyle.Render(name), written[name])
	}
	return res, written, nil
}

// outputDir resolves the artifact directory against workDir.
func outputDir(cfg *config.Config, workDir, override string) string {
	dir := cfg.Build.OutputDir
	if override != "" {
		dir = override
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(workDir, dir)
	}
	return dir
}

// writeArtifacts zips every output to <outDir>/<name>.zip and returns the
// written paths keyed by output name.
func writeArtifacts(outDir string, outputs map[string]*artifact.Artifact) (map[string]string, error) {
	written := make(map[string]string, len(outputs))
	for name, a := range outputs {
		if seg := platform.ReservedSegment(name, runtime.GOOS); seg != "" {
			return nil, issue.NewErrorContext().
				WithOperation("write artifact zip").
				WithResource(name).
				WithKind(issue.KindPackaging).
				WithSuggestion("Rename the entrypoint; Windows reserves device names such as CON and NUL").
				Wrap(fmt.Errorf("path segment %q is reserved", seg)).
				BuildError()
		}
		path := filepath.Join(outDir, filepath.FromSlash(name)+".zip")
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, issue.WrapWithContext(err, issue.KindIO, "create output directory", filepath.Dir(path))
		}
		if err := artifact.WriteZipFile(path, a); err != nil {
			return nil, issue.WrapWithContext(err, issue.KindPackaging, "write artifact zip", path)
		}
		written[name] = path
	}
	return written, nil
}

func uploadArtifacts(ctx context.Context, s store.Store, written map[string]string) error {
	for name, path := range written {
		if err := putFile(ctx, s, store.Key(artifactPrefix, name+".zip"), path); err != nil {
			return err
		}
	}
	return nil
}

func putFile(ctx context.Context, s store.Store, key, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return issue.WrapWithContext(err, issue.KindIO, "open upload", path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return issue.WrapWithContext(err, issue.KindIO, "open upload", path)
	}
	if err := s.Put(ctx, key, f, info.Size()); err != nil {
		return issue.WrapWithContext(err, issue.KindIO, "upload", key)
	}
	return nil
}
