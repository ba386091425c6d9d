// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rustfn/rustfn/internal/cache"
	"github.com/rustfn/rustfn/internal/config"
	"github.com/rustfn/rustfn/internal/issue"
	"github.com/rustfn/rustfn/internal/manifest"
	"github.com/rustfn/rustfn/internal/store"
	"github.com/rustfn/rustfn/internal/toolchain"
)

const cacheKeyPrefix = "cache"

func newCacheCommand(app *App) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Persist and rehydrate cargo target folders",
		Long: `Move cargo target folders into the cache directory between builds so
incremental compilation survives fresh checkouts. Only fingerprints, build
script outputs and dependency artifacts are kept.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var archivePath string
	prepare := &cobra.Command{
		Use:   "prepare <entrypoint>",
		Short: "Move the target folder of an entrypoint into the cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.fail(runCachePrepare(cmd, app, args[0], archivePath))
		},
	}
	prepare.Flags().StringVar(&archivePath, "archive", "", "also write the cache as an archive (default <cache.dir>/targets.tar.<ext> when cache.remote)")

	var restorePath string
	restore := &cobra.Command{
		Use:   "restore",
		Short: "Rehydrate target folders from a cache archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.fail(runCacheRestore(cmd, app, restorePath))
		},
	}
	restore.Flags().StringVar(&restorePath, "archive", "", "archive to restore (default: download from the store)")

	cacheCmd.AddCommand(prepare, restore)
	return cacheCmd
}

func cacheSettings(cfg *config.Config, workDir string) (cachePath string, format cache.Format, err error) {
	cachePath = cfg.Cache.Dir
	if !filepath.IsAbs(cachePath) {
		cachePath = filepath.Join(workDir, cachePath)
	}
	format, err = cache.ParseFormat(cfg.Cache.Format.String())
	if err != nil {
		return "", "", issue.WrapWithContext(err, issue.KindConfiguration, "select cache format", cfg.Cache.Format.String())
	}
	return cachePath, format, nil
}

func cacheKey(format cache.Format) string {
	return store.Key(cacheKeyPrefix, "targets"+format.Ext())
}

func runCachePrepare(cmd *cobra.Command, app *App, entry, archivePath string) error {
	ctx := cmd.Context()
	cfg, _, err := app.loadConfig(ctx)
	if err != nil {
		return err
	}
	workDir, err := app.workDir()
	if err != nil {
		return err
	}
	cachePath, format, err := cacheSettings(cfg, workDir)
	if err != nil {
		return err
	}
	logger := app.logger()

	m := &cache.Manager{Locator: manifest.WalkLocator{}, Env: app.Env, Logger: logger}
	if cfg.Toolchain.Locate != config.LocateWalk {
		env, err := toolchain.EnvBuilder{Base: app.Env}.Build()
		if err != nil {
			return issue.WrapWithContext(err, issue.KindConfiguration, "prepare cache environment", "")
		}
		cargo := &toolchain.Cargo{Env: env, Logger: logger}
		m.Locator, m.Metadata, m.Env = cargo, cargo, env
	}

	snap, err := m.Prepare(ctx, cache.PrepareOptions{WorkPath: workDir, CachePath: cachePath, Entrypoint: entry})
	if err != nil {
		return err
	}
	fmt.Fprintf(app.stderr, "%s cached %d files in %s\n", SuccessStyle.Render("✓"), len(snap.Entries), KeyStyle.Render(cachePath))

	if archivePath == "" && !cfg.Cache.Remote {
		return nil
	}
	if archivePath == "" {
		archivePath = filepath.Join(cachePath, "targets"+format.Ext())
	}
	if err := writeArchive(archivePath, snap, format); err != nil {
		return err
	}
	logger.Info("wrote cache archive", "path", archivePath, "format", format)

	if cfg.Cache.Remote {
		s, err := app.Stores.Open(ctx, cfg.Store, app.Env)
		if err != nil {
			return issue.WrapWithContext(err, issue.KindConfiguration, "open cache store", cfg.Store.Bucket)
		}
		if err := putFile(ctx, s, cacheKey(format), archivePath); err != nil {
			return err
		}
		logger.Info("uploaded cache archive", "key", cacheKey(format))
	}
	return nil
}

func writeArchive(path string, snap *cache.Snapshot, format cache.Format) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return issue.WrapWithContext(err, issue.KindIO, "create cache archive", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return issue.WrapWithContext(err, issue.KindIO, "create cache archive", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := cache.Archive(f, snap, format); err != nil {
		return issue.WrapWithContext(err, issue.KindIO, "write cache archive", path)
	}
	return nil
}

func runCacheRestore(cmd *cobra.Command, app *App, archivePath string) error {
	ctx := cmd.Context()
	cfg, _, err := app.loadConfig(ctx)
	if err != nil {
		return err
	}
	workDir, err := app.workDir()
	if err != nil {
		return err
	}
	_, format, err := cacheSettings(cfg, workDir)
	if err != nil {
		return err
	}

	var r io.ReadCloser
	source := archivePath
	if archivePath != "" {
		f, err := os.Open(archivePath)
		if err != nil {
			return issue.WrapWithContext(err, issue.KindIO, "open cache archive", archivePath)
		}
		r = f
	} else {
		if !cfg.Cache.Remote {
			return issue.NewErrorContext().
				WithOperation("restore cache").
				WithKind(issue.KindConfiguration).
				WithSuggestion("Pass --archive or set cache.remote with a store bucket").
				Wrap(fmt.Errorf("no cache archive source")).
				BuildError()
		}
		s, err := app.Stores.Open(ctx, cfg.Store, app.Env)
		if err != nil {
			return issue.WrapWithContext(err, issue.KindConfiguration, "open cache store", cfg.Store.Bucket)
		}
		source = cacheKey(format)
		r, err = s.Get(ctx, source)
		if err != nil {
			return issue.WrapWithContext(err, issue.KindIO, "download cache archive", source)
		}
	}
	defer r.Close()

	restored, err := cache.Restore(r, workDir, format)
	if err != nil {
		return issue.WrapWithContext(err, issue.KindIO, "restore cache archive", source)
	}
	fmt.Fprintf(app.stderr, "%s restored %d files from %s\n", SuccessStyle.Render("✓"), len(restored), KeyStyle.Render(source))
	return nil
}
