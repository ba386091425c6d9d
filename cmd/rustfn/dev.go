// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustfn/rustfn/internal/issue"
	"github.com/rustfn/rustfn/internal/watch"
)

func newDevCommand(app *App) *cobra.Command {
	var (
		flags    buildFlags
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "dev <entrypoint>",
		Short: "Rebuild a function whenever its sources change",
		Long: `Build <entrypoint> once, then watch the workspace and rebuild on every
change to a .rs file, build.sh or a file matched by include_files. Dev
builds always restore Cargo.toml so the watcher does not observe its own
manifest edits.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.fail(runDev(cmd, app, args[0], flags, debounce))
		},
	}

	f := cmd.Flags()
	f.BoolVar(&flags.debug, "debug", false, "build the debug profile with verbose cargo output")
	f.StringVarP(&flags.outDir, "out", "o", "", "artifact output directory (default build.output_dir)")
	f.DurationVar(&debounce, "debounce", 0, "quiet period before a rebuild (default "+watch.DefaultDebounce.String()+")")
	return cmd
}

func runDev(cmd *cobra.Command, app *App, entry string, flags buildFlags, debounce time.Duration) error {
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
	req.Ephemeral = true
	outDir := outputDir(cfg, workDir, flags.outDir)

	if _, _, err := app.buildAndWrite(ctx, cfg, req, outDir, logger); err != nil {
		// Keep watching so the next save can fix the build.
		logger.Error("initial build failed", "err", err)
	}

	w, err := watch.New(watch.Config{
		BaseDir:  workDir,
		Patterns: watch.SourcePatterns(req.IncludeFiles),
		Debounce: debounce,
		Logger:   logger,
		OnChange: func(ctx context.Context, changed []string) error {
			fmt.Fprintf(app.stderr, "%s %s\n", WarningStyle.Render("↻"), strings.Join(changed, ", "))
			_, _, err := app.buildAndWrite(ctx, cfg, req, outDir, logger)
			return err
		},
	})
	if err != nil {
		return issue.WrapWithContext(err, issue.KindIO, "start watcher", workDir)
	}

	fmt.Fprintf(app.stderr, "%s watching %s\n", SubtitleStyle.Render("rustfn dev"), KeyStyle.Render(workDir))
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return issue.WrapWithContext(err, issue.KindIO, "watch sources", workDir)
	}
	return nil
}
