// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rustfn/rustfn/internal/config"
	"github.com/rustfn/rustfn/internal/issue"
)

func newConfigCommand(app *App) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and create rustfn configuration",
		Long: `Configuration is read from --config, then ./rustfn.cue, then the user
config file. RUSTFN_* environment variables override individual keys, e.g.
RUSTFN_CACHE_FORMAT=gzip.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := app.loadConfig(cmd.Context())
			if err != nil {
				return app.fail(err)
			}
			source := path
			if source == "" {
				source = "(using defaults)"
			}
			fmt.Fprintf(app.stderr, "%s %s\n\n", KeyStyle.Render("source:"), source)
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	}

	path := &cobra.Command{
		Use:   "path",
		Short: "Print the user config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := config.UserConfigPath("")
			if err != nil {
				return app.fail(issue.WrapWithContext(err, issue.KindConfiguration, "resolve config directory", ""))
			}
			fmt.Fprintln(app.stdout, p)
			return nil
		},
	}

	var user bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default rustfn.cue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.fail(runConfigInit(app, user))
		},
	}
	initCmd.Flags().BoolVar(&user, "user", false, "write the user config instead of ./rustfn.cue")

	configCmd.AddCommand(show, path, initCmd)
	return configCmd
}

func runConfigInit(app *App, user bool) error {
	var target string
	if user {
		p, err := config.UserConfigPath("")
		if err != nil {
			return issue.WrapWithContext(err, issue.KindConfiguration, "resolve config directory", "")
		}
		target = p
	} else {
		workDir, err := app.workDir()
		if err != nil {
			return err
		}
		target = filepath.Join(workDir, config.ProjectFileName)
	}

	written, err := config.WriteDefault(target)
	if err != nil {
		return issue.WrapWithContext(err, issue.KindIO, "write config", target)
	}
	if !written {
		fmt.Fprintf(app.stderr, "%s %s already exists\n", WarningStyle.Render("!"), target)
		return nil
	}
	fmt.Fprintf(app.stderr, "%s wrote %s\n", SuccessStyle.Render("✓"), KeyStyle.Render(target))
	return nil
}
