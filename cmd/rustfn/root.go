// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/rustfn/rustfn/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "rustfn",
		Short: "Build Rust serverless functions",
		Long: TitleStyle.Render("rustfn") + SubtitleStyle.Render(" - build Rust serverless functions") + `

rustfn compiles each Rust entrypoint under api/ into a bootstrap binary,
packages it with its extra files and generates the route table that maps
URL paths onto the function handler.

` + SubtitleStyle.Render("Examples:") + `
  rustfn build api/hello.rs         Build one function
  rustfn build --workspace          Build every [[bin]] target
  rustfn routes                     Print the route table for ./api
  rustfn dev api/hello.rs           Rebuild on every change`,
		SilenceUsage: true,
	}
	root.SetOut(app.stdout)
	root.SetErr(app.stderr)

	pf := root.PersistentFlags()
	pf.BoolVarP(&app.flags.verbose, "verbose", "v", false, "enable debug logging")
	pf.StringVar(&app.flags.configPath, "config", "", "config file (default ./rustfn.cue, then the user config)")
	pf.StringVarP(&app.flags.workDir, "workdir", "C", "", "workspace root (default the current directory)")

	root.AddCommand(
		newBuildCommand(app),
		newRoutesCommand(app),
		newCacheCommand(app),
		newDevCommand(app),
		newConfigCommand(app),
	)
	return root
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits with the mapped exit code on failure.
func Execute() {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("error: ")+err.Error())
		os.Exit(int(exitFailure))
	}

	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(int(exitCodeFor(err)))
	}
}

// fail prints the catalog guidance for err and wraps it with its exit code.
// The error message itself is printed by fang.
func (a *App) fail(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}

	var ae *issue.ActionableError
	switch {
	case !errors.As(err, &ae):
	case a.flags.verbose:
		fmt.Fprintln(a.stderr, ae.Format(true))
	case ae.HasSuggestions():
		for _, s := range ae.Suggestions {
			fmt.Fprintln(a.stderr, WarningStyle.Render("  • ")+s)
		}
	}
	if help := issue.Lookup(err); help != nil && a.flags.verbose {
		if rendered, renderErr := help.Render("dark"); renderErr == nil {
			fmt.Fprint(a.stderr, rendered)
		}
	}
	return &ExitError{Code: exitCodeFor(err), Err: err}
}
