// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rustfn/rustfn/internal/issue"
	"github.com/rustfn/rustfn/internal/routes"
)

func newRoutesCommand(app *App) *cobra.Command {
	var (
		handler string
		pattern string
	)

	cmd := &cobra.Command{
		Use:   "routes [dir]",
		Short: "Print the route table for the functions under dir",
		Long: `Discover the entrypoints under <dir>/<routes.api_dir> and print the
route table as JSON, most specific routes first. Dynamic segments such as
[id] become named captures forwarded to the handler as query parameters.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := app.loadConfig(cmd.Context())
			if err != nil {
				return app.fail(err)
			}
			dir, err := app.workDir()
			if err != nil {
				return app.fail(err)
			}
			if len(args) == 1 {
				dir = args[0]
			}

			if !cmd.Flags().Changed("handler") {
				handler = cfg.Routes.Handler.String()
			}
			if pattern == "" {
				pattern = filepath.ToSlash(filepath.Join(cfg.Routes.APIDir, "**", "*.rs"))
			}

			paths, err := routes.Discover(os.DirFS(dir), pattern)
			if err != nil {
				return app.fail(issue.NewErrorContext().
					WithOperation("discover entrypoints").
					WithResource(dir).
					WithKind(issue.KindConfiguration).
					WithSuggestion("Check --pattern and routes.api_dir").
					Wrap(err).
					BuildError())
			}
			app.logger().Debug("discovered entrypoints", "dir", dir, "count", len(paths))
			return app.fail(routes.WriteJSON(app.stdout, routes.Compile(paths, routes.WithHandler(handler))))
		},
	}

	cmd.Flags().StringVar(&handler, "handler", "", "handler path route destinations point at (default routes.handler)")
	cmd.Flags().StringVar(&pattern, "pattern", "", "entrypoint glob relative to dir (default <routes.api_dir>/**/*.rs)")
	return cmd
}
