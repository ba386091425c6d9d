// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/rustfn/rustfn/internal/config"
	"github.com/rustfn/rustfn/internal/testutil"
)

const projectManifest = `[package]
name = "functions"
version = "0.1.0"
edition = "2021"
`

type (
	// staticConfig serves a fixed configuration.
	staticConfig struct {
		cfg *config.Config
	}

	// isolatedConfig loads real files but never reads the user's config dir.
	isolatedConfig struct {
		dir string
	}

	cliResult struct {
		stdout string
		stderr string
		err    error
	}
)

func (s staticConfig) Resolve(context.Context, config.LoadOptions) (*config.Config, string, error) {
	cfg := *s.cfg
	return &cfg, "", nil
}

func (p isolatedConfig) Resolve(ctx context.Context, opts config.LoadOptions) (*config.Config, string, error) {
	opts.ConfigDirPath = p.dir
	return config.NewProvider().Resolve(ctx, opts)
}

func runCLI(t *testing.T, deps Dependencies, args ...string) cliResult {
	t.Helper()

	var stdout, stderr bytes.Buffer
	deps.Stdout = &stdout
	deps.Stderr = &stderr
	if deps.Env == nil {
		deps.Env = map[string]string{}
	}
	if deps.Config == nil {
		deps.Config = isolatedConfig{dir: t.TempDir()}
	}

	app, err := NewApp(deps)
	if err != nil {
		t.Fatalf("NewApp() error: %v", err)
	}
	root := NewRootCommand(app)
	root.SetArgs(args)
	err = root.ExecuteContext(context.Background())
	return cliResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func writeProject(t *testing.T, work string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		testutil.MustWriteFile(t, filepath.Join(work, filepath.FromSlash(rel)), []byte(content), 0o644)
	}
}
