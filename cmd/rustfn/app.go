// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/rustfn/rustfn/internal/config"
	"github.com/rustfn/rustfn/internal/pipeline"
	"github.com/rustfn/rustfn/internal/store"
	"github.com/rustfn/rustfn/internal/toolchain"
)

const fileScheme = "file://"

type (
	// App wires CLI services and shared dependencies. All command handlers
	// receive an App and delegate through its interfaces.
	App struct {
		Config ConfigProvider
		// Builder overrides the pipeline builder; nil builds with cargo.
		Builder BuildService
		Stores  StoreOpener
		// Env is the host environment handed to cargo and build scripts.
		Env    map[string]string
		stdout io.Writer
		stderr io.Writer
		flags  rootFlags
	}

	// Dependencies defines the injection points for building an App. Nil fields
	// are replaced with production defaults by NewApp.
	Dependencies struct {
		Config  ConfigProvider
		Builder BuildService
		Stores  StoreOpener
		Env     map[string]string
		Stdout  io.Writer
		Stderr  io.Writer
	}

	// rootFlags hold the persistent flags shared by every command.
	rootFlags struct {
		verbose    bool
		configPath string
		workDir    string
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Resolve(ctx context.Context, opts config.LoadOptions) (*config.Config, string, error)
	}

	// BuildService runs build requests.
	BuildService interface {
		Build(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
	}

	// StoreOpener opens the object store described by the configuration.
	StoreOpener interface {
		Open(ctx context.Context, cfg config.StoreConfig, env map[string]string) (store.Store, error)
	}

	defaultStoreOpener struct{}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Stores == nil {
		deps.Stores = defaultStoreOpener{}
	}
	if deps.Env == nil {
		deps.Env = toolchain.EnvFromEnviron(os.Environ())
	}

	return &App{
		Config:  deps.Config,
		Builder: deps.Builder,
		Stores:  deps.Stores,
		Env:     deps.Env,
		stdout:  deps.Stdout,
		stderr:  deps.Stderr,
	}, nil
}

// loadConfig resolves configuration for the current work directory and
// applies the verbose setting.
func (a *App) loadConfig(ctx context.Context) (*config.Config, string, error) {
	workDir, err := a.workDir()
	if err != nil {
		return nil, "", err
	}
	cfg, path, err := a.Config.Resolve(ctx, config.LoadOptions{
		ConfigFilePath: a.flags.configPath,
		WorkDir:        workDir,
	})
	if err != nil {
		return nil, "", err
	}
	if !a.flags.verbose {
		a.flags.verbose = cfg.UI.Verbose || toolchain.IsDebug(a.Env)
	}
	return cfg, path, nil
}

// workDir returns the absolute --workdir, defaulting to the process
// working directory.
func (a *App) workDir() (string, error) {
	if a.flags.workDir != "" {
		return filepath.Abs(a.flags.workDir)
	}
	return os.Getwd()
}

// logger returns a logger writing to stderr at the configured verbosity.
func (a *App) logger() *log.Logger {
	level := log.InfoLevel
	if a.flags.verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(a.stderr, log.Options{
		Prefix:          "rustfn",
		Level:           level,
		ReportTimestamp: a.flags.verbose,
	})
}

// locateMode maps the configured locate mode onto the pipeline constant.
func locateMode(cfg *config.Config) string {
	if cfg.Toolchain.Locate == config.LocateWalk {
		return pipeline.LocateWalk
	}
	return pipeline.LocateCargo
}

// builder returns the injected BuildService or a cargo-backed builder.
func (a *App) builder(cfg *config.Config, logger *log.Logger) BuildService {
	if a.Builder != nil {
		return a.Builder
	}
	return &pipeline.Builder{
		Stdout: a.stdout,
		Stderr: a.stderr,
		Logger: logger,
		Locate: locateMode(cfg),
	}
}

// Open returns a directory store for file:// endpoints and an S3 store
// otherwise.
func (defaultStoreOpener) Open(ctx context.Context, cfg config.StoreConfig, env map[string]string) (store.Store, error) {
	if root, ok := strings.CutPrefix(cfg.Endpoint, fileScheme); ok {
		return store.Dir{Root: filepath.Join(filepath.FromSlash(root), cfg.Bucket, cfg.Prefix)}, nil
	}
	s, err := store.NewS3(ctx, store.S3Options{
		Bucket:   cfg.Bucket,
		Prefix:   cfg.Prefix,
		Region:   cfg.Region,
		Endpoint: cfg.Endpoint,
		Env:      env,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return s, nil
}
