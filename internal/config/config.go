// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/rustfn/rustfn/internal/issue"
	"github.com/rustfn/rustfn/pkg/cueutil"
	"github.com/rustfn/rustfn/pkg/platform"
)

const (
	// AppName is the application name.
	AppName = "rustfn"
	// EnvPrefix prefixes environment overrides, e.g. RUSTFN_CACHE_FORMAT.
	EnvPrefix = "RUSTFN"
	// ConfigFileName is the name of the user config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// ProjectFileName is the project config looked up in the working directory.
	ProjectFileName = AppName + "." + ConfigFileExt
)

//go:embed config_schema.cue
var configSchema []byte

var compiledSchema = sync.OnceValues(func() (*cueutil.Schema, error) {
	return cueutil.CompileSchema(configSchema, "#Config")
})

// configDirOverride replaces the platform lookup in ConfigDir when set.
var configDirOverride string

// SetConfigDirOverride pins ConfigDir to dir. Tests use it because
// os.UserHomeDir ignores HOME on some platforms.
func SetConfigDirOverride(dir string) { configDirOverride = dir }

// Reset clears SetConfigDirOverride.
func Reset() { configDirOverride = "" }

// ConfigDir returns the rustfn configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case platform.Windows:
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// UserConfigPath returns the path of the user config file.
func UserConfigPath(configDirPath string) (string, error) {
	cfgDir, err := configDirWithOverride(configDirPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt), nil
}

// loadWithOptions performs option-driven config loading. It returns the
// config and the file it was read from ("" when only defaults apply).
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath, err := resolveConfigPath(opts)
	if err != nil {
		return nil, "", err
	}
	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithKind(issue.KindConfiguration).
				WithIssue(issue.ConfigLoadFailedId).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("Use 'rustfn config show' to see the effective configuration").
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", issue.WrapWithContext(fmt.Errorf("failed to parse config: %w", err),
			issue.KindConfiguration, "load configuration", resolvedPath)
	}

	// Environment overrides bypass the schema, so validate the merged result.
	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithKind(issue.KindConfiguration).
			WithIssue(issue.ConfigLoadFailedId).
			WithSuggestion("Check " + EnvPrefix + "_* environment variables as well as the config file").
			Wrap(errs[0]).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, defaults *Config) {
	v.SetDefault("include_files", defaults.IncludeFiles)
	v.SetDefault("workspace", defaults.Workspace)
	v.SetDefault("routes.handler", defaults.Routes.Handler)
	v.SetDefault("routes.api_dir", defaults.Routes.APIDir)
	v.SetDefault("toolchain.locate", defaults.Toolchain.Locate)
	v.SetDefault("toolchain.target", defaults.Toolchain.Target)
	v.SetDefault("toolchain.codegen_flags", defaults.Toolchain.CodegenFlags)
	v.SetDefault("build.output_dir", defaults.Build.OutputDir)
	v.SetDefault("build.ephemeral", defaults.Build.Ephemeral)
	v.SetDefault("cache.dir", defaults.Cache.Dir)
	v.SetDefault("cache.format", defaults.Cache.Format)
	v.SetDefault("cache.remote", defaults.Cache.Remote)
	v.SetDefault("store.bucket", defaults.Store.Bucket)
	v.SetDefault("store.prefix", defaults.Store.Prefix)
	v.SetDefault("store.region", defaults.Store.Region)
	v.SetDefault("store.endpoint", defaults.Store.Endpoint)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)
}

// resolveConfigPath applies the lookup order: explicit file, project file in
// the working directory, then the user config. Absent files are not errors
// except for an explicit path.
func resolveConfigPath(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithKind(issue.KindConfiguration).
				WithIssue(issue.ConfigLoadFailedId).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'rustfn config init' to create a config file").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		return opts.ConfigFilePath, nil
	}

	local := filepath.Join(opts.WorkDir, ProjectFileName)
	if fileExists(local) {
		return local, nil
	}

	userPath, err := UserConfigPath(opts.ConfigDirPath)
	if err != nil {
		return "", err
	}
	if fileExists(userPath) {
		return userPath, nil
	}
	return "", nil
}

// loadCUEIntoViper validates a CUE file against #Config and merges it into
// Viper. Fields are optional, so values need not be concrete.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	schema, err := compiledSchema()
	if err != nil {
		return err
	}
	result, err := cueutil.Decode[map[string]any](schema, data,
		cueutil.WithFilename(path),
		cueutil.WithConcrete(false),
	)
	if err != nil {
		return err
	}

	if err := v.MergeConfigMap(*result.Value); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}
	return ConfigDir()
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// WriteDefault writes the default configuration to path unless a file is
// already there. It reports whether a file was written.
func WriteDefault(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return false, fmt.Errorf("failed to write config file: %w", err)
	}
	return true, nil
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// rustfn configuration file\n\n")

	sb.WriteString(fmt.Sprintf("include_files: %s\n", cueList(cfg.IncludeFiles)))
	sb.WriteString(fmt.Sprintf("workspace: %v\n", cfg.Workspace))

	sb.WriteString("\nroutes: {\n")
	sb.WriteString(fmt.Sprintf("\thandler: %q\n", cfg.Routes.Handler))
	sb.WriteString(fmt.Sprintf("\tapi_dir: %q\n", cfg.Routes.APIDir))
	sb.WriteString("}\n")

	sb.WriteString("\ntoolchain: {\n")
	sb.WriteString(fmt.Sprintf("\tlocate: %q\n", cfg.Toolchain.Locate))
	if cfg.Toolchain.Target != "" {
		sb.WriteString(fmt.Sprintf("\ttarget: %q\n", cfg.Toolchain.Target))
	}
	if cfg.Toolchain.CodegenFlags != nil {
		sb.WriteString(fmt.Sprintf("\tcodegen_flags: %s\n", cueList(cfg.Toolchain.CodegenFlags)))
	}
	sb.WriteString("}\n")

	sb.WriteString("\nbuild: {\n")
	sb.WriteString(fmt.Sprintf("\toutput_dir: %q\n", cfg.Build.OutputDir))
	sb.WriteString(fmt.Sprintf("\tephemeral: %v\n", cfg.Build.Ephemeral))
	sb.WriteString("}\n")

	sb.WriteString("\ncache: {\n")
	sb.WriteString(fmt.Sprintf("\tdir: %q\n", cfg.Cache.Dir))
	sb.WriteString(fmt.Sprintf("\tformat: %q\n", cfg.Cache.Format))
	sb.WriteString(fmt.Sprintf("\tremote: %v\n", cfg.Cache.Remote))
	sb.WriteString("}\n")

	if cfg.Store != (StoreConfig{}) {
		sb.WriteString("\nstore: {\n")
		sb.WriteString(fmt.Sprintf("\tbucket: %q\n", cfg.Store.Bucket))
		sb.WriteString(fmt.Sprintf("\tprefix: %q\n", cfg.Store.Prefix))
		sb.WriteString(fmt.Sprintf("\tregion: %q\n", cfg.Store.Region))
		sb.WriteString(fmt.Sprintf("\tendpoint: %q\n", cfg.Store.Endpoint))
		sb.WriteString("}\n")
	}

	sb.WriteString("\nui: {\n")
	sb.WriteString(fmt.Sprintf("\tverbose: %v\n", cfg.UI.Verbose))
	sb.WriteString("}\n")

	return sb.String()
}

func cueList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
