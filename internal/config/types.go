// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// LocateCargo resolves manifests with `cargo locate-project`.
	LocateCargo LocateMode = "cargo"
	// LocateWalk resolves manifests by walking parent directories.
	LocateWalk LocateMode = "walk"

	// CacheFormatZstd stores cache archives as tar+zstd.
	CacheFormatZstd CacheFormat = "zstd"
	// CacheFormatGzip stores cache archives as tar+gzip.
	CacheFormatGzip CacheFormat = "gzip"
)

var (
	// ErrInvalidLocateMode is returned when a LocateMode value is not recognized.
	ErrInvalidLocateMode = errors.New("invalid locate mode")
	// ErrInvalidCacheFormat is returned when a CacheFormat value is not recognized.
	ErrInvalidCacheFormat = errors.New("invalid cache format")
	// ErrInvalidHandlerPath is returned when the route handler is not an absolute URL path.
	ErrInvalidHandlerPath = errors.New("invalid handler path")
	// ErrInvalidStoreConfig is returned when remote caching lacks a bucket.
	ErrInvalidStoreConfig = errors.New("invalid store config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// LocateMode selects how the build finds Cargo.toml.
	LocateMode string

	// InvalidLocateModeError is returned when a LocateMode value is not recognized.
	InvalidLocateModeError struct {
		Value LocateMode
	}

	// CacheFormat selects the compression of cache archives.
	CacheFormat string

	// InvalidCacheFormatError is returned when a CacheFormat value is not recognized.
	InvalidCacheFormatError struct {
		Value CacheFormat
	}

	// HandlerPath is the URL path route destinations point at.
	HandlerPath string

	// InvalidHandlerPathError is returned when a HandlerPath does not start with "/".
	InvalidHandlerPathError struct {
		Value HandlerPath
	}

	// InvalidConfigError collects the field errors of a Config.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// IncludeFiles are glob patterns of extra files packaged next to the bootstrap.
		IncludeFiles []string `json:"include_files" mapstructure:"include_files"`
		// Workspace builds every binary target instead of a single entrypoint.
		Workspace bool `json:"workspace" mapstructure:"workspace"`
		// Routes configures route table generation.
		Routes RoutesConfig `json:"routes" mapstructure:"routes"`
		// Toolchain configures cargo invocation.
		Toolchain ToolchainConfig `json:"toolchain" mapstructure:"toolchain"`
		// Build configures artifact output.
		Build BuildConfig `json:"build" mapstructure:"build"`
		// Cache configures target-folder caching.
		Cache CacheConfig `json:"cache" mapstructure:"cache"`
		// Store configures the remote object store used by the cache and uploads.
		Store StoreConfig `json:"store" mapstructure:"store"`
		// UI configures the user interface
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// RoutesConfig configures route generation.
	RoutesConfig struct {
		Handler HandlerPath `json:"handler" mapstructure:"handler"`
		APIDir  string      `json:"api_dir" mapstructure:"api_dir"`
	}

	// ToolchainConfig configures cargo.
	ToolchainConfig struct {
		Locate LocateMode `json:"locate" mapstructure:"locate"`
		// Target is an optional target triple passed to --target.
		Target string `json:"target" mapstructure:"target"`
		// CodegenFlags replace the default RUSTFLAGS additions when set.
		CodegenFlags []string `json:"codegen_flags" mapstructure:"codegen_flags"`
	}

	// BuildConfig configures build output.
	BuildConfig struct {
		OutputDir string `json:"output_dir" mapstructure:"output_dir"`
		// Ephemeral restores Cargo.toml after each build.
		Ephemeral bool `json:"ephemeral" mapstructure:"ephemeral"`
	}

	// CacheConfig configures the target-folder cache.
	CacheConfig struct {
		Dir    string      `json:"dir" mapstructure:"dir"`
		Format CacheFormat `json:"format" mapstructure:"format"`
		// Remote mirrors cache archives to the object store.
		Remote bool `json:"remote" mapstructure:"remote"`
	}

	// StoreConfig locates an S3-compatible bucket.
	StoreConfig struct {
		Bucket   string `json:"bucket" mapstructure:"bucket"`
		Prefix   string `json:"prefix" mapstructure:"prefix"`
		Region   string `json:"region" mapstructure:"region"`
		Endpoint string `json:"endpoint" mapstructure:"endpoint"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// Verbose enables debug logging
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		IncludeFiles: []string{},
		Routes: RoutesConfig{
			Handler: "/api/main",
			APIDir:  "api",
		},
		Toolchain: ToolchainConfig{
			Locate: LocateCargo,
		},
		Build: BuildConfig{
			OutputDir: ".rustfn/output",
		},
		Cache: CacheConfig{
			Dir:    ".rustfn/cache",
			Format: CacheFormatZstd,
		},
	}
}

func (m LocateMode) String() string { return string(m) }

// IsValid returns whether the LocateMode is one of the defined modes.
func (m LocateMode) IsValid() (bool, []error) {
	switch m {
	case LocateCargo, LocateWalk:
		return true, nil
	default:
		return false, []error{&InvalidLocateModeError{Value: m}}
	}
}

// Error implements the error interface for InvalidLocateModeError.
func (e *InvalidLocateModeError) Error() string {
	return fmt.Sprintf("invalid locate mode %q (valid: cargo, walk)", e.Value)
}

// Unwrap returns ErrInvalidLocateMode for errors.Is() compatibility.
func (e *InvalidLocateModeError) Unwrap() error { return ErrInvalidLocateMode }

func (f CacheFormat) String() string { return string(f) }

// IsValid returns whether the CacheFormat is one of the defined formats.
func (f CacheFormat) IsValid() (bool, []error) {
	switch f {
	case CacheFormatZstd, CacheFormatGzip:
		return true, nil
	default:
		return false, []error{&InvalidCacheFormatError{Value: f}}
	}
}

// Error implements the error interface for InvalidCacheFormatError.
func (e *InvalidCacheFormatError) Error() string {
	return fmt.Sprintf("invalid cache format %q (valid: zstd, gzip)", e.Value)
}

// Unwrap returns ErrInvalidCacheFormat for errors.Is() compatibility.
func (e *InvalidCacheFormatError) Unwrap() error { return ErrInvalidCacheFormat }

func (p HandlerPath) String() string { return string(p) }

// IsValid returns whether the HandlerPath is an absolute URL path without a query.
func (p HandlerPath) IsValid() (bool, []error) {
	if !strings.HasPrefix(string(p), "/") || strings.ContainsAny(string(p), "?#") {
		return false, []error{&InvalidHandlerPathError{Value: p}}
	}
	return true, nil
}

// Error implements the error interface for InvalidHandlerPathError.
func (e *InvalidHandlerPathError) Error() string {
	return fmt.Sprintf("invalid handler path %q (must start with / and carry no query)", e.Value)
}

// Unwrap returns ErrInvalidHandlerPath for errors.Is() compatibility.
func (e *InvalidHandlerPathError) Unwrap() error { return ErrInvalidHandlerPath }

// IsValid returns whether every field of the Config is valid. Constraints
// spanning sections (remote cache needs a bucket) are checked here since the
// schema validates fields independently.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Routes.Handler.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Toolchain.Locate.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Cache.Format.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if c.Cache.Remote && c.Store.Bucket == "" {
		errs = append(errs, fmt.Errorf("%w: cache.remote requires store.bucket", ErrInvalidStoreConfig))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}

// Unwrap returns ErrInvalidConfig and the field errors for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}
