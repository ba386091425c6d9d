// SPDX-License-Identifier: MPL-2.0

package toolchain

import (
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"github.com/rustfn/rustfn/pkg/platform"
)

const (
	// EnvHome is required to find the cargo installation.
	EnvHome = "HOME"
	// EnvPath is required and extended with $HOME/.cargo/bin.
	EnvPath = "PATH"
	// EnvRustFlags is extended with the codegen flags.
	EnvRustFlags = "RUSTFLAGS"
	// EnvBuilderDebug selects the debug profile with verbose output when truthy.
	EnvBuilderDebug = "RUSTFN_BUILDER_DEBUG"
)

// ErrMissingEnv is the sentinel wrapped by MissingEnvError.
var ErrMissingEnv = errors.New("missing required environment variable")

// DefaultCodegenFlags pin the CPU baseline of the function runtime hosts.
var DefaultCodegenFlags = []string{
	"-C", "target-cpu=ivybridge",
	"-C", "target-feature=-aes,-avx,+fxsr,-popcnt,+sse,+sse2,-sse3,-sse4.1,-sse4.2,-ssse3,-xsave,-xsaveopt",
}

type (
	// EnvBuilder materializes the environment passed to cargo.
	EnvBuilder struct {
		// Base is the starting environment, usually EnvFromEnviron(os.Environ())
		// injected by the caller.
		Base map[string]string
		// CodegenFlags are appended to RUSTFLAGS. Nil means DefaultCodegenFlags;
		// an empty non-nil slice appends nothing.
		CodegenFlags []string
		// GOOS selects the PATH list separator. Defaults to runtime.GOOS.
		GOOS string
	}

	// MissingEnvError names a required variable absent from the base environment.
	MissingEnvError struct {
		Name string
	}
)

// Error implements the error interface.
func (e *MissingEnvError) Error() string {
	return fmt.Sprintf("%s is not set", e.Name)
}

// Unwrap returns ErrMissingEnv so callers can use errors.Is for programmatic detection.
func (e *MissingEnvError) Unwrap() error { return ErrMissingEnv }

// Build returns a new map; Base is not modified.
func (b EnvBuilder) Build() (map[string]string, error) {
	env := make(map[string]string, len(b.Base)+2)
	maps.Copy(env, b.Base)

	for _, name := range []string{EnvHome, EnvPath} {
		if env[name] == "" {
			return nil, &MissingEnvError{Name: name}
		}
	}

	goos := b.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	cargoBin := filepath.Join(env[EnvHome], ".cargo", "bin")
	env[EnvPath] = cargoBin + platform.PathListSeparator(goos) + env[EnvPath]

	flags := b.CodegenFlags
	if flags == nil {
		flags = DefaultCodegenFlags
	}
	var rustflags []string
	if existing := strings.TrimSpace(env[EnvRustFlags]); existing != "" {
		rustflags = append(rustflags, existing)
	}
	rustflags = append(rustflags, flags...)
	if len(rustflags) > 0 {
		env[EnvRustFlags] = strings.Join(rustflags, " ")
	}

	return env, nil
}

// EnvFromEnviron converts "KEY=VALUE" entries into a map. Later entries win;
// malformed entries are skipped.
func EnvFromEnviron(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, entry := range environ {
		name, value, ok := strings.Cut(entry, "=")
		if !ok || name == "" {
			continue
		}
		env[name] = value
	}
	return env
}

// EnvToSlice converts an environment map into sorted "KEY=VALUE" entries.
func EnvToSlice(env map[string]string) []string {
	result := make([]string, 0, len(env))
	for _, k := range slices.Sorted(maps.Keys(env)) {
		result = append(result, k+"="+env[k])
	}
	return result
}

// IsDebug reports whether EnvBuilderDebug is set to a truthy value. Any
// non-empty value that does not parse as a boolean counts as true.
func IsDebug(env map[string]string) bool {
	v := strings.TrimSpace(env[EnvBuilderDebug])
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err != nil || b
}
