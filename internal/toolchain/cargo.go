// SPDX-License-Identifier: MPL-2.0

package toolchain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/rustfn/rustfn/internal/issue"
	"github.com/rustfn/rustfn/pkg/platform"
)

const (
	defaultBinary = "cargo"

	locateNotFoundMarker = "could not find"
)

var (
	// ErrToolchainMissing is returned when cargo is not on the explicit PATH.
	ErrToolchainMissing = errors.New("cargo not found")

	// ErrBuildFailed is the sentinel wrapped by BuildFailedError.
	ErrBuildFailed = errors.New("cargo build failed")
)

type (
	// Cargo runs cargo subcommands with an explicit environment.
	Cargo struct {
		// Env is the complete environment of every invocation.
		Env map[string]string
		// Binary is the executable name or path. Defaults to "cargo" resolved
		// against Env's PATH.
		Binary string
		// Stdout and Stderr receive streamed build output. Nil discards.
		Stdout io.Writer
		Stderr io.Writer
		// Logger defaults to log.Default().
		Logger *log.Logger
	}

	// BuildOptions select what `cargo build` compiles.
	BuildOptions struct {
		// ManifestPath is passed as --manifest-path when set.
		ManifestPath string
		// Dir is the working directory of the process.
		Dir string
		// Bins lists binary targets to build; ignored when AllBins is set.
		Bins []string
		// AllBins builds every binary target (--bins).
		AllBins bool
		// Debug selects the debug profile with verbose output. Otherwise the
		// release profile is built quietly.
		Debug bool
		// Target is an optional target triple.
		Target string
	}

	// BuildFailedError reports a non-zero cargo exit.
	BuildFailedError struct {
		Args     []string
		ExitCode ExitCode
		Cause    error
	}

	locateOutput struct {
		Root string `json:"root"`
	}
)

// Error implements the error interface.
func (e *BuildFailedError) Error() string {
	return fmt.Sprintf("cargo %s exited with status %s", strings.Join(e.Args, " "), e.ExitCode)
}

// Unwrap returns ErrBuildFailed and the process error.
func (e *BuildFailedError) Unwrap() []error {
	return []error{ErrBuildFailed, e.Cause}
}

// BuildArgs returns the `cargo build` arguments for opts.
func BuildArgs(opts BuildOptions) []string {
	args := []string{"build"}
	if opts.ManifestPath != "" {
		args = append(args, "--manifest-path", opts.ManifestPath)
	}
	if opts.AllBins {
		args = append(args, "--bins")
	} else {
		for _, bin := range opts.Bins {
			args = append(args, "--bin", bin)
		}
	}
	if opts.Target != "" {
		args = append(args, "--target", opts.Target)
	}
	if opts.Debug {
		return append(args, "--verbose")
	}
	return append(args, "--quiet", "--release")
}

// LookPath resolves the cargo executable against Env's PATH.
func (c *Cargo) LookPath() (string, error) {
	name := c.Binary
	if name == "" {
		name = defaultBinary
	}
	if strings.ContainsRune(name, filepath.Separator) || strings.ContainsRune(name, '/') {
		if isExecutable(name) {
			return name, nil
		}
		return "", fmt.Errorf("%w: %s", ErrToolchainMissing, name)
	}

	candidates := []string{name}
	if runtime.GOOS == platform.Windows && filepath.Ext(name) == "" {
		candidates = []string{platform.ExecutableName(name, platform.Windows), name}
	}
	for _, dir := range filepath.SplitList(c.Env[EnvPath]) {
		if dir == "" {
			continue
		}
		for _, candidate := range candidates {
			full := filepath.Join(dir, candidate)
			if isExecutable(full) {
				return full, nil
			}
		}
	}
	return "", fmt.Errorf("%w on PATH %q", ErrToolchainMissing, c.Env[EnvPath])
}

// EnsureToolchain fails with an actionable error when cargo cannot be found.
func (c *Cargo) EnsureToolchain() error {
	if _, err := c.LookPath(); err != nil {
		return issue.NewErrorContext().
			WithOperation("find cargo").
			WithKind(issue.KindToolchain).
			WithIssue(issue.ToolchainMissingId).
			WithSuggestion("Install Rust with rustup (https://rustup.rs)").
			WithSuggestion("Make sure $HOME/.cargo/bin or PATH contains cargo").
			Wrap(err).
			BuildError()
	}
	return nil
}

// Locate implements manifest.Locator with `cargo locate-project`. A
// "could not find" failure is reported as not found; every other failure is
// returned.
func (c *Cargo) Locate(ctx context.Context, dir string) (string, bool, error) {
	var stdout, stderr bytes.Buffer
	args := []string{"locate-project", "--message-format", "json"}
	err := c.run(ctx, dir, args, &stdout, &stderr)
	if err != nil {
		if strings.Contains(stderr.String(), locateNotFoundMarker) {
			c.logger().Debug("no cargo project found", "dir", dir)
			return "", false, nil
		}
		return "", false, issue.NewErrorContext().
			WithOperation("run cargo locate-project").
			WithResource(dir).
			WithKind(issue.KindToolchain).
			WithIssue(issue.LocateProjectFailedId).
			Wrap(withStderr(err, stderr.String())).
			BuildError()
	}

	var out locateOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return "", false, issue.WrapWithContext(fmt.Errorf("decode locate-project output: %w", err),
			issue.KindToolchain, "run cargo locate-project", dir)
	}
	if out.Root == "" {
		return "", false, nil
	}
	return out.Root, true, nil
}

// Build runs `cargo build` streaming its output. It is never retried.
func (c *Cargo) Build(ctx context.Context, opts BuildOptions) error {
	args := BuildArgs(opts)
	c.logger().Debug("running cargo", "args", args, "dir", opts.Dir)

	err := c.run(ctx, opts.Dir, args, c.Stdout, c.Stderr)
	if err == nil {
		return nil
	}

	var missing *exec.Error
	if errors.As(err, &missing) || errors.Is(err, ErrToolchainMissing) {
		return c.EnsureToolchain()
	}

	return issue.NewErrorContext().
		WithOperation("build binary").
		WithResource(opts.ManifestPath).
		WithKind(issue.KindToolchain).
		WithIssue(issue.BuildFailedId).
		WithSuggestion("Read the cargo output above for the compiler diagnostics").
		Wrap(&BuildFailedError{Args: args, ExitCode: exitCodeOf(err), Cause: err}).
		BuildError()
}

func (c *Cargo) run(ctx context.Context, dir string, args []string, stdout, stderr io.Writer) error {
	bin, err := c.LookPath()
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	cmd.Env = EnvToSlice(c.Env)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

func (c *Cargo) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	if runtime.GOOS == platform.Windows {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}

func withStderr(err error, stderr string) error {
	stderr = strings.TrimSpace(stderr)
	if stderr == "" {
		return err
	}
	lines := strings.Split(stderr, "\n")
	return fmt.Errorf("%w: %s", err, lines[len(lines)-1])
}
