// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// fakeCargoScript mimics the cargo subcommands the builder drives.
// Environment knobs (set in the explicit env map handed to cargo):
//
//	FAKE_CARGO_FAIL      make `build` exit 101
//	FAKE_CARGO_BINS      binaries produced by `build --bins`
//	FAKE_CARGO_METADATA  file printed by `metadata`
//	FAKE_CARGO_SNAPSHOT  file receiving a copy of --manifest-path during `build`
const fakeCargoScript = `#!/bin/sh
log='@LOG@'
printf '%s\037' "$@" >> "$log"
printf '\n' >> "$log"
cmd="$1"
shift
case "$cmd" in
locate-project)
	d="$PWD"
	while :; do
		if [ -f "$d/Cargo.toml" ]; then
			printf '{"root":"%s"}\n' "$d/Cargo.toml"
			exit 0
		fi
		[ "$d" = "/" ] && break
		d=$(dirname "$d")
	done
	echo 'error: could not find ` + "`Cargo.toml`" + ` in the current directory or any parent directory' >&2
	exit 101
	;;
metadata)
	if [ -n "$FAKE_CARGO_METADATA" ]; then
		cat "$FAKE_CARGO_METADATA"
		exit 0
	fi
	echo "error: metadata unavailable" >&2
	exit 101
	;;
build)
	manifest=""
	profile=release
	target=""
	bins=""
	while [ $# -gt 0 ]; do
		case "$1" in
		--manifest-path) manifest="$2"; shift ;;
		--bin) bins="$bins $2"; shift ;;
		--bins) bins="$bins $FAKE_CARGO_BINS" ;;
		--target) target="$2"; shift ;;
		--verbose) profile=debug ;;
		esac
		shift
	done
	if [ -n "$manifest" ] && [ -n "$FAKE_CARGO_SNAPSHOT" ]; then
		cp "$manifest" "$FAKE_CARGO_SNAPSHOT"
	fi
	echo "   Compiling fake v0.1.0" >&2
	if [ -n "$FAKE_CARGO_FAIL" ]; then
		echo 'error[E0425]: cannot find value ` + "`x`" + ` in this scope' >&2
		exit 101
	fi
	if [ -n "$manifest" ]; then root=$(dirname "$manifest"); else root="$PWD"; fi
	out="${CARGO_TARGET_DIR:-$root/target}"
	[ -n "$target" ] && out="$out/$target"
	out="$out/$profile"
	mkdir -p "$out/deps" "$out/.fingerprint" "$out/build" "$out/incremental"
	for b in $bins; do
		printf 'binary %s\n' "$b" > "$out/$b"
		chmod +x "$out/$b"
		printf 'dep\n' > "$out/deps/$b.d"
		printf 'fp\n' > "$out/.fingerprint/$b"
	done
	exit 0
	;;
esac
echo "error: no such command: $cmd" >&2
exit 101
`

// FakeCargo is a shell script standing in for cargo. It records every
// invocation.
type FakeCargo struct {
	// Dir holds the executable; put it on the PATH handed to cargo.
	Dir string
	// Path is the executable itself.
	Path string

	logPath string
}

// NewFakeCargo writes a fake cargo into a temporary directory. Tests using
// it are skipped on Windows.
func NewFakeCargo(t testing.TB) *FakeCargo {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake cargo is a POSIX shell script")
	}

	dir := t.TempDir()
	f := &FakeCargo{
		Dir:     dir,
		Path:    filepath.Join(dir, "cargo"),
		logPath: filepath.Join(dir, "calls.log"),
	}
	script := strings.ReplaceAll(fakeCargoScript, "@LOG@", f.logPath)
	if err := os.WriteFile(f.Path, []byte(script), 0o755); err != nil {
		t.Fatalf("failed to write fake cargo: %v", err)
	}
	return f
}

// Calls returns the argument lists of every invocation so far.
func (f *FakeCargo) Calls(t testing.TB) [][]string {
	t.Helper()
	data, err := os.ReadFile(f.logPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("failed to read fake cargo log: %v", err)
	}

	var calls [][]string
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		if line == "" {
			continue
		}
		calls = append(calls, strings.Split(strings.TrimSuffix(line, "\x1f"), "\x1f"))
	}
	return calls
}

// Env returns a minimal explicit environment with the fake on PATH and HOME
// pointing at a temporary directory.
func (f *FakeCargo) Env(t testing.TB) map[string]string {
	t.Helper()
	return map[string]string{
		"HOME": t.TempDir(),
		"PATH": f.Dir + string(os.PathListSeparator) + "/usr/bin:/bin",
	}
}
