// SPDX-License-Identifier: MPL-2.0

package manifest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcexec "github.com/testcontainers/testcontainers-go/exec"

	"github.com/rustfn/rustfn/internal/manifest"
	"github.com/rustfn/rustfn/internal/testutil"
	"github.com/rustfn/rustfn/internal/toolchain"
)

const rustImage = "docker.io/library/rust:1-slim"

// checkTestcontainersAvailable reports whether a container provider can be
// reached. Provider detection panics on some hosts without a daemon.
func checkTestcontainersAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		return false
	}
	defer provider.Close()
	return true
}

// TestRender_AcceptedByCargo feeds a rendered manifest to a real cargo and
// checks the synthesized binary target shows up in its metadata.
func TestRender_AcceptedByCargo(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if !checkTestcontainersAvailable() {
		t.Skip("no container engine available")
	}

	sem := testutil.ContainerSemaphore()
	sem <- struct{}{}
	defer func() { <-sem }()

	dir := t.TempDir()
	entry := filepath.Join(dir, "api", "post", "[id].rs")
	testutil.MustWriteFile(t, entry, []byte("fn main() {}\n"), 0o644)

	ws := manifest.Synthesize(dir, "post-fn")
	name, _ := manifest.ResolveBinaryName(ws.Targets, ws.Root, entry)
	data, err := ws.Render(manifest.Target{Name: name, Path: manifest.RelativeSource(ws.Root, entry)})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	rendered := filepath.Join(dir, manifest.FileName)
	testutil.MustWriteFile(t, rendered, data, 0o644)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:      rustImage,
			Entrypoint: []string{"sleep", "infinity"},
			Files: []testcontainers.ContainerFile{
				{HostFilePath: rendered, ContainerFilePath: "/src/Cargo.toml", FileMode: 0o644},
				{HostFilePath: entry, ContainerFilePath: "/src/api/post/[id].rs", FileMode: 0o644},
			},
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("failed to start %s: %v", rustImage, err)
	}

	code, out, err := ctr.Exec(ctx, []string{
		"sh", "-c", "cd /src && cargo metadata --format-version 1 --no-deps 2>/dev/null",
	}, tcexec.Multiplexed())
	if err != nil {
		t.Fatalf("exec cargo metadata: %v", err)
	}
	var stdout bytes.Buffer
	if _, err := io.Copy(&stdout, out); err != nil {
		t.Fatal(err)
	}
	if code != 0 {
		t.Fatalf("cargo metadata exited %d:\n%s", code, stdout.String())
	}

	var md toolchain.Metadata
	if err := json.Unmarshal(stdout.Bytes(), &md); err != nil {
		t.Fatalf("decode metadata: %v\n%s", err, stdout.String())
	}
	var names []string
	for _, bin := range md.Bins() {
		names = append(names, bin.Name)
	}
	if !slices.Contains(names, "_id_") {
		t.Errorf("cargo bins = %v, want _id_", names)
	}
}
