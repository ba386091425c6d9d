// SPDX-License-Identifier: MPL-2.0

package artifact

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"

	"github.com/rustfn/rustfn/internal/testutil"
)

func testArtifact(t *testing.T) *Artifact {
	t.Helper()

	dir := t.TempDir()
	bin := filepath.Join(dir, "hello")
	page := filepath.Join(dir, "index.html")
	testutil.MustWriteFile(t, bin, []byte("\x7fELF fake"), 0o755)
	testutil.MustWriteFile(t, page, []byte("<h1>hi</h1>"), 0o644)

	return &Artifact{
		Files: map[string]FileRef{
			"bootstrap":         {FsPath: bin, Mode: 0o755},
			"static/index.html": {FsPath: page, Mode: 0o644},
		},
		Handler: "bootstrap",
		Runtime: RuntimeProvided,
	}
}

func TestWriteZip(t *testing.T) {
	t.Parallel()

	a := testArtifact(t)
	var buf bytes.Buffer
	if err := WriteZip(&buf, a); err != nil {
		t.Fatalf("WriteZip() error: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("invalid zip: %v", err)
	}
	if len(zr.File) != 2 || zr.File[0].Name != "bootstrap" || zr.File[1].Name != "static/index.html" {
		t.Fatalf("entries = %v", zr.File)
	}
	if mode := zr.File[0].Mode().Perm(); mode != 0o755 {
		t.Errorf("bootstrap mode = %v, want 0755", mode)
	}

	rc, err := zr.File[1].Open()
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "<h1>hi</h1>" {
		t.Errorf("content = %q", data)
	}
}

func TestWriteZip_Reproducible(t *testing.T) {
	t.Parallel()

	a := testArtifact(t)
	var first, second bytes.Buffer
	if err := WriteZip(&first, a); err != nil {
		t.Fatal(err)
	}
	if err := WriteZip(&second, a); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Error("identical artifacts produced different archives")
	}
}

func TestNewReport(t *testing.T) {
	t.Parallel()

	a := testArtifact(t)
	r, err := NewReport(a)
	if err != nil {
		t.Fatalf("NewReport() error: %v", err)
	}
	if len(r.Files) != 2 || r.Files[0].Name != "bootstrap" {
		t.Fatalf("Files = %+v", r.Files)
	}
	if len(r.Files[0].BLAKE3) != 64 || r.Files[0].Size != int64(len("\x7fELF fake")) {
		t.Errorf("bootstrap entry = %+v", r.Files[0])
	}
	if r.Files[0].BLAKE3 == r.Files[1].BLAKE3 {
		t.Error("distinct files share a digest")
	}

	var buf bytes.Buffer
	if err := WriteReports(&buf, map[string]*Report{"api/hello": r}); err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"blake3"`)) {
		t.Errorf("report JSON = %s", buf.String())
	}
}
