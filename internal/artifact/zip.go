// SPDX-License-Identifier: MPL-2.0

package artifact

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/klauspost/compress/zip"
)

// zipEpoch keeps archives reproducible; it is the earliest DOS timestamp.
var zipEpoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// Names returns the artifact file names in lexical order.
func (a *Artifact) Names() []string {
	return slices.Sorted(maps.Keys(a.Files))
}

// WriteZip writes the artifact as a zip archive. Entries are sorted and
// carry fixed timestamps so identical inputs produce identical archives.
func WriteZip(w io.Writer, a *Artifact) error {
	zw := zip.NewWriter(w)
	for _, name := range a.Names() {
		ref := a.Files[name]
		if err := addZipEntry(zw, name, ref); err != nil {
			_ = zw.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize zip: %w", err)
	}
	return nil
}

// WriteZipFile writes the artifact zip to path.
func WriteZipFile(path string, a *Artifact) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return WriteZip(f, a)
}

func addZipEntry(zw *zip.Writer, name string, ref FileRef) error {
	src, err := os.Open(ref.FsPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", ref.FsPath, err)
	}
	defer src.Close()

	hdr := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: zipEpoch,
	}
	hdr.SetMode(ref.Mode)

	dst, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
