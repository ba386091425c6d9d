// SPDX-License-Identifier: MPL-2.0

package cache

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
)

const (
	// FormatZstd is tar compressed with zstd.
	FormatZstd Format = "zstd"
	// FormatGzip is tar compressed with parallel gzip.
	FormatGzip Format = "gzip"
)

// ErrUnsafePath is returned by Restore for entries escaping the destination.
var ErrUnsafePath = errors.New("archive entry escapes destination")

// Format is a cache archive compression format.
type Format string

// ParseFormat accepts "zstd", "gzip" and their file extensions.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "", "zstd", "zst", "tar.zst":
		return FormatZstd, nil
	case "gzip", "gz", "tar.gz", "tgz":
		return FormatGzip, nil
	default:
		return "", fmt.Errorf("unknown cache format %q", s)
	}
}

// Ext returns the archive file extension.
func (f Format) Ext() string {
	if f == FormatGzip {
		return ".tar.gz"
	}
	return ".tar.zst"
}

// Archive writes the snapshot entries to w in lexical order.
func Archive(w io.Writer, snap *Snapshot, format Format) (err error) {
	cw, err := compressor(w, format)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := cw.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	tw := tar.NewWriter(cw)
	for _, rel := range slices.Sorted(maps.Keys(snap.Entries)) {
		if err := addTarEntry(tw, rel, snap.Entries[rel].FsPath); err != nil {
			return err
		}
	}
	return tw.Close()
}

func addTarEntry(tw *tar.Writer, rel, src string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = rel
	hdr.Uid, hdr.Gid = 0, 0
	hdr.Uname, hdr.Gname = "", ""

	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("add %s: %w", rel, err)
	}
	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	return nil
}

// Restore extracts an archive into dest. Every target directory named by
// the archive is removed before its first entry is written so stale files
// never mix with restored ones. It returns the restored relative paths.
func Restore(r io.Reader, dest string, format Format) ([]string, error) {
	dr, err := decompressor(r, format)
	if err != nil {
		return nil, err
	}
	defer dr.Close()

	cleared := make(map[string]bool)
	var restored []string

	tr := tar.NewReader(dr)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return restored, fmt.Errorf("read cache archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		rel := path.Clean(hdr.Name)
		if !fs.ValidPath(rel) {
			return restored, fmt.Errorf("%w: %s", ErrUnsafePath, hdr.Name)
		}
		if root, ok := targetRoot(rel); ok && !cleared[root] {
			if err := os.RemoveAll(filepath.Join(dest, filepath.FromSlash(root))); err != nil {
				return restored, err
			}
			cleared[root] = true
		}

		out := filepath.Join(dest, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return restored, err
		}
		if err := writeEntry(out, tr, fs.FileMode(hdr.Mode).Perm(), hdr.ModTime); err != nil {
			return restored, err
		}
		restored = append(restored, rel)
	}
	return restored, nil
}

func writeEntry(dst string, r io.Reader, perm fs.FileMode, mtime time.Time) error {
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", dst, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	// cargo fingerprints compare mtimes.
	return os.Chtimes(dst, mtime, mtime)
}

// targetRoot returns the path up to and including the first "target"
// segment of rel.
func targetRoot(rel string) (string, bool) {
	parts := strings.Split(rel, "/")
	for i, p := range parts[:len(parts)-1] {
		if p == targetDirName {
			return strings.Join(parts[:i+1], "/"), true
		}
	}
	return "", false
}

func compressor(w io.Writer, format Format) (io.WriteCloser, error) {
	switch format {
	case FormatZstd, "":
		return zstd.NewWriter(w)
	case FormatGzip:
		return pgzip.NewWriter(w), nil
	default:
		return nil, fmt.Errorf("unknown cache format %q", format)
	}
}

func decompressor(r io.Reader, format Format) (io.ReadCloser, error) {
	switch format {
	case FormatZstd, "":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	case FormatGzip:
		return pgzip.NewReader(r)
	default:
		return nil, fmt.Errorf("unknown cache format %q", format)
	}
}
