// SPDX-License-Identifier: MPL-2.0

package artifact

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"lukechampine.com/blake3"
)

const digestSize = 32

type (
	// Report summarizes an artifact for `build --report`.
	Report struct {
		Handler string       `json:"handler"`
		Runtime string       `json:"runtime"`
		Files   []ReportFile `json:"files"`
	}

	// ReportFile is one artifact file with its BLAKE3 digest.
	ReportFile struct {
		Name   string `json:"name"`
		Source string `json:"source"`
		Size   int64  `json:"size"`
		Mode   string `json:"mode"`
		BLAKE3 string `json:"blake3"`
	}
)

// Digest returns the hex BLAKE3-256 digest of the file at path.
func Digest(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := blake3.New(digestSize, nil)
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// NewReport hashes every artifact file.
func NewReport(a *Artifact) (*Report, error) {
	r := &Report{Handler: a.Handler, Runtime: a.Runtime, Files: make([]ReportFile, 0, len(a.Files))}
	for _, name := range a.Names() {
		ref := a.Files[name]
		sum, size, err := Digest(ref.FsPath)
		if err != nil {
			return nil, err
		}
		r.Files = append(r.Files, ReportFile{
			Name:   name,
			Source: ref.FsPath,
			Size:   size,
			Mode:   ref.Mode.String(),
			BLAKE3: sum,
		})
	}
	return r, nil
}

// WriteReports writes reports keyed by output name as indented JSON.
func WriteReports(w io.Writer, reports map[string]*Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(reports); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}
