// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// BackupSuffix is appended to the manifest path while a lease holds it.
const BackupSuffix = ".backup"

var (
	// ErrLeaseActive is returned when a manifest is already leased by this process.
	ErrLeaseActive = errors.New("manifest already leased")

	// ErrStaleBackup is returned when a backup from an earlier run is still on disk.
	ErrStaleBackup = errors.New("stale manifest backup")

	activeLeases = struct {
		sync.Mutex
		paths map[string]struct{}
	}{paths: map[string]struct{}{}}
)

// Lease moves a manifest aside for the duration of an ephemeral edit. At most
// one lease per manifest is active in a process.
type Lease struct {
	// ManifestPath is the leased manifest.
	ManifestPath string
	// BackupPath holds the original manifest while the lease is active.
	BackupPath string

	hadOriginal bool
	active      bool
}

// Acquire leases manifestPath. An existing manifest is renamed to
// manifestPath+BackupSuffix; a missing one is recorded so Release removes
// whatever was written in its place.
func Acquire(manifestPath string) (*Lease, error) {
	abs, err := filepath.Abs(manifestPath)
	if err != nil {
		return nil, err
	}

	activeLeases.Lock()
	defer activeLeases.Unlock()

	if _, busy := activeLeases.paths[abs]; busy {
		return nil, fmt.Errorf("%w: %s", ErrLeaseActive, abs)
	}

	l := &Lease{ManifestPath: abs, BackupPath: abs + BackupSuffix}

	if _, err := os.Lstat(l.BackupPath); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrStaleBackup, l.BackupPath)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	switch err := os.Rename(l.ManifestPath, l.BackupPath); {
	case err == nil:
		l.hadOriginal = true
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("back up manifest: %w", err)
	}

	l.active = true
	activeLeases.paths[abs] = struct{}{}
	return l, nil
}

// Active reports whether the lease still holds the manifest.
func (l *Lease) Active() bool {
	activeLeases.Lock()
	defer activeLeases.Unlock()
	return l.active
}

// Release restores the original manifest, or removes the written one when
// there was no original. It is safe to call more than once.
func (l *Lease) Release() error {
	activeLeases.Lock()
	defer activeLeases.Unlock()

	if !l.active {
		return nil
	}

	var err error
	if l.hadOriginal {
		err = os.Rename(l.BackupPath, l.ManifestPath)
	} else if rmErr := os.Remove(l.ManifestPath); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
		err = rmErr
	}
	if err != nil {
		return fmt.Errorf("restore manifest %s: %w", l.ManifestPath, err)
	}

	l.active = false
	delete(activeLeases.paths, l.ManifestPath)
	return nil
}
