// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLease_SecondAcquireFails(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	first, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if !first.Active() {
		t.Error("lease not active")
	}

	if _, err := Acquire(path); !errors.Is(err, ErrLeaseActive) {
		t.Errorf("second Acquire() error = %v, want ErrLeaseActive", err)
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release() error: %v", err)
	}
	if err := first.Release(); err != nil {
		t.Errorf("second Release() error: %v", err)
	}

	again, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire() after release error: %v", err)
	}
	if err := again.Release(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil || string(data) != "x" {
		t.Errorf("manifest content = %q, %v", data, err)
	}
}

func TestLease_StaleBackup(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path+BackupSuffix, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Acquire(path); !errors.Is(err, ErrStaleBackup) {
		t.Errorf("Acquire() error = %v, want ErrStaleBackup", err)
	}
	if data, _ := os.ReadFile(path); string(data) != "x" {
		t.Error("manifest touched despite stale backup")
	}
}
