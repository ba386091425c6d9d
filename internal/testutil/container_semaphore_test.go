// SPDX-License-Identifier: MPL-2.0

package testutil

import "testing"

func TestContainerParallelism(t *testing.T) {
	t.Setenv("RUSTFN_TEST_CONTAINER_PARALLEL", "5")
	if got := containerParallelism(); got != 5 {
		t.Errorf("containerParallelism() = %d, want 5", got)
	}

	t.Setenv("RUSTFN_TEST_CONTAINER_PARALLEL", "zero")
	if got := containerParallelism(); got < 1 || got > 2 {
		t.Errorf("containerParallelism() = %d, want the 1..2 fallback", got)
	}
}
