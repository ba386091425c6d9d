// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package watch

import (
	"errors"
	"syscall"
)

// isWatchLimitError reports inotify or descriptor exhaustion
// (fs.inotify.max_user_watches, EMFILE, ENFILE).
func isWatchLimitError(err error) bool {
	return errors.Is(err, syscall.ENOSPC) ||
		errors.Is(err, syscall.EMFILE) ||
		errors.Is(err, syscall.ENFILE)
}
