//go:build !linux && !darwin && !freebsd && !netbsd && !dragonfly && !windows

package dio

import (
	"os"
	"sync"
)

var warnNoDirectIO sync.Once

// openDirect falls back to buffered I/O. The alignment adapter still runs, so
// callers observe the same contract as on platforms with direct I/O.
func openDirect(path string, flag int, perm os.FileMode) (*os.File, error) {
	warnNoDirectIO.Do(func() {
		log.Warn("direct I/O is not supported on this platform, using buffered I/O")
	})
	return os.OpenFile(path, flag, perm)
}
