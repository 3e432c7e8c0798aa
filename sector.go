package dio

import (
	"errors"
	"sync"
	"sync/atomic"
)

var errSectorSizeUnavailable = errors.New("sector size is not reported for this filesystem")

// processSector is resolved once, from the first file opened with direct I/O.
var processSector struct {
	once sync.Once
	size atomic.Int64
}

// SectorSize returns the direct I/O granularity of the filesystem holding
// path: the logical sector size on Linux (statx STATX_DIOALIGN), the volume's
// bytes-per-sector on Windows, the fundamental block size on darwin.
func SectorSize(path string) (int, error) {
	return probeSectorSize(path)
}

// ProcessSectorSize returns the sector size observed by the first direct I/O
// open in this process, or 0 if none happened yet or it could not be read.
func ProcessSectorSize() int {
	return int(processSector.size.Load())
}

// checkSectorSize records the process sector size on the first direct open
// and warns when Align does not cover it. Misconfiguration shows up as EINVAL
// from the kernel; the warning points at the cause.
func checkSectorSize(path string) {
	processSector.once.Do(func() {
		size, err := probeSectorSize(path)
		if err != nil {
			log.Debug("sector size unavailable", "path", path, "error", err)
			return
		}
		processSector.size.Store(int64(size))
		if size > Align || Align%size != 0 {
			log.Warn("alignment unit is not a multiple of the sector size",
				"path", path, "align", Align, "sector", size)
		}
	})
}
