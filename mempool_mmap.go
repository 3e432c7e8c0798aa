//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package dio

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// allocate mmaps size bytes (rounded up to the page boundary) and faults that
// memory in. Anonymous mappings start on a page boundary, which is always a
// multiple of Align on these platforms.
func allocate(size int) []byte {
	data, err := unix.Mmap(-1, 0, roundToPage(size),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		panic(fmt.Sprintf("dio: failed to allocate %d byte scratch buffer: %v", size, err))
	}

	// PRE-WARM: Force physical RAM commitment.
	pageSize := os.Getpagesize()
	for i := 0; i < len(data); i += pageSize {
		data[i] = 0
	}

	if addrOf(data)&mask != 0 {
		panic(fmt.Sprintf("dio: mmap returned memory not aligned to %d", Align))
	}
	return data[:size]
}

// free unmaps memory obtained from allocate.
func free(b []byte) error {
	return unix.Munmap(b[:cap(b)])
}
