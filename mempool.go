package dio

import (
	"fmt"
	"os"
	"runtime"
	"sync"
)

// alignedBlock returns a zeroed []byte of exactly size bytes whose first byte
// sits on an Align boundary. It is used for one-off temporary buffers; the
// memory is reclaimed by the GC once the call that needed it returns.
//
// Failing to align is fatal: a misaligned buffer must never reach an O_DIRECT
// syscall.
func alignedBlock(size int) []byte {
	if size < 0 {
		panic(fmt.Sprintf("dio: invalid block size %d", size))
	}
	block := newBlock(size)
	if addrOf(block)&mask != 0 {
		panic(fmt.Sprintf("dio: failed to align %d byte block to %d", size, Align))
	}
	return block
}

// AlignedBlock returns a zeroed buffer of size bytes aligned to Align.
// Buffers from AlignedBlock with a length that is a multiple of Align take
// the zero-copy path on direct files.
func AlignedBlock(size int) []byte {
	return alignedBlock(size)
}

func roundToPage(size int) int {
	pageSize := os.Getpagesize()
	return (size + pageSize - 1) &^ (pageSize - 1)
}

// scratchBuffer is the per-file aligned region that small misaligned requests
// are staged through. mu is held for the whole native call, not only for the
// copy, so an in-flight syscall never sees its region overwritten.
type scratchBuffer struct {
	mu      sync.Mutex
	raw     []byte // len(raw) == capacity; aligned for its whole lifetime
	cleanup runtime.Cleanup
}

// newScratchBuffer allocates a scratch buffer of exactly capacity bytes.
// capacity must be positive.
func newScratchBuffer(capacity int) *scratchBuffer {
	raw := allocate(capacity)
	s := &scratchBuffer{raw: raw}
	// Safety net for files that are dropped without Close.
	s.cleanup = runtime.AddCleanup(s, func(b []byte) { _ = free(b) }, raw)
	return s
}

// Len returns the capacity C. It never changes while the buffer is alive.
func (s *scratchBuffer) Len() int {
	return len(s.raw)
}

// with runs fn over the first n bytes of the scratch buffer while holding the
// exclusive lock. n must not exceed Len().
func (s *scratchBuffer) with(n int, fn func(buf []byte) (int, error)) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.raw == nil {
		return 0, os.ErrClosed
	}
	return fn(s.raw[:n])
}

// release returns the memory to the OS. It waits for any in-flight user.
func (s *scratchBuffer) release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.raw == nil {
		return nil
	}
	s.cleanup.Stop()
	err := free(s.raw)
	s.raw = nil
	return err
}
