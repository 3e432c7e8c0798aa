package dio

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

// memInode is the shared state behind memFile handles: a dup'd handle sees the
// same bytes and the same position.
type memInode struct {
	mu   sync.Mutex
	data []byte
	pos  int64
}

// memFile is an in-memory nativeFile. With strict set it rejects, like
// O_DIRECT, any buffer whose address or length is not a multiple of Align.
type memFile struct {
	inode  *memInode
	name   string
	strict bool
	closed atomic.Bool

	calls atomic.Int64 // native transfers issued
	// onCall, if set, sees every buffer handed to a native transfer.
	onCall func(buf []byte)
}

func newMemFile(strict bool) *memFile {
	return &memFile{inode: &memInode{}, name: "mem", strict: strict}
}

// newDirectMemFile wraps a strict memFile in a direct I/O File.
func newDirectMemFile(t testing.TB, scratchSize int) (*File, *memFile) {
	t.Helper()
	m := newMemFile(true)
	f := newFile(m, true, scratchSize)
	t.Cleanup(func() { _ = f.Close() })
	return f, m
}

func (m *memFile) check(bufs ...[]byte) error {
	if m.closed.Load() {
		return os.ErrClosed
	}
	m.calls.Add(1)
	for _, b := range bufs {
		if m.onCall != nil {
			m.onCall(b)
		}
		if m.strict && (!isAligned(b) || !isAlignedLen(len(b))) {
			return syscall.EINVAL
		}
	}
	return nil
}

// contents returns a copy of the file bytes.
func (m *memFile) contents() []byte {
	m.inode.mu.Lock()
	defer m.inode.mu.Unlock()
	return append([]byte(nil), m.inode.data...)
}

// set replaces the file bytes without going through a native call.
func (m *memFile) set(data []byte) {
	m.inode.mu.Lock()
	defer m.inode.mu.Unlock()
	m.inode.data = append([]byte(nil), data...)
}

func (m *memFile) position() int64 {
	m.inode.mu.Lock()
	defer m.inode.mu.Unlock()
	return m.inode.pos
}

func (in *memInode) readAt(p []byte, off int64) int {
	if off >= int64(len(in.data)) {
		return 0
	}
	return copy(p, in.data[off:])
}

func (in *memInode) writeAt(p []byte, off int64) int {
	if end := off + int64(len(p)); end > int64(len(in.data)) {
		in.data = append(in.data, make([]byte, end-int64(len(in.data)))...)
	}
	return copy(in.data[off:], p)
}

func (m *memFile) Read(p []byte) (int, error) {
	if err := m.check(p); err != nil {
		return 0, err
	}
	m.inode.mu.Lock()
	defer m.inode.mu.Unlock()
	n := m.inode.readAt(p, m.inode.pos)
	m.inode.pos += int64(n)
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (m *memFile) ReadAt(p []byte, off int64) (int, error) {
	if err := m.check(p); err != nil {
		return 0, err
	}
	m.inode.mu.Lock()
	defer m.inode.mu.Unlock()
	n := m.inode.readAt(p, off)
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *memFile) Write(p []byte) (int, error) {
	if err := m.check(p); err != nil {
		return 0, err
	}
	m.inode.mu.Lock()
	defer m.inode.mu.Unlock()
	n := m.inode.writeAt(p, m.inode.pos)
	m.inode.pos += int64(n)
	return n, nil
}

func (m *memFile) WriteAt(p []byte, off int64) (int, error) {
	if err := m.check(p); err != nil {
		return 0, err
	}
	m.inode.mu.Lock()
	defer m.inode.mu.Unlock()
	return m.inode.writeAt(p, off), nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	m.inode.mu.Lock()
	defer m.inode.mu.Unlock()
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = m.inode.pos + offset
	case io.SeekEnd:
		pos = int64(len(m.inode.data)) + offset
	}
	if pos < 0 {
		return 0, syscall.EINVAL
	}
	m.inode.pos = pos
	return pos, nil
}

func (m *memFile) readv(iovs [][]byte) (int, error) {
	if err := m.check(iovs...); err != nil {
		return 0, err
	}
	m.inode.mu.Lock()
	defer m.inode.mu.Unlock()
	n := m.inode.scatter(iovs, m.inode.pos)
	m.inode.pos += int64(n)
	return n, nil
}

func (m *memFile) preadv(iovs [][]byte, off int64) (int, error) {
	if err := m.check(iovs...); err != nil {
		return 0, err
	}
	m.inode.mu.Lock()
	defer m.inode.mu.Unlock()
	return m.inode.scatter(iovs, off), nil
}

func (m *memFile) writev(iovs [][]byte) (int, error) {
	if err := m.check(iovs...); err != nil {
		return 0, err
	}
	m.inode.mu.Lock()
	defer m.inode.mu.Unlock()
	n := m.inode.gather(iovs, m.inode.pos)
	m.inode.pos += int64(n)
	return n, nil
}

func (m *memFile) pwritev(iovs [][]byte, off int64) (int, error) {
	if err := m.check(iovs...); err != nil {
		return 0, err
	}
	m.inode.mu.Lock()
	defer m.inode.mu.Unlock()
	return m.inode.gather(iovs, off), nil
}

func (in *memInode) scatter(iovs [][]byte, off int64) int {
	total := 0
	for _, iov := range iovs {
		n := in.readAt(iov, off+int64(total))
		total += n
		if n < len(iov) {
			break
		}
	}
	return total
}

func (in *memInode) gather(iovs [][]byte, off int64) int {
	total := 0
	for _, iov := range iovs {
		total += in.writeAt(iov, off+int64(total))
	}
	return total
}

func (m *memFile) clone() (nativeFile, error) {
	if m.closed.Load() {
		return nil, os.ErrClosed
	}
	return &memFile{inode: m.inode, name: m.name, strict: m.strict, onCall: m.onCall}, nil
}

func (m *memFile) Close() error {
	if m.closed.Swap(true) {
		return os.ErrClosed
	}
	return nil
}

func (m *memFile) Name() string { return m.name }
func (m *memFile) Fd() uintptr  { return ^uintptr(0) }
func (m *memFile) Sync() error  { return nil }

func (m *memFile) Stat() (os.FileInfo, error) {
	m.inode.mu.Lock()
	defer m.inode.mu.Unlock()
	return memInfo{name: m.name, size: int64(len(m.inode.data))}, nil
}

func (m *memFile) Truncate(size int64) error {
	if size < 0 {
		return syscall.EINVAL
	}
	m.inode.mu.Lock()
	defer m.inode.mu.Unlock()
	if size <= int64(len(m.inode.data)) {
		m.inode.data = m.inode.data[:size]
		return nil
	}
	m.inode.data = append(m.inode.data, make([]byte, size-int64(len(m.inode.data)))...)
	return nil
}

func (m *memFile) Chmod(os.FileMode) error {
	return errors.ErrUnsupported
}

type memInfo struct {
	name string
	size int64
}

func (i memInfo) Name() string       { return i.name }
func (i memInfo) Size() int64        { return i.size }
func (i memInfo) Mode() fs.FileMode  { return 0o644 }
func (i memInfo) ModTime() time.Time { return time.Time{} }
func (i memInfo) IsDir() bool        { return false }
func (i memInfo) Sys() any           { return nil }

// misaligned returns a zeroed n byte slice whose address is one byte past an
// Align boundary.
func misaligned(n int) []byte {
	return alignedBlock(n + 1)[1 : n+1]
}

// pattern returns n bytes that differ at every position within a 251 byte cycle,
// shifted by seed.
func pattern(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i%251) + seed
	}
	return b
}
