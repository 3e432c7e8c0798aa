package dio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// nativeFile is the raw OS handle a File drives. *os.File provides most of
// it; the vectored calls and clone are implemented per platform by osFile.
type nativeFile interface {
	io.Reader
	io.Writer
	io.ReaderAt
	io.WriterAt
	io.Seeker
	io.Closer
	Name() string
	Fd() uintptr
	Stat() (os.FileInfo, error)
	Sync() error
	Truncate(size int64) error
	Chmod(mode os.FileMode) error

	// Vectored calls return the raw byte count of one native call; a zero
	// count is not translated to io.EOF here.
	readv(iovs [][]byte) (int, error)
	preadv(iovs [][]byte, off int64) (int, error)
	writev(iovs [][]byte) (int, error)
	pwritev(iovs [][]byte, off int64) (int, error)

	// clone duplicates the OS handle; both share the open file description.
	clone() (nativeFile, error)
}

// osFile is the nativeFile backed by a real descriptor.
type osFile struct {
	*os.File
	direct bool
}

// File is an open file whose reads and writes behave the same whether or not
// it was opened for direct I/O. With direct I/O enabled, buffers that do not
// meet the alignment contract are staged through the file's scratch buffer or
// a temporary aligned buffer; aligned buffers go straight to the kernel.
//
// A File is safe for concurrent use. Only operations staged through the
// scratch buffer serialize against each other.
type File struct {
	native      nativeFile
	direct      bool
	scratchSize int
	scratch     *scratchBuffer // nil unless direct I/O with a non-zero scratch size
}

var (
	_ io.ReadWriteSeeker = (*File)(nil)
	_ io.ReaderAt        = (*File)(nil)
	_ io.WriterAt        = (*File)(nil)
	_ io.Closer          = (*File)(nil)
)

// Open opens the named file for reading.
func Open(path string) (*File, error) {
	return OpenFile(path, WithRead(true))
}

// Create creates or truncates the named file and opens it for writing.
func Create(path string) (*File, error) {
	return OpenFile(path, WithWrite(true), WithCreate(true), WithTruncate(true))
}

// CreateNew creates the named file for writing, failing if it already exists.
func CreateNew(path string) (*File, error) {
	return OpenFile(path, WithWrite(true), WithCreateNew(true))
}

// OpenFile opens path with the given options.
func OpenFile(path string, opts ...Option) (*File, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	flag, err := cfg.flags()
	if err != nil {
		return nil, err
	}

	var f *os.File
	if cfg.DirectIO {
		f, err = openDirect(path, flag, cfg.Perm)
	} else {
		f, err = os.OpenFile(path, flag, cfg.Perm)
	}
	if err != nil {
		return nil, err
	}

	if cfg.DirectIO {
		checkSectorSize(path)
		log.Debug("opened file with direct I/O", "path", path, "align", Align, "scratch", cfg.ScratchSize)
	}
	return newFile(&osFile{File: f, direct: cfg.DirectIO}, cfg.DirectIO, cfg.ScratchSize), nil
}

func newFile(native nativeFile, direct bool, scratchSize int) *File {
	f := &File{native: native, direct: direct}
	if direct && scratchSize > 0 {
		f.scratchSize = scratchSize
		f.scratch = newScratchBuffer(scratchSize)
	}
	return f
}

// Read reads up to len(p) bytes from the current position.
//
// On a direct file a read whose length is not a multiple of Align leaves the
// position unaligned; the next stream read then fails with EINVAL unless the
// caller seeks to an aligned offset. ReadAt leaves the position alone.
func (f *File) Read(p []byte) (int, error) {
	if !f.direct {
		return f.native.Read(p)
	}
	n, extra, err := readThrough(f.scratch, p, f.native.Read)
	if extra > 0 {
		err = f.unread(extra, err)
	}
	return n, err
}

// ReadAt reads len(p) bytes at off without moving the current position.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	if !f.direct {
		return f.native.ReadAt(p, off)
	}
	n, _, err := readThrough(f.scratch, p, func(buf []byte) (int, error) {
		return f.native.ReadAt(buf, off)
	})
	if err == nil && n < len(p) {
		err = io.EOF
	}
	return n, err
}

// Write writes p at the current position. With direct I/O, len(p) must be a
// multiple of Align.
func (f *File) Write(p []byte) (int, error) {
	if !f.direct {
		return f.native.Write(p)
	}
	return writeThrough(f.scratch, p, f.native.Write)
}

// WriteAt writes p at off without moving the current position. With direct
// I/O, len(p) must be a multiple of Align.
func (f *File) WriteAt(p []byte, off int64) (int, error) {
	if !f.direct {
		return f.native.WriteAt(p, off)
	}
	return writeThrough(f.scratch, p, func(buf []byte) (int, error) {
		return f.native.WriteAt(buf, off)
	})
}

// WriteAllAt writes all of p at off, retrying interrupted and short writes.
func (f *File) WriteAllAt(p []byte, off int64) error {
	return writeAllAt(p, off, f.WriteAt)
}

// ReadVectored fills bufs in order from the current position using a single
// scatter read.
func (f *File) ReadVectored(bufs [][]byte) (int, error) {
	if !f.direct {
		return readVectoredRaw(bufs, f.native.readv)
	}
	n, extra, err := readVectored(bufs, f.native.readv)
	if extra > 0 {
		err = f.unread(extra, err)
	}
	return n, err
}

// ReadVectoredAt fills bufs in order from off using a single scatter read.
func (f *File) ReadVectoredAt(bufs [][]byte, off int64) (int, error) {
	native := func(iovs [][]byte) (int, error) {
		return f.native.preadv(iovs, off)
	}
	if !f.direct {
		return readVectoredRaw(bufs, native)
	}
	n, _, err := readVectored(bufs, native)
	return n, err
}

// WriteVectored writes bufs in order at the current position using a single
// gather write. With direct I/O, every len(bufs[i]) must be a multiple of Align.
func (f *File) WriteVectored(bufs [][]byte) (int, error) {
	if !f.direct {
		return f.native.writev(bufs)
	}
	return writeVectored(bufs, f.native.writev)
}

// WriteVectoredAt writes bufs in order at off using a single gather write.
func (f *File) WriteVectoredAt(bufs [][]byte, off int64) (int, error) {
	native := func(iovs [][]byte) (int, error) {
		return f.native.pwritev(iovs, off)
	}
	if !f.direct {
		return native(bufs)
	}
	return writeVectored(bufs, native)
}

// unread moves the stream position back over bytes a padded read consumed
// beyond what the caller asked for.
func (f *File) unread(extra int, err error) error {
	if _, serr := f.native.Seek(-int64(extra), io.SeekCurrent); serr != nil && err == nil {
		return fmt.Errorf("failed to rewind padded read: %w", serr)
	}
	return err
}

// Seek sets the offset for the next Read or Write.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	return f.native.Seek(offset, whence)
}

// Sync commits data and metadata to stable storage.
func (f *File) Sync() error {
	return f.native.Sync()
}

// SyncData commits file data to stable storage, skipping metadata where the
// platform allows it.
func (f *File) SyncData() error {
	return fdatasync(f.native)
}

// SetLen truncates or extends the file to size bytes.
func (f *File) SetLen(size int64) error {
	return f.native.Truncate(size)
}

// Stat returns the file's metadata.
func (f *File) Stat() (os.FileInfo, error) {
	return f.native.Stat()
}

// SetPermissions changes the file mode.
func (f *File) SetPermissions(mode os.FileMode) error {
	return f.native.Chmod(mode)
}

// SetTimes changes the access and modification times. A zero time.Time
// leaves the corresponding timestamp unchanged.
func (f *File) SetTimes(atime, mtime time.Time) error {
	return os.Chtimes(f.native.Name(), atime, mtime)
}

// SetModified changes the modification time.
func (f *File) SetModified(mtime time.Time) error {
	return f.SetTimes(time.Time{}, mtime)
}

// Allocate reserves disk space for the first size bytes of the file.
func (f *File) Allocate(size int64) error {
	return fallocate(f.native, size)
}

// PunchHole deallocates the whole Align sized blocks inside [offset, offset+length).
// Partial blocks at either end are left untouched.
func (f *File) PunchHole(offset, length int64) error {
	return punchHole(f.native, offset, length)
}

// Lock takes an exclusive advisory lock on the whole file, blocking until it
// is available.
func (f *File) Lock() error {
	return lockFile(f.native, true, true)
}

// LockShared takes a shared advisory lock, blocking until it is available.
func (f *File) LockShared() error {
	return lockFile(f.native, false, true)
}

// TryLock takes an exclusive lock or returns ErrWouldBlock.
func (f *File) TryLock() error {
	return lockFile(f.native, true, false)
}

// TryLockShared takes a shared lock or returns ErrWouldBlock.
func (f *File) TryLockShared() error {
	return lockFile(f.native, false, false)
}

// Unlock releases a lock taken by any of the Lock methods.
func (f *File) Unlock() error {
	return unlockFile(f.native)
}

// TryClone returns a new File sharing the underlying open file (and its
// position) with its own scratch buffer of the same capacity. Clones never
// wait on each other's scratch buffer.
func (f *File) TryClone() (*File, error) {
	native, err := f.native.clone()
	if err != nil {
		return nil, err
	}
	if f.direct {
		log.Debug("cloned direct I/O file", "path", f.native.Name(), "scratch", f.scratchSize)
	}
	return newFile(native, f.direct, f.scratchSize), nil
}

// Close closes the file and releases the scratch buffer.
func (f *File) Close() error {
	err := f.native.Close()
	if f.scratch != nil {
		if rerr := f.scratch.release(); rerr != nil {
			log.Warn("failed to release scratch buffer", "path", f.native.Name(), "error", rerr)
			err = errors.Join(err, rerr)
		}
	}
	return err
}

// Fd returns the OS descriptor (or Windows handle).
func (f *File) Fd() uintptr {
	return f.native.Fd()
}

// Name returns the name the file was opened with.
func (f *File) Name() string {
	return f.native.Name()
}

// DirectIO reports whether the file was opened for direct I/O.
func (f *File) DirectIO() bool {
	return f.direct
}

// ScratchSize returns the scratch buffer capacity (0 when there is none).
func (f *File) ScratchSize() int {
	return f.scratchSize
}
