//go:build windows

package dio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modkernel32           = windows.NewLazySystemDLL("kernel32.dll")
	procReadFileScatter   = modkernel32.NewProc("ReadFileScatter")
	procWriteFileGather   = modkernel32.NewProc("WriteFileGather")
	procGetDiskFreeSpaceW = modkernel32.NewProc("GetDiskFreeSpaceW")
)

// openDirect opens path with FILE_FLAG_NO_BUFFERING and FILE_FLAG_WRITE_THROUGH.
// ReadFileScatter and WriteFileGather also require FILE_FLAG_OVERLAPPED;
// os.NewFile accepts overlapped handles and keeps Read/Write synchronous.
func openDirect(path string, flag int, perm os.FileMode) (*os.File, error) {
	pathp, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}

	var access uint32
	switch flag & (os.O_RDONLY | os.O_WRONLY | os.O_RDWR) {
	case os.O_RDONLY:
		access = windows.GENERIC_READ
	case os.O_WRONLY:
		access = windows.GENERIC_WRITE
	case os.O_RDWR:
		access = windows.GENERIC_READ | windows.GENERIC_WRITE
	}
	if flag&os.O_APPEND != 0 {
		access &^= windows.GENERIC_WRITE
		access |= windows.FILE_APPEND_DATA
	}

	var disposition uint32
	switch {
	case flag&(os.O_CREATE|os.O_EXCL) == os.O_CREATE|os.O_EXCL:
		disposition = windows.CREATE_NEW
	case flag&(os.O_CREATE|os.O_TRUNC) == os.O_CREATE|os.O_TRUNC:
		disposition = windows.CREATE_ALWAYS
	case flag&os.O_CREATE != 0:
		disposition = windows.OPEN_ALWAYS
	case flag&os.O_TRUNC != 0:
		disposition = windows.TRUNCATE_EXISTING
	default:
		disposition = windows.OPEN_EXISTING
	}

	attrs := uint32(windows.FILE_ATTRIBUTE_NORMAL)
	if perm&0o200 == 0 {
		attrs = windows.FILE_ATTRIBUTE_READONLY
	}
	attrs |= windows.FILE_FLAG_NO_BUFFERING | windows.FILE_FLAG_WRITE_THROUGH | windows.FILE_FLAG_OVERLAPPED

	h, err := windows.CreateFile(pathp, access,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE|windows.FILE_SHARE_DELETE,
		nil, disposition, attrs, 0)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	return os.NewFile(uintptr(h), path), nil
}

// fdatasync flushes with FlushFileBuffers; Windows has no data-only flush.
func fdatasync(f nativeFile) error {
	return f.Sync()
}

// fallocate is a no-op on Windows
func fallocate(f nativeFile, size int64) error {
	return nil
}

// punchHole is a no-op on Windows
func punchHole(f nativeFile, offset, length int64) error {
	return nil
}

// probeSectorSize reports the bytes-per-sector of the volume holding path.
func probeSectorSize(path string) (int, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, err
	}
	root, err := windows.UTF16PtrFromString(filepath.VolumeName(abs) + `\`)
	if err != nil {
		return 0, err
	}
	var sectorsPerCluster, bytesPerSector, freeClusters, totalClusters uint32
	r1, _, e1 := procGetDiskFreeSpaceW.Call(
		uintptr(unsafe.Pointer(root)),
		uintptr(unsafe.Pointer(&sectorsPerCluster)),
		uintptr(unsafe.Pointer(&bytesPerSector)),
		uintptr(unsafe.Pointer(&freeClusters)),
		uintptr(unsafe.Pointer(&totalClusters)),
	)
	if r1 == 0 {
		return 0, &os.PathError{Op: "GetDiskFreeSpaceW", Path: path, Err: e1}
	}
	if bytesPerSector == 0 {
		return 0, errSectorSizeUnavailable
	}
	return int(bytesPerSector), nil
}

func (f *osFile) clone() (nativeFile, error) {
	var h windows.Handle
	p := windows.CurrentProcess()
	if err := windows.DuplicateHandle(p, windows.Handle(f.Fd()), p, &h, 0, false, windows.DUPLICATE_SAME_ACCESS); err != nil {
		return nil, &os.PathError{Op: "DuplicateHandle", Path: f.Name(), Err: err}
	}
	return &osFile{File: os.NewFile(uintptr(h), f.Name()), direct: f.direct}, nil
}

// lockFile locks the whole file with LockFileEx.
func lockFile(f nativeFile, exclusive, block bool) error {
	var flags uint32
	if exclusive {
		flags |= windows.LOCKFILE_EXCLUSIVE_LOCK
	}
	if !block {
		flags |= windows.LOCKFILE_FAIL_IMMEDIATELY
	}
	err := overlapped(windows.Handle(f.Fd()), 0, func(h windows.Handle, ov *windows.Overlapped) error {
		return windows.LockFileEx(h, flags, 0, ^uint32(0), ^uint32(0), ov)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, windows.ERROR_LOCK_VIOLATION):
		return ErrWouldBlock
	default:
		return &os.PathError{Op: "LockFileEx", Path: f.Name(), Err: err}
	}
}

func unlockFile(f nativeFile) error {
	err := overlapped(windows.Handle(f.Fd()), 0, func(h windows.Handle, ov *windows.Overlapped) error {
		return windows.UnlockFileEx(h, 0, ^uint32(0), ^uint32(0), ov)
	})
	if err != nil {
		return &os.PathError{Op: "UnlockFileEx", Path: f.Name(), Err: err}
	}
	return nil
}

// overlapped issues call with an OVERLAPPED positioned at off and waits for
// it to complete. Handles opened for direct I/O are overlapped, so calls on
// them may return ERROR_IO_PENDING. The event handle carries the low bit so
// the completion is not also queued to the runtime's I/O completion port.
func overlapped(h windows.Handle, off int64, call func(windows.Handle, *windows.Overlapped) error) error {
	_, err := overlappedCount(h, off, call)
	return err
}

func overlappedCount(h windows.Handle, off int64, call func(windows.Handle, *windows.Overlapped) error) (uint32, error) {
	event, err := windows.CreateEvent(nil, 1, 0, nil)
	if err != nil {
		return 0, err
	}
	defer windows.CloseHandle(event)

	ov := &windows.Overlapped{
		Offset:     uint32(off),
		OffsetHigh: uint32(off >> 32),
		HEvent:     event | 1,
	}
	if err := call(h, ov); err != nil && !errors.Is(err, windows.ERROR_IO_PENDING) {
		return 0, err
	}
	var done uint32
	if err := windows.GetOverlappedResult(h, ov, &done, true); err != nil {
		return done, err
	}
	return done, nil
}

// scatterGather runs ReadFileScatter or WriteFileGather at off. Every element
// is split into page sized FILE_SEGMENT_ELEMENTs followed by a zero
// terminator; the caller guarantees page multiples via the alignment adapter.
func (f *osFile) scatterGather(proc *windows.LazyProc, iovs [][]byte, off int64) (int, error) {
	pageSize := os.Getpagesize()
	total := 0
	segments := make([]uint64, 0, len(iovs)+1)
	for _, iov := range iovs {
		if len(iov)%pageSize != 0 || addrOf(iov)%uintptr(pageSize) != 0 {
			return 0, &os.PathError{Op: proc.Name, Path: f.Name(),
				Err: fmt.Errorf("segment of %d bytes is not page aligned: %w", len(iov), windows.ERROR_INVALID_PARAMETER)}
		}
		for i := 0; i < len(iov); i += pageSize {
			segments = append(segments, uint64(uintptr(unsafe.Pointer(&iov[i]))))
		}
		total += len(iov)
	}
	if total == 0 {
		return 0, nil
	}
	segments = append(segments, 0)

	done, err := overlappedCount(windows.Handle(f.Fd()), off, func(h windows.Handle, ov *windows.Overlapped) error {
		r1, _, e1 := proc.Call(uintptr(h), uintptr(unsafe.Pointer(&segments[0])), uintptr(total), 0, uintptr(unsafe.Pointer(ov)))
		if r1 == 0 {
			return e1
		}
		return nil
	})
	runtime.KeepAlive(iovs)
	runtime.KeepAlive(segments)
	if err != nil {
		if errors.Is(err, windows.ERROR_HANDLE_EOF) {
			return 0, nil
		}
		return int(done), &os.PathError{Op: proc.Name, Path: f.Name(), Err: err}
	}
	return int(done), nil
}

// streamScatterGather runs scatterGather at the current position and then
// advances it by the transferred count.
func (f *osFile) streamScatterGather(proc *windows.LazyProc, iovs [][]byte) (int, error) {
	pos, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	n, err := f.scatterGather(proc, iovs, pos)
	if n > 0 {
		if _, serr := f.Seek(pos+int64(n), io.SeekStart); serr != nil && err == nil {
			err = serr
		}
	}
	return n, err
}

func (f *osFile) readv(iovs [][]byte) (int, error) {
	if !f.direct {
		for _, iov := range iovs {
			if len(iov) > 0 {
				n, err := f.Read(iov)
				if err == io.EOF {
					err = nil
				}
				return n, err
			}
		}
		return 0, nil
	}
	return f.streamScatterGather(procReadFileScatter, iovs)
}

func (f *osFile) preadv(iovs [][]byte, off int64) (int, error) {
	if !f.direct {
		return 0, ErrVectoredRequiresDirectIO
	}
	return f.scatterGather(procReadFileScatter, iovs, off)
}

func (f *osFile) writev(iovs [][]byte) (int, error) {
	if !f.direct {
		for _, iov := range iovs {
			if len(iov) > 0 {
				return f.Write(iov)
			}
		}
		return 0, nil
	}
	return f.streamScatterGather(procWriteFileGather, iovs)
}

func (f *osFile) pwritev(iovs [][]byte, off int64) (int, error) {
	if !f.direct {
		return 0, ErrVectoredRequiresDirectIO
	}
	return f.scatterGather(procWriteFileGather, iovs, off)
}
