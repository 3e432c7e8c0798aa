//go:build darwin

package dio

import (
	"os"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// fdatasync syncs file data to disk
// Darwin doesn't have fdatasync, so we use F_FULLFSYNC which ensures
// data reaches physical disk (not just drive cache)
func fdatasync(f nativeFile) error {
	_, err := unix.FcntlInt(f.Fd(), unix.F_FULLFSYNC, 0)
	return err
}

// fallocate pre-allocates disk space via F_PREALLOCATE, trying a contiguous
// allocation first.
func fallocate(f nativeFile, size int64) error {
	fstore := unix.Fstore_t{
		Flags:   unix.F_ALLOCATECONTIG,
		Posmode: unix.F_PEOFPOSMODE,
		Length:  size,
	}
	if err := unix.FcntlFstore(f.Fd(), unix.F_PREALLOCATE, &fstore); err == nil {
		return nil
	}
	fstore.Flags = unix.F_ALLOCATEALL
	return unix.FcntlFstore(f.Fd(), unix.F_PREALLOCATE, &fstore)
}

// fpunchhole matches struct fpunchhole_t used by fcntl(F_PUNCHHOLE)
type fpunchhole struct {
	flags  uint32 // must be 0
	_      uint32
	offset int64
	length int64
}

// punchHole reclaims whole blocks with F_PUNCHHOLE (APFS only).
func punchHole(f nativeFile, offset, length int64) error {
	alignedOffset, alignedLength, canPunch := alignForHolePunch(offset, length)
	if !canPunch {
		return nil
	}
	ph := fpunchhole{offset: alignedOffset, length: alignedLength}
	_, _, errno := syscall.Syscall(syscall.SYS_FCNTL, f.Fd(), uintptr(unix.F_PUNCHHOLE), uintptr(unsafe.Pointer(&ph)))
	if errno != 0 {
		return errno
	}
	return nil
}

// probeSectorSize reports the filesystem's fundamental block size.
func probeSectorSize(path string) (int, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, &os.PathError{Op: "statfs", Path: path, Err: err}
	}
	if st.Bsize == 0 {
		return 0, errSectorSizeUnavailable
	}
	return int(st.Bsize), nil
}
