//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package dio

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// clone dups the descriptor with close-on-exec set. The duplicate shares
// the file offset and status flags, O_DIRECT included.
func (f *osFile) clone() (nativeFile, error) {
	fd, err := unix.FcntlInt(f.Fd(), unix.F_DUPFD_CLOEXEC, 0)
	if err != nil {
		return nil, &os.PathError{Op: "dup", Path: f.Name(), Err: err}
	}
	return &osFile{File: os.NewFile(uintptr(fd), f.Name()), direct: f.direct}, nil
}

// lockFile takes a whole-file advisory flock.
func lockFile(f nativeFile, exclusive, block bool) error {
	how := unix.LOCK_SH
	if exclusive {
		how = unix.LOCK_EX
	}
	if !block {
		how |= unix.LOCK_NB
	}
	for {
		err := unix.Flock(int(f.Fd()), how)
		switch {
		case err == nil:
			return nil
		case isInterrupted(err):
			continue
		case errors.Is(err, unix.EWOULDBLOCK):
			return ErrWouldBlock
		default:
			return &os.PathError{Op: "flock", Path: f.Name(), Err: err}
		}
	}
}

func unlockFile(f nativeFile) error {
	if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
		return &os.PathError{Op: "flock", Path: f.Name(), Err: err}
	}
	return nil
}
