package dio

import (
	"fmt"
	"io"
)

// nativeFunc is a single native read or write over a buffer that already
// satisfies the direct I/O alignment contract.
type nativeFunc func(buf []byte) (int, error)

// readThrough reads into p through native, staging the transfer through an
// aligned region when p cannot be handed to the kernel as is.
//
// The returned n never exceeds len(p). extra is how many bytes the native call
// produced beyond len(p) (the padding of the aligned region); stream readers
// use it to move the file position back.
func readThrough(scratch *scratchBuffer, p []byte, native nativeFunc) (n, extra int, err error) {
	if isAligned(p) && isAlignedLen(len(p)) {
		n, err = native(p)
		return n, 0, err
	}

	alignedLen := alignUp(len(p))
	if scratch == nil || alignedLen > scratch.Len() {
		buf := alignedBlock(alignedLen)
		n, err = native(buf)
		n, extra, err = copyOut(p, buf, n, err)
		return n, extra, err
	}

	_, err = scratch.with(alignedLen, func(buf []byte) (int, error) {
		var rerr error
		n, rerr = native(buf)
		n, extra, rerr = copyOut(p, buf, n, rerr)
		return n, rerr
	})
	return n, extra, err
}

// copyOut moves the first min(n, len(p)) bytes of buf into p. An io.EOF is
// dropped when the native call returned more than the caller asked for.
func copyOut(p, buf []byte, n int, err error) (int, int, error) {
	if n <= 0 {
		return 0, 0, err
	}
	extra := 0
	if n > len(p) {
		extra = n - len(p)
		n = len(p)
		if err == io.EOF {
			err = nil
		}
	}
	copy(p, buf[:n])
	return n, extra, err
}

// writeThrough writes p through native. len(p) must be a multiple of Align:
// unlike a read, a write cannot pad or drop bytes, so a bad length is
// rejected before any syscall.
func writeThrough(scratch *scratchBuffer, p []byte, native nativeFunc) (int, error) {
	if !isAlignedLen(len(p)) {
		return 0, unalignedLengthError(len(p))
	}
	if isAligned(p) {
		return native(p)
	}

	if scratch == nil || len(p) > scratch.Len() {
		buf := alignedBlock(len(p))
		copy(buf, p)
		return native(buf)
	}

	return scratch.with(len(p), func(buf []byte) (int, error) {
		copy(buf, p)
		return native(buf)
	})
}

func unalignedLengthError(n int) error {
	return fmt.Errorf("%w: got %d bytes, want a multiple of %d", ErrUnalignedLength, n, Align)
}

// writeAllAt calls writeAt until all of p is written at off, advancing by
// however much each call accepted. Interrupted calls are retried; a call that
// makes no progress fails with ErrWriteZero.
func writeAllAt(p []byte, off int64, writeAt func([]byte, int64) (int, error)) error {
	for len(p) > 0 {
		n, err := writeAt(p, off)
		if n > 0 {
			p = p[n:]
			off += int64(n)
		}
		if err != nil {
			if isInterrupted(err) {
				continue
			}
			return err
		}
		if n == 0 {
			return ErrWriteZero
		}
	}
	return nil
}
