package dio

import (
	"errors"
	"syscall"
)

// alignForHolePunch shrinks [offset, offset+length) to the whole Align sized
// blocks it contains. Returns (alignedOffset, alignedLength, canPunch);
// canPunch is false if there are no complete blocks to punch.
func alignForHolePunch(offset, length int64) (int64, int64, bool) {
	// Round offset UP so the block before the range is left alone
	alignedOffset := (offset + mask) &^ mask
	length -= alignedOffset - offset

	if length < Align {
		return 0, 0, false
	}

	// Round length DOWN so the block after the range is left alone
	length &^= mask

	return alignedOffset, length, true
}

// isInterrupted reports whether err is an interrupted system call that
// should simply be retried.
func isInterrupted(err error) bool {
	return errors.Is(err, syscall.EINTR)
}
