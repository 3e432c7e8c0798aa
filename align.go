package dio

import "unsafe"

const mask = Align - 1

// addrOf returns the address of the first byte of b's backing array.
func addrOf(b []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}

// isAligned checks if block is aligned in memory for DirectIO.
// Zero length blocks are always aligned.
func isAligned(block []byte) bool {
	if len(block) == 0 {
		return true
	}
	return addrOf(block)&mask == 0
}

// isAlignedLen reports whether n is a multiple of Align.
func isAlignedLen(n int) bool {
	return n&mask == 0
}

// alignUp rounds n up to the next multiple of Align.
func alignUp(n int) int {
	return (n + mask) &^ mask
}
