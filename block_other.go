//go:build !linux && !windows && !freebsd && !netbsd && !dragonfly

package dio

// newBlock over-allocates by Align and slices to the first aligned byte.
// directio does not align on darwin and does not build on some of these
// platforms.
func newBlock(size int) []byte {
	block := make([]byte, size+Align)
	offset := 0
	if a := int(addrOf(block) & mask); a != 0 {
		offset = Align - a
	}
	// cap stays > 0 even for size 0, so the address stays meaningful.
	return block[offset : offset+size]
}
