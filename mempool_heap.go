//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package dio

// allocate returns a heap backed aligned block; there is no anonymous mmap to
// lean on here.
func allocate(size int) []byte {
	return alignedBlock(size)
}

// free is a no-op; the GC owns heap blocks.
func free([]byte) error {
	return nil
}
