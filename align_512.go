//go:build dio512

package dio

// Align is the unit every direct I/O buffer address (and write length) must be
// a multiple of.
const Align = 512
