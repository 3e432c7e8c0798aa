//go:build !dio512

package dio

// Align is the unit every direct I/O buffer address (and write length) must be
// a multiple of. 4096 covers both 512e and 4Kn devices; build with -tags dio512
// for media that only need 512.
const Align = 4096
