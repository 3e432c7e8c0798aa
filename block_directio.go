//go:build linux || windows || freebsd || netbsd || dragonfly

package dio

import "github.com/ncw/directio"

// directio.AlignSize is 4096 on these platforms, a multiple of Align in both
// builds.
func newBlock(size int) []byte {
	return directio.AlignedBlock(size)
}
