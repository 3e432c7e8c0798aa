//go:build linux || darwin || freebsd || netbsd || dragonfly

package dio

import (
	"os"

	"github.com/ncw/directio"
)

// openDirect opens path bypassing the page cache: O_DIRECT where the
// platform has it, F_NOCACHE on darwin.
func openDirect(path string, flag int, perm os.FileMode) (*os.File, error) {
	return directio.OpenFile(path, flag, perm)
}
