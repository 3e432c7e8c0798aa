//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd && !dragonfly && !windows

package dio

import (
	"errors"
	"fmt"
)

func (f *osFile) clone() (nativeFile, error) {
	return nil, fmt.Errorf("clone %s: %w", f.Name(), errors.ErrUnsupported)
}

func lockFile(f nativeFile, exclusive, block bool) error {
	return fmt.Errorf("lock %s: %w", f.Name(), errors.ErrUnsupported)
}

func unlockFile(f nativeFile) error {
	return fmt.Errorf("unlock %s: %w", f.Name(), errors.ErrUnsupported)
}
