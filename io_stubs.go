//go:build !linux && !darwin && !windows

package dio

// fdatasync falls back to a full sync
func fdatasync(f nativeFile) error {
	return f.Sync()
}

// fallocate is a no-op on unsupported platforms
func fallocate(f nativeFile, size int64) error {
	return nil
}

// punchHole is a no-op on unsupported platforms
func punchHole(f nativeFile, offset, length int64) error {
	return nil
}

func probeSectorSize(path string) (int, error) {
	return 0, errSectorSizeUnavailable
}
