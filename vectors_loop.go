//go:build !linux && !windows

package dio

import "io"

// Platforms without a usable readv/preadv in x/sys issue one call per
// element. A short transfer ends the loop, so the count still describes a
// contiguous prefix of the list.

func (f *osFile) readv(iovs [][]byte) (int, error) {
	var total int
	for _, iov := range iovs {
		n, err := f.Read(iov)
		total += n
		if err != nil {
			if err == io.EOF && total > 0 {
				err = nil
			}
			return total, err
		}
		if n < len(iov) {
			break
		}
	}
	return total, nil
}

func (f *osFile) preadv(iovs [][]byte, off int64) (int, error) {
	var total int
	for _, iov := range iovs {
		n, err := f.ReadAt(iov, off+int64(total))
		total += n
		if err != nil {
			if err == io.EOF {
				err = nil
			}
			return total, err
		}
	}
	return total, nil
}

func (f *osFile) writev(iovs [][]byte) (int, error) {
	var total int
	for _, iov := range iovs {
		n, err := f.Write(iov)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (f *osFile) pwritev(iovs [][]byte, off int64) (int, error) {
	var total int
	for _, iov := range iovs {
		n, err := f.WriteAt(iov, off+int64(total))
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
