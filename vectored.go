package dio

import "io"

// vectorFunc is a single native scatter/gather call over descriptors that
// already satisfy the direct I/O alignment contract.
type vectorFunc func(iovs [][]byte) (int, error)

// readVectored fills bufs, in order, from one native scatter call.
//
// Each element is classified on its own. Elements with an aligned address and
// length are handed to the kernel directly; elements that are only misaligned
// in address get a temporary buffer of the same length. Starting at the first
// element whose length is not a multiple of Align, the rest of the list shares
// one temporary tail buffer: padding a middle descriptor would make the kernel
// skip bytes that belong to the next element.
//
// The single byte count returned by the kernel is handed out front to back,
// exactly as the kernel would have filled unpadded buffers. The returned n never
// exceeds the combined length of bufs; extra is how far the kernel read past it.
func readVectored(bufs [][]byte, native vectorFunc) (n, extra int, err error) {
	total := 0
	for _, b := range bufs {
		total += len(b)
	}
	if total == 0 {
		return 0, 0, nil
	}

	iovs := make([][]byte, 0, len(bufs))
	staged := make([][]byte, len(bufs))
	tail := len(bufs)
	for i, b := range bufs {
		if !isAlignedLen(len(b)) {
			tail = i
			break
		}
		if isAligned(b) {
			iovs = append(iovs, b)
			continue
		}
		tmp := alignedBlock(len(b))
		staged[i] = tmp
		iovs = append(iovs, tmp)
	}
	if tail < len(bufs) {
		rest := 0
		for _, b := range bufs[tail:] {
			rest += len(b)
		}
		tmp := alignedBlock(alignUp(rest))
		iovs = append(iovs, tmp)
		off := 0
		for i, b := range bufs[tail:] {
			staged[tail+i] = tmp[off : off+len(b)]
			off += len(b)
		}
	}

	got, err := native(iovs)
	if got <= 0 {
		if err == nil {
			err = io.EOF
		}
		return 0, 0, err
	}

	if got > total {
		extra = got - total
		got = total
		if err == io.EOF {
			err = nil
		}
	}

	remaining := got
	for i, b := range bufs {
		if remaining == 0 {
			break
		}
		taken := min(remaining, len(b))
		if staged[i] != nil {
			copy(b[:taken], staged[i][:taken])
		}
		remaining -= taken
	}
	return got, extra, err
}

// readVectoredRaw issues native on bufs unchanged, reporting io.EOF when a
// non-empty request reads nothing.
func readVectoredRaw(bufs [][]byte, native vectorFunc) (int, error) {
	n, err := native(bufs)
	if n == 0 && err == nil {
		for _, b := range bufs {
			if len(b) > 0 {
				return 0, io.EOF
			}
		}
	}
	return n, err
}

// writeVectored writes bufs, in order, through one native gather call. Every
// element length must be a multiple of Align; the whole call is rejected
// before any descriptor is built otherwise.
func writeVectored(bufs [][]byte, native vectorFunc) (int, error) {
	for _, b := range bufs {
		if !isAlignedLen(len(b)) {
			return 0, unalignedLengthError(len(b))
		}
	}
	if len(bufs) == 0 {
		return 0, nil
	}

	iovs := make([][]byte, len(bufs))
	for i, b := range bufs {
		if isAligned(b) {
			iovs[i] = b
			continue
		}
		tmp := alignedBlock(len(b))
		copy(tmp, b)
		iovs[i] = tmp
	}
	return native(iovs)
}
