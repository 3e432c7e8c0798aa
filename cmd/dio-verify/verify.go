package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/cespare/xxhash/v2"
	"github.com/miretskiy/dio"
	"golang.org/x/sync/errgroup"
)

type config struct {
	path      string
	size      int64
	writeSize int
	readSize  int
	misalign  int
	direct    bool
	scratch   int
	vectored  bool
	readers   int
	keep      bool
}

// span is a chunk aligned byte range verified by one reader.
type span struct {
	off, end int64
}

// result holds what one verification pass observed.
type result struct {
	written, read       int64
	writeSums, readSums []uint64 // per span
	writeLat, readLat   *hdrhistogram.Histogram
	writeTime, readTime time.Duration
}

func newHistogram() *hdrhistogram.Histogram {
	return hdrhistogram.New(1, 60*1000*1000*1000, 3)
}

// run fills cfg.path with pseudo-random data through caller buffers that sit
// cfg.misalign bytes off an aligned address, reads it back in cfg.readSize
// pieces with cfg.readers cloned handles and compares xxhash digests per span.
func run(cfg config) (*result, error) {
	if cfg.size <= 0 || cfg.writeSize <= 0 || cfg.readSize <= 0 || cfg.misalign < 0 {
		return nil, fmt.Errorf("size, write-size and read-size must be positive, misalign non-negative")
	}
	chunk := int64(alignUp(cfg.writeSize))
	total := (cfg.size + chunk - 1) / chunk * chunk
	spans := split(total, chunk, max(cfg.readers, 1))

	f, err := dio.OpenFile(cfg.path,
		dio.WithRead(true), dio.WithWrite(true), dio.WithCreate(true), dio.WithTruncate(true),
		dio.WithDirectIO(cfg.direct), dio.WithScratchSize(cfg.scratch))
	if err != nil {
		return nil, err
	}
	if !cfg.keep {
		defer os.Remove(cfg.path)
	}
	defer f.Close()

	res := &result{
		writeSums: make([]uint64, len(spans)),
		readSums:  make([]uint64, len(spans)),
		writeLat:  newHistogram(),
		readLat:   newHistogram(),
	}

	if err := res.writePhase(f, cfg, spans, int(chunk)); err != nil {
		return res, err
	}
	if err := res.readPhase(f, cfg, spans); err != nil {
		return res, err
	}

	for i := range spans {
		if res.readSums[i] != res.writeSums[i] {
			return res, fmt.Errorf("checksum mismatch in [%d, %d): wrote %016x, read back %016x",
				spans[i].off, spans[i].end, res.writeSums[i], res.readSums[i])
		}
	}
	return res, nil
}

func (r *result) writePhase(f *dio.File, cfg config, spans []span, chunk int) error {
	rng := rand.New(rand.NewPCG(uint64(spans[len(spans)-1].end), uint64(chunk)))
	buf := offsetBuffer(chunk, cfg.misalign)
	start := time.Now()
	for i, s := range spans {
		digest := xxhash.New()
		for off := s.off; off < s.end; off += int64(chunk) {
			fill(rng, buf)
			_, _ = digest.Write(buf)

			t0 := time.Now()
			var err error
			if cfg.vectored {
				err = writeSplit(f, buf, off)
			} else {
				err = f.WriteAllAt(buf, off)
			}
			if err != nil {
				return fmt.Errorf("write at %d: %w", off, err)
			}
			_ = r.writeLat.RecordValue(time.Since(t0).Nanoseconds())
			r.written += int64(chunk)
		}
		r.writeSums[i] = digest.Sum64()
	}
	if err := f.SyncData(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	r.writeTime = time.Since(start)
	return nil
}

// readPhase verifies every span on its own clone of f, so readers never share
// a scratch buffer.
func (r *result) readPhase(f *dio.File, cfg config, spans []span) error {
	lats := make([]*hdrhistogram.Histogram, len(spans))
	counts := make([]int64, len(spans))
	start := time.Now()

	readers := make([]*dio.File, len(spans))
	for i := range spans {
		readers[i] = f
		if len(spans) == 1 {
			break
		}
		c, err := f.TryClone()
		if err != nil {
			return fmt.Errorf("clone: %w", err)
		}
		defer c.Close()
		readers[i] = c
	}

	var g errgroup.Group
	for i, s := range spans {
		lats[i] = newHistogram()
		g.Go(func() error {
			sum, n, err := readSpan(readers[i], cfg, s, lats[i])
			r.readSums[i], counts[i] = sum, n
			return err
		})
	}
	err := g.Wait()

	r.readTime = time.Since(start)
	for i := range spans {
		r.readLat.Merge(lats[i])
		r.read += counts[i]
	}
	return err
}

// readSpan hashes [s.off, s.end) through misaligned buffers of cfg.readSize
// bytes. Under direct I/O every read starts at an aligned offset, so a read
// may overlap bytes already hashed; only the new bytes are hashed.
func readSpan(f *dio.File, cfg config, s span, lat *hdrhistogram.Histogram) (uint64, int64, error) {
	digest := xxhash.New()
	size := cfg.readSize
	if cfg.direct {
		// Progress needs more than the up to Align-1 bytes re-read per step.
		size = max(size, dio.Align)
	}
	buf := offsetBuffer(size, cfg.misalign)
	var read int64
	for done := s.off; done < s.end; {
		off := done
		if cfg.direct {
			off = done &^ int64(dio.Align-1)
		}
		p := buf[:min(int64(len(buf)), s.end-off)]

		t0 := time.Now()
		var (
			n   int
			err error
		)
		if cfg.vectored {
			n, err = readSplit(f, p, off)
		} else {
			n, err = f.ReadAt(p, off)
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, read, fmt.Errorf("read at %d: %w", off, err)
		}
		if off+int64(n) <= done {
			return 0, read, fmt.Errorf("unexpected EOF at %d of [%d, %d)", done, s.off, s.end)
		}
		_ = lat.RecordValue(time.Since(t0).Nanoseconds())
		_, _ = digest.Write(p[done-off : n])
		read += off + int64(n) - done
		done = off + int64(n)
	}
	return digest.Sum64(), read, nil
}

// split divides [0, total) into at most n spans on chunk boundaries.
func split(total, chunk int64, n int) []span {
	chunks := total / chunk
	per := (chunks + int64(n) - 1) / int64(n)
	var spans []span
	for off := int64(0); off < total; off += per * chunk {
		spans = append(spans, span{off: off, end: min(off+per*chunk, total)})
	}
	return spans
}

// writeSplit writes buf as two gather elements: one alignment unit and the rest.
func writeSplit(f *dio.File, buf []byte, off int64) error {
	bufs := [][]byte{buf}
	if len(buf) > dio.Align {
		bufs = [][]byte{buf[:dio.Align], buf[dio.Align:]}
	}
	n, err := f.WriteVectoredAt(bufs, off)
	if err != nil {
		return err
	}
	if n < len(buf) {
		return io.ErrShortWrite
	}
	return nil
}

// readSplit reads p as three scatter elements of uneven length.
func readSplit(f *dio.File, p []byte, off int64) (int, error) {
	q := len(p) / 4
	return f.ReadVectoredAt([][]byte{p[:q], p[q : 2*q+1], p[2*q+1:]}, off)
}

func alignUp(n int) int {
	return (n + dio.Align - 1) / dio.Align * dio.Align
}

// offsetBuffer returns n bytes starting misalign bytes past an aligned address.
func offsetBuffer(n, misalign int) []byte {
	return dio.AlignedBlock(n + misalign)[misalign:]
}

func fill(rng *rand.Rand, b []byte) {
	for i := 0; i+8 <= len(b); i += 8 {
		binary.LittleEndian.PutUint64(b[i:], rng.Uint64())
	}
}

// combined folds the per span digests into one value for display.
func combined(sums []uint64) string {
	d := xxhash.New()
	var b [8]byte
	for _, s := range sums {
		binary.LittleEndian.PutUint64(b[:], s)
		_, _ = d.Write(b[:])
	}
	return fmt.Sprintf("%016x", d.Sum64())
}

func (r *result) print(w io.Writer) {
	fmt.Fprintf(w, "\n%-6s %12s %10s %10s %10s %10s %18s\n", "op", "bytes", "p50(us)", "p99(us)", "max(us)", "MiB/s", "xxhash")
	row(w, "write", r.written, r.writeLat, r.writeTime, combined(r.writeSums))
	row(w, "read", r.read, r.readLat, r.readTime, combined(r.readSums))
}

func row(w io.Writer, op string, n int64, h *hdrhistogram.Histogram, d time.Duration, sum string) {
	if h.TotalCount() == 0 {
		return
	}
	var mibs float64
	if d > 0 {
		mibs = float64(n) / (1 << 20) / d.Seconds()
	}
	fmt.Fprintf(w, "%-6s %12d %10.1f %10.1f %10.1f %10.1f %18s\n", op, n,
		float64(h.ValueAtQuantile(50))/1e3,
		float64(h.ValueAtQuantile(99))/1e3,
		float64(h.Max())/1e3,
		mibs, sum)
}
