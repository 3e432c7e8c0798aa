package dio

import (
	"errors"
	"fmt"
	"os"
)

// DefaultScratchSize is the scratch buffer capacity used when direct I/O is
// enabled without WithScratchSize.
const DefaultScratchSize = 64 << 10

// config holds how a file is opened
type config struct {
	Read        bool
	Write       bool
	Append      bool
	Truncate    bool
	Create      bool
	CreateNew   bool
	DirectIO    bool
	ScratchSize int // Capacity C of the per-file scratch buffer (0 = temporary buffers only)
	Perm        os.FileMode
}

// Option configures OpenFile
type Option interface {
	apply(*config)
}

// funcOpt wraps a function as an Option
type funcOpt func(*config)

func (f funcOpt) apply(c *config) {
	f(c)
}

// WithRead opens the file for reading
func WithRead(enabled bool) Option {
	return funcOpt(func(c *config) {
		c.Read = enabled
	})
}

// WithWrite opens the file for writing
func WithWrite(enabled bool) Option {
	return funcOpt(func(c *config) {
		c.Write = enabled
	})
}

// WithAppend opens the file in append mode (implies write access)
func WithAppend(enabled bool) Option {
	return funcOpt(func(c *config) {
		c.Append = enabled
	})
}

// WithTruncate truncates an existing file to zero length on open
func WithTruncate(enabled bool) Option {
	return funcOpt(func(c *config) {
		c.Truncate = enabled
	})
}

// WithCreate creates the file if it does not exist
func WithCreate(enabled bool) Option {
	return funcOpt(func(c *config) {
		c.Create = enabled
	})
}

// WithCreateNew creates the file, failing if it already exists.
// Takes precedence over WithCreate and WithTruncate.
func WithCreateNew(enabled bool) Option {
	return funcOpt(func(c *config) {
		c.CreateNew = enabled
	})
}

// WithDirectIO opens the file with O_DIRECT (Linux), F_NOCACHE (darwin) or
// FILE_FLAG_NO_BUFFERING (Windows) and turns on the alignment adapter.
func WithDirectIO(enabled bool) Option {
	return funcOpt(func(c *config) {
		c.DirectIO = enabled
	})
}

// WithScratchSize sets the capacity of the per-file scratch buffer (default: 64KiB).
// Misaligned requests up to this size are staged through the shared scratch
// buffer under a lock; larger ones get a private temporary buffer.
//
//	0: no scratch buffer; every misaligned request allocates
//	>0: scratch buffer of exactly n bytes, allocated at open
//
// Ignored unless direct I/O is enabled.
func WithScratchSize(n int) Option {
	return funcOpt(func(c *config) {
		c.ScratchSize = n
	})
}

// WithPerm sets the permission bits used when the file is created (default: 0644)
func WithPerm(perm os.FileMode) Option {
	return funcOpt(func(c *config) {
		c.Perm = perm
	})
}

// Common errors
var (
	ErrUnalignedLength          = errors.New("buffer length is not a multiple of the alignment unit")
	ErrWriteZero                = errors.New("failed to write whole buffer")
	ErrInvalidOptions           = errors.New("invalid open options")
	ErrVectoredRequiresDirectIO = errors.New("vectored I/O at an offset requires direct I/O on this platform")
	ErrWouldBlock               = errors.New("file lock is held elsewhere")
)

// defaultConfig returns sensible defaults
func defaultConfig() config {
	return config{
		ScratchSize: DefaultScratchSize,
		Perm:        0o644,
	}
}

// flags translates the toggles into os.OpenFile flags.
// Invalid combinations are rejected before any syscall.
func (c config) flags() (int, error) {
	var flag int
	switch {
	case c.Append:
		flag = os.O_APPEND
		if c.Read {
			flag |= os.O_RDWR
		} else {
			flag |= os.O_WRONLY
		}
	case c.Read && c.Write:
		flag = os.O_RDWR
	case c.Write:
		flag = os.O_WRONLY
	case c.Read:
		flag = os.O_RDONLY
	default:
		return 0, fmt.Errorf("%w: one of read, write or append is required", ErrInvalidOptions)
	}

	writable := c.Write || c.Append
	switch {
	case c.CreateNew:
		if !writable {
			return 0, fmt.Errorf("%w: create_new requires write or append", ErrInvalidOptions)
		}
		flag |= os.O_CREATE | os.O_EXCL
	case c.Create && c.Truncate:
		if !c.Write || c.Append {
			return 0, fmt.Errorf("%w: truncate requires write without append", ErrInvalidOptions)
		}
		flag |= os.O_CREATE | os.O_TRUNC
	case c.Create:
		if !writable {
			return 0, fmt.Errorf("%w: create requires write or append", ErrInvalidOptions)
		}
		flag |= os.O_CREATE
	case c.Truncate:
		if !c.Write || c.Append {
			return 0, fmt.Errorf("%w: truncate requires write without append", ErrInvalidOptions)
		}
		flag |= os.O_TRUNC
	}

	if c.ScratchSize < 0 {
		return 0, fmt.Errorf("%w: negative scratch size %d", ErrInvalidOptions, c.ScratchSize)
	}
	return flag, nil
}
