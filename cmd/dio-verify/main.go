package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/miretskiy/dio"
)

func main() {
	var cfg config
	flag.StringVar(&cfg.path, "path", "", "File to write and verify (required; overwritten)")
	flag.Int64Var(&cfg.size, "size", 16<<20, "Total bytes to write")
	flag.IntVar(&cfg.writeSize, "write-size", 64<<10, "Bytes per write (rounded up to the alignment unit)")
	flag.IntVar(&cfg.readSize, "read-size", 12345, "Bytes per read (any length; at least the alignment unit with -direct)")
	flag.IntVar(&cfg.misalign, "misalign", 1, "Byte offset of caller buffers from an aligned address")
	flag.BoolVar(&cfg.direct, "direct", true, "Open the file with direct I/O")
	flag.IntVar(&cfg.scratch, "scratch", dio.DefaultScratchSize, "Scratch buffer size (0 = temporary buffers only)")
	flag.BoolVar(&cfg.vectored, "vectored", false, "Verify with vectored reads and writes")
	flag.IntVar(&cfg.readers, "readers", 1, "Concurrent readers, each on its own cloned handle")
	flag.BoolVar(&cfg.keep, "keep", false, "Keep the file after verification")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Parse()

	if cfg.path == "" {
		fmt.Fprintln(os.Stderr, "Error: --path is required")
		flag.Usage()
		os.Exit(1)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	dio.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	fmt.Printf("Verifying %s (align=%d direct=%v scratch=%d vectored=%v readers=%d)\n",
		cfg.path, dio.Align, cfg.direct, cfg.scratch, cfg.vectored, cfg.readers)
	if sector, err := dio.SectorSize(filepath.Dir(cfg.path)); err == nil {
		fmt.Printf("Sector size: %d\n", sector)
	}

	res, err := run(cfg)
	if res != nil {
		res.print(os.Stdout)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Verification failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("\nVerification completed successfully!")
}
