// Package compress orchestrates the compress side end to end: it runs the
// chunker over an input, compresses and dedups each chunk into an archive
// via archive.Writer, and finalizes the dictionary with the source's total
// size and whole-content hash.
package compress

import (
	"context"
	"io"

	"github.com/xiaoz/bitasync/archive"
	"github.com/xiaoz/bitasync/chunker"
	"github.com/xiaoz/bitasync/codec"
	"github.com/xiaoz/bitasync/internal/logging"
	"github.com/xiaoz/bitasync/internal/xerrors"
	"github.com/xiaoz/bitasync/strongsum"
)

var log = logging.Get("compress")

// Config bundles the chunker configuration and compression codec used to
// build one archive.
type Config struct {
	Chunker chunker.Config
	Codec   codec.Codec
}

// DefaultConfig returns the chunker defaults compressed with zstd, the
// pack's general-purpose choice for archive payloads.
func DefaultConfig() (Config, error) {
	c, err := codec.ByName("zstd")
	if err != nil {
		return Config{}, err
	}
	return Config{Chunker: chunker.DefaultConfig(), Codec: c}, nil
}

// Stats summarizes one compress run for reporting.
type Stats struct {
	SourceBytes  uint64
	ChunkCount   int
	UniqueChunks int
	DedupRatio   float64
}

// ToArchive chunks src under cfg, writes every chunk to an archive.Writer
// over dst, and finalizes it. ctx is checked between chunks so a long
// compress run can be cancelled.
func ToArchive(ctx context.Context, dst io.Writer, src io.Reader, cfg Config) (Stats, error) {
	if err := cfg.Chunker.Validate(); err != nil {
		return Stats{}, err
	}
	if cfg.Codec == nil {
		return Stats{}, xerrors.New(xerrors.ConfigError, "compress: codec is required")
	}

	w, err := archive.NewWriter(dst, cfg.Chunker)
	if err != nil {
		return Stats{}, err
	}

	hasher := strongsum.New()
	c, err := chunker.New(io.TeeReader(src, hasher), cfg.Chunker)
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	for {
		if err := ctx.Err(); err != nil {
			return Stats{}, xerrors.Wrap(xerrors.Cancelled, "compress cancelled", err)
		}
		chunk, err := c.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Stats{}, err
		}
		stats.ChunkCount++
		stats.SourceBytes += uint64(len(chunk.Data))

		beforeCount := w.NumDescriptors()
		if _, err := w.PutChunk(chunk.Data, cfg.Codec); err != nil {
			return Stats{}, err
		}
		if w.NumDescriptors() > beforeCount {
			stats.UniqueChunks++
		}
	}

	if err := w.Finalize(stats.SourceBytes, hasher.Sum()); err != nil {
		return Stats{}, err
	}
	if stats.SourceBytes > 0 {
		stats.DedupRatio = 1 - float64(stats.UniqueChunks)/float64(stats.ChunkCount)
	}
	log.Infof("compressed %d bytes into %d chunks (%d unique, %.1f%% deduped)",
		stats.SourceBytes, stats.ChunkCount, stats.UniqueChunks, stats.DedupRatio*100)
	return stats, nil
}
