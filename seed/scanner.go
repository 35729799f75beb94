// Package seed implements the seed scanner (C7): it runs the chunker over a
// local byte source and, for every chunk that matches an entry in the
// dictionary index, delivers it to the clone assembler.
package seed

import (
	"context"
	"io"

	"github.com/xiaoz/bitasync/chunker"
	"github.com/xiaoz/bitasync/dictionary"
	"github.com/xiaoz/bitasync/internal/logging"
	"github.com/xiaoz/bitasync/strongsum"
)

var log = logging.Get("seed")

// Hit is one chunk found in a seed that matches a dictionary descriptor.
type Hit struct {
	DescriptorIndex int
	Data            []byte
	// SeedOffset is this chunk's offset within the seed stream. For a
	// self-seed (the output file read back before writing), this is also
	// the chunk's current position in the output, which the clone
	// assembler needs to detect in-place reuse.
	SeedOffset uint64
}

// Scan runs the chunker over r under cfg and delivers each chunk whose
// strong hash matches an uncovered descriptor to deliver. Matched
// descriptors are marked covered as they are delivered, so the same
// descriptor is never delivered twice across calls sharing idx. Scan stops
// early, returning nil, once every descriptor is covered.
func Scan(ctx context.Context, r io.Reader, cfg chunker.Config, idx *dictionary.Index, deliver func(Hit) error) error {
	c, err := chunker.New(r, cfg)
	if err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if idx.FullyCovered() {
			log.Debug("seed scan: dictionary fully covered, stopping early")
			return nil
		}

		chunk, err := c.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		sum := strongsum.Of(chunk.Data)
		descIdx, ok := idx.Lookup(sum)
		if !ok || idx.IsCovered(descIdx) {
			continue
		}
		idx.MarkCovered(descIdx)
		if err := deliver(Hit{DescriptorIndex: descIdx, Data: chunk.Data, SeedOffset: chunk.Offset}); err != nil {
			return err
		}
	}
}

// ScanSelfSeed runs the chunker over a self-seed stream (the output file's
// current contents, read before writing begins) and returns every chunk
// that matches a dictionary descriptor, regardless of whether that
// descriptor was already matched earlier in the stream. Unlike Scan, this
// never short-circuits and never mutates idx's coverage: the self-seed
// reorganization plan in the clone assembler needs every current position
// of every matched chunk, not just the first, to decide which target
// writes can be skipped as already-in-place.
func ScanSelfSeed(ctx context.Context, r io.Reader, cfg chunker.Config, idx *dictionary.Index) ([]Hit, error) {
	c, err := chunker.New(r, cfg)
	if err != nil {
		return nil, err
	}

	var hits []Hit
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chunk, err := c.Next()
		if err == io.EOF {
			return hits, nil
		}
		if err != nil {
			return nil, err
		}
		sum := strongsum.Of(chunk.Data)
		descIdx, ok := idx.Lookup(sum)
		if !ok {
			continue
		}
		hits = append(hits, Hit{DescriptorIndex: descIdx, Data: chunk.Data, SeedOffset: chunk.Offset})
	}
}
