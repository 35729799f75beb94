// Package clone implements the clone assembler (C8): it drives the seed
// scanner (C7) over zero or more local seeds, optionally reorganizes a
// self-seed output file in place, then fetches whatever chunks remain from
// the archive via coalesced range requests (C9), writing every byte of the
// source exactly once where possible.
package clone

import (
	"context"
	"io"
	"runtime"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/xiaoz/bitasync/codec"
	"github.com/xiaoz/bitasync/coalesce"
	"github.com/xiaoz/bitasync/dictionary"
	"github.com/xiaoz/bitasync/internal/logging"
	"github.com/xiaoz/bitasync/internal/xerrors"
	"github.com/xiaoz/bitasync/seed"
	"github.com/xiaoz/bitasync/strongsum"
)

var log = logging.Get("clone")

// Config tunes the assembler's concurrency and network behavior.
type Config struct {
	// Workers bounds concurrent range fetches and decompress/verify work;
	// 0 means runtime.GOMAXPROCS(0).
	Workers int
	// MaxGapBytes and MaxRequestSize configure the range coalescer (C9).
	MaxGapBytes    uint64
	MaxRequestSize uint64
	// RetryAttempts is the number of attempts (including the first) for a
	// Transport error before it is treated as fatal. Default 3.
	RetryAttempts int
}

// DefaultConfig returns the spec's defaults: 32 KiB coalescing gap,
// unlimited request size, 3 retry attempts, worker count left at 0
// (one worker per GOMAXPROCS slot).
func DefaultConfig() Config {
	return Config{
		MaxGapBytes:    coalesce.DefaultMaxGapBytes,
		MaxRequestSize: 0,
		RetryAttempts:  3,
	}
}

// Assembler orchestrates one clone operation against a single dictionary
// index.
type Assembler struct {
	idx            *dictionary.Index
	archiveReader  RangeReader
	chunkDataStart uint64
	writer         RandomWriter
	cfg            Config
}

// New creates an Assembler. chunkDataStart is the archive's absolute byte
// offset where the chunk-data region begins (archive.Reader.ChunkDataStart),
// since RangeReader operates on absolute archive offsets while descriptors
// carry chunk-data-region-relative offsets.
func New(idx *dictionary.Index, archiveReader RangeReader, chunkDataStart uint64, writer RandomWriter, cfg Config) *Assembler {
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	return &Assembler{idx: idx, archiveReader: archiveReader, chunkDataStart: chunkDataStart, writer: writer, cfg: cfg}
}

// SelfSeed is the output file, opened for both sequential reading (the
// initial self-seed scan, run before any writes) and random-access reads
// (the reorganization plan's targeted chunk reads).
type SelfSeed struct {
	Sequential io.Reader
	Random     io.ReaderAt
}

// Clone runs the full three-phase assembly: self-seed reorganization (if
// selfSeed is non-nil), seed reuse over the supplied seeds in order, then
// remote fetch of whatever remains, then a final coverage check and
// writer.Finalize.
func (a *Assembler) Clone(ctx context.Context, seeds []io.Reader, selfSeed *SelfSeed) error {
	if selfSeed != nil {
		if err := a.runSelfSeed(ctx, selfSeed); err != nil {
			return err
		}
	}

	for i, r := range seeds {
		if err := ctx.Err(); err != nil {
			return xerrors.Wrap(xerrors.Cancelled, "clone cancelled during seed reuse", err)
		}
		if a.idx.FullyCovered() {
			log.Debugf("dictionary fully covered before seed %d, skipping remaining seeds", i)
			break
		}
		if err := a.runSeed(ctx, r); err != nil {
			return err
		}
	}

	if err := a.runRemoteFetch(ctx); err != nil {
		return err
	}

	for i := 0; i < a.idx.NumDescriptors(); i++ {
		if !a.idx.IsCovered(i) {
			return xerrors.IntegrityFailuref(i, "descriptor never materialized")
		}
	}

	if err := a.writer.Finalize(ctx); err != nil {
		return xerrors.Wrap(xerrors.Transport, "finalize output", err)
	}
	return nil
}

func (a *Assembler) runSelfSeed(ctx context.Context, s *SelfSeed) error {
	hits, err := seed.ScanSelfSeed(ctx, s.Sequential, a.idx.Dict.Config, a.idx)
	if err != nil {
		return err
	}
	if len(hits) == 0 {
		return nil
	}
	plan := buildSelfSeedPlan(a.idx, hits)
	log.Debugf("self-seed plan: %d descriptors, %d buffered to break cycles", len(plan.order), len(plan.buffered))
	return a.applySelfSeedPlan(ctx, plan, s.Random)
}

func (a *Assembler) runSeed(ctx context.Context, r io.Reader) error {
	return seed.Scan(ctx, r, a.idx.Dict.Config, a.idx, func(h seed.Hit) error {
		desc := a.idx.Descriptor(h.DescriptorIndex)
		if strongsum.Of(h.Data) != desc.StrongHash {
			return xerrors.IntegrityFailuref(h.DescriptorIndex, "seed chunk strong hash mismatch")
		}
		for _, o := range a.idx.SourceOffsets(h.DescriptorIndex) {
			if err := a.writer.WriteAt(ctx, o, h.Data); err != nil {
				return xerrors.Wrap(xerrors.Transport, "write seed-reused chunk", err)
			}
		}
		return nil
	})
}

func (a *Assembler) runRemoteFetch(ctx context.Context) error {
	uncovered := a.idx.UncoveredDescriptors()
	if len(uncovered) == 0 {
		return nil
	}

	inputs := make([]coalesce.Input, 0, len(uncovered))
	for _, d := range uncovered {
		desc := a.idx.Descriptor(d)
		inputs = append(inputs, coalesce.Input{
			Offset: a.chunkDataStart + desc.ArchiveOffset,
			Length: uint64(desc.CompressedSize),
			Tag:    d,
		})
	}
	ranges := coalesce.Coalesce(inputs, coalesce.Options{
		MaxGapBytes:    orDefault(a.cfg.MaxGapBytes, coalesce.DefaultMaxGapBytes),
		MaxRequestSize: a.cfg.MaxRequestSize,
	})
	log.Debugf("remote fetch: %d uncovered descriptors coalesced into %d range requests", len(uncovered), len(ranges))

	g, gctx := errgroup.WithContext(ctx)
	workers := a.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(workers)
	for _, rng := range ranges {
		rng := rng
		g.Go(func() error {
			return a.fetchRange(gctx, rng)
		})
	}
	return g.Wait()
}

func (a *Assembler) fetchRange(ctx context.Context, rng coalesce.Range) error {
	data, err := a.fetchWithRetry(ctx, rng.Start, rng.Length)
	if err != nil {
		return err
	}
	for _, inner := range rng.Inner {
		descIdx := inner.Tag
		desc := a.idx.Descriptor(descIdx)
		compressed := data[inner.Offset : inner.Offset+inner.Length]

		c, err := codec.ByTag(desc.Codec)
		if err != nil {
			return xerrors.Wrap(xerrors.UnsupportedCodec, "decode fetched chunk", err).WithDescriptor(descIdx)
		}
		plain, err := c.Decompress(compressed, int(desc.UncompressedSize))
		if err != nil {
			return xerrors.Wrap(xerrors.InvalidArchive, "decompress fetched chunk", err).WithDescriptor(descIdx)
		}
		if strongsum.Of(plain) != desc.StrongHash {
			return xerrors.IntegrityFailuref(descIdx, "fetched chunk strong hash mismatch")
		}
		for _, o := range a.idx.SourceOffsets(descIdx) {
			if err := a.writer.WriteAt(ctx, o, plain); err != nil {
				return xerrors.Wrap(xerrors.Transport, "write fetched chunk", err)
			}
		}
		a.idx.MarkCovered(descIdx)
	}
	return nil
}

func (a *Assembler) fetchWithRetry(ctx context.Context, offset, length uint64) ([]byte, error) {
	var data []byte
	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(a.cfg.RetryAttempts-1))
	policy = backoff.WithContext(policy, ctx)

	op := func() error {
		d, err := a.archiveReader.ReadRange(ctx, offset, length)
		if err != nil {
			if xerrors.Is(err, xerrors.IntegrityFailure) {
				return backoff.Permanent(err)
			}
			return err
		}
		data = d
		return nil
	}
	if err := backoff.Retry(op, policy); err != nil {
		if e, ok := err.(*xerrors.Error); ok {
			return nil, e
		}
		return nil, xerrors.Wrap(xerrors.Transport, "range fetch failed after retries", err).WithOffset(int64(offset))
	}
	return data, nil
}

func orDefault(v, def uint64) uint64 {
	if v == 0 {
		return def
	}
	return v
}
