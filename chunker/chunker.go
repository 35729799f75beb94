// Package chunker implements the content-defined chunker (C4): it streams
// bytes from an io.Reader and emits boundary-delimited chunks using a rolling
// hash from the rollinghash package and a size policy from Config.
package chunker

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/xiaoz/bitasync/rollinghash"
)

// Config mirrors the archive's ChunkerConfig: it is stored verbatim in every
// archive so cloning reapplies the identical policy used at compression
// time.
type Config struct {
	HashFamily     rollinghash.Family
	HashWindowSize uint32
	MinChunkSize   uint32
	AvgChunkSize   uint32
	MaxChunkSize   uint32
}

// DefaultConfig returns the spec's default policy: RollSum, 64-byte window,
// 64 KiB average chunk size.
func DefaultConfig() Config {
	const avg = 64 * 1024
	return Config{
		HashFamily:     rollinghash.FamilyRollSum,
		HashWindowSize: rollinghash.DefaultWindowSize(rollinghash.FamilyRollSum),
		MinChunkSize:   avg / 4,
		AvgChunkSize:   avg,
		MaxChunkSize:   avg * 4,
	}
}

// Validate checks the config invariants: 1 <= min <= avg <= max, avg a power
// of two, window size nonzero.
func (c Config) Validate() error {
	if c.AvgChunkSize == 0 || c.AvgChunkSize&(c.AvgChunkSize-1) != 0 {
		return fmt.Errorf("chunker: avg_chunk_size %d is not a power of two", c.AvgChunkSize)
	}
	if c.MinChunkSize < 1 {
		return errors.New("chunker: min_chunk_size must be at least 1")
	}
	if c.MinChunkSize > c.AvgChunkSize {
		return fmt.Errorf("chunker: min_chunk_size %d exceeds avg_chunk_size %d", c.MinChunkSize, c.AvgChunkSize)
	}
	if c.AvgChunkSize > c.MaxChunkSize {
		return fmt.Errorf("chunker: avg_chunk_size %d exceeds max_chunk_size %d", c.AvgChunkSize, c.MaxChunkSize)
	}
	if c.HashWindowSize == 0 {
		return errors.New("chunker: hash_window_size must be nonzero")
	}
	return nil
}

// Chunk is one emitted chunk: a byte-exact slice of the input and its offset
// within the stream the chunker was driven over.
type Chunk struct {
	Offset uint64
	Data   []byte
}

// Chunker drives a rolling hash over a byte stream and emits chunks at
// content-defined or size-forced boundaries.
type Chunker struct {
	r    *bufio.Reader
	cfg  Config
	hash rollinghash.RollingHash

	ring   []byte // last HashWindowSize bytes fed to the hash, circular
	ringAt int
	primed uint32 // bytes fed so far, capped at HashWindowSize

	buf    []byte // accumulated bytes of the current chunk
	offset uint64 // stream offset of buf[0]

	err error
}

// New creates a Chunker reading from r under cfg. cfg must be valid.
func New(r io.Reader, cfg Config) (*Chunker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Chunker{
		r:    bufio.NewReaderSize(r, 256*1024),
		cfg:  cfg,
		hash: rollinghash.New(cfg.HashFamily, cfg.HashWindowSize),
		ring: make([]byte, cfg.HashWindowSize),
		buf:  make([]byte, 0, cfg.MaxChunkSize),
	}, nil
}

// Next returns the next chunk. At end of stream it returns the final
// (possibly short) chunk once, then io.EOF on every subsequent call.
func (c *Chunker) Next() (Chunk, error) {
	if c.err != nil {
		return Chunk{}, c.err
	}
	for {
		b, err := c.r.ReadByte()
		if err != nil {
			if err != io.EOF {
				c.err = err
				return Chunk{}, err
			}
			if len(c.buf) == 0 {
				c.err = io.EOF
				return Chunk{}, io.EOF
			}
			out := c.finishChunk()
			c.err = io.EOF
			return out, nil
		}

		out := c.ring[c.ringAt]
		c.ring[c.ringAt] = b
		c.ringAt = (c.ringAt + 1) % len(c.ring)
		if c.primed < c.cfg.HashWindowSize {
			c.primed++
		}

		c.hash.Roll(out, b)
		c.buf = append(c.buf, b)

		size := uint32(len(c.buf))
		if size == c.cfg.MaxChunkSize {
			return c.finishChunk(), nil
		}
		if c.primed >= c.cfg.HashWindowSize && size >= c.cfg.MinChunkSize {
			if rollinghash.BoundaryCondition(c.hash.Digest(), c.cfg.AvgChunkSize) {
				return c.finishChunk(), nil
			}
		}
	}
}

func (c *Chunker) finishChunk() Chunk {
	out := Chunk{Offset: c.offset, Data: c.buf}
	c.offset += uint64(len(c.buf))
	c.buf = make([]byte, 0, c.cfg.MaxChunkSize)
	c.hash.Reset()
	c.ring = make([]byte, c.cfg.HashWindowSize)
	c.ringAt = 0
	c.primed = 0
	return out
}

// All drains the chunker into a slice, for small inputs and tests.
func All(r io.Reader, cfg Config) ([]Chunk, error) {
	c, err := New(r, cfg)
	if err != nil {
		return nil, err
	}
	var chunks []Chunk
	for {
		ch, err := c.Next()
		if err == io.EOF {
			return chunks, nil
		}
		if err != nil {
			return chunks, err
		}
		chunks = append(chunks, ch)
	}
}
