package codec

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/xiaoz/bitasync/internal/xerrors"
)

// zstdCodec lazily builds its encoder/decoder on first use: both are
// expensive to construct and safe to share across goroutines once built.
type zstdCodec struct {
	mu  sync.Mutex
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func newZstd() *zstdCodec {
	return &zstdCodec{}
}

func (c *zstdCodec) Tag() Tag { return TagZstd }

func (c *zstdCodec) encoder() (*zstd.Encoder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.enc == nil {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		c.enc = enc
	}
	return c.enc, nil
}

func (c *zstdCodec) decoder() (*zstd.Decoder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dec == nil {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		c.dec = dec
	}
	return c.dec, nil
}

func (c *zstdCodec) Compress(data []byte) ([]byte, error) {
	enc, err := c.encoder()
	if err != nil {
		return nil, err
	}
	return enc.EncodeAll(data, make([]byte, 0, len(data))), nil
}

func (c *zstdCodec) Decompress(data []byte, uncompressedSize int) ([]byte, error) {
	dec, err := c.decoder()
	if err != nil {
		return nil, err
	}
	out, err := dec.DecodeAll(data, make([]byte, 0, uncompressedSize))
	if err != nil {
		return nil, err
	}
	if len(out) != uncompressedSize {
		return nil, xerrors.New(xerrors.InvalidArchive,
			fmt.Sprintf("zstd: decompressed %d bytes, want %d", len(out), uncompressedSize))
	}
	return out, nil
}
