package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"

	"github.com/xiaoz/bitasync/internal/xerrors"
)

type brotliCodec struct {
	quality int
}

func newBrotli() *brotliCodec {
	return &brotliCodec{quality: brotli.DefaultCompression}
}

func (c *brotliCodec) Tag() Tag { return TagBrotli }

func (c *brotliCodec) Compress(data []byte) ([]byte, error) {
	var b bytes.Buffer
	w := brotli.NewWriterLevel(&b, c.quality)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func (c *brotliCodec) Decompress(data []byte, uncompressedSize int) ([]byte, error) {
	r := brotli.NewReader(bytes.NewReader(data))
	out := make([]byte, 0, uncompressedSize)
	buf := bytes.NewBuffer(out)
	if _, err := io.Copy(buf, r); err != nil {
		return nil, err
	}
	if buf.Len() != uncompressedSize {
		return nil, xerrors.New(xerrors.InvalidArchive,
			fmt.Sprintf("brotli: decompressed %d bytes, want %d", buf.Len(), uncompressedSize))
	}
	return buf.Bytes(), nil
}
