package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ulikunitz/xz/lzma"

	"github.com/xiaoz/bitasync/internal/xerrors"
)

type lzmaCodec struct{}

func newLZMA() *lzmaCodec {
	return &lzmaCodec{}
}

func (c *lzmaCodec) Tag() Tag { return TagLZMA }

func (c *lzmaCodec) Compress(data []byte) ([]byte, error) {
	var b bytes.Buffer
	w, err := lzma.NewWriter(&b)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func (c *lzmaCodec) Decompress(data []byte, uncompressedSize int) ([]byte, error) {
	r, err := lzma.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, uncompressedSize)
	buf := bytes.NewBuffer(out)
	if _, err := io.Copy(buf, r); err != nil {
		return nil, err
	}
	if buf.Len() != uncompressedSize {
		return nil, xerrors.New(xerrors.InvalidArchive,
			fmt.Sprintf("lzma: decompressed %d bytes, want %d", buf.Len(), uncompressedSize))
	}
	return buf.Bytes(), nil
}
