package clone

import (
	"context"
	"sync"

	"github.com/xiaoz/bitasync/internal/xerrors"
)

// memRangeReader serves range reads out of an in-memory archive, for tests.
type memRangeReader struct {
	data []byte
}

func (m *memRangeReader) ReadRange(ctx context.Context, offset, length uint64) ([]byte, error) {
	if offset+length > uint64(len(m.data)) {
		return nil, xerrors.New(xerrors.Transport, "range out of bounds")
	}
	out := make([]byte, length)
	copy(out, m.data[offset:offset+length])
	return out, nil
}

// memWriter is an in-memory RandomWriter, growing as needed.
type memWriter struct {
	mu   sync.Mutex
	buf  []byte
	done bool
}

func newMemWriter(size int) *memWriter {
	return &memWriter{buf: make([]byte, size)}
}

func (w *memWriter) WriteAt(ctx context.Context, offset uint64, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	end := offset + uint64(len(data))
	if end > uint64(len(w.buf)) {
		grown := make([]byte, end)
		copy(grown, w.buf)
		w.buf = grown
	}
	copy(w.buf[offset:end], data)
	return nil
}

// ReadAt lets a test alias self-seed reads against the same buffer being
// written, matching how the CLI wires SelfSeed.Random to the output file.
func (w *memWriter) ReadAt(p []byte, off int64) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if off < 0 || off+int64(len(p)) > int64(len(w.buf)) {
		return 0, xerrors.New(xerrors.Transport, "read out of bounds")
	}
	n := copy(p, w.buf[off:])
	return n, nil
}

func (w *memWriter) Finalize(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.done = true
	return nil
}

func (w *memWriter) Bytes() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]byte{}, w.buf...)
}
