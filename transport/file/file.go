// Package file provides the local-file transport: a RangeReader over an
// archive on disk via pread, and a RandomWriter over the clone output via
// pwrite, both satisfying the clone package's external contracts.
package file

import (
	"context"
	"os"

	"github.com/xiaoz/bitasync/internal/xerrors"
)

// RangeReader reads archive byte ranges from a local file via ReadAt.
type RangeReader struct {
	f *os.File
}

// OpenRangeReader opens path for reading.
func OpenRangeReader(path string) (*RangeReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.Transport, "open archive file", err)
	}
	return &RangeReader{f: f}, nil
}

// ReadRange implements clone.RangeReader.
func (r *RangeReader) ReadRange(ctx context.Context, offset, length uint64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.Cancelled, "read range", err)
	}
	buf := make([]byte, length)
	if _, err := r.f.ReadAt(buf, int64(offset)); err != nil {
		return nil, xerrors.Wrap(xerrors.Transport, "pread archive file", err).WithOffset(int64(offset)).WithRetryable(true)
	}
	return buf, nil
}

// Close releases the underlying file handle.
func (r *RangeReader) Close() error {
	return r.f.Close()
}

// RandomWriter writes clone output to a local file via WriteAt, preallocated
// to its final size up front so writes never need to extend the file mid-clone.
type RandomWriter struct {
	f *os.File
}

// CreateRandomWriter creates path if needed and sets its length to size
// bytes. Existing contents within that length are kept, so a self-seed scan
// of the output can still read them.
func CreateRandomWriter(path string, size uint64) (*RandomWriter, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.Transport, "create output file", err)
	}
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		return nil, xerrors.Wrap(xerrors.Transport, "preallocate output file", err)
	}
	return &RandomWriter{f: f}, nil
}

// WriteAt implements clone.RandomWriter.
func (w *RandomWriter) WriteAt(ctx context.Context, offset uint64, data []byte) error {
	if err := ctx.Err(); err != nil {
		return xerrors.Wrap(xerrors.Cancelled, "write output", err)
	}
	if _, err := w.f.WriteAt(data, int64(offset)); err != nil {
		return xerrors.Wrap(xerrors.Transport, "pwrite output file", err).WithOffset(int64(offset))
	}
	return nil
}

// Finalize syncs and closes the output file.
func (w *RandomWriter) Finalize(ctx context.Context) error {
	if err := w.f.Sync(); err != nil {
		return xerrors.Wrap(xerrors.Transport, "sync output file", err)
	}
	return w.f.Close()
}

// ReaderAt exposes the output file for self-seed random-access reads; safe
// to call alongside WriteAt since self-seed data is captured before any
// write for the positions that matter (see clone's self-seed plan).
func (w *RandomWriter) ReaderAt() *os.File {
	return w.f
}
