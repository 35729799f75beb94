package clone

import "context"

// RangeReader is the archive-transport contract: read length bytes starting
// at offset within the archive. Implementations may be HTTP(S) range
// requests, a local file pread, or an in-memory buffer. Errors should be
// wrapped as *xerrors.Error with Kind Transport; the retryable subset is
// flagged via WithRetryable.
type RangeReader interface {
	ReadRange(ctx context.Context, offset, length uint64) ([]byte, error)
}

// RandomWriter is the output-file contract: writes land at arbitrary
// offsets in any order, and Finalize is called once after every write has
// completed.
type RandomWriter interface {
	WriteAt(ctx context.Context, offset uint64, data []byte) error
	Finalize(ctx context.Context) error
}
