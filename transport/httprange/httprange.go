// Package httprange implements the clone package's RangeReader contract
// against an archive served over plain HTTP(S) via the standard Range
// header, for the common case of an archive published behind a static
// file server or CDN.
package httprange

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/xiaoz/bitasync/internal/xerrors"
)

// RangeReader fetches archive byte ranges from a URL that supports the
// standard HTTP Range request header (RFC 7233).
type RangeReader struct {
	client *http.Client
	url    string
}

// New builds a RangeReader against url using client. A nil client uses
// http.DefaultClient.
func New(url string, client *http.Client) *RangeReader {
	if client == nil {
		client = http.DefaultClient
	}
	return &RangeReader{client: client, url: url}
}

// ReadRange implements clone.RangeReader.
func (r *RangeReader) ReadRange(ctx context.Context, offset, length uint64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.ConfigError, "build range request", err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", offset, offset+length-1))

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.Transport, "http range request", err).WithOffset(int64(offset)).WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPartialContent {
		if resp.StatusCode == http.StatusOK {
			return nil, xerrors.New(xerrors.ConfigError, "server does not support range requests")
		}
		return nil, xerrors.Wrap(xerrors.Transport, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil).
			WithOffset(int64(offset)).WithRetryable(resp.StatusCode >= 500)
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(resp.Body, buf); err != nil {
		return nil, xerrors.Wrap(xerrors.Transport, "read http range body", err).WithOffset(int64(offset)).WithRetryable(true)
	}
	return buf, nil
}
