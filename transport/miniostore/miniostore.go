// Package miniostore implements archive publication to and retrieval from
// an S3-compatible object store via minio-go, for the common self-hosted
// deployment where both the archive and the range-fetch endpoint are the
// same MinIO cluster the compress step already writes to.
package miniostore

import (
	"context"
	"fmt"
	"io"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/xiaoz/bitasync/internal/logging"
	"github.com/xiaoz/bitasync/internal/xerrors"
)

var log = logging.Get("miniostore")

// Options configures the MinIO client.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// Store publishes and fetches archive objects against one bucket.
type Store struct {
	client *minio.Client
	bucket string
}

// New builds a Store from opts.
func New(opts Options) (*Store, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, xerrors.Wrap(xerrors.ConfigError, "build minio client", err)
	}
	return &Store{client: client, bucket: opts.Bucket}, nil
}

// PutArchive uploads a locally-built archive file to key, returning the
// number of bytes transferred.
func (s *Store) PutArchive(ctx context.Context, key, localPath string) (int64, error) {
	info, err := s.client.FPutObject(ctx, s.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return 0, xerrors.Wrap(xerrors.Transport, fmt.Sprintf("upload archive %s", key), err).WithRetryable(true)
	}
	log.Infof("uploaded archive %s (%d bytes)", key, info.Size)
	return info.Size, nil
}

// ReadRange issues a ranged GetObject for key against the store's bucket.
// It takes the object key as an extra argument; KeyReader binds a key and
// yields a clone.RangeReader.
func (s *Store) ReadRange(ctx context.Context, key string, offset, length uint64) ([]byte, error) {
	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(int64(offset), int64(offset+length-1)); err != nil {
		return nil, xerrors.Wrap(xerrors.ConfigError, "set range", err)
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, opts)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.Transport, "minio GetObject range", err).WithOffset(int64(offset)).WithRetryable(true)
	}
	defer obj.Close()

	buf := make([]byte, length)
	if _, err := io.ReadFull(obj, buf); err != nil {
		return nil, xerrors.Wrap(xerrors.Transport, "read minio range body", err).WithOffset(int64(offset)).WithRetryable(true)
	}
	return buf, nil
}

// ArchiveKeyReader binds a Store to one archive object key, satisfying
// clone.RangeReader directly.
type ArchiveKeyReader struct {
	store *Store
	key   string
}

// KeyReader returns a clone.RangeReader bound to key.
func (s *Store) KeyReader(key string) *ArchiveKeyReader {
	return &ArchiveKeyReader{store: s, key: key}
}

// ReadRange implements clone.RangeReader.
func (r *ArchiveKeyReader) ReadRange(ctx context.Context, offset, length uint64) ([]byte, error) {
	return r.store.ReadRange(ctx, r.key, offset, length)
}
