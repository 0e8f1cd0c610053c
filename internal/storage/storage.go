// Package storage contains the blob store abstraction and its drivers
// (S3-compatible via MinIO, Google Cloud Storage, and in-memory).
// Implementations stream uploads and never touch local disk.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound is returned by Delete when the key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes; Progress, when set, receives
// the uploaded fraction in [0,1] as bytes are sent.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
	Progress    func(fraction float64)
}

// ObjectInfo contains basic information about an object in storage.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is the blob store used by the upload workflows.
type Storage interface {
	// Put uploads an object under the given key using the provided reader and options.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// URL resolves a durable retrieval URL for the object.
	URL(ctx context.Context, key string) (string, error)
	// Delete removes an object by key, returning ErrObjectNotFound if absent.
	Delete(ctx context.Context, key string) error
}

// progressTracker counts bytes and reports the uploaded fraction. It is both
// a Writer (for io.TeeReader) and a Reader (for minio's Progress hook, which
// calls Read with the size of each chunk sent).
type progressTracker struct {
	total  int64
	sent   int64
	report func(float64)
}

func newProgressTracker(total int64, report func(float64)) *progressTracker {
	if report == nil || total <= 0 {
		return nil
	}
	return &progressTracker{total: total, report: report}
}

func (p *progressTracker) advance(n int) {
	p.sent += int64(n)
	if p.sent > p.total {
		p.sent = p.total
	}
	p.report(float64(p.sent) / float64(p.total))
}

func (p *progressTracker) Write(b []byte) (int, error) {
	p.advance(len(b))
	return len(b), nil
}

func (p *progressTracker) Read(b []byte) (int, error) {
	p.advance(len(b))
	return len(b), nil
}

// withProgress wraps r so reads are reported through opt.Progress.
func withProgress(r io.Reader, opt PutObjectOptions) io.Reader {
	if pt := newProgressTracker(opt.Size, opt.Progress); pt != nil {
		return io.TeeReader(r, pt)
	}
	return r
}
