package domain

import (
	"context"
	"io"
	"time"
)

// BlobInfo describes a stored object.
type BlobInfo struct {
	Path         string
	Size         int64
	LastModified time.Time
}

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// BlobReader retrieves data from object storage.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// ReportArchiver copies pass reports to cold storage and lists what was
// archived for an exchange on a given UTC day.
type ReportArchiver interface {
	ArchiveReport(ctx context.Context, report PassReport) (path string, err error)
	ListArchived(ctx context.Context, exchange Exchange, day time.Time) ([]BlobInfo, error)
}
