package domain

import (
	"context"
	"io"
)

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// PassArchiver keeps a cold copy of pass reports and ingested activity.
type PassArchiver interface {
	ArchivePass(ctx context.Context, report PassReport) (string, error)
	ArchiveActivity(ctx context.Context, wallet string, records []ActivityRecord) (string, error)
}
