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

// ResultArchiver stores the hedge results of one run and returns the object
// path written.
type ResultArchiver interface {
	Archive(ctx context.Context, runID string, results []HedgeResult) (string, error)
}
