package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/alanyoungcy/hedgebot/internal/domain"
)

// multipartThreshold is the payload size above which archives go through the
// multipart uploader.
const multipartThreshold = 8 * 1024 * 1024

// ResultArchiver writes the hedge results of one loop run as a JSONL object
// under {prefix}/YYYY/MM/DD/{runID}.jsonl.
type ResultArchiver struct {
	writer domain.BlobWriter
	prefix string
	now    func() time.Time
}

// NewResultArchiver creates a ResultArchiver. An empty prefix writes at the
// bucket root.
func NewResultArchiver(writer domain.BlobWriter, prefix string) *ResultArchiver {
	return &ResultArchiver{
		writer: writer,
		prefix: strings.Trim(prefix, "/"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Archive uploads results and returns the object key. An empty result set
// writes nothing and returns an empty key.
func (a *ResultArchiver) Archive(ctx context.Context, runID string, results []domain.HedgeResult) (string, error) {
	if runID == "" {
		return "", errors.New("s3blob: archive: empty run id")
	}
	if len(results) == 0 {
		return "", nil
	}

	buf, err := marshalJSONL(results)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive %s: %w", runID, err)
	}

	key := a.objectKey(runID)
	if len(buf) > multipartThreshold {
		err = a.writer.PutMultipart(ctx, key, bytes.NewReader(buf), minPartSize)
	} else {
		err = a.writer.Put(ctx, key, bytes.NewReader(buf), "application/x-ndjson")
	}
	if err != nil {
		return "", fmt.Errorf("s3blob: archive %s: %w", runID, err)
	}
	return key, nil
}

func (a *ResultArchiver) objectKey(runID string) string {
	return path.Join(a.prefix, a.now().Format("2006/01/02"), runID+".jsonl")
}

// marshalJSONL encodes each record as one compact JSON line.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

var _ domain.ResultArchiver = (*ResultArchiver)(nil)
