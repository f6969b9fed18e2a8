package s3blob

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/hedgebot/internal/domain"
)

type fakeWriter struct {
	path        string
	contentType string
	body        []byte
	multipart   bool
	err         error
}

func (f *fakeWriter) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	if f.err != nil {
		return f.err
	}
	f.path, f.contentType = path, contentType
	f.body, _ = io.ReadAll(data)
	return nil
}

func (f *fakeWriter) PutMultipart(_ context.Context, path string, data io.Reader, _ int64) error {
	f.multipart = true
	f.path = path
	f.body, _ = io.ReadAll(data)
	return f.err
}

func TestArchiveWritesJSONL(t *testing.T) {
	w := &fakeWriter{}
	a := NewResultArchiver(w, "/hedgebot/runs/")
	a.now = func() time.Time { return time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC) }

	results := []domain.HedgeResult{
		{ID: "h1", Coin: "BTC", Size: decimal.RequireFromString("0.002"), Success: true},
		{ID: "h2", Coin: "BTC", Size: decimal.RequireFromString("0.002"), Closing: true},
	}
	key, err := a.Archive(context.Background(), "run-1", results)
	if err != nil {
		t.Fatal(err)
	}
	if key != "hedgebot/runs/2026/03/07/run-1.jsonl" || w.path != key {
		t.Fatalf("key %q path %q", key, w.path)
	}
	if w.contentType != "application/x-ndjson" || w.multipart {
		t.Fatalf("content type %q multipart %v", w.contentType, w.multipart)
	}

	var ids []string
	sc := bufio.NewScanner(bytes.NewReader(w.body))
	for sc.Scan() {
		var r domain.HedgeResult
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, r.ID)
	}
	if len(ids) != 2 || ids[0] != "h1" || ids[1] != "h2" {
		t.Fatalf("lines %v", ids)
	}
}

func TestArchiveEmptyAndErrors(t *testing.T) {
	w := &fakeWriter{}
	a := NewResultArchiver(w, "")
	key, err := a.Archive(context.Background(), "run", nil)
	if err != nil || key != "" || w.path != "" {
		t.Fatalf("empty archive wrote %q, %v", key, err)
	}
	if _, err := a.Archive(context.Background(), "", []domain.HedgeResult{{ID: "x"}}); err == nil {
		t.Fatal("expected error for empty run id")
	}

	boom := errors.New("denied")
	w.err = boom
	if _, err := a.Archive(context.Background(), "run", []domain.HedgeResult{{ID: "x"}}); !errors.Is(err, boom) {
		t.Fatalf("got %v", err)
	}
}

func TestArchiveNoPrefix(t *testing.T) {
	a := NewResultArchiver(&fakeWriter{}, "")
	a.now = func() time.Time { return time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC) }
	if got := a.objectKey("r"); got != "2026/12/31/r.jsonl" {
		t.Fatalf("got %q", got)
	}
}

func TestNormaliseEndpoint(t *testing.T) {
	tests := []struct {
		in   string
		ssl  bool
		want string
	}{
		{"https://s3.example.com", false, "https://s3.example.com"},
		{"minio:9000", false, "http://minio:9000"},
		{"r2.example.com", true, "https://r2.example.com"},
	}
	for _, tt := range tests {
		if got := normaliseEndpoint(tt.in, tt.ssl); got != tt.want {
			t.Errorf("normaliseEndpoint(%q, %v) = %q, want %q", tt.in, tt.ssl, got, tt.want)
		}
	}
}

func TestNewRequiresBucketAndRegion(t *testing.T) {
	if _, err := New(context.Background(), ClientConfig{Region: "us-east-1"}); err == nil {
		t.Fatal("expected bucket error")
	}
	if _, err := New(context.Background(), ClientConfig{Bucket: "b"}); err == nil {
		t.Fatal("expected region error")
	}
}
