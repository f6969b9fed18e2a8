package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// HedgeStore journals hedge attempts. The venues remain the system of record;
// the journal is for operators and post-mortems.
type HedgeStore interface {
	Save(ctx context.Context, result HedgeResult) error
	GetByID(ctx context.Context, id string) (HedgeResult, error)
	ListRecent(ctx context.Context, limit int) ([]HedgeResult, error)
	ListPartial(ctx context.Context, opts ListOpts) ([]HedgeResult, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
