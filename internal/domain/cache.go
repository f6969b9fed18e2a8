package domain

import (
	"context"
	"time"
)

// ProductCache is a shared symbol -> Nado product id mapping. Entries are
// only ever added.
type ProductCache interface {
	SetProductID(ctx context.Context, symbol string, productID int64) error
	GetProductID(ctx context.Context, symbol string) (int64, error)
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}
