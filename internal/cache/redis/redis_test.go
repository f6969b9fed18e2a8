package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/hedgebot/internal/domain"
)

// unreachable points at a closed port so commands fail fast without a
// server.
func unreachable() *Client {
	return NewFromClient(redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	}), "")
}

func TestKeyNamespace(t *testing.T) {
	c := unreachable()
	defer c.Close()

	if got := c.key("lock", "hedge:BTC"); got != "hedgebot:lock:hedge:BTC" {
		t.Fatalf("got %q", got)
	}
	pc := NewProductCache(c, "inkTestnet", time.Hour)
	if pc.key != "hedgebot:products:inkTestnet" {
		t.Fatalf("got %q", pc.key)
	}
}

func TestConnectionErrorsAreNotDomainErrors(t *testing.T) {
	c := unreachable()
	defer c.Close()
	ctx := context.Background()

	_, err := NewLockManager(c).Acquire(ctx, "hedge:BTC", time.Minute)
	if err == nil || errors.Is(err, domain.ErrLockHeld) {
		t.Fatalf("got %v", err)
	}

	_, err = NewProductCache(c, "inkMainnet", 0).GetProductID(ctx, "BTC-PERP")
	if err == nil || errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("got %v", err)
	}
}

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "")
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestLockExcludesSecondHolder(t *testing.T) {
	c, mr := newTestClient(t)
	lm := NewLockManager(c)
	ctx := context.Background()

	unlock, err := lm.Acquire(ctx, "hedge:BTC", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if !mr.Exists("hedgebot:lock:hedge:BTC") || mr.TTL("hedgebot:lock:hedge:BTC") != time.Minute {
		t.Fatalf("lock key ttl %v", mr.TTL("hedgebot:lock:hedge:BTC"))
	}

	if _, err := lm.Acquire(ctx, "hedge:BTC", time.Minute); !errors.Is(err, domain.ErrLockHeld) {
		t.Fatalf("second acquire: got %v", err)
	}
	if _, err := lm.Acquire(ctx, "hedge:ETH", time.Minute); err != nil {
		t.Fatalf("other coin: %v", err)
	}

	unlock()
	unlock()
	if mr.Exists("hedgebot:lock:hedge:BTC") {
		t.Fatal("lock still held after unlock")
	}
	if _, err := lm.Acquire(ctx, "hedge:BTC", time.Minute); err != nil {
		t.Fatalf("acquire after unlock: %v", err)
	}
}

func TestExpiredHolderCannotReleaseNewLock(t *testing.T) {
	c, mr := newTestClient(t)
	lm := NewLockManager(c)
	ctx := context.Background()

	stale, err := lm.Acquire(ctx, "hedge:BTC", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	mr.FastForward(2 * time.Second)

	fresh, err := lm.Acquire(ctx, "hedge:BTC", time.Minute)
	if err != nil {
		t.Fatalf("acquire after expiry: %v", err)
	}

	stale()
	if !mr.Exists("hedgebot:lock:hedge:BTC") {
		t.Fatal("expired holder released the new lock")
	}
	fresh()
	if mr.Exists("hedgebot:lock:hedge:BTC") {
		t.Fatal("lock still held after unlock")
	}
}

func TestProductCacheRoundTrip(t *testing.T) {
	c, mr := newTestClient(t)
	pc := NewProductCache(c, "inkMainnet", time.Hour)
	ctx := context.Background()

	if _, err := pc.GetProductID(ctx, "BTC-PERP"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("empty cache: got %v", err)
	}

	if err := pc.SetProductID(ctx, "BTC-PERP", 2); err != nil {
		t.Fatal(err)
	}
	if err := pc.SetProductID(ctx, "ETH-PERP", 4); err != nil {
		t.Fatal(err)
	}
	if got := mr.HGet("hedgebot:products:inkMainnet", "BTC-PERP"); got != "2" {
		t.Fatalf("hash field %q", got)
	}
	if ttl := mr.TTL("hedgebot:products:inkMainnet"); ttl != time.Hour {
		t.Fatalf("ttl %v", ttl)
	}

	id, err := pc.GetProductID(ctx, "ETH-PERP")
	if err != nil || id != 4 {
		t.Fatalf("got %d, %v", id, err)
	}
	if _, err := pc.GetProductID(ctx, "SOL-PERP"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing symbol: got %v", err)
	}

	mr.FastForward(2 * time.Hour)
	if _, err := pc.GetProductID(ctx, "BTC-PERP"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("after expiry: got %v", err)
	}
}

func TestProductCacheWithoutTTLPersists(t *testing.T) {
	c, mr := newTestClient(t)
	pc := NewProductCache(c, "inkTestnet", 0)

	if err := pc.SetProductID(context.Background(), "BTC-PERP", 2); err != nil {
		t.Fatal(err)
	}
	if ttl := mr.TTL("hedgebot:products:inkTestnet"); ttl != 0 {
		t.Fatalf("ttl %v", ttl)
	}
}
