package market

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alanyoungcy/hedgebot/internal/domain"
	"github.com/alanyoungcy/hedgebot/internal/platform/nado"
)

type symbolLister interface {
	Symbols(ctx context.Context) (nado.SymbolsResponse, error)
}

// ProductDirectory owns the symbol -> Nado product id mapping. It is filled
// once from the symbols query (or a shared cache) and then only read;
// entries are never invalidated. Safe for concurrent use.
type ProductDirectory struct {
	source symbolLister
	shared domain.ProductCache // optional
	logger *slog.Logger

	mu     sync.RWMutex
	ids    map[string]int64
	loaded bool
	loadMu sync.Mutex
}

// NewProductDirectory creates a directory backed by source. shared may be
// nil.
func NewProductDirectory(source symbolLister, shared domain.ProductCache, logger *slog.Logger) *ProductDirectory {
	return &ProductDirectory{
		source: source,
		shared: shared,
		logger: logger.With(slog.String("component", "product_directory")),
		ids:    make(map[string]int64),
	}
}

// ProductID returns the product id for symbol ("BTC-PERP").
func (d *ProductDirectory) ProductID(ctx context.Context, symbol string) (int64, error) {
	if id, ok := d.lookup(symbol); ok {
		return id, nil
	}

	if d.shared != nil {
		id, err := d.shared.GetProductID(ctx, symbol)
		switch {
		case err == nil:
			d.store(symbol, id)
			return id, nil
		case !errors.Is(err, domain.ErrNotFound):
			d.logger.WarnContext(ctx, "shared product cache lookup failed",
				slog.String("symbol", symbol),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := d.load(ctx); err != nil {
		return 0, err
	}
	if id, ok := d.lookup(symbol); ok {
		return id, nil
	}
	return 0, fmt.Errorf("%w: nado symbol %q not listed", domain.ErrConfiguration, symbol)
}

// Preload fills the directory from the venue.
func (d *ProductDirectory) Preload(ctx context.Context) error {
	return d.load(ctx)
}

// Symbol is the reverse lookup of ProductID over the symbols seen so far.
func (d *ProductDirectory) Symbol(productID int64) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for sym, id := range d.ids {
		if id == productID {
			return sym, true
		}
	}
	return "", false
}

// Len returns the number of known symbols.
func (d *ProductDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.ids)
}

func (d *ProductDirectory) lookup(symbol string) (int64, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.ids[symbol]
	return id, ok
}

func (d *ProductDirectory) store(symbol string, id int64) {
	d.mu.Lock()
	d.ids[symbol] = id
	d.mu.Unlock()
}

// load queries the symbols list once per process; concurrent callers wait
// for the first.
func (d *ProductDirectory) load(ctx context.Context) error {
	d.loadMu.Lock()
	defer d.loadMu.Unlock()

	d.mu.RLock()
	loaded := d.loaded
	d.mu.RUnlock()
	if loaded {
		return nil
	}

	resp, err := d.source.Symbols(ctx)
	if err != nil {
		return fmt.Errorf("%w: nado symbols: %w", domain.ErrMarketData, err)
	}

	d.mu.Lock()
	for key, info := range resp.Symbols {
		sym := info.Symbol
		if sym == "" {
			sym = key
		}
		d.ids[sym] = info.ProductID
	}
	d.loaded = true
	d.mu.Unlock()

	if d.shared != nil {
		for key, info := range resp.Symbols {
			sym := info.Symbol
			if sym == "" {
				sym = key
			}
			if err := d.shared.SetProductID(ctx, sym, info.ProductID); err != nil {
				d.logger.WarnContext(ctx, "shared product cache write failed",
					slog.String("symbol", sym),
					slog.String("error", err.Error()),
				)
				break
			}
		}
	}

	d.logger.DebugContext(ctx, "product directory loaded", slog.Int("symbols", len(resp.Symbols)))
	return nil
}
