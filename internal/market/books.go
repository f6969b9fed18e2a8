// Package market turns venue order books into normalized snapshots and
// compares them across venues.
package market

import (
	"context"
	"fmt"
	"time"

	"github.com/alanyoungcy/hedgebot/internal/domain"
	"github.com/alanyoungcy/hedgebot/internal/numeric"
	"github.com/alanyoungcy/hedgebot/internal/platform/lighter"
	"github.com/alanyoungcy/hedgebot/internal/platform/nado"
)

// DefaultDepth is the number of levels requested per side.
const DefaultDepth = 20

// BookSource fetches one venue's book for a coin ticker such as "BTC".
type BookSource interface {
	Venue() domain.Venue
	Book(ctx context.Context, coin string) (domain.OrderbookSnapshot, error)
}

// ProductResolver maps a Nado symbol to its product id.
type ProductResolver interface {
	ProductID(ctx context.Context, symbol string) (int64, error)
}

type nadoLiquidityAPI interface {
	MarketLiquidity(ctx context.Context, productID int64, depth int) (nado.MarketLiquidity, error)
}

// NadoBooks reads X18 depth from the Nado gateway.
type NadoBooks struct {
	api      nadoLiquidityAPI
	products ProductResolver
	depth    int
	now      func() time.Time
}

// NewNadoBooks creates a Nado book source.
func NewNadoBooks(api nadoLiquidityAPI, products ProductResolver, depth int) *NadoBooks {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &NadoBooks{api: api, products: products, depth: depth, now: time.Now}
}

func (n *NadoBooks) Venue() domain.Venue { return domain.VenueNado }

// Book returns the normalized Nado book for coin.
func (n *NadoBooks) Book(ctx context.Context, coin string) (domain.OrderbookSnapshot, error) {
	symbol, err := nado.CoinToSymbol(coin)
	if err != nil {
		return domain.OrderbookSnapshot{}, err
	}
	pid, err := n.products.ProductID(ctx, symbol)
	if err != nil {
		return domain.OrderbookSnapshot{}, err
	}
	liq, err := n.api.MarketLiquidity(ctx, pid, n.depth)
	if err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("%w: nado %s book: %w", domain.ErrMarketData, symbol, err)
	}
	return NadoSnapshot(symbol, liq, n.now())
}

// NadoSnapshot normalizes a market_liquidity reply.
func NadoSnapshot(symbol string, liq nado.MarketLiquidity, ts time.Time) (domain.OrderbookSnapshot, error) {
	bids, err := nadoLevels(liq.Bids)
	if err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("%w: nado %s bids: %w", domain.ErrMarketData, symbol, err)
	}
	asks, err := nadoLevels(liq.Asks)
	if err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("%w: nado %s asks: %w", domain.ErrMarketData, symbol, err)
	}
	return domain.NewOrderbookSnapshot(domain.VenueNado, symbol, bids, asks, ts), nil
}

func nadoLevels(in [][2]nado.X18) ([]domain.PriceLevel, error) {
	out := make([]domain.PriceLevel, 0, len(in))
	for _, l := range in {
		price, err := nado.ParseX18(l[0])
		if err != nil {
			return nil, err
		}
		size, err := nado.ParseX18(l[1])
		if err != nil {
			return nil, err
		}
		out = append(out, domain.PriceLevel{Price: price, Size: size})
	}
	return out, nil
}

type lighterBookAPI interface {
	OrderBook(ctx context.Context, symbol string, depth int) (lighter.OrderBook, error)
}

// LighterBooks reads decimal-string depth from Lighter.
type LighterBooks struct {
	api   lighterBookAPI
	depth int
	now   func() time.Time
}

// NewLighterBooks creates a Lighter book source.
func NewLighterBooks(api lighterBookAPI, depth int) *LighterBooks {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &LighterBooks{api: api, depth: depth, now: time.Now}
}

func (l *LighterBooks) Venue() domain.Venue { return domain.VenueLighter }

// Book returns the normalized Lighter book for coin.
func (l *LighterBooks) Book(ctx context.Context, coin string) (domain.OrderbookSnapshot, error) {
	symbol := lighter.CoinToSymbol(coin)
	if _, err := lighter.OrderBookID(symbol); err != nil {
		return domain.OrderbookSnapshot{}, err
	}
	ob, err := l.api.OrderBook(ctx, symbol, l.depth)
	if err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("%w: lighter %s book: %w", domain.ErrMarketData, symbol, err)
	}
	bids, err := decimalLevels(ob.Bids)
	if err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("%w: lighter %s bids: %w", domain.ErrMarketData, symbol, err)
	}
	asks, err := decimalLevels(ob.Asks)
	if err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("%w: lighter %s asks: %w", domain.ErrMarketData, symbol, err)
	}
	return domain.NewOrderbookSnapshot(domain.VenueLighter, symbol, bids, asks, l.now()), nil
}

func decimalLevels(in [][2]string) ([]domain.PriceLevel, error) {
	out := make([]domain.PriceLevel, 0, len(in))
	for _, l := range in {
		price, err := numeric.ParseDecimal(l[0])
		if err != nil {
			return nil, err
		}
		size, err := numeric.ParseDecimal(l[1])
		if err != nil {
			return nil, err
		}
		out = append(out, domain.PriceLevel{Price: price, Size: size})
	}
	return out, nil
}
