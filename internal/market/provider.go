package market

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/hedgebot/internal/domain"
)

// Pair is both venues' books for a coin, fetched together.
type Pair struct {
	Coin string
	A    domain.OrderbookSnapshot // Nado
	B    domain.OrderbookSnapshot // Lighter
}

// Mids returns both mid prices, or ErrMarketData naming the venue whose book
// is one-sided.
func (p Pair) Mids() (midA, midB decimal.Decimal, err error) {
	midA, ok := p.A.Mid()
	if !ok {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: %s %s book has an empty side", domain.ErrMarketData, p.A.Venue, p.A.Symbol)
	}
	midB, ok = p.B.Mid()
	if !ok {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: %s %s book has an empty side", domain.ErrMarketData, p.B.Venue, p.B.Symbol)
	}
	return midA, midB, nil
}

// SnapshotProvider fetches leg A and leg B books.
type SnapshotProvider struct {
	a BookSource
	b BookSource
}

// NewSnapshotProvider pairs the leg A and leg B sources.
func NewSnapshotProvider(a, b BookSource) *SnapshotProvider {
	return &SnapshotProvider{a: a, b: b}
}

// FetchPair queries both venues concurrently and returns only once both
// have answered. Either failure fails the pair.
func (p *SnapshotProvider) FetchPair(ctx context.Context, coin string) (Pair, error) {
	out := Pair{Coin: coin}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		snap, err := p.a.Book(gctx, coin)
		if err != nil {
			return err
		}
		out.A = snap
		return nil
	})
	g.Go(func() error {
		snap, err := p.b.Book(gctx, coin)
		if err != nil {
			return err
		}
		out.B = snap
		return nil
	})
	if err := g.Wait(); err != nil {
		return Pair{}, err
	}
	return out, nil
}

// minSpreadPercent is the threshold below which a hedge is not worth it.
var minSpreadPercent = decimal.RequireFromString("0.01")

// Spread compares the venues' mids for coin.
func (p *SnapshotProvider) Spread(ctx context.Context, coin string) (domain.SpreadInfo, error) {
	pair, err := p.FetchPair(ctx, coin)
	if err != nil {
		return domain.SpreadInfo{}, err
	}
	return SpreadOf(pair)
}

// SpreadOf computes the spread summary of a fetched pair.
func SpreadOf(pair Pair) (domain.SpreadInfo, error) {
	midA, midB, err := pair.Mids()
	if err != nil {
		return domain.SpreadInfo{}, err
	}
	diff := midA.Sub(midB)
	pct := decimal.Zero
	if midA.Sign() != 0 {
		pct = diff.Div(midA).Mul(decimal.NewFromInt(100))
	}

	rec := "buy nado / sell lighter"
	switch {
	case pct.Abs().LessThan(minSpreadPercent):
		rec = "spread too small"
	case diff.Sign() > 0:
		rec = "sell nado / buy lighter"
	}

	return domain.SpreadInfo{
		Coin:             pair.Coin,
		LegA:             pair.A.Quote(),
		LegB:             pair.B.Quote(),
		PriceDiff:        diff.InexactFloat64(),
		PriceDiffPercent: pct.InexactFloat64(),
		Recommendation:   rec,
	}, nil
}
