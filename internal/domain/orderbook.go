package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// PriceLevel is a single price+size entry in an orderbook.
type PriceLevel struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// OrderbookSnapshot is an immutable view of one venue's book for a symbol.
// Bids are ordered best-first (descending), asks best-first (ascending).
type OrderbookSnapshot struct {
	Venue     Venue
	Symbol    string
	Bids      []PriceLevel
	Asks      []PriceLevel
	BestBid   decimal.Decimal
	BestAsk   decimal.Decimal
	Timestamp time.Time
}

// NewOrderbookSnapshot copies and orders the given levels and derives the
// best prices. Levels with a non-positive price or size are dropped.
func NewOrderbookSnapshot(venue Venue, symbol string, bids, asks []PriceLevel, ts time.Time) OrderbookSnapshot {
	b := cleanLevels(bids)
	a := cleanLevels(asks)
	sort.SliceStable(b, func(i, j int) bool { return b[i].Price.GreaterThan(b[j].Price) })
	sort.SliceStable(a, func(i, j int) bool { return a[i].Price.LessThan(a[j].Price) })

	snap := OrderbookSnapshot{
		Venue:     venue,
		Symbol:    symbol,
		Bids:      b,
		Asks:      a,
		Timestamp: ts,
	}
	if len(b) > 0 {
		snap.BestBid = b[0].Price
	}
	if len(a) > 0 {
		snap.BestAsk = a[0].Price
	}
	return snap
}

func cleanLevels(in []PriceLevel) []PriceLevel {
	out := make([]PriceLevel, 0, len(in))
	for _, l := range in {
		if l.Price.Sign() <= 0 || l.Size.Sign() <= 0 {
			continue
		}
		out = append(out, l)
	}
	return out
}

// HasBothSides reports whether mid and spread are defined.
func (s OrderbookSnapshot) HasBothSides() bool {
	return len(s.Bids) > 0 && len(s.Asks) > 0
}

// Mid returns (bestBid+bestAsk)/2. ok is false when either side is empty.
func (s OrderbookSnapshot) Mid() (mid decimal.Decimal, ok bool) {
	if !s.HasBothSides() {
		return decimal.Zero, false
	}
	return s.BestBid.Add(s.BestAsk).Div(decimal.NewFromInt(2)), true
}

// Spread returns bestAsk-bestBid. ok is false when either side is empty.
func (s OrderbookSnapshot) Spread() (spread decimal.Decimal, ok bool) {
	if !s.HasBothSides() {
		return decimal.Zero, false
	}
	return s.BestAsk.Sub(s.BestBid), true
}

// Quote is the top-of-book summary used for display.
type Quote struct {
	Bid float64 `json:"bid"`
	Ask float64 `json:"ask"`
	Mid float64 `json:"mid"`
}

// Quote summarises the snapshot as display floats.
func (s OrderbookSnapshot) Quote() Quote {
	mid, _ := s.Mid()
	return Quote{
		Bid: s.BestBid.InexactFloat64(),
		Ask: s.BestAsk.InexactFloat64(),
		Mid: mid.InexactFloat64(),
	}
}
