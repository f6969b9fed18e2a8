package executor

import (
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/hedgebot/internal/domain"
	"github.com/alanyoungcy/hedgebot/internal/market"
)

// DefaultMinNotionalUSD is the per-leg floor both venues enforce.
var DefaultMinNotionalUSD = decimal.NewFromInt(10)

// ResolveDirection picks the leg sides from the two mids. Opening buys the
// cheaper venue and sells the richer one; closing inverts both. A tie takes
// the buy-A branch.
func ResolveDirection(midA, midB decimal.Decimal, closing bool) domain.HedgeDirection {
	legA := domain.OrderSideBuy
	if midA.GreaterThan(midB) {
		legA = domain.OrderSideSell
	}
	if closing {
		legA = legA.Opposite()
	}
	return domain.HedgeDirection{LegA: legA, LegB: legA.Opposite()}
}

var one = decimal.NewFromInt(1)

// LegPrice is the marketable price for side on book: best ask x (1+slippage)
// for a buy, best bid x (1-slippage) for a sell. Slippage is not validated.
func LegPrice(book domain.OrderbookSnapshot, side domain.OrderSide, slippage decimal.Decimal) decimal.Decimal {
	if side == domain.OrderSideBuy {
		return book.BestAsk.Mul(one.Add(slippage))
	}
	return book.BestBid.Mul(one.Sub(slippage))
}

// PriceCalculator applies slippage and rounding to both legs.
type PriceCalculator struct {
	Slippage decimal.Decimal
	// Decimals is the price grid; negative disables rounding. Buys round up
	// and sells round down so a rounded price never crosses the book.
	Decimals int32
}

// Prices returns the execution price of each leg.
func (c PriceCalculator) Prices(pair market.Pair, dir domain.HedgeDirection) domain.HedgeLegPrice {
	return domain.HedgeLegPrice{
		LegA: c.round(LegPrice(pair.A, dir.LegA, c.Slippage), dir.LegA),
		LegB: c.round(LegPrice(pair.B, dir.LegB, c.Slippage), dir.LegB),
	}
}

func (c PriceCalculator) round(price decimal.Decimal, side domain.OrderSide) decimal.Decimal {
	if c.Decimals < 0 {
		return price
	}
	if side == domain.OrderSideBuy {
		return price.RoundCeil(c.Decimals)
	}
	return price.RoundFloor(c.Decimals)
}

// ValidateNotional fails when size x price is below floor on either leg.
// Leg A is checked first.
func ValidateNotional(size decimal.Decimal, prices domain.HedgeLegPrice, floor decimal.Decimal) error {
	if n := size.Mul(prices.LegA); n.LessThan(floor) {
		return &domain.NotionalError{Venue: domain.VenueNado, Notional: n, Floor: floor}
	}
	if n := size.Mul(prices.LegB); n.LessThan(floor) {
		return &domain.NotionalError{Venue: domain.VenueLighter, Notional: n, Floor: floor}
	}
	return nil
}
