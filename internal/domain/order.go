package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// OrderSide indicates whether a leg buys or sells.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// Opposite returns the other side.
func (s OrderSide) Opposite() OrderSide {
	if s == OrderSideBuy {
		return OrderSideSell
	}
	return OrderSideBuy
}

// OrderType is the operator-facing order style: "ioc" sends marketable
// immediate-or-cancel orders, "limit" rests at the computed price.
type OrderType string

const (
	OrderTypeIOC   OrderType = "ioc"
	OrderTypeLimit OrderType = "limit"
)

// ParseOrderType validates an operator-supplied order type.
func ParseOrderType(s string) (OrderType, error) {
	switch OrderType(strings.ToLower(strings.TrimSpace(s))) {
	case OrderTypeIOC:
		return OrderTypeIOC, nil
	case OrderTypeLimit:
		return OrderTypeLimit, nil
	}
	return "", fmt.Errorf("%w: unknown order type %q (valid: ioc, limit)", ErrConfiguration, s)
}

// OrderStatus is the last known venue-side state of a submitted leg.
type OrderStatus string

const (
	OrderStatusPending OrderStatus = "pending"
	OrderStatusOpen    OrderStatus = "open"
	OrderStatusClosed  OrderStatus = "closed" // filled or cancelled, no longer resting
	OrderStatusUnknown OrderStatus = "unknown"
)

// LegOrder is the venue-neutral description of one hedge leg.
type LegOrder struct {
	Coin       string
	Side       OrderSide
	Type       OrderType
	Price      decimal.Decimal
	Size       decimal.Decimal
	ReduceOnly bool
}

// OrderAck is what a venue returned for an accepted leg.
type OrderAck struct {
	OrderID string
	Raw     map[string]any
}
