package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Venue names one side of the hedge. Leg A always trades on Nado, leg B on
// Lighter.
type Venue string

const (
	VenueNado    Venue = "nado"
	VenueLighter Venue = "lighter"
)

// HedgeDirection holds the side of each leg. The sides are always opposite.
type HedgeDirection struct {
	LegA OrderSide `json:"leg_a"`
	LegB OrderSide `json:"leg_b"`
}

// HedgeLegPrice holds the slippage-adjusted execution price of each leg.
type HedgeLegPrice struct {
	LegA decimal.Decimal `json:"leg_a"`
	LegB decimal.Decimal `json:"leg_b"`
}

// HedgeOutcome is the terminal state of one hedge attempt.
type HedgeOutcome string

const (
	OutcomeNotSubmitted      HedgeOutcome = "not_submitted"
	OutcomeBothAccepted      HedgeOutcome = "both_accepted"
	OutcomePartiallyAccepted HedgeOutcome = "partially_accepted"
	OutcomeBothRejected      HedgeOutcome = "both_rejected"
)

// LegResult is one venue's outcome within a hedge attempt.
type LegResult struct {
	Venue    Venue           `json:"venue"`
	Side     OrderSide       `json:"side"`
	Price    decimal.Decimal `json:"price"`
	Size     decimal.Decimal `json:"size"`
	Accepted bool            `json:"accepted"`
	OrderID  string          `json:"order_id,omitempty"`
	Status   OrderStatus     `json:"status,omitempty"`
	Error    string          `json:"error,omitempty"`
	Raw      map[string]any  `json:"raw,omitempty"`
}

// FillStatus is the post-submission status of both legs.
type FillStatus struct {
	LegA OrderStatus `json:"leg_a"`
	LegB OrderStatus `json:"leg_b"`
}

// HedgeResult is produced once per hedge attempt and never merged with other
// attempts.
type HedgeResult struct {
	ID              string          `json:"id"`
	Success         bool            `json:"success"`
	Closing         bool            `json:"closing"`
	Coin            string          `json:"coin"`
	Size            decimal.Decimal `json:"size"`
	Outcome         HedgeOutcome    `json:"outcome"`
	Direction       *HedgeDirection `json:"direction,omitempty"`
	Prices          *HedgeLegPrice  `json:"prices,omitempty"`
	LegA            *LegResult      `json:"leg_a,omitempty"`
	LegB            *LegResult      `json:"leg_b,omitempty"`
	FillStatus      *FillStatus     `json:"fill_status,omitempty"`
	ExecutionTimeMs int64           `json:"execution_time_ms"`
	Timestamp       time.Time       `json:"timestamp"`
	Message         string          `json:"message,omitempty"`
	Error           string          `json:"error,omitempty"`

	// Err keeps the typed error for errors.Is/As; not serialised.
	Err error `json:"-"`
}

// SpreadInfo compares the two venues' books for a coin.
type SpreadInfo struct {
	Coin             string  `json:"coin"`
	LegA             Quote   `json:"leg_a"`
	LegB             Quote   `json:"leg_b"`
	PriceDiff        float64 `json:"price_diff"`
	PriceDiffPercent float64 `json:"price_diff_percent"`
	Recommendation   string  `json:"recommendation"`
}

// Position is a non-zero perp position on one venue.
type Position struct {
	Venue     Venue           `json:"venue"`
	Symbol    string          `json:"symbol"`
	ProductID int64           `json:"product_id"`
	Size      decimal.Decimal `json:"size"` // signed: long positive, short negative
}
