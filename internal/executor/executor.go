// Package executor places a hedge as two opposite legs on two venues. It
// resolves the direction from both books, prices each leg with slippage,
// validates notional before anything is sent, then submits both legs
// together and classifies the outcome. A partially accepted hedge is
// reported, never unwound automatically.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/hedgebot/internal/domain"
	"github.com/alanyoungcy/hedgebot/internal/market"
)

// PairFetcher returns both venues' books for a coin.
type PairFetcher interface {
	FetchPair(ctx context.Context, coin string) (market.Pair, error)
}

// Config controls pricing and validation.
type Config struct {
	Slippage       decimal.Decimal
	OrderType      domain.OrderType
	MinNotionalUSD decimal.Decimal
	PriceDecimals  int32
	// ReduceOnlyOnClose marks closing legs reduce-only on both venues.
	ReduceOnlyOnClose bool
}

// HedgeRequest asks for one hedge attempt.
type HedgeRequest struct {
	Coin    string
	Size    decimal.Decimal
	Closing bool
}

// HedgePlan is a validated hedge that has not been submitted.
type HedgePlan struct {
	Request   HedgeRequest
	Pair      market.Pair
	Direction domain.HedgeDirection
	Prices    domain.HedgeLegPrice
	LegA      domain.LegOrder
	LegB      domain.LegOrder
}

// Executor runs hedge attempts. It holds no per-attempt state, so attempts
// never share results.
type Executor struct {
	books  PairFetcher
	legA   LegSubmitter
	legB   LegSubmitter
	fills  *FillChecker
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// New creates an Executor. legA trades on Nado, legB on Lighter.
func New(books PairFetcher, legA, legB LegSubmitter, cfg Config, logger *slog.Logger) *Executor {
	if cfg.OrderType == "" {
		cfg.OrderType = domain.OrderTypeIOC
	}
	if cfg.MinNotionalUSD.IsZero() {
		cfg.MinNotionalUSD = DefaultMinNotionalUSD
	}
	return &Executor{
		books:  books,
		legA:   legA,
		legB:   legB,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "executor")),
		now:    time.Now,
	}
}

// SetFillChecker enables post-submission status checks.
func (e *Executor) SetFillChecker(f *FillChecker) {
	e.fills = f
}

// Plan fetches both books, resolves direction and prices, and validates
// notional. Nothing is submitted.
func (e *Executor) Plan(ctx context.Context, req HedgeRequest) (HedgePlan, error) {
	plan := HedgePlan{Request: req}
	if req.Size.Sign() <= 0 {
		return plan, fmt.Errorf("%w: hedge size must be positive, got %s", domain.ErrConfiguration, req.Size)
	}

	pair, err := e.books.FetchPair(ctx, req.Coin)
	if err != nil {
		return plan, err
	}
	plan.Pair = pair

	midA, midB, err := pair.Mids()
	if err != nil {
		return plan, err
	}
	plan.Direction = ResolveDirection(midA, midB, req.Closing)

	calc := PriceCalculator{Slippage: e.cfg.Slippage, Decimals: e.cfg.PriceDecimals}
	plan.Prices = calc.Prices(pair, plan.Direction)

	reduceOnly := req.Closing && e.cfg.ReduceOnlyOnClose
	plan.LegA = domain.LegOrder{
		Coin: req.Coin, Side: plan.Direction.LegA, Type: e.cfg.OrderType,
		Price: plan.Prices.LegA, Size: req.Size, ReduceOnly: reduceOnly,
	}
	plan.LegB = domain.LegOrder{
		Coin: req.Coin, Side: plan.Direction.LegB, Type: e.cfg.OrderType,
		Price: plan.Prices.LegB, Size: req.Size, ReduceOnly: reduceOnly,
	}

	if err := ValidateNotional(req.Size, plan.Prices, e.cfg.MinNotionalUSD); err != nil {
		return plan, err
	}
	return plan, nil
}

// Execute runs one full hedge attempt. The returned result is always
// populated; err is the same error as result.Err.
func (e *Executor) Execute(ctx context.Context, req HedgeRequest) (domain.HedgeResult, error) {
	start := e.now()
	res := domain.HedgeResult{
		ID:        uuid.New().String(),
		Closing:   req.Closing,
		Coin:      req.Coin,
		Size:      req.Size,
		Outcome:   domain.OutcomeNotSubmitted,
		Timestamp: start.UTC(),
	}
	log := e.logger.With(
		slog.String("hedge_id", res.ID),
		slog.String("coin", req.Coin),
		slog.String("size", req.Size.String()),
		slog.Bool("closing", req.Closing),
	)

	plan, err := e.Plan(ctx, req)
	if plan.Direction.LegA != "" {
		res.Direction = &plan.Direction
		res.Prices = &plan.Prices
	}
	if err != nil {
		log.WarnContext(ctx, "hedge not submitted", slog.String("error", err.Error()))
		return e.finish(res, start, err)
	}

	log.InfoContext(ctx, "submitting hedge legs",
		slog.String("leg_a_side", string(plan.LegA.Side)),
		slog.String("leg_a_price", plan.LegA.Price.String()),
		slog.String("leg_b_side", string(plan.LegB.Side)),
		slog.String("leg_b_price", plan.LegB.Price.String()),
	)

	legA, legB := e.submitBoth(ctx, plan)
	res.LegA, res.LegB = &legA.LegResult, &legB.LegResult

	switch {
	case legA.Accepted && legB.Accepted:
		res.Outcome = domain.OutcomeBothAccepted
		res.Success = true
		fs := domain.FillStatus{LegA: domain.OrderStatusPending, LegB: domain.OrderStatusPending}
		if e.fills != nil {
			fs = e.fills.Check(ctx, req.Coin, legA.OrderID, legB.OrderID)
			res.LegA.Status, res.LegB.Status = fs.LegA, fs.LegB
		}
		res.FillStatus = &fs
		log.InfoContext(ctx, "hedge accepted on both venues",
			slog.String("leg_a_order", legA.OrderID),
			slog.String("leg_b_order", legB.OrderID),
		)
		return e.finish(res, start, nil)

	case legA.Accepted || legB.Accepted:
		res.Outcome = domain.OutcomePartiallyAccepted
		perr := partialError(legA, legB)
		log.ErrorContext(ctx, "PARTIAL HEDGE: one leg accepted, the other failed; unhedged exposure remains",
			slog.String("accepted_venue", string(perr.AcceptedVenue)),
			slog.String("accepted_order", perr.AcceptedOrderID),
			slog.String("failed_venue", string(perr.FailedVenue)),
			slog.String("error", perr.Cause.Error()),
		)
		return e.finish(res, start, perr)

	default:
		res.Outcome = domain.OutcomeBothRejected
		err := errors.Join(legA.err, legB.err)
		log.ErrorContext(ctx, "hedge rejected on both venues", slog.String("error", err.Error()))
		return e.finish(res, start, err)
	}
}

// legOutcome is a LegResult plus the typed error behind it.
type legOutcome struct {
	domain.LegResult
	err error
}

// submitBoth sends both legs concurrently and waits for both. A failing leg
// does not cancel the other.
func (e *Executor) submitBoth(ctx context.Context, plan HedgePlan) (a, b legOutcome) {
	var g errgroup.Group
	g.Go(func() error {
		a = submitLeg(ctx, e.legA, plan.LegA)
		return nil
	})
	g.Go(func() error {
		b = submitLeg(ctx, e.legB, plan.LegB)
		return nil
	})
	_ = g.Wait()
	return a, b
}

func submitLeg(ctx context.Context, s LegSubmitter, o domain.LegOrder) legOutcome {
	out := legOutcome{LegResult: domain.LegResult{
		Venue: s.Venue(),
		Side:  o.Side,
		Price: o.Price,
		Size:  o.Size,
	}}
	ack, err := s.Submit(ctx, o)
	if err != nil {
		out.err = fmt.Errorf("%s leg: %w", s.Venue(), err)
		out.Error = out.err.Error()
		return out
	}
	out.Accepted = true
	out.OrderID = ack.OrderID
	out.Status = domain.OrderStatusPending
	out.Raw = ack.Raw
	return out
}

func partialError(a, b legOutcome) *domain.PartialHedgeError {
	if a.Accepted {
		return &domain.PartialHedgeError{
			AcceptedVenue: a.Venue, AcceptedOrderID: a.OrderID,
			FailedVenue: b.Venue, Cause: b.err,
		}
	}
	return &domain.PartialHedgeError{
		AcceptedVenue: b.Venue, AcceptedOrderID: b.OrderID,
		FailedVenue: a.Venue, Cause: a.err,
	}
}

func (e *Executor) finish(res domain.HedgeResult, start time.Time, err error) (domain.HedgeResult, error) {
	res.ExecutionTimeMs = e.now().Sub(start).Milliseconds()
	if err != nil {
		res.Err = err
		res.Error = err.Error()
	}
	return res, err
}
