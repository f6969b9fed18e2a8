// Package service implements the operator-level hedge operations on top of
// the dual-leg executor: open, close, roundtrip, loop, status, spread and
// cancel. Results are journalled and announced here; rendering belongs to the
// caller.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/hedgebot/internal/domain"
	"github.com/alanyoungcy/hedgebot/internal/executor"
	"github.com/alanyoungcy/hedgebot/internal/notify"
	"github.com/alanyoungcy/hedgebot/internal/numeric"
	"github.com/alanyoungcy/hedgebot/internal/platform/lighter"
	"github.com/alanyoungcy/hedgebot/internal/platform/nado"
)

// NoPositionsMessage is the message of a close that found nothing to close.
const NoPositionsMessage = "No positions to close"

type hedgeExecutor interface {
	Plan(ctx context.Context, req executor.HedgeRequest) (executor.HedgePlan, error)
	Execute(ctx context.Context, req executor.HedgeRequest) (domain.HedgeResult, error)
}

type spreadSource interface {
	Spread(ctx context.Context, coin string) (domain.SpreadInfo, error)
}

type productLookup interface {
	ProductID(ctx context.Context, symbol string) (int64, error)
	Symbol(productID int64) (string, bool)
	Preload(ctx context.Context) error
}

type nadoAccount interface {
	SubaccountInfo(ctx context.Context) (nado.SubaccountInfo, error)
	PerpPosition(ctx context.Context, productID int64) (decimal.Decimal, error)
	CancelProductOrders(ctx context.Context, productIDs []int64) (nado.CancelResult, error)
}

type lighterAccount interface {
	Positions(ctx context.Context) ([]lighter.Position, error)
}

// Config tunes the hedge operations.
type Config struct {
	RoundtripPause  time.Duration
	QueryRetries    int
	QueryRetryDelay time.Duration
}

// DefaultConfig returns the defaults used by the CLI.
func DefaultConfig() Config {
	return Config{
		RoundtripPause:  2 * time.Second,
		QueryRetries:    2,
		QueryRetryDelay: 500 * time.Millisecond,
	}
}

// HedgeService runs hedge operations for one pair of venue accounts.
type HedgeService struct {
	exec     hedgeExecutor
	spreads  spreadSource
	products productLookup
	nado     nadoAccount
	lighter  lighterAccount
	hedges   domain.HedgeStore // optional
	audit    domain.AuditStore // optional
	notifier *notify.Notifier  // optional
	cfg      Config
	logger   *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewHedgeService creates a HedgeService. hedges, audit and notifier may be
// nil.
func NewHedgeService(
	exec hedgeExecutor,
	spreads spreadSource,
	products productLookup,
	nadoAcct nadoAccount,
	lighterAcct lighterAccount,
	hedges domain.HedgeStore,
	audit domain.AuditStore,
	notifier *notify.Notifier,
	cfg Config,
	logger *slog.Logger,
) *HedgeService {
	return &HedgeService{
		exec:     exec,
		spreads:  spreads,
		products: products,
		nado:     nadoAcct,
		lighter:  lighterAcct,
		hedges:   hedges,
		audit:    audit,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "hedge_service")),
		sleep:    sleepContext,
	}
}

// Open opens a hedge of size on coin.
func (s *HedgeService) Open(ctx context.Context, coin string, size decimal.Decimal) (domain.HedgeResult, error) {
	coin = normalizeCoin(coin)
	if size.Sign() <= 0 {
		return domain.HedgeResult{}, fmt.Errorf("%w: size must be positive, got %s", domain.ErrConfiguration, size)
	}
	res, err := s.exec.Execute(ctx, executor.HedgeRequest{Coin: coin, Size: size})
	s.record(ctx, res)
	return res, err
}

// Close closes a hedge on coin. A zero size means the full Nado position;
// when that is zero too, Close succeeds without submitting anything.
func (s *HedgeService) Close(ctx context.Context, coin string, size decimal.Decimal) (domain.HedgeResult, error) {
	coin = normalizeCoin(coin)
	size, err := s.closeSize(ctx, coin, size)
	if err != nil {
		return domain.HedgeResult{}, err
	}
	if size.IsZero() {
		s.logger.InfoContext(ctx, "no position to close", slog.String("coin", coin))
		return domain.HedgeResult{
			Success:   true,
			Closing:   true,
			Coin:      coin,
			Outcome:   domain.OutcomeNotSubmitted,
			Timestamp: time.Now().UTC(),
			Message:   NoPositionsMessage,
		}, nil
	}

	res, err := s.exec.Execute(ctx, executor.HedgeRequest{Coin: coin, Size: size, Closing: true})
	s.record(ctx, res)
	return res, err
}

// Plan resolves what Open (closing=false) or Close would submit without
// sending anything. A zero size on close resolves the Nado position first;
// ok is false when there is nothing to close.
func (s *HedgeService) Plan(ctx context.Context, coin string, size decimal.Decimal, closing bool) (plan executor.HedgePlan, ok bool, err error) {
	coin = normalizeCoin(coin)
	if closing {
		if size, err = s.closeSize(ctx, coin, size); err != nil {
			return executor.HedgePlan{}, false, err
		}
		if size.IsZero() {
			return executor.HedgePlan{}, false, nil
		}
	} else if size.Sign() <= 0 {
		return executor.HedgePlan{}, false, fmt.Errorf("%w: size must be positive, got %s", domain.ErrConfiguration, size)
	}
	plan, err = s.exec.Plan(ctx, executor.HedgeRequest{Coin: coin, Size: size, Closing: closing})
	return plan, err == nil, err
}

// RoundtripResult holds both halves of a roundtrip. Close is nil when the
// open failed.
type RoundtripResult struct {
	Open  domain.HedgeResult  `json:"open"`
	Close *domain.HedgeResult `json:"close,omitempty"`
}

// Success reports whether both halves succeeded.
func (r RoundtripResult) Success() bool {
	return r.Open.Success && r.Close != nil && r.Close.Success
}

// Roundtrip opens, pauses, then closes the same size. A failed open aborts
// before any close is attempted.
func (s *HedgeService) Roundtrip(ctx context.Context, coin string, size decimal.Decimal) (RoundtripResult, error) {
	var out RoundtripResult

	open, err := s.Open(ctx, coin, size)
	out.Open = open
	if err != nil {
		return out, fmt.Errorf("roundtrip: open: %w", err)
	}

	if err := s.sleep(ctx, s.cfg.RoundtripPause); err != nil {
		return out, fmt.Errorf("roundtrip: %w", err)
	}

	closed, err := s.Close(ctx, coin, size)
	out.Close = &closed
	if err != nil {
		s.logger.ErrorContext(ctx, "roundtrip close failed after successful open",
			slog.String("coin", open.Coin),
			slog.String("size", size.String()),
			slog.String("error", err.Error()),
		)
		return out, fmt.Errorf("roundtrip: close: %w", err)
	}
	return out, nil
}

// StatusReport lists the non-zero positions on both venues. A venue whose
// query failed has its error set and no positions.
type StatusReport struct {
	Nado       []domain.Position
	Lighter    []domain.Position
	NadoErr    error
	LighterErr error
}

// Status queries both venues' positions concurrently.
func (s *HedgeService) Status(ctx context.Context) StatusReport {
	var rep StatusReport
	var g errgroup.Group
	g.Go(func() error {
		rep.Nado, rep.NadoErr = s.nadoPositions(ctx)
		return nil
	})
	g.Go(func() error {
		rep.Lighter, rep.LighterErr = s.lighterPositions(ctx)
		return nil
	})
	_ = g.Wait()
	return rep
}

// Spread returns the current spread between the venues for coin.
func (s *HedgeService) Spread(ctx context.Context, coin string) (domain.SpreadInfo, error) {
	coin = normalizeCoin(coin)
	return executor.RetryValue(ctx, s.cfg.QueryRetries, s.cfg.QueryRetryDelay,
		func(ctx context.Context) (domain.SpreadInfo, error) {
			return s.spreads.Spread(ctx, coin)
		})
}

// CancelAll cancels every resting Nado order on coin's product and returns
// the number cancelled.
func (s *HedgeService) CancelAll(ctx context.Context, coin string) (int, error) {
	coin = normalizeCoin(coin)
	pid, err := s.productID(ctx, coin)
	if err != nil {
		return 0, err
	}
	res, err := s.nado.CancelProductOrders(ctx, []int64{pid})
	if err != nil {
		return 0, fmt.Errorf("cancel %s orders: %w", coin, err)
	}
	n := len(res.CancelledOrders)
	s.logger.InfoContext(ctx, "cancelled nado orders",
		slog.String("coin", coin),
		slog.Int64("product_id", pid),
		slog.Int("count", n),
	)
	s.auditLog(ctx, "orders_cancelled", map[string]any{
		"coin":       coin,
		"product_id": pid,
		"count":      n,
	})
	return n, nil
}

func (s *HedgeService) closeSize(ctx context.Context, coin string, size decimal.Decimal) (decimal.Decimal, error) {
	switch size.Sign() {
	case 1:
		return size, nil
	case -1:
		return decimal.Zero, fmt.Errorf("%w: size must be positive, got %s", domain.ErrConfiguration, size)
	}

	pid, err := s.productID(ctx, coin)
	if err != nil {
		return decimal.Zero, err
	}
	pos, err := executor.RetryValue(ctx, s.cfg.QueryRetries, s.cfg.QueryRetryDelay,
		func(ctx context.Context) (decimal.Decimal, error) {
			return s.nado.PerpPosition(ctx, pid)
		})
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: nado position for %s: %w", domain.ErrMarketData, coin, err)
	}
	s.logger.InfoContext(ctx, "resolved close size from nado position",
		slog.String("coin", coin),
		slog.String("position", pos.String()),
	)
	return pos.Abs(), nil
}

func (s *HedgeService) productID(ctx context.Context, coin string) (int64, error) {
	symbol, err := nado.CoinToSymbol(coin)
	if err != nil {
		return 0, err
	}
	return s.products.ProductID(ctx, symbol)
}

func (s *HedgeService) nadoPositions(ctx context.Context) ([]domain.Position, error) {
	info, err := executor.RetryValue(ctx, s.cfg.QueryRetries, s.cfg.QueryRetryDelay, s.nado.SubaccountInfo)
	if err != nil {
		return nil, err
	}
	if err := s.products.Preload(ctx); err != nil {
		s.logger.WarnContext(ctx, "product directory unavailable; showing raw product ids",
			slog.String("error", err.Error()),
		)
	}

	var out []domain.Position
	for _, b := range info.PerpBalances {
		amount, err := numeric.FromX18(string(b.Balance.Amount))
		if err != nil {
			return nil, fmt.Errorf("%w: nado product %d amount: %w", domain.ErrMarketData, b.ProductID, err)
		}
		if amount.IsZero() {
			continue
		}
		symbol, ok := s.products.Symbol(b.ProductID)
		if !ok {
			symbol = fmt.Sprintf("product %d", b.ProductID)
		}
		out = append(out, domain.Position{
			Venue:     domain.VenueNado,
			Symbol:    symbol,
			ProductID: b.ProductID,
			Size:      amount,
		})
	}
	return out, nil
}

func (s *HedgeService) lighterPositions(ctx context.Context) ([]domain.Position, error) {
	positions, err := executor.RetryValue(ctx, s.cfg.QueryRetries, s.cfg.QueryRetryDelay, s.lighter.Positions)
	if err != nil {
		return nil, err
	}

	var out []domain.Position
	for _, p := range positions {
		size, err := numeric.ParseDecimal(p.Size)
		if err != nil {
			return nil, fmt.Errorf("%w: lighter book %d size: %w", domain.ErrMarketData, p.OrderBookID, err)
		}
		if size.IsZero() {
			continue
		}
		symbol, ok := lighter.SymbolOf(p.OrderBookID)
		if !ok {
			symbol = fmt.Sprintf("book %d", p.OrderBookID)
		}
		out = append(out, domain.Position{
			Venue:     domain.VenueLighter,
			Symbol:    symbol,
			ProductID: p.OrderBookID,
			Size:      size,
		})
	}
	return out, nil
}

// record journals and announces a hedge result. Failures here are logged
// and never change the result.
func (s *HedgeService) record(ctx context.Context, res domain.HedgeResult) {
	if res.ID == "" {
		return
	}
	if s.hedges != nil {
		if err := s.hedges.Save(ctx, res); err != nil {
			s.logger.WarnContext(ctx, "hedge journal write failed",
				slog.String("hedge_id", res.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	s.auditLog(ctx, "hedge_"+string(res.Outcome), map[string]any{
		"hedge_id": res.ID,
		"coin":     res.Coin,
		"size":     res.Size.String(),
		"closing":  res.Closing,
		"success":  res.Success,
		"error":    res.Error,
	})
	if err := s.notifier.HedgeResult(ctx, res); err != nil {
		s.logger.WarnContext(ctx, "hedge notification failed",
			slog.String("hedge_id", res.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *HedgeService) auditLog(ctx context.Context, event string, detail map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(ctx, event, detail); err != nil {
		s.logger.WarnContext(ctx, "audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

func normalizeCoin(coin string) string {
	return strings.ToUpper(strings.TrimSpace(coin))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
