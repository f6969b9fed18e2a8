package executor

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/hedgebot/internal/domain"
)

// FillChecker asks both venues for the state of accepted legs. Lookup
// failures degrade to OrderStatusUnknown and are only logged.
type FillChecker struct {
	a, b   StatusSource
	delay  time.Duration
	logger *slog.Logger
}

// NewFillChecker waits delay after submission before querying, giving IOC
// orders time to settle.
func NewFillChecker(a, b StatusSource, delay time.Duration, logger *slog.Logger) *FillChecker {
	return &FillChecker{a: a, b: b, delay: delay, logger: logger.With(slog.String("component", "fill_checker"))}
}

// Check returns the status of both legs.
func (f *FillChecker) Check(ctx context.Context, coin, orderA, orderB string) domain.FillStatus {
	if f.delay > 0 {
		t := time.NewTimer(f.delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return domain.FillStatus{LegA: domain.OrderStatusPending, LegB: domain.OrderStatusPending}
		case <-t.C:
		}
	}

	var out domain.FillStatus
	var g errgroup.Group
	g.Go(func() error {
		out.LegA = f.status(ctx, f.a, domain.VenueNado, coin, orderA)
		return nil
	})
	g.Go(func() error {
		out.LegB = f.status(ctx, f.b, domain.VenueLighter, coin, orderB)
		return nil
	})
	_ = g.Wait()
	return out
}

func (f *FillChecker) status(ctx context.Context, src StatusSource, venue domain.Venue, coin, id string) domain.OrderStatus {
	st, err := src.OrderStatus(ctx, coin, id)
	if err != nil {
		f.logger.WarnContext(ctx, "fill check failed",
			slog.String("venue", string(venue)),
			slog.String("order_id", id),
			slog.String("error", err.Error()),
		)
		return domain.OrderStatusUnknown
	}
	return st
}
