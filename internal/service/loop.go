package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/hedgebot/internal/domain"
	"github.com/alanyoungcy/hedgebot/internal/notify"
)

// MaxLoopCount bounds a single loop run.
const MaxLoopCount = 100

// LoopConfig describes one loop run.
type LoopConfig struct {
	Count       int
	HoldTime    time.Duration // between open and close
	Interval    time.Duration // between iterations, not after the last
	StopOnError bool
}

// Validate checks the iteration count and durations.
func (c LoopConfig) Validate() error {
	if c.Count < 1 || c.Count > MaxLoopCount {
		return fmt.Errorf("%w: loop count must be between 1 and %d, got %d", domain.ErrConfiguration, MaxLoopCount, c.Count)
	}
	if c.HoldTime < 0 || c.Interval < 0 {
		return fmt.Errorf("%w: loop hold time and interval must not be negative", domain.ErrConfiguration)
	}
	return nil
}

// LoopSummary aggregates a loop run. Results holds every hedge attempt in
// order, opens and closes alike.
type LoopSummary struct {
	RunID       string               `json:"run_id"`
	Coin        string               `json:"coin"`
	Size        decimal.Decimal      `json:"size"`
	Succeeded   int                  `json:"succeeded"`
	Failed      int                  `json:"failed"`
	Stopped     bool                 `json:"stopped"` // ended early by stop-on-error or cancellation
	Results     []domain.HedgeResult `json:"results"`
	ArchivePath string               `json:"archive_path,omitempty"`
}

// SuccessRate is the percentage of completed iterations that succeeded.
func (s LoopSummary) SuccessRate() float64 {
	total := s.Succeeded + s.Failed
	if total == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(total) * 100
}

type hedgeOperations interface {
	Open(ctx context.Context, coin string, size decimal.Decimal) (domain.HedgeResult, error)
	Close(ctx context.Context, coin string, size decimal.Decimal) (domain.HedgeResult, error)
}

// LoopRunner repeats open/hold/close cycles strictly sequentially.
type LoopRunner struct {
	ops      hedgeOperations
	locks    domain.LockManager    // optional
	archive  domain.ResultArchiver // optional
	notifier *notify.Notifier      // optional
	logger   *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewLoopRunner creates a LoopRunner. locks, archive and notifier may be nil.
func NewLoopRunner(ops hedgeOperations, locks domain.LockManager, archive domain.ResultArchiver, notifier *notify.Notifier, logger *slog.Logger) *LoopRunner {
	return &LoopRunner{
		ops:      ops,
		locks:    locks,
		archive:  archive,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "loop_runner")),
		sleep:    sleepContext,
	}
}

// Run executes cfg.Count iterations of open, hold, close on coin. A failed
// iteration counts as failed and the run continues unless cfg.StopOnError
// is set. The returned error is non-nil only when the run could not start
// or the context ended; per-iteration failures are in the summary.
func (r *LoopRunner) Run(ctx context.Context, coin string, size decimal.Decimal, cfg LoopConfig) (LoopSummary, error) {
	coin = normalizeCoin(coin)
	sum := LoopSummary{RunID: uuid.New().String(), Coin: coin, Size: size}
	if err := cfg.Validate(); err != nil {
		return sum, err
	}
	if size.Sign() <= 0 {
		return sum, fmt.Errorf("%w: size must be positive, got %s", domain.ErrConfiguration, size)
	}

	if r.locks != nil {
		unlock, err := r.locks.Acquire(ctx, "hedge:"+coin, lockTTL(cfg))
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				return sum, fmt.Errorf("another hedge run holds the %s lock: %w", coin, err)
			}
			return sum, fmt.Errorf("acquire %s lock: %w", coin, err)
		}
		defer unlock()
	}

	log := r.logger.With(slog.String("run_id", sum.RunID), slog.String("coin", coin))
	log.InfoContext(ctx, "loop started",
		slog.String("size", size.String()),
		slog.Int("count", cfg.Count),
		slog.Duration("hold_time", cfg.HoldTime),
		slog.Duration("interval", cfg.Interval),
		slog.Bool("stop_on_error", cfg.StopOnError),
	)

	var runErr error
	for i := 1; i <= cfg.Count; i++ {
		err := r.iteration(ctx, &sum, coin, size, cfg.HoldTime)
		if err == nil {
			sum.Succeeded++
			log.InfoContext(ctx, "iteration succeeded", slog.Int("iteration", i))
		} else {
			sum.Failed++
			log.ErrorContext(ctx, "iteration failed",
				slog.Int("iteration", i),
				slog.String("error", err.Error()),
			)
			if ctx.Err() != nil {
				sum.Stopped = true
				runErr = ctx.Err()
				break
			}
			if cfg.StopOnError {
				sum.Stopped = true
				log.WarnContext(ctx, "stopping loop on first failure", slog.Int("iteration", i))
				break
			}
		}

		if i < cfg.Count {
			if err := r.sleep(ctx, cfg.Interval); err != nil {
				sum.Stopped = true
				runErr = err
				break
			}
		}
	}

	log.InfoContext(ctx, "loop finished",
		slog.Int("succeeded", sum.Succeeded),
		slog.Int("failed", sum.Failed),
		slog.Float64("success_rate", sum.SuccessRate()),
	)
	r.publish(context.WithoutCancel(ctx), &sum)
	return sum, runErr
}

func (r *LoopRunner) iteration(ctx context.Context, sum *LoopSummary, coin string, size decimal.Decimal, hold time.Duration) error {
	open, err := r.ops.Open(ctx, coin, size)
	if open.ID != "" {
		sum.Results = append(sum.Results, open)
	}
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	if !open.Success {
		return errors.New("open: hedge not successful")
	}

	if err := r.sleep(ctx, hold); err != nil {
		return fmt.Errorf("hold: %w", err)
	}

	closed, err := r.ops.Close(ctx, coin, size)
	if closed.ID != "" {
		sum.Results = append(sum.Results, closed)
	}
	if err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if !closed.Success {
		return errors.New("close: hedge not successful")
	}
	return nil
}

func (r *LoopRunner) publish(ctx context.Context, sum *LoopSummary) {
	if r.archive != nil && len(sum.Results) > 0 {
		path, err := r.archive.Archive(ctx, sum.RunID, sum.Results)
		if err != nil {
			r.logger.WarnContext(ctx, "loop archive failed",
				slog.String("run_id", sum.RunID),
				slog.String("error", err.Error()),
			)
		} else {
			sum.ArchivePath = path
		}
	}
	if err := r.notifier.LoopSummary(ctx, sum.Coin, sum.Succeeded, sum.Failed); err != nil {
		r.logger.WarnContext(ctx, "loop summary notification failed", slog.String("error", err.Error()))
	}
}

// lockTTL covers the planned run with a margin per iteration for the venue
// round trips.
func lockTTL(cfg LoopConfig) time.Duration {
	n := time.Duration(cfg.Count)
	return n*(cfg.HoldTime+cfg.Interval) + n*time.Minute
}
