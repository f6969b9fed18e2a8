package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/alanyoungcy/hedgebot/internal/domain"
)

// HedgeResult alerts on a failed hedge. Partial hedges go out as
// EventPartialHedge, other failures as EventHedgeFailed; successes are not
// announced.
func (n *Notifier) HedgeResult(ctx context.Context, res domain.HedgeResult) error {
	if res.Success {
		return nil
	}
	if res.Outcome == domain.OutcomePartiallyAccepted {
		return n.Notify(ctx, EventPartialHedge,
			fmt.Sprintf("PARTIAL HEDGE %s %s", res.Coin, res.Size), FormatHedge(res))
	}
	return n.Notify(ctx, EventHedgeFailed,
		fmt.Sprintf("Hedge failed %s %s", res.Coin, res.Size), FormatHedge(res))
}

// LoopSummary announces the end of a loop run.
func (n *Notifier) LoopSummary(ctx context.Context, coin string, succeeded, failed int) error {
	total := succeeded + failed
	rate := 0.0
	if total > 0 {
		rate = float64(succeeded) / float64(total) * 100
	}
	return n.Notify(ctx, EventLoopSummary,
		fmt.Sprintf("Loop finished %s", coin),
		fmt.Sprintf("iterations: %d\nsucceeded: %d\nfailed: %d\nsuccess rate: %.1f%%", total, succeeded, failed, rate))
}

// FormatHedge renders a result as plain text lines.
func FormatHedge(res domain.HedgeResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "id: %s\n", res.ID)
	mode := "open"
	if res.Closing {
		mode = "close"
	}
	fmt.Fprintf(&b, "mode: %s\noutcome: %s\n", mode, res.Outcome)
	for _, leg := range []*domain.LegResult{res.LegA, res.LegB} {
		if leg == nil {
			continue
		}
		state := "rejected"
		if leg.Accepted {
			state = "accepted order " + leg.OrderID
		}
		fmt.Fprintf(&b, "%s %s %s @ %s: %s\n", leg.Venue, leg.Side, leg.Size, leg.Price, state)
	}
	if res.Error != "" {
		fmt.Fprintf(&b, "error: %s\n", res.Error)
	}
	return strings.TrimRight(b.String(), "\n")
}
