package app

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/hedgebot/internal/domain"
	"github.com/alanyoungcy/hedgebot/internal/executor"
	"github.com/alanyoungcy/hedgebot/internal/notify"
	"github.com/alanyoungcy/hedgebot/internal/numeric"
	"github.com/alanyoungcy/hedgebot/internal/platform/nado"
	"github.com/alanyoungcy/hedgebot/internal/service"
)

func writeSpread(w io.Writer, s domain.SpreadInfo) {
	fmt.Fprintf(w, "\n=== %s spread ===\n", s.Coin)
	fmt.Fprintln(w, "┌────────────┬────────────────┬────────────────┐")
	fmt.Fprintln(w, "│            │      Nado      │    Lighter     │")
	fmt.Fprintln(w, "├────────────┼────────────────┼────────────────┤")
	fmt.Fprintf(w, "│ Bid        │ %14.2f │ %14.2f │\n", s.LegA.Bid, s.LegB.Bid)
	fmt.Fprintf(w, "│ Ask        │ %14.2f │ %14.2f │\n", s.LegA.Ask, s.LegB.Ask)
	fmt.Fprintf(w, "│ Mid        │ %14.2f │ %14.2f │\n", s.LegA.Mid, s.LegB.Mid)
	fmt.Fprintln(w, "└────────────┴────────────────┴────────────────┘")
	fmt.Fprintf(w, "\nDifference: %.2f (%.4f%%)\n", s.PriceDiff, s.PriceDiffPercent)
	fmt.Fprintf(w, "Recommended: %s\n", s.Recommendation)
}

func writeStatus(w io.Writer, rep service.StatusReport) {
	fmt.Fprintln(w, "\n=== Positions ===")
	writeVenuePositions(w, "Nado", rep.Nado, rep.NadoErr)
	writeVenuePositions(w, "Lighter", rep.Lighter, rep.LighterErr)
}

func writeVenuePositions(w io.Writer, venue string, positions []domain.Position, err error) {
	fmt.Fprintf(w, "\n--- %s ---\n", venue)
	switch {
	case err != nil:
		fmt.Fprintf(w, "  query failed: %v\n", err)
	case len(positions) == 0:
		fmt.Fprintln(w, "  no positions")
	default:
		for _, p := range positions {
			fmt.Fprintf(w, "  %-12s %s\n", p.Symbol, signed(p.Size, 6))
		}
	}
}

// writeResult prints one hedge attempt with a header line.
func writeResult(w io.Writer, title string, res domain.HedgeResult) {
	state := "OK"
	switch {
	case res.Success:
	case res.Outcome == domain.OutcomePartiallyAccepted:
		state = "PARTIAL, one leg is open and unhedged"
	default:
		state = "FAILED"
	}
	fmt.Fprintf(w, "\n%s %s %s: %s (%d ms)\n", title, res.Coin, res.Size, state, res.ExecutionTimeMs)
	if res.Message != "" {
		fmt.Fprintf(w, "  %s\n", res.Message)
	}
	if res.ID == "" {
		return
	}
	for _, line := range strings.Split(notify.FormatHedge(res), "\n") {
		fmt.Fprintf(w, "  %s\n", line)
	}
	if fs := res.FillStatus; fs != nil {
		fmt.Fprintf(w, "  fills: nado %s, lighter %s\n", fs.LegA, fs.LegB)
	}
}

func writePlan(w io.Writer, p executor.HedgePlan) {
	mode := "open"
	if p.Request.Closing {
		mode = "close"
	}
	fmt.Fprintf(w, "Plan (%s %s %s):\n", mode, p.Request.Coin, p.Request.Size)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  leg\tvenue\tside\tprice\tsize\ttype\treduce-only")
	for _, leg := range []struct {
		name  string
		venue domain.Venue
		o     domain.LegOrder
	}{{"A", domain.VenueNado, p.LegA}, {"B", domain.VenueLighter, p.LegB}} {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			leg.name, leg.venue, leg.o.Side, leg.o.Price, leg.o.Size, leg.o.Type, yesNo(leg.o.ReduceOnly))
	}
	_ = tw.Flush()
}

func writeLoopSummary(w io.Writer, sum service.LoopSummary) {
	fmt.Fprintf(w, "\n=== Loop finished (%s) ===\n", sum.RunID)
	if len(sum.Results) > 0 {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "  #\tmode\toutcome\tms\tid")
		for i, r := range sum.Results {
			mode := "open"
			if r.Closing {
				mode = "close"
			}
			fmt.Fprintf(tw, "  %d\t%s\t%s\t%d\t%s\n", i+1, mode, r.Outcome, r.ExecutionTimeMs, r.ID)
		}
		_ = tw.Flush()
	}
	fmt.Fprintf(w, "  succeeded:    %d\n", sum.Succeeded)
	fmt.Fprintf(w, "  failed:       %d\n", sum.Failed)
	fmt.Fprintf(w, "  success rate: %.1f%%\n", sum.SuccessRate())
	if sum.Stopped {
		fmt.Fprintln(w, "  stopped early")
	}
	if sum.ArchivePath != "" {
		fmt.Fprintf(w, "  archived to:  %s\n", sum.ArchivePath)
	}
}

// formatTopOfBook renders the best level of each side of a Nado depth
// reply. Unparseable or empty sides show as "-".
func formatTopOfBook(now time.Time, coin string, book nado.MarketLiquidity) string {
	return fmt.Sprintf("%s  %s  bid %s  ask %s", now.Format("15:04:05"), coin, topLevel(book.Bids), topLevel(book.Asks))
}

func topLevel(levels [][2]nado.X18) string {
	if len(levels) == 0 {
		return "-"
	}
	price, err := numeric.FromX18(string(levels[0][0]))
	if err != nil {
		return "-"
	}
	size, err := numeric.FromX18(string(levels[0][1]))
	if err != nil {
		return "-"
	}
	return fmt.Sprintf("%s (%s)", price.StringFixed(2), size.String())
}

func signed(d decimal.Decimal, places int32) string {
	s := d.StringFixed(places)
	if d.Sign() > 0 {
		return "+" + s
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
