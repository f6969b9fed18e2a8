// Package app runs one CLI command: it wires the venue clients and
// services, asks for confirmation before anything is traded, and renders
// results for a terminal. Nothing below this package prints.
package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/hedgebot/internal/config"
	"github.com/alanyoungcy/hedgebot/internal/crypto"
	"github.com/alanyoungcy/hedgebot/internal/domain"
	"github.com/alanyoungcy/hedgebot/internal/executor"
	"github.com/alanyoungcy/hedgebot/internal/numeric"
	"github.com/alanyoungcy/hedgebot/internal/platform/lighter"
	"github.com/alanyoungcy/hedgebot/internal/platform/nado"
	"github.com/alanyoungcy/hedgebot/internal/service"
)

type hedger interface {
	Open(ctx context.Context, coin string, size decimal.Decimal) (domain.HedgeResult, error)
	Close(ctx context.Context, coin string, size decimal.Decimal) (domain.HedgeResult, error)
	Roundtrip(ctx context.Context, coin string, size decimal.Decimal) (service.RoundtripResult, error)
	Plan(ctx context.Context, coin string, size decimal.Decimal, closing bool) (executor.HedgePlan, bool, error)
	Status(ctx context.Context) service.StatusReport
	Spread(ctx context.Context, coin string) (domain.SpreadInfo, error)
	CancelAll(ctx context.Context, coin string) (int, error)
}

type looper interface {
	Run(ctx context.Context, coin string, size decimal.Decimal, cfg service.LoopConfig) (service.LoopSummary, error)
}

// App is the root application object. It owns the configuration, the
// terminal streams, and cleanup functions run in reverse order by Close.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	in      *bufio.Reader
	out     io.Writer
	closers []func()

	deps   *Dependencies
	hedges hedger
	loops  looper
	sleep  func(ctx context.Context, d time.Duration) error
}

// New creates an App reading confirmations from in and writing results to
// out.
func New(cfg *config.Config, logger *slog.Logger, in io.Reader, out io.Writer) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
		in:     bufio.NewReader(in),
		out:    out,
		sleep:  sleepContext,
	}
}

// Run executes cmd.
func (a *App) Run(ctx context.Context, cmd Command) error {
	switch cmd.Name {
	case "help":
		a.printHelp()
		return nil
	case "list":
		return a.runList()
	case "config":
		return a.runConfig()
	case "encrypt-key":
		return a.runEncryptKey(cmd)
	case "spread", "watch":
		if err := a.connect(ctx, false); err != nil {
			return err
		}
		if cmd.Name == "spread" {
			return a.runSpread(ctx, cmd)
		}
		return a.runWatch(ctx, cmd)
	case "open", "close", "roundtrip", "loop", "status", "cancel":
		if err := a.cfg.RequireCredentials(); err != nil {
			return err
		}
		if err := a.connect(ctx, true); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unknown command %q (run \"hedgebot help\")", domain.ErrConfiguration, cmd.Name)
	}

	a.logger.InfoContext(ctx, "running command",
		slog.String("command", cmd.Name),
		slog.String("coin", a.coin(cmd)),
		slog.Bool("dry_run", cmd.DryRun),
	)
	switch cmd.Name {
	case "open":
		return a.runOpen(ctx, cmd)
	case "close":
		return a.runClose(ctx, cmd)
	case "roundtrip":
		return a.runRoundtrip(ctx, cmd)
	case "loop":
		return a.runLoop(ctx, cmd)
	case "status":
		return a.runStatus(ctx)
	default:
		return a.runCancel(ctx, cmd)
	}
}

// Close tears down all resources in reverse registration order. Safe to
// call more than once.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) connect(ctx context.Context, trading bool) error {
	if a.hedges != nil {
		return nil
	}
	deps, cleanup, err := Wire(ctx, a.cfg, trading, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)
	a.deps = deps
	a.hedges = deps.Service
	a.loops = deps.Loop
	return nil
}

// --------------------------------------------------------------------------
// Trading commands
// --------------------------------------------------------------------------

func (a *App) runOpen(ctx context.Context, cmd Command) error {
	coin := a.coin(cmd)
	size, err := a.size(cmd, false)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "\nOpen hedge:\n  coin:       %s\n  size:       %s\n  slippage:   %s%%\n",
		coin, size, a.cfg.Hedge.Slippage.Mul(decimal.NewFromInt(100)).StringFixed(2))
	if cmd.AutoClose > 0 {
		fmt.Fprintf(a.out, "  auto-close: after %s\n", cmd.AutoClose)
	}
	fmt.Fprintln(a.out)

	if cmd.DryRun {
		return a.dryRun(ctx, coin, size, false)
	}
	if !cmd.Force && !a.confirm("Open this hedge?") {
		fmt.Fprintln(a.out, "Cancelled.")
		return nil
	}

	res, err := a.hedges.Open(ctx, coin, size)
	writeResult(a.out, "Open", res)
	if err != nil || !res.Success || cmd.AutoClose <= 0 {
		return err
	}

	fmt.Fprintf(a.out, "\nClosing automatically in %s...\n", cmd.AutoClose)
	if err := a.sleep(ctx, cmd.AutoClose); err != nil {
		return fmt.Errorf("auto-close: %w", err)
	}
	closed, err := a.hedges.Close(ctx, coin, size)
	writeResult(a.out, "Close", closed)
	return err
}

func (a *App) runClose(ctx context.Context, cmd Command) error {
	coin := a.coin(cmd)
	size, err := a.size(cmd, true)
	if err != nil {
		return err
	}

	shown := size.String()
	if size.IsZero() {
		shown = "entire Nado position"
	}
	fmt.Fprintf(a.out, "\nClose hedge:\n  coin: %s\n  size: %s\n\n", coin, shown)

	if cmd.DryRun {
		return a.dryRun(ctx, coin, size, true)
	}
	if !cmd.Force && !a.confirm("Close this hedge?") {
		fmt.Fprintln(a.out, "Cancelled.")
		return nil
	}

	res, err := a.hedges.Close(ctx, coin, size)
	writeResult(a.out, "Close", res)
	return err
}

func (a *App) runRoundtrip(ctx context.Context, cmd Command) error {
	coin := a.coin(cmd)
	size, err := a.size(cmd, false)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "\nRoundtrip hedge:\n  coin: %s\n  size: %s\n  mode: open then close immediately\n\n", coin, size)
	if cmd.DryRun {
		return a.dryRun(ctx, coin, size, false)
	}
	if !cmd.Force && !a.confirm("Run this roundtrip?") {
		fmt.Fprintln(a.out, "Cancelled.")
		return nil
	}

	rt, err := a.hedges.Roundtrip(ctx, coin, size)
	if rt.Open.ID != "" {
		writeResult(a.out, "Open", rt.Open)
	}
	if rt.Close != nil {
		writeResult(a.out, "Close", *rt.Close)
	}
	return err
}

func (a *App) runLoop(ctx context.Context, cmd Command) error {
	coin := a.coin(cmd)
	size, err := a.size(cmd, false)
	if err != nil {
		return err
	}
	lc := a.loopConfig(cmd)
	if err := lc.Validate(); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "\nLoop hedge:\n  coin:          %s\n  size:          %s\n  iterations:    %d\n", coin, size, lc.Count)
	if lc.HoldTime > 0 {
		fmt.Fprintf(a.out, "  hold time:     %s\n", lc.HoldTime)
	}
	if lc.Interval > 0 {
		fmt.Fprintf(a.out, "  interval:      %s\n", lc.Interval)
	}
	fmt.Fprintf(a.out, "  stop on error: %s\n\n", yesNo(lc.StopOnError))

	if cmd.DryRun {
		return a.dryRun(ctx, coin, size, false)
	}
	if !cmd.Force && !a.confirm("Start the loop?") {
		fmt.Fprintln(a.out, "Cancelled.")
		return nil
	}

	sum, err := a.loops.Run(ctx, coin, size, lc)
	writeLoopSummary(a.out, sum)
	return err
}

func (a *App) runCancel(ctx context.Context, cmd Command) error {
	coin := a.coin(cmd)
	if !cmd.Force && !a.confirm(fmt.Sprintf("Cancel all open Nado orders for %s?", coin)) {
		fmt.Fprintln(a.out, "Cancelled.")
		return nil
	}
	n, err := a.hedges.CancelAll(ctx, coin)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Cancelled %d Nado order(s) for %s.\n", n, coin)
	return nil
}

func (a *App) dryRun(ctx context.Context, coin string, size decimal.Decimal, closing bool) error {
	plan, ok, err := a.hedges.Plan(ctx, coin, size, closing)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.out, service.NoPositionsMessage)
		return nil
	}
	writePlan(a.out, plan)
	fmt.Fprintln(a.out, "\n[dry run] nothing was sent")
	return nil
}

// --------------------------------------------------------------------------
// Read-only commands
// --------------------------------------------------------------------------

func (a *App) runSpread(ctx context.Context, cmd Command) error {
	info, err := a.hedges.Spread(ctx, a.coin(cmd))
	if err != nil {
		return err
	}
	writeSpread(a.out, info)
	return nil
}

func (a *App) runStatus(ctx context.Context) error {
	writeStatus(a.out, a.hedges.Status(ctx))
	return nil
}

func (a *App) runWatch(ctx context.Context, cmd Command) error {
	coin := a.coin(cmd)
	symbol, err := nado.CoinToSymbol(coin)
	if err != nil {
		return err
	}
	pid, err := a.deps.Products.ProductID(ctx, symbol)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Watching %s (product %d) on Nado, Ctrl-C to stop\n", symbol, pid)
	stream := nado.NewBookStream(a.deps.WSURL, []int64{pid}, 1, cmd.Interval,
		func(_ int64, book nado.MarketLiquidity) {
			fmt.Fprintln(a.out, formatTopOfBook(time.Now(), coin, book))
		}, a.logger)
	if err := stream.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (a *App) runList() error {
	var coins []string
	for _, c := range nado.SupportedCoins() {
		if _, err := lighter.OrderBookID(lighter.CoinToSymbol(c)); err == nil {
			coins = append(coins, c)
		}
	}
	fmt.Fprintf(a.out, "Coins supported on both venues:\n  %s\n", strings.Join(coins, ", "))
	return nil
}

func (a *App) runConfig() error {
	fmt.Fprintln(a.out, "# active configuration (secrets redacted)")
	if err := toml.NewEncoder(a.out).Encode(a.cfg.Redacted()); err != nil {
		return fmt.Errorf("app: encode config: %w", err)
	}
	return nil
}

// runEncryptKey reads a hex private key and a password from the input,
// one per line, and writes the encrypted key document.
func (a *App) runEncryptKey(cmd Command) error {
	fmt.Fprint(a.out, "private key (hex): ")
	key, err := a.readLine()
	if err != nil {
		return fmt.Errorf("encrypt-key: read key: %w", err)
	}
	fmt.Fprint(a.out, "password: ")
	password, err := a.readLine()
	if err != nil {
		return fmt.Errorf("encrypt-key: read password: %w", err)
	}
	fmt.Fprintln(a.out)

	label := cmd.Label
	if label == "" {
		label = "hedgebot"
	}
	doc, err := crypto.EncryptKey(key, password, label)
	if err != nil {
		return err
	}
	if cmd.Out == "" {
		_, err = fmt.Fprintf(a.out, "%s\n", doc)
		return err
	}
	if err := os.WriteFile(cmd.Out, doc, 0o600); err != nil {
		return fmt.Errorf("encrypt-key: %w", err)
	}
	fmt.Fprintf(a.out, "Encrypted key written to %s\n", cmd.Out)
	return nil
}

// --------------------------------------------------------------------------
// helpers
// --------------------------------------------------------------------------

func (a *App) coin(cmd Command) string {
	if cmd.Coin != "" {
		return cmd.Coin
	}
	return strings.ToUpper(a.cfg.Hedge.Coin)
}

// size returns --size or the configured default. For close an absent size
// is zero, meaning the whole position.
func (a *App) size(cmd Command, closing bool) (decimal.Decimal, error) {
	if cmd.Size == "" {
		if closing {
			return decimal.Zero, nil
		}
		return a.cfg.Hedge.Size, nil
	}
	d, err := numeric.ParseDecimal(cmd.Size)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: --size: %v", domain.ErrConfiguration, err)
	}
	if d.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: --size must be positive, got %s", domain.ErrConfiguration, d)
	}
	return d, nil
}

func (a *App) loopConfig(cmd Command) service.LoopConfig {
	lc := service.LoopConfig{
		Count:       a.cfg.Loop.Count,
		HoldTime:    a.cfg.Loop.HoldTime.Duration,
		Interval:    a.cfg.Loop.Interval.Duration,
		StopOnError: a.cfg.Loop.StopOnError,
	}
	if cmd.Set("count") {
		lc.Count = cmd.Count
	}
	if cmd.Set("hold-time") {
		lc.HoldTime = cmd.HoldTime
	}
	if cmd.Set("interval") {
		lc.Interval = cmd.Interval
	}
	if cmd.Set("stop-on-error") {
		lc.StopOnError = cmd.StopOnError
	}
	return lc
}

// confirm asks a yes/no question; anything but y or yes, including EOF, is
// no.
func (a *App) confirm(question string) bool {
	fmt.Fprintf(a.out, "%s [y/N]: ", question)
	answer, err := a.readLine()
	if err != nil {
		return false
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes"
}

func (a *App) readLine() (string, error) {
	line, err := a.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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

func (a *App) printHelp() {
	fmt.Fprint(a.out, `hedgebot - hedge a position across Nado and Lighter

Usage:
  hedgebot <command> [coin] [flags]

Commands:
  open        open a hedge (long one venue, short the other)
  close       close a hedge; without --size closes the whole Nado position
  roundtrip   open, pause, then close the same size
  loop        repeat open, hold, close
  spread      show both books and the price difference
  status      show positions on both venues
  cancel      cancel open Nado orders for the coin
  watch       stream the Nado top of book
  config      print the active configuration
  list        list coins supported on both venues
  encrypt-key encrypt a private key for use as key_file
  help        show this help

Flags:
  -c, --coin <coin>         coin to trade (default from config)
  -s, --size <size>         size in coin units
  -n, --count <n>           loop iterations (1-100)
      --hold-time <sec>     loop: seconds between open and close
  -i, --interval <sec>      loop: seconds between iterations; watch: poll period
      --stop-on-error       loop: stop at the first failed iteration
      --auto-close <sec>    open: close again after this many seconds
      --dry-run             plan the hedge without sending orders
  -f, --force               skip the confirmation prompt
      --config <path>       configuration file (default hedgebot.toml)
      --label, --out        encrypt-key: key label and output file

Examples:
  hedgebot open BTC -s 0.01
  hedgebot open --auto-close 3600
  hedgebot loop BTC -n 10 --hold-time 30 -i 5
  hedgebot spread ETH
`)
}
