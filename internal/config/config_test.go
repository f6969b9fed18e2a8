package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/hedgebot/internal/domain"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.Hedge.PriceDecimals != 2 || !cfg.Hedge.MinNotionalUSD.Equal(decimal.NewFromInt(10)) || cfg.Hedge.RoundtripPause.Duration != 2*time.Second {
		t.Fatalf("defaults %+v", cfg.Hedge)
	}
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Hedge.OrderType = "market"
	cfg.Hedge.Size = decimal.Zero
	cfg.Loop.Count = 101
	cfg.Nado.Network = "mainnet"
	cfg.Notify.TelegramToken = "t"

	err := cfg.Validate()
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("got %v", err)
	}
	for _, want := range []string{"order_type", "size", "loop: count", "network", "telegram_chat_id"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("missing %q in %v", want, err)
		}
	}
}

func TestRequireCredentials(t *testing.T) {
	cfg := Defaults()
	err := cfg.RequireCredentials()
	if err == nil || !strings.Contains(err.Error(), "NADO_PRIVATE_KEY") || !strings.Contains(err.Error(), "LIGHTER_PRIVATE_KEY") {
		t.Fatalf("got %v", err)
	}
	cfg.Nado.PrivateKey = "k"
	cfg.Lighter.KeyFile = "f"
	if err := cfg.RequireCredentials(); err != nil {
		t.Fatal(err)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hedgebot.toml")
	body := `
log_level = "debug"

[hedge]
coin = "ETH"
size = 0.5
order_type = "limit"

[loop]
hold_time = "30s"
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HEDGE_SIZE", "0.25")
	t.Setenv("HEDGE_LOOP_INTERVAL", "5")
	t.Setenv("NADO_PRIVATE_KEY", "abc")
	t.Setenv("LIGHTER_ACCOUNT_INDEX", "7")
	t.Setenv("HEDGEBOT_NOTIFY_EVENTS", "partial_hedge, loop_summary,")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Hedge.Coin != "ETH" || cfg.Hedge.OrderType != "limit" || cfg.LogLevel != "debug" {
		t.Fatalf("file values %+v", cfg.Hedge)
	}
	if cfg.Hedge.Size.String() != "0.25" {
		t.Fatalf("env override size %v", cfg.Hedge.Size)
	}
	if cfg.Loop.HoldTime.Duration != 30*time.Second || cfg.Loop.Interval.Duration != 5*time.Second {
		t.Fatalf("loop %+v", cfg.Loop)
	}
	if cfg.Nado.PrivateKey != "abc" || cfg.Lighter.AccountIndex != 7 {
		t.Fatalf("credentials not applied")
	}
	if len(cfg.Notify.Events) != 2 || cfg.Notify.Events[1] != "loop_summary" {
		t.Fatalf("events %v", cfg.Notify.Events)
	}
	if cfg.Hedge.Slippage.String() != "0.001" {
		t.Fatalf("default lost: %v", cfg.Hedge.Slippage)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Hedge.Coin == "" {
		t.Fatal("defaults not applied")
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[hedge\nsize ="), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("got %v", err)
	}
}

func TestSetSeconds(t *testing.T) {
	var d duration
	t.Setenv("X_SECONDS", "1.5")
	setSeconds(&d, "X_SECONDS")
	if d.Duration != 1500*time.Millisecond {
		t.Fatalf("got %v", d.Duration)
	}
	t.Setenv("X_SECONDS", "2m")
	setSeconds(&d, "X_SECONDS")
	if d.Duration != 2*time.Minute {
		t.Fatalf("got %v", d.Duration)
	}
}

func TestRedacted(t *testing.T) {
	cfg := Defaults()
	cfg.Nado.PrivateKey = "secret"
	cfg.Notify.TelegramToken = "tok"
	cfg.Notify.Events = []string{"partial_hedge"}

	r := cfg.Redacted()
	if r.Nado.PrivateKey != "***" || r.Notify.TelegramToken != "***" {
		t.Fatalf("not redacted: %+v", r.Nado)
	}
	if r.Lighter.PrivateKey != "" {
		t.Fatal("empty secret should stay empty")
	}
	r.Notify.Events[0] = "changed"
	if cfg.Notify.Events[0] != "partial_hedge" || cfg.Nado.PrivateKey != "secret" {
		t.Fatal("original mutated")
	}
}

func TestLoadKeepsDecimalPrecision(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hedgebot.toml")
	body := `
[hedge]
size = "0.000123456789"
slippage = 0.0025
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HEDGE_MIN_NOTIONAL_USD", "12.345678901234567891")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Hedge.Size.String() != "0.000123456789" {
		t.Fatalf("size %s", cfg.Hedge.Size)
	}
	if cfg.Hedge.Slippage.String() != "0.0025" {
		t.Fatalf("slippage %s", cfg.Hedge.Slippage)
	}
	if cfg.Hedge.MinNotionalUSD.String() != "12.345678901234567891" {
		t.Fatalf("min notional %s", cfg.Hedge.MinNotionalUSD)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestValidateSlippageBounds(t *testing.T) {
	for _, v := range []string{"-0.01", "1", "1.5"} {
		cfg := Defaults()
		cfg.Hedge.Slippage = decimal.RequireFromString(v)
		if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "slippage") {
			t.Fatalf("slippage %s: got %v", v, err)
		}
	}
}
