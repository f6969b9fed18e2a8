// Package config defines the hedgebot configuration and provides validation
// helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/hedgebot/internal/domain"
)

// Config is the root configuration structure. Fields are populated from an
// optional TOML file and then overridden by environment variables.
type Config struct {
	Hedge    HedgeConfig    `toml:"hedge"`
	Loop     LoopConfig     `toml:"loop"`
	Nado     NadoConfig     `toml:"nado"`
	Lighter  LighterConfig  `toml:"lighter"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Notify   NotifyConfig   `toml:"notify"`
	LogLevel string         `toml:"log_level"`
}

// HedgeConfig holds the per-attempt trading defaults. Amounts decode as
// decimals ("0.002" or 0.002) and never pass through float64.
type HedgeConfig struct {
	Coin           string          `toml:"coin"`
	Size           decimal.Decimal `toml:"size"`
	Slippage       decimal.Decimal `toml:"slippage"`
	OrderType      string          `toml:"order_type"`
	MinNotionalUSD decimal.Decimal `toml:"min_notional_usd"`
	// PriceDecimals is the rounding applied to leg prices; negative disables it.
	PriceDecimals     int      `toml:"price_decimals"`
	ReduceOnlyOnClose bool     `toml:"reduce_only_on_close"`
	RoundtripPause    duration `toml:"roundtrip_pause"`
	QueryRetries      int      `toml:"query_retries"`
	QueryRetryDelay   duration `toml:"query_retry_delay"`
	// FillCheckDelay > 0 enables a status query of both legs after submission.
	FillCheckDelay duration `toml:"fill_check_delay"`
}

// LoopConfig holds the defaults of the loop command.
type LoopConfig struct {
	Count       int      `toml:"count"`
	HoldTime    duration `toml:"hold_time"`
	Interval    duration `toml:"interval"`
	StopOnError bool     `toml:"stop_on_error"`
}

// NadoConfig holds the Nado network, credentials and transport settings.
type NadoConfig struct {
	Network     string   `toml:"network"`
	GatewayURL  string   `toml:"gateway_url"` // overrides the deployment default
	WSURL       string   `toml:"ws_url"`
	PrivateKey  string   `toml:"private_key"`
	KeyFile     string   `toml:"key_file"`
	KeyPassword string   `toml:"key_password"`
	Subaccount  string   `toml:"subaccount"`
	OrderTTL    duration `toml:"order_ttl"` // zero means one year
	HTTPTimeout duration `toml:"http_timeout"`
}

// LighterConfig holds the Lighter account and credentials.
type LighterConfig struct {
	BaseURL      string   `toml:"base_url"`
	PrivateKey   string   `toml:"private_key"`
	KeyFile      string   `toml:"key_file"`
	KeyPassword  string   `toml:"key_password"`
	AccountIndex int64    `toml:"account_index"`
	APIKeyIndex  int64    `toml:"api_key_index"`
	HTTPTimeout  duration `toml:"http_timeout"`
}

// PostgresConfig enables the hedge journal when DSN is set.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig enables the shared product cache and hedge lock when Addr is
// set.
type RedisConfig struct {
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	ProductTTL duration `toml:"product_ttl"`
}

// S3Config enables the result archive when Bucket is set.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	Prefix         string `toml:"prefix"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// NotifyConfig holds alert channel credentials. Events filters which events
// are sent; empty sends all.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration wraps time.Duration for TOML text decoding ("30s", "2m").
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with the built-in defaults.
func Defaults() Config {
	return Config{
		Hedge: HedgeConfig{
			Coin:            "BTC",
			Size:            decimal.RequireFromString("0.002"),
			Slippage:        decimal.RequireFromString("0.001"),
			OrderType:       "ioc",
			MinNotionalUSD:  decimal.NewFromInt(10),
			PriceDecimals:   2,
			RoundtripPause:  duration{2 * time.Second},
			QueryRetries:    2,
			QueryRetryDelay: duration{500 * time.Millisecond},
		},
		Loop: LoopConfig{
			Count: 1,
		},
		Nado: NadoConfig{
			Network:     "inkMainnet",
			Subaccount:  "default",
			HTTPTimeout: duration{30 * time.Second},
		},
		Lighter: LighterConfig{
			BaseURL:     "https://mainnet.zklighter.elliot.ai/api/v1",
			HTTPTimeout: duration{30 * time.Second},
		},
		Postgres: PostgresConfig{
			PoolMaxConns:  4,
			PoolMinConns:  0,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			PoolSize:   5,
			MaxRetries: 3,
			ProductTTL: duration{24 * time.Hour},
		},
		S3: S3Config{
			Region: "us-east-1",
			Prefix: "hedgebot/runs",
			UseSSL: true,
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validNetworks = map[string]bool{
	"inkMainnet": true,
	"inkTestnet": true,
}

// Validate checks Config for invalid or missing values and returns one error
// describing every problem found. Credentials are checked separately by
// RequireCredentials because read-only commands do not need them.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Hedge
	if strings.TrimSpace(c.Hedge.Coin) == "" {
		errs = append(errs, "hedge: coin must not be empty")
	}
	if c.Hedge.Size.Sign() <= 0 {
		errs = append(errs, "hedge: size must be > 0")
	}
	if c.Hedge.Slippage.IsNegative() || c.Hedge.Slippage.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		errs = append(errs, fmt.Sprintf("hedge: slippage must be in [0, 1), got %s", c.Hedge.Slippage))
	}
	if _, err := domain.ParseOrderType(c.Hedge.OrderType); err != nil {
		errs = append(errs, fmt.Sprintf("hedge: unknown order_type %q (valid: ioc, limit)", c.Hedge.OrderType))
	}
	if c.Hedge.MinNotionalUSD.IsNegative() {
		errs = append(errs, "hedge: min_notional_usd must be >= 0")
	}
	if c.Hedge.PriceDecimals > 18 {
		errs = append(errs, fmt.Sprintf("hedge: price_decimals must be <= 18, got %d", c.Hedge.PriceDecimals))
	}
	if c.Hedge.QueryRetries < 0 {
		errs = append(errs, "hedge: query_retries must be >= 0")
	}

	// Loop
	if c.Loop.Count < 1 || c.Loop.Count > 100 {
		errs = append(errs, fmt.Sprintf("loop: count must be 1-100, got %d", c.Loop.Count))
	}
	if c.Loop.HoldTime.Duration < 0 || c.Loop.Interval.Duration < 0 {
		errs = append(errs, "loop: hold_time and interval must not be negative")
	}

	// Nado
	if !validNetworks[c.Nado.Network] {
		errs = append(errs, fmt.Sprintf("nado: unsupported network %q (valid: inkMainnet, inkTestnet)", c.Nado.Network))
	}
	if c.Nado.KeyFile != "" && c.Nado.KeyPassword == "" && c.Nado.PrivateKey == "" {
		errs = append(errs, "nado: key_password is required when key_file is set")
	}

	// Lighter
	if c.Lighter.BaseURL == "" {
		errs = append(errs, "lighter: base_url must not be empty")
	}
	if c.Lighter.AccountIndex < 0 || c.Lighter.APIKeyIndex < 0 {
		errs = append(errs, "lighter: account_index and api_key_index must be >= 0")
	}
	if c.Lighter.KeyFile != "" && c.Lighter.KeyPassword == "" && c.Lighter.PrivateKey == "" {
		errs = append(errs, "lighter: key_password is required when key_file is set")
	}

	// Postgres
	if c.Postgres.DSN != "" {
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must be between 0 and pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Addr != "" && c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3
	if c.S3.Bucket != "" && c.S3.Region == "" && c.S3.Endpoint == "" {
		errs = append(errs, "s3: region or endpoint must be set when bucket is set")
	}

	// Notify
	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: config validation failed:\n  - %s", domain.ErrConfiguration, strings.Join(errs, "\n  - "))
	}
	return nil
}

// RequireCredentials checks that both venue keys are configured. Trading
// commands call it; spread, list and config do not.
func (c *Config) RequireCredentials() error {
	var errs []string
	if c.Nado.PrivateKey == "" && c.Nado.KeyFile == "" {
		errs = append(errs, "nado: private_key or key_file must be set (NADO_PRIVATE_KEY)")
	}
	if c.Lighter.PrivateKey == "" && c.Lighter.KeyFile == "" {
		errs = append(errs, "lighter: private_key or key_file must be set (LIGHTER_PRIVATE_KEY)")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: missing credentials:\n  - %s", domain.ErrConfiguration, strings.Join(errs, "\n  - "))
	}
	return nil
}
