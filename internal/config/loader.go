package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/hedgebot/internal/domain"
)

// Load builds the configuration: built-in defaults, then the TOML file at
// path (skipped when path is empty or the file does not exist), then a .env
// file in the working directory if present, then environment overrides. The
// returned Config has NOT been validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: config file %s: %v", domain.ErrConfiguration, path, err)
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads the well-known environment variables and
// overwrites the corresponding Config fields when a variable is set. Trading
// parameters use the HEDGE_*, NADO_* and LIGHTER_* names operators already
// export; infrastructure uses HEDGEBOT_*.
func applyEnvOverrides(cfg *Config) {
	// ── Hedge ──
	setStr(&cfg.Hedge.Coin, "HEDGE_COIN")
	setDecimal(&cfg.Hedge.Size, "HEDGE_SIZE")
	setDecimal(&cfg.Hedge.Slippage, "HEDGE_SLIPPAGE")
	setStr(&cfg.Hedge.OrderType, "HEDGE_ORDER_TYPE")
	setDecimal(&cfg.Hedge.MinNotionalUSD, "HEDGE_MIN_NOTIONAL_USD")
	setInt(&cfg.Hedge.PriceDecimals, "HEDGE_PRICE_DECIMALS")
	setBool(&cfg.Hedge.ReduceOnlyOnClose, "HEDGE_REDUCE_ONLY_ON_CLOSE")
	setSeconds(&cfg.Hedge.RoundtripPause, "HEDGE_ROUNDTRIP_PAUSE")
	setSeconds(&cfg.Hedge.FillCheckDelay, "HEDGE_FILL_CHECK_DELAY")

	// ── Loop ──
	setInt(&cfg.Loop.Count, "HEDGE_LOOP_COUNT")
	setSeconds(&cfg.Loop.HoldTime, "HEDGE_LOOP_HOLD_TIME")
	setSeconds(&cfg.Loop.Interval, "HEDGE_LOOP_INTERVAL")
	setBool(&cfg.Loop.StopOnError, "HEDGE_LOOP_STOP_ON_ERROR")

	// ── Nado ──
	setStr(&cfg.Nado.Network, "NADO_NETWORK")
	setStr(&cfg.Nado.GatewayURL, "NADO_GATEWAY_URL")
	setStr(&cfg.Nado.WSURL, "NADO_WS_URL")
	setStr(&cfg.Nado.PrivateKey, "NADO_PRIVATE_KEY")
	setStr(&cfg.Nado.KeyFile, "NADO_KEY_FILE")
	setStr(&cfg.Nado.KeyPassword, "NADO_KEY_PASSWORD")
	setStr(&cfg.Nado.Subaccount, "NADO_SUBACCOUNT")

	// ── Lighter ──
	setStr(&cfg.Lighter.BaseURL, "LIGHTER_BASE_URL")
	setStr(&cfg.Lighter.PrivateKey, "LIGHTER_PRIVATE_KEY")
	setStr(&cfg.Lighter.KeyFile, "LIGHTER_KEY_FILE")
	setStr(&cfg.Lighter.KeyPassword, "LIGHTER_KEY_PASSWORD")
	setInt64(&cfg.Lighter.AccountIndex, "LIGHTER_ACCOUNT_INDEX")
	setInt64(&cfg.Lighter.APIKeyIndex, "LIGHTER_API_KEY_INDEX")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "HEDGEBOT_POSTGRES_DSN")
	setInt(&cfg.Postgres.PoolMaxConns, "HEDGEBOT_POSTGRES_POOL_MAX_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "HEDGEBOT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "HEDGEBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "HEDGEBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "HEDGEBOT_REDIS_DB")
	setBool(&cfg.Redis.TLSEnabled, "HEDGEBOT_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "HEDGEBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "HEDGEBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "HEDGEBOT_S3_BUCKET")
	setStr(&cfg.S3.Prefix, "HEDGEBOT_S3_PREFIX")
	setStr(&cfg.S3.AccessKey, "HEDGEBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "HEDGEBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.ForcePathStyle, "HEDGEBOT_S3_FORCE_PATH_STYLE")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "HEDGEBOT_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "HEDGEBOT_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "HEDGEBOT_DISCORD_WEBHOOK")
	setStringSlice(&cfg.Notify.Events, "HEDGEBOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "HEDGEBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty and parses.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setDecimal(dst *decimal.Decimal, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(strings.TrimSpace(v)); err == nil {
			*dst = d
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// setSeconds accepts a bare number of seconds ("30", "1.5") or a Go
// duration ("30s").
func setSeconds(dst *duration, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		dst.Duration = time.Duration(f * float64(time.Second))
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		dst.Duration = d
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
