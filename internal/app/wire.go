package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/alanyoungcy/hedgebot/internal/blob/s3"
	"github.com/alanyoungcy/hedgebot/internal/cache/redis"
	"github.com/alanyoungcy/hedgebot/internal/config"
	"github.com/alanyoungcy/hedgebot/internal/crypto"
	"github.com/alanyoungcy/hedgebot/internal/domain"
	"github.com/alanyoungcy/hedgebot/internal/executor"
	"github.com/alanyoungcy/hedgebot/internal/market"
	"github.com/alanyoungcy/hedgebot/internal/notify"
	"github.com/alanyoungcy/hedgebot/internal/platform/lighter"
	"github.com/alanyoungcy/hedgebot/internal/platform/nado"
	"github.com/alanyoungcy/hedgebot/internal/service"
	"github.com/alanyoungcy/hedgebot/internal/store/postgres"
)

// Dependencies bundles what the commands need. Built by Wire and torn down
// by the returned cleanup function.
type Dependencies struct {
	Nado     *nado.Client
	Lighter  *lighter.Client
	Products *market.ProductDirectory
	Service  *service.HedgeService
	Loop     *service.LoopRunner
	Notifier *notify.Notifier

	// WSURL is the Nado gateway WebSocket used by watch.
	WSURL string
}

// Wire constructs the venue clients, the executor, the optional
// persistence adapters and the services. With trading false no keys are
// loaded and the venue clients can only read public market data.
func Wire(ctx context.Context, cfg *config.Config, trading bool, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, err
	}

	deps := &Dependencies{}

	// --- Venues ---
	deployment, err := nado.LookupDeployment(cfg.Nado.Network)
	if err != nil {
		return fail(fmt.Errorf("wire: nado: %w", err))
	}
	deps.WSURL = deployment.WebSocketURL
	if cfg.Nado.WSURL != "" {
		deps.WSURL = cfg.Nado.WSURL
	}

	var nadoSigner *nado.OrderSigner
	var lighterSigner crypto.PersonalSigner
	if trading {
		ks, err := crypto.LoadSigner(crypto.KeyConfig{
			Label:            "nado",
			RawPrivateKey:    cfg.Nado.PrivateKey,
			EncryptedKeyPath: cfg.Nado.KeyFile,
			KeyPassword:      cfg.Nado.KeyPassword,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: nado key: %w", err))
		}
		nadoSigner = nado.NewOrderSigner(ks, deployment)

		lk, err := crypto.LoadSigner(crypto.KeyConfig{
			Label:            "lighter",
			RawPrivateKey:    cfg.Lighter.PrivateKey,
			EncryptedKeyPath: cfg.Lighter.KeyFile,
			KeyPassword:      cfg.Lighter.KeyPassword,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: lighter key: %w", err))
		}
		lighterSigner = lk
		logger.InfoContext(ctx, "signers loaded",
			slog.String("nado_address", ks.Address().Hex()),
			slog.String("lighter_address", lk.Address().Hex()),
		)
	}

	deps.Nado = nado.NewClient(nado.ClientConfig{
		Deployment:     deployment,
		GatewayURL:     cfg.Nado.GatewayURL,
		SubaccountName: cfg.Nado.Subaccount,
		OrderTTL:       cfg.Nado.OrderTTL.Duration,
		HTTPTimeout:    cfg.Nado.HTTPTimeout.Duration,
	}, nadoSigner, logger)
	deps.Lighter = lighter.NewClient(lighter.Config{
		BaseURL:      cfg.Lighter.BaseURL,
		AccountIndex: cfg.Lighter.AccountIndex,
		APIKeyIndex:  cfg.Lighter.APIKeyIndex,
		HTTPTimeout:  cfg.Lighter.HTTPTimeout.Duration,
	}, lighterSigner, logger)

	// --- Redis (optional) ---
	var productCache domain.ProductCache
	var locks domain.LockManager
	if cfg.Redis.Addr != "" {
		rc, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: redis: %w", err))
		}
		closers = append(closers, func() { _ = rc.Close() })
		productCache = redis.NewProductCache(rc, cfg.Nado.Network, cfg.Redis.ProductTTL.Duration)
		locks = redis.NewLockManager(rc)
	}

	// --- Market data and executor ---
	deps.Products = market.NewProductDirectory(deps.Nado, productCache, logger)
	books := market.NewSnapshotProvider(
		market.NewNadoBooks(deps.Nado, deps.Products, market.DefaultDepth),
		market.NewLighterBooks(deps.Lighter, market.DefaultDepth),
	)

	orderType, err := domain.ParseOrderType(cfg.Hedge.OrderType)
	if err != nil {
		return fail(fmt.Errorf("wire: %w", err))
	}
	legA := executor.NewNadoLeg(deps.Nado, deps.Products)
	legB := executor.NewLighterLeg(deps.Lighter)
	exec := executor.New(books, legA, legB, executor.Config{
		Slippage:          cfg.Hedge.Slippage,
		OrderType:         orderType,
		MinNotionalUSD:    cfg.Hedge.MinNotionalUSD,
		PriceDecimals:     int32(cfg.Hedge.PriceDecimals),
		ReduceOnlyOnClose: cfg.Hedge.ReduceOnlyOnClose,
	}, logger)
	if d := cfg.Hedge.FillCheckDelay.Duration; d > 0 {
		exec.SetFillChecker(executor.NewFillChecker(legA, legB, d, logger))
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- PostgreSQL journal (optional) ---
	var hedges domain.HedgeStore
	var audit domain.AuditStore
	if cfg.Postgres.DSN != "" {
		pg, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: postgres: %w", err))
		}
		closers = append(closers, pg.Close)
		if cfg.Postgres.RunMigrations {
			if err := pg.RunMigrations(ctx); err != nil {
				return fail(fmt.Errorf("wire: postgres migrations: %w", err))
			}
		}
		hedges = postgres.NewHedgeStore(pg.Pool())
		audit = postgres.NewAuditStore(pg.Pool())
	}

	// --- S3 archive (optional) ---
	var archive domain.ResultArchiver
	if cfg.S3.Bucket != "" {
		sc, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: s3: %w", err))
		}
		archive = s3blob.NewResultArchiver(s3blob.NewWriter(sc), cfg.S3.Prefix)
	}

	// --- Services ---
	deps.Service = service.NewHedgeService(
		exec, books, deps.Products, deps.Nado, deps.Lighter,
		hedges, audit, deps.Notifier,
		service.Config{
			RoundtripPause:  cfg.Hedge.RoundtripPause.Duration,
			QueryRetries:    cfg.Hedge.QueryRetries,
			QueryRetryDelay: cfg.Hedge.QueryRetryDelay.Duration,
		},
		logger,
	)
	deps.Loop = service.NewLoopRunner(deps.Service, locks, archive, deps.Notifier, logger)

	logger.InfoContext(ctx, "dependencies wired",
		slog.String("network", cfg.Nado.Network),
		slog.Bool("trading", trading),
		slog.Bool("redis", cfg.Redis.Addr != ""),
		slog.Bool("postgres", hedges != nil),
		slog.Bool("s3", archive != nil),
		slog.Int("notify_senders", len(senders)),
	)
	return deps, cleanup, nil
}
