package app

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"

	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/checkout"
	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/pricing"
	"github.com/inventicabv/simonisvis.nl-sub000/internal/domain/weight"
	"github.com/inventicabv/simonisvis.nl-sub000/internal/format"
	"github.com/inventicabv/simonisvis.nl-sub000/internal/handler"
	"github.com/inventicabv/simonisvis.nl-sub000/internal/lock"
	"github.com/inventicabv/simonisvis.nl-sub000/internal/storage/postgres"
	"github.com/inventicabv/simonisvis.nl-sub000/pkg/health"
	"github.com/inventicabv/simonisvis.nl-sub000/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	unit, err := weight.ParseUnit(cfg.Shop.WeightUnit)
	if err != nil {
		return errors.Wrap(err, "weight unit")
	}
	formatter, err := format.New(cfg.Shop.Currency, cfg.Shop.Locale)
	if err != nil {
		return errors.Wrap(err, "create formatter")
	}

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	healthSvc := health.New()
	healthSvc.AddReadiness(health.Check{
		Name:    "postgres",
		Timeout: 5 * time.Second,
		Func:    health.PingCheck(pool),
	})
	healthSvc.AddLiveness(health.Check{
		Name:    "goroutines",
		Timeout: time.Second,
		Func:    health.GoroutineCountCheck(10000),
	})

	// Redis is optional: it shares rate-limit counters across replicas and
	// serializes redemptions of the same coupon.
	var (
		rdb     *redis.Client
		locker  checkout.Locker
		rlStore limiter.Store
	)
	if cfg.RedisAddr != "" {
		rdb, err = newRedis(ctx, cfg.RedisAddr, m)
		if err != nil {
			return err
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				lg.Warn("Close redis", zap.Error(err))
			}
		}()
		healthSvc.AddReadiness(health.Check{
			Name:    "redis",
			Timeout: 2 * time.Second,
			Func: func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			},
		})

		locker = lock.NewLocker(rdb, lock.Options{})
		rlStore, err = limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{
			Prefix:   "shop:ratelimit",
			MaxRetry: 3,
		})
		if err != nil {
			return errors.Wrap(err, "create rate limit store")
		}
	} else {
		lg.Info("Redis not configured, using in-process rate limits")
		rlStore = memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          "shop:ratelimit",
			CleanUpInterval: cfg.RateLimit.Period,
		})
	}

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Domain services.
	engine := pricing.NewEngine(pricing.Options{StrictWeightTiers: cfg.Shop.StrictWeightTiers})
	checkoutSvc, err := checkout.NewService(
		checkout.Repositories{
			Carts:   postgres.NewCartRepository(pool),
			Coupons: postgres.NewCouponRepository(pool),
			Regions: postgres.NewShippingRepository(pool),
			Rates:   postgres.NewTaxRepository(pool),
		},
		engine,
		checkout.Settings{Tax: cfg.Shop.TaxSettings(), WeightUnit: unit},
		locker,
		m.MeterProvider().Meter("shop"),
	)
	if err != nil {
		return errors.Wrap(err, "create checkout service")
	}

	instrument, err := httpmiddleware.Instrument(m.MeterProvider().Meter("shop/http"))
	if err != nil {
		return errors.Wrap(err, "create http instrumentation")
	}
	rateLimiter := limiter.New(rlStore, limiter.Rate{
		Period: cfg.RateLimit.Period,
		Limit:  cfg.RateLimit.Limit,
	})

	// Mux: health endpoints + API routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	handler.NewHandler(checkoutSvc, formatter).Register(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.RequestID(),
			httpmiddleware.Recovery(),
			httpmiddleware.RateLimit(rateLimiter),
			httpmiddleware.LogRequests(),
			instrument,
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening",
		zap.String("addr", cfg.Addr),
		zap.String("currency", formatter.Currency()),
		zap.Bool("redis", rdb != nil),
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// newRedis connects to addr, which is either host:port or a redis:// URL.
func newRedis(ctx context.Context, addr string, m *app.Telemetry) (*redis.Client, error) {
	opts := &redis.Options{Addr: addr}
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, errors.Wrap(err, "parse redis url")
		}
		opts = parsed
	}
	rdb := redis.NewClient(opts)

	if err := redisotel.InstrumentTracing(rdb, redisotel.WithTracerProvider(m.TracerProvider())); err != nil {
		zctx.From(ctx).Warn("Instrument redis tracing", zap.Error(err))
	}
	if err := redisotel.InstrumentMetrics(rdb, redisotel.WithMeterProvider(m.MeterProvider())); err != nil {
		zctx.From(ctx).Warn("Instrument redis metrics", zap.Error(err))
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	return rdb, nil
}
