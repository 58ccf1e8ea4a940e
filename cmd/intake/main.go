package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"refund-intake/intake"
	"refund-intake/intake/application"
	"refund-intake/intake/domain"
	"refund-intake/intake/infra"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg, err := readConfig(viper.New())
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := newLogger(cfg.logLevel)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var rdb *redis.Client
	if cfg.backend == "redis" {
		opts, err := cfg.redisOptions()
		if err != nil {
			logger.Fatal("redis config error", zap.Error(err))
		}
		rdb = redis.NewClient(opts)
	}

	stats := statsFanout{infra.NewPrometheusStatsStore(prometheus.DefaultRegisterer)}
	if cfg.redisStats {
		stats = append(stats, infra.NewRedisStatsStore(rdb))
	}

	facade := application.NewFacade(storeOpener(ctx, cfg, rdb, logger), cfg.facade,
		application.WithLogger(logger),
		application.WithStats(stats),
	)
	if !facade.Init(ctx) {
		// segue degradado: rate limit libera e analytics vira no-op.
		logger.Warn("intake store unavailable, running without rate limit and analytics", zap.String("backend", cfg.backend))
	}

	sched := cron.New()
	if _, err := sched.AddFunc(cfg.cleanupSchedule, func() { facade.Cleanup(ctx) }); err != nil {
		logger.Fatal("invalid CLEANUP_SCHEDULE", zap.String("schedule", cfg.cleanupSchedule), zap.Error(err))
	}
	sched.Start()

	keyFn := intake.DefaultKeyFunc(cfg.sessionHeader, cfg.trustXFF)

	var burst intake.BurstLimiter
	if cfg.burstRPS > 0 {
		guard := infra.NewBurstGuard(cfg.burstRPS, cfg.burstSize)
		guard.StartJanitor(ctx)
		logger.Info("burst guard enabled", zap.Float64("rps", guard.RPS()), zap.Int("burst", guard.Burst()))
		burst = guard
	}

	h := http.Handler(intake.NewRouter(intake.RouterOptions{
		Intake: facade,
		Log:    logger,
		RateLimit: intake.Options{
			Checker:             facade,
			KeyFn:               keyFn,
			AddRateLimitHeaders: cfg.addHeaders,
		},
		Burst: intake.BurstOptions{
			Limiter: burst,
			KeyFn:   keyFn,
		},
		Metrics: promhttp.Handler(),
	}))
	h = intake.ConcurrencyMiddleware(intake.ConcurrencyOptions{
		Max:            cfg.concurrencyMax,
		AcquireTimeout: cfg.concurrencyTimeout,
	})(h)

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	effective := facade.Config()
	logger.Info("intake listening",
		zap.String("addr", cfg.listenAddr),
		zap.String("backend", cfg.backend),
		zap.Int("rateLimitMax", effective.RateLimitMax),
		zap.Duration("rateLimitWindow", effective.RateLimitWindow),
		zap.Duration("batchMaxWait", effective.BatchMaxWait),
		zap.Float64("burstRPS", cfg.burstRPS),
		zap.Int("concurrencyMax", cfg.concurrencyMax),
	)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", zap.Error(err))
	}

	<-sched.Stop().Done()

	// contexto novo: o de sinal já foi cancelado e o flush final precisa rodar.
	disconnectCtx, cancelDisconnect := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelDisconnect()
	facade.Disconnect(disconnectCtx)
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

// storeOpener escolhe o meio conforme STORE_BACKEND. Uma falha aqui não derruba
// o processo: a Facade só reporta Init=false.
func storeOpener(janitorCtx context.Context, cfg config, rdb *redis.Client, logger *zap.Logger) application.StoreOpener {
	return func(ctx context.Context) (domain.TTLStore, error) {
		switch cfg.backend {
		case "redis":
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			if err := rdb.Ping(pingCtx).Err(); err != nil {
				return nil, err
			}
			return infra.NewRedisStore(rdb,
				infra.WithKeyPrefix(cfg.redisPrefix),
				infra.WithScanCount(cfg.redisScan),
			), nil
		case "badger":
			store, err := infra.OpenBadgerStore(cfg.badgerPath)
			if err != nil {
				return nil, err
			}
			return store, nil
		default:
			store := infra.NewMemoryStore()
			store.StartJanitor(janitorCtx)
			logger.Info("intake store: using in-memory backend")
			return store, nil
		}
	}
}

// statsFanout repassa cada decisão para todos os stores; o primeiro erro é devolvido.
type statsFanout []domain.StatsStore

func (f statsFanout) Record(ctx context.Context, ev domain.StatsEvent) error {
	var firstErr error
	for _, s := range f {
		if err := s.Record(ctx, ev); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
