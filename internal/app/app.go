package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/vitrine/internal/domain/analytics"
	"github.com/xenking/vitrine/internal/domain/auth"
	"github.com/xenking/vitrine/internal/domain/bundle"
	"github.com/xenking/vitrine/internal/domain/cart"
	"github.com/xenking/vitrine/internal/domain/messaging"
	"github.com/xenking/vitrine/internal/domain/order"
	"github.com/xenking/vitrine/internal/domain/reservation"
	"github.com/xenking/vitrine/internal/domain/stock"
	"github.com/xenking/vitrine/internal/handler"
	kafkahandoff "github.com/xenking/vitrine/internal/messaging/kafka"
	"github.com/xenking/vitrine/internal/storage/filecache"
	"github.com/xenking/vitrine/internal/storage/rediscache"
	"github.com/xenking/vitrine/pkg/health"
	"github.com/xenking/vitrine/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("store", cfg.Store),
		zap.String("cache", cfg.Cache.Driver),
	)
	decimal.MarshalJSONWithoutQuotes = true

	// Authoritative store.
	be, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer be.close()

	// Redis holds session carts and, optionally, bundles.
	rdb, err := rediscache.NewClient(ctx, cfg.Redis.URL)
	if err != nil {
		return errors.Wrap(err, "connect redis")
	}
	defer func() { _ = rdb.Close() }()

	var bundles bundle.Store
	switch cfg.Cache.Driver {
	case CacheRedis:
		bundles = rediscache.NewBundleStore(rdb, cfg.Cache.BundleTTL)
	default:
		fs, err := filecache.NewBundleStore(cfg.Cache.Dir)
		if err != nil {
			return errors.Wrap(err, "open bundle cache")
		}
		bundles = fs
	}

	// Order hand-off.
	var (
		handoff  messaging.Handoff = messaging.NewLogHandoff(lg.Named("handoff"))
		producer *kafkahandoff.Producer
	)
	if len(cfg.Kafka.Brokers) > 0 {
		producer = kafkahandoff.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Buffer, lg.Named("kafka"))
		producer.Start(ctx)
		handoff = producer
	}

	// Analytics recorder.
	loc, err := time.LoadLocation(cfg.Analytics.Timezone)
	if err != nil {
		return errors.Wrap(err, "load analytics timezone")
	}
	recorder := analytics.NewRecorder(be.counter, lg.Named("analytics"), analytics.RecorderConfig{
		Workers:   cfg.Analytics.Workers,
		QueueSize: cfg.Analytics.QueueSize,
		Attempts:  cfg.Analytics.Attempts,
		Backoff:   cfg.Analytics.Backoff,
		Location:  loc,
	})
	recorder.Start(ctx)

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck(cfg.Store, 5*time.Second, be.ping)
	healthSvc.AddReadinessCheck("redis", 2*time.Second, func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc", time.Second, health.GCMaxPauseCheck(time.Second))
	healthSvc.AddReadinessCheck("analytics_backlog", time.Second,
		health.BacklogCheck(recorder.Backlog, cfg.Analytics.QueueSize*9/10),
		health.WithThresholds(6, 1),
	)
	if producer != nil {
		healthSvc.AddReadinessCheck("handoff_backlog", time.Second,
			health.BacklogCheck(producer.Backlog, cfg.Kafka.Buffer*9/10),
			health.WithThresholds(6, 1),
		)
	}
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Rate limiting.
	var limiter httpmiddleware.Limiter
	switch cfg.RateLimit.Driver {
	case LimiterRedis:
		limiter = rediscache.NewRateLimiter(rdb, cfg.RateLimit.Max, cfg.RateLimit.Window)
	default:
		sw := httpmiddleware.NewSlidingWindow(cfg.RateLimit.Max, cfg.RateLimit.Window)
		sw.StartCleanup(ctx)
		limiter = sw
	}

	// Domain services.
	carts := rediscache.NewCartStore(rdb, cfg.Redis.CartTTL)
	ledger := stock.NewLedger(be.catalog, be.reservations)
	cartService := cart.NewService(ledger, carts)
	orderService := order.NewService(
		ledger,
		carts,
		be.catalog,
		reservation.NewManager(be.reservations),
		be.orders,
		handoff,
		order.WithMeter(m.MeterProvider().Meter("vitrine")),
	)

	// HTTP handlers.
	h := handler.NewHandler(handler.Config{
		Bundles:  bundle.NewGateway(be.catalog, bundles),
		Stock:    ledger,
		Carts:    cartService,
		Checkout: orderService,
		Tracker:  recorder,
		Rankings: analytics.NewService(be.counter),
		Keys:     auth.NewAuthenticator(be.keys, []byte(cfg.APIKeyPepper)),
		Timeout:  cfg.Timeout,
	})

	router := chi.NewRouter()
	router.Get("/livez", healthSvc.LiveEndpoint)
	router.Get("/readyz", healthSvc.ReadyEndpoint)
	h.Register(router)
	routeFinder := httpmiddleware.MakeRouteFinder(router)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      cfg.Timeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(router,
			httpmiddleware.Recovery(),
			httpmiddleware.RequestID(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				Origins:          cfg.CORS.Origins,
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(limiter, httpmiddleware.RateLimitConfig{
				Skip: httpmiddleware.SkipPaths("/livez", "/readyz"),
			}),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("vitrine-api", routeFinder, m),
			httpmiddleware.LogRequests(routeFinder),
			httpmiddleware.Labeler(routeFinder),
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
		recorder.Close()
		if producer != nil {
			producer.Close()
			producer.WaitClosed()
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
