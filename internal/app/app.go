package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/product-desk/internal/domain/auth"
	"github.com/xenking/product-desk/internal/domain/product"
	"github.com/xenking/product-desk/internal/events"
	"github.com/xenking/product-desk/internal/handler"
	"github.com/xenking/product-desk/internal/storage/postgres"
	"github.com/xenking/product-desk/pkg/health"
	"github.com/xenking/product-desk/pkg/httpmiddleware"
)

const serviceName = "product-desk-api"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	if err := postgres.RunMigrations(ctx, cfg.DatabaseURL, lg); err != nil {
		return errors.Wrap(err, "run migrations")
	}
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc", time.Second, health.GCMaxPauseCheck(time.Second))
	healthSvc.Start(ctx, 10*time.Second)

	publisher, closeEvents, err := newPublisher(cfg, lg)
	if err != nil {
		return errors.Wrap(err, "connect events")
	}
	defer func() {
		if err := closeEvents(); err != nil {
			lg.Warn("Close events connection", zap.Error(err))
		}
	}()

	products := product.NewService(postgres.NewProductRepository(pool), publisher, lg.Named("product"))
	h, err := handler.NewHandler(
		handler.HandlerConfig{
			SecureCookies: cfg.SecureCookies,
			Meter:         m.MeterProvider().Meter(serviceName),
		},
		products,
		auth.NewAuthenticator(cfg.AdminPassword, cfg.LoginPassword),
		lg,
	)
	if err != nil {
		return errors.Wrap(err, "create handler")
	}

	router := h.Router()
	router.Get("/livez", healthSvc.LiveEndpoint)
	router.Get("/readyz", healthSvc.ReadyEndpoint)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(router,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", httpmiddleware.RequestIDHeader},
				ExposeHeaders:    []string{httpmiddleware.RequestIDHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:     cfg.RateLimit.Max,
				Window:  cfg.RateLimit.Window,
				KeyFunc: httpmiddleware.SessionOrIP(auth.SessionCookie),
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument(serviceName, m),
			httpmiddleware.LogRequests(),
		),
	}
	healthSvc.SetReady(true)

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

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// newPublisher connects to RabbitMQ when configured. Without AMQPURL events
// are dropped.
func newPublisher(cfg *Config, lg *zap.Logger) (product.Publisher, func() error, error) {
	if cfg.AMQPURL == "" {
		lg.Info("Product events disabled")
		return product.NopPublisher{}, func() error { return nil }, nil
	}
	p, closeFn, err := events.Dial(cfg.AMQPURL)
	if err != nil {
		return nil, nil, err
	}
	lg.Info("Publishing product events", zap.String("exchange", events.Exchange))
	return p, closeFn, nil
}
