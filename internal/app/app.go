package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Nickwenniyxiao-art/wayfair-clone/internal/domain/cart"
	"github.com/Nickwenniyxiao-art/wayfair-clone/internal/domain/order"
	"github.com/Nickwenniyxiao-art/wayfair-clone/internal/domain/pricing"
	"github.com/Nickwenniyxiao-art/wayfair-clone/internal/handler"
	"github.com/Nickwenniyxiao-art/wayfair-clone/internal/payment"
	"github.com/Nickwenniyxiao-art/wayfair-clone/internal/repository"
	"github.com/Nickwenniyxiao-art/wayfair-clone/pkg/health"
	"github.com/Nickwenniyxiao-art/wayfair-clone/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	shippingFlat, err := decimal.NewFromString(cfg.ShippingFlat)
	if err != nil {
		return errors.Wrap(err, "parse shipping flat rate")
	}
	taxRate, err := decimal.NewFromString(cfg.TaxRate)
	if err != nil {
		return errors.Wrap(err, "parse tax rate")
	}
	var declineOver *decimal.Decimal
	if cfg.DeclineOver != "" {
		v, err := decimal.NewFromString(cfg.DeclineOver)
		if err != nil {
			return errors.Wrap(err, "parse decline-over")
		}
		declineOver = &v
	}

	// PostgreSQL pool + migrations.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	productRepo := repository.NewProductRepository(pool)
	cartRepo := repository.NewCartRepository(pool)
	couponRepo := repository.NewCouponRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	apikeyRepo := repository.NewAPIKeyRepository(pool)

	// Domain services.
	cartService := cart.NewService(cartRepo, productRepo)
	pricer := pricing.NewEngine(pricing.FlatRate{Cost: shippingFlat}, taxRate)
	gateway := payment.Sandbox{DeclineOver: declineOver}
	orderEngine := order.NewEngine(
		orderRepo, cartRepo, productRepo, couponRepo,
		pricer, gateway, cfg.PaymentTimeout,
	)

	// HTTP surface.
	h := handler.New(
		handler.Config{APIKeyPepper: []byte(cfg.APIKeyPepper)},
		productRepo,
		cartService,
		orderEngine,
		apikeyRepo,
	)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(h.Router(healthSvc),
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", "api_key"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("storefront-api", m),
			httpmiddleware.Metrics(m),
			httpmiddleware.LogRequests(),
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

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
