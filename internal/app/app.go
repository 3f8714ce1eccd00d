// Package app wires configuration, storage, domain services, and the HTTP
// server into a running process.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lianamed/pharmacy-api/internal/api"
	"github.com/lianamed/pharmacy-api/internal/domain/billing"
	"github.com/lianamed/pharmacy-api/internal/domain/notification"
	"github.com/lianamed/pharmacy-api/internal/domain/prescription"
	"github.com/lianamed/pharmacy-api/internal/domain/user"
	"github.com/lianamed/pharmacy-api/internal/filestore"
	"github.com/lianamed/pharmacy-api/internal/kv"
	"github.com/lianamed/pharmacy-api/internal/repository"
	"github.com/lianamed/pharmacy-api/pkg/health"
	"github.com/lianamed/pharmacy-api/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Cart substrate: Redis when configured so every API instance sees the
	// same carts, otherwise process memory.
	var cartStore kv.Store
	healthSvc := health.New()
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return errors.Wrap(err, "parse redis URL")
		}
		client := redis.NewClient(opts)
		defer client.Close()

		store := kv.NewRedis(ctx, client, lg.Named("kv"))
		defer store.Close()
		cartStore = store

		healthSvc.AddReadinessCheck("redis", 5*time.Second, func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	} else {
		lg.Warn("no redis URL configured, carts stay in process memory")
		cartStore = kv.NewMemory()
	}

	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Prescription file storage.
	files, err := filestore.NewLocal(cfg.UploadDir)
	if err != nil {
		return errors.Wrap(err, "create upload dir")
	}

	// Repositories.
	userRepo := repository.NewUserRepository(pool)
	medicineRepo := repository.NewMedicineRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	prescriptionRepo := repository.NewPrescriptionRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)

	// Domain services.
	authSvc := user.NewAuthService(userRepo, []byte(cfg.JWTSecret))
	notificationSvc := notification.NewService(notificationRepo)
	billingSvc := billing.NewService(orderRepo, medicineRepo, notificationSvc, lg.Named("billing"))
	prescriptionSvc := prescription.NewService(prescriptionRepo, files, notificationSvc, userRepo, lg.Named("prescription"))

	// HTTP handlers.
	h := api.NewHandler(
		api.HandlerConfig{ImageBaseURL: cfg.ImageBaseURL},
		authSvc,
		userRepo,
		medicineRepo,
		billingSvc,
		orderRepo,
		prescriptionSvc,
		prescriptionRepo,
		notificationSvc,
		cartStore,
		lg.Named("api"),
	)

	// Mux: health endpoints + API routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", http.StripPrefix("/api", h.Routes()))

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("pharmacy-api", m),
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
