package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"siteadmin/internal/auth"
	"siteadmin/internal/config"
	"siteadmin/internal/database"
	handlers "siteadmin/internal/http/handler"
	"siteadmin/internal/http/middleware"
	"siteadmin/internal/logger"
	"siteadmin/internal/otel"
	"siteadmin/internal/pubsub"
	"siteadmin/internal/repository"
	"siteadmin/internal/repository/memory"
	"siteadmin/internal/repository/postgres"
	"siteadmin/internal/service"
	"siteadmin/internal/storage"
)

// @title Site Admin API
// @version 1.0
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	loc := cfg.Location()

	zl, err := logger.New(logger.Config{Development: cfg.Env == "development", Location: loc})
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.AppConfig, zl *zap.Logger) error {
	shutdownTracing, err := otel.Init(ctx, zl)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = pubsub.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rdb.Close()
	}

	broker := repository.NewBroker(zl)
	var notifier repository.Notifier
	if rdb != nil {
		n := pubsub.NewRedisNotifier(rdb, broker, zl)
		go func() {
			if err := n.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				zl.Error("change relay stopped", zap.Error(err))
			}
		}()
		notifier = n
	}

	db, repo, admins, err := openRepository(ctx, cfg, broker, notifier, zl)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	store, blobs, err := openStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init object storage: %w", err)
	}

	authSvc, err := openAuth(ctx, cfg, admins, rdb, zl)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "siteadmin_change_relay_failures_total",
		Help: "Change signals that could not be relayed to other instances.",
	}, func() float64 { return float64(broker.RelayFailures()) }))
	metrics, err := service.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	promMW, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return fmt.Errorf("register http metrics: %w", err)
	}

	tracker := service.NewUploadTracker()
	deps := service.Deps{
		Repo:           repo,
		Store:          store,
		Tracker:        tracker,
		Metrics:        metrics,
		Logger:         zl,
		Location:       cfg.Location(),
		MaxUploadBytes: cfg.MaxUploadBytes(),
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		// Multipart overhead on top of the largest accepted file.
		BodyLimit: int(cfg.MaxUploadBytes()) + 1<<20,
	})

	app.Use(recover.New())
	app.Use(otelfiber.Middleware())
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(zl))
	app.Use(promMW.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	limiter := middleware.NewRateLimiter(rdb, "siteadmin:login",
		cfg.RateLimit.LoginMax, time.Duration(cfg.RateLimit.LoginWindowSec)*time.Second, zl)

	handlers.RegisterRoutes(app, handlers.Deps{
		DB:           db,
		Repo:         repo,
		Auth:         authSvc,
		Documents:    service.NewDocumentService(deps),
		Files:        service.NewFileService(deps),
		Team:         service.NewTeamService(deps),
		Contact:      service.NewContactService(deps),
		Branding:     service.NewBrandingService(deps),
		Tracker:      tracker,
		Blobs:        blobs,
		LoginLimiter: limiter.Handler(),
		LoginPath:    cfg.Auth.LoginPath,
		SecureCookie: cfg.Auth.CookieSecure,
		Logger:       zl,
	})

	errCh := make(chan error, 1)
	go func() {
		zl.Info("server_starting", zap.String("addr", ":"+cfg.Port),
			zap.String("repository", cfg.RepoDriver), zap.String("storage", cfg.Storage.Driver))
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zl.Info("server_stopping")
	return app.ShutdownWithTimeout(10 * time.Second)
}

// openRepository returns the content store, plus the database handle when
// the postgres driver is selected.
func openRepository(ctx context.Context, cfg *config.AppConfig, broker *repository.Broker, notifier repository.Notifier, zl *zap.Logger) (*sql.DB, repository.Repository, repository.AdminRepository, error) {
	switch cfg.RepoDriver {
	case "memory":
		var opts []memory.Option
		if notifier != nil {
			opts = append(opts, memory.WithNotifier(notifier))
		}
		return nil, memory.NewNodeRepository(broker, opts...), memory.NewAdminRepository(), nil
	case "postgres":
		db, err := database.NewPostgres(ctx, cfg.Database, zl)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect database: %w", err)
		}
		return db, postgres.NewNodePostgres(db, broker, notifier), postgres.NewAdminPostgres(db), nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown REPOSITORY_DRIVER %q", cfg.RepoDriver)
	}
}

// openStorage builds the blob store. The in-memory store is also returned so
// its objects can be served under /blobs.
func openStorage(ctx context.Context, cfg *config.AppConfig) (storage.Storage, *storage.MemoryStorage, error) {
	switch cfg.Storage.Driver {
	case "minio":
		s, err := storage.NewMinIO(ctx, cfg.Storage.MinIO)
		return s, nil, err
	case "gcs":
		s, err := storage.NewGCS(ctx, cfg.Storage.GCS)
		return s, nil, err
	case "memory":
		m := storage.NewMemory("http://localhost:" + cfg.Port + "/blobs")
		return m, m, nil
	default:
		return nil, nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.Storage.Driver)
	}
}

func openAuth(ctx context.Context, cfg *config.AppConfig, admins repository.AdminRepository, rdb *redis.Client, zl *zap.Logger) (auth.Service, error) {
	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL())
	if err != nil {
		return nil, fmt.Errorf("init sessions: %w", err)
	}

	var revoked auth.RevocationStore = auth.NewMemoryRevocations()
	if rdb != nil {
		revoked = auth.NewRedisRevocations(rdb)
	}
	svc := auth.NewService(admins, tokens, revoked, zl)

	if cfg.Auth.AdminEmail != "" && cfg.Auth.AdminPassword != "" {
		if err := svc.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
			return nil, fmt.Errorf("bootstrap admin: %w", err)
		}
		zl.Info("admin_ready", zap.String("email", cfg.Auth.AdminEmail))
	}
	return svc, nil
}
