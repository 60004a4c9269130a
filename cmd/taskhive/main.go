package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/taskhive/taskhive/pkg/access"
	"github.com/taskhive/taskhive/pkg/api"
	"github.com/taskhive/taskhive/pkg/audit"
	"github.com/taskhive/taskhive/pkg/billing"
	"github.com/taskhive/taskhive/pkg/config"
	"github.com/taskhive/taskhive/pkg/jobs"
	"github.com/taskhive/taskhive/pkg/lifecycle"
	"github.com/taskhive/taskhive/pkg/middleware"
	"github.com/taskhive/taskhive/pkg/observability"
	"github.com/taskhive/taskhive/pkg/store"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	db, err := openDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	st := store.NewPostgresStore(db)
	migrateCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	if err := st.Migrate(migrateCtx); err != nil {
		cancel()
		log.Fatalf("Failed to run migrations: %v", err)
	}
	cancel()

	registry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
	}

	billingService := billing.NewService(st, billing.Config{
		TrialPeriod: cfg.Billing.TrialPeriod,
		GracePeriod: cfg.Billing.GracePeriod,
	})
	lifecycleResolver := lifecycle.NewResolver(st, billingService, logger)

	accessResolver := access.NewResolver(st, cfg.Access.CacheTTL, metrics, logger)
	var accessService api.AccessService = accessResolver
	if redisClient != nil {
		accessService = access.NewRedisCache(accessResolver, redisClient, cfg.Access.CacheTTL, metrics)
	}

	dbAudit := audit.NewDBLogger(db)
	auditSinks := []audit.Logger{dbAudit}
	if cfg.Audit.StreamEnabled {
		auditSinks = append(auditSinks, audit.NewStreamLogger(os.Stdout))
	}
	auditLogger := audit.NewMultiLogger(auditSinks...)
	defer auditLogger.Close()

	options := []api.Option{
		api.WithAuditLogger(auditLogger),
		api.WithAuditSearch(dbAudit),
		api.WithSessionTTL(cfg.Sessions.TTL),
	}
	if redisClient != nil {
		limiter := middleware.NewDistributedRateLimiter(redisClient,
			middleware.DefaultRateLimitConfig(), "ratelimit:auth")
		options = append(options, api.WithSignInRateLimit(limiter.Middleware))
	} else {
		limiter := middleware.NewRateLimitMiddleware()
		options = append(options, api.WithSignInRateLimit(limiter.Handler))
	}

	server := api.NewServer(st, lifecycleResolver, accessService, logger, options...)

	handler := server.Router()
	if metrics != nil {
		handler = observability.HTTPMetricsMiddleware(metrics)(handler)
	}

	scheduler := jobs.NewScheduler(logger)
	if err := scheduler.AddInvitationCleanup(cfg.Jobs.InvitationCleanupSchedule, st); err != nil {
		log.Fatalf("Failed to schedule invitation cleanup: %v", err)
	}
	if err := scheduler.AddAuditRetention(cfg.Jobs.AuditRetentionSchedule, dbAudit,
		time.Duration(cfg.Audit.RetentionDays)*24*time.Hour); err != nil {
		log.Fatalf("Failed to schedule audit retention: %v", err)
	}
	scheduler.Start()

	appServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics live on a separate port so they stay reachable
	// when the app listener is saturated.
	opsMux := http.NewServeMux()
	checker := observability.NewHealthChecker(db, redisClient)
	observability.RegisterHealthRoutes(opsMux, checker)
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(opsMux, registry)
	}
	opsServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.HealthPort),
		Handler: opsMux,
	}

	shutdown := observability.NewShutdownManager(logger, appServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc("job scheduler", func(ctx context.Context) error {
		return scheduler.Stop(ctx)
	})
	shutdown.RegisterShutdownFunc("ops server", func(ctx context.Context) error {
		return opsServer.Shutdown(ctx)
	})

	var group errgroup.Group
	group.Go(func() error {
		logger.WithField("addr", appServer.Addr).Info("starting API server")
		if err := appServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		logger.WithField("addr", opsServer.Addr).Info("starting ops server")
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		return shutdown.WaitForShutdown()
	})

	if err := group.Wait(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func openDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
