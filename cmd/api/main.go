package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bryanwahyu/automaton-sol/internal/application"
	appaudits "github.com/bryanwahyu/automaton-sol/internal/application/audits"
	appreviews "github.com/bryanwahyu/automaton-sol/internal/application/reviews"
	"github.com/bryanwahyu/automaton-sol/internal/config"
	domaudits "github.com/bryanwahyu/automaton-sol/internal/domain/audits"
	domreviews "github.com/bryanwahyu/automaton-sol/internal/domain/reviews"
	"github.com/bryanwahyu/automaton-sol/internal/infra/ai/openai"
	mysqlp "github.com/bryanwahyu/automaton-sol/internal/infra/db/mysql"
	"github.com/bryanwahyu/automaton-sol/internal/infra/db/postgres"
	"github.com/bryanwahyu/automaton-sol/internal/infra/db/sqlite"
	"github.com/bryanwahyu/automaton-sol/internal/infra/httpserver"
	minioStore "github.com/bryanwahyu/automaton-sol/internal/infra/storage"
	"github.com/bryanwahyu/automaton-sol/internal/logging"
	"github.com/bryanwahyu/automaton-sol/internal/middleware"
)

type repositories struct {
	db      *sql.DB
	audits  domaudits.Repository
	reviews domreviews.Repository
}

// openDB connects the configured driver and runs its embedded migration.
func openDB(ctx context.Context, cfg *config.Config) (*repositories, error) {
	var (
		db  *sql.DB
		err error
	)
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		if db, err = postgres.Connect(ctx, cfg.DSN()); err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		return &repositories{db: db, audits: postgres.NewAuditRepository(db), reviews: postgres.NewReviewRepository(db)}, nil
	case config.DriverSQLite:
		if db, err = sqlite.Connect(ctx, cfg.DSN()); err != nil {
			return nil, err
		}
		if err := sqlite.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		return &repositories{db: db, audits: sqlite.NewAuditRepository(db), reviews: sqlite.NewReviewRepository(db)}, nil
	default:
		if db, err = mysqlp.Connect(ctx, cfg.DSN()); err != nil {
			return nil, err
		}
		if err := mysqlp.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		return &repositories{db: db, audits: mysqlp.NewAuditRepository(db), reviews: mysqlp.NewReviewRepository(db)}, nil
	}
}

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	repos, err := openDB(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%s connect: %w", cfg.Database.Driver, err)
	}
	defer repos.db.Close()
	logger.Info("database ready", zap.String("driver", cfg.Database.Driver))

	auditSvc := &appaudits.Service{
		Repo:  repos.audits,
		Clock: application.SystemClock{},
		Log:   logger.Named("audits"),
	}

	// minio opsional, tanpa minio report dirender ulang dari DB
	if cfg.Minio.Enabled {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			return fmt.Errorf("minio init: %w", err)
		}
		auditSvc.Reports = store
		logger.Info("report store ready", zap.String("bucket", cfg.Minio.BucketName))
	}

	var reviewSvc *appreviews.Service
	if cfg.AIEnabled() {
		client := openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
		reviewSvc = appreviews.NewService(client, repos.reviews, auditSvc, application.SystemClock{}, logger.Named("reviews"))
		logger.Info("ai review enabled", zap.String("model", client.ModelName()))
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSecond)
	defer limiter.Close()

	handler := httpserver.NewRouter(httpserver.Deps{
		Audits:      auditSvc,
		Reviews:     reviewSvc,
		Metrics:     middleware.NewMetrics(),
		Limiter:     limiter,
		Health:      map[string]middleware.HealthChecker{"database": &middleware.DatabaseHealthChecker{DB: repos.db}},
		APIKeys:     cfg.Auth.APIKeys,
		CORSOrigins: cfg.Server.CORSOrigins,
		Log:         logger.Named("http"),
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // ai review bisa lama
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	// graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
