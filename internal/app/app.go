package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/enrollment-backend/internal/clients/redis"
	"github.com/yungbote/enrollment-backend/internal/data/db"
	httpserver "github.com/yungbote/enrollment-backend/internal/http"
	"github.com/yungbote/enrollment-backend/internal/http/middleware"
	"github.com/yungbote/enrollment-backend/internal/observability"
	"github.com/yungbote/enrollment-backend/internal/platform/logger"
)

const serviceName = "enrollment-backend"

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Redis    goredis.UniversalClient
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Services Services
	Metrics  *observability.Metrics

	dbService    *db.DatabaseService
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New(ctx context.Context) (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.LogMode, logger.WithRedaction(cfg.LogRedaction, cfg.LogHashSalt))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	dbService, err := db.NewDatabaseService(cfg.DB, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if cfg.DB.AutoMigrate {
		if err := dbService.AutoMigrateAll(); err != nil {
			_ = dbService.Close()
			log.Sync()
			return nil, fmt.Errorf("automigrate: %w", err)
		}
	}
	theDB := dbService.DB()

	metrics := observability.Init(log, cfg.Observability)
	otelShutdown := observability.InitOTel(ctx, log, cfg.Observability.Tracing, observability.Build{
		ServiceName: serviceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})

	a := &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Metrics:      metrics,
		dbService:    dbService,
		otelShutdown: otelShutdown,
	}

	var store middleware.IdempotencyStore
	if cfg.Redis.Enabled() {
		rdb, err := redis.NewClient(ctx, log, cfg.Redis)
		if err != nil {
			log.Warn("redis unavailable, idempotency keys will not be honoured", "error", err)
		} else {
			a.Redis = rdb
			store = redis.NewIdempotencyStore(log, rdb, cfg.Redis.KeyPrefix)
		}
	} else {
		log.Info("REDIS_ADDR not set, idempotency keys will not be honoured")
	}

	a.Repos = wireRepos(theDB, log)
	a.Services = wireServices(theDB, log, cfg, a.Repos, metrics)

	if strings.TrimSpace(cfg.AdminEmail) != "" {
		if err := a.Services.Auth.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			a.Close()
			return nil, fmt.Errorf("bootstrap admin: %w", err)
		}
	}

	mw, err := wireMiddleware(log, cfg, a.Services, store, metrics)
	if err != nil {
		a.Close()
		return nil, err
	}
	handlerset := wireHandlers(log, a.Services, a.healthChecks())
	a.Router = wireRouter(log, cfg, handlerset, mw, metrics)
	return a, nil
}

func (a *App) healthChecks() map[string]func(context.Context) error {
	checks := map[string]func(context.Context) error{
		"database": a.dbService.Ping,
	}
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() }
	}
	return checks
}

// Start launches the background collectors. It is a no-op when already started.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.Metrics.StartDBCollector(ctx, a.Log, a.DB)
	a.Metrics.StartEnrollmentCollector(ctx, a.Log, a.DB)
	a.Metrics.StartRedisCollector(ctx, a.Log, a.Redis)
	a.Metrics.StartSLOEvaluator(ctx, a.Log)
	a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsListenAddr)
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests for up to
// SHUTDOWN_TIMEOUT.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	addr := ":" + strings.TrimPrefix(strings.TrimSpace(a.Cfg.Port), ":")
	server := httpserver.NewServer(addr, a.Router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Log.Info("Server listening", "addr", addr)
		return server.Run()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
		defer cancel()
		a.Log.Info("Shutting down server")
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (a *App) shutdownTimeout() time.Duration {
	if a.Cfg.ShutdownTimeout <= 0 {
		return 15 * time.Second
	}
	return a.Cfg.ShutdownTimeout
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.otelShutdown(ctx); err != nil && a.Log != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.dbService != nil {
		if err := a.dbService.Close(); err != nil && a.Log != nil {
			a.Log.Warn("database close failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
