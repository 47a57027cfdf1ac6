// Package app wires configuration into the repositories, storage, triggers and
// services shared by the reelvault binaries.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/timmy/reelvault/internal/config"
	"github.com/timmy/reelvault/internal/logger"
	"github.com/timmy/reelvault/internal/repository"
	"github.com/timmy/reelvault/internal/service"
	"github.com/timmy/reelvault/internal/source"
	"github.com/timmy/reelvault/internal/source/scrapecreators"
	"github.com/timmy/reelvault/internal/storage"
	"github.com/timmy/reelvault/internal/trigger"
	"gorm.io/gorm"
)

// App holds the initialized components of one process.
type App struct {
	Config  *config.Config
	DB      *gorm.DB
	Store   *repository.Store
	Storage storage.ObjectStorage
	// Redis is nil unless the redis trigger is configured.
	Redis   *redis.Client
	Trigger trigger.Trigger

	Worker  *service.DownloadWorker
	Jobs    *service.JobAdmin
	Search  *service.SearchService
	History *service.HistoryService
}

// New initializes every component described by cfg.
// Parameters:
//   - ctx: bounds the startup checks (bucket creation, redis ping).
//   - cfg: loaded configuration.
//
// Returns:
//   - *App: ready components; call Close when done.
//   - error: non-nil if any backend cannot be reached.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	ctx = logger.SetComponent(ctx, "bootstrap")

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a := &App{Config: cfg, DB: db, Store: repository.NewStore(db)}

	a.Storage, err = storage.NewStorage(&cfg.Storage)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if s3, ok := a.Storage.(*storage.S3Storage); ok {
		if err := s3.EnsureBucket(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to ensure storage bucket: %w", err)
		}
	}

	a.Worker = service.NewDownloadWorker(a.Store, a.Storage,
		service.NewHTTPFetcher(cfg.Worker.DownloadTimeout),
		service.WorkerConfigFrom(&cfg.Worker))

	if err := a.initTrigger(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.Worker.SetTrigger(a.Trigger)

	queue := service.NewJobQueue(a.Store.Jobs, a.Trigger)
	coordinator := service.NewIngestCoordinator(a.Store, queue)
	adapters := source.NewRegistry(scrapecreators.NewClient(&cfg.ScrapeCreators).Adapters()...)

	a.Search = service.NewSearchService(adapters, coordinator, a.Store.Searches, &service.SearchServiceConfig{
		PlatformTimeout: cfg.Search.PlatformTimeout,
	})
	a.History = service.NewHistoryService(a.Store, a.Storage, cfg.Search.HistoryLimit)
	a.Jobs = service.NewJobAdmin(a.Store.Jobs, a.Trigger, cfg.Worker.MaxAttempts, cfg.Worker.LeaseTimeout)

	logger.With(logger.Fields{
		"trigger":          cfg.Worker.Trigger,
		"storage":          fmt.Sprintf("%T", a.Storage),
		"thumbnail_policy": cfg.Worker.ThumbnailPolicy,
	}).Info(ctx, "Components initialized")
	return a, nil
}

func (a *App) initTrigger(ctx context.Context) error {
	switch a.Config.Worker.Trigger {
	case "http":
		a.Trigger = trigger.NewHTTP(a.Config.Worker.TriggerURL, 10*time.Second)
	case "redis":
		client, err := trigger.NewRedisClient(ctx, a.Config.Redis.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.Redis = client
		a.Trigger = trigger.NewRedis(client, a.Config.Redis.Queue)
	default:
		a.Trigger = trigger.NewLocal(a.Worker.RunInvocation)
	}
	return nil
}

// Scheduler returns the periodic worker trigger, with the stale-lease sweep
// attached. It returns nil when no schedule interval is configured.
func (a *App) Scheduler() *trigger.Scheduler {
	if a.Config.Worker.ScheduleInterval <= 0 {
		return nil
	}
	return trigger.NewScheduler(a.Trigger, a.Config.Worker.ScheduleInterval).WithSweep(a.Jobs.Sweep)
}

// Ping checks that the database answers.
func (a *App) Ping(ctx context.Context) error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the database and redis connections.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			logger.Warn("Failed to close redis client: %v", err)
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
