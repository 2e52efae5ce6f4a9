package di

import (
	"context"
	"time"

	"gorm.io/gorm"

	"criminal-registry/application/serviceimpl"
	"criminal-registry/domain/repositories"
	"criminal-registry/domain/services"
	"criminal-registry/infrastructure/faceapi"
	"criminal-registry/infrastructure/postgres"
	"criminal-registry/infrastructure/redis"
	"criminal-registry/infrastructure/storage"
	"criminal-registry/infrastructure/websocket"
	"criminal-registry/infrastructure/worker"
	"criminal-registry/interfaces/api/handlers"
	"criminal-registry/pkg/config"
	"criminal-registry/pkg/logger"
	"criminal-registry/pkg/metrics"
	"criminal-registry/pkg/scheduler"
)

type Container struct {
	// Configuration
	Config *config.Config

	// Infrastructure
	DB             *gorm.DB
	RedisClient    *redis.RedisClient
	FaceClient     *faceapi.FaceClient
	Storage        *storage.LocalStorage
	EventScheduler scheduler.EventScheduler
	Metrics        *metrics.Manager
	Hub            *websocket.Hub

	// Repositories
	RecordRepository repositories.RecordRepository

	// Services
	SignatureExtractor services.SignatureExtractor
	Matcher            services.Matcher
	RecordService      services.RecordService
	SearchService      services.SearchService
	StatisticsService  services.StatisticsService

	// Workers
	SignatureWorker *worker.SignatureWorker
}

func NewContainer() *Container {
	return &Container{}
}

func (c *Container) Initialize() error {
	if err := c.initConfig(); err != nil {
		return err
	}

	if err := c.initInfrastructure(); err != nil {
		return err
	}

	if err := c.initRepositories(); err != nil {
		return err
	}

	if err := c.initServices(); err != nil {
		return err
	}

	if err := c.initScheduler(); err != nil {
		return err
	}

	if err := c.initWorkers(); err != nil {
		return err
	}

	return nil
}

func (c *Container) initConfig() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	c.Config = cfg
	logger.Startup("config_loaded", "Configuration loaded", map[string]interface{}{
		"env":             cfg.App.Env,
		"face_api":        cfg.FaceAPI.Enabled,
		"model":           cfg.FaceAPI.Model,
		"match_threshold": cfg.FaceAPI.MatchThreshold,
	})
	return nil
}

func (c *Container) initInfrastructure() error {
	dbConfig := postgres.DatabaseConfig{
		Host:     c.Config.Database.Host,
		Port:     c.Config.Database.Port,
		User:     c.Config.Database.User,
		Password: c.Config.Database.Password,
		DBName:   c.Config.Database.DBName,
		SSLMode:  c.Config.Database.SSLMode,
	}

	db, err := postgres.NewDatabase(dbConfig)
	if err != nil {
		return err
	}
	c.DB = db
	logger.Startup("db_connected", "Database connected", nil)

	if err := postgres.Migrate(db); err != nil {
		return err
	}
	logger.Startup("db_migrated", "Database migrated", nil)

	// Redis only caches embeddings; the registry works without it
	redisConfig := redis.RedisConfig{
		Host:     c.Config.Redis.Host,
		Port:     c.Config.Redis.Port,
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
		TTL:      time.Duration(c.Config.Redis.TTLHours) * time.Hour,
	}
	c.RedisClient = redis.NewRedisClient(redisConfig)

	if err := c.RedisClient.Ping(context.Background()); err != nil {
		logger.StartupWarn("redis_connection_failed", "Redis connection failed, embeddings will not be cached", map[string]interface{}{"error": err.Error()})
	} else {
		logger.Startup("redis_connected", "Redis connected", nil)
	}

	store, err := storage.NewLocalStorage(storage.LocalStorageConfig{
		Dir:               c.Config.Upload.Dir,
		TempDir:           c.Config.Upload.TempDir,
		MaxBytes:          c.Config.Upload.MaxBytes,
		AllowedExtensions: c.Config.Upload.AllowedExtensions,
	})
	if err != nil {
		return err
	}
	c.Storage = store
	logger.Startup("storage_initialized", "Upload storage initialized", map[string]interface{}{"dir": store.Dir()})

	if c.Config.FaceAPI.Enabled {
		c.FaceClient = faceapi.NewFaceClient(
			c.Config.FaceAPI.BaseURL,
			time.Duration(c.Config.FaceAPI.TimeoutSeconds)*time.Second,
			c.Config.FaceAPI.RequestsPerSec,
		)
		if !c.FaceClient.IsAvailable(context.Background()) {
			logger.StartupWarn("face_api_unreachable", "Face API not reachable yet", map[string]interface{}{"url": c.Config.FaceAPI.BaseURL})
		} else {
			logger.Startup("face_api_connected", "Face API reachable", map[string]interface{}{"url": c.Config.FaceAPI.BaseURL})
		}
	} else {
		logger.StartupWarn("face_api_disabled", "Face API is disabled, image search unavailable", nil)
	}

	c.Metrics = metrics.NewManager()
	c.Hub = websocket.NewHub()

	return nil
}

func (c *Container) initRepositories() error {
	c.RecordRepository = postgres.NewRecordRepository(c.DB)
	logger.Startup("repositories_initialized", "Repositories initialized", nil)
	return nil
}

func (c *Container) initServices() error {
	// keep interfaces untyped-nil when the collaborators are absent
	var analyzer services.FaceAnalyzer
	if c.FaceClient != nil {
		analyzer = c.FaceClient
	}
	var cache services.EmbeddingCache
	if c.RedisClient != nil {
		cache = c.RedisClient
	}

	c.SignatureExtractor = serviceimpl.NewSignatureExtractor(analyzer, cache, c.Config.FaceAPI.Model, c.Metrics)
	c.Matcher = serviceimpl.NewMatcher(c.SignatureExtractor, c.Config.FaceAPI.MatchThreshold)
	c.RecordService = serviceimpl.NewRecordService(c.RecordRepository, c.SignatureExtractor, c.Storage, c.Hub, c.Metrics)
	c.SearchService = serviceimpl.NewSearchService(
		c.RecordRepository,
		c.SignatureExtractor,
		c.Matcher,
		c.Storage,
		c.Hub,
		c.Metrics,
		c.Config.Search.MaxConcurrent,
	)
	c.StatisticsService = serviceimpl.NewStatisticsService(c.RecordRepository)

	logger.Startup("services_initialized", "Services initialized", nil)
	return nil
}

func (c *Container) initScheduler() error {
	c.EventScheduler = scheduler.NewEventScheduler()

	// Query images are removed right after a search; the sweep catches leftovers from crashes
	maxAge := time.Duration(c.Config.Upload.TempMaxAgeMinutes) * time.Minute
	err := c.EventScheduler.AddJob("temp-upload-sweep", "*/15 * * * *", func() {
		removed, err := c.Storage.SweepTemp(maxAge)
		if err != nil {
			logger.SchedulerError("temp_sweep_failed", "Temp upload sweep failed", err, nil)
			return
		}
		if removed > 0 {
			logger.Scheduler("temp_sweep_done", "Removed stale query images", map[string]interface{}{"removed": removed})
		}
	})
	if err != nil {
		logger.StartupWarn("temp_sweep_schedule_failed", "Failed to schedule temp upload sweep", map[string]interface{}{"error": err.Error()})
	}

	c.EventScheduler.Start()
	logger.Startup("scheduler_started", "Maintenance scheduler started", nil)
	return nil
}

func (c *Container) initWorkers() error {
	if !c.Config.FaceAPI.Enabled || c.FaceClient == nil || !c.Config.Worker.Enabled {
		logger.Startup("signature_worker_disabled", "Signature backfill worker not started", nil)
		return nil
	}

	workerConfig := worker.DefaultSignatureWorkerConfig()
	if c.Config.Worker.PollIntervalSeconds > 0 {
		workerConfig.PollInterval = time.Duration(c.Config.Worker.PollIntervalSeconds) * time.Second
	}
	if c.Config.Worker.BatchSize > 0 {
		workerConfig.BatchSize = c.Config.Worker.BatchSize
	}

	c.SignatureWorker = worker.NewSignatureWorker(c.RecordRepository, c.SignatureExtractor, c.FaceClient, c.Hub, workerConfig)
	c.SignatureWorker.Start()

	// Records that failed once are retried daily, in case the service or model changed
	err := c.EventScheduler.AddJob("signature-failure-reset", "0 3 * * *", c.SignatureWorker.ResetFailures)
	if err != nil {
		logger.StartupWarn("signature_reset_schedule_failed", "Failed to schedule signature failure reset", map[string]interface{}{"error": err.Error()})
	}

	return nil
}

func (c *Container) Cleanup() error {
	logger.Startup("cleanup_started", "Starting cleanup...", nil)

	if c.SignatureWorker != nil && c.SignatureWorker.IsRunning() {
		c.SignatureWorker.Stop()
	}

	if c.EventScheduler != nil {
		if c.EventScheduler.IsRunning() {
			c.EventScheduler.Stop()
			logger.Startup("scheduler_stopped", "Maintenance scheduler stopped", nil)
		} else {
			logger.Startup("scheduler_already_stopped", "Maintenance scheduler was already stopped", nil)
		}
	}

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			logger.StartupWarn("redis_close_failed", "Failed to close Redis connection", map[string]interface{}{"error": err.Error()})
		} else {
			logger.Startup("redis_closed", "Redis connection closed", nil)
		}
	}

	if c.DB != nil {
		sqlDB, err := c.DB.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				logger.StartupWarn("db_close_failed", "Failed to close database connection", map[string]interface{}{"error": err.Error()})
			} else {
				logger.Startup("db_closed", "Database connection closed", nil)
			}
		}
	}

	logger.Startup("cleanup_completed", "Cleanup completed", nil)
	return nil
}

func (c *Container) GetConfig() *config.Config {
	return c.Config
}

func (c *Container) GetHandlerServices() *handlers.Services {
	return &handlers.Services{
		RecordService:     c.RecordService,
		SearchService:     c.SearchService,
		StatisticsService: c.StatisticsService,
	}
}

func (c *Container) GetHandlerInfrastructure() *handlers.Infrastructure {
	infra := &handlers.Infrastructure{
		DB:      c.DB,
		AppName: c.Config.App.Name,
	}
	if c.RedisClient != nil {
		infra.RedisClient = c.RedisClient
	}
	if c.FaceClient != nil {
		infra.FaceClient = c.FaceClient
	}
	if c.SignatureWorker != nil {
		infra.Worker = c.SignatureWorker
	}
	return infra
}
