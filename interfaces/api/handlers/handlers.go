package handlers

import (
	"gorm.io/gorm"

	"criminal-registry/domain/services"
)

// Services contains all the services needed for handlers
type Services struct {
	RecordService     services.RecordService
	SearchService     services.SearchService
	StatisticsService services.StatisticsService
}

// Infrastructure holds the optional components probed by the health endpoints
type Infrastructure struct {
	DB          *gorm.DB
	RedisClient RedisPinger
	FaceClient  FaceHealthChecker
	Worker      WorkerStats
	AppName     string
}

// Handlers contains all HTTP handlers
type Handlers struct {
	Record *RecordHandler
	Search *SearchHandler
	Health *HealthHandler
	Log    *LogHandler
}

func NewHandlers(services *Services, infra *Infrastructure) *Handlers {
	if infra == nil {
		infra = &Infrastructure{}
	}

	return &Handlers{
		Record: NewRecordHandler(services.RecordService, services.SearchService, services.StatisticsService),
		Search: NewSearchHandler(services.SearchService),
		Health: NewHealthHandler(infra.DB, infra.RedisClient, infra.FaceClient, infra.Worker, services.StatisticsService, infra.AppName),
		Log:    NewLogHandler(),
	}
}
