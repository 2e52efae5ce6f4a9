package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"criminal-registry/domain/services"
	"criminal-registry/infrastructure/faceapi"
)

type RedisPinger interface {
	Ping(ctx context.Context) error
}

type FaceHealthChecker interface {
	Health(ctx context.Context) (*faceapi.HealthResponse, error)
}

type WorkerStats interface {
	GetStats() map[string]interface{}
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	db                *gorm.DB
	redisClient       RedisPinger
	faceClient        FaceHealthChecker
	worker            WorkerStats
	statisticsService services.StatisticsService
	appName           string
}

// NewHealthHandler creates a new health handler. Every optional dependency may be nil.
func NewHealthHandler(
	db *gorm.DB,
	redisClient RedisPinger,
	faceClient FaceHealthChecker,
	worker WorkerStats,
	statisticsService services.StatisticsService,
	appName string,
) *HealthHandler {
	return &HealthHandler{
		db:                db,
		redisClient:       redisClient,
		faceClient:        faceClient,
		worker:            worker,
		statisticsService: statisticsService,
		appName:           appName,
	}
}

// ComponentHealth represents health status of a component
type ComponentHealth struct {
	Status  string `json:"status"` // "ok", "error", "unavailable"
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// DetailedHealthResponse represents detailed health check response
type DetailedHealthResponse struct {
	Status     string                     `json:"status"` // "healthy", "degraded", "unhealthy"
	Timestamp  time.Time                  `json:"timestamp"`
	Components map[string]ComponentHealth `json:"components"`
	Metrics    *HealthMetrics             `json:"metrics,omitempty"`
	Worker     map[string]interface{}     `json:"worker,omitempty"`
}

// HealthMetrics summarizes how much of the registry is searchable by face
type HealthMetrics struct {
	TotalRecords     int64 `json:"total_records"`
	RecordsWithImage int64 `json:"records_with_image"`
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"message": "Server is running",
		"service": h.appName,
	})
}

// DetailedHealth reports every component. Only the database is critical:
// the registry still serves text queries without the face service or the cache.
func (h *HealthHandler) DetailedHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 10*time.Second)
	defer cancel()

	response := DetailedHealthResponse{
		Timestamp:  time.Now(),
		Components: make(map[string]ComponentHealth),
	}

	allHealthy := true
	hasCriticalFailure := false

	dbHealth := h.checkDatabase(ctx)
	response.Components["database"] = dbHealth
	if dbHealth.Status != "ok" {
		hasCriticalFailure = true
	}

	redisHealth := h.checkRedis(ctx)
	response.Components["redis"] = redisHealth
	if redisHealth.Status == "error" {
		allHealthy = false
	}

	faceHealth := h.checkFaceAPI(ctx)
	response.Components["face_api"] = faceHealth
	if faceHealth.Status == "error" {
		allHealthy = false
	}

	if dbHealth.Status == "ok" {
		response.Metrics = h.getMetrics(ctx)
	}
	if h.worker != nil {
		response.Worker = h.worker.GetStats()
	}

	switch {
	case hasCriticalFailure:
		response.Status = "unhealthy"
	case !allHealthy:
		response.Status = "degraded"
	default:
		response.Status = "healthy"
	}

	statusCode := fiber.StatusOK
	if response.Status == "unhealthy" {
		statusCode = fiber.StatusServiceUnavailable
	}

	return c.Status(statusCode).JSON(response)
}

func (h *HealthHandler) checkDatabase(ctx context.Context) ComponentHealth {
	start := time.Now()

	if h.db == nil {
		return ComponentHealth{
			Status:  "error",
			Message: "Database not configured",
		}
	}

	sqlDB, err := h.db.DB()
	if err != nil {
		return ComponentHealth{
			Status:  "error",
			Message: "Failed to get database connection: " + err.Error(),
		}
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return ComponentHealth{
			Status:  "error",
			Message: "Database ping failed: " + err.Error(),
		}
	}

	return ComponentHealth{
		Status:  "ok",
		Message: "Connected",
		Latency: time.Since(start).String(),
	}
}

func (h *HealthHandler) checkRedis(ctx context.Context) ComponentHealth {
	start := time.Now()

	if h.redisClient == nil {
		return ComponentHealth{
			Status:  "unavailable",
			Message: "Embedding cache not configured",
		}
	}

	if err := h.redisClient.Ping(ctx); err != nil {
		return ComponentHealth{
			Status:  "error",
			Message: "Redis ping failed: " + err.Error(),
		}
	}

	return ComponentHealth{
		Status:  "ok",
		Message: "Connected",
		Latency: time.Since(start).String(),
	}
}

func (h *HealthHandler) checkFaceAPI(ctx context.Context) ComponentHealth {
	start := time.Now()

	if h.faceClient == nil {
		return ComponentHealth{
			Status:  "unavailable",
			Message: "Facial analysis disabled",
		}
	}

	health, err := h.faceClient.Health(ctx)
	if err != nil {
		return ComponentHealth{
			Status:  "error",
			Message: "Face API health check failed: " + err.Error(),
		}
	}

	message := "Reachable"
	if health.Model != "" {
		message = "Model: " + health.Model
	}
	return ComponentHealth{
		Status:  "ok",
		Message: message,
		Latency: time.Since(start).String(),
	}
}

func (h *HealthHandler) getMetrics(ctx context.Context) *HealthMetrics {
	if h.statisticsService == nil {
		return nil
	}

	stats, err := h.statisticsService.GetStatistics(ctx)
	if err != nil {
		return nil
	}

	return &HealthMetrics{
		TotalRecords:     stats.TotalRecords,
		RecordsWithImage: stats.RecordsWithImage,
	}
}
