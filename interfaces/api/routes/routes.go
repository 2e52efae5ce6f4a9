package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/websocket/v2"

	websocketManager "criminal-registry/infrastructure/websocket"
	"criminal-registry/interfaces/api/handlers"
	"criminal-registry/interfaces/api/middleware"
	websocketHandler "criminal-registry/interfaces/api/websocket"
	"criminal-registry/pkg/config"
	"criminal-registry/pkg/metrics"
)

func SetupRoutes(app *fiber.App, h *handlers.Handlers, hub *websocketManager.Hub, m *metrics.Manager, cfg *config.Config) {
	SetupHealthRoutes(app, h, cfg)

	if m != nil {
		app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
	}

	api := app.Group("/api/v1")

	SetupRecordRoutes(api, h)
	SetupSearchRoutes(api, h, &cfg.RateLimit)
	SetupLogRoutes(api, h, cfg.Admin.Token)

	// WebSocket needs app, not api group
	if hub != nil {
		SetupWebSocketRoutes(app, hub)
	}
}

func SetupHealthRoutes(app *fiber.App, h *handlers.Handlers, cfg *config.Config) {
	app.Get("/health", h.Health.Health)
	app.Get("/health/detailed", h.Health.DetailedHealth)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Welcome to " + cfg.App.Name,
			"version": "1.0.0",
			"api":     "/api/v1",
			"health":  "/health",
		})
	})
}

func SetupRecordRoutes(router fiber.Router, h *handlers.Handlers) {
	records := router.Group("/records")

	// stats before :id so it is not captured as an identifier
	records.Get("/stats", h.Record.GetStatistics)

	records.Post("/", h.Record.CreateRecord)
	records.Get("/", h.Record.GetRecords)
	records.Get("/:id", h.Record.GetRecord)
	records.Patch("/:id", h.Record.UpdateRecord)
	records.Delete("/:id", h.Record.DeleteRecord)
}

func SetupSearchRoutes(router fiber.Router, h *handlers.Handlers, cfg *config.RateLimitConfig) {
	search := router.Group("/search", middleware.SearchRateLimiter(cfg))

	search.Post("/image", h.Search.SearchByImage)
	search.Post("/compare", h.Search.CompareFaces)
}

func SetupLogRoutes(router fiber.Router, h *handlers.Handlers, adminToken string) {
	logs := router.Group("/admin/logs", middleware.AdminOnly(adminToken))

	logs.Get("/", h.Log.GetLogs)
	logs.Get("/files", h.Log.GetLogFiles)
	logs.Get("/stats", h.Log.GetLogStats)
}

func SetupWebSocketRoutes(app *fiber.App, hub *websocketManager.Hub) {
	wsHandler := websocketHandler.NewWebSocketHandler(hub)

	app.Use("/ws", wsHandler.WebSocketUpgrade)
	app.Get("/ws", websocket.New(wsHandler.HandleWebSocket))
}
