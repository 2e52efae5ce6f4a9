package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"

	"criminal-registry/interfaces/api/handlers"
	"criminal-registry/interfaces/api/middleware"
	"criminal-registry/interfaces/api/routes"
	"criminal-registry/pkg/di"
	"criminal-registry/pkg/logger"
)

func main() {
	logDir := os.Getenv("LOG_DIR")
	if logDir == "" {
		logDir = "logs"
	}
	if err := logger.Init(logDir, true); err != nil {
		fmt.Printf("Warning: Failed to initialize logger: %v\n", err)
	}
	logger.Startup("logger_init", "Logger initialized", map[string]interface{}{"dir": logDir})

	container := di.NewContainer()

	if err := container.Initialize(); err != nil {
		logger.StartupError("container_init_failed", "Failed to initialize container", err, nil)
		os.Exit(1)
	}

	setupGracefulShutdown(container)

	cfg := container.GetConfig()

	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(),
		AppName:      cfg.App.Name,
		// room for the multipart envelope around the largest accepted image
		BodyLimit: int(cfg.Upload.MaxBytes) + 1024*1024,
	})

	app.Use(middleware.LoggerMiddleware())
	app.Use(middleware.CorsMiddleware())

	h := handlers.NewHandlers(container.GetHandlerServices(), container.GetHandlerInfrastructure())

	routes.SetupRoutes(app, h, container.Hub, container.Metrics, cfg)

	port := cfg.App.Port
	logger.Startup("server_starting", "Server starting", map[string]interface{}{
		"port":        port,
		"environment": cfg.App.Env,
		"health":      fmt.Sprintf("http://localhost:%s/health", port),
		"api":         fmt.Sprintf("http://localhost:%s/api/v1", port),
		"metrics":     fmt.Sprintf("http://localhost:%s/metrics", port),
		"websocket":   fmt.Sprintf("ws://localhost:%s/ws", port),
		"logs_api":    fmt.Sprintf("http://localhost:%s/api/v1/admin/logs", port),
	})

	if err := app.Listen(":" + port); err != nil {
		logger.StartupError("server_failed", "Server failed to start", err, nil)
		os.Exit(1)
	}
}

func setupGracefulShutdown(container *di.Container) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		logger.Startup("shutdown_started", "Gracefully shutting down", nil)

		if err := container.Cleanup(); err != nil {
			logger.StartupError("cleanup_failed", "Error during cleanup", err, nil)
		}

		logger.Startup("shutdown_complete", "Shutdown complete", nil)
		os.Exit(0)
	}()
}
