package handlers

import (
	"github.com/gofiber/fiber/v2"

	"criminal-registry/pkg/logger"
	"criminal-registry/pkg/utils"
)

// LogHandler exposes today's structured logs to operators. Routes sit behind middleware.AdminOnly.
type LogHandler struct{}

func NewLogHandler() *LogHandler {
	return &LogHandler{}
}

// GetLogs returns log entries filtered by ?lines=&level=&category=&search=
func (h *LogHandler) GetLogs(c *fiber.Ctx) error {
	opts := logger.ReadLogsOptions{
		Lines:    c.QueryInt("lines", 100),
		Level:    logger.Level(c.Query("level")),
		Category: logger.Category(c.Query("category")),
		Search:   c.Query("search"),
	}

	entries, err := logger.ReadLogs(opts)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to read logs", err)
	}
	if entries == nil {
		entries = []logger.LogEntry{}
	}

	return utils.SuccessResponse(c, "Logs retrieved", fiber.Map{
		"entries": entries,
		"count":   len(entries),
		"filters": fiber.Map{
			"lines":    opts.Lines,
			"level":    opts.Level,
			"category": opts.Category,
			"search":   opts.Search,
		},
	})
}

func (h *LogHandler) GetLogFiles(c *fiber.Ctx) error {
	files, err := logger.ListLogFiles()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list log files", err)
	}

	return utils.SuccessResponse(c, "Log files retrieved", fiber.Map{
		"files": files,
		"count": len(files),
	})
}

// GetLogStats counts today's entries by level and category
func (h *LogHandler) GetLogStats(c *fiber.Ctx) error {
	allLogs, err := logger.ReadLogs(logger.ReadLogsOptions{Lines: 1000})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to read logs", err)
	}

	levelCounts := map[string]int{
		"DEBUG": 0,
		"INFO":  0,
		"WARN":  0,
		"ERROR": 0,
	}
	categoryCounts := map[string]int{}

	for _, entry := range allLogs {
		levelCounts[string(entry.Level)]++
		categoryCounts[string(entry.Category)]++
	}

	return utils.SuccessResponse(c, "Log statistics retrieved", fiber.Map{
		"total_entries": len(allLogs),
		"by_level":      levelCounts,
		"by_category":   categoryCounts,
	})
}
