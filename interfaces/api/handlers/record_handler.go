package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"criminal-registry/domain/dto"
	"criminal-registry/domain/services"
	"criminal-registry/pkg/utils"
)

type RecordHandler struct {
	recordService     services.RecordService
	searchService     services.SearchService
	statisticsService services.StatisticsService
}

func NewRecordHandler(
	recordService services.RecordService,
	searchService services.SearchService,
	statisticsService services.StatisticsService,
) *RecordHandler {
	return &RecordHandler{
		recordService:     recordService,
		searchService:     searchService,
		statisticsService: statisticsService,
	}
}

// CreateRecord registers a record from a multipart form with an optional "image" file
func (h *RecordHandler) CreateRecord(c *fiber.Ctx) error {
	var req dto.CreateRecordRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid form data", err)
	}
	if err := utils.ValidateStruct(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	input, err := dto.CreateRecordRequestToInput(&req)
	if err != nil {
		return err
	}

	if file, err := c.FormFile("image"); err == nil && file.Filename != "" {
		f, err := file.Open()
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Failed to read image", err)
		}
		defer f.Close()

		input.Image = f
		input.ImageFilename = file.Filename
	}

	record, err := h.recordService.Create(c.UserContext(), input)
	if err != nil {
		return err
	}

	return utils.CreatedResponse(c, "Record created", dto.RecordToRecordResponse(record))
}

// GetRecords lists every record, or those matching ?search= by name, crime type or address
func (h *RecordHandler) GetRecords(c *fiber.Ctx) error {
	search := strings.TrimSpace(c.Query("search"))

	records, err := h.searchService.SearchByText(c.UserContext(), search)
	if err != nil {
		return err
	}

	return utils.SuccessResponse(c, "Records retrieved", dto.RecordsToRecordListResponse(records, search))
}

func (h *RecordHandler) GetRecord(c *fiber.Ctx) error {
	record, err := h.recordService.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}

	return utils.SuccessResponse(c, "Record retrieved", dto.RecordToRecordResponse(record))
}

// UpdateRecord applies a partial update; detected attributes cannot be changed
func (h *RecordHandler) UpdateRecord(c *fiber.Ctx) error {
	var req dto.UpdateRecordRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	record, err := h.recordService.Update(c.UserContext(), c.Params("id"), dto.UpdateRecordRequestToUpdate(&req))
	if err != nil {
		return err
	}

	return utils.SuccessResponse(c, "Record updated", dto.RecordToRecordResponse(record))
}

func (h *RecordHandler) DeleteRecord(c *fiber.Ctx) error {
	if err := h.recordService.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}

	return utils.SuccessResponse(c, "Record deleted", nil)
}

func (h *RecordHandler) GetStatistics(c *fiber.Ctx) error {
	stats, err := h.statisticsService.GetStatistics(c.UserContext())
	if err != nil {
		return err
	}

	return utils.SuccessResponse(c, "Statistics retrieved", stats)
}
