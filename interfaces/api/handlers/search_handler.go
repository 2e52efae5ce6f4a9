package handlers

import (
	"mime/multipart"

	"github.com/gofiber/fiber/v2"

	"criminal-registry/domain/dto"
	"criminal-registry/domain/services"
	"criminal-registry/pkg/utils"
)

type SearchHandler struct {
	searchService services.SearchService
}

func NewSearchHandler(searchService services.SearchService) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
	}
}

func openUpload(c *fiber.Ctx, field string) (multipart.File, string, error) {
	file, err := c.FormFile(field)
	if err != nil || file.Filename == "" {
		return nil, "", services.NewValidationError("Image file '" + field + "' is required")
	}

	f, err := file.Open()
	if err != nil {
		return nil, "", services.NewValidationError("Failed to read image '" + field + "'")
	}
	return f, file.Filename, nil
}

// SearchByImage scans every stored record for faces matching the uploaded "image"
func (h *SearchHandler) SearchByImage(c *fiber.Ctx) error {
	f, filename, err := openUpload(c, "image")
	if err != nil {
		return err
	}
	defer f.Close()

	result, err := h.searchService.SearchByUpload(c.UserContext(), f, filename)
	if err != nil {
		return err
	}

	message := "No matching records found"
	if result.Count > 0 {
		message = "Matching records found"
	}
	return utils.SuccessResponse(c, message, dto.ImageSearchResultToResponse(result))
}

// CompareFaces compares the faces in uploads "image_a" and "image_b"
func (h *SearchHandler) CompareFaces(c *fiber.Ctx) error {
	fa, nameA, err := openUpload(c, "image_a")
	if err != nil {
		return err
	}
	defer fa.Close()

	fb, nameB, err := openUpload(c, "image_b")
	if err != nil {
		return err
	}
	defer fb.Close()

	result, err := h.searchService.CompareUploads(c.UserContext(), fa, nameA, fb, nameB)
	if err != nil {
		return err
	}

	return utils.SuccessResponse(c, "Comparison complete", result)
}
