package dto

import (
	"path/filepath"
	"strconv"
	"strings"

	"criminal-registry/domain/models"
	"criminal-registry/domain/repositories"
	"criminal-registry/domain/services"
)

func RecordToRecordResponse(record *models.Record) *RecordResponse {
	if record == nil {
		return nil
	}

	resp := &RecordResponse{
		ID:              record.ID,
		Name:            record.Name,
		CrimeType:       record.CrimeType,
		Description:     record.Description,
		Address:         record.Address,
		DeclaredAge:     record.DeclaredAge,
		DeclaredGender:  record.DeclaredGender,
		DetectedAge:     record.DetectedAge,
		DetectedGender:  record.DetectedGender,
		DetectedRace:    record.DetectedRace,
		DetectedEmotion: record.DetectedEmotion,
		HasImage:        record.HasImage(),
		HasSignature:    record.Embedding != nil,
		CreatedAt:       record.CreatedAt,
		UpdatedAt:       record.UpdatedAt,
	}
	// only the stored file name is exposed, never the server path
	if record.HasImage() {
		resp.ImageFile = filepath.Base(*record.ImageRef)
	}
	return resp
}

func RecordsToRecordListResponse(records []models.Record, search string) *RecordListResponse {
	items := make([]RecordResponse, 0, len(records))
	for i := range records {
		items = append(items, *RecordToRecordResponse(&records[i]))
	}
	return &RecordListResponse{
		Records: items,
		Count:   len(items),
		Search:  search,
	}
}

func ImageSearchResultToResponse(result *services.ImageSearchResult) *ImageSearchResponse {
	if result == nil {
		return nil
	}

	matches := make([]MatchResponse, 0, len(result.Matches))
	for i := range result.Matches {
		m := result.Matches[i]
		matches = append(matches, MatchResponse{
			Record:     *RecordToRecordResponse(&m.Record),
			Distance:   m.Distance,
			Confidence: m.Confidence,
			IsMatch:    m.IsMatch,
		})
	}

	return &ImageSearchResponse{
		Matches:     matches,
		Count:       result.Count,
		Scanned:     result.Scanned,
		Skipped:     result.Skipped,
		Unmatchable: result.Unmatchable,
		Threshold:   result.Threshold,
	}
}

// optional keeps the value as entered; blank input means unknown
func optional(v string) *string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}

// CreateRecordRequestToInput converts the form; the image is attached by the handler
func CreateRecordRequestToInput(req *CreateRecordRequest) (services.CreateRecordInput, error) {
	input := services.CreateRecordInput{
		Name:           optional(req.Name),
		CrimeType:      optional(req.CrimeType),
		Description:    optional(req.Description),
		Address:        optional(req.Address),
		DeclaredGender: optional(req.Gender),
	}

	if age := strings.TrimSpace(req.Age); age != "" {
		n, err := strconv.Atoi(age)
		if err != nil {
			return input, services.NewValidationError("Age must be a whole number")
		}
		input.DeclaredAge = &n
	}
	return input, nil
}

func UpdateRecordRequestToUpdate(req *UpdateRecordRequest) repositories.RecordUpdate {
	return repositories.RecordUpdate{
		Name:           req.Name,
		CrimeType:      req.CrimeType,
		Description:    req.Description,
		Address:        req.Address,
		DeclaredAge:    req.Age,
		DeclaredGender: req.Gender,
	}
}
