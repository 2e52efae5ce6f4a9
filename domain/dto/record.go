package dto

import (
	"time"

	"github.com/google/uuid"
)

// CreateRecordRequest is the multipart form for registering a record.
// Blank fields are stored as unknown.
type CreateRecordRequest struct {
	Name        string `form:"name" validate:"max=200"`
	CrimeType   string `form:"crime_type" validate:"max=100"`
	Description string `form:"description" validate:"max=5000"`
	Address     string `form:"address" validate:"max=500"`
	Age         string `form:"age" validate:"omitempty,number"`
	Gender      string `form:"gender" validate:"max=50"`
}

// UpdateRecordRequest is a partial update; omitted fields stay untouched
type UpdateRecordRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=200"`
	CrimeType   *string `json:"crime_type" validate:"omitempty,max=100"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	Address     *string `json:"address" validate:"omitempty,max=500"`
	Age         *int    `json:"age" validate:"omitempty,min=0,max=150"`
	Gender      *string `json:"gender" validate:"omitempty,max=50"`
}

// RecordResponse never carries the stored embedding
type RecordResponse struct {
	ID              uuid.UUID  `json:"id"`
	Name            *string    `json:"name"`
	CrimeType       *string    `json:"crime_type"`
	Description     *string    `json:"description"`
	Address         *string    `json:"address"`
	DeclaredAge     *int       `json:"declared_age"`
	DeclaredGender  *string    `json:"declared_gender"`
	DetectedAge     *int       `json:"detected_age"`
	DetectedGender  *string    `json:"detected_gender"`
	DetectedRace    *string    `json:"detected_race"`
	DetectedEmotion *string    `json:"detected_emotion"`
	HasImage        bool       `json:"has_image"`
	ImageFile       string     `json:"image_file,omitempty"`
	HasSignature    bool       `json:"has_signature"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

type RecordListResponse struct {
	Records []RecordResponse `json:"records"`
	Count   int              `json:"count"`
	Search  string           `json:"search,omitempty"`
}

type MatchResponse struct {
	Record     RecordResponse `json:"record"`
	Distance   float64        `json:"distance"`
	Confidence float64        `json:"confidence"`
	IsMatch    bool           `json:"is_match"`
}

type ImageSearchResponse struct {
	Matches     []MatchResponse `json:"matches"`
	Count       int             `json:"count"`
	Scanned     int             `json:"scanned"`
	Skipped     int             `json:"skipped"`
	Unmatchable int             `json:"unmatchable"`
	Threshold   float64         `json:"threshold"`
}
