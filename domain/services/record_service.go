package services

import (
	"context"
	"io"

	"criminal-registry/domain/models"
	"criminal-registry/domain/repositories"
)

// CreateRecordInput carries operator supplied fields. Image is optional.
type CreateRecordInput struct {
	Name           *string
	CrimeType      *string
	Description    *string
	Address        *string
	DeclaredAge    *int
	DeclaredGender *string

	Image         io.Reader
	ImageFilename string
}

type RecordService interface {
	Create(ctx context.Context, input CreateRecordInput) (*models.Record, error)
	GetAll(ctx context.Context) ([]models.Record, error)
	GetByID(ctx context.Context, rawID string) (*models.Record, error)
	Update(ctx context.Context, rawID string, update repositories.RecordUpdate) (*models.Record, error)
	Delete(ctx context.Context, rawID string) error
}
