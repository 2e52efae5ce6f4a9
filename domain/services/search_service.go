package services

import (
	"context"
	"io"

	"criminal-registry/domain/models"
)

// MatchResult pairs a candidate record with its distance to the query face
type MatchResult struct {
	Record     models.Record
	Distance   float64
	Confidence float64 // clamp((1 - distance) * 100, 0, 100)
	IsMatch    bool
}

// ImageSearchResult holds ranked matches plus scan bookkeeping
type ImageSearchResult struct {
	Matches     []MatchResult
	Count       int
	Scanned     int // candidates compared
	Skipped     int // candidates whose comparison failed
	Unmatchable int // candidates without an image
	Threshold   float64
}

type SearchService interface {
	SearchByText(ctx context.Context, text string) ([]models.Record, error)
	SearchByImage(ctx context.Context, imagePath string) (*ImageSearchResult, error)
	SearchByUpload(ctx context.Context, image io.Reader, filename string) (*ImageSearchResult, error)
	CompareUploads(ctx context.Context, imageA io.Reader, filenameA string, imageB io.Reader, filenameB string) (*CompareResult, error)
}
