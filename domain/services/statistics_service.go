package services

import (
	"context"
)

// Statistics is recomputed on every call
type Statistics struct {
	TotalRecords       int64            `json:"total_records"`
	DistinctCrimeTypes []string         `json:"distinct_crime_types"`
	CrimeTypeCount     int              `json:"crime_type_count"`
	RecordsWithImage   int64            `json:"records_with_image"`
	CrimeTypeBreakdown map[string]int64 `json:"crime_type_breakdown"`
}

type StatisticsService interface {
	GetStatistics(ctx context.Context) (*Statistics, error)
}
