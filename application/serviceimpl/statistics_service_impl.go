package serviceimpl

import (
	"context"
	"fmt"

	"criminal-registry/domain/repositories"
	"criminal-registry/domain/services"
)

type StatisticsServiceImpl struct {
	recordRepo repositories.RecordRepository
}

func NewStatisticsService(recordRepo repositories.RecordRepository) services.StatisticsService {
	return &StatisticsServiceImpl{recordRepo: recordRepo}
}

// GetStatistics recomputes the aggregate view from the store on every call
func (s *StatisticsServiceImpl) GetStatistics(ctx context.Context) (*services.Statistics, error) {
	stats, err := s.recordRepo.Statistics(ctx)
	if err != nil {
		return nil, fmt.Errorf("statistics: %w", err)
	}

	distinct := stats.DistinctCrimeTypes
	if distinct == nil {
		distinct = []string{}
	}
	breakdown := stats.CrimeTypeBreakdown
	if breakdown == nil {
		breakdown = map[string]int64{}
	}

	return &services.Statistics{
		TotalRecords:       stats.TotalRecords,
		DistinctCrimeTypes: distinct,
		CrimeTypeCount:     stats.CrimeTypeCount,
		RecordsWithImage:   stats.RecordsWithImage,
		CrimeTypeBreakdown: breakdown,
	}, nil
}
