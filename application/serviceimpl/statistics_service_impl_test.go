package serviceimpl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"criminal-registry/domain/models"
	"criminal-registry/domain/repositories"
)

func TestGetStatistics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ref := "static/uploads/a.png"
	seed := []*models.Record{
		{CrimeType: strPtr("theft")},
		{CrimeType: strPtr("theft"), ImageRef: &ref},
		{CrimeType: strPtr("fraud")},
		{Name: strPtr("unknown crime")},
	}
	for _, r := range seed {
		require.NoError(t, f.repo.Create(ctx, r))
	}

	stats, err := f.stats.GetStatistics(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(4), stats.TotalRecords)
	assert.Equal(t, 2, stats.CrimeTypeCount)
	assert.Equal(t, []string{"fraud", "theft"}, stats.DistinctCrimeTypes)
	assert.Equal(t, int64(1), stats.RecordsWithImage)
	assert.Equal(t, map[string]int64{"theft": 2, "fraud": 1}, stats.CrimeTypeBreakdown)
}

func TestGetStatisticsRecomputedEveryCall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stats, err := f.stats.GetStatistics(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalRecords)
	assert.Equal(t, []string{}, stats.DistinctCrimeTypes)

	require.NoError(t, f.repo.Create(ctx, &models.Record{CrimeType: strPtr("arson")}))

	stats, err = f.stats.GetStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalRecords)
	assert.Equal(t, 1, stats.CrimeTypeCount)
}

func TestGetStatisticsStoreUnavailable(t *testing.T) {
	f := newFixture(t)
	f.repo.StatsError = repositories.ErrStoreUnavailable

	_, err := f.stats.GetStatistics(context.Background())
	assert.ErrorIs(t, err, repositories.ErrStoreUnavailable)
}
