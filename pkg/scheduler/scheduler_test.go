package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddJobRejectsDuplicates(t *testing.T) {
	s := NewEventScheduler()

	require.NoError(t, s.AddJob("sweep", "*/15 * * * *", func() {}))
	err := s.AddJob("sweep", "*/15 * * * *", func() {})
	assert.ErrorContains(t, err, "already exists")

	info, ok := s.GetJob("sweep")
	require.True(t, ok)
	assert.Equal(t, "*/15 * * * *", info.Schedule)
	assert.True(t, info.IsActive)
	assert.NotNil(t, info.NextRun)
}

func TestAddIntervalJob(t *testing.T) {
	s := NewEventScheduler()

	assert.Error(t, s.AddIntervalJob("bad", 0, func() {}))
	require.NoError(t, s.AddIntervalJob("reset", time.Hour, func() {}))

	jobs := s.ListJobs()
	require.Contains(t, jobs, "reset")
	assert.Equal(t, "every 1h0m0s", jobs["reset"].Schedule)
}

func TestRemoveJob(t *testing.T) {
	s := NewEventScheduler()
	require.NoError(t, s.AddIntervalJob("reset", time.Hour, func() {}))

	require.NoError(t, s.RemoveJob("reset"))
	assert.Error(t, s.RemoveJob("reset"))
	_, ok := s.GetJob("reset")
	assert.False(t, ok)
}

func TestIntervalJobRuns(t *testing.T) {
	s := NewEventScheduler()
	ran := make(chan struct{}, 1)
	require.NoError(t, s.AddIntervalJob("tick", 50*time.Millisecond, func() {
		select {
		case ran <- struct{}{}:
		default:
		}
	}))

	s.Start()
	defer s.Stop()
	assert.True(t, s.IsRunning())

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("interval job never ran")
	}

	info, ok := s.GetJob("tick")
	require.True(t, ok)
	assert.Eventually(t, func() bool {
		info, _ = s.GetJob("tick")
		return info.LastRun != nil
	}, time.Second, 10*time.Millisecond)
}

func TestValidateCronExpression(t *testing.T) {
	assert.NoError(t, ValidateCronExpression("0 3 * * *"))
	assert.Error(t, ValidateCronExpression("not a cron"))
}
