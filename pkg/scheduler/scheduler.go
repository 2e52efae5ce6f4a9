package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"criminal-registry/pkg/logger"
)

// EventScheduler runs maintenance jobs (temp artifact sweep, signature backfill reset)
type EventScheduler interface {
	Start()
	Stop()
	AddJob(id, cronExpr string, task func()) error
	AddIntervalJob(id string, every time.Duration, task func()) error
	RemoveJob(id string) error
	GetJob(id string) (*JobInfo, bool)
	ListJobs() map[string]*JobInfo
	IsRunning() bool
}

type JobInfo struct {
	ID       string      `json:"id"`
	Schedule string      `json:"schedule"`
	Job      *gocron.Job `json:"-"`
	IsActive bool        `json:"isActive"`
	LastRun  *time.Time  `json:"lastRun,omitempty"`
	NextRun  *time.Time  `json:"nextRun,omitempty"`
}

type GocronScheduler struct {
	scheduler *gocron.Scheduler
	jobs      map[string]*JobInfo
	mu        sync.RWMutex
	running   bool
}

func NewEventScheduler() EventScheduler {
	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.SingletonModeAll()

	return &GocronScheduler{
		scheduler: scheduler,
		jobs:      make(map[string]*JobInfo),
	}
}

func (s *GocronScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		logger.SchedulerWarn("start", "Scheduler is already running", nil)
		return
	}

	s.scheduler.StartAsync()
	s.running = true
	logger.Scheduler("started", "Maintenance scheduler started", nil)
}

func (s *GocronScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		logger.SchedulerWarn("stop", "Scheduler is not running", nil)
		return
	}

	s.scheduler.Stop()
	s.running = false
	logger.Scheduler("stopped", "Maintenance scheduler stopped", nil)
}

func (s *GocronScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// wrap records run times and logs every execution
func (s *GocronScheduler) wrap(id string, task func()) func() {
	return func() {
		now := time.Now()
		logger.Scheduler("job_executing", "Executing job", map[string]interface{}{"job_id": id, "time": now.Format(time.RFC3339)})

		s.mu.Lock()
		if info, exists := s.jobs[id]; exists {
			info.LastRun = &now
			if info.Job != nil {
				next := info.Job.NextRun()
				info.NextRun = &next
			}
		}
		s.mu.Unlock()

		task()
	}
}

func (s *GocronScheduler) AddJob(id, cronExpr string, task func()) error {
	return s.add(id, cronExpr, func() (*gocron.Job, error) {
		return s.scheduler.Cron(cronExpr).Do(s.wrap(id, task))
	})
}

func (s *GocronScheduler) AddIntervalJob(id string, every time.Duration, task func()) error {
	if every <= 0 {
		return fmt.Errorf("invalid interval for job %s: %v", id, every)
	}
	return s.add(id, "every "+every.String(), func() (*gocron.Job, error) {
		return s.scheduler.Every(every).Do(s.wrap(id, task))
	})
}

func (s *GocronScheduler) add(id, schedule string, create func() (*gocron.Job, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[id]; exists {
		return fmt.Errorf("job with ID %s already exists", id)
	}

	job, err := create()
	if err != nil {
		return fmt.Errorf("failed to create job %s: %w", id, err)
	}

	nextRun := job.NextRun()
	s.jobs[id] = &JobInfo{
		ID:       id,
		Schedule: schedule,
		Job:      job,
		IsActive: true,
		NextRun:  &nextRun,
	}

	logger.Scheduler("job_added", "Job added", map[string]interface{}{"job_id": id, "schedule": schedule})
	return nil
}

func (s *GocronScheduler) RemoveJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, exists := s.jobs[id]
	if !exists {
		return fmt.Errorf("job with ID %s not found", id)
	}

	if info.Job != nil {
		s.scheduler.RemoveByReference(info.Job)
	}

	delete(s.jobs, id)
	logger.Scheduler("job_removed", "Job removed", map[string]interface{}{"job_id": id})
	return nil
}

// snapshot copies a JobInfo so callers never share pointers with the scheduler
func snapshot(info *JobInfo) *JobInfo {
	copied := &JobInfo{
		ID:       info.ID,
		Schedule: info.Schedule,
		Job:      info.Job,
		IsActive: info.IsActive,
	}
	if info.LastRun != nil {
		lastRun := *info.LastRun
		copied.LastRun = &lastRun
	}
	if info.Job != nil {
		nextRun := info.Job.NextRun()
		copied.NextRun = &nextRun
	} else if info.NextRun != nil {
		nextRun := *info.NextRun
		copied.NextRun = &nextRun
	}
	return copied
}

func (s *GocronScheduler) GetJob(id string) (*JobInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, exists := s.jobs[id]
	if !exists {
		return nil, false
	}
	return snapshot(info), true
}

func (s *GocronScheduler) ListJobs() map[string]*JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make(map[string]*JobInfo, len(s.jobs))
	for id, info := range s.jobs {
		jobs[id] = snapshot(info)
	}
	return jobs
}

// ValidateCronExpression checks a cron expression without scheduling anything
func ValidateCronExpression(cronExpr string) error {
	scheduler := gocron.NewScheduler(time.UTC)
	if _, err := scheduler.Cron(cronExpr).Do(func() {}); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}
