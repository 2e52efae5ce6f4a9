package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pgvector/pgvector-go"

	"criminal-registry/domain/models"
	"criminal-registry/domain/repositories"
	"criminal-registry/domain/services"
	"criminal-registry/pkg/logger"
)

// CircuitBreaker prevents cascading failures
type CircuitBreaker struct {
	failures     int32
	threshold    int32
	resetTimeout time.Duration
	lastFailure  time.Time
	mu           sync.RWMutex
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(threshold int32, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		threshold:    threshold,
		resetTimeout: resetTimeout,
	}
}

// IsOpen returns true if circuit is open (should not proceed)
func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	if atomic.LoadInt32(&cb.failures) >= cb.threshold {
		// Half-open once the reset timeout has passed
		return time.Since(cb.lastFailure) <= cb.resetTimeout
	}
	return false
}

// RecordSuccess resets the failure count
func (cb *CircuitBreaker) RecordSuccess() {
	atomic.StoreInt32(&cb.failures, 0)
}

// RecordFailure increments failure count
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	atomic.AddInt32(&cb.failures, 1)
	cb.lastFailure = time.Now()
}

// GetFailures returns current failure count
func (cb *CircuitBreaker) GetFailures() int32 {
	return atomic.LoadInt32(&cb.failures)
}

// HealthChecker reports whether the facial-analysis service is reachable
type HealthChecker interface {
	IsAvailable(ctx context.Context) bool
}

type SignatureWorkerConfig struct {
	PollInterval   time.Duration
	MaxConcurrent  int
	BatchSize      int
	MaxRetries     int
	BaseRetryDelay time.Duration
}

// SignatureWorker backfills stored embeddings for records that have an image but no
// signature yet, so image searches can compare without calling the service per candidate.
type SignatureWorker struct {
	recordRepo repositories.RecordRepository
	extractor  services.SignatureExtractor
	health     HealthChecker
	events     services.EventPublisher

	// Worker control
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	isRunning bool
	mu        sync.Mutex

	pollInterval   time.Duration
	maxConcurrent  int
	batchSize      int
	maxRetries     int
	baseRetryDelay time.Duration

	circuitBreaker *CircuitBreaker

	// failed holds records whose image could not be processed, so they are not retried every poll
	failedMu sync.Mutex
	failed   map[string]bool

	processed atomic.Int64
}

func DefaultSignatureWorkerConfig() SignatureWorkerConfig {
	return SignatureWorkerConfig{
		PollInterval:   30 * time.Second,
		MaxConcurrent:  3,
		BatchSize:      20,
		MaxRetries:     3,
		BaseRetryDelay: 2 * time.Second,
	}
}

// NewSignatureWorker creates a new signature backfill worker. health may be nil.
func NewSignatureWorker(
	recordRepo repositories.RecordRepository,
	extractor services.SignatureExtractor,
	health HealthChecker,
	events services.EventPublisher,
	config SignatureWorkerConfig,
) *SignatureWorker {
	if events == nil {
		events = services.NoopPublisher
	}
	if config.MaxConcurrent < 1 {
		config.MaxConcurrent = 1
	}
	if config.BatchSize < 1 {
		config.BatchSize = 20
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 30 * time.Second
	}
	return &SignatureWorker{
		recordRepo:     recordRepo,
		extractor:      extractor,
		health:         health,
		events:         events,
		pollInterval:   config.PollInterval,
		maxConcurrent:  config.MaxConcurrent,
		batchSize:      config.BatchSize,
		maxRetries:     config.MaxRetries,
		baseRetryDelay: config.BaseRetryDelay,
		circuitBreaker: NewCircuitBreaker(10, 60*time.Second),
		failed:         make(map[string]bool),
	}
}

// Start starts the worker
func (w *SignatureWorker) Start() {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return
	}
	w.isRunning = true
	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.mu.Unlock()

	w.wg.Add(1)
	go w.run()

	logger.Worker("started", "Signature worker started", map[string]interface{}{
		"poll_interval":  w.pollInterval.String(),
		"max_concurrent": w.maxConcurrent,
		"batch_size":     w.batchSize,
	})
}

// Stop stops the worker gracefully
func (w *SignatureWorker) Stop() {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return
	}
	w.isRunning = false
	w.mu.Unlock()

	w.cancel()
	w.wg.Wait()
	logger.Worker("stopped", "Signature worker stopped", nil)
}

// IsRunning returns whether the worker is running
func (w *SignatureWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.isRunning
}

func (w *SignatureWorker) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.ProcessPending(w.ctx)

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.ProcessPending(w.ctx)
		}
	}
}

// ProcessPending runs one backfill batch and returns the number of stored signatures
func (w *SignatureWorker) ProcessPending(ctx context.Context) int {
	if w.circuitBreaker.IsOpen() {
		logger.Warn(logger.CategoryWorker, "circuit_open", "Circuit breaker open, skipping signature backfill", map[string]interface{}{
			"failures": w.circuitBreaker.GetFailures(),
		})
		return 0
	}

	if w.health != nil && !w.health.IsAvailable(ctx) {
		w.circuitBreaker.RecordFailure()
		logger.Warn(logger.CategoryWorker, "face_api_unavailable", "Face API not available, circuit breaker triggered", nil)
		return 0
	}

	records, err := w.recordRepo.ListMissingEmbedding(ctx, w.batchSize+w.failedCount())
	if err != nil {
		logger.WorkerError("list_pending_failed", "Error fetching records without signature", err, nil)
		return 0
	}

	pending := make([]models.Record, 0, len(records))
	for _, r := range records {
		if !w.hasFailed(r.ID.String()) {
			pending = append(pending, r)
		}
		if len(pending) == w.batchSize {
			break
		}
	}
	if len(pending) == 0 {
		return 0
	}

	var recordWg sync.WaitGroup
	sem := make(chan struct{}, w.maxConcurrent)
	var successCount, failCount int32

	for _, record := range pending {
		sem <- struct{}{}
		recordWg.Add(1)

		go func(r models.Record) {
			defer recordWg.Done()
			defer func() { <-sem }()

			if w.processWithRetry(ctx, r) {
				atomic.AddInt32(&successCount, 1)
				w.circuitBreaker.RecordSuccess()
			} else {
				atomic.AddInt32(&failCount, 1)
			}
		}(record)
	}

	recordWg.Wait()

	logger.Worker("batch_complete", "Signature backfill batch complete", map[string]interface{}{
		"success": successCount,
		"failed":  failCount,
	})
	return int(successCount)
}

func (w *SignatureWorker) processWithRetry(ctx context.Context, record models.Record) bool {
	var lastErr error

	for attempt := 0; attempt <= w.maxRetries; attempt++ {
		if attempt > 0 {
			delay := w.baseRetryDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return false
			case <-time.After(delay):
			}
		}

		err := w.process(ctx, record)
		if err == nil {
			return true
		}

		lastErr = err
		if !isRetryableError(err) {
			break
		}
	}

	w.markFailed(record.ID.String())
	w.circuitBreaker.RecordFailure()
	logger.WorkerError("signature_failed", "Signature backfill failed", lastErr, map[string]interface{}{
		"record_id": record.ID.String(),
	})
	return false
}

func (w *SignatureWorker) process(ctx context.Context, record models.Record) error {
	if !record.HasImage() {
		return nil
	}

	result := w.extractor.ExtractEmbedding(ctx, *record.ImageRef)
	if !result.Success {
		if result.Err != nil {
			return result.Err
		}
		return errors.New(result.Error)
	}

	if err := w.recordRepo.SetEmbedding(ctx, record.ID, pgvector.NewVector(result.Embedding), result.Model); err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			// deleted while we were working
			return nil
		}
		return fmt.Errorf("failed to store signature: %w", err)
	}

	w.processed.Add(1)
	w.events.Publish(services.EventSignatureStored, map[string]interface{}{
		"recordId": record.ID.String(),
		"model":    result.Model,
	})
	return nil
}

// isRetryableError determines if an error is retryable
func isRetryableError(err error) bool {
	if errors.Is(err, repositories.ErrStoreUnavailable) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"timeout",
		"connection refused",
		"connection reset",
		"temporary failure",
		"503",
		"502",
		"504",
		"rate limit",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

func (w *SignatureWorker) markFailed(id string) {
	w.failedMu.Lock()
	defer w.failedMu.Unlock()
	w.failed[id] = true
}

func (w *SignatureWorker) hasFailed(id string) bool {
	w.failedMu.Lock()
	defer w.failedMu.Unlock()
	return w.failed[id]
}

func (w *SignatureWorker) failedCount() int {
	w.failedMu.Lock()
	defer w.failedMu.Unlock()
	return len(w.failed)
}

// ResetFailures lets previously failed records be retried on the next poll
func (w *SignatureWorker) ResetFailures() {
	w.failedMu.Lock()
	defer w.failedMu.Unlock()
	w.failed = make(map[string]bool)
}

// GetStats returns worker statistics
func (w *SignatureWorker) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"isRunning":       w.IsRunning(),
		"maxConcurrent":   w.maxConcurrent,
		"batchSize":       w.batchSize,
		"circuitClosed":   !w.circuitBreaker.IsOpen(),
		"circuitFailures": w.circuitBreaker.GetFailures(),
		"processed":       w.processed.Load(),
		"failed":          w.failedCount(),
	}
}
