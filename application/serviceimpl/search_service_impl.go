package serviceimpl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"criminal-registry/domain/models"
	"criminal-registry/domain/repositories"
	"criminal-registry/domain/services"
	"criminal-registry/infrastructure/storage"
	"criminal-registry/pkg/logger"
	"criminal-registry/pkg/metrics"
)

type SearchServiceImpl struct {
	recordRepo    repositories.RecordRepository
	extractor     services.SignatureExtractor
	matcher       services.Matcher
	images        services.ImageStore
	events        services.EventPublisher
	metrics       *metrics.Manager
	maxConcurrent int
}

func NewSearchService(
	recordRepo repositories.RecordRepository,
	extractor services.SignatureExtractor,
	matcher services.Matcher,
	images services.ImageStore,
	events services.EventPublisher,
	metricsManager *metrics.Manager,
	maxConcurrent int,
) services.SearchService {
	if events == nil {
		events = services.NoopPublisher
	}
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &SearchServiceImpl{
		recordRepo:    recordRepo,
		extractor:     extractor,
		matcher:       matcher,
		images:        images,
		events:        events,
		metrics:       metricsManager,
		maxConcurrent: maxConcurrent,
	}
}

// SearchByText returns records whose name, crime type or address contains text.
// Empty text returns every record.
func (s *SearchServiceImpl) SearchByText(ctx context.Context, text string) ([]models.Record, error) {
	start := time.Now()
	text = strings.TrimSpace(text)

	records, err := s.recordRepo.Search(ctx, text)
	if err != nil {
		s.metrics.ObserveSearch("text", "error", time.Since(start))
		logger.SearchError("text_search_failed", "Text search failed", err, map[string]interface{}{
			"query": text,
		})
		return nil, fmt.Errorf("text search: %w", err)
	}

	s.metrics.ObserveSearch("text", "ok", time.Since(start))
	return records, nil
}

// candidateOutcome is the per-record result of a scan
type candidateOutcome struct {
	compared bool
	skipped  bool
	result   services.CompareResult
}

// SearchByImage ranks stored records by facial similarity to the query image
func (s *SearchServiceImpl) SearchByImage(ctx context.Context, imagePath string) (*services.ImageSearchResult, error) {
	start := time.Now()

	if ok, reason := s.extractor.Validate(imagePath); !ok {
		s.metrics.ObserveSearch("image", "invalid", time.Since(start))
		return nil, services.NewValidationError(reason)
	}

	query := s.extractor.ExtractEmbedding(ctx, imagePath)
	if !query.Success {
		if errors.Is(query.Err, services.ErrNoUsableFace) {
			s.metrics.ObserveSearch("image", "invalid", time.Since(start))
			return nil, &services.ValidationError{
				Reason: "No usable face found in the query image",
				Err:    query.Err,
			}
		}
		s.metrics.ObserveSearch("image", "error", time.Since(start))
		logger.SearchError("query_embedding_failed", "Failed to extract query embedding", query.Err, nil)
		if query.Err == nil {
			return nil, fmt.Errorf("query embedding: %w: %s", services.ErrExtractorFailed, query.Error)
		}
		return nil, fmt.Errorf("query embedding: %w", query.Err)
	}

	records, err := s.recordRepo.List(ctx)
	if err != nil {
		s.metrics.ObserveSearch("image", "error", time.Since(start))
		logger.SearchError("image_search_list_failed", "Failed to load candidates", err, nil)
		return nil, fmt.Errorf("image search: %w", err)
	}

	outcomes := make([]candidateOutcome, len(records))
	unmatchable := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)
	for i := range records {
		if !records[i].HasImage() {
			unmatchable++
			continue
		}
		i := i
		g.Go(func() error {
			outcomes[i] = s.compareCandidate(gctx, query.Embedding, &records[i])
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		s.metrics.ObserveSearch("image", "canceled", time.Since(start))
		return nil, fmt.Errorf("image search: %w", err)
	}

	result := &services.ImageSearchResult{
		Matches:     []services.MatchResult{},
		Unmatchable: unmatchable,
		Threshold:   s.matcher.Threshold(),
	}
	for i, outcome := range outcomes {
		if outcome.skipped {
			result.Skipped++
			continue
		}
		if !outcome.compared {
			continue
		}
		result.Scanned++
		if outcome.result.IsMatch {
			result.Matches = append(result.Matches, services.MatchResult{
				Record:     records[i],
				Distance:   outcome.result.Distance,
				Confidence: confidence(outcome.result.Distance),
				IsMatch:    true,
			})
		}
	}

	// Ties keep store order
	sort.SliceStable(result.Matches, func(a, b int) bool {
		return result.Matches[a].Distance < result.Matches[b].Distance
	})
	result.Count = len(result.Matches)

	s.metrics.AddCandidates(metrics.OutcomeMatched, result.Count)
	s.metrics.AddCandidates(metrics.OutcomeNoMatch, result.Scanned-result.Count)
	s.metrics.AddCandidates(metrics.OutcomeSkipped, result.Skipped)
	s.metrics.AddCandidates(metrics.OutcomeUnmatchable, result.Unmatchable)
	s.metrics.ObserveSearch("image", "ok", time.Since(start))

	summary := map[string]interface{}{
		"matches":     result.Count,
		"scanned":     result.Scanned,
		"skipped":     result.Skipped,
		"unmatchable": result.Unmatchable,
		"threshold":   result.Threshold,
	}
	logger.Search("image_search_completed", "Image search completed", summary)
	s.events.Publish(services.EventSearchCompleted, summary)

	return result, nil
}

// compareCandidate prefers the stored embedding and falls back to extracting from the stored image.
// Failures are logged and reported as skipped, never returned.
func (s *SearchServiceImpl) compareCandidate(ctx context.Context, query []float32, record *models.Record) candidateOutcome {
	candidate, ok := record.StoredEmbedding(s.extractor.Model())
	if !ok {
		extracted := s.extractor.ExtractEmbedding(ctx, *record.ImageRef)
		if !extracted.Success {
			logger.Warn(logger.CategorySearch, "candidate_skipped", "Candidate embedding unavailable", map[string]interface{}{
				"record_id": record.ID.String(),
				"error":     extracted.Error,
			})
			return candidateOutcome{skipped: true}
		}
		candidate = extracted.Embedding
	}

	result := s.matcher.CompareEmbeddings(query, candidate)
	if !result.Success {
		logger.Warn(logger.CategorySearch, "candidate_skipped", "Candidate comparison failed", map[string]interface{}{
			"record_id": record.ID.String(),
			"error":     result.Error,
		})
		return candidateOutcome{skipped: true}
	}
	return candidateOutcome{compared: true, result: result}
}

// SearchByUpload stores the upload as a temporary artifact, searches, and always removes it
func (s *SearchServiceImpl) SearchByUpload(ctx context.Context, image io.Reader, filename string) (*services.ImageSearchResult, error) {
	path, cleanup, err := s.images.SaveTemp(image, filename)
	defer cleanup()
	if err != nil {
		return nil, uploadError(err)
	}

	return s.SearchByImage(ctx, path)
}

// CompareUploads runs a one-to-one verification of two uploaded images
func (s *SearchServiceImpl) CompareUploads(
	ctx context.Context,
	imageA io.Reader, filenameA string,
	imageB io.Reader, filenameB string,
) (*services.CompareResult, error) {
	pathA, cleanupA, err := s.images.SaveTemp(imageA, filenameA)
	defer cleanupA()
	if err != nil {
		return nil, uploadError(err)
	}

	pathB, cleanupB, err := s.images.SaveTemp(imageB, filenameB)
	defer cleanupB()
	if err != nil {
		return nil, uploadError(err)
	}

	for _, path := range []string{pathA, pathB} {
		if ok, reason := s.extractor.Validate(path); !ok {
			return nil, services.NewValidationError(reason)
		}
	}

	result := s.matcher.Compare(ctx, pathA, pathB)
	logger.Search("compare_completed", "Face comparison completed", map[string]interface{}{
		"success":  result.Success,
		"is_match": result.IsMatch,
		"distance": result.Distance,
	})
	return &result, nil
}

// uploadError maps intake rejections to validation errors
func uploadError(err error) error {
	switch {
	case errors.Is(err, storage.ErrNoFilename):
		return &services.ValidationError{Reason: "No image file selected", Err: err}
	case errors.Is(err, storage.ErrExtensionNotAllowed):
		return &services.ValidationError{Reason: "File type not allowed. Use png, jpg or jpeg", Err: err}
	case errors.Is(err, storage.ErrFileTooLarge):
		return &services.ValidationError{Reason: "File is too large", Err: err}
	}
	return fmt.Errorf("store upload: %w", err)
}
