package serviceimpl

import (
	"context"
	"fmt"
	"strings"

	"github.com/pgvector/pgvector-go"
	"golang.org/x/sync/errgroup"

	"criminal-registry/domain/models"
	"criminal-registry/domain/repositories"
	"criminal-registry/domain/services"
	"criminal-registry/pkg/logger"
	"criminal-registry/pkg/metrics"
)

const maxDeclaredAge = 150

type RecordServiceImpl struct {
	recordRepo repositories.RecordRepository
	extractor  services.SignatureExtractor
	images     services.ImageStore
	events     services.EventPublisher
	metrics    *metrics.Manager
}

func NewRecordService(
	recordRepo repositories.RecordRepository,
	extractor services.SignatureExtractor,
	images services.ImageStore,
	events services.EventPublisher,
	metricsManager *metrics.Manager,
) services.RecordService {
	if events == nil {
		events = services.NoopPublisher
	}
	return &RecordServiceImpl{
		recordRepo: recordRepo,
		extractor:  extractor,
		images:     images,
		events:     events,
		metrics:    metricsManager,
	}
}

func validDeclaredAge(age *int) bool {
	return age == nil || (*age >= 0 && *age <= maxDeclaredAge)
}

// Create stores a new record. When an image is supplied it is validated, then
// attribute analysis and embedding extraction run independently; either may fail
// and leave its fields absent without failing the insert.
func (s *RecordServiceImpl) Create(ctx context.Context, input services.CreateRecordInput) (*models.Record, error) {
	if !validDeclaredAge(input.DeclaredAge) {
		return nil, services.NewValidationError("Age must be between 0 and 150")
	}

	record := &models.Record{
		Name:           input.Name,
		CrimeType:      input.CrimeType,
		Description:    input.Description,
		Address:        input.Address,
		DeclaredAge:    input.DeclaredAge,
		DeclaredGender: input.DeclaredGender,
	}

	var imagePath string
	if input.Image != nil && strings.TrimSpace(input.ImageFilename) != "" {
		path, err := s.images.Save(input.Image, input.ImageFilename)
		if err != nil {
			return nil, uploadError(err)
		}
		imagePath = path

		if ok, reason := s.extractor.Validate(imagePath); !ok {
			s.removeImage(imagePath)
			return nil, services.NewValidationError(reason)
		}

		record.ImageRef = &imagePath
		s.deriveSignature(ctx, record, imagePath)
	}

	if err := s.recordRepo.Create(ctx, record); err != nil {
		if imagePath != "" {
			s.removeImage(imagePath)
		}
		logger.RecordError("create_failed", "Failed to create record", err, nil)
		return nil, fmt.Errorf("create record: %w", err)
	}

	s.metrics.IncRecordWrite("create")
	logger.Record("created", "Record created", map[string]interface{}{
		"record_id":     record.ID.String(),
		"has_image":     record.HasImage(),
		"has_signature": record.Embedding != nil,
	})
	s.events.Publish(services.EventRecordCreated, map[string]interface{}{
		"recordId": record.ID.String(),
	})

	return record, nil
}

// deriveSignature fills the detected attributes and the embedding from the image
func (s *RecordServiceImpl) deriveSignature(ctx context.Context, record *models.Record, imagePath string) {
	var (
		attrs     services.AttributeResult
		embedding services.EmbeddingResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		attrs = s.extractor.AnalyzeAttributes(gctx, imagePath)
		return nil
	})
	g.Go(func() error {
		embedding = s.extractor.ExtractEmbedding(gctx, imagePath)
		return nil
	})
	_ = g.Wait()

	if attrs.Success {
		age := attrs.Age
		record.DetectedAge = &age
		record.DetectedGender = nonEmpty(attrs.Gender)
		record.DetectedRace = nonEmpty(attrs.Race)
		record.DetectedEmotion = nonEmpty(attrs.Emotion)
	} else {
		logger.Warn(logger.CategoryRecord, "attributes_unavailable", "Attribute analysis failed, detected fields left empty", map[string]interface{}{
			"error": attrs.Error,
		})
	}

	if embedding.Success {
		vec := pgvector.NewVector(embedding.Embedding)
		model := embedding.Model
		record.Embedding = &vec
		record.EmbeddingModel = &model
	} else {
		logger.Warn(logger.CategoryRecord, "signature_unavailable", "Embedding extraction failed, signature left for backfill", map[string]interface{}{
			"error": embedding.Error,
		})
	}
}

func nonEmpty(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func (s *RecordServiceImpl) GetAll(ctx context.Context) ([]models.Record, error) {
	records, err := s.recordRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

func (s *RecordServiceImpl) GetByID(ctx context.Context, rawID string) (*models.Record, error) {
	id, err := s.recordRepo.ParseID(rawID)
	if err != nil {
		return nil, err
	}
	return s.recordRepo.GetByID(ctx, id)
}

// Update applies a partial update and returns the stored record
func (s *RecordServiceImpl) Update(ctx context.Context, rawID string, update repositories.RecordUpdate) (*models.Record, error) {
	id, err := s.recordRepo.ParseID(rawID)
	if err != nil {
		return nil, err
	}
	if update.IsEmpty() {
		return nil, &services.ValidationError{Reason: "No fields to update", Err: services.ErrEmptyUpdate}
	}
	if !validDeclaredAge(update.DeclaredAge) {
		return nil, services.NewValidationError("Age must be between 0 and 150")
	}

	matched, err := s.recordRepo.Update(ctx, id, update)
	if err != nil {
		logger.RecordError("update_failed", "Failed to update record", err, map[string]interface{}{
			"record_id": id.String(),
		})
		return nil, fmt.Errorf("update record: %w", err)
	}
	if matched == 0 {
		return nil, repositories.ErrRecordNotFound
	}

	s.metrics.IncRecordWrite("update")
	logger.Record("updated", "Record updated", map[string]interface{}{"record_id": id.String()})
	s.events.Publish(services.EventRecordUpdated, map[string]interface{}{"recordId": id.String()})

	return s.recordRepo.GetByID(ctx, id)
}

// Delete removes the record and its stored image. A missing record is ErrRecordNotFound.
func (s *RecordServiceImpl) Delete(ctx context.Context, rawID string) error {
	id, err := s.recordRepo.ParseID(rawID)
	if err != nil {
		return err
	}

	record, err := s.recordRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	removed, err := s.recordRepo.Delete(ctx, id)
	if err != nil {
		logger.RecordError("delete_failed", "Failed to delete record", err, map[string]interface{}{
			"record_id": id.String(),
		})
		return fmt.Errorf("delete record: %w", err)
	}
	if removed == 0 {
		return repositories.ErrRecordNotFound
	}

	if record.HasImage() {
		s.removeImage(*record.ImageRef)
	}

	s.metrics.IncRecordWrite("delete")
	logger.Record("deleted", "Record deleted", map[string]interface{}{"record_id": id.String()})
	s.events.Publish(services.EventRecordDeleted, map[string]interface{}{"recordId": id.String()})
	return nil
}

func (s *RecordServiceImpl) removeImage(path string) {
	if err := s.images.Remove(path); err != nil {
		logger.Warn(logger.CategoryRecord, "image_remove_failed", "Failed to remove stored image", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
	}
}
