package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"criminal-registry/domain/models"
	"criminal-registry/domain/repositories"
)

type RecordRepositoryImpl struct {
	db *gorm.DB
}

func NewRecordRepository(db *gorm.DB) repositories.RecordRepository {
	return &RecordRepositoryImpl{db: db}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// storeError maps driver errors onto the repository taxonomy
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repositories.ErrRecordNotFound
	}
	return fmt.Errorf("%w: %s: %v", repositories.ErrStoreUnavailable, op, err)
}

func (r *RecordRepositoryImpl) ParseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", repositories.ErrInvalidID, raw)
	}
	return id, nil
}

func (r *RecordRepositoryImpl) Create(ctx context.Context, record *models.Record) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.CreatedAt = time.Now().UTC()
	record.UpdatedAt = nil
	return storeError("create", r.db.WithContext(ctx).Create(record).Error)
}

func (r *RecordRepositoryImpl) List(ctx context.Context) ([]models.Record, error) {
	var records []models.Record
	err := r.db.WithContext(ctx).
		Order("created_at ASC, id ASC").
		Find(&records).Error
	return records, storeError("list", err)
}

func (r *RecordRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.Record, error) {
	var record models.Record
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		return nil, storeError("get", err)
	}
	return &record, nil
}

// Search matches the text literally; LIKE wildcards in it are escaped
func (r *RecordRepositoryImpl) Search(ctx context.Context, text string) ([]models.Record, error) {
	if text == "" {
		return r.List(ctx)
	}

	pattern := "%" + likeEscaper.Replace(text) + "%"

	var records []models.Record
	err := r.db.WithContext(ctx).
		Where("name ILIKE ? OR crime_type ILIKE ? OR address ILIKE ?", pattern, pattern, pattern).
		Order("created_at ASC, id ASC").
		Find(&records).Error
	return records, storeError("search", err)
}

func (r *RecordRepositoryImpl) Update(ctx context.Context, id uuid.UUID, update repositories.RecordUpdate) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Record{}).
		Where("id = ?", id).
		Updates(update.Columns(time.Now().UTC()))
	if result.Error != nil {
		return 0, storeError("update", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *RecordRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Record{})
	if result.Error != nil {
		return 0, storeError("delete", result.Error)
	}
	return result.RowsAffected, nil
}

// Statistics aggregates in a single statement so the totals and the breakdown agree
func (r *RecordRepositoryImpl) Statistics(ctx context.Context) (*repositories.RecordStatistics, error) {
	var groups []repositories.CrimeTypeGroup
	err := r.db.WithContext(ctx).
		Model(&models.Record{}).
		Select(`COALESCE(crime_type, '') AS crime_type,
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE image_ref IS NOT NULL AND image_ref <> '') AS with_image`).
		Group("COALESCE(crime_type, '')").
		Scan(&groups).Error
	if err != nil {
		return nil, storeError("statistics", err)
	}
	return repositories.NewRecordStatistics(groups), nil
}

func (r *RecordRepositoryImpl) ListMissingEmbedding(ctx context.Context, limit int) ([]models.Record, error) {
	var records []models.Record
	err := r.db.WithContext(ctx).
		Where("embedding IS NULL AND image_ref IS NOT NULL AND image_ref <> ''").
		Order("created_at ASC").
		Limit(limit).
		Find(&records).Error
	return records, storeError("list missing embedding", err)
}

// SetEmbedding stores a signature without touching updated_at.
// A record deleted in the meantime returns ErrRecordNotFound.
func (r *RecordRepositoryImpl) SetEmbedding(ctx context.Context, id uuid.UUID, embedding pgvector.Vector, model string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Record{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"embedding":       embedding,
			"embedding_model": model,
		})
	if result.Error != nil {
		return storeError("set embedding", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrRecordNotFound
	}
	return nil
}
