package repositories

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"criminal-registry/domain/models"
)

type RecordRepository interface {
	// ParseID validates a caller supplied identifier; malformed input returns ErrInvalidID
	ParseID(raw string) (uuid.UUID, error)

	Create(ctx context.Context, record *models.Record) error
	List(ctx context.Context) ([]models.Record, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Record, error)

	// Search matches name, crime type or address case-insensitively; empty text lists everything
	Search(ctx context.Context, text string) ([]models.Record, error)

	Update(ctx context.Context, id uuid.UUID, update RecordUpdate) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) (int64, error)

	// Statistics computes every figure from one snapshot of the store
	Statistics(ctx context.Context) (*RecordStatistics, error)

	// Signature backfill
	ListMissingEmbedding(ctx context.Context, limit int) ([]models.Record, error)
	SetEmbedding(ctx context.Context, id uuid.UUID, embedding pgvector.Vector, model string) error
}

// RecordUpdate carries a partial update; nil fields are left untouched.
// Derived (detected) attributes are intentionally absent.
type RecordUpdate struct {
	Name           *string
	CrimeType      *string
	Description    *string
	Address        *string
	DeclaredAge    *int
	DeclaredGender *string
	ImageRef       *string
}

// IsEmpty reports whether the update would change no operator field
func (u RecordUpdate) IsEmpty() bool {
	return u.Name == nil && u.CrimeType == nil && u.Description == nil && u.Address == nil &&
		u.DeclaredAge == nil && u.DeclaredGender == nil && u.ImageRef == nil
}

// Columns maps the non-nil fields to column values and stamps updated_at
func (u RecordUpdate) Columns(now time.Time) map[string]interface{} {
	cols := map[string]interface{}{"updated_at": now}
	if u.Name != nil {
		cols["name"] = *u.Name
	}
	if u.CrimeType != nil {
		cols["crime_type"] = *u.CrimeType
	}
	if u.Description != nil {
		cols["description"] = *u.Description
	}
	if u.Address != nil {
		cols["address"] = *u.Address
	}
	if u.DeclaredAge != nil {
		cols["declared_age"] = *u.DeclaredAge
	}
	if u.DeclaredGender != nil {
		cols["declared_gender"] = *u.DeclaredGender
	}
	if u.ImageRef != nil {
		cols["image_ref"] = *u.ImageRef
		// the stored signature belongs to the old image; the backfill worker recomputes it
		cols["embedding"] = nil
		cols["embedding_model"] = nil
	}
	return cols
}

// RecordStatistics is the aggregate view over the whole store
type RecordStatistics struct {
	TotalRecords       int64
	DistinctCrimeTypes []string
	CrimeTypeCount     int
	RecordsWithImage   int64
	CrimeTypeBreakdown map[string]int64
}

// CrimeTypeGroup is one row of the per crime type aggregate. Records without a
// crime type are grouped under "".
type CrimeTypeGroup struct {
	CrimeType string
	Total     int64
	WithImage int64
}

// NewRecordStatistics folds grouped counts into the aggregate view
func NewRecordStatistics(groups []CrimeTypeGroup) *RecordStatistics {
	stats := &RecordStatistics{
		DistinctCrimeTypes: []string{},
		CrimeTypeBreakdown: make(map[string]int64),
	}
	for _, g := range groups {
		stats.TotalRecords += g.Total
		stats.RecordsWithImage += g.WithImage
		if g.CrimeType == "" {
			continue
		}
		stats.CrimeTypeBreakdown[g.CrimeType] += g.Total
	}
	for crimeType := range stats.CrimeTypeBreakdown {
		stats.DistinctCrimeTypes = append(stats.DistinctCrimeTypes, crimeType)
	}
	sort.Strings(stats.DistinctCrimeTypes)
	stats.CrimeTypeCount = len(stats.DistinctCrimeTypes)
	return stats
}
