package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// Record is a suspect/criminal profile. Optional attributes are pointers:
// nil means "unknown" and is never coerced into a default.
type Record struct {
	ID uuid.UUID `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`

	// Operator supplied attributes
	Name           *string `gorm:"index"`
	CrimeType      *string `gorm:"index"`
	Description    *string `gorm:"type:text"`
	Address        *string
	DeclaredAge    *int
	DeclaredGender *string

	// Derived from the image at insert time, never recomputed
	DetectedAge     *int
	DetectedGender  *string
	DetectedRace    *string
	DetectedEmotion *string

	// Stored image used for later re-matching
	ImageRef *string

	// Face embedding (dimension depends on the model, e.g. 4096 for VGG-Face)
	Embedding      *pgvector.Vector `gorm:"type:vector"`
	EmbeddingModel *string

	CreatedAt time.Time  `gorm:"not null;index"`
	UpdatedAt *time.Time `gorm:"autoUpdateTime:false"`
}

func (Record) TableName() string {
	return "criminal_records"
}

// HasImage reports whether the record can take part in an image search
func (r *Record) HasImage() bool {
	return r.ImageRef != nil && *r.ImageRef != ""
}

// StoredEmbedding returns the persisted embedding when it was produced by model
func (r *Record) StoredEmbedding(model string) ([]float32, bool) {
	if r.Embedding == nil || r.EmbeddingModel == nil || *r.EmbeddingModel != model {
		return nil, false
	}
	vec := r.Embedding.Slice()
	if len(vec) == 0 {
		return nil, false
	}
	return vec, true
}
