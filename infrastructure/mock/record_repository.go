// Package mock provides in-memory implementations of the repository and
// collaborator interfaces for tests.
package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"criminal-registry/domain/models"
	"criminal-registry/domain/repositories"
)

// MockRecordRepository is an in-memory repositories.RecordRepository
type MockRecordRepository struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*models.Record
	order   []uuid.UUID

	// Error injection
	CreateError error
	ListError   error
	GetError    error
	UpdateError error
	DeleteError error
	StatsError  error
}

// NewMockRecordRepository creates an empty mock store
func NewMockRecordRepository() *MockRecordRepository {
	return &MockRecordRepository{
		records: make(map[uuid.UUID]*models.Record),
	}
}

func (m *MockRecordRepository) ParseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", repositories.ErrInvalidID, raw)
	}
	return id, nil
}

func (m *MockRecordRepository) Create(ctx context.Context, record *models.Record) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.CreatedAt = time.Now().UTC()
	record.UpdatedAt = nil

	stored := *record
	m.records[record.ID] = &stored
	m.order = append(m.order, record.ID)
	return nil
}

// snapshot returns copies in insertion order; caller holds the read lock
func (m *MockRecordRepository) snapshot(match func(*models.Record) bool) []models.Record {
	records := make([]models.Record, 0, len(m.records))
	for _, id := range m.order {
		r, ok := m.records[id]
		if !ok {
			continue
		}
		if match == nil || match(r) {
			records = append(records, *r)
		}
	}
	return records
}

func (m *MockRecordRepository) List(ctx context.Context) ([]models.Record, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot(nil), nil
}

func (m *MockRecordRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Record, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.records[id]
	if !ok {
		return nil, repositories.ErrRecordNotFound
	}
	copied := *r
	return &copied, nil
}

func containsFold(field *string, text string) bool {
	return field != nil && strings.Contains(strings.ToLower(*field), text)
}

func (m *MockRecordRepository) Search(ctx context.Context, text string) ([]models.Record, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if text == "" {
		return m.snapshot(nil), nil
	}
	needle := strings.ToLower(text)
	return m.snapshot(func(r *models.Record) bool {
		return containsFold(r.Name, needle) || containsFold(r.CrimeType, needle) || containsFold(r.Address, needle)
	}), nil
}

func (m *MockRecordRepository) Update(ctx context.Context, id uuid.UUID, update repositories.RecordUpdate) (int64, error) {
	if m.UpdateError != nil {
		return 0, m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[id]
	if !ok {
		return 0, nil
	}
	if update.Name != nil {
		r.Name = update.Name
	}
	if update.CrimeType != nil {
		r.CrimeType = update.CrimeType
	}
	if update.Description != nil {
		r.Description = update.Description
	}
	if update.Address != nil {
		r.Address = update.Address
	}
	if update.DeclaredAge != nil {
		r.DeclaredAge = update.DeclaredAge
	}
	if update.DeclaredGender != nil {
		r.DeclaredGender = update.DeclaredGender
	}
	if update.ImageRef != nil {
		r.ImageRef = update.ImageRef
		r.Embedding = nil
		r.EmbeddingModel = nil
	}
	now := time.Now().UTC()
	r.UpdatedAt = &now
	return 1, nil
}

func (m *MockRecordRepository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	if m.DeleteError != nil {
		return 0, m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[id]; !ok {
		return 0, nil
	}
	delete(m.records, id)
	return 1, nil
}

func (m *MockRecordRepository) Statistics(ctx context.Context) (*repositories.RecordStatistics, error) {
	if m.StatsError != nil {
		return nil, m.StatsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	byType := make(map[string]*repositories.CrimeTypeGroup)
	for _, r := range m.records {
		crimeType := ""
		if r.CrimeType != nil {
			crimeType = *r.CrimeType
		}
		g, ok := byType[crimeType]
		if !ok {
			g = &repositories.CrimeTypeGroup{CrimeType: crimeType}
			byType[crimeType] = g
		}
		g.Total++
		if r.HasImage() {
			g.WithImage++
		}
	}

	groups := make([]repositories.CrimeTypeGroup, 0, len(byType))
	for _, g := range byType {
		groups = append(groups, *g)
	}
	return repositories.NewRecordStatistics(groups), nil
}

func (m *MockRecordRepository) ListMissingEmbedding(ctx context.Context, limit int) ([]models.Record, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := m.snapshot(func(r *models.Record) bool {
		return r.HasImage() && r.Embedding == nil
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (m *MockRecordRepository) SetEmbedding(ctx context.Context, id uuid.UUID, embedding pgvector.Vector, model string) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[id]
	if !ok {
		return repositories.ErrRecordNotFound
	}
	r.Embedding = &embedding
	r.EmbeddingModel = &model
	return nil
}
