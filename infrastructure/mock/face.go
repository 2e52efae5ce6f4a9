package mock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"criminal-registry/domain/services"
)

// MockFaceAnalyzer returns canned analyses and embeddings keyed by image path
type MockFaceAnalyzer struct {
	mu         sync.RWMutex
	analyses   map[string]*services.FaceAnalysis
	embeddings map[string][]float32

	// DefaultEmbedding answers Represent for paths without a canned embedding
	DefaultEmbedding []float32

	AnalyzeError   error
	RepresentError error

	AnalyzeCalls   atomic.Int32
	RepresentCalls atomic.Int32
}

func NewMockFaceAnalyzer() *MockFaceAnalyzer {
	return &MockFaceAnalyzer{
		analyses:   make(map[string]*services.FaceAnalysis),
		embeddings: make(map[string][]float32),
	}
}

func (m *MockFaceAnalyzer) SetAnalysis(imagePath string, analysis *services.FaceAnalysis) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analyses[imagePath] = analysis
}

func (m *MockFaceAnalyzer) SetEmbedding(imagePath string, embedding []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embeddings[imagePath] = embedding
}

func (m *MockFaceAnalyzer) Analyze(ctx context.Context, imagePath string) (*services.FaceAnalysis, error) {
	m.AnalyzeCalls.Add(1)
	if m.AnalyzeError != nil {
		return nil, m.AnalyzeError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if a, ok := m.analyses[imagePath]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, fmt.Errorf("no face analysis for %s: %w", imagePath, services.ErrNoUsableFace)
}

func (m *MockFaceAnalyzer) Represent(ctx context.Context, imagePath, model string) ([]float32, error) {
	m.RepresentCalls.Add(1)
	if m.RepresentError != nil {
		return nil, m.RepresentError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.embeddings[imagePath]; ok {
		return append([]float32(nil), e...), nil
	}
	if m.DefaultEmbedding != nil {
		return append([]float32(nil), m.DefaultEmbedding...), nil
	}
	return nil, fmt.Errorf("no embedding for %s: %w", imagePath, services.ErrNoUsableFace)
}

// MockEmbeddingCache is an in-memory services.EmbeddingCache
type MockEmbeddingCache struct {
	mu      sync.Mutex
	entries map[string][]float32

	GetError error
	SetError error
}

func NewMockEmbeddingCache() *MockEmbeddingCache {
	return &MockEmbeddingCache{entries: make(map[string][]float32)}
}

func (m *MockEmbeddingCache) Get(ctx context.Context, model, digest string) ([]float32, bool, error) {
	if m.GetError != nil {
		return nil, false, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[model+":"+digest]
	return e, ok, nil
}

func (m *MockEmbeddingCache) Set(ctx context.Context, model, digest string, embedding []float32) error {
	if m.SetError != nil {
		return m.SetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[model+":"+digest] = append([]float32(nil), embedding...)
	return nil
}

func (m *MockEmbeddingCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// MockImageStore writes into a directory and records removals
type MockImageStore struct {
	Dir string

	SaveError error

	mu      sync.Mutex
	seq     int
	removed []string
	temps   []string
}

func NewMockImageStore(dir string) *MockImageStore {
	return &MockImageStore{Dir: dir}
}

func (m *MockImageStore) next(prefix, filename string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	return filepath.Join(m.Dir, fmt.Sprintf("%s_%d_%s", prefix, m.seq, filepath.Base(filename)))
}

func (m *MockImageStore) write(path string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (m *MockImageStore) Save(r io.Reader, filename string) (string, error) {
	if m.SaveError != nil {
		return "", m.SaveError
	}
	path := m.next("stored", filename)
	if err := m.write(path, r); err != nil {
		return "", err
	}
	return path, nil
}

func (m *MockImageStore) SaveTemp(r io.Reader, filename string) (string, func(), error) {
	if m.SaveError != nil {
		return "", func() {}, m.SaveError
	}
	path := m.next("temp", filename)
	if err := m.write(path, r); err != nil {
		return "", func() {}, err
	}
	m.mu.Lock()
	m.temps = append(m.temps, path)
	m.mu.Unlock()
	return path, func() { _ = os.Remove(path) }, nil
}

func (m *MockImageStore) Remove(path string) error {
	m.mu.Lock()
	m.removed = append(m.removed, path)
	m.mu.Unlock()
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (m *MockImageStore) Removed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.removed...)
}

func (m *MockImageStore) TempPaths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.temps...)
}

// Event is one published event
type Event struct {
	Type string
	Data map[string]interface{}
}

// MockPublisher records published events
type MockPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (m *MockPublisher) Publish(eventType string, data map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, Event{Type: eventType, Data: data})
}

func (m *MockPublisher) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}
