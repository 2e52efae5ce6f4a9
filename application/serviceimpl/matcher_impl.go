package serviceimpl

import (
	"context"
	"math"

	"criminal-registry/domain/services"
)

type MatcherImpl struct {
	extractor services.SignatureExtractor
	threshold float64
}

func NewMatcher(extractor services.SignatureExtractor, threshold float64) services.Matcher {
	return &MatcherImpl{
		extractor: extractor,
		threshold: threshold,
	}
}

func (m *MatcherImpl) Threshold() float64 {
	return m.threshold
}

// Compare extracts both embeddings and compares them
func (m *MatcherImpl) Compare(ctx context.Context, imageA, imageB string) services.CompareResult {
	a := m.extractor.ExtractEmbedding(ctx, imageA)
	if !a.Success {
		return services.CompareResult{Success: false, Threshold: m.threshold, Error: "first image: " + a.Error}
	}

	b := m.extractor.ExtractEmbedding(ctx, imageB)
	if !b.Success {
		return services.CompareResult{Success: false, Threshold: m.threshold, Error: "second image: " + b.Error}
	}

	return m.CompareEmbeddings(a.Embedding, b.Embedding)
}

func (m *MatcherImpl) CompareEmbeddings(a, b []float32) services.CompareResult {
	distance, err := cosineDistance(a, b)
	if err != nil {
		return services.CompareResult{Success: false, Threshold: m.threshold, Error: err.Error()}
	}

	return services.CompareResult{
		Success:   true,
		IsMatch:   distance < m.threshold,
		Distance:  distance,
		Threshold: m.threshold,
	}
}

// cosineDistance is 1 - cosine similarity, in [0, 2]
func cosineDistance(a, b []float32) (float64, error) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, services.ErrEmbeddingMismatch
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, services.ErrZeroEmbedding
	}

	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp floating point drift
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}
	return 1 - similarity, nil
}

// confidence is a presentational score derived from distance
func confidence(distance float64) float64 {
	c := (1 - distance) * 100
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}
