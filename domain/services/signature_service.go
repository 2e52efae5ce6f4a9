package services

import (
	"context"
)

// FaceAnalysis is the attribute bundle returned by the facial-analysis service
type FaceAnalysis struct {
	Age     int
	Gender  string
	Race    string
	Emotion string
}

// FaceAnalyzer is the external facial-analysis collaborator. Implementations
// receive an image file path and may block for a long time.
type FaceAnalyzer interface {
	Analyze(ctx context.Context, imagePath string) (*FaceAnalysis, error)
	Represent(ctx context.Context, imagePath, model string) ([]float32, error)
}

// EmbeddingCache stores embeddings keyed by model and image content digest
type EmbeddingCache interface {
	Get(ctx context.Context, model, digest string) ([]float32, bool, error)
	Set(ctx context.Context, model, digest string, embedding []float32) error
}

// AttributeResult is the outcome of attribute analysis; failures are values, not errors
type AttributeResult struct {
	Success bool   `json:"success"`
	Age     int    `json:"age,omitempty"`
	Gender  string `json:"gender,omitempty"`
	Race    string `json:"race,omitempty"`
	Emotion string `json:"emotion,omitempty"`
	Error   string `json:"error,omitempty"`

	// Err wraps ErrNoUsableFace, ErrExtractorDisabled or ErrExtractorFailed
	Err error `json:"-"`
}

// EmbeddingResult is the outcome of embedding extraction
type EmbeddingResult struct {
	Success   bool      `json:"success"`
	Embedding []float32 `json:"-"`
	Model     string    `json:"model,omitempty"`
	Error     string    `json:"error,omitempty"`

	// Err wraps ErrNoUsableFace, ErrExtractorDisabled or ErrExtractorFailed
	Err error `json:"-"`
}

// SignatureExtractor converts images into comparable signatures.
// Attribute analysis and embedding extraction are independent calls that may
// fail independently.
type SignatureExtractor interface {
	AnalyzeAttributes(ctx context.Context, imagePath string) AttributeResult
	ExtractEmbedding(ctx context.Context, imagePath string) EmbeddingResult

	// Validate rejects missing files, non JPEG/PNG images and images under
	// the minimum size, without calling the collaborator
	Validate(imagePath string) (bool, string)

	Model() string
}
