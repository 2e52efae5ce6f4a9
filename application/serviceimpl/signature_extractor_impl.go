package serviceimpl

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"criminal-registry/domain/services"
	"criminal-registry/pkg/logger"
	"criminal-registry/pkg/metrics"
)

const minImageSide = 100

type SignatureExtractorImpl struct {
	analyzer services.FaceAnalyzer
	cache    services.EmbeddingCache
	model    string
	metrics  *metrics.Manager
}

// NewSignatureExtractor wraps the facial-analysis service. analyzer may be nil when
// the service is disabled; cache may be nil.
func NewSignatureExtractor(
	analyzer services.FaceAnalyzer,
	cache services.EmbeddingCache,
	model string,
	metricsManager *metrics.Manager,
) services.SignatureExtractor {
	return &SignatureExtractorImpl{
		analyzer: analyzer,
		cache:    cache,
		model:    model,
		metrics:  metricsManager,
	}
}

func (e *SignatureExtractorImpl) Model() string {
	return e.model
}

// AnalyzeAttributes returns age, gender, race and emotion. Failures become Success=false.
func (e *SignatureExtractorImpl) AnalyzeAttributes(ctx context.Context, imagePath string) services.AttributeResult {
	if e.analyzer == nil {
		return services.AttributeResult{Success: false, Error: services.ErrExtractorDisabled.Error(), Err: services.ErrExtractorDisabled}
	}

	start := time.Now()
	analysis, err := e.analyzer.Analyze(ctx, imagePath)
	e.metrics.ObserveExtraction("analyze", err == nil, time.Since(start))
	if err != nil {
		logger.FaceError("analyze_failed", "Attribute analysis failed", err, map[string]interface{}{
			"image": imagePath,
		})
		err = classifyAnalyzerError(err)
		return services.AttributeResult{Success: false, Error: err.Error(), Err: err}
	}

	return services.AttributeResult{
		Success: true,
		Age:     analysis.Age,
		Gender:  analysis.Gender,
		Race:    analysis.Race,
		Emotion: analysis.Emotion,
	}
}

// ExtractEmbedding returns the face embedding for the configured model.
// Embeddings are cached by image content so repeated scans do not hit the service.
func (e *SignatureExtractorImpl) ExtractEmbedding(ctx context.Context, imagePath string) services.EmbeddingResult {
	if e.analyzer == nil {
		return services.EmbeddingResult{
			Success: false,
			Model:   e.model,
			Error:   services.ErrExtractorDisabled.Error(),
			Err:     services.ErrExtractorDisabled,
		}
	}

	digest, err := fileDigest(imagePath)
	if err != nil {
		return services.EmbeddingResult{Success: false, Model: e.model, Error: err.Error(), Err: err}
	}

	if cached, ok := e.cachedEmbedding(ctx, digest); ok {
		return services.EmbeddingResult{Success: true, Embedding: cached, Model: e.model}
	}

	start := time.Now()
	embedding, err := e.analyzer.Represent(ctx, imagePath, e.model)
	if err == nil && len(embedding) == 0 {
		err = fmt.Errorf("empty embedding returned: %w", services.ErrNoUsableFace)
	}
	e.metrics.ObserveExtraction("represent", err == nil, time.Since(start))
	if err != nil {
		logger.FaceError("represent_failed", "Embedding extraction failed", err, map[string]interface{}{
			"image": imagePath,
			"model": e.model,
		})
		err = classifyAnalyzerError(err)
		return services.EmbeddingResult{Success: false, Model: e.model, Error: err.Error(), Err: err}
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, e.model, digest, embedding); err != nil {
			e.metrics.IncEmbeddingCache("error")
			logger.Warn(logger.CategoryFace, "cache_set_failed", "Failed to cache embedding", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	return services.EmbeddingResult{Success: true, Embedding: embedding, Model: e.model}
}

func (e *SignatureExtractorImpl) cachedEmbedding(ctx context.Context, digest string) ([]float32, bool) {
	if e.cache == nil {
		return nil, false
	}
	embedding, ok, err := e.cache.Get(ctx, e.model, digest)
	if err != nil {
		e.metrics.IncEmbeddingCache("error")
		logger.Warn(logger.CategoryFace, "cache_get_failed", "Failed to read cached embedding", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, false
	}
	if !ok {
		e.metrics.IncEmbeddingCache("miss")
		return nil, false
	}
	e.metrics.IncEmbeddingCache("hit")
	return embedding, true
}

// classifyAnalyzerError keeps "no face" failures as they are and marks everything
// else as a collaborator failure
func classifyAnalyzerError(err error) error {
	if errors.Is(err, services.ErrNoUsableFace) || errors.Is(err, services.ErrExtractorFailed) {
		return err
	}
	return fmt.Errorf("%w: %v", services.ErrExtractorFailed, err)
}

func fileDigest(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Validate checks existence, format and minimum size from the image header only
func (e *SignatureExtractorImpl) Validate(imagePath string) (bool, string) {
	info, err := os.Stat(imagePath)
	if err != nil || info.IsDir() {
		return false, "Image file not found"
	}

	file, err := os.Open(imagePath)
	if err != nil {
		return false, "Image validation error: " + err.Error()
	}
	defer file.Close()

	cfg, format, err := image.DecodeConfig(file)
	if err != nil {
		return false, "Image validation error: " + err.Error()
	}

	if format != "jpeg" && format != "png" {
		return false, "Invalid image format. Use JPEG or PNG"
	}

	if cfg.Width < minImageSide || cfg.Height < minImageSide {
		return false, "Image too small. Minimum 100x100 pixels required"
	}

	return true, "Image is valid"
}
