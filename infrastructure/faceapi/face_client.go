package faceapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"

	"criminal-registry/domain/services"
)

// Responses that describe the image wrap services.ErrNoUsableFace; transport and
// server failures wrap services.ErrExtractorFailed
var (
	ErrNoFaceResult   = fmt.Errorf("face API returned no result: %w", services.ErrNoUsableFace)
	ErrEmptyEmbedding = fmt.Errorf("face API returned an empty embedding: %w", services.ErrNoUsableFace)
)

// FaceClient communicates with the facial-analysis service (DeepFace API shape)
type FaceClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// AnalyzeRequest asks for the attribute bundle of one image
type AnalyzeRequest struct {
	ImgPath          string   `json:"img_path"`
	Actions          []string `json:"actions"`
	EnforceDetection bool     `json:"enforce_detection"`
}

// AnalyzeResult is one analyzed face
type AnalyzeResult struct {
	Age             float64 `json:"age"`
	DominantGender  string  `json:"dominant_gender"`
	DominantRace    string  `json:"dominant_race"`
	DominantEmotion string  `json:"dominant_emotion"`
}

// AnalyzeResponse is the response from /analyze
type AnalyzeResponse struct {
	Results []AnalyzeResult `json:"results"`
	Error   string          `json:"error,omitempty"`
}

// RepresentRequest asks for the embedding of one image
type RepresentRequest struct {
	ImgPath          string `json:"img_path"`
	ModelName        string `json:"model_name"`
	EnforceDetection bool   `json:"enforce_detection"`
}

// RepresentResult is one face embedding
type RepresentResult struct {
	Embedding      []float32 `json:"embedding"`
	FaceConfidence float64   `json:"face_confidence"`
}

// RepresentResponse is the response from /represent
type RepresentResponse struct {
	Results []RepresentResult `json:"results"`
	Error   string            `json:"error,omitempty"`
}

// HealthResponse is the response from health check
type HealthResponse struct {
	Status  string `json:"status"`
	Model   string `json:"model"`
	Version string `json:"version"`
}

// NewFaceClient creates a new face API client. requestsPerSec <= 0 disables client side limiting.
func NewFaceClient(baseURL string, timeout time.Duration, requestsPerSec float64) *FaceClient {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if requestsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSec), 1)
	}
	return &FaceClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: limiter,
	}
}

// imageDataURI reads an image file into a base64 data URI so the service needs no shared filesystem
func imageDataURI(imagePath string) (string, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	mimeType := http.DetectContentType(data)
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func (c *FaceClient) post(ctx context.Context, path string, reqBody interface{}, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limit wait: %v", services.ErrExtractorFailed, err)
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: failed to call face API: %v", services.ErrExtractorFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", services.ErrExtractorFailed, err)
	}

	if resp.StatusCode == http.StatusBadRequest {
		return fmt.Errorf("face API rejected image (status %d): %s: %w", resp.StatusCode, string(body), services.ErrNoUsableFace)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: face API error (status %d): %s", services.ErrExtractorFailed, resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: failed to parse response: %v", services.ErrExtractorFailed, err)
	}
	return nil
}

// Analyze returns age, gender, race and emotion for the first face in the image
func (c *FaceClient) Analyze(ctx context.Context, imagePath string) (*services.FaceAnalysis, error) {
	img, err := imageDataURI(imagePath)
	if err != nil {
		return nil, err
	}

	var result AnalyzeResponse
	err = c.post(ctx, "/analyze", AnalyzeRequest{
		ImgPath:          img,
		Actions:          []string{"age", "gender", "race", "emotion"},
		EnforceDetection: false,
	}, &result)
	if err != nil {
		return nil, err
	}

	if result.Error != "" {
		return nil, fmt.Errorf("face analysis failed: %s: %w", result.Error, services.ErrNoUsableFace)
	}
	if len(result.Results) == 0 {
		return nil, ErrNoFaceResult
	}

	face := result.Results[0]
	return &services.FaceAnalysis{
		Age:     int(face.Age + 0.5),
		Gender:  face.DominantGender,
		Race:    face.DominantRace,
		Emotion: face.DominantEmotion,
	}, nil
}

// Represent returns the embedding of the first face for the named model.
// Detection is not enforced so images without a detected face still yield a vector.
func (c *FaceClient) Represent(ctx context.Context, imagePath, model string) ([]float32, error) {
	img, err := imageDataURI(imagePath)
	if err != nil {
		return nil, err
	}

	var result RepresentResponse
	err = c.post(ctx, "/represent", RepresentRequest{
		ImgPath:          img,
		ModelName:        model,
		EnforceDetection: false,
	}, &result)
	if err != nil {
		return nil, err
	}

	if result.Error != "" {
		return nil, fmt.Errorf("face representation failed: %s: %w", result.Error, services.ErrNoUsableFace)
	}
	if len(result.Results) == 0 {
		return nil, ErrNoFaceResult
	}
	if len(result.Results[0].Embedding) == 0 {
		return nil, ErrEmptyEmbedding
	}

	return result.Results[0].Embedding, nil
}

// Health checks if the face API is healthy
func (c *FaceClient) Health(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call health API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("health check failed with status %d", resp.StatusCode)
	}

	result := HealthResponse{Status: "ok"}
	// Some deployments answer with plain text; a 200 is enough
	_ = json.NewDecoder(resp.Body).Decode(&result)

	return &result, nil
}

// IsAvailable checks if the face API is available
func (c *FaceClient) IsAvailable(ctx context.Context) bool {
	_, err := c.Health(ctx)
	return err == nil
}
