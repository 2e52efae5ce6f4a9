package services

import (
	"context"
)

// CompareResult is the outcome of comparing two faces
type CompareResult struct {
	Success   bool    `json:"success"`
	IsMatch   bool    `json:"is_match"`
	Distance  float64 `json:"distance"`
	Threshold float64 `json:"threshold"`
	Error     string  `json:"error,omitempty"`
}

// Matcher decides whether two faces belong to the same person.
// Distance is symmetric and a face compared with itself is ~0.
// IsMatch holds iff Distance < Threshold.
type Matcher interface {
	Compare(ctx context.Context, imageA, imageB string) CompareResult
	CompareEmbeddings(a, b []float32) CompareResult
	Threshold() float64
}
