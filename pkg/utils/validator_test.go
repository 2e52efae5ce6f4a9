package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Name string `validate:"max=5"`
	Age  *int   `validate:"omitempty,min=0,max=150"`
	Code string `validate:"omitempty,number"`
}

func TestValidateStruct(t *testing.T) {
	assert.NoError(t, ValidateStruct(sample{Name: "ok"}))

	old := 200
	err := ValidateStruct(sample{Name: strings.Repeat("x", 6), Age: &old, Code: "1a"})
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "name must be at most 5")
		assert.Contains(t, err.Error(), "age must be at most 150")
		assert.Contains(t, err.Error(), "code must be a whole number")
	}
}
