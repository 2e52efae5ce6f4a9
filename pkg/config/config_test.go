package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("FACE_MATCH_THRESHOLD", "")
	t.Setenv("UPLOAD_MAX_BYTES", "")
	t.Setenv("UPLOAD_ALLOWED_EXTENSIONS", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 0.40, cfg.FaceAPI.MatchThreshold)
	assert.Equal(t, int64(16*1024*1024), cfg.Upload.MaxBytes)
	assert.Equal(t, []string{"png", "jpg", "jpeg"}, cfg.Upload.AllowedExtensions)
	assert.Equal(t, "VGG-Face", cfg.FaceAPI.Model)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("FACE_MATCH_THRESHOLD", "0.25")
	t.Setenv("SEARCH_MAX_CONCURRENT", "8")
	t.Setenv("UPLOAD_ALLOWED_EXTENSIONS", " PNG, jpg ,,")
	t.Setenv("FACE_API_ENABLED", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 0.25, cfg.FaceAPI.MatchThreshold)
	assert.Equal(t, 8, cfg.Search.MaxConcurrent)
	assert.Equal(t, []string{"png", "jpg"}, cfg.Upload.AllowedExtensions)
	assert.False(t, cfg.FaceAPI.Enabled)
}

func TestGetEnvInt_InvalidFallsBack(t *testing.T) {
	t.Setenv("SOME_INT", "not-a-number")
	assert.Equal(t, 7, getEnvInt("SOME_INT", 7))
}
