package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T, maxBytes int64) *LocalStorage {
	t.Helper()
	root := t.TempDir()
	s, err := NewLocalStorage(LocalStorageConfig{
		Dir:               filepath.Join(root, "uploads"),
		TempDir:           filepath.Join(root, "uploads", "tmp"),
		MaxBytes:          maxBytes,
		AllowedExtensions: []string{"png", "jpg", "jpeg"},
	})
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC) }
	return s
}

func TestAllowedFile(t *testing.T) {
	s := newTestStorage(t, 1024)

	tests := []struct {
		name     string
		filename string
		want     bool
	}{
		{"png", "face.png", true},
		{"upper case jpg", "FACE.JPG", true},
		{"jpeg", "a.b.jpeg", true},
		{"gif not allowed", "anim.gif", false},
		{"bmp not allowed", "face.bmp", false},
		{"no extension", "face", false},
		{"trailing dot", "face.", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.AllowedFile(tt.filename))
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "passwd.png", SanitizeFilename("../../etc/passwd.png"))
	assert.Equal(t, "my_photo.jpg", SanitizeFilename("my photo.jpg"))
	assert.Equal(t, "evil.png", SanitizeFilename(`C:\temp\evil.png`))
	assert.Equal(t, "hidden.png", SanitizeFilename(".hidden.png"))
}

func TestSaveUsesTimestampPrefix(t *testing.T) {
	s := newTestStorage(t, 1024)

	path, err := s.Save(strings.NewReader("image-bytes"), "../suspect one.png")
	require.NoError(t, err)

	assert.Equal(t, "20240309_140507_suspect_one.png", filepath.Base(path))
	assert.Equal(t, s.Dir(), filepath.Dir(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "image-bytes", string(data))
}

func TestSaveSameSecondDoesNotOverwrite(t *testing.T) {
	s := newTestStorage(t, 1024)

	first, err := s.Save(strings.NewReader("one"), "face.png")
	require.NoError(t, err)
	second, err := s.Save(strings.NewReader("two"), "face.png")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	data, _ := os.ReadFile(first)
	assert.Equal(t, "one", string(data))
}

func TestSaveRejectsDisallowedExtension(t *testing.T) {
	s := newTestStorage(t, 1024)

	_, err := s.Save(strings.NewReader("x"), "script.exe")
	assert.ErrorIs(t, err, ErrExtensionNotAllowed)

	_, err = s.Save(strings.NewReader("x"), "")
	assert.ErrorIs(t, err, ErrNoFilename)
}

func TestSaveRejectsOversizedBody(t *testing.T) {
	s := newTestStorage(t, 8)

	_, err := s.Save(bytes.NewReader(make([]byte, 9)), "big.png")
	assert.ErrorIs(t, err, ErrFileTooLarge)

	entries, _ := os.ReadDir(s.Dir())
	for _, e := range entries {
		assert.True(t, e.IsDir(), "oversized upload left %s behind", e.Name())
	}

	_, err = s.Save(bytes.NewReader(make([]byte, 8)), "exact.png")
	assert.NoError(t, err)
}

func TestSaveTempCleanup(t *testing.T) {
	s := newTestStorage(t, 1024)

	path, cleanup, err := s.SaveTemp(strings.NewReader("query"), "query.jpg")
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, ".jpg", filepath.Ext(path))

	cleanup()
	assert.NoFileExists(t, path)
	// second call is harmless
	cleanup()
}

func TestSaveTempRejectsDisallowedExtension(t *testing.T) {
	s := newTestStorage(t, 1024)

	_, cleanup, err := s.SaveTemp(strings.NewReader("x"), "query.txt")
	assert.ErrorIs(t, err, ErrExtensionNotAllowed)
	assert.NotNil(t, cleanup)
}

func TestRemove(t *testing.T) {
	s := newTestStorage(t, 1024)

	path, err := s.Save(strings.NewReader("x"), "face.png")
	require.NoError(t, err)

	require.NoError(t, s.Remove(path))
	assert.NoFileExists(t, path)

	// already gone
	assert.NoError(t, s.Remove(path))
	assert.NoError(t, s.Remove(""))

	outside := filepath.Join(t.TempDir(), "other.png")
	assert.ErrorIs(t, s.Remove(outside), ErrOutsideStorage)
}

func TestSweepTemp(t *testing.T) {
	s := newTestStorage(t, 1024)
	s.now = time.Now

	oldPath, _, err := s.SaveTemp(strings.NewReader("old"), "old.png")
	require.NoError(t, err)
	freshPath, _, err := s.SaveTemp(strings.NewReader("fresh"), "fresh.png")
	require.NoError(t, err)

	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(oldPath, past, past))

	removed, err := s.SweepTemp(30 * time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, oldPath)
	assert.FileExists(t, freshPath)
}
