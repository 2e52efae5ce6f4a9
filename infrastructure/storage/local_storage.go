package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var (
	ErrNoFilename          = errors.New("no filename supplied")
	ErrExtensionNotAllowed = errors.New("file extension not allowed")
	ErrFileTooLarge        = errors.New("file exceeds the maximum upload size")
	ErrOutsideStorage      = errors.New("path is outside the upload directory")
)

type LocalStorageConfig struct {
	Dir               string
	TempDir           string
	MaxBytes          int64
	AllowedExtensions []string
}

// LocalStorage keeps uploaded record images and temporary query images on disk
type LocalStorage struct {
	dir      string
	tempDir  string
	maxBytes int64
	allowed  map[string]bool
	now      func() time.Time
}

func NewLocalStorage(config LocalStorageConfig) (*LocalStorage, error) {
	for _, dir := range []string{config.Dir, config.TempDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create upload directory %s: %w", dir, err)
		}
	}

	allowed := make(map[string]bool, len(config.AllowedExtensions))
	for _, ext := range config.AllowedExtensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}

	return &LocalStorage{
		dir:      filepath.Clean(config.Dir),
		tempDir:  filepath.Clean(config.TempDir),
		maxBytes: config.MaxBytes,
		allowed:  allowed,
		now:      time.Now,
	}, nil
}

func (s *LocalStorage) Dir() string {
	return s.dir
}

func (s *LocalStorage) MaxBytes() int64 {
	return s.maxBytes
}

// AllowedFile reports whether the filename carries an allowed extension
func (s *LocalStorage) AllowedFile(filename string) bool {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 || idx == len(filename)-1 {
		return false
	}
	return s.allowed[strings.ToLower(filename[idx+1:])]
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SanitizeFilename strips directories and anything but ASCII letters, digits, dot,
// dash and underscore. Leading dots are removed so the result is never hidden.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = filepath.Base(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	name = strings.TrimLeft(name, "._")
	return name
}

// storedName returns YYYYMMDD_HHMMSS_<sanitized>
func (s *LocalStorage) storedName(filename string) (string, error) {
	if strings.TrimSpace(filename) == "" {
		return "", ErrNoFilename
	}
	if !s.AllowedFile(filename) {
		return "", fmt.Errorf("%w: %s", ErrExtensionNotAllowed, filename)
	}
	clean := SanitizeFilename(filename)
	if clean == "" || !s.AllowedFile(clean) {
		clean = "upload" + strings.ToLower(filepath.Ext(filename))
	}
	return s.now().Format("20060102_150405") + "_" + clean, nil
}

// write copies at most maxBytes from r into path; larger bodies are removed and rejected
func (s *LocalStorage) write(path string, r io.Reader) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	limit := s.maxBytes
	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}

	written, err := io.Copy(file, src)
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if limit > 0 && written > limit {
		os.Remove(path)
		return ErrFileTooLarge
	}
	return nil
}

// Save stores an uploaded record image and returns its path
func (s *LocalStorage) Save(r io.Reader, filename string) (string, error) {
	name, err := s.storedName(filename)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, name)
	// Two uploads of the same name within one second
	for i := 1; fileExists(path); i++ {
		path = filepath.Join(s.dir, fmt.Sprintf("%s_%d%s", strings.TrimSuffix(name, filepath.Ext(name)), i, filepath.Ext(name)))
	}

	if err := s.write(path, r); err != nil {
		return "", err
	}
	return path, nil
}

// SaveTemp stores a query image in the temp directory. The returned cleanup
// removes it and is safe to call more than once.
func (s *LocalStorage) SaveTemp(r io.Reader, filename string) (string, func(), error) {
	if strings.TrimSpace(filename) == "" {
		return "", func() {}, ErrNoFilename
	}
	if !s.AllowedFile(filename) {
		return "", func() {}, fmt.Errorf("%w: %s", ErrExtensionNotAllowed, filename)
	}

	file, err := os.CreateTemp(s.tempDir, "query_*"+strings.ToLower(filepath.Ext(filename)))
	if err != nil {
		return "", func() {}, fmt.Errorf("failed to create temp file: %w", err)
	}
	path := file.Name()
	file.Close()
	os.Remove(path)

	if err := s.write(path, r); err != nil {
		return "", func() {}, err
	}

	cleanup := func() {
		_ = os.Remove(path)
	}
	return path, cleanup, nil
}

// Remove deletes a stored image. Missing files are not an error.
func (s *LocalStorage) Remove(path string) error {
	if path == "" {
		return nil
	}
	if !s.contains(path) {
		return fmt.Errorf("%w: %s", ErrOutsideStorage, path)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove file: %w", err)
	}
	return nil
}

func (s *LocalStorage) contains(path string) bool {
	rel, err := filepath.Rel(s.dir, filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// SweepTemp removes temp artifacts older than maxAge left behind by crashed requests
func (s *LocalStorage) SweepTemp(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.tempDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read temp directory: %w", err)
	}

	cutoff := s.now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.tempDir, entry.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
