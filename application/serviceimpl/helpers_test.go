package serviceimpl

import (
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"criminal-registry/domain/services"
	"criminal-registry/infrastructure/mock"
)

const testModel = "VGG-Face"

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	return img
}

func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, testImage(w, h)))
	return path
}

func writeJPEG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, jpeg.Encode(f, testImage(w, h), nil))
	return path
}

func writeGIF(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, gif.Encode(f, testImage(w, h), nil))
	return path
}

// vectorAtDistance returns a 2-d vector whose cosine distance to (1, 0) is d
func vectorAtDistance(d float64) []float32 {
	cos := 1 - d
	return []float32{float32(cos), float32(math.Sqrt(1 - cos*cos))}
}

type fixture struct {
	dir       string
	repo      *mock.MockRecordRepository
	analyzer  *mock.MockFaceAnalyzer
	images    *mock.MockImageStore
	events    *mock.MockPublisher
	extractor services.SignatureExtractor
	matcher   services.Matcher
	search    services.SearchService
	records   services.RecordService
	stats     services.StatisticsService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	f := &fixture{
		dir:      dir,
		repo:     mock.NewMockRecordRepository(),
		analyzer: mock.NewMockFaceAnalyzer(),
		images:   mock.NewMockImageStore(dir),
		events:   &mock.MockPublisher{},
	}
	f.extractor = NewSignatureExtractor(f.analyzer, nil, testModel, nil)
	f.matcher = NewMatcher(f.extractor, 0.40)
	f.search = NewSearchService(f.repo, f.extractor, f.matcher, f.images, f.events, nil, 4)
	f.records = NewRecordService(f.repo, f.extractor, f.images, f.events, nil)
	f.stats = NewStatisticsService(f.repo)
	return f
}
