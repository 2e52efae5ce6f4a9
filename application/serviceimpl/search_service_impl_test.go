package serviceimpl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"criminal-registry/domain/models"
	"criminal-registry/domain/repositories"
	"criminal-registry/domain/services"
)

// seedWithEmbedding inserts a record whose stored signature sits at distance d from (1, 0)
func (f *fixture) seedWithEmbedding(t *testing.T, name string, d float64) *models.Record {
	t.Helper()
	vec := pgvector.NewVector(vectorAtDistance(d))
	model := testModel
	ref := "static/uploads/" + name + ".png"
	r := &models.Record{Name: strPtr(name), ImageRef: &ref, Embedding: &vec, EmbeddingModel: &model}
	require.NoError(t, f.repo.Create(context.Background(), r))
	return r
}

// queryImage writes a valid query image whose embedding is (1, 0)
func (f *fixture) queryImage(t *testing.T) string {
	t.Helper()
	path := writePNG(t, f.dir, "query.png", 160, 160)
	f.analyzer.SetEmbedding(path, []float32{1, 0})
	return path
}

func matchNames(result *services.ImageSearchResult) []string {
	names := make([]string, 0, len(result.Matches))
	for _, m := range result.Matches {
		names = append(names, *m.Record.Name)
	}
	return names
}

func TestSearchByTextSubset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seed := []*models.Record{
		{Name: strPtr("John Smith"), CrimeType: strPtr("Theft"), Address: strPtr("12 Baker St")},
		{Name: strPtr("Jane Doe"), CrimeType: strPtr("Fraud"), Address: strPtr("Smithfield Road")},
		{Name: strPtr("Bob"), CrimeType: strPtr("Assault")},
		{Description: strPtr("smith mentioned only in the description")},
	}
	for _, r := range seed {
		require.NoError(t, f.repo.Create(ctx, r))
	}

	results, err := f.search.SearchByText(ctx, "SMITH")
	require.NoError(t, err)
	require.Len(t, results, 2)

	for _, r := range results {
		hit := false
		for _, field := range []*string{r.Name, r.CrimeType, r.Address} {
			if field != nil && strings.Contains(strings.ToLower(*field), "smith") {
				hit = true
			}
		}
		assert.True(t, hit, "record %s does not contain the query", r.ID)
	}

	all, err := f.search.SearchByText(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, len(seed))

	none, err := f.search.SearchByText(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSearchByTextStoreUnavailable(t *testing.T) {
	f := newFixture(t)
	f.repo.ListError = fmt.Errorf("%w: connection refused", repositories.ErrStoreUnavailable)

	_, err := f.search.SearchByText(context.Background(), "x")
	assert.ErrorIs(t, err, repositories.ErrStoreUnavailable)
}

func TestSearchByImageRanking(t *testing.T) {
	f := newFixture(t)
	query := f.queryImage(t)

	f.seedWithEmbedding(t, "far", 0.35)
	f.seedWithEmbedding(t, "closest", 0.05)
	f.seedWithEmbedding(t, "stranger", 0.90)
	f.seedWithEmbedding(t, "close", 0.10)

	result, err := f.search.SearchByImage(context.Background(), query)
	require.NoError(t, err)

	assert.Equal(t, []string{"closest", "close", "far"}, matchNames(result))
	assert.Equal(t, 3, result.Count)
	assert.Equal(t, 4, result.Scanned)
	assert.Equal(t, 0.40, result.Threshold)

	expected := []float64{0.05, 0.10, 0.35}
	for i, m := range result.Matches {
		assert.InDelta(t, expected[i], m.Distance, 1e-5)
		assert.InDelta(t, (1-expected[i])*100, m.Confidence, 1e-3)
		assert.True(t, m.IsMatch)
	}

	// stored signatures are reused; only the query hits the analyzer
	assert.Equal(t, int32(1), f.analyzer.RepresentCalls.Load())
}

func TestSearchByImageTiesKeepStoreOrder(t *testing.T) {
	f := newFixture(t)
	query := f.queryImage(t)

	f.seedWithEmbedding(t, "first", 0.2)
	f.seedWithEmbedding(t, "second", 0.2)
	f.seedWithEmbedding(t, "third", 0.2)

	result, err := f.search.SearchByImage(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, matchNames(result))
}

func TestSearchByImageSkipsRecordsWithoutImage(t *testing.T) {
	f := newFixture(t)
	query := f.queryImage(t)

	require.NoError(t, f.repo.Create(context.Background(), &models.Record{Name: strPtr("no photo")}))
	f.seedWithEmbedding(t, "with photo", 0.1)

	result, err := f.search.SearchByImage(context.Background(), query)
	require.NoError(t, err)

	assert.Equal(t, []string{"with photo"}, matchNames(result))
	assert.Equal(t, 1, result.Unmatchable)
	assert.Equal(t, 1, result.Scanned)
	assert.Equal(t, 0, result.Skipped)
}

func TestSearchByImageExtractsCandidatesWithoutStoredSignature(t *testing.T) {
	f := newFixture(t)
	query := f.queryImage(t)
	ctx := context.Background()

	good := writePNG(t, f.dir, "good.png", 110, 110)
	f.analyzer.SetEmbedding(good, vectorAtDistance(0.2))
	broken := writePNG(t, f.dir, "broken.png", 111, 111)

	require.NoError(t, f.repo.Create(ctx, &models.Record{Name: strPtr("good"), ImageRef: &good}))
	require.NoError(t, f.repo.Create(ctx, &models.Record{Name: strPtr("broken"), ImageRef: &broken}))

	// signature from another model is not reused
	vec := pgvector.NewVector([]float32{1, 0})
	otherModel := "Facenet"
	require.NoError(t, f.repo.Create(ctx, &models.Record{Name: strPtr("other model"), ImageRef: &broken, Embedding: &vec, EmbeddingModel: &otherModel}))

	result, err := f.search.SearchByImage(ctx, query)
	require.NoError(t, err)

	assert.Equal(t, []string{"good"}, matchNames(result))
	assert.Equal(t, 1, result.Scanned)
	assert.Equal(t, 2, result.Skipped)
}

func TestSearchByImageRejectsSmallImageBeforeAnalysis(t *testing.T) {
	f := newFixture(t)
	f.seedWithEmbedding(t, "someone", 0.1)
	small := writePNG(t, f.dir, "small.png", 50, 50)
	f.analyzer.SetEmbedding(small, []float32{1, 0})

	result, err := f.search.SearchByImage(context.Background(), small)
	assert.Nil(t, result)

	var ve *services.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Reason, "too small")

	assert.Zero(t, f.analyzer.RepresentCalls.Load())
	assert.Zero(t, f.analyzer.AnalyzeCalls.Load())
}

func TestSearchByImageNoUsableFace(t *testing.T) {
	f := newFixture(t)
	path := writePNG(t, f.dir, "blank.png", 200, 200)

	_, err := f.search.SearchByImage(context.Background(), path)
	assert.ErrorIs(t, err, services.ErrNoUsableFace)
	assert.True(t, services.IsValidationError(err))
}

func TestSearchAfterImageReplacedUsesNewImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	query := f.queryImage(t)
	seeded := f.seedWithEmbedding(t, "someone", 0.05)

	replacement := writePNG(t, f.dir, "replacement.png", 160, 160)
	f.analyzer.SetEmbedding(replacement, []float32{0, 1})

	updated, err := f.records.Update(ctx, seeded.ID.String(), repositories.RecordUpdate{ImageRef: &replacement})
	require.NoError(t, err)
	assert.Nil(t, updated.Embedding)
	assert.Nil(t, updated.EmbeddingModel)

	result, err := f.search.SearchByImage(ctx, query)
	require.NoError(t, err)
	assert.Zero(t, result.Count)
	assert.Equal(t, 1, result.Scanned)
}

func TestSearchByImageExtractorOutage(t *testing.T) {
	f := newFixture(t)
	query := f.queryImage(t)
	f.seedWithEmbedding(t, "someone", 0.1)
	f.analyzer.RepresentError = errors.New("face API error (status 502): bad gateway")

	_, err := f.search.SearchByImage(context.Background(), query)
	assert.ErrorIs(t, err, services.ErrExtractorFailed)
	assert.False(t, services.IsValidationError(err))
	assert.Empty(t, f.events.Events())
}

func TestSearchByImageExtractorDisabled(t *testing.T) {
	f := newFixture(t)
	f.extractor = NewSignatureExtractor(nil, nil, testModel, nil)
	f.search = NewSearchService(f.repo, f.extractor, NewMatcher(f.extractor, 0.40), f.images, f.events, nil, 4)
	query := writePNG(t, f.dir, "query.png", 160, 160)

	_, err := f.search.SearchByImage(context.Background(), query)
	assert.ErrorIs(t, err, services.ErrExtractorDisabled)
	assert.False(t, services.IsValidationError(err))
}

func TestSearchByImageStoreUnavailable(t *testing.T) {
	f := newFixture(t)
	query := f.queryImage(t)
	f.repo.ListError = fmt.Errorf("%w: timeout", repositories.ErrStoreUnavailable)

	_, err := f.search.SearchByImage(context.Background(), query)
	assert.ErrorIs(t, err, repositories.ErrStoreUnavailable)
	assert.False(t, services.IsValidationError(err))
}

func TestSearchByImagePublishesEvent(t *testing.T) {
	f := newFixture(t)
	query := f.queryImage(t)
	f.seedWithEmbedding(t, "someone", 0.1)

	_, err := f.search.SearchByImage(context.Background(), query)
	require.NoError(t, err)

	events := f.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, services.EventSearchCompleted, events[0].Type)
	assert.Equal(t, 1, events[0].Data["matches"])
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func TestSearchByUpload(t *testing.T) {
	f := newFixture(t)
	f.seedWithEmbedding(t, "someone", 0.1)
	f.seedWithEmbedding(t, "stranger", 0.8)
	f.analyzer.DefaultEmbedding = []float32{1, 0}

	upload := readFile(t, writePNG(t, t.TempDir(), "upload.png", 140, 140))

	result, err := f.search.SearchByUpload(context.Background(), bytes.NewReader(upload), "upload.png")
	require.NoError(t, err)
	assert.Equal(t, []string{"someone"}, matchNames(result))

	temps := f.images.TempPaths()
	require.Len(t, temps, 1)
	assert.NoFileExists(t, temps[0])
}

func TestSearchByUploadRemovesTempArtifactOnFailure(t *testing.T) {
	f := newFixture(t)
	f.seedWithEmbedding(t, "someone", 0.1)

	// valid image but no face
	upload := readFile(t, writePNG(t, t.TempDir(), "upload.png", 140, 140))
	_, err := f.search.SearchByUpload(context.Background(), bytes.NewReader(upload), "upload.png")
	assert.ErrorIs(t, err, services.ErrNoUsableFace)

	small := readFile(t, writePNG(t, t.TempDir(), "small.png", 40, 40))
	_, err = f.search.SearchByUpload(context.Background(), bytes.NewReader(small), "small.png")
	assert.True(t, services.IsValidationError(err))

	temps := f.images.TempPaths()
	require.Len(t, temps, 2)
	for _, p := range temps {
		assert.NoFileExists(t, p)
	}
}

func TestSearchByUploadStoreRejection(t *testing.T) {
	f := newFixture(t)
	f.images.SaveError = errors.New("disk full")

	_, err := f.search.SearchByUpload(context.Background(), strings.NewReader("x"), "a.png")
	require.Error(t, err)
	assert.False(t, services.IsValidationError(err))
}

func TestCompareUploads(t *testing.T) {
	f := newFixture(t)
	f.analyzer.DefaultEmbedding = []float32{0.3, 0.7}
	data := readFile(t, writePNG(t, t.TempDir(), "a.png", 120, 120))

	result, err := f.search.CompareUploads(context.Background(),
		bytes.NewReader(data), "a.png",
		bytes.NewReader(data), "b.png")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, result.IsMatch)
	assert.InDelta(t, 0, result.Distance, 1e-6)

	temps := f.images.TempPaths()
	require.Len(t, temps, 2)
	for _, p := range temps {
		assert.NoFileExists(t, p)
	}
}

func TestCompareUploadsRejectsInvalidImage(t *testing.T) {
	f := newFixture(t)
	f.analyzer.DefaultEmbedding = []float32{0.3, 0.7}
	good := readFile(t, writePNG(t, t.TempDir(), "a.png", 120, 120))
	small := readFile(t, writePNG(t, t.TempDir(), "b.png", 60, 60))

	_, err := f.search.CompareUploads(context.Background(),
		bytes.NewReader(good), "a.png",
		bytes.NewReader(small), "b.png")
	var ve *services.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Reason, "too small")
	assert.Zero(t, f.analyzer.RepresentCalls.Load())
}
