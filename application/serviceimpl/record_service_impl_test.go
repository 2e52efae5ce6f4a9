package serviceimpl

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"criminal-registry/domain/repositories"
	"criminal-registry/domain/services"
	"criminal-registry/infrastructure/mock"
)

func TestCreateRecordRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.records.Create(ctx, services.CreateRecordInput{
		Name:           strPtr("John Smith"),
		CrimeType:      strPtr("Theft"),
		Description:    strPtr("Stole a bicycle"),
		Address:        strPtr("12 Baker St"),
		DeclaredAge:    intPtr(42),
		DeclaredGender: strPtr("male"),
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)

	got, err := f.records.GetByID(ctx, created.ID.String())
	require.NoError(t, err)

	assert.Equal(t, "John Smith", *got.Name)
	assert.Equal(t, "Theft", *got.CrimeType)
	assert.Equal(t, "Stole a bicycle", *got.Description)
	assert.Equal(t, "12 Baker St", *got.Address)
	assert.Equal(t, 42, *got.DeclaredAge)
	assert.Equal(t, "male", *got.DeclaredGender)
	assert.False(t, got.CreatedAt.IsZero())
	assert.Nil(t, got.UpdatedAt)

	// no image, no derived fields
	assert.Nil(t, got.ImageRef)
	assert.Nil(t, got.DetectedAge)
	assert.Nil(t, got.DetectedGender)
	assert.Nil(t, got.Embedding)
	assert.Zero(t, f.analyzer.AnalyzeCalls.Load())

	events := f.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, services.EventRecordCreated, events[0].Type)
}

func TestCreateRecordWithImage(t *testing.T) {
	f := newFixture(t)
	f.analyzer.DefaultEmbedding = []float32{0.1, 0.9}
	image := readFile(t, writePNG(t, t.TempDir(), "face.png", 150, 150))

	// no analysis is registered for the stored path
	created, err := f.records.Create(context.Background(), services.CreateRecordInput{
		Name:          strPtr("Jane Doe"),
		Image:         bytes.NewReader(image),
		ImageFilename: "face.png",
	})
	require.NoError(t, err)

	require.True(t, created.HasImage())
	assert.FileExists(t, *created.ImageRef)

	// attributes failed independently, embedding succeeded
	assert.Nil(t, created.DetectedAge)
	require.NotNil(t, created.Embedding)
	assert.Equal(t, []float32{0.1, 0.9}, created.Embedding.Slice())
	assert.Equal(t, testModel, *created.EmbeddingModel)
}

func TestCreateRecordDetectedAttributes(t *testing.T) {
	f := newFixture(t)
	store := &analysisOnSave{images: f.images, analyzer: f.analyzer, analysis: &services.FaceAnalysis{Age: 29, Gender: "Woman", Race: "asian", Emotion: "sad"}}
	f.records = NewRecordService(f.repo, f.extractor, store, f.events, nil)
	f.analyzer.RepresentError = errors.New("model offline")

	image := readFile(t, writePNG(t, t.TempDir(), "face.png", 150, 150))
	created, err := f.records.Create(context.Background(), services.CreateRecordInput{
		Name:          strPtr("Jane Doe"),
		Image:         bytes.NewReader(image),
		ImageFilename: "face.png",
	})
	require.NoError(t, err)

	require.NotNil(t, created.DetectedAge)
	assert.Equal(t, 29, *created.DetectedAge)
	assert.Equal(t, "Woman", *created.DetectedGender)
	assert.Equal(t, "asian", *created.DetectedRace)
	assert.Equal(t, "sad", *created.DetectedEmotion)
	assert.Nil(t, created.Embedding)
}

// analysisOnSave registers a canned analysis for every path it stores
type analysisOnSave struct {
	images   *mock.MockImageStore
	analyzer *mock.MockFaceAnalyzer
	analysis *services.FaceAnalysis
}

func (a *analysisOnSave) Save(r io.Reader, filename string) (string, error) {
	path, err := a.images.Save(r, filename)
	if err == nil {
		a.analyzer.SetAnalysis(path, a.analysis)
	}
	return path, err
}

func (a *analysisOnSave) SaveTemp(r io.Reader, filename string) (string, func(), error) {
	return a.images.SaveTemp(r, filename)
}

func (a *analysisOnSave) Remove(path string) error {
	return a.images.Remove(path)
}

func TestCreateRecordRejectsSmallImage(t *testing.T) {
	f := newFixture(t)
	f.analyzer.DefaultEmbedding = []float32{1, 0}
	small := readFile(t, writePNG(t, t.TempDir(), "small.png", 50, 50))

	_, err := f.records.Create(context.Background(), services.CreateRecordInput{
		Name:          strPtr("Tiny"),
		Image:         bytes.NewReader(small),
		ImageFilename: "small.png",
	})

	var ve *services.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Image too small. Minimum 100x100 pixels required", ve.Reason)

	all, err := f.records.GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)

	removed := f.images.Removed()
	require.Len(t, removed, 1)
	assert.NoFileExists(t, removed[0])
	assert.Zero(t, f.analyzer.RepresentCalls.Load())
}

func TestCreateRecordInvalidAge(t *testing.T) {
	f := newFixture(t)

	_, err := f.records.Create(context.Background(), services.CreateRecordInput{DeclaredAge: intPtr(151)})
	assert.True(t, services.IsValidationError(err))

	_, err = f.records.Create(context.Background(), services.CreateRecordInput{DeclaredAge: intPtr(-1)})
	assert.True(t, services.IsValidationError(err))
}

func TestCreateRecordStoreFailureRemovesImage(t *testing.T) {
	f := newFixture(t)
	f.analyzer.DefaultEmbedding = []float32{1, 0}
	f.repo.CreateError = repositories.ErrStoreUnavailable
	image := readFile(t, writePNG(t, t.TempDir(), "face.png", 150, 150))

	_, err := f.records.Create(context.Background(), services.CreateRecordInput{
		Image:         bytes.NewReader(image),
		ImageFilename: "face.png",
	})
	assert.ErrorIs(t, err, repositories.ErrStoreUnavailable)
	assert.Len(t, f.images.Removed(), 1)
}

func TestUpdateRecordPartial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.records.Create(ctx, services.CreateRecordInput{
		Name:      strPtr("John Smith"),
		CrimeType: strPtr("Theft"),
		Address:   strPtr("12 Baker St"),
	})
	require.NoError(t, err)

	updated, err := f.records.Update(ctx, created.ID.String(), repositories.RecordUpdate{
		CrimeType: strPtr("Burglary"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Burglary", *updated.CrimeType)
	assert.Equal(t, "John Smith", *updated.Name)
	assert.Equal(t, "12 Baker St", *updated.Address)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	require.NotNil(t, updated.UpdatedAt)
}

func TestUpdateRecordErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.records.Create(ctx, services.CreateRecordInput{Name: strPtr("x")})
	require.NoError(t, err)

	_, err = f.records.Update(ctx, created.ID.String(), repositories.RecordUpdate{})
	assert.ErrorIs(t, err, services.ErrEmptyUpdate)

	_, err = f.records.Update(ctx, uuid.NewString(), repositories.RecordUpdate{Name: strPtr("y")})
	assert.ErrorIs(t, err, repositories.ErrRecordNotFound)

	_, err = f.records.Update(ctx, "not-an-id", repositories.RecordUpdate{Name: strPtr("y")})
	assert.ErrorIs(t, err, repositories.ErrInvalidID)

	_, err = f.records.Update(ctx, created.ID.String(), repositories.RecordUpdate{DeclaredAge: intPtr(200)})
	assert.True(t, services.IsValidationError(err))
}

func TestDeleteRecordIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.analyzer.DefaultEmbedding = []float32{1, 0}
	image := readFile(t, writePNG(t, t.TempDir(), "face.png", 150, 150))

	created, err := f.records.Create(ctx, services.CreateRecordInput{
		Name:          strPtr("John"),
		Image:         bytes.NewReader(image),
		ImageFilename: "face.png",
	})
	require.NoError(t, err)
	imagePath := *created.ImageRef

	require.NoError(t, f.records.Delete(ctx, created.ID.String()))
	assert.NoFileExists(t, imagePath)

	err = f.records.Delete(ctx, created.ID.String())
	assert.ErrorIs(t, err, repositories.ErrRecordNotFound)

	_, err = f.records.GetByID(ctx, created.ID.String())
	assert.ErrorIs(t, err, repositories.ErrRecordNotFound)
}

func TestGetByIDInvalidIsDistinctFromNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.records.GetByID(context.Background(), "zzz")
	assert.ErrorIs(t, err, repositories.ErrInvalidID)
	assert.NotErrorIs(t, err, repositories.ErrRecordNotFound)

	_, err = f.records.GetByID(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, repositories.ErrRecordNotFound)
}
