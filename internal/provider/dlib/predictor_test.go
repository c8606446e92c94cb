package dlib

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/facemark/internal/domain"
	"github.com/saturnino-fabrica-de-software/facemark/internal/shape"
)

// meanShape returns a cascade-free model whose landmarks sit on a diagonal
// of the face box.
func meanShape(t *testing.T, parts int) *shape.Predictor {
	t.Helper()
	initial := make([]float32, 2*parts)
	for i := 0; i < parts; i++ {
		v := float32(i) / float32(parts-1)
		initial[2*i] = v
		initial[2*i+1] = v
	}
	p, err := shape.New(initial, nil)
	require.NoError(t, err)
	return p
}

func writeModel(t *testing.T, p *shape.Predictor) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.dat")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, shape.Encode(f, p))
	require.NoError(t, f.Close())
	return path
}

func TestNew_RejectsWrongPartCount(t *testing.T) {
	_, err := New(meanShape(t, 5))
	assert.ErrorIs(t, err, ErrWrongPartCount)
}

func TestLoad(t *testing.T) {
	p, err := Load(writeModel(t, meanShape(t, domain.LandmarkCount)))
	require.NoError(t, err)

	points, err := p.PredictLandmarks(context.Background(), image.NewGray(image.Rect(0, 0, 200, 200)),
		domain.FaceRegion{Left: 10, Top: 10, Right: 77, Bottom: 77})
	require.NoError(t, err)

	require.Len(t, points, domain.LandmarkCount)
	assert.Equal(t, domain.LandmarkPoint{X: 10, Y: 10}, points[0])
	assert.Equal(t, domain.LandmarkPoint{X: 11, Y: 11}, points[1])
	assert.Equal(t, domain.LandmarkPoint{X: 77, Y: 77}, points[67])
}

func TestPredictLandmarks_ClampedToImage(t *testing.T) {
	p, err := New(meanShape(t, domain.LandmarkCount))
	require.NoError(t, err)

	points, err := p.PredictLandmarks(context.Background(), image.NewGray(image.Rect(0, 0, 200, 200)),
		domain.FaceRegion{Left: 150, Top: 150, Right: 250, Bottom: 250})
	require.NoError(t, err)

	assert.Equal(t, domain.LandmarkPoint{X: 150, Y: 150}, points[0])
	assert.Equal(t, domain.LandmarkPoint{X: 199, Y: 199}, points[67])
	for _, pt := range points {
		assert.True(t, image.Pt(pt.X, pt.Y).In(image.Rect(0, 0, 200, 200)), "point %v outside image", pt)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.dat")
	require.NoError(t, os.WriteFile(garbage, []byte("<html>not found</html>"), 0o644))

	_, err := Load(filepath.Join(dir, "missing.dat"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(garbage)
	assert.ErrorIs(t, err, shape.ErrCorrupt)

	_, err = Load(writeModel(t, meanShape(t, 5)))
	assert.ErrorIs(t, err, ErrWrongPartCount)
}
