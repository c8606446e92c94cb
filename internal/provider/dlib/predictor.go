// Package dlib predicts facial landmarks with a dlib 68-point shape
// predictor model.
package dlib

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"

	"github.com/saturnino-fabrica-de-software/facemark/internal/domain"
	"github.com/saturnino-fabrica-de-software/facemark/internal/provider"
	"github.com/saturnino-fabrica-de-software/facemark/internal/shape"
)

var ErrWrongPartCount = errors.New("shape predictor has wrong number of parts")

// Predictor is safe for concurrent use.
type Predictor struct {
	model *shape.Predictor
}

var _ provider.LandmarkPredictor = (*Predictor)(nil)

// New wraps a decoded model, which must yield domain.LandmarkCount points.
func New(model *shape.Predictor) (*Predictor, error) {
	if model.Parts() != domain.LandmarkCount {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrWrongPartCount, model.Parts(), domain.LandmarkCount)
	}
	return &Predictor{model: model}, nil
}

// Load decodes the model file at path.
func Load(path string) (*Predictor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open shape predictor: %w", err)
	}
	defer f.Close()

	model, err := shape.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode shape predictor %s: %w", path, err)
	}
	return New(model)
}

func (p *Predictor) PredictLandmarks(ctx context.Context, img *image.Gray, region domain.FaceRegion) ([]domain.LandmarkPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := img.Bounds()
	pts := p.model.Predict(img, region.Rect())
	out := make([]domain.LandmarkPoint, len(pts))
	for i, pt := range pts {
		out[i] = domain.LandmarkPoint{
			X: clamp(pt.X, b.Min.X, b.Max.X-1),
			Y: clamp(pt.Y, b.Min.Y, b.Max.Y-1),
		}
	}
	return out, nil
}

// clamp keeps points the cascade extrapolated past the image edge on it.
func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
