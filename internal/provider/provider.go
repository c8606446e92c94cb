package provider

import (
	"context"
	"image"

	"github.com/saturnino-fabrica-de-software/facemark/internal/domain"
)

// FaceLocator finds face rectangles in a grayscale image.
type FaceLocator interface {
	// LocateFaces returns zero or more regions in detector order. An empty
	// result is not an error.
	LocateFaces(ctx context.Context, img *image.Gray) ([]domain.FaceRegion, error)
}

// LandmarkPredictor estimates the landmark points of one face.
type LandmarkPredictor interface {
	// PredictLandmarks returns the points of the face inside region, in the
	// model's anatomical order.
	PredictLandmarks(ctx context.Context, img *image.Gray, region domain.FaceRegion) ([]domain.LandmarkPoint, error)
}

// LocatorFunc adapts a function to FaceLocator.
type LocatorFunc func(ctx context.Context, img *image.Gray) ([]domain.FaceRegion, error)

func (f LocatorFunc) LocateFaces(ctx context.Context, img *image.Gray) ([]domain.FaceRegion, error) {
	return f(ctx, img)
}

// PredictorFunc adapts a function to LandmarkPredictor.
type PredictorFunc func(ctx context.Context, img *image.Gray, region domain.FaceRegion) ([]domain.LandmarkPoint, error)

func (f PredictorFunc) PredictLandmarks(ctx context.Context, img *image.Gray, region domain.FaceRegion) ([]domain.LandmarkPoint, error) {
	return f(ctx, img, region)
}

// Capabilities is the loaded pair the landmark engine works with.
type Capabilities struct {
	Locator   FaceLocator
	Predictor LandmarkPredictor
}
