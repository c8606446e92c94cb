package service

import (
	"context"
	"fmt"
	"image"

	"github.com/saturnino-fabrica-de-software/facemark/internal/domain"
	"github.com/saturnino-fabrica-de-software/facemark/internal/imaging"
	"github.com/saturnino-fabrica-de-software/facemark/internal/model"
	"github.com/saturnino-fabrica-de-software/facemark/internal/provider"
)

type CapabilitySource interface {
	Capabilities() (*provider.Capabilities, model.State)
}

type Renderer interface {
	Render(img image.Image, result *domain.DetectionResult) (string, error)
}

type LandmarkService struct {
	source   CapabilitySource
	renderer Renderer
}

func NewLandmarkService(source CapabilitySource, renderer Renderer) *LandmarkService {
	return &LandmarkService{
		source:   source,
		renderer: renderer,
	}
}

// Detect finds every face in img and its 68 landmarks. img is not modified.
func (s *LandmarkService) Detect(ctx context.Context, img image.Image) (*domain.DetectionResult, error) {
	caps, state := s.source.Capabilities()
	if caps == nil {
		if state == model.StateFailed {
			return nil, domain.ErrModelUnavailable
		}
		return nil, domain.ErrNotReady
	}

	gray := imaging.ToGray(img)

	regions, err := caps.Locator.LocateFaces(ctx, gray)
	if err != nil {
		return nil, domain.ErrInternal.WithError(fmt.Errorf("locate faces: %w", err))
	}
	if len(regions) == 0 {
		return nil, domain.ErrNoFaceDetected
	}

	result := &domain.DetectionResult{Faces: make([]domain.FaceLandmarks, 0, len(regions))}
	for i, region := range regions {
		points, err := caps.Predictor.PredictLandmarks(ctx, gray, region)
		if err != nil {
			return nil, domain.ErrInternal.WithError(fmt.Errorf("predict landmarks for face %d: %w", i, err))
		}
		if len(points) != domain.LandmarkCount {
			return nil, domain.ErrInternal.WithError(fmt.Errorf("face %d: predictor returned %d points, want %d", i, len(points), domain.LandmarkCount))
		}
		result.Faces = append(result.Faces, domain.FaceLandmarks{Face: region, Landmarks: points})
	}

	return result, nil
}

// Process runs Detect and renders the markers onto a copy of img.
func (s *LandmarkService) Process(ctx context.Context, img image.Image) (*domain.ProcessResult, error) {
	result, err := s.Detect(ctx, img)
	if err != nil {
		return nil, err
	}

	encoded, err := s.renderer.Render(img, result)
	if err != nil {
		return nil, domain.ErrInternal.WithError(fmt.Errorf("render: %w", err))
	}

	return &domain.ProcessResult{
		Image:     encoded,
		Landmarks: result.Faces,
	}, nil
}
