package face

import (
	"context"
	"fmt"

	"github.com/saturnino-fabrica-de-software/facemark/internal/config"
	"github.com/saturnino-fabrica-de-software/facemark/internal/model"
	"github.com/saturnino-fabrica-de-software/facemark/internal/provider"
	"github.com/saturnino-fabrica-de-software/facemark/internal/provider/dlib"
	"github.com/saturnino-fabrica-de-software/facemark/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/facemark/internal/provider/pigo"
	"github.com/saturnino-fabrica-de-software/facemark/internal/provider/rekognition"
)

// LocatorType defines supported face locator implementations
type LocatorType string

const (
	// LocatorTypePigo is the local pigo cascade (default)
	LocatorTypePigo LocatorType = "pigo"
	// LocatorTypeRekognition calls AWS Rekognition DetectFaces
	LocatorTypeRekognition LocatorType = "rekognition"
	// LocatorTypeMock reports synthetic faces, for development without a detector
	LocatorTypeMock LocatorType = "mock"
)

// Assets lists the files the pipeline needs on disk. Only the landmark model
// is provisioned; the pigo cascade is compiled in.
func Assets(cfg *config.Config) []model.Asset {
	return []model.Asset{{
		Name:  "landmark model",
		Path:  cfg.ModelPath,
		URL:   cfg.ModelURL,
		Bzip2: true,
	}}
}

// NewLoader returns the model.Loader that builds the configured capabilities
// from the provisioned assets.
func NewLoader(cfg *config.Config) model.Loader {
	return func(ctx context.Context) (*provider.Capabilities, error) {
		predictor, err := dlib.Load(cfg.ModelPath)
		if err != nil {
			return nil, err
		}

		locator, err := NewFaceLocator(ctx, cfg)
		if err != nil {
			return nil, err
		}

		return &provider.Capabilities{Locator: locator, Predictor: predictor}, nil
	}
}

// NewFaceLocator creates a FaceLocator based on configuration
//
// Environment variables:
//   - FACE_LOCATOR: "pigo", "rekognition" or "mock" (default: "pigo")
//   - FACE_CASCADE_PATH: local cascade used instead of the embedded one
//   - FACE_MIN_SIZE, FACE_MAX_SIZE, FACE_SCORE_THRESHOLD: pigo scan tuning
//   - AWS_REGION: AWS region for Rekognition (default: "us-east-1")
func NewFaceLocator(ctx context.Context, cfg *config.Config) (provider.FaceLocator, error) {
	switch LocatorType(cfg.FaceLocator) {
	case LocatorTypePigo, "":
		pcfg := pigo.DefaultConfig()
		if cfg.FaceMinSize > 0 {
			pcfg.MinSize = cfg.FaceMinSize
		}
		if cfg.FaceMaxSize > 0 {
			pcfg.MaxSize = cfg.FaceMaxSize
		}
		pcfg.ScoreThreshold = cfg.FaceScoreThreshold

		var (
			locator *pigo.Locator
			err     error
		)
		if cfg.FaceCascadePath != "" {
			locator, err = pigo.Load(cfg.FaceCascadePath, pcfg)
		} else {
			locator, err = pigo.Default(pcfg)
		}
		if err != nil {
			return nil, fmt.Errorf("create pigo locator: %w", err)
		}
		return locator, nil

	case LocatorTypeRekognition:
		rcfg := rekognition.DefaultConfig()
		if cfg.AWSRegion != "" {
			rcfg.Region = cfg.AWSRegion
		}
		locator, err := rekognition.NewLocatorFromConfig(ctx, rcfg)
		if err != nil {
			return nil, fmt.Errorf("create rekognition locator: %w", err)
		}
		return locator, nil

	case LocatorTypeMock:
		return &mock.Locator{Faces: 1}, nil

	default:
		return nil, fmt.Errorf("unknown face locator: %s (supported: %s, %s, %s)",
			cfg.FaceLocator, LocatorTypePigo, LocatorTypeRekognition, LocatorTypeMock)
	}
}
