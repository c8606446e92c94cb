// Package rekognition locates faces with the AWS Rekognition DetectFaces API.
package rekognition

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/disintegration/imaging"

	"github.com/saturnino-fabrica-de-software/facemark/internal/domain"
	"github.com/saturnino-fabrica-de-software/facemark/internal/provider"
)

// maxImageSize is the maximum inline image size accepted by DetectFaces (5MB)
const maxImageSize = 5 * 1024 * 1024

// Locator implements provider.FaceLocator on top of DetectFaces
type Locator struct {
	api DetectFacesAPI
	cfg Config
}

// Ensure Locator implements provider.FaceLocator at compile time
var _ provider.FaceLocator = (*Locator)(nil)

// NewLocator wraps an existing API client
func NewLocator(api DetectFacesAPI, cfg Config) *Locator {
	return &Locator{api: api, cfg: cfg}
}

// NewLocatorFromConfig builds the AWS client and the locator in one step
func NewLocatorFromConfig(ctx context.Context, cfg Config) (*Locator, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create rekognition client: %w", err)
	}
	return NewLocator(client, cfg), nil
}

// LocateFaces uploads img as JPEG and converts the returned bounding-box
// ratios into pixel regions of img
func (l *Locator) LocateFaces(ctx context.Context, img *image.Gray) ([]domain.FaceRegion, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, fmt.Errorf("encode image for rekognition: %w", err)
	}
	if buf.Len() > maxImageSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidImage, buf.Len(), maxImageSize)
	}

	output, err := l.api.DetectFaces(ctx, &rekognition.DetectFacesInput{
		Image:      &types.Image{Bytes: buf.Bytes()},
		Attributes: []types.Attribute{types.AttributeDefault},
	})
	if err != nil {
		return nil, parseDetectError(err)
	}

	return l.regions(output.FaceDetails, img.Bounds()), nil
}

func (l *Locator) regions(details []types.FaceDetail, bounds image.Rectangle) []domain.FaceRegion {
	w, h := float32(bounds.Dx()), float32(bounds.Dy())

	out := make([]domain.FaceRegion, 0, len(details))
	for _, d := range details {
		box := d.BoundingBox
		if box == nil || box.Left == nil || box.Top == nil || box.Width == nil || box.Height == nil {
			continue
		}
		if d.Confidence != nil && aws.ToFloat32(d.Confidence) < l.cfg.MinConfidence {
			continue
		}

		left, top := aws.ToFloat32(box.Left), aws.ToFloat32(box.Top)
		r := image.Rect(
			int(left*w),
			int(top*h),
			int((left+aws.ToFloat32(box.Width))*w),
			int((top+aws.ToFloat32(box.Height))*h),
		).Add(bounds.Min).Intersect(bounds)
		if r.Empty() {
			continue
		}
		out = append(out, domain.RegionFromRect(r))
	}
	return out
}
