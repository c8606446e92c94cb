package mock

import (
	"context"
	"image"
	"math"

	"github.com/saturnino-fabrica-de-software/facemark/internal/domain"
	"github.com/saturnino-fabrica-de-software/facemark/internal/provider"
)

// Locator reports a fixed number of faces laid out side by side across the
// middle of the image. Zero faces is a valid setting.
type Locator struct {
	Faces int
}

// Predictor places domain.LandmarkCount points on an ellipse inscribed in
// the face region.
type Predictor struct{}

var (
	_ provider.FaceLocator       = (*Locator)(nil)
	_ provider.LandmarkPredictor = (*Predictor)(nil)
)

// New returns a locator that finds one face and the matching predictor.
func New() (*Locator, *Predictor) {
	return &Locator{Faces: 1}, &Predictor{}
}

// LocateFaces divides the image into Faces equal columns and returns the
// central 80% of each.
func (l *Locator) LocateFaces(ctx context.Context, img *image.Gray) ([]domain.FaceRegion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := img.Bounds()
	regions := make([]domain.FaceRegion, 0, l.Faces)
	if l.Faces <= 0 || b.Dx() < 5*l.Faces || b.Dy() < 5 {
		return regions, nil
	}

	colW := b.Dx() / l.Faces
	for i := 0; i < l.Faces; i++ {
		x0 := b.Min.X + i*colW
		regions = append(regions, domain.FaceRegion{
			Left:   x0 + colW/10,
			Top:    b.Min.Y + b.Dy()/10,
			Right:  x0 + colW - colW/10,
			Bottom: b.Max.Y - b.Dy()/10,
		})
	}
	return regions, nil
}

func (p *Predictor) PredictLandmarks(ctx context.Context, img *image.Gray, region domain.FaceRegion) ([]domain.LandmarkPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cx := float64(region.Left+region.Right) / 2
	cy := float64(region.Top+region.Bottom) / 2
	rx := float64(region.Width()) / 2
	ry := float64(region.Height()) / 2

	points := make([]domain.LandmarkPoint, domain.LandmarkCount)
	for i := range points {
		theta := 2 * math.Pi * float64(i) / domain.LandmarkCount
		points[i] = domain.LandmarkPoint{
			X: int(math.Round(cx + rx*math.Cos(theta))),
			Y: int(math.Round(cy + ry*math.Sin(theta))),
		}
	}
	return points, nil
}
