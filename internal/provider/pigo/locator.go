// Package pigo locates faces with the pigo pixel-intensity-comparison
// cascade.
package pigo

import (
	"context"
	"fmt"
	"image"
	"os"

	pigo "github.com/esimov/pigo/core"

	"github.com/saturnino-fabrica-de-software/facemark/internal/domain"
	"github.com/saturnino-fabrica-de-software/facemark/internal/provider"
)

// Config tunes the cascade scan.
type Config struct {
	MinSize        int
	MaxSize        int
	ShiftFactor    float64
	ScaleFactor    float64
	IoUThreshold   float64
	ScoreThreshold float32
}

func DefaultConfig() Config {
	return Config{
		MinSize:        40,
		MaxSize:        1000,
		ShiftFactor:    0.1,
		ScaleFactor:    1.1,
		IoUThreshold:   0.2,
		ScoreThreshold: 5.0,
	}
}

// Locator is safe for concurrent use; the unpacked cascade is read-only.
type Locator struct {
	classifier *pigo.Pigo
	cfg        Config
}

var _ provider.FaceLocator = (*Locator)(nil)

// NewLocator unpacks a facefinder cascade.
func NewLocator(cascade []byte, cfg Config) (l *Locator, err error) {
	// Unpack indexes into the packet without length checks.
	defer func() {
		if r := recover(); r != nil {
			l, err = nil, fmt.Errorf("unpack cascade: malformed data: %v", r)
		}
	}()

	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("unpack cascade: %w", err)
	}
	return &Locator{classifier: classifier, cfg: cfg}, nil
}

// Load reads and unpacks the cascade file at path.
func Load(path string, cfg Config) (*Locator, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cascade: %w", err)
	}
	return NewLocator(b, cfg)
}

func (l *Locator) LocateFaces(ctx context.Context, img *image.Gray) ([]domain.FaceRegion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := img.Bounds()
	params := pigo.CascadeParams{
		MinSize:     l.cfg.MinSize,
		MaxSize:     l.cfg.MaxSize,
		ShiftFactor: l.cfg.ShiftFactor,
		ScaleFactor: l.cfg.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: packed(img),
			Rows:   b.Dy(),
			Cols:   b.Dx(),
			Dim:    b.Dx(),
		},
	}

	dets := l.classifier.RunCascade(params, 0.0)
	dets = l.classifier.ClusterDetections(dets, l.cfg.IoUThreshold)

	return regions(dets, b, l.cfg.ScoreThreshold), nil
}

// packed returns the pixels of img as a contiguous row-major slice.
func packed(img *image.Gray) []uint8 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if img.Stride == w && len(img.Pix) == w*h {
		return img.Pix
	}
	pix := make([]uint8, 0, w*h)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		pix = append(pix, img.Pix[off:off+w]...)
	}
	return pix
}

// regions converts detections with Q above threshold into face boxes in the
// coordinate space of bounds, clipped to it, preserving detector order.
func regions(dets []pigo.Detection, bounds image.Rectangle, threshold float32) []domain.FaceRegion {
	out := make([]domain.FaceRegion, 0, len(dets))
	for _, det := range dets {
		if det.Q < threshold {
			continue
		}
		half := det.Scale / 2
		col := det.Col + bounds.Min.X
		row := det.Row + bounds.Min.Y
		r := image.Rect(col-half, row-half, col+half, row+half).Intersect(bounds)
		if r.Empty() {
			continue
		}
		out = append(out, domain.RegionFromRect(r))
	}
	return out
}
