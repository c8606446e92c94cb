// Package render draws landmark markers onto a copy of the source image and
// encodes it for transport.
package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/saturnino-fabrica-de-software/facemark/internal/domain"
)

const (
	DefaultMarkerColor  = "#00ff00"
	DefaultMarkerRadius = 2
	DefaultJPEGQuality  = 95
)

// Renderer is stateless and safe for concurrent use.
type Renderer struct {
	marker  color.NRGBA
	radius  int
	quality int
}

type Option func(*Renderer)

// WithMarkerColor sets the marker color from a "#rrggbb" hex string.
func WithMarkerColor(hex string) Option {
	return func(r *Renderer) {
		if c, err := colorful.Hex(hex); err == nil {
			red, green, blue := c.RGB255()
			r.marker = color.NRGBA{R: red, G: green, B: blue, A: 255}
		}
	}
}

func WithMarkerRadius(radius int) Option {
	return func(r *Renderer) {
		if radius >= 0 {
			r.radius = radius
		}
	}
}

func New(opts ...Option) *Renderer {
	r := &Renderer{radius: DefaultMarkerRadius, quality: DefaultJPEGQuality}
	WithMarkerColor(DefaultMarkerColor)(r)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render returns the base64 (standard alphabet) JPEG of img with a filled
// disc at every landmark of result. img is not modified.
func (r *Renderer) Render(img image.Image, result *domain.DetectionResult) (string, error) {
	canvas := r.Draw(img, result)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, imaging.JPEG, imaging.JPEGQuality(r.quality)); err != nil {
		return "", fmt.Errorf("encode jpeg: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Draw returns an annotated copy of img. The copy's bounds start at the
// origin, so landmark coordinates are shifted by img.Bounds().Min.
func (r *Renderer) Draw(img image.Image, result *domain.DetectionResult) *image.NRGBA {
	canvas := imaging.Clone(img)
	if result == nil {
		return canvas
	}
	offset := img.Bounds().Min
	for _, p := range result.Points() {
		r.disc(canvas, p.X-offset.X, p.Y-offset.Y)
	}
	return canvas
}

func (r *Renderer) disc(canvas *image.NRGBA, cx, cy int) {
	bounds := canvas.Bounds()
	rr := r.radius * r.radius
	for dy := -r.radius; dy <= r.radius; dy++ {
		for dx := -r.radius; dx <= r.radius; dx++ {
			if dx*dx+dy*dy > rr {
				continue
			}
			pt := image.Pt(cx+dx, cy+dy)
			if pt.In(bounds) {
				canvas.SetNRGBA(pt.X, pt.Y, r.marker)
			}
		}
	}
}
