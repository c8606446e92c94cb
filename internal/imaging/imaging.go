// Package imaging turns uploaded bytes into images the landmark pipeline can
// work with.
package imaging

import (
	"bytes"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/saturnino-fabrica-de-software/facemark/internal/domain"
)

// Sniff returns the MIME type detected from the content of b, without
// parameters (for example "image/png").
func Sniff(b []byte) string {
	mt := mimetype.Detect(b).String()
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return mt
}

// IsImageType reports whether a declared MIME type names an image.
func IsImageType(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}

// Decode decodes JPEG, PNG, GIF, BMP, TIFF or WebP data and reports the
// format name. Any failure maps to domain.ErrInvalidImage.
func Decode(b []byte) (image.Image, string, error) {
	if len(b) == 0 {
		return nil, "", domain.ErrInvalidImage
	}
	img, format, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, "", domain.ErrInvalidImage.WithError(err)
	}
	if img.Bounds().Empty() {
		return nil, "", domain.ErrInvalidImage
	}
	return img, format, nil
}

// ToGray returns an 8-bit grayscale copy of img with the same bounds.
func ToGray(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(b)
	draw.Draw(gray, b, img, b.Min, draw.Src)
	return gray
}
