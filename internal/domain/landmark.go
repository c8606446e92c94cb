package domain

import "image"

// LandmarkCount is the number of points the 68-point model yields per face.
const LandmarkCount = 68

// FaceRegion is an axis-aligned face rectangle in pixel coordinates of the
// image it was detected in.
type FaceRegion struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// RegionFromRect converts an image.Rectangle (Max exclusive) to a FaceRegion.
func RegionFromRect(r image.Rectangle) FaceRegion {
	return FaceRegion{Left: r.Min.X, Top: r.Min.Y, Right: r.Max.X, Bottom: r.Max.Y}
}

// Rect returns the region as an image.Rectangle.
func (r FaceRegion) Rect() image.Rectangle {
	return image.Rect(r.Left, r.Top, r.Right, r.Bottom)
}

// Width of the region in pixels
func (r FaceRegion) Width() int { return r.Right - r.Left }

// Height of the region in pixels
func (r FaceRegion) Height() int { return r.Bottom - r.Top }

// LandmarkPoint is a single landmark in pixel coordinates.
type LandmarkPoint struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// FaceLandmarks pairs a face with its landmarks, ordered by anatomical index
// (0-16 jaw, 17-26 brows, 27-35 nose, 36-47 eyes, 48-67 mouth).
type FaceLandmarks struct {
	Face      FaceRegion      `json:"face"`
	Landmarks []LandmarkPoint `json:"landmarks"`
}

// DetectionResult holds every face found in one image, in detector order.
type DetectionResult struct {
	Faces []FaceLandmarks `json:"landmarks"`
}

// Points returns every landmark of every face, flattened in order.
func (r *DetectionResult) Points() []LandmarkPoint {
	var n int
	for _, f := range r.Faces {
		n += len(f.Landmarks)
	}
	points := make([]LandmarkPoint, 0, n)
	for _, f := range r.Faces {
		points = append(points, f.Landmarks...)
	}
	return points
}

// ProcessResult is the success payload: the annotated image (base64 JPEG)
// and the landmark list it was drawn from.
type ProcessResult struct {
	Image     string          `json:"image"`
	Landmarks []FaceLandmarks `json:"landmarks"`
}
