// Package shape evaluates dlib shape predictors: cascades of regression
// trees that refine a mean face shape into per-image landmark positions.
package shape

import (
	"fmt"
	"image"
	"math"
)

// Vec is a 2D offset in normalized shape space.
type Vec struct {
	X, Y float32
}

// Split compares the intensities of two feature pixels against a threshold.
type Split struct {
	Idx1   int
	Idx2   int
	Thresh float32
}

// Tree is a complete binary regression tree stored breadth-first: the
// children of node i are 2i+1 and 2i+2, and leaves follow the splits.
type Tree struct {
	Splits []Split
	Leaves [][]float32
}

// Level is one cascade stage. Each feature pixel is anchored to a landmark
// of the current shape and offset by a delta in reference space.
type Level struct {
	Forest  []Tree
	Anchors []int
	Deltas  []Vec
}

// Predictor is immutable after construction and safe for concurrent use.
type Predictor struct {
	initialShape []float32
	levels       []Level
}

// New validates the cascade and builds a Predictor from it.
func New(initialShape []float32, levels []Level) (*Predictor, error) {
	if len(initialShape) == 0 || len(initialShape)%2 != 0 {
		return nil, fmt.Errorf("%w: initial shape has %d values", ErrCorrupt, len(initialShape))
	}
	parts := len(initialShape) / 2

	for i, level := range levels {
		if len(level.Anchors) != len(level.Deltas) {
			return nil, fmt.Errorf("%w: level %d has %d anchors and %d deltas", ErrCorrupt, i, len(level.Anchors), len(level.Deltas))
		}
		for _, a := range level.Anchors {
			if a < 0 || a >= parts {
				return nil, fmt.Errorf("%w: level %d anchor %d out of range", ErrCorrupt, i, a)
			}
		}
		features := len(level.Deltas)
		for j, t := range level.Forest {
			if len(t.Leaves) != len(t.Splits)+1 {
				return nil, fmt.Errorf("%w: level %d tree %d has %d splits and %d leaves", ErrCorrupt, i, j, len(t.Splits), len(t.Leaves))
			}
			for _, s := range t.Splits {
				if s.Idx1 < 0 || s.Idx1 >= features || s.Idx2 < 0 || s.Idx2 >= features {
					return nil, fmt.Errorf("%w: level %d tree %d split references missing feature", ErrCorrupt, i, j)
				}
			}
			for _, leaf := range t.Leaves {
				if len(leaf) != len(initialShape) {
					return nil, fmt.Errorf("%w: level %d tree %d leaf size %d", ErrCorrupt, i, j, len(leaf))
				}
			}
		}
	}

	return &Predictor{initialShape: initialShape, levels: levels}, nil
}

// Parts is the number of landmarks the predictor emits.
func (p *Predictor) Parts() int {
	return len(p.initialShape) / 2
}

// Levels is the depth of the cascade.
func (p *Predictor) Levels() int {
	return len(p.levels)
}

// Predict returns Parts() landmarks for the face inside rect. rect.Min and
// rect.Max are the top-left and bottom-right corners of the face box.
func (p *Predictor) Predict(img *image.Gray, rect image.Rectangle) []image.Point {
	current := make([]float32, len(p.initialShape))
	copy(current, p.initialShape)

	toImage := unnormalizer(rect)
	var features []float32

	for _, level := range p.levels {
		features = p.sample(img, toImage, current, level, features)
		for _, t := range level.Forest {
			leaf := t.eval(features)
			for i := range current {
				current[i] += leaf[i]
			}
		}
	}

	points := make([]image.Point, p.Parts())
	for i := range points {
		x, y := toImage.apply(float64(current[2*i]), float64(current[2*i+1]))
		points[i] = image.Pt(round(x), round(y))
	}
	return points
}

// sample reads the intensity of every feature pixel of level, positioned
// relative to the current shape estimate. Pixels outside img read as 0.
func (p *Predictor) sample(img *image.Gray, toImage affine, current []float32, level Level, buf []float32) []float32 {
	tform := similarity(p.initialShape, current)
	bounds := img.Bounds()

	if cap(buf) < len(level.Deltas) {
		buf = make([]float32, len(level.Deltas))
	}
	buf = buf[:len(level.Deltas)]

	for i, delta := range level.Deltas {
		anchor := level.Anchors[i]
		dx, dy := tform.rotate(float64(delta.X), float64(delta.Y))
		x, y := toImage.apply(dx+float64(current[2*anchor]), dy+float64(current[2*anchor+1]))
		pt := image.Pt(round(x), round(y))
		if pt.In(bounds) {
			buf[i] = float32(img.GrayAt(pt.X, pt.Y).Y)
		} else {
			buf[i] = 0
		}
	}
	return buf
}

func (t *Tree) eval(features []float32) []float32 {
	i := 0
	for i < len(t.Splits) {
		s := t.Splits[i]
		if features[s.Idx1]-features[s.Idx2] > s.Thresh {
			i = 2*i + 1
		} else {
			i = 2*i + 2
		}
	}
	return t.Leaves[i-len(t.Splits)]
}

// affine maps normalized [0,1]x[0,1] shape space onto a face box.
type affine struct {
	x0, y0, sx, sy float64
}

func unnormalizer(rect image.Rectangle) affine {
	return affine{
		x0: float64(rect.Min.X),
		y0: float64(rect.Min.Y),
		sx: float64(rect.Max.X - rect.Min.X),
		sy: float64(rect.Max.Y - rect.Min.Y),
	}
}

func (a affine) apply(x, y float64) (float64, float64) {
	return a.x0 + a.sx*x, a.y0 + a.sy*y
}

// linear is a 2x2 scaled rotation [[a, -b], [b, a]].
type linear struct {
	a, b float64
}

func (m linear) rotate(x, y float64) (float64, float64) {
	return m.a*x - m.b*y, m.b*x + m.a*y
}

// similarity returns the least-squares scaled rotation taking the centered
// from shape onto the centered to shape.
func similarity(from, to []float32) linear {
	n := len(from) / 2
	if n < 2 {
		return linear{a: 1}
	}

	var fx, fy, tx, ty float64
	for i := 0; i < n; i++ {
		fx += float64(from[2*i])
		fy += float64(from[2*i+1])
		tx += float64(to[2*i])
		ty += float64(to[2*i+1])
	}
	fx /= float64(n)
	fy /= float64(n)
	tx /= float64(n)
	ty /= float64(n)

	var dot, cross, norm float64
	for i := 0; i < n; i++ {
		ax := float64(from[2*i]) - fx
		ay := float64(from[2*i+1]) - fy
		bx := float64(to[2*i]) - tx
		by := float64(to[2*i+1]) - ty
		dot += ax*bx + ay*by
		cross += ax*by - ay*bx
		norm += ax*ax + ay*ay
	}
	if norm == 0 {
		return linear{a: 1}
	}
	return linear{a: dot / norm, b: cross / norm}
}

func round(v float64) int {
	return int(math.Floor(v + 0.5))
}
