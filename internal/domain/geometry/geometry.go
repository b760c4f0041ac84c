// Package geometry provides axis-aligned box primitives used by detection
// post-processing.
package geometry

import "math"

// Box is an axis-aligned box in corner form. Coordinates are floating point
// model-input pixels; no rounding is applied anywhere in this package.
type Box struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// ToCorners converts a center-form box (center x, center y, width, height)
// into corner form.
func ToCorners(cx, cy, w, h float64) Box {
	return Box{
		X1: cx - w/2,
		Y1: cy - h/2,
		X2: cx + w/2,
		Y2: cy + h/2,
	}
}

// Width returns the horizontal extent, or 0 for an inverted box.
func (b Box) Width() float64 {
	return math.Max(0, b.X2-b.X1)
}

// Height returns the vertical extent, or 0 for an inverted box.
func (b Box) Height() float64 {
	return math.Max(0, b.Y2-b.Y1)
}

// Valid reports whether every coordinate is a finite number.
func (b Box) Valid() bool {
	for _, v := range [...]float64{b.X1, b.Y1, b.X2, b.Y2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Area returns the area of b. Degenerate boxes (x1 >= x2 or y1 >= y2) have
// zero area.
func Area(b Box) float64 {
	return b.Width() * b.Height()
}

// Intersection returns the overlapping region of a and b. The result is
// degenerate when the boxes do not overlap.
func Intersection(a, b Box) Box {
	return Box{
		X1: math.Max(a.X1, b.X1),
		Y1: math.Max(a.Y1, b.Y1),
		X2: math.Min(a.X2, b.X2),
		Y2: math.Min(a.Y2, b.Y2),
	}
}

// IoU returns the intersection-over-union of a and b in [0, 1]. It returns 0
// when the boxes do not overlap or when the union area is zero.
func IoU(a, b Box) float64 {
	inter := Area(Intersection(a, b))
	if inter <= 0 {
		return 0
	}
	union := Area(a) + Area(b) - inter
	if union <= 0 {
		return 0
	}
	iou := inter / union
	// Guard against float noise pushing identical boxes past 1.
	if iou > 1 {
		return 1
	}
	return iou
}
