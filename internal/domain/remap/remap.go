// Package remap maps boxes from letterboxed model-input space back to the
// original frame.
package remap

import (
	"fmt"
	"math"

	"github.com/okian/coinsum/internal/domain/geometry"
	"github.com/okian/coinsum/internal/domain/model"
)

// Validate checks that t can be inverted.
func Validate(t model.LetterboxTransform) error {
	for _, v := range [...]float64{t.Scale, t.PadX, t.PadY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite parameter", ErrInvalidTransform)
		}
	}
	if t.Scale <= 0 {
		return fmt.Errorf("%w: scale %v must be positive", ErrInvalidTransform, t.Scale)
	}
	return nil
}

// Remap inverts the letterbox transform for box and clamps the result to
// [0, frameW] x [0, frameH]. Coordinates are rounded to the nearest integer,
// halves to even. The returned box always satisfies x1 <= x2 and y1 <= y2.
func Remap(box geometry.Box, t model.LetterboxTransform, frameW, frameH int) (model.PixelBox, error) {
	if err := Validate(t); err != nil {
		return model.PixelBox{}, err
	}
	if frameW <= 0 || frameH <= 0 {
		return model.PixelBox{}, fmt.Errorf("%w: frame size %dx%d", ErrInvalidTransform, frameW, frameH)
	}

	x1 := invert(box.X1, t.PadX, t.Scale, frameW)
	y1 := invert(box.Y1, t.PadY, t.Scale, frameH)
	x2 := invert(box.X2, t.PadX, t.Scale, frameW)
	y2 := invert(box.Y2, t.PadY, t.Scale, frameH)
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	return model.PixelBox{X1: x1, Y1: y1, X2: x2, Y2: y2}, nil
}

func invert(v, pad, scale float64, limit int) int {
	r := math.RoundToEven((v - pad) / scale)
	switch {
	case math.IsNaN(r) || r < 0:
		return 0
	case r > float64(limit):
		return limit
	}
	return int(r)
}
