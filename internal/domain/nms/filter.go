// Package nms reduces raw detector output to a non-overlapping set of
// candidates: confidence filtering followed by greedy non-max suppression.
package nms

import (
	"fmt"
	"math"

	"github.com/okian/coinsum/internal/domain/geometry"
	"github.com/okian/coinsum/internal/domain/model"
	"gonum.org/v1/gonum/floats"
)

// Filtered is the result of confidence filtering.
type Filtered struct {
	Candidates []model.Candidate
	// Malformed counts raw rows dropped for non-finite geometry or
	// out-of-range scores.
	Malformed int
}

// Validate reports whether a raw detection can be interpreted. It returns an
// error wrapping ErrMalformedDetection otherwise.
func Validate(raw model.RawDetection) error {
	for _, v := range [...]float64{raw.CX, raw.CY, raw.W, raw.H} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite box", ErrMalformedDetection)
		}
	}
	if raw.W < 0 || raw.H < 0 {
		return fmt.Errorf("%w: negative box size", ErrMalformedDetection)
	}
	// Finite centre and size can still overflow once converted to corners.
	box := geometry.ToCorners(raw.CX, raw.CY, raw.W, raw.H)
	if !box.Valid() || math.IsInf(geometry.Area(box), 0) {
		return fmt.Errorf("%w: box overflows", ErrMalformedDetection)
	}
	if !isProbability(raw.Objectness) {
		return fmt.Errorf("%w: objectness %v outside [0,1]", ErrMalformedDetection, raw.Objectness)
	}
	if len(raw.ClassScores) == 0 {
		return fmt.Errorf("%w: no class scores", ErrMalformedDetection)
	}
	for i, s := range raw.ClassScores {
		if !isProbability(s) {
			return fmt.Errorf("%w: class %d score %v outside [0,1]", ErrMalformedDetection, i, s)
		}
	}
	return nil
}

// FilterByConfidence drops malformed rows and rows whose best-class
// confidence (objectness x max class score) is below threshold. Each survivor
// keeps only its arg-max class; ties resolve to the lowest class index.
func FilterByConfidence(raw []model.RawDetection, threshold float64) Filtered {
	out := Filtered{Candidates: make([]model.Candidate, 0, len(raw))}
	for i, r := range raw {
		if err := Validate(r); err != nil {
			out.Malformed++
			continue
		}
		best := floats.MaxIdx(r.ClassScores)
		conf := r.Objectness * r.ClassScores[best]
		if conf < threshold {
			continue
		}
		out.Candidates = append(out.Candidates, model.Candidate{
			Box:        geometry.ToCorners(r.CX, r.CY, r.W, r.H),
			ClassIndex: best,
			Confidence: conf,
			Index:      i,
		})
	}
	return out
}

func isProbability(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}
