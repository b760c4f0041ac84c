// Package model contains the detection data passed between pipeline stages.
package model

import "github.com/okian/coinsum/internal/domain/geometry"

// RawDetection is one candidate row of the model output: a center-form box in
// model-input pixels, an objectness score, and one score per class.
type RawDetection struct {
	CX          float64   `json:"cx"`
	CY          float64   `json:"cy"`
	W           float64   `json:"w"`
	H           float64   `json:"h"`
	Objectness  float64   `json:"objectness"`
	ClassScores []float64 `json:"class_scores"`
}

// Candidate is a raw detection reduced to its best class.
type Candidate struct {
	Box        geometry.Box // corner form, model-input pixels
	ClassIndex int
	Confidence float64 // objectness x best class score
	Index      int     // position in the raw model output
}

// PixelBox is an integer box in original-frame pixels.
type PixelBox struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Placed is a surviving candidate whose box has been mapped back to the
// original frame.
type Placed struct {
	ClassIndex int
	Confidence float64
	Box        PixelBox
}

// Detection is a labeled, valued coin detection in original-frame pixels.
type Detection struct {
	ClassIndex int      `json:"class_index"`
	Label      string   `json:"label"`
	Confidence float64  `json:"confidence"`
	Box        PixelBox `json:"box"`
	Value      int      `json:"value"`
}
