package model

import (
	"fmt"
	"strings"
)

// Shape is the batch/height/width of the tensor handed to the model.
type Shape struct {
	Batch  int `json:"batch"`
	Height int `json:"height"`
	Width  int `json:"width"`
}

// LetterboxTransform describes how the original frame was resized and padded
// into model-input space.
type LetterboxTransform struct {
	Scale float64 `json:"scale"`
	PadX  float64 `json:"pad_x"`
	PadY  float64 `json:"pad_y"`
}

// Frame is one preprocessed video frame ready for inference.
//
// Transform may be nil when the preprocessing step reuses the previous
// frame's parameters. Raw carries model output produced out of process.
type Frame struct {
	ID        string
	Width     int // original frame width in pixels
	Height    int // original frame height in pixels
	Shape     Shape
	Tensor    []float32
	Transform *LetterboxTransform
	Raw       []RawDetection
}

// ClassCount is the number of detections of one class in a frame.
type ClassCount struct {
	ClassIndex int    `json:"class_index"`
	Label      string `json:"label"`
	Count      int    `json:"count"`
}

// FrameResult is the outcome of post-processing one frame.
type FrameResult struct {
	FrameID    string       `json:"frame_id"`
	Detections []Detection  `json:"detections"`
	TotalValue int          `json:"total_value"`
	Counts     []ClassCount `json:"counts"`
}

// Summary renders the per-class counts as "2 fives, 1 ten".
func (r FrameResult) Summary() string {
	parts := make([]string, 0, len(r.Counts))
	for _, c := range r.Counts {
		suffix := ""
		if c.Count > 1 {
			suffix = "s"
		}
		parts = append(parts, fmt.Sprintf("%d %s%s", c.Count, c.Label, suffix))
	}
	return strings.Join(parts, ", ")
}

// FormatTotal renders the total for an overlay, e.g. "16_yen".
func (r FrameResult) FormatTotal(currency string) string {
	if currency == "" {
		return fmt.Sprintf("%d", r.TotalValue)
	}
	return fmt.Sprintf("%d_%s", r.TotalValue, currency)
}
