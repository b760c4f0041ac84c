package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/coinsum/internal/domain/model"
)

// RecordedFrame is one frame of a recording: the frame geometry, the
// preprocessing transform and the detector output.
type RecordedFrame struct {
	ID         string                    `json:"id"`
	Width      int                       `json:"width"`
	Height     int                       `json:"height"`
	Shape      model.Shape               `json:"shape"`
	Transform  *model.LetterboxTransform `json:"transform,omitempty"`
	Detections []model.RawDetection      `json:"detections"`
}

// Recording is a sequence of frames captured from a detector run.
type Recording struct {
	Frames []RecordedFrame `json:"frames"`
}

// LoadRecording reads a JSON recording from path.
func LoadRecording(path string) (*Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadRecording, err)
	}
	defer func() { _ = f.Close() }()
	return DecodeRecording(f)
}

// DecodeRecording parses a JSON recording. Frames without an id get a
// random one; ids must be unique.
func DecodeRecording(r io.Reader) (*Recording, error) {
	var rec Recording
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadRecording, err)
	}
	seen := make(map[string]struct{}, len(rec.Frames))
	for i := range rec.Frames {
		if rec.Frames[i].ID == "" {
			rec.Frames[i].ID = uuid.NewString()
		}
		if _, dup := seen[rec.Frames[i].ID]; dup {
			return nil, fmt.Errorf("%w: duplicate frame id %q", ErrBadRecording, rec.Frames[i].ID)
		}
		seen[rec.Frames[i].ID] = struct{}{}
	}
	return &rec, nil
}

// PipelineFrames converts the recording into pipeline frames in recorded order.
// Raw output is left empty so that it is served by a Replay model.
func (r *Recording) PipelineFrames() []model.Frame {
	out := make([]model.Frame, len(r.Frames))
	for i, rf := range r.Frames {
		out[i] = model.Frame{
			ID:        rf.ID,
			Width:     rf.Width,
			Height:    rf.Height,
			Shape:     rf.Shape,
			Transform: rf.Transform,
		}
	}
	return out
}

// Replay serves recorded detector output by frame id.
type Replay struct {
	byID map[string][]model.RawDetection

	mu     sync.Mutex
	shapes []model.Shape
}

// NewReplay indexes a recording for playback.
func NewReplay(rec *Recording) *Replay {
	byID := make(map[string][]model.RawDetection, len(rec.Frames))
	for _, rf := range rec.Frames {
		byID[rf.ID] = rf.Detections
	}
	return &Replay{byID: byID}
}

// Infer returns the recorded output for f.
func (r *Replay) Infer(ctx context.Context, f model.Frame) ([]model.RawDetection, error) { //nolint:gocritic // hugeParam: frames travel by value
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dets, ok := r.byID[f.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoRecording, f.ID)
	}
	return dets, nil
}

// Reinitialize records the shape the model was asked to prepare for.
func (r *Replay) Reinitialize(ctx context.Context, shape model.Shape) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	r.shapes = append(r.shapes, shape)
	r.mu.Unlock()
	return nil
}

// Reinitializations returns the shapes passed to Reinitialize, oldest first.
func (r *Replay) Reinitializations() []model.Shape {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Shape(nil), r.shapes...)
}
