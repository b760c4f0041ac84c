package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/okian/coinsum/internal/domain/aggregate"
	"github.com/okian/coinsum/internal/domain/model"
	"github.com/okian/coinsum/internal/domain/nms"
	"github.com/okian/coinsum/internal/domain/remap"
	"github.com/okian/coinsum/internal/domain/valuetable"
	"github.com/okian/coinsum/pkg/metrics"
)

// Settings are the post-processing thresholds shared by every stream.
type Settings struct {
	ConfidenceThreshold float64
	IoUThreshold        float64
	ClassAgnostic       bool
	MaxDetections       int
}

// DefaultSettings matches the stock detector configuration.
func DefaultSettings() Settings {
	return Settings{
		ConfidenceThreshold: 0.5,
		IoUThreshold:        0.4,
		MaxDetections:       nms.DefaultMaxDetections,
	}
}

// Report carries per-frame diagnostics that are not part of the result.
type Report struct {
	Malformed  int
	Suppressed int
	Elapsed    time.Duration
}

// PostProcessor reduces raw model output for one frame to a FrameResult.
// It holds no per-frame state and is safe for concurrent use.
type PostProcessor struct {
	settings Settings
	table    *valuetable.Table
}

// NewPostProcessor builds a PostProcessor over a shared value table.
func NewPostProcessor(table *valuetable.Table, settings Settings) (*PostProcessor, error) {
	if table == nil || table.Len() == 0 {
		return nil, fmt.Errorf("%w: table is empty", valuetable.ErrInvalidTable)
	}
	return &PostProcessor{settings: settings, table: table}, nil
}

// Settings returns the thresholds in use.
func (p *PostProcessor) Settings() Settings { return p.settings }

// Table returns the shared value table.
func (p *PostProcessor) Table() *valuetable.Table { return p.table }

// Process filters, suppresses, remaps and aggregates raw detections.
func (p *PostProcessor) Process(frameID string, raw []model.RawDetection, t model.LetterboxTransform, frameW, frameH int) (res model.FrameResult, rep Report, err error) {
	start := time.Now()
	defer func() {
		rep.Elapsed = time.Since(start)
		metrics.RecordPostprocessLatency(float64(rep.Elapsed.Microseconds()) / 1000)
	}()

	if err = remap.Validate(t); err != nil {
		return model.FrameResult{}, rep, err
	}
	if frameW <= 0 || frameH <= 0 {
		return model.FrameResult{}, rep, fmt.Errorf("%w: frame size %dx%d", remap.ErrInvalidTransform, frameW, frameH)
	}

	filtered := nms.FilterByConfidence(raw, p.settings.ConfidenceThreshold)
	rep.Malformed = filtered.Malformed
	metrics.RecordMalformedDetections(filtered.Malformed)

	kept := nms.Suppress(filtered.Candidates, p.settings.IoUThreshold, p.settings.ClassAgnostic)
	kept = nms.Limit(kept, p.settings.MaxDetections)
	rep.Suppressed = len(filtered.Candidates) - len(kept)
	metrics.RecordSuppressed(rep.Suppressed)

	placed := make([]model.Placed, 0, len(kept))
	for _, c := range kept {
		box, rerr := remap.Remap(c.Box, t, frameW, frameH)
		if rerr != nil {
			return model.FrameResult{}, rep, rerr
		}
		placed = append(placed, model.Placed{ClassIndex: c.ClassIndex, Confidence: c.Confidence, Box: box})
	}

	res, err = aggregate.Aggregate(frameID, placed, p.table)
	if err != nil {
		return model.FrameResult{}, rep, err
	}
	for _, d := range res.Detections {
		metrics.RecordDetection(d.Label)
	}
	return res, rep, nil
}

// errorKind names the failure class of a per-frame error for metrics.
func errorKind(err error) string {
	switch {
	case errors.Is(err, valuetable.ErrUnknownClass):
		return "unknown_class"
	case errors.Is(err, remap.ErrInvalidTransform):
		return "invalid_transform"
	case errors.Is(err, ErrReinitialize):
		return "reinitialize"
	case errors.Is(err, ErrInference):
		return "inference"
	case errors.Is(err, ErrTerminated):
		return "terminated"
	default:
		return "other"
	}
}
