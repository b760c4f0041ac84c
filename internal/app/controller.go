package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/coinsum/internal/domain/model"
	"github.com/okian/coinsum/internal/domain/remap"
	"github.com/okian/coinsum/pkg/logger"
	"github.com/okian/coinsum/pkg/metrics"
)

// State is the lifecycle phase of a Controller.
type State int

const (
	StateIdle State = iota
	StateWarm
	StateTerminal
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWarm:
		return "warm"
	case StateTerminal:
		return "terminal"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Stats are cumulative counters of one controller.
type Stats struct {
	State             string        `json:"state"`
	FramesProcessed   int           `json:"frames_processed"`
	FramesFailed      int           `json:"frames_failed"`
	Malformed         int           `json:"malformed_detections"`
	WarmUps           int           `json:"warm_ups"`
	Reinitializations int           `json:"reinitializations"`
	InferenceTime     time.Duration `json:"inference_time_ns"`
	PostprocessTime   time.Duration `json:"postprocess_time_ns"`
	LastTotalValue    int           `json:"last_total_value"`
}

// Outcome is what the controller emits for every frame it consumes.
type Outcome struct {
	StreamID string            `json:"stream_id"`
	FrameID  string            `json:"frame_id"`
	Result   model.FrameResult `json:"result"`
	Err      error             `json:"-"`
	Stats    Stats             `json:"stats"`
}

// Sink receives per-frame outcomes, e.g. an overlay renderer.
type Sink interface {
	Emit(ctx context.Context, o Outcome)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, o Outcome)

// Emit calls f.
func (f SinkFunc) Emit(ctx context.Context, o Outcome) { f(ctx, o) }

// Controller drives one stream: shape bookkeeping, transform caching,
// inference and post-processing. Frames are handled one at a time.
type Controller struct {
	mu sync.Mutex

	streamID string
	model    Model
	post     *PostProcessor
	exec     ExecutionContext
	currency string

	state     State
	lastShape model.Shape
	cache     remap.Cache
	stats     Stats

	logger logger.Logger
}

// NewController creates a controller in the Idle state.
func NewController(m Model, post *PostProcessor, exec ExecutionContext, opts ...ControllerOption) *Controller {
	c := &Controller{
		streamID: "default",
		model:    m,
		post:     post,
		exec:     exec,
		state:    StateIdle,
		logger:   logger.Get().Named("controller"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(logger.String("stream", c.streamID))
	return c
}

// State returns the current lifecycle phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stats returns a snapshot of the cumulative counters.
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Stats {
	s := c.stats
	s.State = c.state.String()
	return s
}

// Process runs one frame through the pipeline. A per-frame error leaves the
// controller usable for the next frame.
func (c *Controller) Process(ctx context.Context, f model.Frame) (model.FrameResult, error) { //nolint:gocritic // hugeParam: frames travel by value
	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c.processLocked(ctx, f)
	if err != nil {
		if c.state != StateTerminal {
			c.stats.FramesFailed++
		}
		metrics.RecordFrameFailed(errorKind(err))
		c.logger.Warn(ctx, "frame failed",
			logger.String("frame_id", f.ID),
			logger.Error(err),
		)
		return model.FrameResult{}, err
	}

	c.stats.FramesProcessed++
	c.stats.LastTotalValue = res.TotalValue
	metrics.RecordFrameProcessed()
	metrics.UpdateFrameValue(c.streamID, res.TotalValue)
	c.logger.Debug(ctx, "frame processed",
		logger.String("frame_id", f.ID),
		logger.Int("detections", len(res.Detections)),
		logger.String("summary", res.Summary()),
		logger.String("total", res.FormatTotal(c.currency)),
	)
	return res, nil
}

func (c *Controller) processLocked(ctx context.Context, f model.Frame) (model.FrameResult, error) { //nolint:gocritic // hugeParam: frames travel by value
	if c.state == StateTerminal {
		return model.FrameResult{}, ErrTerminated
	}
	if err := c.observeShape(ctx, f.Shape); err != nil {
		return model.FrameResult{}, err
	}

	t, err := c.cache.Resolve(f.Transform, f.Width, f.Height)
	if err != nil {
		return model.FrameResult{}, err
	}

	start := time.Now()
	raw, err := c.model.Infer(ctx, f)
	elapsed := time.Since(start)
	c.stats.InferenceTime += elapsed
	metrics.RecordInferenceLatency(float64(elapsed.Microseconds()) / 1000)
	if err != nil {
		return model.FrameResult{}, fmt.Errorf("%w: frame %s: %w", ErrInference, f.ID, err)
	}

	res, rep, err := c.post.Process(f.ID, raw, t, f.Width, f.Height)
	c.stats.PostprocessTime += rep.Elapsed
	c.stats.Malformed += rep.Malformed
	if err != nil {
		return model.FrameResult{}, fmt.Errorf("frame %s: %w", f.ID, err)
	}
	return res, nil
}

// observeShape handles the Idle to Warm transition and shape changes. On a
// GPU context the model is notified once before the first frame and again
// whenever the input shape changes.
func (c *Controller) observeShape(ctx context.Context, shape model.Shape) error {
	switch c.state {
	case StateIdle:
		if c.exec.GPU() {
			if err := c.reinitialize(ctx, shape); err != nil {
				return err
			}
			c.stats.WarmUps++
		}
		c.lastShape = shape
		c.state = StateWarm
		c.logger.Info(ctx, "stream warm",
			logger.Int("height", shape.Height),
			logger.Int("width", shape.Width),
			logger.String("device", string(c.exec.Device)),
			logger.Bool("half", c.exec.Half),
		)
	case StateWarm:
		if shape == c.lastShape {
			return nil
		}
		if c.exec.GPU() {
			if err := c.reinitialize(ctx, shape); err != nil {
				return err
			}
			c.stats.Reinitializations++
			metrics.RecordReinitialization()
			c.logger.Info(ctx, "input shape changed, model reinitialized",
				logger.Any("from", c.lastShape),
				logger.Any("to", shape),
			)
		}
		c.lastShape = shape
	}
	return nil
}

func (c *Controller) reinitialize(ctx context.Context, shape model.Shape) error {
	r, ok := c.model.(Reinitializer)
	if !ok {
		return nil
	}
	if err := r.Reinitialize(ctx, shape); err != nil {
		return fmt.Errorf("%w: %w", ErrReinitialize, err)
	}
	return nil
}

// Run consumes frames until the channel closes or ctx is cancelled. Every
// frame yields one Outcome on sink; a failed frame does not stop the loop.
// Cancellation is observed between frames.
func (c *Controller) Run(ctx context.Context, frames <-chan model.Frame, sink Sink) error {
	for {
		select {
		case <-ctx.Done():
			c.Terminate(ctx)
			return ctx.Err()
		case f, ok := <-frames:
			if !ok {
				c.Terminate(ctx)
				return nil
			}
			if err := ctx.Err(); err != nil {
				c.Terminate(ctx)
				return err
			}

			res, err := c.Process(ctx, f)
			if sink != nil {
				sink.Emit(ctx, Outcome{
					StreamID: c.streamID,
					FrameID:  f.ID,
					Result:   res,
					Err:      err,
					Stats:    c.Stats(),
				})
			}
		}
	}
}

// Terminate moves the controller to Terminal and releases the cached
// transform. It is idempotent.
func (c *Controller) Terminate(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateTerminal {
		return
	}
	c.state = StateTerminal
	c.cache.Reset()
	c.lastShape = model.Shape{}

	c.logger.Info(ctx, "stream done",
		logger.Int("frames", c.stats.FramesProcessed),
		logger.Int("failed", c.stats.FramesFailed),
		logger.Int("reinitializations", c.stats.Reinitializations),
		logger.Duration("inference", c.stats.InferenceTime),
		logger.Duration("postprocess", c.stats.PostprocessTime),
	)
}
