// Package service wires the frame pipeline into a multi-stream service used by
// the HTTP API and the command line tools.
package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/okian/coinsum/internal/adapters/inference"
	"github.com/okian/coinsum/internal/adapters/mq/queue"
	workerpool "github.com/okian/coinsum/internal/adapters/mq/worker"
	"github.com/okian/coinsum/internal/adapters/preprocess"
	"github.com/okian/coinsum/internal/domain/dedupe"
	"github.com/okian/coinsum/internal/domain/model"
	"github.com/okian/coinsum/internal/domain/remap"
	"github.com/okian/coinsum/internal/domain/valuetable"
	"github.com/okian/coinsum/pkg/logger"
	"github.com/okian/coinsum/pkg/metrics"
)

const stopTimeout = 10 * time.Second

// StreamStatus is the externally visible state of one stream.
type StreamStatus struct {
	ID      string   `json:"id"`
	Running bool     `json:"running"`
	Backlog int      `json:"backlog"`
	Stats   Stats    `json:"stats"`
	Latest  *Outcome `json:"latest,omitempty"`
	Error   string   `json:"error,omitempty"`
}

type stream struct {
	controller *Controller

	mu     sync.RWMutex
	latest *Outcome
}

func (st *stream) record(o Outcome) {
	st.mu.Lock()
	st.latest = &o
	st.mu.Unlock()
}

func (st *stream) last() *Outcome {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if st.latest == nil {
		return nil
	}
	o := *st.latest
	return &o
}

// Service runs one controller per stream over a shared value table.
type Service struct {
	mu sync.RWMutex

	table    *valuetable.Table
	settings Settings
	exec     ExecutionContext
	currency string
	newModel func(streamID string) Model

	queueSize  int
	maxStreams int
	inputSize  int
	stride     int
	dedupeSize int

	post    *PostProcessor
	pool    *workerpool.Pool
	seen    dedupe.Deduper
	streams map[string]*stream

	started bool
	logger  logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		settings:   DefaultSettings(),
		exec:       ExecutionContext{Device: DeviceCPU},
		currency:   "yen",
		newModel:   func(string) Model { return inference.Passthrough{} },
		queueSize:  8,
		maxStreams: 16,
		inputSize:  640,
		stride:     32,
		dedupeSize: dedupe.DefaultMaxSize,
		streams:    make(map[string]*stream),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the post-processor and the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	if s.table == nil {
		t, err := valuetable.New(valuetable.Default())
		if err != nil {
			return err
		}
		s.table = t
	}
	post, err := NewPostProcessor(s.table, s.settings)
	if err != nil {
		return err
	}
	s.post = post
	s.seen = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))

	s.pool = workerpool.NewPool(s.runnerFor,
		workerpool.WithMaxStreams(s.maxStreams),
		workerpool.WithQueueCapacity(s.queueSize),
		workerpool.WithPoolLogger(s.logger.Named("pool")),
	)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "coin counter service started",
		logger.String("device", string(s.exec.Device)),
		logger.Bool("half", s.exec.Half),
		logger.Float64("conf_threshold", s.settings.ConfidenceThreshold),
		logger.Float64("iou_threshold", s.settings.IoUThreshold),
		logger.Bool("class_agnostic", s.settings.ClassAgnostic),
		logger.Int("classes", s.table.Len()),
		logger.Int("queue_size", s.queueSize),
		logger.Int("max_streams", s.maxStreams),
	)
	return nil
}

// runnerFor is the pool factory: every stream gets a fresh controller whose
// outcomes are kept as the stream's latest state.
func (s *Service) runnerFor(streamID string) workerpool.Runner {
	c := NewController(s.newModel(streamID), s.post, s.exec,
		WithStreamID(streamID),
		WithCurrency(s.currency),
		WithControllerLogger(s.logger.Named("controller")),
	)
	st := &stream{controller: c}

	s.mu.Lock()
	s.streams[streamID] = st
	s.mu.Unlock()

	sink := SinkFunc(func(_ context.Context, o Outcome) { st.record(o) })
	return workerpool.RunnerFunc(func(ctx context.Context, frames <-chan model.Frame) error {
		return c.Run(ctx, frames, sink)
	})
}

// Stop drains every stream and stops the service.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	pool := s.pool
	s.mu.Unlock()

	s.logger.Info(ctx, "stopping coin counter service...")
	sctx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()
	err := pool.Shutdown(sctx)
	s.logger.Info(ctx, "coin counter service stopped")
	return err
}

// Submit enqueues a frame on a stream, starting the stream on first use.
// A full queue or stream limit yields ErrBackpressure. A frame id already
// queued on the stream yields ErrDuplicateFrame and is not processed again.
func (s *Service) Submit(ctx context.Context, streamID string, f model.Frame) error { //nolint:gocritic // hugeParam: frames travel by value
	s.mu.RLock()
	started, pool, seen := s.started, s.pool, s.seen
	s.mu.RUnlock()
	if !started {
		return ErrNotStarted
	}

	key := dedupe.Key(streamID, f.ID)
	if f.ID != "" && seen.SeenAndRecord(ctx, key) {
		return fmt.Errorf("%w: %s on stream %s", ErrDuplicateFrame, f.ID, streamID)
	}
	err := s.enqueue(ctx, pool, streamID, f)
	if err != nil && f.ID != "" {
		seen.Unrecord(ctx, key)
	}
	return err
}

func (s *Service) enqueue(ctx context.Context, pool *workerpool.Pool, streamID string, f model.Frame) error { //nolint:gocritic // hugeParam: frames travel by value
	w, err := pool.Acquire(streamID)
	switch {
	case errors.Is(err, workerpool.ErrPoolFull):
		return fmt.Errorf("%w: %w", ErrBackpressure, err)
	case errors.Is(err, workerpool.ErrStopped):
		return ErrNotStarted
	case err != nil:
		return err
	}

	err = w.Submit(ctx, f)
	switch {
	case errors.Is(err, queue.ErrFull):
		s.logger.Debug(ctx, "frame dropped, queue full",
			logger.String("stream", streamID),
			logger.String("frame_id", f.ID),
		)
		return fmt.Errorf("%w: stream %s", ErrBackpressure, streamID)
	case errors.Is(err, queue.ErrClosed):
		return fmt.Errorf("%w: stream %s", ErrTerminated, streamID)
	}
	return err
}

// SubmitImage letterboxes img into model input space and enqueues it on a
// stream like Submit.
func (s *Service) SubmitImage(ctx context.Context, streamID, frameID string, img image.Image) error {
	s.mu.RLock()
	size, stride := s.inputSize, s.stride
	s.mu.RUnlock()

	f, err := preprocess.Frame(frameID, img, size, stride)
	if err != nil {
		return err
	}
	return s.Submit(ctx, streamID, f)
}

// Detect post-processes a single frame that already carries raw model output.
func (s *Service) Detect(ctx context.Context, f model.Frame) (model.FrameResult, error) { //nolint:gocritic // hugeParam: frames travel by value
	s.mu.RLock()
	started, post := s.started, s.post
	s.mu.RUnlock()
	if !started {
		return model.FrameResult{}, ErrNotStarted
	}
	if f.Transform == nil {
		metrics.RecordFrameFailed(errorKind(remap.ErrInvalidTransform))
		return model.FrameResult{}, fmt.Errorf("%w: transform is required", remap.ErrInvalidTransform)
	}

	res, _, err := post.Process(f.ID, f.Raw, *f.Transform, f.Width, f.Height)
	if err != nil {
		metrics.RecordFrameFailed(errorKind(err))
		s.logger.Debug(ctx, "detect failed", logger.String("frame_id", f.ID), logger.Error(err))
		return model.FrameResult{}, err
	}
	metrics.RecordFrameProcessed()
	return res, nil
}

// Stream returns the status of a known stream.
func (s *Service) Stream(streamID string) (StreamStatus, error) {
	s.mu.RLock()
	st, ok := s.streams[streamID]
	pool := s.pool
	s.mu.RUnlock()
	if !ok {
		return StreamStatus{}, fmt.Errorf("%w: %s", ErrStreamNotFound, streamID)
	}
	return s.status(streamID, st, pool), nil
}

// Streams returns every known stream ordered by id.
func (s *Service) Streams() []StreamStatus {
	s.mu.RLock()
	ids := lo.Keys(s.streams)
	s.mu.RUnlock()

	out := make([]StreamStatus, 0, len(ids))
	for _, id := range ids {
		if st, err := s.Stream(id); err == nil {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Service) status(id string, st *stream, pool *workerpool.Pool) StreamStatus {
	status := StreamStatus{
		ID:     id,
		Stats:  st.controller.Stats(),
		Latest: st.last(),
	}
	if status.Latest != nil && status.Latest.Err != nil {
		status.Error = status.Latest.Err.Error()
	}
	if pool != nil {
		if w, ok := pool.Get(id); ok {
			select {
			case <-w.Done():
			default:
				status.Running = true
				status.Backlog = w.Backlog()
			}
		}
	}
	return status
}

// StopStream drains the stream and moves its controller to Terminal. The
// final status stays readable until the id is reused; frame ids seen on the
// stream are forgotten so a reused id starts fresh.
func (s *Service) StopStream(ctx context.Context, streamID string) error {
	s.mu.RLock()
	st, ok := s.streams[streamID]
	pool := s.pool
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrStreamNotFound, streamID)
	}

	if pool != nil {
		if err := pool.Remove(ctx, streamID); err != nil && !errors.Is(err, workerpool.ErrNoStream) {
			return err
		}
	}
	st.controller.Terminate(ctx)

	s.mu.RLock()
	seen := s.seen
	s.mu.RUnlock()
	if seen != nil {
		n := seen.UnrecordStream(ctx, streamID)
		s.logger.Debug(ctx, "forgot frame ids of stopped stream",
			logger.String("stream", streamID),
			logger.Int("frames", n),
		)
	}
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	started := s.started
	stats := map[string]interface{}{
		"started":              s.started,
		"device":               string(s.exec.Device),
		"half_precision":       s.exec.Half,
		"confidence_threshold": s.settings.ConfidenceThreshold,
		"iou_threshold":        s.settings.IoUThreshold,
		"class_agnostic_nms":   s.settings.ClassAgnostic,
		"max_detections":       s.settings.MaxDetections,
		"queue_size":           s.queueSize,
		"max_streams":          s.maxStreams,
		"input_size":           s.inputSize,
		"dedupe_size":          s.dedupeSize,
		"stride":               s.stride,
		"currency":             s.currency,
		"known_streams":        len(s.streams),
	}
	if s.table != nil {
		stats["classes"] = s.table.Entries()
	}
	pool, seen := s.pool, s.seen
	s.mu.RUnlock()

	if seen != nil {
		stats["remembered_frames"] = seen.Size()
	}
	if started && pool != nil {
		running := pool.Running()
		stats["running_streams"] = running
		metrics.UpdateActiveStreams(running)
	}
	return stats
}

// Table returns the shared value table once the service has started.
func (s *Service) Table() *valuetable.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table
}

// Currency returns the currency suffix for rendered totals.
func (s *Service) Currency() string {
	return s.currency
}
