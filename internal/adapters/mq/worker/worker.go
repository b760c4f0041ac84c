// Package worker runs one frame loop per stream.
//
// Every stream owns a queue and a Runner; frames of one stream are handled by
// a single goroutine in arrival order. The Pool maps stream ids to workers.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/okian/coinsum/internal/adapters/mq/queue"
	"github.com/okian/coinsum/internal/domain/model"
	"github.com/okian/coinsum/pkg/logger"
	"github.com/okian/coinsum/pkg/metrics"
)

const (
	defaultMaxStreams      = 16
	defaultQueueCapacity   = 8
	defaultShutdownTimeout = 5 * time.Second
)

// Runner consumes frames until the channel closes or ctx is cancelled.
type Runner interface {
	Run(ctx context.Context, frames <-chan model.Frame) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, frames <-chan model.Frame) error

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, frames <-chan model.Frame) error {
	return f(ctx, frames)
}

// Factory builds the Runner for a new stream.
type Factory func(streamID string) Runner

// StreamWorker feeds one stream's queue into its Runner.
type StreamWorker struct {
	id     string
	queue  *queue.FrameQueue
	runner Runner

	cancel context.CancelFunc
	done   chan struct{}
	err    error

	logger logger.Logger
}

// NewStreamWorker creates a worker for one stream.
func NewStreamWorker(id string, q *queue.FrameQueue, r Runner, opts ...Option) *StreamWorker {
	w := &StreamWorker{
		id:     id,
		queue:  q,
		runner: r,
		done:   make(chan struct{}),
		logger: logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(logger.String("stream", id))
	return w
}

// Start launches the stream loop. The queue is closed when the loop ends so
// late submissions fail fast.
func (w *StreamWorker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	go func() {
		defer close(w.done)
		defer w.cancel()
		defer func() { _ = w.queue.Close() }()

		w.err = w.runner.Run(ctx, w.queue.Dequeue(ctx))
		if w.err != nil && !errors.Is(w.err, context.Canceled) {
			w.logger.Error(ctx, "stream loop ended with error", logger.Error(w.err))
		}
	}()
}

// ID returns the stream id.
func (w *StreamWorker) ID() string { return w.id }

// Submit enqueues a frame without blocking.
func (w *StreamWorker) Submit(ctx context.Context, f model.Frame) error { //nolint:gocritic // hugeParam: frames travel by value
	return w.queue.TryEnqueue(ctx, f)
}

// Backlog returns the number of frames waiting.
func (w *StreamWorker) Backlog() int {
	return w.queue.Len(context.Background())
}

// Done is closed once the loop has exited.
func (w *StreamWorker) Done() <-chan struct{} { return w.done }

// Err returns the loop error after Done is closed.
func (w *StreamWorker) Err() error {
	select {
	case <-w.done:
		return w.err
	default:
		return nil
	}
}

// Shutdown closes the queue so the loop drains pending frames and stops.
// When ctx expires first the loop is cancelled.
func (w *StreamWorker) Shutdown(ctx context.Context) error {
	_ = w.queue.Close()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		if w.cancel != nil {
			w.cancel()
		}
		<-w.done
		w.logger.Warn(ctx, "shutdown timed out, stream cancelled")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Pool manages one worker per stream.
type Pool struct {
	mu      sync.Mutex
	workers map[string]*StreamWorker
	factory Factory

	maxStreams      int
	queueCapacity   int
	shutdownTimeout time.Duration

	ctx     context.Context //nolint:containedctx // parent of every stream loop
	started bool
	stopped bool

	logger logger.Logger
}

// NewPool creates a pool that builds runners with factory.
func NewPool(factory Factory, opts ...PoolOption) *Pool {
	p := &Pool{
		workers:         make(map[string]*StreamWorker),
		factory:         factory,
		maxStreams:      defaultMaxStreams,
		queueCapacity:   defaultQueueCapacity,
		shutdownTimeout: defaultShutdownTimeout,
		logger:          logger.Get().Named("worker-pool"),
	}
	for _, opt := range opts {
		opt(p)
	}
	metrics.UpdateQueueCapacity(p.queueCapacity)
	metrics.UpdateActiveStreams(0)
	return p
}

// Start records the parent context for stream loops.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ctx = ctx
	p.started = true
}

// Acquire returns the running worker for id, starting one if needed. A worker
// whose loop already ended is replaced.
func (p *Pool) Acquire(id string) (*StreamWorker, error) {
	if id == "" {
		return nil, ErrEmptyID
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started || p.stopped {
		return nil, ErrStopped
	}
	if w, ok := p.workers[id]; ok {
		select {
		case <-w.Done():
			delete(p.workers, id)
		default:
			return w, nil
		}
	}
	if p.runningLocked() >= p.maxStreams {
		return nil, fmt.Errorf("%w: limit %d", ErrPoolFull, p.maxStreams)
	}

	r := p.factory(id)
	if r == nil {
		return nil, ErrNilRunner
	}
	q := queue.NewFrameQueue(queue.WithCapacity(p.queueCapacity), queue.WithStream(id))
	w := NewStreamWorker(id, q, r, WithLogger(p.logger))
	w.Start(p.ctx)
	p.workers[id] = w

	metrics.UpdateActiveStreams(p.runningLocked())
	p.logger.Info(p.ctx, "stream started", logger.String("stream", id))
	return w, nil
}

// Get returns the worker for id if one exists.
func (p *Pool) Get(id string) (*StreamWorker, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	w, ok := p.workers[id]
	return w, ok
}

// IDs returns the known stream ids in sorted order.
func (p *Pool) IDs() []string {
	p.mu.Lock()
	ids := lo.Keys(p.workers)
	p.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// Running returns the number of live stream loops.
func (p *Pool) Running() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runningLocked()
}

func (p *Pool) runningLocked() int {
	return lo.CountBy(lo.Values(p.workers), func(w *StreamWorker) bool {
		select {
		case <-w.Done():
			return false
		default:
			return true
		}
	})
}

// Remove drains and stops the stream and forgets it.
func (p *Pool) Remove(ctx context.Context, id string) error {
	p.mu.Lock()
	w, ok := p.workers[id]
	if ok {
		delete(p.workers, id)
	}
	p.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNoStream, id)
	}

	sctx, cancel := context.WithTimeout(ctx, p.shutdownTimeout)
	defer cancel()
	err := w.Shutdown(sctx)

	metrics.ForgetStream(id)
	metrics.UpdateActiveStreams(p.Running())
	return err
}

// Shutdown stops every stream. Streams drain concurrently.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	workers := lo.Values(p.workers)
	p.workers = make(map[string]*StreamWorker)
	p.mu.Unlock()

	sctx, cancel := context.WithTimeout(ctx, p.shutdownTimeout)
	defer cancel()

	var wg sync.WaitGroup
	errs := make([]error, len(workers))
	for i, w := range workers {
		wg.Add(1)
		go func(i int, w *StreamWorker) {
			defer wg.Done()
			errs[i] = w.Shutdown(sctx)
			metrics.ForgetStream(w.ID())
		}(i, w)
	}
	wg.Wait()

	metrics.UpdateActiveStreams(0)
	return errors.Join(errs...)
}
