// Package queue holds the bounded per-stream frame queue.
//
// Enqueue never blocks: a full or closed queue rejects the frame and the
// caller decides whether to drop it or report backpressure. Frames come out
// of Dequeue in arrival order.
package queue

import (
	"context"
	"sync"

	"github.com/okian/coinsum/internal/domain/model"
	"github.com/okian/coinsum/pkg/metrics"
)

const defaultCapacity = 8

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a frame to the queue.
	// Returns false if the queue is full or closed.
	Enqueue(ctx context.Context, f model.Frame) bool

	// Dequeue returns a channel that yields frames in arrival order.
	// The channel is closed once the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan model.Frame

	// Len returns the current number of queued frames.
	Len(ctx context.Context) int

	// Close stops accepting frames. Frames already queued are still delivered.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// FrameQueue implements Queue using a buffered channel.
type FrameQueue struct {
	frames   chan model.Frame
	capacity int
	stream   string

	mu     sync.RWMutex
	closed bool
}

// NewFrameQueue creates a queue with configuration options.
func NewFrameQueue(opts ...Option) *FrameQueue {
	q := &FrameQueue{
		capacity: defaultCapacity,
		stream:   "default",
	}
	for _, opt := range opts {
		opt(q)
	}

	q.frames = make(chan model.Frame, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(q.stream, 0, q.capacity)

	return q
}

// TryEnqueue adds a frame or reports why it could not. The error is ErrFull
// or ErrClosed, or the context error when ctx is already done.
func (q *FrameQueue) TryEnqueue(ctx context.Context, f model.Frame) error { //nolint:gocritic // hugeParam: frames travel by value over the channel
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError("closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError("context_cancelled")
		return err
	}

	select {
	case q.frames <- f:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(q.stream, len(q.frames), q.capacity)
		return nil
	default:
		metrics.RecordQueueEnqueueError("full")
		return ErrFull
	}
}

// Enqueue adds a frame to the queue.
func (q *FrameQueue) Enqueue(ctx context.Context, f model.Frame) bool { //nolint:gocritic // hugeParam: frames travel by value over the channel
	return q.TryEnqueue(ctx, f) == nil
}

// Dequeue returns a channel that receives frames as they become available.
func (q *FrameQueue) Dequeue(ctx context.Context) <-chan model.Frame {
	out := make(chan model.Frame)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case f, ok := <-q.frames:
				if !ok {
					return
				}
				select {
				case out <- f:
					metrics.RecordQueueDequeue()
					metrics.UpdateQueueSize(q.stream, len(q.frames), q.capacity)
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Len returns the current number of queued frames.
func (q *FrameQueue) Len(_ context.Context) int {
	return len(q.frames)
}

// Cap returns the queue capacity.
func (q *FrameQueue) Cap() int {
	return q.capacity
}

// Close gracefully shuts down the queue.
func (q *FrameQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.frames)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *FrameQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
