package queue

// Option applies a configuration option to the FrameQueue.
type Option func(*FrameQueue)

// WithCapacity sets the maximum number of waiting frames.
func WithCapacity(capacity int) Option {
	return func(q *FrameQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// WithStream labels the queue metrics with a stream id.
func WithStream(id string) Option {
	return func(q *FrameQueue) {
		if id != "" {
			q.stream = id
		}
	}
}
