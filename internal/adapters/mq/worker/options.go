package worker

import (
	"time"

	"github.com/okian/coinsum/pkg/logger"
)

// Option applies a configuration option to a StreamWorker.
type Option func(*StreamWorker)

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *StreamWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// PoolOption applies a configuration option to the Pool.
type PoolOption func(*Pool)

// WithMaxStreams caps the number of concurrently running streams.
func WithMaxStreams(n int) PoolOption {
	return func(p *Pool) {
		if n > 0 {
			p.maxStreams = n
		}
	}
}

// WithQueueCapacity sets the per-stream frame queue capacity.
func WithQueueCapacity(n int) PoolOption {
	return func(p *Pool) {
		if n > 0 {
			p.queueCapacity = n
		}
	}
}

// WithShutdownTimeout bounds how long a stream may take to drain.
func WithShutdownTimeout(d time.Duration) PoolOption {
	return func(p *Pool) {
		if d > 0 {
			p.shutdownTimeout = d
		}
	}
}

// WithPoolLogger sets a custom logger for the pool.
func WithPoolLogger(l logger.Logger) PoolOption {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}
