package service

import (
	"github.com/okian/coinsum/internal/domain/valuetable"
	"github.com/okian/coinsum/pkg/logger"
)

// ControllerOption applies a configuration option to a Controller.
type ControllerOption func(*Controller)

// WithStreamID names the stream in logs, metrics and outcomes.
func WithStreamID(id string) ControllerOption {
	return func(c *Controller) {
		if id != "" {
			c.streamID = id
		}
	}
}

// WithCurrency sets the suffix used when logging totals.
func WithCurrency(currency string) ControllerOption {
	return func(c *Controller) {
		c.currency = currency
	}
}

// WithControllerLogger sets a custom logger for the controller.
func WithControllerLogger(l logger.Logger) ControllerOption {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithTable sets the shared class value table.
func WithTable(t *valuetable.Table) Option {
	return func(s *Service) {
		if t != nil {
			s.table = t
		}
	}
}

// WithSettings sets the post-processing thresholds.
func WithSettings(settings Settings) Option {
	return func(s *Service) {
		s.settings = settings
	}
}

// WithExecutionContext sets the device every stream controller targets.
func WithExecutionContext(exec ExecutionContext) Option {
	return func(s *Service) {
		s.exec = exec
	}
}

// WithModelFactory sets how the model of a new stream is built.
func WithModelFactory(f func(streamID string) Model) Option {
	return func(s *Service) {
		if f != nil {
			s.newModel = f
		}
	}
}

// WithQueueSize sets the per-stream frame queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithMaxStreams caps concurrently running streams.
func WithMaxStreams(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxStreams = n
		}
	}
}

// WithInputSize sets the square model input resolution and the stride it
// is aligned to when images are letterboxed.
func WithInputSize(size, stride int) Option {
	return func(s *Service) {
		if size > 0 && stride > 0 {
			s.inputSize, s.stride = size, stride
		}
	}
}

// WithDedupeSize sets how many recent frame ids are remembered to reject
// resubmissions. Values <= 0 remember every id.
func WithDedupeSize(n int) Option {
	return func(s *Service) {
		s.dedupeSize = n
	}
}

// WithCurrencyName sets the currency suffix used in rendered totals.
func WithCurrencyName(currency string) Option {
	return func(s *Service) {
		s.currency = currency
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
