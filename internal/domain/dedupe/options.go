package dedupe

// Option applies a configuration option to the in-memory deduper.
type Option func(*window)

// WithMaxSize sets how many keys are remembered. Values <= 0 disable
// eviction.
func WithMaxSize(maxSize int) Option {
	return func(d *window) {
		d.maxSize = maxSize
	}
}
