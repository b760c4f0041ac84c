package worker

import "errors"

// Sentinel kinds for pool errors.
var (
	ErrStopped   = errors.New("worker pool stopped")
	ErrPoolFull  = errors.New("too many streams")
	ErrNoStream  = errors.New("stream not found")
	ErrNilRunner = errors.New("runner factory returned nil")
	ErrEmptyID   = errors.New("stream id must not be empty")
)
