package queue

import "errors"

// Sentinel kinds for enqueue failures.
var (
	ErrFull   = errors.New("frame queue full")
	ErrClosed = errors.New("frame queue closed")
)
