package service

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrTerminated     = errors.New("pipeline terminated")
	ErrStreamNotFound = errors.New("stream not found")
	ErrBackpressure   = errors.New("stream backpressure")
	ErrNotStarted     = errors.New("service not started")
	ErrInference      = errors.New("inference failed")
	ErrReinitialize   = errors.New("model reinitialization failed")
	ErrDuplicateFrame = errors.New("duplicate frame")
)
