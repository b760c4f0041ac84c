package inference

import "errors"

// Sentinel error kinds for this package.
var (
	ErrNoRecording  = errors.New("no recorded output for frame")
	ErrBadRecording = errors.New("invalid recording")
)
