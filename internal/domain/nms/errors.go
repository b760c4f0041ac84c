package nms

import "errors"

// Sentinel kinds for suppression errors.
var (
	ErrMalformedDetection = errors.New("malformed detection")
)
