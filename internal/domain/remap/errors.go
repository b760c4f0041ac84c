package remap

import "errors"

// Sentinel kinds for remapping errors.
var (
	ErrInvalidTransform = errors.New("invalid letterbox transform")
)
