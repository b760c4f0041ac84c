package valuetable

import "errors"

// Sentinel kinds for value table errors.
var (
	ErrUnknownClass = errors.New("unknown class")
	ErrInvalidTable = errors.New("invalid class value table")
)
