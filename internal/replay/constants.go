package replay

import "time"

// HTTP and polling constants.
const (
	StatusOK              = 200
	StatusAccepted        = 202
	StatusTooManyRequests = 429

	// RetryDelay is the pause before a frame rejected with 429 is resent.
	RetryDelay = 20 * time.Millisecond
	// MaxRetries bounds resends of one frame.
	MaxRetries = 50
	// PollInterval is the pause between stream status checks.
	PollInterval = 50 * time.Millisecond
	// DrainTimeout bounds the wait for a remote stream to finish its backlog.
	DrainTimeout = 30 * time.Second
)
