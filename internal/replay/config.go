package replay

import (
	"strconv"
	"time"
)

// Config holds configuration for a replay run.
type Config struct {
	Recording string        // path to the JSON recording
	BaseURL   string        // service URL; empty replays in process
	Stream    string        // stream id, or id prefix when Streams > 1
	Streams   int           // concurrent copies of the recording sent remotely
	Timeout   time.Duration // HTTP request timeout
	Device    string        // cpu or gpu, local runs only
	Currency  string        // suffix for rendered totals
	Verbose   bool          // log every frame

	ConfidenceThreshold float64
	IoUThreshold        float64
}

// Stats holds replay statistics.
type Stats struct {
	FramesSent      int
	FramesAccepted  int
	FramesRetried   int
	FramesDuplicate int
	FramesRejected  int
	FramesProcessed int
	FramesFailed    int
	LastTotal       string
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}

func (c *Config) streamIDs() []string {
	if c.Streams <= 1 {
		return []string{c.Stream}
	}
	ids := make([]string, c.Streams)
	for i := range ids {
		ids[i] = c.Stream + "-" + strconv.Itoa(i+1)
	}
	return ids
}
