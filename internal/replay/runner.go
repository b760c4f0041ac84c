// Package replay drives recorded detector output through the coin counting
// pipeline, either in process or against a running service.
package replay

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/okian/coinsum/internal/adapters/inference"
	"github.com/okian/coinsum/pkg/logger"
)

// Run executes a complete replay and logs the final statistics.
func Run(ctx context.Context, cfg *Config, out io.Writer) (*Stats, error) {
	start := time.Now()

	logger.Get().Info(ctx, "starting coinsum replay",
		logger.String("recording", cfg.Recording),
		logger.String("baseURL", cfg.BaseURL),
		logger.String("stream", cfg.Stream),
		logger.Int("streams", cfg.Streams),
		logger.Bool("verbose", cfg.Verbose))

	rec, err := inference.LoadRecording(cfg.Recording)
	if err != nil {
		return nil, fmt.Errorf("recording load failed: %w", err)
	}
	logger.Get().Info(ctx, "recording loaded", logger.Int("frames", len(rec.Frames)))

	var stats *Stats
	if cfg.BaseURL == "" {
		stats, err = RunLocal(ctx, cfg, rec, out)
	} else {
		if err := checkServiceHealth(ctx, cfg); err != nil {
			return nil, fmt.Errorf("service health check failed: %w", err)
		}
		stats, err = RunRemote(ctx, cfg, rec)
	}
	if stats != nil {
		stats.StartTime = start
		stats.EndTime = time.Now()
		stats.Duration = stats.EndTime.Sub(start)
		displayFinalStats(ctx, stats)
	}
	if err != nil {
		return stats, err
	}

	logger.Get().Info(ctx, "replay completed successfully")
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, cfg *Config) error {
	client := newHTTPClient(cfg.Timeout)
	resp, err := client.Get(ctx, cfg.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if _, err := readResponseBody(resp); err != nil {
		return err
	}
	// Any 200 is healthy; the body is the Prometheus exposition.
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	return nil
}

// displayFinalStats logs the final replay statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var framesPerSecond float64
	if stats.Duration > 0 {
		framesPerSecond = float64(stats.FramesSent) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("framesSent", stats.FramesSent),
		logger.Int("framesAccepted", stats.FramesAccepted),
		logger.Int("framesRetried", stats.FramesRetried),
		logger.Int("framesDuplicate", stats.FramesDuplicate),
		logger.Int("framesRejected", stats.FramesRejected),
		logger.Int("framesProcessed", stats.FramesProcessed),
		logger.Int("framesFailed", stats.FramesFailed),
		logger.String("lastTotal", stats.LastTotal),
		logger.Duration("duration", stats.Duration),
		logger.Float64("framesPerSecond", framesPerSecond))
}
