package replay

import (
	"context"
	"fmt"
	"io"

	"github.com/okian/coinsum/internal/adapters/inference"
	service "github.com/okian/coinsum/internal/app"
	"github.com/okian/coinsum/internal/domain/model"
	"github.com/okian/coinsum/internal/domain/valuetable"
	"github.com/okian/coinsum/pkg/logger"
)

// RunLocal replays rec through a single in-process controller and writes one
// line per frame to out.
func RunLocal(ctx context.Context, cfg *Config, rec *inference.Recording, out io.Writer) (*Stats, error) {
	table, err := valuetable.New(valuetable.Default())
	if err != nil {
		return nil, err
	}
	settings := service.DefaultSettings()
	settings.ConfidenceThreshold = cfg.ConfidenceThreshold
	settings.IoUThreshold = cfg.IoUThreshold
	post, err := service.NewPostProcessor(table, settings)
	if err != nil {
		return nil, err
	}
	device, err := service.ParseDevice(cfg.Device)
	if err != nil {
		return nil, err
	}

	replayModel := inference.NewReplay(rec)
	c := service.NewController(replayModel, post, service.ExecutionContext{Device: device},
		service.WithStreamID(cfg.Stream),
		service.WithCurrency(cfg.Currency),
	)

	stats := &Stats{}
	frames := feed(ctx, rec.PipelineFrames())
	sink := service.SinkFunc(func(ctx context.Context, o service.Outcome) {
		stats.FramesSent++
		if o.Err != nil {
			stats.FramesFailed++
			fmt.Fprintf(out, "%s\terror\t%v\n", o.FrameID, o.Err)
			return
		}
		stats.FramesProcessed++
		stats.LastTotal = o.Result.FormatTotal(cfg.Currency)
		fmt.Fprintf(out, "%s\t%s\t%s\n", o.FrameID, stats.LastTotal, o.Result.Summary())
		if cfg.Verbose {
			logger.Get().Debug(ctx, "frame replayed",
				logger.String("frame_id", o.FrameID),
				logger.Int("detections", len(o.Result.Detections)),
				logger.Int("total", o.Result.TotalValue))
		}
	})
	if err := c.Run(ctx, frames, sink); err != nil {
		return stats, fmt.Errorf("replay interrupted: %w", err)
	}

	st := c.Stats()
	logger.Get().Info(ctx, "local replay finished",
		logger.Int("frames", st.FramesProcessed),
		logger.Int("failed", st.FramesFailed),
		logger.Int("warm_ups", st.WarmUps),
		logger.Int("reinitializations", st.Reinitializations))
	return stats, nil
}

// feed delivers frames in order and closes the channel when done.
func feed(ctx context.Context, frames []model.Frame) <-chan model.Frame {
	ch := make(chan model.Frame)
	go func() {
		defer close(ch)
		for _, f := range frames {
			select {
			case <-ctx.Done():
				return
			case ch <- f:
			}
		}
	}()
	return ch
}
