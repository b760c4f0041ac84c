package replay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/coinsum/internal/adapters/inference"
	service "github.com/okian/coinsum/internal/app"
	"github.com/okian/coinsum/internal/domain/model"
	"github.com/okian/coinsum/pkg/logger"
)

// ErrRejected reports a frame the service kept refusing.
var ErrRejected = errors.New("frame rejected")

// frameBody is the wire form accepted by POST /streams/{id}/frames.
type frameBody struct {
	FrameID    string                    `json:"frame_id"`
	Width      int                       `json:"width"`
	Height     int                       `json:"height"`
	Shape      model.Shape               `json:"shape"`
	Transform  *model.LetterboxTransform `json:"transform,omitempty"`
	Detections []model.RawDetection      `json:"detections"`
}

// ackResponse represents the response from frame submission
type ackResponse struct {
	Status    string `json:"status"`
	FrameID   string `json:"frame_id"`
	Duplicate bool   `json:"duplicate"`
}

// counters aggregates per-stream results under a mutex.
type counters struct {
	mu    sync.Mutex
	stats *Stats
}

func (c *counters) add(fn func(s *Stats)) {
	c.mu.Lock()
	fn(c.stats)
	c.mu.Unlock()
}

// RunRemote submits rec to every configured stream of a running service, in
// recorded order per stream, then waits for each stream to drain.
func RunRemote(ctx context.Context, cfg *Config, rec *inference.Recording) (*Stats, error) {
	client := newHTTPClient(cfg.Timeout)
	agg := &counters{stats: &Stats{}}

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range cfg.streamIDs() {
		g.Go(func() error {
			sent, err := submitStream(gctx, client, cfg, id, rec, agg)
			if err != nil {
				return fmt.Errorf("stream %s: %w", id, err)
			}
			if sent == 0 {
				return nil
			}
			st, err := waitDrained(gctx, client, cfg.BaseURL, id, sent, lastFrameID(rec))
			if err != nil {
				return fmt.Errorf("stream %s: %w", id, err)
			}
			agg.add(func(s *Stats) {
				s.FramesProcessed += st.Stats.FramesProcessed
				s.FramesFailed += st.Stats.FramesFailed
				if st.Latest != nil && st.Error == "" {
					s.LastTotal = st.Latest.Result.FormatTotal(cfg.Currency)
				}
			})
			logger.Get().Info(gctx, "stream drained",
				logger.String("stream", id),
				logger.Int("processed", st.Stats.FramesProcessed),
				logger.Int("failed", st.Stats.FramesFailed),
				logger.Int("last_total", st.Stats.LastTotalValue))
			return nil
		})
	}
	err := g.Wait()
	return agg.stats, err
}

// submitStream posts every frame to one stream, resending on backpressure.
func submitStream(ctx context.Context, client *HTTPClient, cfg *Config, id string, rec *inference.Recording, agg *counters) (int, error) {
	endpoint := fmt.Sprintf("%s/streams/%s/frames", cfg.BaseURL, url.PathEscape(id))
	sent := 0
	for _, rf := range rec.Frames {
		body := frameBody{
			FrameID:    rf.ID,
			Width:      rf.Width,
			Height:     rf.Height,
			Shape:      rf.Shape,
			Transform:  rf.Transform,
			Detections: rf.Detections,
		}
		if err := submitFrame(ctx, client, endpoint, body, agg); err != nil {
			return sent, err
		}
		sent++
		if cfg.Verbose {
			logger.Get().Debug(ctx, "frame submitted", logger.String("stream", id), logger.String("frame_id", rf.ID))
		}
	}
	return sent, nil
}

func submitFrame(ctx context.Context, client *HTTPClient, endpoint string, body frameBody, agg *counters) error {
	agg.add(func(s *Stats) { s.FramesSent++ })
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		resp, err := client.Post(ctx, endpoint, body)
		if err != nil {
			return err
		}
		data, err := readResponseBody(resp)
		if err != nil {
			return err
		}

		switch resp.StatusCode {
		case StatusOK:
			// The service already holds this frame id on the stream.
			var ack ackResponse
			if err := json.Unmarshal(data, &ack); err != nil || !ack.Duplicate {
				return fmt.Errorf("unexpected ack %q", data)
			}
			agg.add(func(s *Stats) { s.FramesDuplicate++ })
			return nil
		case StatusAccepted:
			var ack ackResponse
			if err := json.Unmarshal(data, &ack); err != nil || ack.Status != "accepted" {
				return fmt.Errorf("unexpected ack %q", data)
			}
			agg.add(func(s *Stats) { s.FramesAccepted++ })
			return nil
		case StatusTooManyRequests:
			agg.add(func(s *Stats) { s.FramesRetried++ })
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(RetryDelay):
			}
		default:
			agg.add(func(s *Stats) { s.FramesRejected++ })
			return fmt.Errorf("%w: %s: status %d: %s", ErrRejected, body.FrameID, resp.StatusCode, data)
		}
	}
	agg.add(func(s *Stats) { s.FramesRejected++ })
	return fmt.Errorf("%w: %s: still backpressured after %d retries", ErrRejected, body.FrameID, MaxRetries)
}

func lastFrameID(rec *inference.Recording) string {
	if len(rec.Frames) == 0 {
		return ""
	}
	return rec.Frames[len(rec.Frames)-1].ID
}

// waitDrained polls the stream until it has handled sent frames and
// published the outcome of the last one.
func waitDrained(ctx context.Context, client *HTTPClient, baseURL, id string, sent int, lastID string) (service.StreamStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, DrainTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/streams/%s", baseURL, url.PathEscape(id))
	for {
		st, err := fetchStatus(ctx, client, endpoint)
		if err != nil {
			return st, err
		}
		done := st.Stats.FramesProcessed+st.Stats.FramesFailed >= sent
		if done && (lastID == "" || st.Latest != nil && st.Latest.FrameID == lastID) {
			return st, nil
		}
		select {
		case <-ctx.Done():
			return st, fmt.Errorf("waiting for stream to drain: %w", ctx.Err())
		case <-time.After(PollInterval):
		}
	}
}

func fetchStatus(ctx context.Context, client *HTTPClient, endpoint string) (service.StreamStatus, error) {
	resp, err := client.Get(ctx, endpoint)
	if err != nil {
		return service.StreamStatus{}, err
	}
	data, err := readResponseBody(resp)
	if err != nil {
		return service.StreamStatus{}, err
	}
	if resp.StatusCode != StatusOK {
		return service.StreamStatus{}, fmt.Errorf("stream status: %d: %s", resp.StatusCode, data)
	}
	var st service.StreamStatus
	if err := json.Unmarshal(data, &st); err != nil {
		return service.StreamStatus{}, fmt.Errorf("decode stream status: %w", err)
	}
	return st, nil
}
