package replay_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/coinsum/internal/adapters/http/api"
	service "github.com/okian/coinsum/internal/app"
	"github.com/okian/coinsum/internal/replay"
	"github.com/okian/coinsum/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// Two frames: a five-yen coin, then a ten and a one reusing the transform.
const recording = `{"frames":[
 {"id":"f1","width":320,"height":240,"shape":{"batch":1,"height":320,"width":320},
  "transform":{"scale":1,"pad_x":0,"pad_y":0},
  "detections":[{"cx":20,"cy":20,"w":20,"h":20,"objectness":0.9,"class_scores":[0,1,0,0,0,0]}]},
 {"id":"f2","width":320,"height":240,"shape":{"batch":1,"height":320,"width":320},
  "detections":[
   {"cx":120,"cy":120,"w":40,"h":40,"objectness":0.9,"class_scores":[0,0,1,0,0,0]},
   {"cx":220,"cy":120,"w":40,"h":40,"objectness":0.8,"class_scores":[1,0,0,0,0,0]}]}
]}`

func writeRecording(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "recording.json")
	if err := os.WriteFile(path, []byte(recording), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func baseConfig(path string) *replay.Config {
	return &replay.Config{
		Recording:           path,
		Stream:              "replay",
		Streams:             1,
		Timeout:             5 * time.Second,
		Device:              "cpu",
		Currency:            "yen",
		ConfidenceThreshold: 0.5,
		IoUThreshold:        0.4,
	}
}

func TestRunLocal(t *testing.T) {
	Convey("Given a recording replayed in process", t, func() {
		cfg := baseConfig(writeRecording(t))
		var out bytes.Buffer

		stats, err := replay.Run(context.Background(), cfg, &out)

		Convey("Then each frame prints its total and summary", func() {
			So(err, ShouldBeNil)
			lines := strings.Split(strings.TrimSpace(out.String()), "\n")
			So(lines, ShouldResemble, []string{
				"f1\t5_yen\t1 five",
				"f2\t11_yen\t1 one, 1 ten",
			})
		})

		Convey("And the statistics add up", func() {
			So(stats.FramesSent, ShouldEqual, 2)
			So(stats.FramesProcessed, ShouldEqual, 2)
			So(stats.FramesFailed, ShouldEqual, 0)
			So(stats.LastTotal, ShouldEqual, "11_yen")
			So(stats.Duration, ShouldBeGreaterThan, 0)
		})
	})

	Convey("Given a gpu replay", t, func() {
		cfg := baseConfig(writeRecording(t))
		cfg.Device = "gpu"
		var out bytes.Buffer

		stats, err := replay.Run(context.Background(), cfg, &out)

		Convey("Then warm-up does not change the results", func() {
			So(err, ShouldBeNil)
			So(stats.FramesProcessed, ShouldEqual, 2)
			So(stats.LastTotal, ShouldEqual, "11_yen")
		})
	})

	Convey("Given a missing recording", t, func() {
		cfg := baseConfig(filepath.Join(t.TempDir(), "missing.json"))
		_, err := replay.Run(context.Background(), cfg, &bytes.Buffer{})
		So(err, ShouldNotBeNil)
	})

	Convey("Given an unknown device", t, func() {
		cfg := baseConfig(writeRecording(t))
		cfg.Device = "tpu"
		_, err := replay.Run(context.Background(), cfg, &bytes.Buffer{})
		So(err, ShouldNotBeNil)
	})
}

func TestRunRemote(t *testing.T) {
	Convey("Given a running service over HTTP", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithQueueSize(1))
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		mux := http.NewServeMux()
		api.NewServer(svc, svc).Register(ctx, mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		Convey("When the recording is pushed to two streams", func() {
			cfg := baseConfig(writeRecording(t))
			cfg.BaseURL = srv.URL
			cfg.Streams = 2

			stats, err := replay.Run(ctx, cfg, &bytes.Buffer{})

			Convey("Then every frame is accepted and processed in order", func() {
				So(err, ShouldBeNil)
				So(stats.FramesSent, ShouldEqual, 4)
				So(stats.FramesAccepted, ShouldEqual, 4)
				So(stats.FramesRejected, ShouldEqual, 0)
				So(stats.FramesProcessed, ShouldEqual, 4)
				So(stats.LastTotal, ShouldEqual, "11_yen")
			})

			Convey("And both streams exist on the service", func() {
				So(err, ShouldBeNil)
				for _, id := range []string{"replay-1", "replay-2"} {
					st, err := svc.Stream(id)
					So(err, ShouldBeNil)
					So(st.Latest.FrameID, ShouldEqual, "f2")
				}
			})
		})

		Convey("When the same recording is pushed twice to one stream", func() {
			cfg := baseConfig(writeRecording(t))
			cfg.BaseURL = srv.URL
			_, err := replay.Run(ctx, cfg, &bytes.Buffer{})
			So(err, ShouldBeNil)

			stats, err := replay.Run(ctx, cfg, &bytes.Buffer{})

			Convey("Then the second run is acknowledged as duplicates", func() {
				So(err, ShouldBeNil)
				So(stats.FramesDuplicate, ShouldEqual, 2)
				So(stats.FramesAccepted, ShouldEqual, 0)
				So(stats.FramesProcessed, ShouldEqual, 2)
			})
		})

		Convey("When the service is unreachable", func() {
			cfg := baseConfig(writeRecording(t))
			cfg.BaseURL = "http://127.0.0.1:1"
			cfg.Timeout = 200 * time.Millisecond
			_, err := replay.Run(ctx, cfg, &bytes.Buffer{})
			So(err, ShouldNotBeNil)
		})
	})
}
