package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/coinsum/internal/adapters/http/api"
	"github.com/okian/coinsum/internal/adapters/http/swagger"
	"github.com/okian/coinsum/internal/config"
	"github.com/okian/coinsum/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestNewService(t *testing.T) {
	convey.Convey("Given configuration from the environment", t, func() {
		t.Setenv("COINSUM_ADDR", ":8080")
		t.Setenv("COINSUM_FRAME_QUEUE_SIZE", "4")
		t.Setenv("COINSUM_CONFIDENCE_THRESHOLD", "0.25")
		t.Setenv("COINSUM_CURRENCY", "eur")
		t.Setenv("COINSUM_DEDUPE_SIZE", "16")

		cfg, err := config.Load(context.Background())
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When the service is built from it", func() {
			svc, err := newService(cfg, logger.Get())
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the settings are carried over", func() {
				stats := svc.GetStats()
				convey.So(stats["queue_size"], convey.ShouldEqual, 4)
				convey.So(stats["confidence_threshold"], convey.ShouldEqual, 0.25)
				convey.So(stats["input_size"], convey.ShouldEqual, 640)
				convey.So(stats["dedupe_size"], convey.ShouldEqual, 16)
				convey.So(svc.Currency(), convey.ShouldEqual, "eur")
			})
		})

		convey.Convey("When the device is unknown", func() {
			cfg.Device = "tpu"
			_, err := newService(cfg, logger.Get())
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func defaultConfig() *config.Config {
	cfg := config.New()
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	return cfg
}

func TestServiceBehindRoutes(t *testing.T) {
	convey.Convey("Given a started service with registered routes", t, func() {
		ctx := context.Background()
		svc, err := newService(defaultConfig(), logger.Get())
		convey.So(err, convey.ShouldBeNil)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		mux := http.NewServeMux()
		swagger.Register(ctx, mux)
		api.NewServer(svc, svc).Register(ctx, mux)

		convey.Convey("Then health, stats and docs respond", func() {
			for _, path := range []string{"/healthz", "/stats", "/openapi.yaml", "/api-docs"} {
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			}
		})

		convey.Convey("And a one-shot frame is valued", func() {
			body := `{"width":100,"height":100,"transform":{"scale":1,"pad_x":0,"pad_y":0},` +
				`"detections":[{"cx":50,"cy":50,"w":20,"h":20,"objectness":1,"class_scores":[0,0,1]}]}`
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/detect", strings.NewReader(body)))
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, `"total":"10_yen"`)
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given the background metrics updaters", t, func() {
		convey.Convey("Then a system update does not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("And the updaters return once the context ends", func() {
			svc, err := newService(defaultConfig(), logger.Get())
			convey.So(err, convey.ShouldBeNil)
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			done := make(chan struct{})
			go func() {
				startSystemMetricsUpdater(ctx)
				startServiceMetricsUpdater(ctx, svc)
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("metrics updaters did not stop")
			}
		})
	})
}
