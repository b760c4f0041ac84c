package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given logger initialization", t, func() {
		Convey("When initialized with defaults", func() {
			So(Init(), ShouldBeNil)

			Convey("Then a global logger is available", func() {
				So(Get(), ShouldNotBeNil)
				So(Named("test"), ShouldNotBeNil)
				So(Sync(), ShouldBeNil)
			})
		})

		Convey("When an unknown format is requested", func() {
			err := Init(WithFormat("xml"))

			Convey("Then initialization fails", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When an unknown level is requested", func() {
			err := Init(WithLevel("chatty"))

			Convey("Then initialization fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestLoggerJSONOutput(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(Init(WithWriter(&buf), WithFormat("json")), ShouldBeNil)
		ctx := context.Background()

		Convey("When a message is logged with fields", func() {
			Get().Info(ctx, "frame processed",
				String("frame_id", "f-1"),
				Int("detections", 3),
				Bool("warm", true),
				Error(errors.New("boom")),
			)

			var entry map[string]any
			So(json.Unmarshal(buf.Bytes(), &entry), ShouldBeNil)

			Convey("Then fields and source are encoded", func() {
				So(entry["msg"], ShouldEqual, "frame processed")
				So(entry["frame_id"], ShouldEqual, "f-1")
				So(entry["detections"], ShouldEqual, float64(3))
				So(entry["warm"], ShouldEqual, true)
				So(entry["error"], ShouldEqual, "boom")
				So(entry["source"], ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When a logger carries fields", func() {
			Get().With(String("stream", "cam-1")).Warn(ctx, "queue full")

			Convey("Then every entry includes them", func() {
				So(buf.String(), ShouldContainSubstring, `"stream":"cam-1"`)
				So(buf.String(), ShouldContainSubstring, `"level":"WARN"`)
			})
		})

		Convey("When the level is raised", func() {
			So(SetLevelString("error"), ShouldBeNil)
			Get().Info(ctx, "hidden")
			Get().Debug(ctx, "hidden")

			Convey("Then lower levels are dropped", func() {
				So(buf.Len(), ShouldEqual, 0)
			})
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level names", t, func() {
		for _, lvl := range []string{"debug", "INFO", " warn ", "warning", "error", ""} {
			So(SetLevelString(lvl), ShouldBeNil)
		}
		So(SetLevelString("verbose"), ShouldNotBeNil)
	})
}
