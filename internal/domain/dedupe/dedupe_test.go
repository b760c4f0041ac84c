package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/coinsum/internal/domain/dedupe"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new deduper", t, func() {
		d := dedupe.NewInMemoryDeduper()

		Convey("Then it starts empty", func() {
			So(d.Size(), ShouldEqual, 0)
		})

		Convey("When a key is recorded twice", func() {
			first := d.SeenAndRecord(ctx, "k1")
			second := d.SeenAndRecord(ctx, "k1")

			Convey("Then only the second call reports it as seen", func() {
				So(first, ShouldBeFalse)
				So(second, ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When a key is unrecorded", func() {
			d.SeenAndRecord(ctx, "k1")
			d.Unrecord(ctx, "k1")

			Convey("Then it can be recorded again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "k1"), ShouldBeFalse)
			})

			Convey("And unrecording an unknown key is a no-op", func() {
				d.Unrecord(ctx, "missing")
				So(d.Size(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a deduper bounded to three keys", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
		for _, k := range []string{"a", "b", "c", "d"} {
			So(d.SeenAndRecord(ctx, k), ShouldBeFalse)
		}

		Convey("Then the oldest key is evicted first", func() {
			So(d.Size(), ShouldEqual, 3)
			So(d.SeenAndRecord(ctx, "d"), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, "c"), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, "a"), ShouldBeFalse)
		})

		Convey("And an unrecorded slot is reused without losing newer keys", func() {
			d.Unrecord(ctx, "c")
			So(d.Size(), ShouldEqual, 2)
			So(d.SeenAndRecord(ctx, "e"), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, "d"), ShouldBeTrue)
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
		for i := 0; i < 10000; i++ {
			d.SeenAndRecord(ctx, fmt.Sprintf("k%d", i))
		}
		So(d.Size(), ShouldEqual, 10000)
		So(d.SeenAndRecord(ctx, "k0"), ShouldBeTrue)
	})
}

func TestKey(t *testing.T) {
	Convey("Given frame ids on different streams", t, func() {
		So(dedupe.Key("cam-1", "f1"), ShouldNotEqual, dedupe.Key("cam-2", "f1"))
		So(dedupe.Key("a", "bc"), ShouldNotEqual, dedupe.Key("ab", "c"))
	})
}

func TestUnrecordStream(t *testing.T) {
	ctx := context.Background()

	Convey("Given keys recorded on two streams", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(8))
		d.SeenAndRecord(ctx, dedupe.Key("cam", "f1"))
		d.SeenAndRecord(ctx, dedupe.Key("cam", "f2"))
		d.SeenAndRecord(ctx, dedupe.Key("cam-2", "f1"))

		Convey("When one stream is forgotten", func() {
			n := d.UnrecordStream(ctx, "cam")

			Convey("Then only that stream's keys are dropped", func() {
				So(n, ShouldEqual, 2)
				So(d.Size(), ShouldEqual, 1)
				So(d.SeenAndRecord(ctx, dedupe.Key("cam", "f1")), ShouldBeFalse)
				So(d.SeenAndRecord(ctx, dedupe.Key("cam-2", "f1")), ShouldBeTrue)
			})
		})

		Convey("When an unknown stream is forgotten", func() {
			So(d.UnrecordStream(ctx, "other"), ShouldEqual, 0)
			So(d.Size(), ShouldEqual, 3)
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
		d.SeenAndRecord(ctx, dedupe.Key("cam", "f1"))
		So(d.UnrecordStream(ctx, "cam"), ShouldEqual, 1)
		So(d.Size(), ShouldEqual, 0)
	})
}

func TestConcurrentSeenAndRecord(t *testing.T) {
	Convey("Given many goroutines racing on the same keys", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(1000))
		var (
			wg    sync.WaitGroup
			mu    sync.Mutex
			fresh int
		)
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					if !d.SeenAndRecord(context.Background(), fmt.Sprintf("k%d", i)) {
						mu.Lock()
						fresh++
						mu.Unlock()
					}
				}
			}()
		}
		wg.Wait()

		Convey("Then each key is fresh exactly once", func() {
			So(fresh, ShouldEqual, 100)
			So(d.Size(), ShouldEqual, 100)
		})
	})
}
