package remap_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/coinsum/internal/domain/geometry"
	"github.com/okian/coinsum/internal/domain/model"
	"github.com/okian/coinsum/internal/domain/remap"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRemap(t *testing.T) {
	Convey("Given the identity transform", t, func() {
		id := model.LetterboxTransform{Scale: 1}

		Convey("Then integral boxes are returned unchanged", func() {
			out, err := remap.Remap(geometry.Box{X1: 10, Y1: 20, X2: 30, Y2: 40}, id, 640, 480)
			So(err, ShouldBeNil)
			So(out, ShouldResemble, model.PixelBox{X1: 10, Y1: 20, X2: 30, Y2: 40})
		})
	})

	Convey("Given scale 2 and a horizontal pad of 10", t, func() {
		tr := model.LetterboxTransform{Scale: 2, PadX: 10}
		out, err := remap.Remap(geometry.Box{X1: 100, Y1: 100, X2: 200, Y2: 200}, tr, 640, 480)

		Convey("Then pad is removed before dividing by scale", func() {
			So(err, ShouldBeNil)
			So(out, ShouldResemble, model.PixelBox{X1: 45, Y1: 50, X2: 95, Y2: 100})
		})
	})

	Convey("Given fractional results", t, func() {
		tr := model.LetterboxTransform{Scale: 2}
		out, err := remap.Remap(geometry.Box{X1: 5, Y1: 3, X2: 7.2, Y2: 9}, tr, 100, 100)

		Convey("Then coordinates round to nearest with halves to even", func() {
			So(err, ShouldBeNil)
			So(out, ShouldResemble, model.PixelBox{X1: 2, Y1: 2, X2: 4, Y2: 4})
		})
	})

	Convey("Given a box extending beyond the frame", t, func() {
		tr := model.LetterboxTransform{Scale: 1, PadX: 0, PadY: 80}
		out, err := remap.Remap(geometry.Box{X1: -30, Y1: 40, X2: 700, Y2: 700}, tr, 640, 480)

		Convey("Then each coordinate is clamped independently", func() {
			So(err, ShouldBeNil)
			So(out, ShouldResemble, model.PixelBox{X1: 0, Y1: 0, X2: 640, Y2: 480})
		})
	})

	Convey("Given an inverted box from upstream noise", t, func() {
		out, err := remap.Remap(geometry.Box{X1: 50, Y1: 60, X2: 40, Y2: 10}, model.LetterboxTransform{Scale: 1}, 100, 100)

		Convey("Then corners are reordered", func() {
			So(err, ShouldBeNil)
			So(out.X1, ShouldBeLessThanOrEqualTo, out.X2)
			So(out.Y1, ShouldBeLessThanOrEqualTo, out.Y2)
			So(out, ShouldResemble, model.PixelBox{X1: 40, Y1: 10, X2: 50, Y2: 60})
		})
	})

	Convey("Given arbitrary boxes", t, func() {
		tr := model.LetterboxTransform{Scale: 0.5, PadX: 3, PadY: 140}
		boxes := []geometry.Box{
			{X1: -1000, Y1: -1000, X2: 1000, Y2: 1000},
			{X1: 700, Y1: 700, X2: 900, Y2: 900},
			{X1: 10, Y1: 200, X2: 0, Y2: 150},
		}
		for _, b := range boxes {
			out, err := remap.Remap(b, tr, 1280, 720)
			So(err, ShouldBeNil)
			So(out.X1, ShouldBeBetweenOrEqual, 0, 1280)
			So(out.X2, ShouldBeBetweenOrEqual, 0, 1280)
			So(out.Y1, ShouldBeBetweenOrEqual, 0, 720)
			So(out.Y2, ShouldBeBetweenOrEqual, 0, 720)
			So(out.X1, ShouldBeLessThanOrEqualTo, out.X2)
			So(out.Y1, ShouldBeLessThanOrEqualTo, out.Y2)
		}
	})

	Convey("Given invalid transforms", t, func() {
		b := geometry.Box{X2: 1, Y2: 1}
		for _, tr := range []model.LetterboxTransform{
			{Scale: 0},
			{Scale: -1},
			{Scale: math.NaN()},
			{Scale: 1, PadX: math.Inf(-1)},
		} {
			_, err := remap.Remap(b, tr, 10, 10)
			So(errors.Is(err, remap.ErrInvalidTransform), ShouldBeTrue)
		}

		Convey("And a non-positive frame size is rejected", func() {
			_, err := remap.Remap(b, model.LetterboxTransform{Scale: 1}, 0, 10)
			So(errors.Is(err, remap.ErrInvalidTransform), ShouldBeTrue)
		})
	})
}

func TestCache(t *testing.T) {
	Convey("Given an empty cache", t, func() {
		var c remap.Cache

		Convey("When no transform is reported", func() {
			_, err := c.Resolve(nil, 640, 480)

			Convey("Then resolution fails", func() {
				So(errors.Is(err, remap.ErrInvalidTransform), ShouldBeTrue)
			})
		})

		Convey("When a transform is reported", func() {
			tr := model.LetterboxTransform{Scale: 1, PadY: 80}
			got, err := c.Resolve(&tr, 640, 480)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, tr)

			Convey("Then later frames of the same size reuse it", func() {
				again, err := c.Resolve(nil, 640, 480)
				So(err, ShouldBeNil)
				So(again, ShouldResemble, tr)
			})

			Convey("And a new report replaces it", func() {
				next := model.LetterboxTransform{Scale: 0.5, PadY: 140}
				got, err := c.Resolve(&next, 1280, 720)
				So(err, ShouldBeNil)
				So(got, ShouldResemble, next)
			})

			Convey("And a size change without a report invalidates it", func() {
				_, err := c.Resolve(nil, 1280, 720)
				So(errors.Is(err, remap.ErrInvalidTransform), ShouldBeTrue)
				So(c.Cached(), ShouldBeFalse)
			})

			Convey("And Reset releases it", func() {
				c.Reset()
				So(c.Cached(), ShouldBeFalse)
			})
		})

		Convey("When an invalid transform is reported", func() {
			_, err := c.Resolve(&model.LetterboxTransform{Scale: 0}, 640, 480)
			So(errors.Is(err, remap.ErrInvalidTransform), ShouldBeTrue)
			So(c.Cached(), ShouldBeFalse)
		})
	})
}
