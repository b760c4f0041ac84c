package geometry_test

import (
	"math"
	"testing"

	"github.com/okian/coinsum/internal/domain/geometry"
	. "github.com/smartystreets/goconvey/convey"
)

func TestToCorners(t *testing.T) {
	Convey("Given a center-form box", t, func() {
		b := geometry.ToCorners(150, 100, 50, 20)

		Convey("Then corners are computed exactly", func() {
			So(b, ShouldResemble, geometry.Box{X1: 125, Y1: 90, X2: 175, Y2: 110})
		})

		Convey("And fractional sizes are not rounded", func() {
			f := geometry.ToCorners(10.25, 10.25, 0.5, 0.5)
			So(f.X1, ShouldEqual, 10.0)
			So(f.X2, ShouldEqual, 10.5)
		})
	})
}

func TestArea(t *testing.T) {
	Convey("Given boxes of different shapes", t, func() {
		Convey("Then a regular box has width times height", func() {
			So(geometry.Area(geometry.Box{X1: 0, Y1: 0, X2: 4, Y2: 5}), ShouldEqual, 20)
		})

		Convey("And degenerate boxes have zero area", func() {
			So(geometry.Area(geometry.Box{X1: 3, Y1: 0, X2: 3, Y2: 5}), ShouldEqual, 0)
			So(geometry.Area(geometry.Box{X1: 0, Y1: 2, X2: 4, Y2: 2}), ShouldEqual, 0)
		})

		Convey("And inverted boxes never go negative", func() {
			So(geometry.Area(geometry.Box{X1: 5, Y1: 5, X2: 0, Y2: 0}), ShouldEqual, 0)
		})
	})
}

func TestIoU(t *testing.T) {
	Convey("Given pairs of boxes", t, func() {
		a := geometry.Box{X1: 0, Y1: 0, X2: 10, Y2: 10}
		b := geometry.Box{X1: 5, Y1: 0, X2: 15, Y2: 10}
		far := geometry.Box{X1: 20, Y1: 20, X2: 30, Y2: 30}
		touching := geometry.Box{X1: 10, Y1: 0, X2: 20, Y2: 10}
		point := geometry.Box{X1: 5, Y1: 5, X2: 5, Y2: 5}

		Convey("Then half-overlapping boxes have IoU 1/3", func() {
			So(geometry.IoU(a, b), ShouldAlmostEqual, 1.0/3.0, 1e-12)
		})

		Convey("And IoU is symmetric", func() {
			boxes := []geometry.Box{a, b, far, touching, point, {X1: 1.5, Y1: 2.25, X2: 9.75, Y2: 12}}
			for _, x := range boxes {
				for _, y := range boxes {
					So(geometry.IoU(x, y), ShouldEqual, geometry.IoU(y, x))
				}
			}
		})

		Convey("And IoU stays within [0,1]", func() {
			boxes := []geometry.Box{a, b, far, touching, point}
			for _, x := range boxes {
				for _, y := range boxes {
					v := geometry.IoU(x, y)
					So(v, ShouldBeBetweenOrEqual, 0, 1)
				}
			}
		})

		Convey("And a non-degenerate box has IoU 1 with itself", func() {
			So(geometry.IoU(a, a), ShouldEqual, 1)
			odd := geometry.ToCorners(0.1, 0.2, 0.3, 0.7)
			So(geometry.IoU(odd, odd), ShouldEqual, 1)
		})

		Convey("And disjoint or touching boxes have IoU 0", func() {
			So(geometry.IoU(a, far), ShouldEqual, 0)
			So(geometry.IoU(a, touching), ShouldEqual, 0)
		})

		Convey("And a zero-area box has IoU 0 even with itself", func() {
			So(geometry.IoU(point, point), ShouldEqual, 0)
			So(geometry.IoU(point, a), ShouldEqual, 0)
		})
	})
}

func TestValid(t *testing.T) {
	Convey("Given boxes with non-finite coordinates", t, func() {
		So(geometry.Box{X1: 1, Y1: 2, X2: 3, Y2: 4}.Valid(), ShouldBeTrue)
		So(geometry.Box{X1: math.NaN()}.Valid(), ShouldBeFalse)
		So(geometry.Box{Y2: math.Inf(1)}.Valid(), ShouldBeFalse)
	})
}
