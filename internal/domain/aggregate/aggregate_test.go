package aggregate_test

import (
	"errors"
	"testing"

	"github.com/okian/coinsum/internal/domain/aggregate"
	"github.com/okian/coinsum/internal/domain/model"
	"github.com/okian/coinsum/internal/domain/valuetable"
	. "github.com/smartystreets/goconvey/convey"
)

func TestAggregate(t *testing.T) {
	table, err := valuetable.New(valuetable.Default())
	if err != nil {
		t.Fatalf("build table: %v", err)
	}

	Convey("Given a one-yen and a ten-yen detection", t, func() {
		placed := []model.Placed{
			{ClassIndex: 0, Confidence: 0.9, Box: model.PixelBox{X1: 1, Y1: 1, X2: 5, Y2: 5}},
			{ClassIndex: 2, Confidence: 0.8, Box: model.PixelBox{X1: 10, Y1: 10, X2: 20, Y2: 20}},
		}

		res, err := aggregate.Aggregate("f-1", placed, table)

		Convey("Then the total is 11", func() {
			So(err, ShouldBeNil)
			So(res.TotalValue, ShouldEqual, 11)
			So(res.FrameID, ShouldEqual, "f-1")
		})

		Convey("And detections keep their order, labels and boxes", func() {
			So(len(res.Detections), ShouldEqual, 2)
			So(res.Detections[0].Label, ShouldEqual, "one")
			So(res.Detections[0].Value, ShouldEqual, 1)
			So(res.Detections[1].Label, ShouldEqual, "ten")
			So(res.Detections[1].Box, ShouldResemble, placed[1].Box)
			So(res.Detections[1].Confidence, ShouldEqual, 0.8)
		})
	})

	Convey("Given repeated classes", t, func() {
		placed := []model.Placed{
			{ClassIndex: 1}, {ClassIndex: 5}, {ClassIndex: 1}, {ClassIndex: 1},
		}
		res, err := aggregate.Aggregate("f-2", placed, table)
		So(err, ShouldBeNil)

		Convey("Then counts are grouped per class in index order", func() {
			So(res.Counts, ShouldResemble, []model.ClassCount{
				{ClassIndex: 1, Label: "five", Count: 3},
				{ClassIndex: 5, Label: "five_hundred", Count: 1},
			})
			So(res.TotalValue, ShouldEqual, 515)
			So(res.Summary(), ShouldEqual, "3 fives, 1 five_hundred")
		})
	})

	Convey("Given a class index absent from the table", t, func() {
		placed := []model.Placed{{ClassIndex: 0}, {ClassIndex: 42}}
		res, err := aggregate.Aggregate("f-3", placed, table)

		Convey("Then aggregation fails with ErrUnknownClass rather than a zero value", func() {
			So(errors.Is(err, valuetable.ErrUnknownClass), ShouldBeTrue)
			So(res.TotalValue, ShouldEqual, 0)
			So(res.Detections, ShouldBeNil)
		})
	})

	Convey("Given no detections", t, func() {
		res, err := aggregate.Aggregate("f-4", nil, table)
		So(err, ShouldBeNil)
		So(res.TotalValue, ShouldEqual, 0)
		So(res.Detections, ShouldBeEmpty)
		So(res.Counts, ShouldBeEmpty)
	})
}
