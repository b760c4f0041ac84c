package valuetable_test

import (
	"errors"
	"testing"

	"github.com/okian/coinsum/internal/domain/valuetable"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNew(t *testing.T) {
	Convey("Given the default yen table", t, func() {
		table, err := valuetable.New(valuetable.Default())

		Convey("Then it builds without error", func() {
			So(err, ShouldBeNil)
			So(table.Len(), ShouldEqual, 6)
		})

		Convey("And lookups return label and value", func() {
			e, err := table.Lookup(5)
			So(err, ShouldBeNil)
			So(e.Label, ShouldEqual, "five_hundred")
			So(e.Value, ShouldEqual, 500)
		})

		Convey("And unknown classes fail with ErrUnknownClass", func() {
			_, err := table.Lookup(6)
			So(errors.Is(err, valuetable.ErrUnknownClass), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "6")
		})
	})

	Convey("Given entries out of order", t, func() {
		table, err := valuetable.New([]valuetable.Entry{
			{Index: 2, Label: "ten", Value: 10},
			{Index: 0, Label: "one", Value: 1},
		})
		So(err, ShouldBeNil)

		Convey("Then Entries are ordered by index", func() {
			entries := table.Entries()
			So(entries[0].Index, ShouldEqual, 0)
			So(entries[1].Index, ShouldEqual, 2)
		})

		Convey("And mutating the returned slice does not affect the table", func() {
			entries := table.Entries()
			entries[0].Value = 999
			e, _ := table.Lookup(0)
			So(e.Value, ShouldEqual, 1)
		})
	})

	Convey("Given invalid entries", t, func() {
		cases := map[string][]valuetable.Entry{
			"empty":          nil,
			"negative index": {{Index: -1, Label: "x", Value: 1}},
			"empty label":    {{Index: 0, Label: " ", Value: 1}},
			"negative value": {{Index: 0, Label: "x", Value: -1}},
			"duplicate":      {{Index: 0, Label: "a", Value: 1}, {Index: 0, Label: "b", Value: 2}},
		}
		for name, entries := range cases {
			Convey("Then "+name+" is rejected", func() {
				_, err := valuetable.New(entries)
				So(errors.Is(err, valuetable.ErrInvalidTable), ShouldBeTrue)
			})
		}
	})
}
