package util

import (
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestQuantify(t *testing.T) {
	Convey("Quantify", t, func() {
		So(Quantify(1, "entry", "entries"), ShouldEqual, "1 entry")
		So(Quantify(2, "entry", "entries"), ShouldEqual, "2 entries")
		So(Quantify(0, "entry", "entries"), ShouldEqual, "0 entries")
	})
}

func TestCapitalize(t *testing.T) {
	Convey("Capitalize", t, func() {
		So(Capitalize("playing"), ShouldEqual, "Playing")
		So(Capitalize(""), ShouldEqual, "")
	})
}

func TestClamp(t *testing.T) {
	Convey("Clamp", t, func() {
		So(Clamp(1.5, 0, 1), ShouldEqual, 1.0)
		So(Clamp(-3, 0, 10), ShouldEqual, 0)
		So(Clamp(5, 0, 10), ShouldEqual, 5)
	})
}

func TestFormatBytes(t *testing.T) {
	Convey("FormatBytes", t, func() {
		So(FormatBytes(512), ShouldEqual, "512 B")
		So(FormatBytes(1024), ShouldEqual, "1.0 KiB")
		So(FormatBytes(3*1024*1024/2), ShouldEqual, "1.5 MiB")
	})
}

func TestFormatTimestamp(t *testing.T) {
	Convey("FormatTimestamp", t, func() {
		So(FormatTimestamp(0), ShouldEqual, "0:00")
		So(FormatTimestamp(61.9), ShouldEqual, "1:01")
		So(FormatTimestamp(3725), ShouldEqual, "1:02:05")

		Convey("Non-finite and negative values render as zero", func() {
			So(FormatTimestamp(math.NaN()), ShouldEqual, "0:00")
			So(FormatTimestamp(math.Inf(1)), ShouldEqual, "0:00")
			So(FormatTimestamp(-4), ShouldEqual, "0:00")
		})
	})
}
