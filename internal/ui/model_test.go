package ui

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNotifier(t *testing.T) {
	Convey("Given a notifier", t, func() {
		var n Notifier

		Convey("It should render nothing extra while idle", func() {
			So(n.View("a\nb"), ShouldEqual, "a\nb")
		})

		Convey("When notified", func() {
			cmd := n.Notify("cached 3.mp4")
			So(cmd, ShouldNotBeNil)
			So(n.Message(), ShouldEqual, "cached 3.mp4")
			So(n.View("a\nb"), ShouldStartWith, "a\nb  ")
			So(n.View("a\nb"), ShouldContainSubstring, "cached 3.mp4")

			Convey("Its own timer should hide the message", func() {
				So(n.Update(clearMsg{seq: 1}), ShouldBeTrue)
				So(n.Message(), ShouldBeEmpty)
			})

			Convey("A stale timer should not hide a newer message", func() {
				n.Notify("cached 4.mp4")
				So(n.Update(clearMsg{seq: 1}), ShouldBeTrue)
				So(n.Message(), ShouldEqual, "cached 4.mp4")
			})

			Convey("Foreign messages should be ignored", func() {
				So(n.Update("hello"), ShouldBeFalse)
				So(n.Message(), ShouldEqual, "cached 3.mp4")
			})
		})
	})
}
