package cache

import (
	"testing"
	"time"

	"github.com/bmevideo/bmevideo/filesystem"
	"github.com/bmevideo/bmevideo/source"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPrune(t *testing.T) {
	Convey("Given a cache with a recency index", t, func() {
		filesystem.SetMemMapFs()

		clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		recency := NewRecency("/state/recency.json")
		recency.now = func() time.Time { return clock }

		c := New("/media", WithRecency(recency))

		a := source.MustParse("https://cdn.example.com/a.mp4")
		b := source.MustParse("https://cdn.example.com/b.mp4")
		d := source.MustParse("https://cdn.example.com/d.mp4")

		for _, src := range []source.Source{a, b, d} {
			So(c.Store(src, make([]byte, 100)), ShouldBeNil)
		}

		// a is the least recently used, d the most.
		for _, src := range []source.Source{a, b, d} {
			clock = clock.Add(time.Minute)
			So(c.Resolve(src).Cached, ShouldBeTrue)
		}

		Convey("Resolve should record usage", func() {
			So(recency.LastUsed(d.Key()).IsPresent(), ShouldBeTrue)
			So(recency.LastUsed("unknown").IsPresent(), ShouldBeFalse)
		})

		Convey("Snapshot should copy the index in one read", func() {
			used := recency.Snapshot()
			So(used, ShouldHaveLength, 3)
			So(used[a.Key()].Before(used[d.Key()]), ShouldBeTrue)

			delete(used, a.Key())
			So(recency.LastUsed(a.Key()).IsPresent(), ShouldBeTrue)
		})

		Convey("A budget that fits should evict nothing", func() {
			report, err := c.Prune(1000)
			So(err, ShouldBeNil)
			So(report.Evicted, ShouldEqual, 0)
			So(report.Remaining, ShouldEqual, 300)
		})

		Convey("A zero budget should evict nothing", func() {
			report, err := c.Prune(0)
			So(err, ShouldBeNil)
			So(report.Evicted, ShouldEqual, 0)
		})

		Convey("A tight budget should evict the least recently used first", func() {
			report, err := c.Prune(200)
			So(err, ShouldBeNil)
			So(report.Evicted, ShouldEqual, 1)
			So(report.Freed, ShouldEqual, 100)
			So(c.Exists(a), ShouldBeFalse)
			So(c.Exists(b), ShouldBeTrue)
			So(c.Exists(d), ShouldBeTrue)

			Convey("and forget it in the index", func() {
				So(recency.LastUsed(a.Key()).IsPresent(), ShouldBeFalse)
			})
		})

		Convey("Touching an old entry should protect it", func() {
			clock = clock.Add(time.Minute)
			c.Resolve(a)

			_, err := c.Prune(100)
			So(err, ShouldBeNil)
			So(c.Exists(a), ShouldBeTrue)
			So(c.Exists(b), ShouldBeFalse)
			So(c.Exists(d), ShouldBeFalse)
		})

		Convey("Prune should sweep stale staging files", func() {
			staged, err := c.Stage(source.MustParse("https://cdn.example.com/crashed.mp4"))
			So(err, ShouldBeNil)
			old := time.Now().Add(-2 * staleAfter)
			So(filesystem.API().Chtimes(staged.file.Name(), old, old), ShouldBeNil)

			report, err := c.Prune(0)
			So(err, ShouldBeNil)
			So(report.Swept, ShouldEqual, 1)
		})
	})
}
