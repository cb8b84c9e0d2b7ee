package pool

import (
	"sync"
	"testing"

	"github.com/bmevideo/bmevideo/dispatch"
	"github.com/bmevideo/bmevideo/player"
	"github.com/bmevideo/bmevideo/player/playertest"
	"github.com/bmevideo/bmevideo/source"
	. "github.com/smartystreets/goconvey/convey"
)

type nopListener struct{}

func (nopListener) OnLoad(float64, int, int)   {}
func (nopListener) OnProgress(float64, float64) {}
func (nopListener) OnBuffer(bool)               {}
func (nopListener) OnError(string)              {}
func (nopListener) OnEnd()                      {}

func TestPool(t *testing.T) {
	Convey("Given a pool of at most two idle engines", t, func() {
		loop := dispatch.New()
		defer loop.Close()

		var mu sync.Mutex
		var decoders []*playertest.Decoder
		p := New(func() *player.Engine {
			d := playertest.New()
			d.ReadyOnOpen = true
			mu.Lock()
			decoders = append(decoders, d)
			mu.Unlock()
			return player.NewEngine(d, loop)
		}, 2)
		defer p.Close()

		Convey("Acquire should construct when nothing is idle", func() {
			a, b := p.Acquire(), p.Acquire()
			So(a, ShouldNotPointTo, b)
			So(decoders, ShouldHaveLength, 2)
			So(p.Lent(), ShouldEqual, 2)
			So(p.Idle(), ShouldEqual, 0)
		})

		Convey("A released engine should be reused", func() {
			a := p.Acquire()
			So(a.Load(source.Location{URI: "clip.mp4"}, true), ShouldBeNil)
			So(a.State(), ShouldEqual, player.Playing)
			a.SetListener(nopListener{})

			p.Release(a)
			So(p.Idle(), ShouldEqual, 1)
			So(p.Lent(), ShouldEqual, 0)

			Convey("reset to Idle with media torn down", func() {
				b := p.Acquire()
				So(b, ShouldPointTo, a)
				So(b.State(), ShouldEqual, player.Idle)
				So(decoders, ShouldHaveLength, 1)
				So(decoders[0].URI(), ShouldBeEmpty)
				So(decoders[0].Calls(), ShouldContain, "pause")
			})
		})

		Convey("Releasing an engine that is not lent should be a no-op", func() {
			a := p.Acquire()
			p.Release(a)
			p.Release(a)
			So(p.Idle(), ShouldEqual, 1)

			stranger := player.NewEngine(playertest.New(), loop)
			p.Release(stranger)
			So(p.Idle(), ShouldEqual, 1)
		})

		Convey("Engines beyond the idle limit should be disposed", func() {
			a, b, c := p.Acquire(), p.Acquire(), p.Acquire()
			p.Release(a)
			p.Release(b)
			p.Release(c)

			So(p.Idle(), ShouldEqual, 2)
			So(decoders[2].Disposed(), ShouldBeTrue)
			So(decoders[0].Disposed(), ShouldBeFalse)
		})

		Convey("An engine should never be lent twice", func() {
			seen := make(map[*player.Engine]bool)
			for i := 0; i < 5; i++ {
				e := p.Acquire()
				So(seen[e], ShouldBeFalse)
				seen[e] = true
			}
		})

		Convey("Close should dispose idle engines", func() {
			a := p.Acquire()
			p.Release(a)
			p.Close()

			So(p.Idle(), ShouldEqual, 0)
			So(decoders[0].Disposed(), ShouldBeTrue)

			Convey("and engines released afterwards", func() {
				b := p.Acquire()
				p.Release(b)
				So(p.Idle(), ShouldEqual, 0)
			})
		})
	})
}
