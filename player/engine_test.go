package player_test

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/bmevideo/bmevideo/dispatch"
	"github.com/bmevideo/bmevideo/player"
	"github.com/bmevideo/bmevideo/player/playertest"
	"github.com/bmevideo/bmevideo/source"
	. "github.com/smartystreets/goconvey/convey"
)

type progress struct {
	current, duration float64
}

type recorder struct {
	mu       sync.Mutex
	loads    int
	progress []progress
	buffers  []bool
	errors   []string
	ends     int
	seeks    []float64
}

func (r *recorder) OnLoad(float64, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads++
}

func (r *recorder) OnProgress(current, duration float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, progress{current, duration})
}

func (r *recorder) OnBuffer(buffering bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buffers = append(r.buffers, buffering)
}

func (r *recorder) OnError(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, message)
}

func (r *recorder) OnEnd() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ends++
}

func (r *recorder) OnSeeked(position float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seeks = append(r.seeks, position)
}

func (r *recorder) snapshot() recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	return recorder{
		loads:    r.loads,
		progress: append([]progress(nil), r.progress...),
		buffers:  append([]bool(nil), r.buffers...),
		errors:   append([]string(nil), r.errors...),
		ends:     r.ends,
		seeks:    append([]float64(nil), r.seeks...),
	}
}

func (r *recorder) clearProgress() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = nil
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

var clip = source.Location{URI: "https://cdn.example.com/clip.mp4"}

func TestEngineLifecycle(t *testing.T) {
	Convey("Given an idle engine", t, func() {
		loop := dispatch.New()
		defer loop.Close()

		decoder := playertest.New()
		engine := player.NewEngine(decoder, loop, player.WithProgressInterval(10*time.Millisecond))
		defer engine.Dispose()

		rec := &recorder{}
		engine.SetListener(rec)

		So(engine.State(), ShouldEqual, player.Idle)

		Convey("Commands that need media should fail", func() {
			So(engine.Play(), ShouldEqual, player.ErrNotLoaded)
			So(engine.Pause(), ShouldEqual, player.ErrNotLoaded)
			So(engine.Seek(1), ShouldEqual, player.ErrNotLoaded)
		})

		Convey("Load should move to Loading", func() {
			So(engine.Load(clip, false), ShouldBeNil)
			So(engine.State(), ShouldEqual, player.Loading)
			So(decoder.URI(), ShouldEqual, clip.URI)
			So(engine.Location(), ShouldResemble, clip)

			Convey("Seeking while loading is rejected", func() {
				So(errors.Is(engine.Seek(1), player.ErrInvalidState), ShouldBeTrue)
			})

			Convey("Ready without autoplay should stop at Ready", func() {
				decoder.Ready()
				loop.Flush()

				So(engine.State(), ShouldEqual, player.Ready)
				So(engine.Duration(), ShouldEqual, 10)
				So(rec.snapshot().loads, ShouldEqual, 1)
				So(decoder.Playing(), ShouldBeFalse)

				Convey("Play should move to Playing and Pause back to Paused", func() {
					So(engine.Play(), ShouldBeNil)
					So(engine.State(), ShouldEqual, player.Playing)
					So(engine.Pause(), ShouldBeNil)
					So(engine.State(), ShouldEqual, player.Paused)
					So(decoder.Playing(), ShouldBeFalse)
				})
			})

			Convey("Play while loading should arm autoplay", func() {
				So(engine.Play(), ShouldBeNil)
				decoder.Ready()
				So(engine.State(), ShouldEqual, player.Playing)
				So(decoder.Playing(), ShouldBeTrue)
			})

			Convey("Pause while loading should disarm autoplay", func() {
				So(engine.Load(clip, true), ShouldBeNil)
				So(engine.Pause(), ShouldBeNil)
				decoder.Ready()
				So(engine.State(), ShouldEqual, player.Ready)
			})

			Convey("A decoder failure should move to Error", func() {
				decoder.Emit(player.Signal{Kind: player.SignalFailed, Err: errors.New("404")})
				loop.Flush()

				So(engine.State(), ShouldEqual, player.Error)
				So(rec.snapshot().errors, ShouldHaveLength, 1)
				So(rec.snapshot().errors[0], ShouldContainSubstring, "404")

				Convey("and only Load should leave it", func() {
					So(errors.Is(engine.Play(), player.ErrInvalidState), ShouldBeTrue)
					So(errors.Is(engine.Pause(), player.ErrInvalidState), ShouldBeTrue)

					So(engine.Load(clip, true), ShouldBeNil)
					decoder.Ready()
					So(engine.State(), ShouldEqual, player.Playing)
				})
			})
		})

		Convey("Load with autoplay should play once ready", func() {
			So(engine.Load(clip, true), ShouldBeNil)
			decoder.Ready()

			So(engine.State(), ShouldEqual, player.Playing)
			So(decoder.Playing(), ShouldBeTrue)

			Convey("Stalls should surface as Buffering", func() {
				decoder.Emit(player.Signal{Kind: player.SignalStall, Buffering: true})
				So(engine.State(), ShouldEqual, player.Buffering)

				Convey("while commands act on the underlying state", func() {
					So(engine.Pause(), ShouldBeNil)
					So(engine.State(), ShouldEqual, player.Buffering)

					decoder.Emit(player.Signal{Kind: player.SignalStall, Buffering: false})
					loop.Flush()
					So(engine.State(), ShouldEqual, player.Paused)
					So(rec.snapshot().buffers, ShouldResemble, []bool{true, false})
				})
			})

			Convey("End of media should move to Ended", func() {
				decoder.Emit(player.Signal{Kind: player.SignalEnded})
				loop.Flush()

				So(engine.State(), ShouldEqual, player.Ended)
				So(rec.snapshot().ends, ShouldEqual, 1)

				Convey("A seek out of Ended should leave it Paused", func() {
					So(engine.Seek(0), ShouldBeNil)
					So(engine.State(), ShouldEqual, player.Paused)

					So(engine.Play(), ShouldBeNil)
					So(engine.State(), ShouldEqual, player.Playing)
				})

				Convey("Play from Ended should restart from the beginning", func() {
					decoder.SetPosition(10)
					So(engine.Play(), ShouldBeNil)
					So(engine.State(), ShouldEqual, player.Playing)
					So(decoder.Position(), ShouldEqual, 0)
				})
			})

			Convey("Load again should release the previous media first", func() {
				stale := decoder.Sink()
				next := source.Location{URI: "/media/abc", Cached: true}
				So(engine.Load(next, false), ShouldBeNil)
				So(decoder.Calls(), ShouldContain, "close")

				Convey("and ignore late signals from it", func() {
					decoder.EmitTo(stale, player.Signal{Kind: player.SignalReady, Duration: 99})
					decoder.EmitTo(stale, player.Signal{Kind: player.SignalFailed})
					loop.Flush()

					So(engine.State(), ShouldEqual, player.Loading)
					So(rec.snapshot().errors, ShouldBeEmpty)
				})
			})

			Convey("Release should return to Idle and be idempotent", func() {
				engine.Release()
				engine.Release()

				So(engine.State(), ShouldEqual, player.Idle)
				closes := 0
				for _, c := range decoder.Calls() {
					if c == "close" {
						closes++
					}
				}
				So(closes, ShouldEqual, 1)
			})
		})

		Convey("An Open failure should be reported as a decoder error", func() {
			decoder.OpenErr = errors.New("no such file")
			err := engine.Load(clip, true)
			loop.Flush()

			So(errors.Is(err, player.ErrDecoder), ShouldBeTrue)
			var de *player.DecoderError
			So(errors.As(err, &de), ShouldBeTrue)
			So(de.Op, ShouldEqual, "open")
			So(engine.State(), ShouldEqual, player.Error)
			So(rec.snapshot().errors, ShouldHaveLength, 1)
		})

		Convey("Settings should reach the decoder", func() {
			So(engine.SetMuted(true), ShouldBeNil)
			So(engine.SetVolume(2), ShouldBeNil)
			So(engine.SetRate(1.5), ShouldBeNil)
			So(engine.SetRate(-1), ShouldBeNil)

			So(decoder.Muted(), ShouldBeTrue)
			So(decoder.Volume(), ShouldEqual, 1)
			So(decoder.Rate(), ShouldEqual, 1.5)
		})

		Convey("Dispose should destroy the decoder", func() {
			engine.Dispose()
			So(decoder.Disposed(), ShouldBeTrue)
			So(engine.Load(clip, true), ShouldEqual, player.ErrDisposed)
			So(engine.Play(), ShouldEqual, player.ErrDisposed)
		})
	})
}

func TestEngineProgress(t *testing.T) {
	Convey("Given a playing engine", t, func() {
		loop := dispatch.New()
		defer loop.Close()

		decoder := playertest.New()
		decoder.ReadyOnOpen = true
		engine := player.NewEngine(decoder, loop,
			player.WithProgressInterval(10*time.Millisecond),
			player.WithSeekIgnore(time.Hour),
		)
		defer engine.Dispose()

		rec := &recorder{}
		engine.SetListener(rec)
		So(engine.Load(clip, true), ShouldBeNil)
		So(engine.State(), ShouldEqual, player.Playing)

		Convey("Progress should be sampled while playing", func() {
			decoder.SetPosition(3)
			So(waitFor(func() bool {
				p := rec.snapshot().progress
				return len(p) > 0 && p[len(p)-1].current == 3
			}), ShouldBeTrue)
			So(rec.snapshot().progress[0].duration, ShouldEqual, 10)
		})

		Convey("Non-finite positions should be reported as zero", func() {
			decoder.SetPosition(math.NaN())
			So(waitFor(func() bool { return len(rec.snapshot().progress) > 0 }), ShouldBeTrue)
			for _, p := range rec.snapshot().progress {
				So(p.current, ShouldEqual, 0)
			}
		})

		Convey("Progress should stop while paused", func() {
			So(engine.Pause(), ShouldBeNil)
			time.Sleep(30 * time.Millisecond)
			loop.Flush()
			rec.clearProgress()

			time.Sleep(50 * time.Millisecond)
			loop.Flush()
			So(rec.snapshot().progress, ShouldBeEmpty)
		})

		Convey("Progress should stop after Release", func() {
			engine.Release()
			loop.Flush()
			rec.clearProgress()

			time.Sleep(50 * time.Millisecond)
			loop.Flush()
			So(rec.snapshot().progress, ShouldBeEmpty)
		})

		Convey("After a seek", func() {
			decoder.SetPosition(2)
			So(waitFor(func() bool { return len(rec.snapshot().progress) > 0 }), ShouldBeTrue)

			So(engine.Seek(8), ShouldBeNil)
			decoder.SetPosition(2)
			time.Sleep(20 * time.Millisecond)
			loop.Flush()
			rec.clearProgress()

			Convey("samples should be dropped until the decoder acknowledges it", func() {
				time.Sleep(50 * time.Millisecond)
				loop.Flush()
				So(rec.snapshot().progress, ShouldBeEmpty)
			})

			Convey("stale samples far from the target should be dropped after acknowledgement", func() {
				decoder.Emit(player.Signal{Kind: player.SignalSeeked})
				time.Sleep(50 * time.Millisecond)
				loop.Flush()
				So(rec.snapshot().progress, ShouldBeEmpty)
				So(rec.snapshot().seeks, ShouldResemble, []float64{8})

				Convey("while samples near the target pass", func() {
					decoder.SetPosition(8.25)
					So(waitFor(func() bool { return len(rec.snapshot().progress) > 0 }), ShouldBeTrue)
					for _, p := range rec.snapshot().progress {
						So(p.current, ShouldAlmostEqual, 8.25)
					}
				})
			})
		})
	})
}

func TestStateString(t *testing.T) {
	Convey("States should have readable names", t, func() {
		So(player.Idle.String(), ShouldEqual, "idle")
		So(player.Buffering.String(), ShouldEqual, "buffering")
		So(player.Error.String(), ShouldEqual, "error")
		So(player.State(42).String(), ShouldEqual, "unknown")
	})
}
