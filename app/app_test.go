package app

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/bmevideo/bmevideo/config"
	"github.com/bmevideo/bmevideo/filesystem"
	"github.com/bmevideo/bmevideo/key"
	"github.com/bmevideo/bmevideo/player"
	"github.com/bmevideo/bmevideo/player/playertest"
	"github.com/bmevideo/bmevideo/preload"
	"github.com/bmevideo/bmevideo/source"
	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func init() {
	filesystem.SetMemMapFs()
	lo.Must0(config.Setup())
}

type staticFetcher string

func (f staticFetcher) Fetch(context.Context, string) (io.ReadCloser, int64, error) {
	return io.NopCloser(strings.NewReader(string(f))), int64(len(f)), nil
}

func TestApp(t *testing.T) {
	Convey("Given an app with an in-memory decoder", t, func() {
		filesystem.SetMemMapFs()

		var decoders []*playertest.Decoder
		var settled []preload.Task

		a, err := New(
			WithDecoder(func() player.Decoder {
				d := playertest.New()
				decoders = append(decoders, d)
				return d
			}),
			WithFetcher(staticFetcher("frames")),
			WithOnSettled(func(t preload.Task) { settled = append(settled, t) }),
		)
		So(err, ShouldBeNil)
		defer a.Close()

		src := source.MustParse("https://cdn.example.com/v/1.mp4")

		Convey("A session should stream an uncached source and warm the cache", func() {
			s := a.Session(nil)
			defer s.Release()

			So(s.SetSource(src, false), ShouldBeNil)
			So(decoders, ShouldHaveLength, 1)
			So(decoders[0].URI(), ShouldEqual, src.String())

			So(a.Preloader.Wait(context.Background()), ShouldBeNil)
			So(a.Cache.Exists(src), ShouldBeTrue)
			So(settled, ShouldHaveLength, 1)

			Convey("and the next binding should load the artifact from the same engine", func() {
				So(s.SetSource(src, false), ShouldBeNil)
				So(decoders, ShouldHaveLength, 1)
				So(decoders[0].URI(), ShouldEqual, a.Cache.Path(src))
			})
		})

		Convey("Sessions should start with the configured defaults", func() {
			viper.Set(key.PlayerMuted, true)
			viper.Set(key.PlayerVolume, 40)
			defer viper.Set(key.PlayerMuted, false)
			defer viper.Set(key.PlayerVolume, 100)

			s := a.Session(nil)
			defer s.Release()
			So(s.SetSource(src, false), ShouldBeNil)

			So(decoders[0].Muted(), ShouldBeTrue)
			So(decoders[0].Volume(), ShouldAlmostEqual, 0.4)
		})

		Convey("Prune without a budget should keep everything", func() {
			So(a.Cache.Store(src, []byte("frames")), ShouldBeNil)
			report, err := a.Prune()
			So(err, ShouldBeNil)
			So(report.Evicted, ShouldEqual, 0)
			So(a.Cache.Exists(src), ShouldBeTrue)
		})
	})

	Convey("Each app should own its event loop and coordinator", t, func() {
		filesystem.SetMemMapFs()

		build := func() *App {
			a, err := New(
				WithDecoder(func() player.Decoder { return playertest.New() }),
				WithFetcher(staticFetcher("frames")),
			)
			So(err, ShouldBeNil)
			return a
		}
		first, second := build(), build()
		defer first.Close()

		So(first.Loop, ShouldNotPointTo, second.Loop)
		So(first.Coordinator, ShouldNotPointTo, second.Coordinator)

		Convey("and Close should stop that loop only", func() {
			second.Close()
			So(second.Loop.Post(func() {}), ShouldBeFalse)
			So(first.Loop.Post(func() {}), ShouldBeTrue)
		})
	})

	Convey("An unknown backend should be rejected", t, func() {
		viper.Set(key.PlayerBackend, "vlc")
		defer viper.Set(key.PlayerBackend, "mpv")

		_, err := New()
		So(err, ShouldNotBeNil)
	})
}
