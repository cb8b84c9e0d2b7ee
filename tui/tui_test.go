package tui

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/bmevideo/bmevideo/app"
	"github.com/bmevideo/bmevideo/config"
	"github.com/bmevideo/bmevideo/filesystem"
	"github.com/bmevideo/bmevideo/player"
	"github.com/bmevideo/bmevideo/player/playertest"
	"github.com/bmevideo/bmevideo/preload"
	"github.com/bmevideo/bmevideo/session"
	"github.com/bmevideo/bmevideo/source"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	filesystem.SetMemMapFs()
	lo.Must0(config.Setup())
}

// stalledFetcher never delivers, so preload tasks stay live until cancelled.
type stalledFetcher struct{}

func (stalledFetcher) Fetch(ctx context.Context, _ string) (io.ReadCloser, int64, error) {
	<-ctx.Done()
	return nil, 0, ctx.Err()
}

func liveKeys(a *app.App) []string {
	return lo.Map(a.Preloader.Tasks(), func(t preload.Task, _ int) string { return t.Source.String() })
}

func TestFeed(t *testing.T) {
	Convey("Given a feed of five cards", t, func() {
		filesystem.SetMemMapFs()

		a, err := app.New(
			app.WithDecoder(func() player.Decoder { return playertest.New() }),
			app.WithFetcher(stalledFetcher{}),
		)
		So(err, ShouldBeNil)
		defer a.Close()

		sources := lo.Times(5, func(i int) source.Source {
			return source.MustParse(fmt.Sprintf("https://cdn.example.com/v/%d.mp4", i))
		})

		b := newBubble(a, &Options{Sources: sources, Window: 1, Preload: 2})
		defer b.releaseAll()
		b.resize(100, 40)
		b.Init()

		bound := func() []int {
			return lo.FilterMap(b.cards, func(c *card, _ int) (int, bool) { return c.index, c.session != nil })
		}

		Convey("The first card and its neighbour should be loaded", func() {
			So(b.state, ShouldEqual, feedState)
			So(bound(), ShouldResemble, []int{0, 1})
			So(a.Coordinator.Active(), ShouldPointTo, b.cards[0].session)
			So(liveKeys(a), ShouldContain, sources[2].String())
		})

		Convey("Moving down should slide the windows", func() {
			b.Update(tea.KeyMsg{Type: tea.KeyDown})
			b.Update(tea.KeyMsg{Type: tea.KeyDown})
			b.Update(tea.KeyMsg{Type: tea.KeyDown})

			So(b.cursor, ShouldEqual, 3)
			So(bound(), ShouldResemble, []int{2, 3, 4})
			So(a.Coordinator.Active(), ShouldPointTo, b.cards[3].session)
			So(a.Pool.Lent(), ShouldEqual, 3)

			live := liveKeys(a)
			So(live, ShouldContain, sources[1].String())
			So(live, ShouldNotContain, sources[0].String())
		})

		Convey("The cursor should stop at the last card", func() {
			b.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("G")})
			b.Update(tea.KeyMsg{Type: tea.KeyDown})
			So(b.cursor, ShouldEqual, 4)
		})

		Convey("Status reports should update the card", func() {
			b.Update(statusMsg{index: 0, status: session.PlaybackStatus{Status: session.StatusLoaded, Duration: lo.ToPtr(8.0)}})
			b.Update(statusMsg{index: 0, status: session.PlaybackStatus{Status: session.StatusProgress, Position: lo.ToPtr(2.0), Duration: lo.ToPtr(8.0)}})

			c := b.cards[0]
			So(c.status, ShouldEqual, session.StatusPlaying)
			So(c.position, ShouldEqual, 2.0)
			So(c.duration, ShouldEqual, 8.0)
			So(b.View(), ShouldContainSubstring, "0:02 / 0:08")
		})

		Convey("Toggles should reach every loaded session", func() {
			b.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("m")})
			b.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("-")})

			So(b.muted, ShouldBeTrue)
			So(b.volume, ShouldAlmostEqual, 0.9)
			So(b.View(), ShouldContainSubstring, "muted")
		})

		Convey("A transfer landing in the cache should be announced", func() {
			c := b.cards[4]
			c.downloading = true
			So(a.Cache.Store(c.src, []byte("video")), ShouldBeNil)

			So(b.refreshTransfers(), ShouldNotBeNil)
			So(c.cached, ShouldBeTrue)
			So(b.notifier.Message(), ShouldContainSubstring, "4.mp4")
		})

		Convey("The help screen should toggle", func() {
			b.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
			So(b.state, ShouldEqual, helpState)
			b.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
			So(b.state, ShouldEqual, feedState)
		})

		Convey("Quitting should release every session", func() {
			_, cmd := b.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
			So(cmd, ShouldNotBeNil)

			b.releaseAll()
			So(bound(), ShouldBeEmpty)
			So(a.Pool.Lent(), ShouldEqual, 0)
		})
	})
}
