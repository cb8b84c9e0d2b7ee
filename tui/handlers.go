package tui

import (
	"errors"
	"fmt"
	"time"

	"github.com/bmevideo/bmevideo/icon"
	"github.com/bmevideo/bmevideo/log"
	"github.com/bmevideo/bmevideo/preload"
	"github.com/bmevideo/bmevideo/session"
	"github.com/bmevideo/bmevideo/util"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/lo"
)

const (
	refreshInterval = 500 * time.Millisecond
	seekStep        = 5.0
	volumeStep      = 0.1
)

type (
	statusMsg struct {
		index  int
		status session.PlaybackStatus
	}
	posterMsg struct {
		index   int
		visible bool
	}
	refreshMsg time.Time
)

// cardObserver forwards the events of one card's session into the program.
type cardObserver struct {
	session.BaseObserver
	index int
	send  func(tea.Msg)
}

func (o *cardObserver) OnPlaybackStatus(status session.PlaybackStatus) {
	o.send(statusMsg{index: o.index, status: status})
}

func (o *cardObserver) OnPoster(visible bool) {
	o.send(posterMsg{index: o.index, visible: visible})
}

func refresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

func within(i, j, radius int) bool {
	d := i - j
	if d < 0 {
		d = -d
	}
	return d <= radius
}

// focus moves the cursor to i: cards in the load window get a session, the focused one plays,
// cards outside the preload window stop transferring.
func (b *statefulBubble) focus(i int) error {
	b.cursor = max(0, min(i, len(b.cards)-1))

	for _, c := range b.cards {
		if !within(c.index, b.cursor, b.options.Window) && c.session != nil {
			c.session.Release()
			c.unbind()
		}
	}

	for _, c := range b.cards {
		switch {
		case within(c.index, b.cursor, b.options.Window):
			if c.session == nil {
				b.bind(c)
			}
		case within(c.index, b.cursor, b.options.Preload):
			b.app.Preloader.Preload(c.src)
		default:
			b.app.Preloader.Cancel(c.src)
		}
	}

	c := b.focused()
	if c.err != "" {
		return errors.New(c.err)
	}
	if c.session == nil {
		return nil
	}
	return c.session.Play()
}

func (b *statefulBubble) bind(c *card) {
	s := b.app.Session(&cardObserver{index: c.index, send: b.send})
	s.SetRepeat(b.repeat)
	_ = s.SetMuted(b.muted)
	_ = s.SetVolume(b.volume)

	if err := s.SetSource(c.src, false); err != nil {
		log.With(log.Fields{"source": c.src.String()}).Warnf("feed: %v", err)
		c.err = err.Error()
	}
	c.session = s
}

func (b *statefulBubble) releaseAll() {
	for _, c := range b.cards {
		if c.session != nil {
			c.session.Release()
			c.unbind()
		}
	}
}

// togglePlay pauses the focused card when it is running and plays it otherwise.
func (b *statefulBubble) togglePlay() error {
	c := b.focused()
	if c.session == nil {
		return nil
	}

	if c.status == session.StatusPlaying || c.status == session.StatusBuffering {
		return c.session.Pause()
	}
	return c.session.Play()
}

func (b *statefulBubble) seekBy(delta float64) error {
	c := b.focused()
	if c.session == nil {
		return nil
	}

	target := c.session.Position() + delta
	if c.duration > 0 {
		target = min(target, c.duration)
	}
	return c.session.Seek(max(target, 0))
}

// each applies fn to every bound session and keeps the first error.
func (b *statefulBubble) each(fn func(*session.Session) error) error {
	var first error
	for _, c := range b.cards {
		if c.session == nil {
			continue
		}
		if err := fn(c.session); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (b *statefulBubble) toggleMute() error {
	b.muted = !b.muted
	return b.each(func(s *session.Session) error { return s.SetMuted(b.muted) })
}

func (b *statefulBubble) toggleRepeat() {
	b.repeat = !b.repeat
	_ = b.each(func(s *session.Session) error {
		s.SetRepeat(b.repeat)
		return nil
	})
}

func (b *statefulBubble) changeVolume(delta float64) error {
	b.volume = util.Clamp(b.volume+delta, 0, 1)
	return b.each(func(s *session.Session) error { return s.SetVolume(b.volume) })
}

// refreshTransfers updates cache and download markers from the cache and the preloader.
// Cards whose transfer just landed in the cache are announced.
func (b *statefulBubble) refreshTransfers() tea.Cmd {
	tasks := lo.KeyBy(b.app.Preloader.Tasks(), func(t preload.Task) string { return t.Source.Key() })

	var landed []*card
	for _, c := range b.cards {
		task, ok := tasks[c.src.Key()]
		wasDownloading := c.downloading

		c.downloading = ok
		c.downloaded = task.Bytes
		c.cached = !ok && b.app.Cache.Exists(c.src)

		if wasDownloading && c.cached {
			landed = append(landed, c)
		}
	}

	switch len(landed) {
	case 0:
		return nil
	case 1:
		return b.notifier.Notify(fmt.Sprintf("%s cached %s", icon.Get(icon.Cached), landed[0].Title(40)))
	default:
		return b.notifier.Notify(fmt.Sprintf("%s cached %s", icon.Get(icon.Cached), util.Quantify(len(landed), "video", "videos")))
	}
}
