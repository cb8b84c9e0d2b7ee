package tui

import (
	"fmt"
	"strings"

	"github.com/bmevideo/bmevideo/color"
	"github.com/bmevideo/bmevideo/icon"
	"github.com/bmevideo/bmevideo/session"
	"github.com/bmevideo/bmevideo/source"
	"github.com/bmevideo/bmevideo/style"
	"github.com/bmevideo/bmevideo/util"
	"github.com/muesli/reflow/truncate"
)

// card is one video in the feed. A session is bound only while the card is inside the load window.
type card struct {
	index   int
	src     source.Source
	session *session.Session

	status   session.Status
	position float64
	duration float64
	poster   bool
	err      string

	cached      bool
	downloading bool
	downloaded  int64
}

// apply folds a status report into the card.
func (c *card) apply(status session.PlaybackStatus) {
	switch status.Status {
	case session.StatusProgress:
		if status.Position != nil {
			c.position = *status.Position
		}
		if status.Duration != nil && *status.Duration > 0 {
			c.duration = *status.Duration
		}
		if c.status == "" || c.status == session.StatusLoaded || c.status == session.StatusBuffering {
			c.status = session.StatusPlaying
		}
		return
	case session.StatusLoaded:
		if status.Duration != nil {
			c.duration = *status.Duration
		}
	case session.StatusError:
		c.err = status.Error
	}
	c.status = status.Status
}

// unbind forgets everything tied to the released session.
func (c *card) unbind() {
	c.session = nil
	c.status = ""
	c.position = 0
	c.poster = false
	c.err = ""
}

func (c *card) Title(width int) string {
	title := truncate.StringWithTail(c.src.String(), uint(max(width, 8)), "…")
	if c.err != "" {
		title += " " + style.Fg(color.Red)(c.err)
	}
	return title
}

// Description is the second line of a card: position, and where the bytes come from.
func (c *card) Description() string {
	var parts []string

	if c.session != nil && c.duration > 0 {
		parts = append(parts, fmt.Sprintf("%s / %s", util.FormatTimestamp(c.position), util.FormatTimestamp(c.duration)))
	}

	switch {
	case c.cached:
		parts = append(parts, icon.Get(icon.Cached)+" cached")
	case c.downloading:
		parts = append(parts, fmt.Sprintf("%s %s", icon.Get(icon.Download), util.FormatBytes(c.downloaded)))
	case c.src.Remote():
		parts = append(parts, icon.Get(icon.Remote)+" remote")
	}

	if c.poster {
		parts = append(parts, "poster")
	}

	return style.Faint(strings.Join(parts, "  "))
}

// Tag renders the status badge, or nothing for cards outside the load window.
func (c *card) Tag() string {
	if c.session == nil || c.status == "" {
		return ""
	}
	return style.Status(string(c.status))
}
