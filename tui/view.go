package tui

import (
	"fmt"
	"strings"

	"github.com/bmevideo/bmevideo/color"
	"github.com/bmevideo/bmevideo/icon"
	"github.com/bmevideo/bmevideo/style"
	"github.com/bmevideo/bmevideo/util"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wrap"
)

var (
	paddingStyle = lipgloss.NewStyle().Padding(1, 2)
	cardStyle    = lipgloss.NewStyle().PaddingLeft(2)
	focusStyle   = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(color.Violet).
			PaddingLeft(1)
)

func (b *statefulBubble) View() string {
	switch b.state {
	case errorState:
		return b.viewError()
	case helpState:
		return b.renderLines(style.Title("Keys"), "", b.helpC.View(b.keymap))
	default:
		return b.viewFeed()
	}
}

func (b *statefulBubble) viewFeed() string {
	header := fmt.Sprintf("%s %s", style.Title("Feed"), style.Faint(fmt.Sprintf(
		"%d/%d  %s",
		b.cursor+1,
		len(b.cards),
		b.flags(),
	)))

	lines := []string{header, ""}
	first, last := b.visibleRange()
	for _, c := range b.cards[first:last] {
		lines = append(lines, b.viewCard(c), "")
	}

	if c := b.focused(); c.duration > 0 {
		lines = append(lines, fmt.Sprintf(
			"%s %s",
			b.progressC.View(),
			style.Faint(util.FormatTimestamp(c.position)+" / "+util.FormatTimestamp(c.duration)),
		))
	}

	if b.lastError != nil {
		lines = append(lines, style.Fg(color.Red)(icon.Get(icon.Fail)+" "+b.lastError.Error()))
	}

	lines = append(lines, "", b.notifier.View(b.helpC.View(b.keymap)))
	return b.renderLines(lines...)
}

func (b *statefulBubble) viewCard(c *card) string {
	width := max(b.width-paddingStyle.GetHorizontalPadding()-16, 20)

	marker := " "
	if c.session != nil {
		switch {
		case c.status == "":
			marker = b.spinnerC.View()
		default:
			marker = icon.ForStatus(string(c.status))
		}
	}

	title := fmt.Sprintf("%s %s %s", marker, c.Title(width), c.Tag())
	body := title + "\n  " + c.Description()

	if c.index == b.cursor {
		return focusStyle.Render(body)
	}
	return cardStyle.Render(body)
}

// visibleRange returns the slice of cards that fits the terminal, keeping the cursor in view.
func (b *statefulBubble) visibleRange() (first, last int) {
	perScreen := len(b.cards)
	if b.height > 0 {
		perScreen = max((b.height-10)/3, 1)
	}

	first = max(0, b.cursor-perScreen/2)
	last = min(len(b.cards), first+perScreen)
	first = max(0, last-perScreen)
	return first, last
}

func (b *statefulBubble) flags() string {
	var flags []string
	if b.muted {
		flags = append(flags, "muted")
	}
	if b.repeat {
		flags = append(flags, "repeat")
	}
	flags = append(flags, fmt.Sprintf("vol %d%%", int(b.volume*100+0.5)))
	return strings.Join(flags, " · ")
}

func (b *statefulBubble) viewError() string {
	msg := "unknown error"
	if b.lastError != nil {
		msg = b.lastError.Error()
	}

	return b.renderLines(
		style.ErrorTitle("Error"),
		"",
		style.Fg(color.Red)(icon.Get(icon.Fail)+" "+wrap.String(msg, max(b.width-8, 20))),
		"",
		b.helpC.View(b.keymap),
	)
}

func (b *statefulBubble) renderLines(lines ...string) string {
	return paddingStyle.Render(strings.Join(lines, "\n"))
}
