package tui

import (
	"github.com/bmevideo/bmevideo/app"
	"github.com/bmevideo/bmevideo/color"
	"github.com/bmevideo/bmevideo/internal/ui"
	"github.com/bmevideo/bmevideo/source"
	"github.com/bmevideo/bmevideo/util"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"
)

// statefulBubble is the feed model: the cards, the cursor and the shared playback stack.
type statefulBubble struct {
	state  state
	keymap *statefulKeymap

	spinnerC  spinner.Model
	progressC progress.Model
	helpC     help.Model
	notifier  ui.Notifier

	app     *app.App
	options *Options
	send    func(tea.Msg)

	cards  []*card
	cursor int
	muted  bool
	repeat bool
	volume float64

	lastError     error
	width, height int
}

func newBubble(a *app.App, options *Options) *statefulBubble {
	options.Window = max(options.Window, 0)
	options.Preload = max(options.Preload, options.Window)

	b := &statefulBubble{
		state:   feedState,
		keymap:  newStatefulKeymap(),
		app:     a,
		options: options,
		send:    func(tea.Msg) {},
		volume:  1,
		cards: lo.Map(options.Sources, func(src source.Source, i int) *card {
			return &card{index: i, src: src}
		}),
	}

	b.spinnerC = spinner.New()
	b.spinnerC.Spinner = spinner.Dot
	b.spinnerC.Style = lipgloss.NewStyle().Foreground(color.Violet)

	b.progressC = progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	b.helpC = help.New()

	if w, h, err := util.TerminalSize(); err == nil {
		b.resize(w, h)
	}

	return b
}

func (b *statefulBubble) resize(width, height int) {
	b.width, b.height = width, height
	b.progressC.Width = max(width-paddingStyle.GetHorizontalPadding()-16, 10)
	b.helpC.Width = width
}

func (b *statefulBubble) raiseError(err error) {
	b.lastError = err
	b.state = errorState
}

func (b *statefulBubble) focused() *card {
	return b.cards[b.cursor]
}
