package tui

import (
	"github.com/bmevideo/bmevideo/session"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

func (b *statefulBubble) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if b.notifier.Update(msg) {
		return b, nil
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.resize(msg.Width, msg.Height)
		return b, nil
	case statusMsg:
		b.cards[msg.index].apply(msg.status)
		if msg.index == b.cursor {
			return b, b.animateProgress()
		}
		return b, nil
	case posterMsg:
		b.cards[msg.index].poster = msg.visible
		return b, nil
	case refreshMsg:
		return b, tea.Batch(b.refreshTransfers(), refresh())
	case spinner.TickMsg:
		var cmd tea.Cmd
		b.spinnerC, cmd = b.spinnerC.Update(msg)
		return b, cmd
	case progress.FrameMsg:
		model, cmd := b.progressC.Update(msg)
		b.progressC = model.(progress.Model)
		return b, cmd
	case tea.KeyMsg:
		if key.Matches(msg, b.keymap.forceQuit) {
			return b, tea.Quit
		}
	}

	switch b.state {
	case errorState:
		return b.updateError(msg)
	case helpState:
		return b.updateHelp(msg)
	default:
		return b.updateFeed(msg)
	}
}

func (b *statefulBubble) updateFeed(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return b, nil
	}

	var err error
	switch {
	case key.Matches(keyMsg, b.keymap.quit):
		return b, tea.Quit
	case key.Matches(keyMsg, b.keymap.showHelp):
		b.state = helpState
		b.keymap.setState(helpState)
		b.helpC.ShowAll = true
	case key.Matches(keyMsg, b.keymap.up):
		err = b.focus(b.cursor - 1)
	case key.Matches(keyMsg, b.keymap.down):
		err = b.focus(b.cursor + 1)
	case key.Matches(keyMsg, b.keymap.top):
		err = b.focus(0)
	case key.Matches(keyMsg, b.keymap.bottom):
		err = b.focus(len(b.cards) - 1)
	case key.Matches(keyMsg, b.keymap.playPause):
		err = b.togglePlay()
	case key.Matches(keyMsg, b.keymap.back):
		err = b.seekBy(-seekStep)
	case key.Matches(keyMsg, b.keymap.forward):
		err = b.seekBy(seekStep)
	case key.Matches(keyMsg, b.keymap.replay):
		if s := b.focused().session; s != nil {
			if err = s.Seek(0); err == nil {
				err = s.Play()
			}
		}
	case key.Matches(keyMsg, b.keymap.mute):
		err = b.toggleMute()
	case key.Matches(keyMsg, b.keymap.repeat):
		b.toggleRepeat()
	case key.Matches(keyMsg, b.keymap.volumeUp):
		err = b.changeVolume(volumeStep)
	case key.Matches(keyMsg, b.keymap.volumeDown):
		err = b.changeVolume(-volumeStep)
	}

	b.lastError = err
	return b, b.animateProgress()
}

func (b *statefulBubble) updateHelp(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if key.Matches(keyMsg, b.keymap.quit) {
			return b, tea.Quit
		}
		b.state = feedState
		b.keymap.setState(feedState)
		b.helpC.ShowAll = false
	}
	return b, nil
}

func (b *statefulBubble) updateError(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && key.Matches(keyMsg, b.keymap.quit) {
		return b, tea.Quit
	}
	return b, nil
}

// animateProgress moves the progress bar toward the focused card's position.
func (b *statefulBubble) animateProgress() tea.Cmd {
	c := b.focused()
	if c.duration <= 0 || c.status == session.StatusError {
		return nil
	}
	return b.progressC.SetPercent(c.position / c.duration)
}
