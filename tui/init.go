package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Init focuses the first card and starts the spinner and the transfer refresh ticker.
func (b *statefulBubble) Init() tea.Cmd {
	if err := b.focus(0); err != nil {
		b.raiseError(err)
	}
	return tea.Batch(b.refreshTransfers(), b.spinnerC.Tick, refresh())
}
