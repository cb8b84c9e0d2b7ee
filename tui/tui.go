// Package tui renders a scrolling feed of video cards in the terminal.
//
// The focused card plays, its neighbours stay loaded and paused so that
// moving the cursor starts them instantly, and cards further out are only
// preloaded into the content cache.
package tui

import (
	"errors"

	"github.com/bmevideo/bmevideo/app"
	"github.com/bmevideo/bmevideo/source"
	tea "github.com/charmbracelet/bubbletea"
)

// Options encapsulates the runtime configuration for the feed.
type Options struct {
	Sources []source.Source
	// Window is how many cards on each side of the focused one keep an engine loaded.
	Window int
	// Preload is how many cards on each side of the focused one are warmed in the cache.
	Preload int
}

// Run shows the feed until the user quits. Every session is released before it returns.
func Run(a *app.App, options *Options) error {
	if len(options.Sources) == 0 {
		return errors.New("feed needs at least one source")
	}

	bubble := newBubble(a, options)
	program := tea.NewProgram(bubble, tea.WithAltScreen())
	bubble.send = program.Send

	_, err := program.Run()
	bubble.releaseAll()
	return err
}
