// Package ui holds small bubbletea components shared by terminal views.
package ui

import (
	"strings"
	"time"

	"github.com/bmevideo/bmevideo/style"
	tea "github.com/charmbracelet/bubbletea"
)

// NotifyFor is how long a notification stays on screen.
const NotifyFor = 3 * time.Second

type clearMsg struct {
	seq int
}

// Notifier shows one transient message at a time. A newer message replaces the current one.
type Notifier struct {
	message string
	seq     int
}

// Notify shows message and returns the command that hides it after NotifyFor.
func (n *Notifier) Notify(message string) tea.Cmd {
	n.message = message
	n.seq++
	seq := n.seq
	return tea.Tick(NotifyFor, func(time.Time) tea.Msg {
		return clearMsg{seq: seq}
	})
}

// Update consumes the notifier's own messages and reports whether msg was one of them.
func (n *Notifier) Update(msg tea.Msg) bool {
	m, ok := msg.(clearMsg)
	if !ok {
		return false
	}
	// Timers of replaced messages must not hide the current one.
	if m.seq == n.seq {
		n.message = ""
	}
	return true
}

// Message returns the message on screen, or "".
func (n *Notifier) Message() string {
	return n.message
}

// View appends the current message to the last line of content.
func (n *Notifier) View(content string) string {
	if n.message == "" {
		return content
	}

	lines := strings.Split(content, "\n")
	lines[len(lines)-1] += "  " + style.Faint(n.message)
	return strings.Join(lines, "\n")
}
