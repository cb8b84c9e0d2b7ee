// Package style provides a functional API for composing and applying lipgloss-based styles.
package style

import (
	"strings"

	"github.com/bmevideo/bmevideo/color"
	"github.com/charmbracelet/lipgloss"
)

// New returns an empty lipgloss.Style.
func New() lipgloss.Style {
	return lipgloss.NewStyle()
}

// Colored initializes a new style with the specified foreground and background colors.
func Colored(fg, bg lipgloss.Color) lipgloss.Style {
	return New().Foreground(fg).Background(bg)
}

// Fg returns a rendering function that applies the foreground color to a string.
func Fg(c lipgloss.Color) func(string) string {
	return func(s string) string { return Colored(c, "").Render(s) }
}

// Bg returns a rendering function that applies the background color to a string.
func Bg(c lipgloss.Color) func(string) string {
	return func(s string) string { return Colored("", c).Render(s) }
}

var (
	Faint  = func(s string) string { return New().Faint(true).Render(s) }
	Bold   = func(s string) string { return New().Bold(true).Render(s) }
	Italic = func(s string) string { return New().Italic(true).Render(s) }
)

// Title renders a padded heading block.
var Title = func(s string) string {
	return Colored(color.Ink, color.Violet).Padding(0, 1).Render(s)
}

// ErrorTitle renders a heading block in the error color.
var ErrorTitle = func(s string) string {
	return Colored(color.Ink, color.Red).Padding(0, 1).Render(s)
}

// Tag returns a rendering function that encloses a string in a colored, padded block.
func Tag(fg, bg lipgloss.Color) func(string) string {
	return func(s string) string { return Colored(fg, bg).Padding(0, 1).Render(s) }
}

// Status renders a playback status as an upper-case tag in its palette color.
func Status(status string) string {
	return Tag(color.Ink, color.ForStatus(status))(strings.ToUpper(status))
}

// Box draws a rounded border around a block of text.
func Box(s string) string {
	return New().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color.Violet).
		Padding(0, 1).
		Render(s)
}
