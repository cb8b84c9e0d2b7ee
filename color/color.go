// Package color holds the terminal palette shared by the CLI and the feed.
package color

import "github.com/charmbracelet/lipgloss"

// New initializes a lipgloss.Color from a string value.
func New(value string) lipgloss.Color {
	return lipgloss.Color(value)
}

// ANSI 8-color palette. Terminals remap these to their own theme.
var (
	Red    = New("1")
	Green  = New("2")
	Yellow = New("3")
	Blue   = New("4")
	Purple = New("5")
	Cyan   = New("6")
	White  = New("7")
	Gray   = New("8")
)

// Accents used for surfaces that need a fixed hue regardless of theme.
var (
	Ink    = New("230")
	Violet = New("62")
	Amber  = New("#ffb703")
)

// ForStatus maps a playback status name onto the palette.
// Unknown statuses render gray.
func ForStatus(status string) lipgloss.Color {
	switch status {
	case "playing":
		return Green
	case "paused", "loaded":
		return Blue
	case "buffering", "progress":
		return Yellow
	case "ended":
		return Purple
	case "error":
		return Red
	default:
		return Gray
	}
}
