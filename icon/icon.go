// Package icon renders UI symbols in the variant the user picked.
//
// Icons can be displayed as emoji, nerd-font glyphs, plain ASCII
// or Unicode squares.
package icon

import (
	"github.com/bmevideo/bmevideo/key"
	"github.com/spf13/viper"
)

const (
	emoji   = "emoji"
	nerd    = "nerd"
	plain   = "plain"
	squares = "squares"
)

// AvailableVariants returns every supported icon variant.
func AvailableVariants() []string {
	return []string{emoji, nerd, plain, squares}
}

// Icon identifies a symbol in the registry.
type Icon int

const (
	Play Icon = iota
	Pause
	Buffering
	Ended
	Fail
	Success
	Cached
	Remote
	Download
	Cursor
	Progress
)

type iconDef struct {
	emoji   string
	nerd    string
	plain   string
	squares string
}

func (d *iconDef) Get() string {
	switch viper.GetString(key.IconsVariant) {
	case emoji:
		return d.emoji
	case nerd:
		return d.nerd
	case plain:
		return d.plain
	case squares:
		return d.squares
	default:
		return ""
	}
}

var icons = map[Icon]*iconDef{
	Play:      {emoji: "▶️", nerd: "", plain: ">", squares: "▶"},
	Pause:     {emoji: "⏸️", nerd: "", plain: "||", squares: "⏸"},
	Buffering: {emoji: "⏳", nerd: "", plain: "~", squares: "◌"},
	Ended:     {emoji: "⏹️", nerd: "", plain: "[]", squares: "■"},
	Fail:      {emoji: "💥", nerd: "", plain: "x", squares: "🟥"},
	Success:   {emoji: "🎉", nerd: "", plain: "v", squares: "🟩"},
	Cached:    {emoji: "💾", nerd: "", plain: "*", squares: "▣"},
	Remote:    {emoji: "🌐", nerd: "", plain: "@", squares: "□"},
	Download:  {emoji: "📥", nerd: "", plain: "v", squares: "▼"},
	Cursor:    {emoji: "👉", nerd: "", plain: ">", squares: "▸"},
	Progress:  {emoji: "⏱️", nerd: "", plain: "-", squares: "▬"},
}

// Get returns the rendered symbol for i in the configured variant.
func Get(i Icon) string {
	def, ok := icons[i]
	if !ok {
		return ""
	}
	return def.Get()
}

// ForStatus picks the symbol for a playback status name.
func ForStatus(status string) string {
	switch status {
	case "playing":
		return Get(Play)
	case "paused", "loaded":
		return Get(Pause)
	case "buffering":
		return Get(Buffering)
	case "ended":
		return Get(Ended)
	case "error":
		return Get(Fail)
	case "progress":
		return Get(Progress)
	default:
		return ""
	}
}
