package cmd

import (
	"encoding/json"

	"github.com/bmevideo/bmevideo/color"
	"github.com/bmevideo/bmevideo/open"
	"github.com/bmevideo/bmevideo/style"
	"github.com/bmevideo/bmevideo/where"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
)

// location is a directory or file the application keeps on disk.
type location struct {
	name  string
	about string
	path  func() string
	// internal locations are listed only when asked for by name.
	internal bool
}

var locations = []location{
	{"config", "settings file and logs", where.Config, false},
	{"media", "cached videos", where.Media, false},
	{"logs", "log files when logs.write is set", where.Logs, false},
	{"cache", "root of all cached state", where.Cache, true},
	{"recency", "index of when each cached video was last played", where.Recency, true},
	{"temp", "decoder sockets", where.Temp, true},
}

func findLocation(name string) mo.Option[location] {
	found, ok := lo.Find(locations, func(l location) bool { return l.name == name })
	if !ok {
		return mo.None[location]()
	}
	return mo.Some(found)
}

func init() {
	rootCmd.AddCommand(whereCmd)
	whereCmd.Flags().BoolP("json", "j", false, "Print the paths as a JSON object")
	whereCmd.Flags().BoolP("open", "o", false, "Open the location in the file manager")
}

var whereCmd = &cobra.Command{
	Use:   "where [location]",
	Short: "Show where settings, media and logs are kept",
	Example: `  bmevideo where
  bmevideo where media --open`,
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: lo.Map(locations, func(l location, _ int) string { return l.name }),
	Run: func(cmd *cobra.Command, args []string) {
		shown := lo.Reject(locations, func(l location, _ int) bool { return l.internal })
		if len(args) == 1 {
			shown = []location{findLocation(args[0]).MustGet()}
		}

		if lo.Must(cmd.Flags().GetBool("open")) {
			for _, l := range shown {
				handleErr(open.Reveal(l.path()))
			}
			return
		}

		if lo.Must(cmd.Flags().GetBool("json")) {
			paths := lo.SliceToMap(shown, func(l location) (string, string) { return l.name, l.path() })
			handleErr(json.NewEncoder(cmd.OutOrStdout()).Encode(paths))
			return
		}

		if len(args) == 1 {
			cmd.Println(shown[0].path())
			return
		}

		header := style.New().Bold(true).Foreground(color.Purple).Render
		for i, l := range shown {
			if i > 0 {
				cmd.Println()
			}
			cmd.Printf("%s %s\n%s\n", header(l.name), style.Faint(l.about), l.path())
		}
	},
}
