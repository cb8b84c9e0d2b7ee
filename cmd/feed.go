package cmd

import (
	"bufio"
	"strings"

	"github.com/bmevideo/bmevideo/app"
	"github.com/bmevideo/bmevideo/filesystem"
	"github.com/bmevideo/bmevideo/source"
	"github.com/bmevideo/bmevideo/tui"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(feedCmd)
	feedCmd.Flags().IntP("window", "w", 1, "Number of neighbouring cards on each side that keep a loaded engine")
	feedCmd.Flags().IntP("preload", "p", 3, "Number of neighbouring cards on each side that are warmed in the cache")
	feedCmd.Flags().StringP("list", "l", "", "Read sources from a file, one per line")
}

var feedCmd = &cobra.Command{
	Use:   "feed [sources...]",
	Short: "Browse a scrolling feed of videos",
	Long: `Browse a scrolling feed of videos.
The focused card plays, its neighbours stay paused and ready, and cards further out are preloaded in the background.`,
	Example: "  bmevideo feed https://cdn.example.com/a.mp4 https://cdn.example.com/b.mp4\n  bmevideo feed --list feed.txt",
	Run: func(cmd *cobra.Command, args []string) {
		var (
			window  = lo.Must(cmd.Flags().GetInt("window"))
			preload = lo.Must(cmd.Flags().GetInt("preload"))
			list    = lo.Must(cmd.Flags().GetString("list"))
		)

		raw := args
		if list != "" {
			lines, err := readLines(list)
			handleErr(err)
			raw = append(raw, lines...)
		}

		sources, err := parseSources(raw)
		handleErr(err)

		CheckDependencies()

		a, err := app.New()
		handleErr(err)
		defer a.Close()

		handleErr(tui.Run(a, &tui.Options{
			Sources: sources,
			Window:  max(window, 0),
			Preload: max(preload, window),
		}))
	},
}

func parseSources(raw []string) ([]source.Source, error) {
	sources := make([]source.Source, 0, len(raw))
	for _, r := range raw {
		src, err := source.Parse(r)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// readLines returns the non-empty lines of path, skipping # comments.
func readLines(path string) ([]string, error) {
	file, err := filesystem.API().Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}
