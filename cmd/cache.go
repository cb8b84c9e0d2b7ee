package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/bmevideo/bmevideo/color"
	"github.com/bmevideo/bmevideo/icon"
	"github.com/bmevideo/bmevideo/internal/cache"
	"github.com/bmevideo/bmevideo/key"
	"github.com/bmevideo/bmevideo/open"
	"github.com/bmevideo/bmevideo/source"
	"github.com/bmevideo/bmevideo/style"
	"github.com/bmevideo/bmevideo/util"
	"github.com/bmevideo/bmevideo/where"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func openCache() (*cache.Cache, *cache.Recency) {
	recency := cache.NewRecency(where.Recency())
	return cache.New(where.Media(), cache.WithRecency(recency)), recency
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.SetOut(os.Stdout)
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the media cache",
}

func init() {
	cacheCmd.AddCommand(cacheLsCmd)
	cacheLsCmd.Flags().BoolP("json", "j", false, "Format the output as JSON")
}

type cacheListing struct {
	Key      string     `json:"key"`
	Path     string     `json:"path"`
	Size     int64      `json:"size"`
	LastUsed *time.Time `json:"last_used,omitempty"`
}

var cacheLsCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List cached media, most recently used first",
	Run: func(cmd *cobra.Command, args []string) {
		store, recency := openCache()
		entries, err := store.Entries()
		handleErr(err)

		index := recency.Snapshot()
		listings := lo.Map(entries, func(e cache.Entry, _ int) cacheListing {
			listing := cacheListing{Key: e.Key, Path: e.Path, Size: e.Size}
			if used, ok := index[e.Key]; ok {
				listing.LastUsed = &used
			}
			return listing
		})

		sort.SliceStable(listings, func(i, j int) bool {
			a, b := listings[i].LastUsed, listings[j].LastUsed
			switch {
			case a == nil:
				return false
			case b == nil:
				return true
			default:
				return a.After(*b)
			}
		})

		if lo.Must(cmd.Flags().GetBool("json")) {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			handleErr(encoder.Encode(listings))
			return
		}

		if len(listings) == 0 {
			cmd.Println(style.Faint("cache is empty"))
			return
		}

		for _, l := range listings {
			used := "never"
			if l.LastUsed != nil {
				used = l.LastUsed.Format(time.DateTime)
			}
			cmd.Printf("%s %10s  %s\n", style.Fg(color.Purple)(l.Key[:12]), util.FormatBytes(l.Size), style.Faint(used))
		}
	},
}

func init() {
	cacheCmd.AddCommand(cacheSizeCmd)
}

var cacheSizeCmd = &cobra.Command{
	Use:   "size",
	Short: "Print the total size of cached media",
	Run: func(cmd *cobra.Command, args []string) {
		store, _ := openCache()
		size, err := store.Size()
		handleErr(err)

		budget := viper.GetInt(key.CacheMaxSizeMB)
		if budget > 0 {
			cmd.Printf("%s of %s\n", util.FormatBytes(size), util.FormatBytes(int64(budget)<<20))
			return
		}
		cmd.Println(util.FormatBytes(size))
	},
}

func init() {
	cacheCmd.AddCommand(cachePruneCmd)
	cachePruneCmd.Flags().Int("max-mb", 0, "Size budget in megabytes, overrides cache.max_size_mb")
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Evict least recently used media until the cache fits its budget",
	Run: func(cmd *cobra.Command, args []string) {
		budget := viper.GetInt(key.CacheMaxSizeMB)
		if cmd.Flags().Changed("max-mb") {
			budget = lo.Must(cmd.Flags().GetInt("max-mb"))
		}

		store, _ := openCache()
		report, err := store.Prune(int64(budget) << 20)
		handleErr(err)

		cmd.Printf(
			"%s evicted %s, freed %s, %s remaining\n",
			style.Fg(color.Green)(icon.Get(icon.Success)),
			util.Quantify(report.Evicted, "entry", "entries"),
			util.FormatBytes(report.Freed),
			util.FormatBytes(report.Remaining),
		)
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	cacheClearCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached video",
	Run: func(cmd *cobra.Command, args []string) {
		store, _ := openCache()

		if !lo.Must(cmd.Flags().GetBool("yes")) {
			size, err := store.Size()
			handleErr(err)

			var confirm bool
			handleErr(survey.AskOne(&survey.Confirm{
				Message: fmt.Sprintf("Remove %s of cached media?", util.FormatBytes(size)),
			}, &confirm))
			if !confirm {
				return
			}
		}

		e := util.PrintErasable(fmt.Sprintf("%s Clearing cache...", icon.Get(icon.Progress)))
		err := store.Clear()
		e()
		handleErr(err)

		cmd.Printf("%s cache cleared\n", style.Fg(color.Green)(icon.Get(icon.Success)))
	},
}

func init() {
	cacheCmd.AddCommand(cacheResolveCmd)
}

var cacheResolveCmd = &cobra.Command{
	Use:   "resolve <source>",
	Short: "Print what a source would be played from",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		src, err := source.Parse(args[0])
		handleErr(err)

		// Without recency: a lookup here is not a use.
		store := cache.New(where.Media())
		if store.Exists(src) {
			cmd.Printf("%s %s\n", icon.Get(icon.Cached), store.Path(src))
			return
		}
		cmd.Printf("%s %s\n", icon.Get(icon.Remote), src)
	},
}

func init() {
	cacheCmd.AddCommand(cacheRevealCmd)
}

var cacheRevealCmd = &cobra.Command{
	Use:   "reveal",
	Short: "Open the media cache directory in the file browser",
	Run: func(cmd *cobra.Command, args []string) {
		handleErr(open.Reveal(where.Media()))
	},
}
