package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bmevideo/bmevideo/app"
	"github.com/bmevideo/bmevideo/color"
	"github.com/bmevideo/bmevideo/icon"
	"github.com/bmevideo/bmevideo/preload"
	"github.com/bmevideo/bmevideo/source"
	"github.com/bmevideo/bmevideo/style"
	"github.com/bmevideo/bmevideo/util"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(preloadCmd)
	preloadCmd.Flags().StringP("list", "l", "", "Read sources from a file, one per line")
	preloadCmd.Flags().Bool("quiet", false, "Do not print transfer progress")
	preloadCmd.Flags().Duration("cancel-after", 0, "Cancel transfers still running after this long")
}

var preloadCmd = &cobra.Command{
	Use:   "preload [sources...]",
	Short: "Download videos into the media cache",
	Run: func(cmd *cobra.Command, args []string) {
		var (
			list  = lo.Must(cmd.Flags().GetString("list"))
			quiet = lo.Must(cmd.Flags().GetBool("quiet"))
		)

		raw := args
		if list != "" {
			lines, err := readLines(list)
			handleErr(err)
			raw = append(raw, lines...)
		}
		if len(raw) == 0 {
			handleErr(cmd.Help())
			return
		}

		sources, err := parseSources(raw)
		handleErr(err)

		settled := make(chan preload.Task, len(sources))
		a, err := app.New(app.WithOnSettled(func(t preload.Task) { settled <- t }))
		handleErr(err)
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if after := lo.Must(cmd.Flags().GetDuration("cancel-after")); after > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, after)
			defer cancel()
		}

		queued := lo.Filter(lo.UniqBy(sources, source.Source.Key), func(src source.Source, _ int) bool {
			return src.Remote() && !a.Cache.Exists(src)
		})
		for _, src := range queued {
			a.Preloader.Preload(src)
		}

		skipped := len(sources) - len(queued)
		if skipped > 0 {
			fmt.Printf("%s %s already cached or local\n", icon.Get(icon.Cached), util.Quantify(skipped, "source", "sources"))
		}

		var failed int
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()

		for remaining := len(queued); remaining > 0; {
			select {
			case <-ctx.Done():
				clearLine(quiet)
				for _, src := range queued {
					a.Preloader.Cancel(src)
				}
				fmt.Printf("%s cancelled %s\n", style.Fg(color.Yellow)(icon.Get(icon.Fail)), util.Quantify(remaining, "transfer", "transfers"))
				handleErr(ctx.Err())
				return
			case t := <-settled:
				remaining--
				clearLine(quiet)
				switch t.State {
				case preload.Done:
					fmt.Printf("%s %s %s\n", style.Fg(color.Green)(icon.Get(icon.Success)), t.Source, style.Faint(util.FormatBytes(t.Bytes)))
				case preload.Failed:
					failed++
					fmt.Printf("%s %s %s\n", style.Fg(color.Red)(icon.Get(icon.Fail)), t.Source, style.Faint(t.Err.Error()))
				}
			case <-ticker.C:
				if !quiet {
					printTransfers(a.Preloader.Tasks())
				}
			}
		}

		if failed > 0 {
			handleErr(fmt.Errorf("%s failed", util.Quantify(failed, "transfer", "transfers")))
		}
	},
}

func printTransfers(tasks []preload.Task) {
	running := lo.Filter(tasks, func(t preload.Task, _ int) bool { return t.State == preload.Running })
	bytes := lo.SumBy(running, func(t preload.Task) int64 { return t.Bytes })

	fmt.Printf(
		"\r%s %d running, %d queued, %s",
		icon.Get(icon.Download),
		len(running),
		len(tasks)-len(running),
		util.FormatBytes(bytes),
	)
}

func clearLine(quiet bool) {
	if !quiet {
		fmt.Print("\r\033[K")
	}
}
