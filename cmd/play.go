package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/bmevideo/bmevideo/app"
	"github.com/bmevideo/bmevideo/key"
	"github.com/bmevideo/bmevideo/session"
	"github.com/bmevideo/bmevideo/source"
	"github.com/bmevideo/bmevideo/style"
	"github.com/bmevideo/bmevideo/util"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(playCmd)
	playCmd.Flags().Bool("repeat", false, "Loop the video when it ends")
	playCmd.Flags().Bool("muted", false, "Start muted")
	playCmd.Flags().Int("volume", 100, "Initial volume, from 0 to 100")
	playCmd.Flags().Float64("rate", 1, "Playback rate")
	playCmd.Flags().Bool("paused", false, "Load the video without starting playback")
	playCmd.Flags().BoolP("json", "j", false, "Print every status as a JSON line, see the schema command")

	lo.Must0(viper.BindPFlag(key.PlayerRepeat, playCmd.Flags().Lookup("repeat")))
	lo.Must0(viper.BindPFlag(key.PlayerMuted, playCmd.Flags().Lookup("muted")))
	lo.Must0(viper.BindPFlag(key.PlayerVolume, playCmd.Flags().Lookup("volume")))
}

var playCmd = &cobra.Command{
	Use:     "play <source>",
	Short:   "Play a single video and report its playback status",
	Args:    cobra.ExactArgs(1),
	Example: "  bmevideo play https://cdn.example.com/clip.mp4 --repeat",
	Run: func(cmd *cobra.Command, args []string) {
		src, err := source.Parse(args[0])
		handleErr(err)

		CheckDependencies()

		a, err := app.New()
		handleErr(err)
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		observer := newPrintObserver(cmd.OutOrStdout(), lo.Must(cmd.Flags().GetBool("json")))
		s := a.Session(observer)
		defer s.Release()

		handleErr(s.SetRate(lo.Must(cmd.Flags().GetFloat64("rate"))))

		paused := lo.Must(cmd.Flags().GetBool("paused"))
		handleErr(s.SetSource(src, !paused && viper.GetBool(key.PlayerAutoplay)))

		select {
		case <-ctx.Done():
		case err = <-observer.done:
			handleErr(err)
		}
	},
}

// printObserver writes status changes as lines and progress on a single rewritten line.
type printObserver struct {
	session.BaseObserver

	out     io.Writer
	encoder *json.Encoder
	done    chan error
	once    sync.Once
	last    session.Status
}

func newPrintObserver(out io.Writer, asJSON bool) *printObserver {
	o := &printObserver{out: out, done: make(chan error, 1)}
	if asJSON {
		o.encoder = json.NewEncoder(out)
	}
	return o
}

func (o *printObserver) OnPlaybackStatus(status session.PlaybackStatus) {
	if o.encoder != nil {
		_ = o.encoder.Encode(status)
		switch status.Status {
		case session.StatusEnded:
			o.finish(nil)
		case session.StatusError:
			o.finish(errors.New(status.Error))
		}
		return
	}

	switch status.Status {
	case session.StatusProgress:
		_, _ = fmt.Fprintf(o.out, "\r%s %s", style.Status(string(o.last)), style.Faint(timestamps(status)))
		return
	case session.StatusEnded:
		o.line(status)
		o.finish(nil)
	case session.StatusError:
		o.line(status)
		o.finish(errors.New(status.Error))
	default:
		o.line(status)
	}
	o.last = status.Status
}

func (o *printObserver) line(status session.PlaybackStatus) {
	_, _ = fmt.Fprintf(o.out, "\r%s %s\n", style.Status(string(status.Status)), style.Faint(timestamps(status)))
}

func (o *printObserver) finish(err error) {
	o.once.Do(func() {
		o.done <- err
	})
}

func timestamps(status session.PlaybackStatus) string {
	switch {
	case status.Position != nil && status.Duration != nil:
		return util.FormatTimestamp(*status.Position) + " / " + util.FormatTimestamp(*status.Duration)
	case status.Duration != nil:
		return util.FormatTimestamp(*status.Duration)
	default:
		return status.Source
	}
}
