package session

import "github.com/bmevideo/bmevideo/player"

// Status is the aggregated playback status reported to the owner of a session.
type Status string

const (
	StatusLoaded    Status = "loaded"
	StatusProgress  Status = "progress"
	StatusBuffering Status = "buffering"
	StatusPlaying   Status = "playing"
	StatusPaused    Status = "paused"
	StatusError     Status = "error"
	StatusEnded     Status = "ended"
)

// PlaybackStatus is the payload of OnPlaybackStatus.
type PlaybackStatus struct {
	Status   Status   `json:"status" jsonschema:"enum=loaded,enum=progress,enum=buffering,enum=playing,enum=paused,enum=error,enum=ended"`
	Position *float64 `json:"position,omitempty" jsonschema:"minimum=0,description=Playhead in seconds"`
	Duration *float64 `json:"duration,omitempty" jsonschema:"minimum=0,description=Media duration in seconds or 0 when unknown"`
	Error    string   `json:"error,omitempty"`
	Source   string   `json:"source,omitempty" jsonschema:"description=Identifier the session was given"`
}

// Observer is the owner's view of a session. All calls happen on the session's dispatch loop.
type Observer interface {
	player.Listener
	OnPlaybackStatus(status PlaybackStatus)
	OnSeek(position float64)
	OnPoster(visible bool)
}

// BaseObserver ignores every event. Embed it to implement only some of Observer.
type BaseObserver struct{}

func (BaseObserver) OnLoad(float64, int, int) {}
func (BaseObserver) OnProgress(float64, float64) {}
func (BaseObserver) OnBuffer(bool) {}
func (BaseObserver) OnError(string) {}
func (BaseObserver) OnEnd() {}
func (BaseObserver) OnPlaybackStatus(PlaybackStatus) {}
func (BaseObserver) OnSeek(float64) {}
func (BaseObserver) OnPoster(bool) {}
