// Package playertest provides an in-memory player.Decoder for tests.
package playertest

import (
	"errors"
	"sync"

	"github.com/bmevideo/bmevideo/player"
)

// Decoder records commands and lets tests emit signals by hand.
type Decoder struct {
	mu       sync.Mutex
	sink     func(player.Signal)
	uri      string
	playing  bool
	position float64
	duration float64
	muted    bool
	volume   float64
	rate     float64
	closed   int
	disposed bool
	calls    []string

	// OpenErr, when set, is returned by the next Open.
	OpenErr error
	// ReadyOnOpen emits a Ready signal with Duration from inside Open.
	ReadyOnOpen bool
	// MediaDuration is reported in Ready signals and by Duration().
	MediaDuration float64
}

// New returns a decoder reporting a 10 second media duration.
func New() *Decoder {
	return &Decoder{volume: 1, rate: 1, MediaDuration: 10}
}

func (d *Decoder) record(call string) {
	d.calls = append(d.calls, call)
}

func (d *Decoder) Open(uri string, sink func(player.Signal)) error {
	d.mu.Lock()
	d.record("open")
	if d.disposed {
		d.mu.Unlock()
		return errors.New("disposed")
	}
	if err := d.OpenErr; err != nil {
		d.OpenErr = nil
		d.mu.Unlock()
		return err
	}
	d.uri = uri
	d.sink = sink
	d.playing = false
	d.position = 0
	d.duration = d.MediaDuration
	ready := d.ReadyOnOpen
	d.mu.Unlock()

	if ready {
		d.Ready()
	}
	return nil
}

func (d *Decoder) Play() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("play")
	d.playing = true
	return nil
}

func (d *Decoder) Pause() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("pause")
	d.playing = false
	return nil
}

func (d *Decoder) Seek(seconds float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("seek")
	d.position = seconds
	return nil
}

func (d *Decoder) Position() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.position
}

func (d *Decoder) Duration() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.duration
}

func (d *Decoder) SetMuted(muted bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("mute")
	d.muted = muted
	return nil
}

func (d *Decoder) SetVolume(volume float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("volume")
	d.volume = volume
	return nil
}

func (d *Decoder) SetRate(rate float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("rate")
	d.rate = rate
	return nil
}

func (d *Decoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("close")
	d.closed++
	d.sink = nil
	d.uri = ""
	d.playing = false
	return nil
}

func (d *Decoder) Dispose() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("dispose")
	d.disposed = true
	d.sink = nil
	return nil
}

// Emit delivers sig to the sink of the current media, if any.
func (d *Decoder) Emit(sig player.Signal) {
	d.mu.Lock()
	sink := d.sink
	d.mu.Unlock()

	if sink != nil {
		sink(sig)
	}
}

// EmitTo delivers sig to a sink captured earlier, simulating a late signal from replaced media.
func (d *Decoder) EmitTo(sink func(player.Signal), sig player.Signal) {
	sink(sig)
}

// Sink returns the sink of the current media.
func (d *Decoder) Sink() func(player.Signal) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sink
}

// Ready emits a Ready signal for the current media.
func (d *Decoder) Ready() {
	d.mu.Lock()
	duration := d.duration
	d.mu.Unlock()

	d.Emit(player.Signal{Kind: player.SignalReady, Duration: duration, Width: 1920, Height: 1080})
}

// SetPosition moves the reported playhead.
func (d *Decoder) SetPosition(seconds float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.position = seconds
}

// SetDuration changes the duration reported for the current media.
func (d *Decoder) SetDuration(seconds float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.duration = seconds
}

// URI returns the media currently opened.
func (d *Decoder) URI() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.uri
}

// Playing reports whether the decoder was last told to play.
func (d *Decoder) Playing() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.playing
}

// Muted reports the last mute setting.
func (d *Decoder) Muted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.muted
}

// Volume reports the last volume setting.
func (d *Decoder) Volume() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.volume
}

// Rate reports the last rate setting.
func (d *Decoder) Rate() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rate
}

// Disposed reports whether Dispose was called.
func (d *Decoder) Disposed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.disposed
}

// Calls returns the recorded command names in order.
func (d *Decoder) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}
