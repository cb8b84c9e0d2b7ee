// Package player drives media playback through a pluggable platform decoder.
//
// An Engine owns one Decoder and turns its asynchronous signals into a small
// state machine plus listener events delivered on a single dispatch loop.
package player

// Decoder is the platform capability an Engine plays media through.
// Implementations report asynchronous outcomes through the sink handed to Open
// and may call it from any goroutine.
type Decoder interface {
	// Open starts loading uri, replacing any current media. Readiness or failure arrives through sink.
	Open(uri string, sink func(Signal)) error
	Play() error
	Pause() error
	// Seek moves to an absolute position in seconds. A Seeked signal acknowledges it.
	Seek(seconds float64) error
	// Position and Duration may return NaN or infinities when unknown.
	Position() float64
	Duration() float64
	SetMuted(muted bool) error
	// SetVolume takes a linear gain in [0, 1].
	SetVolume(volume float64) error
	SetRate(rate float64) error
	// Close tears down the current media but keeps the decoder reusable.
	Close() error
	// Dispose destroys the decoder. It is not usable afterwards.
	Dispose() error
}

// SignalKind identifies a decoder notification.
type SignalKind int

const (
	// SignalReady carries Duration, Width and Height.
	SignalReady SignalKind = iota
	// SignalFailed carries Err.
	SignalFailed
	// SignalStall carries Buffering.
	SignalStall
	SignalEnded
	SignalSeeked
)

// Signal is a decoder notification.
type Signal struct {
	Kind      SignalKind
	Duration  float64
	Width     int
	Height    int
	Buffering bool
	Err       error
}
