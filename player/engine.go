package player

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/bmevideo/bmevideo/dispatch"
	"github.com/bmevideo/bmevideo/log"
	"github.com/bmevideo/bmevideo/source"
)

const (
	DefaultProgressInterval = 250 * time.Millisecond
	DefaultSeekIgnore       = 300 * time.Millisecond

	// seekTolerance is how far from the seek target a sample may land during the ignore window.
	seekTolerance = 1.0
	// seekAckTimeout bounds how long progress stays muted when the decoder never acknowledges a seek.
	seekAckTimeout = 2 * time.Second
)

// Listener receives engine events. Every call happens on the engine's dispatch loop.
type Listener interface {
	OnLoad(duration float64, width, height int)
	OnProgress(current, duration float64)
	OnBuffer(buffering bool)
	OnError(message string)
	OnEnd()
}

// SeekListener is implemented by listeners that want to know when a seek has landed.
type SeekListener interface {
	OnSeeked(position float64)
}

// Option configures an Engine.
type Option func(*Engine)

// WithProgressInterval sets how often progress is sampled while playing.
func WithProgressInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.interval = d
		}
	}
}

// WithSeekIgnore sets the window after a seek acknowledgement during which off-target samples are dropped.
func WithSeekIgnore(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.seekIgnore = d
		}
	}
}

// Engine plays one media location at a time through a Decoder.
type Engine struct {
	decoder    Decoder
	loop       *dispatch.Loop
	interval   time.Duration
	seekIgnore time.Duration
	now        func() time.Time

	mu        sync.Mutex
	listener  Listener
	state     State
	buffering bool
	autoplay  bool
	disposed  bool
	location  source.Location
	duration  float64

	// gen changes on every Load and Release; signals and events from an older generation are dropped.
	gen uint64

	seek struct {
		pending bool
		target  float64
		issued  time.Time
		acked   time.Time
	}

	stopSampler context.CancelFunc
}

// NewEngine wraps decoder. Every listener call is posted on loop.
func NewEngine(decoder Decoder, loop *dispatch.Loop, options ...Option) *Engine {
	e := &Engine{
		decoder:    decoder,
		loop:       loop,
		interval:   DefaultProgressInterval,
		seekIgnore: DefaultSeekIgnore,
		now:        time.Now,
	}
	for _, option := range options {
		option(e)
	}
	return e
}

// State reports the current state. Buffering is reported over Playing and Paused while the decoder is stalled.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.buffering && (e.state == Playing || e.state == Paused) {
		return Buffering
	}
	return e.state
}

// Location returns the location last passed to Load.
func (e *Engine) Location() source.Location {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.location
}

// SetListener replaces the listener. Events already queued are delivered to the new one.
func (e *Engine) SetListener(l Listener) {
	e.mu.Lock()
	e.listener = l
	e.mu.Unlock()
}

// ClearListener detaches the listener.
func (e *Engine) ClearListener() {
	e.SetListener(nil)
}

// Load releases any current media and starts loading loc.
// With autoplay the engine starts playing as soon as the decoder is ready.
func (e *Engine) Load(loc source.Location, autoplay bool) error {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return ErrDisposed
	}
	wasLoaded := e.state != Idle
	e.resetLocked()
	e.state = Loading
	e.autoplay = autoplay
	e.location = loc
	gen := e.gen
	ctx, cancel := context.WithCancel(context.Background())
	e.stopSampler = cancel
	e.mu.Unlock()

	if wasLoaded {
		if err := e.decoder.Close(); err != nil {
			log.With(log.Fields{"uri": loc.URI}).Warnf("closing previous media: %v", err)
		}
	}

	go e.sample(ctx, gen)

	err := e.decoder.Open(loc.URI, func(sig Signal) { e.handle(gen, sig) })
	if err != nil {
		err = decoderError("open", err)
		e.fail(gen, err)
		return err
	}

	return nil
}

// Play starts or resumes playback. While loading it only arms autoplay.
// Playing from Ended restarts the media from the beginning.
func (e *Engine) Play() error {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return ErrDisposed
	}

	state, gen := e.state, e.gen
	switch state {
	case Idle:
		e.mu.Unlock()
		return ErrNotLoaded
	case Loading:
		e.autoplay = true
		e.mu.Unlock()
		return nil
	case Playing:
		e.mu.Unlock()
		return nil
	case Error:
		e.mu.Unlock()
		return invalidState("play", state)
	}
	e.mu.Unlock()

	if state == Ended {
		if err := e.Seek(0); err != nil {
			return err
		}
	}

	if err := e.decoder.Play(); err != nil {
		return decoderError("play", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gen == gen && (e.state == Ready || e.state == Paused) {
		e.state = Playing
	}
	return nil
}

// Pause suspends playback. While loading it disarms autoplay.
func (e *Engine) Pause() error {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return ErrDisposed
	}

	state, gen := e.state, e.gen
	switch state {
	case Idle:
		e.mu.Unlock()
		return ErrNotLoaded
	case Loading:
		e.autoplay = false
		e.mu.Unlock()
		return nil
	case Error:
		e.mu.Unlock()
		return invalidState("pause", state)
	case Ready, Paused, Ended:
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	if err := e.decoder.Pause(); err != nil {
		return decoderError("pause", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gen == gen && e.state == Playing {
		e.state = Paused
	}
	return nil
}

// Seek moves to an absolute position in seconds. The latest seek wins.
// Seeking out of Ended leaves the engine Paused.
func (e *Engine) Seek(seconds float64) error {
	seconds = normalize(seconds)

	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return ErrDisposed
	}

	state := e.state
	if state == Idle {
		e.mu.Unlock()
		return ErrNotLoaded
	}
	if !state.loaded() {
		e.mu.Unlock()
		return invalidState("seek", state)
	}

	if state == Ended {
		e.state = Paused
	}
	e.seek.pending = true
	e.seek.target = seconds
	e.seek.issued = e.now()
	e.seek.acked = time.Time{}
	e.mu.Unlock()

	return decoderError("seek", e.decoder.Seek(seconds))
}

// SetMuted mutes or unmutes the decoder. The setting survives Load.
func (e *Engine) SetMuted(muted bool) error {
	if e.isDisposed() {
		return ErrDisposed
	}
	return decoderError("mute", e.decoder.SetMuted(muted))
}

// SetVolume sets a linear gain, clamped to [0, 1]. The setting survives Load.
func (e *Engine) SetVolume(volume float64) error {
	if e.isDisposed() {
		return ErrDisposed
	}
	return decoderError("volume", e.decoder.SetVolume(math.Max(0, math.Min(1, normalize(volume)))))
}

// SetRate sets the playback speed. Non-positive rates are ignored.
func (e *Engine) SetRate(rate float64) error {
	if e.isDisposed() {
		return ErrDisposed
	}
	if !(rate > 0) || math.IsInf(rate, 0) {
		return nil
	}
	return decoderError("rate", e.decoder.SetRate(rate))
}

// Position returns the current position, or 0 when unknown.
func (e *Engine) Position() float64 {
	if e.State() == Idle {
		return 0
	}
	return normalize(e.decoder.Position())
}

// Duration returns the media duration, or 0 when unknown.
func (e *Engine) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.duration
}

// Reset pauses and rewinds any loaded media, then releases it.
func (e *Engine) Reset() {
	e.mu.Lock()
	loaded := e.state.loaded()
	e.mu.Unlock()

	if loaded {
		_ = e.decoder.Pause()
		_ = e.decoder.Seek(0)
	}
	e.Release()
}

// Release tears down the current media and stops all event delivery for it.
// It is idempotent.
func (e *Engine) Release() {
	e.mu.Lock()
	if e.state == Idle {
		e.mu.Unlock()
		return
	}
	e.resetLocked()
	e.mu.Unlock()

	if err := e.decoder.Close(); err != nil {
		log.Warnf("releasing media: %v", err)
	}
}

// Dispose releases the media and destroys the decoder.
func (e *Engine) Dispose() {
	e.Release()

	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	e.disposed = true
	e.listener = nil
	e.mu.Unlock()

	if err := e.decoder.Dispose(); err != nil {
		log.Warnf("disposing decoder: %v", err)
	}
}

func (e *Engine) isDisposed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.disposed
}

// resetLocked returns to Idle and invalidates everything tied to the current generation.
func (e *Engine) resetLocked() {
	e.gen++
	e.state = Idle
	e.buffering = false
	e.autoplay = false
	e.duration = 0
	e.location = source.Location{}
	e.seek.pending = false
	if e.stopSampler != nil {
		e.stopSampler()
		e.stopSampler = nil
	}
}

// emit queues fn for the listener. It is dropped if the generation is stale or no listener is attached at delivery.
func (e *Engine) emit(gen uint64, fn func(Listener)) {
	e.loop.Post(func() {
		e.mu.Lock()
		l := e.listener
		current := e.gen == gen
		e.mu.Unlock()

		if current && l != nil {
			fn(l)
		}
	})
}

func (e *Engine) fail(gen uint64, err error) {
	e.mu.Lock()
	if e.gen != gen || e.state == Idle || e.state == Error {
		e.mu.Unlock()
		return
	}
	e.state = Error
	e.buffering = false
	if e.stopSampler != nil {
		e.stopSampler()
		e.stopSampler = nil
	}
	e.mu.Unlock()

	log.With(log.Fields{"error": err}).Warn("playback failed")
	message := err.Error()
	e.emit(gen, func(l Listener) { l.OnError(message) })
}

// handle applies a decoder signal from generation gen.
func (e *Engine) handle(gen uint64, sig Signal) {
	switch sig.Kind {
	case SignalReady:
		e.ready(gen, sig)
	case SignalFailed:
		err := sig.Err
		if err == nil {
			err = ErrDecoder
		}
		e.fail(gen, decoderError("load", err))
	case SignalStall:
		e.stall(gen, sig.Buffering)
	case SignalEnded:
		e.ended(gen)
	case SignalSeeked:
		e.seeked(gen)
	}
}

func (e *Engine) ready(gen uint64, sig Signal) {
	e.mu.Lock()
	if e.gen != gen || e.state != Loading {
		e.mu.Unlock()
		return
	}
	e.state = Ready
	e.duration = normalize(sig.Duration)
	autoplay := e.autoplay
	duration := e.duration
	e.mu.Unlock()

	e.emit(gen, func(l Listener) { l.OnLoad(duration, sig.Width, sig.Height) })

	if autoplay {
		if err := e.Play(); err != nil {
			e.fail(gen, err)
		}
	}
}

func (e *Engine) stall(gen uint64, buffering bool) {
	e.mu.Lock()
	if e.gen != gen || !e.state.loaded() || e.buffering == buffering {
		e.mu.Unlock()
		return
	}
	e.buffering = buffering
	e.mu.Unlock()

	e.emit(gen, func(l Listener) { l.OnBuffer(buffering) })
}

func (e *Engine) ended(gen uint64) {
	e.mu.Lock()
	if e.gen != gen || (e.state != Playing && e.state != Paused) {
		e.mu.Unlock()
		return
	}
	e.state = Ended
	e.buffering = false
	e.mu.Unlock()

	e.emit(gen, func(l Listener) { l.OnEnd() })
}

func (e *Engine) seeked(gen uint64) {
	e.mu.Lock()
	if e.gen != gen || !e.seek.pending {
		e.mu.Unlock()
		return
	}
	e.seek.pending = false
	e.seek.acked = e.now()
	target := e.seek.target
	e.mu.Unlock()

	e.emit(gen, func(l Listener) {
		if sl, ok := l.(SeekListener); ok {
			sl.OnSeeked(target)
		}
	})
}

// sample reports progress every interval while playing, until ctx is cancelled.
func (e *Engine) sample(ctx context.Context, gen uint64) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.tick(gen)
		}
	}
}

func (e *Engine) tick(gen uint64) {
	e.mu.Lock()
	if e.gen != gen || e.state != Playing {
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	current := normalize(e.decoder.Position())
	duration := normalize(e.decoder.Duration())

	e.mu.Lock()
	if e.gen != gen || e.state != Playing || e.stale(current) {
		e.mu.Unlock()
		return
	}
	if duration > 0 {
		e.duration = duration
	} else {
		duration = e.duration
	}
	e.mu.Unlock()

	e.emit(gen, func(l Listener) { l.OnProgress(current, duration) })
}

// stale reports whether a sample taken now should be suppressed because of a recent seek.
func (e *Engine) stale(current float64) bool {
	now := e.now()

	if e.seek.pending {
		if now.Sub(e.seek.issued) < seekAckTimeout {
			return true
		}
		e.seek.pending = false
		e.seek.acked = now
	}

	if e.seek.acked.IsZero() || now.Sub(e.seek.acked) >= e.seekIgnore {
		return false
	}
	return math.Abs(current-e.seek.target) > seekTolerance
}

// normalize maps NaN, infinities and negatives to 0.
func normalize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
