// Package session binds a source to a pooled engine for one view and applies playback policy.
//
// A Session resolves its source through the content cache, warms the cache
// when the source is remote and uncached, borrows an engine from the pool
// and relays engine events to its Observer. Play claims the slot of the
// coordinator it shares with its siblings, so at most one session produces audio at a time.
package session

import (
	"fmt"
	"sync"

	"github.com/bmevideo/bmevideo/coordinator"
	"github.com/bmevideo/bmevideo/dispatch"
	"github.com/bmevideo/bmevideo/log"
	"github.com/bmevideo/bmevideo/player"
	"github.com/bmevideo/bmevideo/source"
	"github.com/bmevideo/bmevideo/util"
	"github.com/samber/lo"
)

// Resolver maps a source to the location an engine should load.
type Resolver interface {
	Resolve(src source.Source) source.Location
}

// Warmer starts background cache population for a source.
type Warmer interface {
	Preload(src source.Source)
}

// Engines lends playback engines.
type Engines interface {
	Acquire() *player.Engine
	Release(engine *player.Engine)
}

// Coordinator is the single-active-session registry.
type Coordinator = coordinator.Coordinator[Session, *Session]

// NewCoordinator returns an empty registry.
func NewCoordinator() *Coordinator {
	return coordinator.New[Session, *Session]()
}

// Deps are the collaborators of a session. Warmer is optional, the rest are required.
type Deps struct {
	Cache       Resolver
	Warmer      Warmer
	Pool        Engines
	Coordinator *Coordinator
	// Loop must be the loop the pooled engines deliver on.
	Loop *dispatch.Loop
}

// Session is the per-view playback controller.
type Session struct {
	cache       Resolver
	warmer      Warmer
	pool        Engines
	coordinator *Coordinator
	loop        *dispatch.Loop
	observer    Observer

	mu      sync.Mutex
	engine  *player.Engine
	relay   *relay
	src     source.Source
	muted   bool
	volume  float64
	rate    float64
	repeat  bool
	paused  bool
	playing bool
	poster  bool
}

// New returns a session with nothing loaded. A nil observer discards every event.
func New(deps Deps, observer Observer) *Session {
	if observer == nil {
		observer = BaseObserver{}
	}

	return &Session{
		cache:       deps.Cache,
		warmer:      deps.Warmer,
		pool:        deps.Pool,
		coordinator: deps.Coordinator,
		loop:        deps.Loop,
		observer:    observer,
		volume:      1,
		rate:        1,
	}
}

// SetSource releases the current binding and loads src into a freshly acquired engine.
// Playback starts when the decoder is ready if autoplay is set and the session is not paused.
func (s *Session) SetSource(src source.Source, autoplay bool) error {
	s.Release()

	loc := s.cache.Resolve(src)
	if !loc.Cached && src.Remote() && s.warmer != nil {
		s.warmer.Preload(src)
	}

	engine := s.pool.Acquire()
	r := &relay{session: s}

	s.mu.Lock()
	s.engine, s.relay, s.src = engine, r, src
	s.playing, s.poster = false, false
	muted, volume, rate := s.muted, s.volume, s.rate
	play := autoplay && !s.paused
	s.mu.Unlock()

	engine.SetListener(r)
	s.apply(engine, muted, volume, rate)

	if play {
		s.coordinator.SetActive(s)
	}

	fields := log.Fields{"source": src.String(), "cached": loc.Cached, "autoplay": play}
	log.With(fields).Info("loading source")

	return engine.Load(loc, play)
}

// Source returns the source last set.
func (s *Session) Source() source.Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src
}

// State returns the engine state, or Idle when nothing is bound.
func (s *Session) State() player.State {
	engine := s.current()
	if engine == nil {
		return player.Idle
	}
	return engine.State()
}

// Position returns the playhead in seconds.
func (s *Session) Position() float64 {
	engine := s.current()
	if engine == nil {
		return 0
	}
	return engine.Position()
}

// Duration returns the media duration in seconds, 0 when unknown.
func (s *Session) Duration() float64 {
	engine := s.current()
	if engine == nil {
		return 0
	}
	return engine.Duration()
}

// Play claims the coordinator slot, pausing whichever session held it, and starts playback.
// A session that cannot play leaves the slot alone.
func (s *Session) Play() error {
	s.mu.Lock()
	engine := s.engine
	s.paused = false
	s.mu.Unlock()

	if engine == nil {
		return player.ErrNotLoaded
	}

	switch state := engine.State(); state {
	case player.Idle:
		return player.ErrNotLoaded
	case player.Error:
		return fmt.Errorf("%w: cannot play while %s", player.ErrInvalidState, state)
	}

	s.coordinator.SetActive(s)
	if err := engine.Play(); err != nil {
		return err
	}

	if engine.State() != player.Loading {
		s.markPlaying(true, true)
	}
	return nil
}

// Pause suspends playback and remembers that the owner wants it paused.
func (s *Session) Pause() error {
	s.mu.Lock()
	engine := s.engine
	s.paused = true
	s.mu.Unlock()

	if engine == nil {
		return nil
	}
	return s.pause(engine)
}

// SetPaused is the declarative form of Play and Pause.
func (s *Session) SetPaused(paused bool) error {
	if paused {
		return s.Pause()
	}
	return s.Play()
}

// Yield pauses playback because another session became active. The owner's paused wish is unchanged.
func (s *Session) Yield() {
	engine := s.current()
	if engine == nil {
		return
	}

	if err := s.pause(engine); err != nil {
		log.With(log.Fields{"source": s.Source().String()}).Warnf("yield: %v", err)
	}
}

func (s *Session) pause(engine *player.Engine) error {
	state := engine.State()
	if err := engine.Pause(); err != nil {
		return err
	}

	// Autoplay starts the engine without the session noticing until the first progress sample.
	if state == player.Playing || state == player.Buffering {
		s.mu.Lock()
		s.playing = true
		s.mu.Unlock()
	}
	s.markPlaying(false, true)
	return nil
}

// Seek moves the playhead. OnSeek fires once the decoder has landed.
func (s *Session) Seek(seconds float64) error {
	engine := s.current()
	if engine == nil {
		return player.ErrNotLoaded
	}
	return engine.Seek(seconds)
}

// SetMuted mutes the current and every later engine.
func (s *Session) SetMuted(muted bool) error {
	s.mu.Lock()
	s.muted = muted
	engine := s.engine
	s.mu.Unlock()

	if engine == nil {
		return nil
	}
	return engine.SetMuted(muted)
}

// SetVolume sets a linear gain in [0, 1] for the current and every later engine.
func (s *Session) SetVolume(volume float64) error {
	s.mu.Lock()
	s.volume = util.Clamp(volume, 0, 1)
	engine := s.engine
	s.mu.Unlock()

	if engine == nil {
		return nil
	}
	return engine.SetVolume(volume)
}

// SetRate sets the playback speed for the current and every later engine.
func (s *Session) SetRate(rate float64) error {
	s.mu.Lock()
	if rate > 0 {
		s.rate = rate
	}
	engine := s.engine
	s.mu.Unlock()

	if engine == nil {
		return nil
	}
	return engine.SetRate(rate)
}

// SetRepeat makes the media restart when it ends.
func (s *Session) SetRepeat(repeat bool) {
	s.mu.Lock()
	s.repeat = repeat
	s.mu.Unlock()
}

// Release returns the engine to the pool and leaves the coordinator. It is idempotent.
func (s *Session) Release() {
	s.mu.Lock()
	engine := s.engine
	s.engine, s.relay = nil, nil
	s.playing = false
	s.mu.Unlock()

	if engine == nil {
		return
	}

	s.pool.Release(engine)
	s.coordinator.ClearIfActive(s)
}

func (s *Session) current() *player.Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine
}

func (s *Session) apply(engine *player.Engine, muted bool, volume, rate float64) {
	for name, err := range map[string]error{
		"mute":   engine.SetMuted(muted),
		"volume": engine.SetVolume(volume),
		"rate":   engine.SetRate(rate),
	} {
		if err != nil {
			log.Warnf("session %s: %v", name, err)
		}
	}
}

// markPlaying records whether the owner has been told playback is running and
// reports a playing or paused status when that changes.
// Calls from outside the loop post the report; calls from the relay deliver it in place.
func (s *Session) markPlaying(playing, post bool) {
	s.mu.Lock()
	if s.engine == nil || s.playing == playing {
		s.mu.Unlock()
		return
	}
	s.playing = playing
	status := s.statusLocked(lo.Ternary(playing, StatusPlaying, StatusPaused))
	s.mu.Unlock()

	if post {
		s.loop.Post(func() { s.observer.OnPlaybackStatus(status) })
	} else {
		s.observer.OnPlaybackStatus(status)
	}
}

func (s *Session) statusLocked(status Status) PlaybackStatus {
	return PlaybackStatus{Status: status, Source: s.src.String()}
}

// setPoster updates poster visibility and reports whether it changed.
func (s *Session) setPoster(visible bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.poster == visible {
		return false
	}
	s.poster = visible
	return true
}
