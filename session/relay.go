package session

import (
	"github.com/bmevideo/bmevideo/log"
	"github.com/bmevideo/bmevideo/player"
	"github.com/samber/lo"
)

// relay is the engine listener for one binding of a session.
// A new relay is made on every SetSource, so events from an earlier binding are recognised and dropped.
type relay struct {
	session *Session
}

func (r *relay) bound() bool {
	r.session.mu.Lock()
	defer r.session.mu.Unlock()
	return r.session.relay == r
}

func (r *relay) status(status Status, position, duration *float64, message string) {
	s := r.session
	s.mu.Lock()
	payload := s.statusLocked(status)
	s.mu.Unlock()

	payload.Position, payload.Duration, payload.Error = position, duration, message
	s.observer.OnPlaybackStatus(payload)
}

func (r *relay) poster(visible bool) {
	if r.session.setPoster(visible) {
		r.session.observer.OnPoster(visible)
	}
}

func (r *relay) OnLoad(duration float64, width, height int) {
	if !r.bound() {
		return
	}

	r.poster(true)
	r.session.observer.OnLoad(duration, width, height)
	r.status(StatusLoaded, lo.ToPtr(0.0), lo.ToPtr(duration), "")
}

func (r *relay) OnProgress(current, duration float64) {
	if !r.bound() {
		return
	}

	s := r.session
	if current > 0 && s.setPoster(false) {
		// The first frame is on screen.
		s.observer.OnPoster(false)
		s.coordinator.SetActive(s)
	}
	if engine := s.current(); engine != nil && engine.State() == player.Playing {
		s.markPlaying(true, false)
	}

	s.observer.OnProgress(current, duration)
	r.status(StatusProgress, lo.ToPtr(current), lo.ToPtr(duration), "")
}

func (r *relay) OnBuffer(buffering bool) {
	if !r.bound() {
		return
	}

	s := r.session
	s.observer.OnBuffer(buffering)
	if buffering {
		r.status(StatusBuffering, nil, nil, "")
		return
	}

	if engine := s.current(); engine != nil && engine.State() == player.Playing {
		s.mu.Lock()
		s.playing = true
		s.mu.Unlock()
		r.status(StatusPlaying, nil, nil, "")
	}
}

func (r *relay) OnError(message string) {
	if !r.bound() {
		return
	}

	s := r.session
	s.mu.Lock()
	s.playing = false
	s.mu.Unlock()

	r.poster(true)
	s.observer.OnError(message)
	r.status(StatusError, nil, nil, message)
}

func (r *relay) OnEnd() {
	if !r.bound() {
		return
	}

	s := r.session
	s.mu.Lock()
	repeat, engine := s.repeat, s.engine
	s.mu.Unlock()

	if repeat && engine != nil {
		err := engine.Seek(0)
		if err == nil {
			err = engine.Play()
		}
		if err == nil {
			r.status(StatusPlaying, lo.ToPtr(0.0), lo.ToPtr(engine.Duration()), "")
			return
		}
		log.With(log.Fields{"source": s.Source().String()}).Warnf("repeat: %v", err)
	}

	s.mu.Lock()
	s.playing = false
	s.mu.Unlock()

	r.poster(true)
	s.observer.OnEnd()
	r.status(StatusEnded, nil, nil, "")
}

func (r *relay) OnSeeked(position float64) {
	if !r.bound() {
		return
	}
	r.session.observer.OnSeek(position)
}
