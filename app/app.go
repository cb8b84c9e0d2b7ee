// Package app assembles the playback and caching stack from configuration.
package app

import (
	"time"

	"github.com/bmevideo/bmevideo/dispatch"
	"github.com/bmevideo/bmevideo/internal/cache"
	"github.com/bmevideo/bmevideo/key"
	"github.com/bmevideo/bmevideo/log"
	"github.com/bmevideo/bmevideo/network"
	"github.com/bmevideo/bmevideo/player"
	"github.com/bmevideo/bmevideo/pool"
	"github.com/bmevideo/bmevideo/preload"
	"github.com/bmevideo/bmevideo/session"
	"github.com/bmevideo/bmevideo/where"
	"github.com/spf13/viper"
)

// App owns the long-lived collaborators every session shares.
// Each App has its own event loop and coordinator.
type App struct {
	Cache       *cache.Cache
	Preloader   *preload.Preloader
	Pool        *pool.Pool
	Coordinator *session.Coordinator
	Loop        *dispatch.Loop
}

type settings struct {
	decoder     func() player.Decoder
	fetcher   preload.Fetcher
	onSettled func(preload.Task)
}

// Option overrides a collaborator that would otherwise come from configuration.
type Option func(*settings)

// WithDecoder replaces the configured decoder backend.
func WithDecoder(factory func() player.Decoder) Option {
	return func(s *settings) {
		s.decoder = factory
	}
}

// WithFetcher replaces the HTTP fetcher used for preloading.
func WithFetcher(fetcher preload.Fetcher) Option {
	return func(s *settings) {
		s.fetcher = fetcher
	}
}

// WithOnSettled observes every finished preload task.
func WithOnSettled(fn func(preload.Task)) Option {
	return func(s *settings) {
		s.onSettled = fn
	}
}

// New builds the stack. It fails only when the configured backend is unknown.
func New(options ...Option) (*App, error) {
	s := &settings{}
	for _, option := range options {
		option(s)
	}

	if s.decoder == nil {
		backend := viper.GetString(key.PlayerBackend)
		if _, err := player.NewDecoder(backend); err != nil {
			return nil, err
		}
		s.decoder = func() player.Decoder {
			decoder, _ := player.NewDecoder(backend)
			return decoder
		}
	}
	if s.fetcher == nil {
		s.fetcher = network.NewFetcher(nil)
	}
	store := cache.New(where.Media(), cache.WithRecency(cache.NewRecency(where.Recency())))

	preloadOptions := []preload.Option{
		preload.WithMaxConcurrent(viper.GetInt(key.PreloadMaxConcurrent)),
		preload.WithTimeout(time.Duration(viper.GetInt(key.PreloadTimeoutSeconds)) * time.Second),
	}
	if s.onSettled != nil {
		preloadOptions = append(preloadOptions, preload.WithOnSettled(s.onSettled))
	}

	engineOptions := []player.Option{
		player.WithProgressInterval(time.Duration(viper.GetInt(key.PlayerProgressIntervalMs)) * time.Millisecond),
		player.WithSeekIgnore(time.Duration(viper.GetInt(key.PlayerSeekIgnoreMs)) * time.Millisecond),
	}

	a := &App{
		Cache:       store,
		Preloader:   preload.New(store, s.fetcher, preloadOptions...),
		Coordinator: session.NewCoordinator(),
		Loop:        dispatch.New(),
	}
	a.Pool = pool.New(func() *player.Engine {
		return player.NewEngine(s.decoder(), a.Loop, engineOptions...)
	}, viper.GetInt(key.PoolMaxSize))

	log.With(log.Fields{
		"media":   store.Dir(),
		"backend": viper.GetString(key.PlayerBackend),
		"pool":    viper.GetInt(key.PoolMaxSize),
	}).Debug("app assembled")

	return a, nil
}

// Session returns a session wired to the app, with the configured playback defaults applied.
func (a *App) Session(observer session.Observer) *session.Session {
	s := session.New(session.Deps{
		Cache:       a.Cache,
		Warmer:      a.Preloader,
		Pool:        a.Pool,
		Coordinator: a.Coordinator,
		Loop:        a.Loop,
	}, observer)

	s.SetRepeat(viper.GetBool(key.PlayerRepeat))
	_ = s.SetMuted(viper.GetBool(key.PlayerMuted))
	_ = s.SetVolume(float64(viper.GetInt(key.PlayerVolume)) / 100)
	return s
}

// Prune evicts least recently used media until the store fits cache.max_size_mb.
// A zero budget keeps everything.
func (a *App) Prune() (cache.PruneReport, error) {
	return a.Cache.Prune(int64(viper.GetInt(key.CacheMaxSizeMB)) << 20)
}

// Close cancels outstanding transfers, disposes idle engines and stops the event loop
// once every queued event has been delivered. Sessions must be released first.
func (a *App) Close() {
	a.Preloader.Close()
	a.Pool.Close()
	a.Loop.Close()
}
