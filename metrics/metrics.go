// Package metrics declares the prometheus collectors for the playback core.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bmevideo"

var (
	CacheLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Cache resolutions by result (hit or miss).",
	}, []string{"result"})

	CacheStoresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_stores_total",
		Help:      "Entries committed to the media cache.",
	})

	CacheEvictionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_evictions_total",
		Help:      "Entries evicted by the size budget.",
	})

	CacheSizeBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "cache_size_bytes",
		Help:      "Size of the media cache after the last prune.",
	})

	PreloadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "preloads_total",
		Help:      "Preload tasks by outcome (started, done, failed, cancelled).",
	}, []string{"outcome"})

	PreloadBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "preload_bytes_total",
		Help:      "Bytes transferred by preload tasks.",
	})

	PreloadTasksLive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "preload_tasks_live",
		Help:      "Preload tasks that are pending or running.",
	})

	EnginesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "engines_total",
		Help:      "Playback engines by lifecycle event (created, reused, disposed).",
	}, []string{"event"})

	EnginesIdle = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "engines_idle",
		Help:      "Playback engines parked in the pool.",
	})

	HandoffsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "coordinator_handoffs_total",
		Help:      "Times an active session was asked to yield to another.",
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		CacheLookupsTotal,
		CacheStoresTotal,
		CacheEvictionsTotal,
		CacheSizeBytes,
		PreloadsTotal,
		PreloadBytesTotal,
		PreloadTasksLive,
		EnginesTotal,
		EnginesIdle,
		HandoffsTotal,
	)
}

// Serve exposes gatherer on addr under /metrics until ctx is done.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
