// Package main is the entry point for bmevideo.
package main

import (
	"context"

	"github.com/bmevideo/bmevideo/cmd"
	"github.com/bmevideo/bmevideo/config"
	"github.com/bmevideo/bmevideo/internal/cache"
	"github.com/bmevideo/bmevideo/key"
	"github.com/bmevideo/bmevideo/log"
	"github.com/bmevideo/bmevideo/metrics"
	"github.com/bmevideo/bmevideo/where"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

func main() {
	lo.Must0(config.Setup())
	lo.Must0(log.Setup())

	if addr := viper.GetString(key.MetricsAddress); addr != "" {
		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics.Register(registry)

		go func() {
			if err := metrics.Serve(context.Background(), addr, registry); err != nil {
				log.Errorf("metrics: %v", err)
			}
		}()
	}

	if budget := viper.GetInt(key.CacheMaxSizeMB); budget > 0 {
		go func() {
			store := cache.New(where.Media(), cache.WithRecency(cache.NewRecency(where.Recency())))
			if _, err := store.Prune(int64(budget) << 20); err != nil {
				log.Warnf("cache prune: %v", err)
			}
		}()
	}

	cmd.Execute()
}
