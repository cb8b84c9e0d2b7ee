package cache

import (
	"errors"
	"sort"
	"time"

	"github.com/bmevideo/bmevideo/log"
	"github.com/bmevideo/bmevideo/metrics"
	"github.com/samber/lo"
)

// PruneReport summarizes a Prune pass.
type PruneReport struct {
	Evicted   int
	Freed     int64
	Remaining int64
	Swept     int
}

// Prune evicts least recently used entries until the store fits in maxBytes.
// Entries never resolved through the cache fall back to their modification time.
// A non-positive budget only sweeps abandoned staging files.
func (c *Cache) Prune(maxBytes int64) (PruneReport, error) {
	var report PruneReport

	swept, err := c.sweep()
	if err != nil {
		return report, err
	}
	report.Swept = swept

	entries, err := c.Entries()
	if err != nil {
		return report, err
	}

	report.Remaining = lo.SumBy(entries, func(e Entry) int64 { return e.Size })
	if maxBytes <= 0 || report.Remaining <= maxBytes {
		metrics.CacheSizeBytes.Set(float64(report.Remaining))
		return report, nil
	}

	var used map[string]time.Time
	if c.recency != nil {
		used = c.recency.Snapshot()
	}
	lastUsed := func(e Entry) time.Time {
		if t, ok := used[e.Key]; ok {
			return t
		}
		return e.ModTime
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return lastUsed(entries[i]).Before(lastUsed(entries[j]))
	})

	var errs []error
	for _, e := range entries {
		if report.Remaining <= maxBytes {
			break
		}

		if err := c.Remove(e.Key); err != nil {
			errs = append(errs, err)
			continue
		}

		report.Evicted++
		report.Freed += e.Size
		report.Remaining -= e.Size
		metrics.CacheEvictionsTotal.Inc()
	}

	metrics.CacheSizeBytes.Set(float64(report.Remaining))
	log.With(log.Fields{
		"evicted":   report.Evicted,
		"freed":     report.Freed,
		"remaining": report.Remaining,
	}).Info("cache pruned")

	return report, errors.Join(errs...)
}
