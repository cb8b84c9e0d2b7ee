package cache

import (
	"maps"
	"sync"
	"time"

	"github.com/bmevideo/bmevideo/filesystem"
	"github.com/metafates/gache"
	"github.com/samber/mo"
)

type recencyData struct {
	Used map[string]time.Time `json:"used"`
}

// Recency is a persisted index of when each entry was last resolved.
type Recency struct {
	mu       sync.Mutex
	internal *gache.Cache[*recencyData]
	now      func() time.Time
}

// NewRecency opens the index stored at path.
func NewRecency(path string) *Recency {
	return &Recency{
		internal: gache.New[*recencyData](&gache.Options{
			Path:       path,
			FileSystem: &filesystem.GacheFs{},
		}),
		now: time.Now,
	}
}

func (r *Recency) load() (*recencyData, error) {
	data, expired, err := r.internal.Get()
	if err != nil {
		return nil, err
	}

	if expired || data == nil || data.Used == nil {
		return &recencyData{Used: make(map[string]time.Time)}, nil
	}

	return data, nil
}

// Touch marks key as used now.
func (r *Recency) Touch(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := r.load()
	if err != nil {
		return err
	}

	data.Used[key] = r.now()
	return r.internal.Set(data)
}

// LastUsed returns when key was last touched, if ever.
func (r *Recency) LastUsed(key string) mo.Option[time.Time] {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := r.load()
	if err != nil {
		return mo.None[time.Time]()
	}

	if t, ok := data.Used[key]; ok {
		return mo.Some(t)
	}
	return mo.None[time.Time]()
}

// Snapshot returns a copy of the whole index, read once.
func (r *Recency) Snapshot() map[string]time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := r.load()
	if err != nil {
		return map[string]time.Time{}
	}
	return maps.Clone(data.Used)
}

// Forget drops keys from the index.
func (r *Recency) Forget(keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := r.load()
	if err != nil {
		return err
	}

	for _, key := range keys {
		delete(data.Used, key)
	}
	return r.internal.Set(data)
}

// Reset empties the index.
func (r *Recency) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.internal.Set(&recencyData{Used: make(map[string]time.Time)})
}
