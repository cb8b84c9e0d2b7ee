// Package coordinator enforces that at most one playback session is active at a time.
package coordinator

import (
	"sync"
	"weak"

	"github.com/bmevideo/bmevideo/metrics"
)

// Member is anything that can be asked to give up playback.
type Member interface {
	Yield()
}

// Coordinator holds the active member through a weak reference, so it never keeps a member alive.
// The previous member has yielded before the next one becomes active. No lock is held while a member yields.
type Coordinator[T any, PT interface {
	*T
	Member
}] struct {
	mu     sync.Mutex
	active weak.Pointer[T]
}

// New returns an empty coordinator.
func New[T any, PT interface {
	*T
	Member
}]() *Coordinator[T, PT] {
	return &Coordinator[T, PT]{}
}

// SetActive makes m the active member, telling the previous one to yield first.
// When another handoff lands while the previous member is yielding, the new holder is yielded in turn.
func (c *Coordinator[T, PT]) SetActive(m PT) {
	if m == nil {
		return
	}

	for {
		prev := c.Active()
		if prev == m {
			return
		}

		if prev != nil {
			prev.Yield()
			metrics.HandoffsTotal.Inc()
		}

		if c.swap(prev, m) {
			return
		}
	}
}

// swap installs m when the slot still holds prev.
func (c *Coordinator[T, PT]) swap(prev, m PT) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if PT(c.active.Value()) != prev {
		return false
	}
	c.active = weak.Make((*T)(m))
	return true
}

// ClearIfActive empties the slot when m holds it.
func (c *Coordinator[T, PT]) ClearIfActive(m PT) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if m != nil && c.active.Value() == (*T)(m) {
		c.active = weak.Pointer[T]{}
	}
}

// Active returns the active member, or nil.
func (c *Coordinator[T, PT]) Active() PT {
	c.mu.Lock()
	defer c.mu.Unlock()

	return PT(c.active.Value())
}
