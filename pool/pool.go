// Package pool recycles playback engines so their decoders outlive individual sources.
package pool

import (
	"sync"

	"github.com/bmevideo/bmevideo/log"
	"github.com/bmevideo/bmevideo/metrics"
	"github.com/bmevideo/bmevideo/player"
)

// DefaultMaxSize is how many idle engines a pool keeps.
const DefaultMaxSize = 3

// Factory constructs a fresh engine.
type Factory func() *player.Engine

// Pool hands out engines and parks them for reuse when released.
type Pool struct {
	factory Factory
	maxSize int

	mu     sync.Mutex
	idle   []*player.Engine
	lent   map[*player.Engine]struct{}
	closed bool
}

// New returns a pool keeping up to maxSize idle engines. A negative maxSize means DefaultMaxSize.
func New(factory Factory, maxSize int) *Pool {
	if maxSize < 0 {
		maxSize = DefaultMaxSize
	}
	return &Pool{
		factory: factory,
		maxSize: maxSize,
		lent:    make(map[*player.Engine]struct{}),
	}
}

// Acquire returns an idle engine, reset to Idle, or constructs a new one. It never blocks.
func (p *Pool) Acquire() *player.Engine {
	p.mu.Lock()
	var engine *player.Engine
	if n := len(p.idle); n > 0 {
		engine = p.idle[n-1]
		p.idle[n-1] = nil
		p.idle = p.idle[:n-1]
	}
	idle := len(p.idle)
	p.mu.Unlock()

	if engine != nil {
		engine.Reset()
		metrics.EnginesTotal.WithLabelValues("reused").Inc()
	} else {
		engine = p.factory()
		metrics.EnginesTotal.WithLabelValues("created").Inc()
	}
	metrics.EnginesIdle.Set(float64(idle))

	p.mu.Lock()
	p.lent[engine] = struct{}{}
	p.mu.Unlock()

	return engine
}

// Release returns engine to the pool. Its media is torn down and its listener detached.
// Engines beyond the idle limit are disposed. Releasing an engine that is not lent is a no-op.
func (p *Pool) Release(engine *player.Engine) {
	p.mu.Lock()
	if _, ok := p.lent[engine]; !ok {
		p.mu.Unlock()
		return
	}
	delete(p.lent, engine)
	p.mu.Unlock()

	engine.ClearListener()
	engine.Reset()

	p.mu.Lock()
	keep := !p.closed && len(p.idle) < p.maxSize
	if keep {
		p.idle = append(p.idle, engine)
	}
	idle := len(p.idle)
	p.mu.Unlock()

	metrics.EnginesIdle.Set(float64(idle))
	if !keep {
		engine.Dispose()
		metrics.EnginesTotal.WithLabelValues("disposed").Inc()
		log.Debug("pool full, engine disposed")
	}
}

// Idle returns how many engines are parked.
func (p *Pool) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// Lent returns how many engines are handed out.
func (p *Pool) Lent() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.lent)
}

// Close disposes every idle engine. Engines still lent are disposed when released.
func (p *Pool) Close() {
	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.closed = true
	p.mu.Unlock()

	for _, engine := range idle {
		engine.Dispose()
		metrics.EnginesTotal.WithLabelValues("disposed").Inc()
	}
	metrics.EnginesIdle.Set(0)
}
