// Package dispatch runs posted callbacks one at a time on a dedicated goroutine.
//
// Producers never block: the queue is unbounded. Callbacks run in the order
// they were posted.
package dispatch

import (
	"sync"

	"github.com/bmevideo/bmevideo/log"
)

// Loop is a single-consumer callback queue.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	closed  bool
	stopped chan struct{}
}

// New starts a loop.
func New() *Loop {
	l := &Loop{
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	go l.run()
	return l
}

// Post queues fn. It returns false when the loop is closed and fn was dropped.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Flush blocks until every callback posted before it has run.
func (l *Loop) Flush() {
	done := make(chan struct{})
	if !l.Post(func() { close(done) }) {
		return
	}
	<-done
}

// Close runs what is already queued and stops the loop. Later posts are dropped.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		<-l.stopped
		return
	}
	l.closed = true
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	<-l.stopped
}

func (l *Loop) run() {
	defer close(l.stopped)

	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		closed := l.closed
		l.mu.Unlock()

		for _, fn := range batch {
			l.invoke(fn)
		}

		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-l.wake
	}
}

func (l *Loop) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("dispatch: callback panicked: %v", r)
		}
	}()
	fn()
}
