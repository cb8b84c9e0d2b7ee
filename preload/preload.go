// Package preload warms the content cache with background transfers.
//
// At most one live task exists per source key, and a global ceiling bounds
// how many transfers run at once. Failures are logged and dropped; playback
// falls back to the remote identifier.
package preload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bmevideo/bmevideo/internal/cache"
	"github.com/bmevideo/bmevideo/log"
	"github.com/bmevideo/bmevideo/metrics"
	"github.com/bmevideo/bmevideo/network"
	"github.com/bmevideo/bmevideo/source"
	"github.com/samber/lo"
	"golang.org/x/sync/semaphore"
)

// DefaultMaxConcurrent bounds simultaneous transfers.
const DefaultMaxConcurrent = 3

// ErrDownloadFailed wraps every transfer failure.
var ErrDownloadFailed = errors.New("download failed")

// Store is the part of the content cache the preloader writes through.
type Store interface {
	Exists(src source.Source) bool
	Stage(src source.Source) (*cache.Staged, error)
}

// Fetcher opens the byte stream of a remote identifier.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, int64, error)
}

// TaskState is the lifecycle position of a preload task.
type TaskState int

const (
	Pending TaskState = iota
	Running
	Done
	Failed
	Cancelled
)

var taskStateNames = [...]string{
	Pending:   "pending",
	Running:   "running",
	Done:      "done",
	Failed:    "failed",
	Cancelled: "cancelled",
}

func (s TaskState) String() string {
	if s < 0 || int(s) >= len(taskStateNames) {
		return "unknown"
	}
	return taskStateNames[s]
}

// Terminal reports whether no further transitions can happen.
func (s TaskState) Terminal() bool {
	return s >= Done
}

// Task is a snapshot of a preload task.
type Task struct {
	Source  source.Source
	State   TaskState
	Bytes   int64
	Size    int64
	Started time.Time
	Err     error
}

type task struct {
	src      source.Source
	state    TaskState
	ctx      context.Context
	cancel   context.CancelFunc
	progress *network.ProgressWriter
	size     int64
	started  time.Time
}

func (t *task) snapshot() Task {
	snap := Task{Source: t.src, State: t.state, Size: t.size, Started: t.started}
	if t.progress != nil {
		snap.Bytes = t.progress.Written()
	}
	return snap
}

// Option configures a Preloader.
type Option func(*Preloader)

// WithMaxConcurrent sets the transfer ceiling. Values below 1 are ignored.
func WithMaxConcurrent(n int) Option {
	return func(p *Preloader) {
		if n >= 1 {
			p.maxConcurrent = n
		}
	}
}

// WithTimeout bounds each transfer. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(p *Preloader) {
		p.timeout = d
	}
}

// WithOnSettled registers a hook called once per task when it finishes, fails or is cancelled.
// It runs on the task's goroutine, or on the caller's for Cancel.
func WithOnSettled(fn func(Task)) Option {
	return func(p *Preloader) {
		p.onSettled = fn
	}
}

// Preloader deduplicates and runs background transfers into a Store.
type Preloader struct {
	store         Store
	fetcher       Fetcher
	maxConcurrent int
	timeout       time.Duration
	onSettled     func(Task)
	sem           *semaphore.Weighted
	root          context.Context
	stop          context.CancelFunc

	mu      sync.Mutex
	tasks   map[string]*task
	active  int
	changed chan struct{}
	closed  bool
}

// New returns a preloader writing into store with bytes from fetcher.
func New(store Store, fetcher Fetcher, options ...Option) *Preloader {
	p := &Preloader{
		store:         store,
		fetcher:       fetcher,
		maxConcurrent: DefaultMaxConcurrent,
		tasks:         make(map[string]*task),
		changed:       make(chan struct{}),
	}
	for _, option := range options {
		option(p)
	}
	p.sem = semaphore.NewWeighted(int64(p.maxConcurrent))
	p.root, p.stop = context.WithCancel(context.Background())
	return p
}

// Preload starts a background transfer for src unless it is already cached,
// already being transferred, or not remote.
func (p *Preloader) Preload(src source.Source) {
	if !src.Remote() || p.store.Exists(src) {
		return
	}

	key := src.Key()

	p.mu.Lock()
	if _, ok := p.tasks[key]; ok || p.closed {
		p.mu.Unlock()
		return
	}

	ctx, cancel := context.WithCancel(p.root)
	t := &task{src: src, state: Pending, ctx: ctx, cancel: cancel, size: -1, started: time.Now()}
	p.tasks[key] = t
	p.active++
	p.notifyLocked()
	metrics.PreloadTasksLive.Set(float64(len(p.tasks)))
	p.mu.Unlock()

	metrics.PreloadsTotal.WithLabelValues("started").Inc()
	log.With(log.Fields{"source": src.String(), "key": key}).Debug("preload queued")

	go p.run(t)
}

// Cancel aborts the live task for src, if any.
func (p *Preloader) Cancel(src source.Source) {
	key := src.Key()

	p.mu.Lock()
	t, ok := p.tasks[key]
	if !ok {
		p.mu.Unlock()
		return
	}
	t.state = Cancelled
	delete(p.tasks, key)
	snap := t.snapshot()
	p.notifyLocked()
	metrics.PreloadTasksLive.Set(float64(len(p.tasks)))
	p.mu.Unlock()

	t.cancel()
	metrics.PreloadsTotal.WithLabelValues("cancelled").Inc()
	log.With(log.Fields{"source": src.String()}).Debug("preload cancelled")
	p.settled(snap)
}

// IsPreloaded reports whether src is in the cache.
func (p *Preloader) IsPreloaded(src source.Source) bool {
	return p.store.Exists(src)
}

// Tasks returns a snapshot of the live tasks.
func (p *Preloader) Tasks() []Task {
	p.mu.Lock()
	defer p.mu.Unlock()

	return lo.MapToSlice(p.tasks, func(_ string, t *task) Task {
		return t.snapshot()
	})
}

// Wait blocks until every started transfer has settled, or ctx is done.
func (p *Preloader) Wait(ctx context.Context) error {
	for {
		p.mu.Lock()
		if p.active == 0 {
			p.mu.Unlock()
			return nil
		}
		changed := p.changed
		p.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close cancels every task and waits for their goroutines. Later Preload calls are ignored.
func (p *Preloader) Close() {
	p.mu.Lock()
	p.closed = true
	live := lo.Values(p.tasks)
	p.mu.Unlock()

	for _, t := range live {
		p.Cancel(t.src)
	}
	p.stop()
	_ = p.Wait(context.Background())
}

func (p *Preloader) notifyLocked() {
	close(p.changed)
	p.changed = make(chan struct{})
}

func (p *Preloader) settled(t Task) {
	if p.onSettled != nil {
		p.onSettled(t)
	}
}

func (p *Preloader) run(t *task) {
	defer func() {
		p.mu.Lock()
		p.active--
		p.notifyLocked()
		p.mu.Unlock()
	}()

	if err := p.sem.Acquire(t.ctx, 1); err != nil {
		return
	}
	defer p.sem.Release(1)

	p.mu.Lock()
	if t.state == Cancelled {
		p.mu.Unlock()
		return
	}
	t.state = Running
	p.mu.Unlock()

	// Another path may have filled the cache while this task was pending.
	if p.store.Exists(t.src) {
		p.finish(t, nil)
		return
	}

	ctx := t.ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	staged, err := p.transfer(ctx, t)
	if err != nil {
		p.fail(t, err)
		return
	}

	p.finish(t, staged)
}

// transfer streams the body of t into a staged cache entry.
func (p *Preloader) transfer(ctx context.Context, t *task) (*cache.Staged, error) {
	body, size, err := p.fetcher.Fetch(ctx, t.src.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}
	defer body.Close()

	staged, err := p.store.Stage(t.src)
	if err != nil {
		return nil, err
	}

	progress := network.NewProgressWriter(staged)
	p.mu.Lock()
	t.progress, t.size = progress, size
	p.mu.Unlock()

	n, err := io.Copy(progress, body)
	metrics.PreloadBytesTotal.Add(float64(n))
	if err != nil {
		staged.Discard()
		if errors.Is(err, cache.ErrStorage) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}

	if size >= 0 && n != size {
		staged.Discard()
		return nil, fmt.Errorf("%w: short body: got %d of %d bytes", ErrDownloadFailed, n, size)
	}

	return staged, nil
}

// finish commits staged unless the task was cancelled meanwhile.
// The task stays registered until the entry is in place, so a concurrent Preload of the same source finds one or the other.
func (p *Preloader) finish(t *task, staged *cache.Staged) {
	key := t.src.Key()

	p.mu.Lock()
	if t.state == Cancelled {
		p.mu.Unlock()
		if staged != nil {
			staged.Discard()
		}
		return
	}

	var err error
	if staged != nil {
		err = staged.Commit()
	}

	t.state = Done
	if err != nil {
		t.state = Failed
	}
	delete(p.tasks, key)
	snap := t.snapshot()
	snap.Err = err
	metrics.PreloadTasksLive.Set(float64(len(p.tasks)))
	p.mu.Unlock()

	if err != nil {
		metrics.PreloadsTotal.WithLabelValues("failed").Inc()
		log.With(log.Fields{"source": t.src.String()}).Errorf("preload commit: %v", err)
		p.settled(snap)
		return
	}

	metrics.PreloadsTotal.WithLabelValues("done").Inc()
	log.With(log.Fields{"source": t.src.String(), "bytes": snap.Bytes}).Info("preload done")
	p.settled(snap)
}

func (p *Preloader) fail(t *task, err error) {
	p.mu.Lock()
	if t.state == Cancelled {
		p.mu.Unlock()
		return
	}
	t.state = Failed
	delete(p.tasks, t.src.Key())
	snap := t.snapshot()
	snap.Err = err
	metrics.PreloadTasksLive.Set(float64(len(p.tasks)))
	p.mu.Unlock()

	metrics.PreloadsTotal.WithLabelValues("failed").Inc()
	log.With(log.Fields{"source": t.src.String()}).Warnf("preload failed: %v", err)
	p.settled(snap)
}
