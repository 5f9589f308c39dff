// Package direct runs fetch work on a fixed pool of workers with no
// intermediate queue, so the scheduler retains exact knowledge of what
// is in flight and can pace sources directly.
package direct

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/philbudne/rss-fetcher/internal/sched"
)

// ErrJobTimeout is reported for a job that overran its deadline.
var ErrJobTimeout = errors.New("direct: job timeout")

// Fetch performs one unit of work. It must honor ctx cancellation.
type Fetch func(ctx context.Context, item sched.Item) error

// Result is one completed (or failed) job.
type Result struct {
	Item    sched.Item
	Err     error
	Elapsed time.Duration
}

// Config tunes the pool.
type Config struct {
	Workers    int
	JobTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Workers:    4,
		JobTimeout: 30 * time.Second,
	}
}

// Manager owns the worker pool. Dispatch and Poll are intended for a
// single driving goroutine, mirroring the fetch loop's structure.
type Manager struct {
	cfg   Config
	fetch Fetch

	jobs    chan sched.Item
	results chan Result
	wg      sync.WaitGroup

	mu     sync.Mutex
	active int
	closed bool
}

// NewManager starts cfg.Workers workers.
func NewManager(cfg Config, fetch Fetch) *Manager {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = DefaultConfig().JobTimeout
	}
	m := &Manager{
		cfg:     cfg,
		fetch:   fetch,
		jobs:    make(chan sched.Item),
		results: make(chan Result, cfg.Workers),
	}
	for i := 0; i < cfg.Workers; i++ {
		m.wg.Add(1)
		go m.worker()
	}
	return m
}

// Workers returns the pool size.
func (m *Manager) Workers() int {
	return m.cfg.Workers
}

// Active returns the number of jobs in flight.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Available reports whether an idle worker exists.
func (m *Manager) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active < m.cfg.Workers && !m.closed
}

// Dispatch hands an item to an idle worker. Callers check Available
// first; dispatching into a full pool blocks until a worker frees up.
func (m *Manager) Dispatch(item sched.Item) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.active++
	m.mu.Unlock()
	m.jobs <- item
}

// Poll waits up to timeout for at least one completion, then drains
// whatever else has finished, invoking done for each. Returns the
// number of completions handled. A timeout <= 0 waits indefinitely
// for the first completion.
func (m *Manager) Poll(timeout time.Duration, done func(Result)) int {
	handled := 0

	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case res := <-m.results:
			m.finish(res, done)
			handled++
		case <-timer.C:
			return 0
		}
	} else {
		res := <-m.results
		m.finish(res, done)
		handled++
	}

	for {
		select {
		case res := <-m.results:
			m.finish(res, done)
			handled++
		default:
			return handled
		}
	}
}

// CloseAll stops accepting work and waits for the workers to exit.
// In-flight completions still pending in the results channel should be
// drained with Poll before calling.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	close(m.jobs)
	m.wg.Wait()
}

func (m *Manager) finish(res Result, done func(Result)) {
	m.mu.Lock()
	m.active--
	m.mu.Unlock()
	if done != nil {
		done(res)
	}
}

func (m *Manager) worker() {
	defer m.wg.Done()
	for item := range m.jobs {
		start := time.Now()
		err := m.runJob(item)
		m.results <- Result{Item: item, Err: err, Elapsed: time.Since(start)}
	}
}

// runJob runs the fetch under a deadline. An overrunning fetch is
// abandoned to finish in the background; its worker moves on so the
// pool never wedges on one slow feed.
func (m *Manager) runJob(item sched.Item) error {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.JobTimeout)
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				errc <- fmt.Errorf("direct: job panic: %v", r)
			}
		}()
		errc <- m.fetch(ctx, item)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%w: feed %d after %v", ErrJobTimeout,
			item.FeedID, m.cfg.JobTimeout)
	}
}
