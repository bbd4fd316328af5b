// Package dispatch runs connection sessions on an elastic, bounded set
// of reusable worker goroutines so the accept loop never blocks.
//
// Submit hands a task to an idle worker when one is available, starts
// a new worker while below MaxWorkers, and otherwise parks the task on
// a FIFO until a worker frees up.  Workers idle for IdleTimeout exit.
package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"

	"gecho/internal/errors"
)

// DefaultForceTimeout bounds how long Shutdown waits for tasks to
// unwind after their context has been cancelled.
const DefaultForceTimeout = time.Second

// Task is a unit of work.  The context is cancelled when Shutdown's
// grace period runs out; long-running tasks must honour it.
type Task func(ctx context.Context)

// Options tunes a Pool.
type Options struct {
	MaxWorkers   int           // 0 means unbounded
	IdleTimeout  time.Duration // default 30s
	ForceTimeout time.Duration // default DefaultForceTimeout

	// OnPanic receives the value of a recovered task panic.  The worker
	// keeps running either way.
	OnPanic func(v interface{})
}

// Pool is an elastic worker pool.  The zero value is not usable; call New.
type Pool struct {
	opts   Options
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	pending *queue.Queue // of Task
	workers int
	idle    int
	closed  bool

	wake chan struct{}
	quit chan struct{}
	wg   sync.WaitGroup

	running atomic.Int64

	shutdownOnce sync.Once
	forced       int
}

// New creates a pool.  No goroutines are started until the first Submit.
func New(opts Options) *Pool {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 30 * time.Second
	}
	if opts.ForceTimeout <= 0 {
		opts.ForceTimeout = DefaultForceTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		opts:    opts,
		ctx:     ctx,
		cancel:  cancel,
		pending: queue.New(),
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
	}
}

// Submit schedules task.  It never blocks and returns
// errors.ErrPoolClosed once Shutdown has begun.
func (p *Pool) Submit(task Task) error {
	if task == nil {
		return errors.Invalid("task", nil, "must not be nil")
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return errors.ErrPoolClosed
	}

	// An idle worker will pick it up.
	if p.pending.Length() < p.idle {
		p.pending.Add(task)
		p.mu.Unlock()
		p.signal()
		return nil
	}

	if p.opts.MaxWorkers <= 0 || p.workers < p.opts.MaxWorkers {
		p.workers++
		p.wg.Add(1)
		p.mu.Unlock()
		go p.worker(task)
		return nil
	}

	p.pending.Add(task)
	p.mu.Unlock()
	return nil
}

func (p *Pool) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Pool) worker(task Task) {
	defer p.wg.Done()
	for task != nil {
		p.run(task)
		task = p.next()
	}
}

func (p *Pool) run(task Task) {
	p.running.Add(1)
	defer p.running.Add(-1)
	defer func() {
		if r := recover(); r != nil && p.opts.OnPanic != nil {
			p.opts.OnPanic(r)
		}
	}()
	task(p.ctx)
}

// next blocks until there is queued work, returning nil when the
// worker should exit (pool closed and drained, or idle too long).
func (p *Pool) next() Task {
	for {
		p.mu.Lock()
		if p.pending.Length() > 0 {
			t := p.pending.Remove().(Task)
			more := p.pending.Length() > 0
			p.mu.Unlock()
			if more {
				p.signal()
			}
			return t
		}
		if p.closed {
			p.workers--
			p.mu.Unlock()
			return nil
		}
		p.idle++
		p.mu.Unlock()

		timer := time.NewTimer(p.opts.IdleTimeout)
		expired := false
		select {
		case <-p.wake:
		case <-p.quit:
		case <-timer.C:
			expired = true
		}
		timer.Stop()

		p.mu.Lock()
		p.idle--
		if expired && p.pending.Length() == 0 {
			p.workers--
			p.mu.Unlock()
			return nil
		}
		p.mu.Unlock()
	}
}

// Shutdown stops accepting tasks and waits up to grace for queued and
// running tasks to finish.  When the grace period runs out the shared
// task context is cancelled and Shutdown waits at most ForceTimeout
// more.  It returns the number of tasks that were still running or
// queued at the deadline.  Subsequent calls return the same value
// after the first has completed.
func (p *Pool) Shutdown(grace time.Duration) int {
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		close(p.quit)

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		timer := time.NewTimer(grace)
		defer timer.Stop()
		select {
		case <-done:
			p.cancel()
			return
		case <-timer.C:
		}

		p.mu.Lock()
		p.forced = int(p.running.Load()) + p.pending.Length()
		p.mu.Unlock()
		p.cancel()

		force := time.NewTimer(p.opts.ForceTimeout)
		defer force.Stop()
		select {
		case <-done:
		case <-force.C:
		}
	})
	return p.forced
}

// Running returns the number of tasks currently executing.
func (p *Pool) Running() int { return int(p.running.Load()) }

// Pending returns the number of tasks waiting for a worker.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending.Length()
}

// Workers returns the number of live worker goroutines.
func (p *Pool) Workers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.workers
}
