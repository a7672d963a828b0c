// Package worker provides the bounded goroutine pool the consumer runs
// task processing on.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/predoc-io/predoc/internal/logging"
)

// ErrStopped is returned by Submit once the pool is shutting down.
var ErrStopped = errors.New("worker pool stopped")

// Pool runs jobs on a fixed number of goroutines. Submit blocks until a
// worker takes the job, so at most size jobs run at once and callers are
// naturally backpressured.
type Pool struct {
	size  int
	tasks chan func()

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewPool builds a pool of the given size. Sizes below one are raised
// to one.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		size:   size,
		tasks:  make(chan func()),
		stopCh: make(chan struct{}),
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return p.size }

// Start launches the workers. Calling Start twice is a no-op.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.run(i)
	}
	logging.Op().Info("worker pool started", "workers", p.size)
}

func (p *Pool) run(id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopCh:
			return
		case job := <-p.tasks:
			job()
		}
	}
}

// Submit hands job to a worker, blocking until one is free. It fails when
// ctx is done or the pool is stopping.
func (p *Pool) Submit(ctx context.Context, job func()) error {
	select {
	case <-p.stopCh:
		return ErrStopped
	default:
	}

	select {
	case p.tasks <- job:
		return nil
	case <-p.stopCh:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop refuses new work and waits up to grace for in-flight jobs. Jobs
// still running after the grace period are abandoned.
func (p *Pool) Stop(grace time.Duration) {
	p.mu.Lock()
	select {
	case <-p.stopCh:
		p.mu.Unlock()
		return
	default:
		close(p.stopCh)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Op().Info("worker pool drained")
	case <-time.After(grace):
		logging.Op().Warn("worker pool shutdown timed out, abandoning in-flight jobs", "grace", grace)
	}
}
