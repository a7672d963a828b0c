package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolRunsSubmittedJobs(t *testing.T) {
	p := NewPool(2)
	p.Start()
	defer p.Stop(time.Second)

	var ran atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		if err := p.Submit(context.Background(), func() {
			defer wg.Done()
			ran.Add(1)
		}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	wg.Wait()
	if got := ran.Load(); got != 10 {
		t.Errorf("ran %d jobs, want 10", got)
	}
}

func TestPoolBoundsConcurrency(t *testing.T) {
	const size = 2
	p := NewPool(size)
	p.Start()
	defer p.Stop(time.Second)

	gate := make(chan struct{})
	var running atomic.Int32
	var peak atomic.Int32

	job := func() {
		n := running.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		<-gate
		running.Add(-1)
	}

	for i := 0; i < size; i++ {
		if err := p.Submit(context.Background(), job); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	// All workers are busy: the next submit must block until ctx expires.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := p.Submit(ctx, job); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Submit on a full pool returned %v, want deadline exceeded", err)
	}

	close(gate)
	if got := peak.Load(); got > size {
		t.Errorf("peak concurrency %d exceeds pool size %d", got, size)
	}
}

func TestPoolStopRefusesNewWork(t *testing.T) {
	p := NewPool(1)
	p.Start()
	p.Stop(time.Second)

	if err := p.Submit(context.Background(), func() {}); !errors.Is(err, ErrStopped) {
		t.Errorf("Submit after Stop returned %v, want ErrStopped", err)
	}
}

func TestPoolStopWaitsForInFlightJobs(t *testing.T) {
	p := NewPool(1)
	p.Start()

	started := make(chan struct{})
	finished := make(chan struct{})
	if err := p.Submit(context.Background(), func() {
		close(started)
		time.Sleep(50 * time.Millisecond)
		close(finished)
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	<-started
	p.Stop(time.Second)

	select {
	case <-finished:
	default:
		t.Error("Stop returned before the in-flight job finished")
	}
}

func TestPoolStopAbandonsAfterGrace(t *testing.T) {
	p := NewPool(1)
	p.Start()

	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)
	if err := p.Submit(context.Background(), func() {
		close(started)
		<-release
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	<-started
	begin := time.Now()
	p.Stop(20 * time.Millisecond)
	if elapsed := time.Since(begin); elapsed > 500*time.Millisecond {
		t.Errorf("Stop blocked %v past its grace period", elapsed)
	}
}
