package cartoview

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkerPool runs load tasks on a fixed set of goroutines so tile production
// never happens on the presentation goroutine.
type WorkerPool struct {
	jobs    chan func()
	workers int
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	closed  atomic.Bool
	pending atomic.Int32
}

// NewWorkerPool starts a pool. workers <= 0 uses GOMAXPROCS, queueSize <= 0
// uses 1024.
func NewWorkerPool(workers, queueSize int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if queueSize <= 0 {
		queueSize = 1024
	}

	ctx, cancel := context.WithCancel(context.Background())
	pool := &WorkerPool{
		jobs:    make(chan func(), queueSize),
		workers: workers,
		ctx:     ctx,
		cancel:  cancel,
	}

	for i := range workers {
		pool.wg.Add(1)
		go pool.worker(i)
	}

	return pool
}

// Submit queues a task, blocking while the queue is full. It returns false if
// the pool has been closed.
func (p *WorkerPool) Submit(task func()) bool {
	if p.closed.Load() {
		return false
	}
	p.pending.Add(1)
	select {
	case p.jobs <- task:
		return true
	case <-p.ctx.Done():
		p.pending.Add(-1)
		return false
	}
}

// TrySubmit queues a task without blocking. It returns false if the queue is
// full or the pool has been closed.
func (p *WorkerPool) TrySubmit(task func()) bool {
	if p.closed.Load() {
		return false
	}
	p.pending.Add(1)
	select {
	case p.jobs <- task:
		return true
	default:
		p.pending.Add(-1)
		return false
	}
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case task := <-p.jobs:
			p.run(id, task)
		case <-p.ctx.Done():
			return
		}
	}
}

func (p *WorkerPool) run(id int, task func()) {
	defer p.pending.Add(-1)
	defer func() {
		if r := recover(); r != nil {
			Logger().Error("load task panicked", "component", "pool", "worker", id, "err", fmt.Errorf("%v", r))
		}
	}()
	task()
}

// Pending returns the number of queued and running tasks.
func (p *WorkerPool) Pending() int {
	return int(p.pending.Load())
}

func (p *WorkerPool) Workers() int {
	return p.workers
}

// Close stops the workers. Queued tasks that have not started are dropped
// and no longer count as pending. Submitting concurrently with Close is not
// supported.
func (p *WorkerPool) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	p.cancel()
	p.wg.Wait()

	for {
		select {
		case <-p.jobs:
			p.pending.Add(-1)
		default:
			return
		}
	}
}
