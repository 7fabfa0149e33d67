package cartoview

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestWorkerPoolRunsTasks(t *testing.T) {
	pool := NewWorkerPool(4, 16)
	defer pool.Close()

	var ran atomic.Int32
	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		if !pool.Submit(func() {
			defer wg.Done()
			ran.Add(1)
		}) {
			t.Fatal("submit failed on an open pool")
		}
	}
	wg.Wait()

	if ran.Load() != 100 {
		t.Fatalf("expected 100 tasks to run, got %d", ran.Load())
	}
	waitFor(t, "pending to settle", func() bool { return pool.Pending() == 0 })
}

func TestWorkerPoolTrySubmitWhenFull(t *testing.T) {
	pool := NewWorkerPool(1, 1)
	defer pool.Close()

	started := make(chan struct{})
	gate := make(chan struct{})
	if !pool.TrySubmit(func() {
		close(started)
		<-gate
	}) {
		t.Fatal("first task should be accepted")
	}
	<-started

	if !pool.TrySubmit(func() {}) {
		t.Fatal("queue has room for one task")
	}
	if pool.TrySubmit(func() {}) {
		t.Fatal("expected TrySubmit to fail on a full queue")
	}
	if got := pool.Pending(); got != 2 {
		t.Fatalf("expected 2 pending tasks, got %d", got)
	}

	close(gate)
	waitFor(t, "queue to drain", func() bool { return pool.Pending() == 0 })
}

func TestWorkerPoolRecoversPanics(t *testing.T) {
	pool := NewWorkerPool(1, 4)
	defer pool.Close()

	pool.Submit(func() { panic("boom") })

	done := make(chan struct{})
	pool.Submit(func() { close(done) })
	<-done
}

func TestWorkerPoolClose(t *testing.T) {
	pool := NewWorkerPool(2, 4)
	pool.Close()
	pool.Close()

	if pool.Submit(func() {}) || pool.TrySubmit(func() {}) {
		t.Fatal("closed pool must reject tasks")
	}
}

func TestWorkerPoolCloseReleasesQueuedTasks(t *testing.T) {
	pool := NewWorkerPool(1, 4)

	started := make(chan struct{})
	gate := make(chan struct{})
	pool.Submit(func() {
		close(started)
		<-gate
	})
	<-started
	for range 3 {
		if !pool.TrySubmit(func() {}) {
			t.Fatal("queue should have room")
		}
	}

	closed := make(chan struct{})
	go func() {
		pool.Close()
		close(closed)
	}()
	waitFor(t, "close to start", pool.closed.Load)
	close(gate)
	<-closed

	if got := pool.Pending(); got != 0 {
		t.Fatalf("expected no pending tasks after Close, got %d", got)
	}
}
