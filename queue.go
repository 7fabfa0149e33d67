package cartoview

import "sync"

// finishedQueue collects chunks whose tile became ready since the last frame.
// Any number of workers push, the scheduler drains once per tick.
type finishedQueue struct {
	mu    sync.Mutex
	items []ChunkID
}

func newFinishedQueue() *finishedQueue {
	return &finishedQueue{
		items: make([]ChunkID, 0, 1024),
	}
}

func (q *finishedQueue) Push(id ChunkID) {
	q.mu.Lock()
	q.items = append(q.items, id)
	q.mu.Unlock()
}

// Drain returns everything pushed so far and leaves the queue empty.
func (q *finishedQueue) Drain() []ChunkID {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = make([]ChunkID, 0, cap(out))
	return out
}

func (q *finishedQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
