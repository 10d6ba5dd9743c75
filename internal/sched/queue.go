package sched

import "sync"

// ingestFunc fans one request out onto the admitting worker's own deque.
// The scheduler runs it on whichever worker pops it from the global queue.
type ingestFunc func(self *localDeque)

// globalQueue holds requests that no worker has ingested yet, in strict
// arrival order. Push at the back, pop from the front.
type globalQueue struct {
	mu    sync.Mutex
	reqs  []ingestFunc
	front int
}

func (q *globalQueue) push(fn ingestFunc) {
	q.mu.Lock()
	q.reqs = append(q.reqs, fn)
	q.mu.Unlock()
}

func (q *globalQueue) pop() (ingestFunc, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.front == len(q.reqs) {
		return nil, false
	}
	fn := q.reqs[q.front]
	q.reqs[q.front] = nil
	q.front++

	// Reclaim the consumed prefix once it dominates the backing array.
	if q.front > 32 && q.front*2 >= len(q.reqs) {
		q.reqs = append([]ingestFunc(nil), q.reqs[q.front:]...)
		q.front = 0
	}
	return fn, true
}

func (q *globalQueue) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.reqs) - q.front
}
