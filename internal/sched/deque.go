package sched

import "sync"

// localDeque is one worker's run queue. The owning worker pushes and pops
// at the back, and thieves pop from the same back end, so every access
// goes through the mutex. Slot order doubles as steal priority.
//
// Emptiness is always racy for callers that dropped the lock: a deque can
// gain or lose tasks between a length check and a pop, so callers must
// treat pop as try-and-accept-nothing rather than relying on len.
type localDeque struct {
	mu    sync.Mutex
	tasks []*task
}

// push appends a task at the back.
func (d *localDeque) push(t *task) {
	d.mu.Lock()
	d.tasks = append(d.tasks, t)
	d.mu.Unlock()
}

// pop removes and returns the most recently pushed task. The LIFO end is
// shared by owner and thieves alike.
func (d *localDeque) pop() (*task, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := len(d.tasks)
	if n == 0 {
		return nil, false
	}
	t := d.tasks[n-1]
	d.tasks[n-1] = nil
	d.tasks = d.tasks[:n-1]
	return t, true
}

// size returns the current task count. Stale the moment the lock drops.
func (d *localDeque) size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tasks)
}
