package scheduler

import "sync"

// deque is one worker's task queue. The owning worker takes from the
// newest end (stack order, good locality with adjacent rule groups);
// thieves take from the oldest end, which holds the largest remaining
// estimates under largest-first placement. One mutex per queue: the steal
// path is rare relative to owner pops, so contention stays negligible up
// to moderate worker counts.
type deque struct {
	mu    sync.Mutex
	items []*Task
}

// push appends a task during planning. Not used once the batch runs.
func (d *deque) push(t *Task) {
	d.items = append(d.items, t)
}

// popOwn removes and returns the newest task, or nil when empty.
func (d *deque) popOwn() *Task {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := len(d.items)
	if n == 0 {
		return nil
	}
	t := d.items[n-1]
	d.items[n-1] = nil
	d.items = d.items[:n-1]
	return t
}

// steal removes and returns the oldest task, or nil when empty.
func (d *deque) steal() *Task {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.items) == 0 {
		return nil
	}
	t := d.items[0]
	d.items[0] = nil
	d.items = d.items[1:]
	return t
}

// drain removes and returns everything left in the queue.
func (d *deque) drain() []*Task {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := d.items
	d.items = nil
	return out
}

func (d *deque) size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.items)
}
