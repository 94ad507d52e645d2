package hal

import "context"

// EdgeQueue buffers button edges between whatever raises them and the
// interrupt service loop. Posting never blocks: when the queue is full the
// edge is dropped, like a pending-interrupt flag that is already set.
type EdgeQueue struct {
	ch chan Button
}

// NewEdgeQueue creates a queue holding up to size pending edges
func NewEdgeQueue(size int) *EdgeQueue {
	if size < 1 {
		size = 1
	}
	return &EdgeQueue{ch: make(chan Button, size)}
}

// Post queues an edge, reporting false if it was dropped
func (q *EdgeQueue) Post(b Button) bool {
	if !b.Valid() {
		return false
	}
	select {
	case q.ch <- b:
		return true
	default:
		return false
	}
}

// Read returns the oldest pending edge without blocking
func (q *EdgeQueue) Read() (Button, bool) {
	select {
	case b := <-q.ch:
		return b, true
	default:
		return 0, false
	}
}

// Wait blocks until an edge is pending or ctx is done
func (q *EdgeQueue) Wait(ctx context.Context) (Button, bool) {
	select {
	case b := <-q.ch:
		return b, true
	case <-ctx.Done():
		return 0, false
	}
}

// Len returns the number of pending edges
func (q *EdgeQueue) Len() int {
	return len(q.ch)
}
