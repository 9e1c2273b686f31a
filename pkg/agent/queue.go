package agent

import (
	"sync"
	"time"

	"github.com/stenoweb/steno/pkg/wire"
)

// queued is one envelope awaiting a fallback retry.
type queued struct {
	env        wire.Envelope
	enqueuedAt time.Time
}

// RetryQueue is the bounded FIFO holding envelopes whose HTTP fallback send
// failed. When full, the oldest entry is evicted so recent interactions win.
type RetryQueue struct {
	mu       sync.Mutex
	items    []queued
	capacity int
	evicted  int64
}

func NewRetryQueue(capacity int) *RetryQueue {
	return &RetryQueue{capacity: capacity}
}

// Push appends an envelope, evicting the oldest entry when at capacity. A
// nonpositive capacity means the queue holds nothing; every push is counted
// as evicted.
func (q *RetryQueue) Push(env wire.Envelope) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.capacity <= 0 {
		q.evicted++
		return
	}
	if len(q.items) >= q.capacity {
		q.items = q.items[1:]
		q.evicted++
	}
	q.items = append(q.items, queued{env: env, enqueuedAt: time.Now()})
}

// Drain removes and returns up to batch entries, discarding any older than
// maxAge on the way. Entries keep their original enqueue time so a failed
// replay put back with Restore still ages out from first enqueue.
func (q *RetryQueue) Drain(batch int, maxAge time.Duration) []queued {
	q.mu.Lock()
	defer q.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	kept := q.items[:0]
	for _, item := range q.items {
		if item.enqueuedAt.Before(cutoff) {
			q.evicted++
			continue
		}
		kept = append(kept, item)
	}
	q.items = kept

	n := batch
	if n > len(q.items) {
		n = len(q.items)
	}
	out := make([]queued, n)
	copy(out, q.items[:n])
	q.items = append(q.items[:0], q.items[n:]...)
	return out
}

// Restore puts drained entries back at the head of the queue with their
// enqueue times intact, evicting from the oldest end if capacity is exceeded.
func (q *RetryQueue) Restore(items []queued) {
	if len(items) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	merged := make([]queued, 0, len(items)+len(q.items))
	merged = append(merged, items...)
	merged = append(merged, q.items...)
	for len(merged) > 0 && len(merged) > q.capacity {
		merged = merged[1:]
		q.evicted++
	}
	q.items = merged
}

// Len returns the number of queued envelopes.
func (q *RetryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Evicted returns how many envelopes were dropped by capacity or age.
func (q *RetryQueue) Evicted() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.evicted
}
