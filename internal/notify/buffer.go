package notify

import (
	"sync"

	"aurum/pkg/platform/audit"
)

// RingBuffer is a bounded buffer of committed entries. When full, the oldest
// entry is dropped to make room, so enqueueing never blocks a commit.
type RingBuffer struct {
	mu       sync.Mutex
	entries  []audit.Entry
	head     int // next write position
	tail     int // next read position
	count    int
	capacity int
	dropped  int64
}

func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 4096
	}
	return &RingBuffer{
		entries:  make([]audit.Entry, capacity),
		capacity: capacity,
	}
}

// Enqueue adds entries in order and returns how many older entries were
// dropped to fit them.
func (b *RingBuffer) Enqueue(entries ...audit.Entry) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	dropped := 0
	for _, e := range entries {
		if b.count >= b.capacity {
			b.entries[b.tail] = audit.Entry{}
			b.tail = (b.tail + 1) % b.capacity
			b.count--
			dropped++
		}
		b.entries[b.head] = e
		b.head = (b.head + 1) % b.capacity
		b.count++
	}
	b.dropped += int64(dropped)
	return dropped
}

// DequeueBatch removes up to n of the oldest entries.
func (b *RingBuffer) DequeueBatch(n int) []audit.Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 || n <= 0 {
		return nil
	}
	n = min(n, b.count)
	out := make([]audit.Entry, n)
	for i := range n {
		out[i] = b.entries[b.tail]
		b.entries[b.tail] = audit.Entry{}
		b.tail = (b.tail + 1) % b.capacity
	}
	b.count -= n
	return out
}

func (b *RingBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Dropped returns the total number of entries evicted since creation.
func (b *RingBuffer) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
