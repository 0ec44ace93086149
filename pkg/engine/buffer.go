package engine

import (
	"errors"
	"sync"
	"sync/atomic"
)

var (
	ErrBufferFull = errors.New("buffer is full")
)

// RingBuffer is the fixed-size line queue between the listeners and the
// pipeline workers. The TCP and UDP listeners push concurrently, so the
// ring is guarded by a mutex rather than relying on single-producer
// ordering. A full ring drops the incoming line and counts it instead of
// blocking the listeners.
type RingBuffer struct {
	mu   sync.Mutex
	data [][]byte
	head uint64
	tail uint64
	mask uint64
	size uint64

	dropped atomic.Uint64
}

// NewRingBuffer creates a ring with the given capacity, which must be a
// power of two so index wrapping stays a single mask.
func NewRingBuffer(size uint64) (*RingBuffer, error) {
	if size == 0 || (size&(size-1)) != 0 {
		return nil, errors.New("ring size must be a power of 2")
	}
	return &RingBuffer{
		data: make([][]byte, size),
		mask: size - 1,
		size: size,
	}, nil
}

// Push queues one line. On a full ring the line is dropped, the drop
// counter advances and ErrBufferFull is returned.
func (rb *RingBuffer) Push(line []byte) error {
	rb.mu.Lock()
	if rb.head-rb.tail >= rb.size {
		rb.mu.Unlock()
		rb.dropped.Add(1)
		return ErrBufferFull
	}
	rb.data[rb.head&rb.mask] = line
	rb.head++
	rb.mu.Unlock()
	return nil
}

// Pop removes the oldest line, or returns nil when the ring is empty.
func (rb *RingBuffer) Pop() []byte {
	rb.mu.Lock()
	if rb.tail == rb.head {
		rb.mu.Unlock()
		return nil
	}
	line := rb.data[rb.tail&rb.mask]
	rb.data[rb.tail&rb.mask] = nil
	rb.tail++
	rb.mu.Unlock()
	return line
}

// PopBatch moves up to max lines into dst in arrival order and returns
// the extended slice. One lock acquisition per batch keeps the worker
// from hammering the mutex line by line.
func (rb *RingBuffer) PopBatch(dst [][]byte, max int) [][]byte {
	rb.mu.Lock()
	for len(dst) < max && rb.tail != rb.head {
		idx := rb.tail & rb.mask
		dst = append(dst, rb.data[idx])
		rb.data[idx] = nil
		rb.tail++
	}
	rb.mu.Unlock()
	return dst
}

// DroppedCount returns the number of lines dropped on a full ring.
func (rb *RingBuffer) DroppedCount() uint64 {
	return rb.dropped.Load()
}

// Usage returns the number of queued lines.
func (rb *RingBuffer) Usage() uint64 {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.head - rb.tail
}

// Capacity returns the ring size.
func (rb *RingBuffer) Capacity() uint64 {
	return rb.size
}
