// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfsync

import "code.hybscloud.com/atomix"

// SPSC is a single-producer single-consumer bounded queue.
//
// Based on Lamport's ring buffer with cached index optimization.
// The producer caches the consumer's dequeue index, and vice versa,
// reducing cross-core cache line traffic: the opposite index is only
// reloaded when the cached view says the ring is full (producer) or
// empty (consumer).
//
// Every operation is wait-free. Exactly one goroutine may act as producer
// (Push, Transfer, Emplace, Enqueue) and exactly one as consumer (Front,
// Pop, Dequeue, Drain). Use [SPSC.Handles] to hand each role to its
// goroutine as a distinct type.
//
// An SPSC must not be copied after first use.
//
// Memory: O(capacity) with no per-slot metadata
type SPSC[T any] struct {
	_          noCopy
	_          pad
	head       atomix.Uint64 // Consumer reads from here
	_          pad
	cachedTail uint64 // Consumer's cached view of tail
	_          pad
	tail       atomix.Uint64 // Producer writes here
	_          pad
	cachedHead uint64 // Producer's cached view of head
	_          pad
	buffer     []T
	mask       uint64
	claimed    atomix.Int32
}

// NewSPSC creates a new SPSC queue.
// Returns ErrInvalidCapacity unless capacity is a power of 2 and > 0.
func NewSPSC[T any](capacity int) (*SPSC[T], error) {
	return NewSPSCWithAllocator[T](capacity, HeapAllocator[T]{})
}

// NewSPSCWithAllocator creates a new SPSC queue whose ring storage comes
// from alloc.
func NewSPSCWithAllocator[T any](capacity int, alloc Allocator[T]) (*SPSC[T], error) {
	if err := validateCapacity(capacity); err != nil {
		return nil, err
	}

	return &SPSC[T]{
		buffer: allocate(alloc, capacity),
		mask:   uint64(capacity) - 1,
	}, nil
}

// reserve returns the tail slot if the ring has room (producer only).
func (q *SPSC[T]) reserve() (*T, uint64, bool) {
	tail := q.tail.LoadRelaxed()
	if tail-q.cachedHead > q.mask {
		q.cachedHead = q.head.LoadAcquire()
		if tail-q.cachedHead > q.mask {
			return nil, 0, false
		}
	}
	return &q.buffer[tail&q.mask], tail, true
}

// Push copies item into the queue (producer only).
// Returns false without modifying the queue if it is full.
func (q *SPSC[T]) Push(item T) bool {
	slot, tail, ok := q.reserve()
	if !ok {
		return false
	}
	*slot = item
	q.tail.StoreRelease(tail + 1)
	return true
}

// Transfer moves *item into the queue (producer only).
// On success *item is reset to its zero value so the caller no longer
// holds the element; on failure *item is left untouched.
func (q *SPSC[T]) Transfer(item *T) bool {
	slot, tail, ok := q.reserve()
	if !ok {
		return false
	}
	*slot = *item
	var zero T
	*item = zero
	q.tail.StoreRelease(tail + 1)
	return true
}

// Emplace constructs an element directly in the tail slot (producer only).
// init receives a pointer to a zero-valued slot and must not retain it.
// Returns false without calling init if the queue is full.
func (q *SPSC[T]) Emplace(init func(*T)) bool {
	slot, tail, ok := q.reserve()
	if !ok {
		return false
	}
	init(slot)
	q.tail.StoreRelease(tail + 1)
	return true
}

// Enqueue adds an element to the queue (producer only).
// Returns ErrWouldBlock if the queue is full.
func (q *SPSC[T]) Enqueue(elem *T) error {
	slot, tail, ok := q.reserve()
	if !ok {
		return ErrWouldBlock
	}
	*slot = *elem
	q.tail.StoreRelease(tail + 1)
	return nil
}

// Front returns a pointer to the oldest element without removing it
// (consumer only), or nil if the queue is empty.
//
// The pointer stays valid until the next Pop.
func (q *SPSC[T]) Front() *T {
	head := q.head.LoadRelaxed()
	if head == q.cachedTail {
		q.cachedTail = q.tail.LoadAcquire()
		if head == q.cachedTail {
			return nil
		}
	}
	return &q.buffer[head&q.mask]
}

// Pop removes the element last returned by Front (consumer only).
//
// Pop must only be called after Front returned a non-nil pointer; calling
// it on an empty queue corrupts the queue. Builds tagged lfsync_debug
// panic instead.
func (q *SPSC[T]) Pop() {
	head := q.head.LoadRelaxed()
	if debugChecks {
		assert(head != q.cachedTail, "SPSC.Pop called without a preceding non-nil Front")
	}
	var zero T
	q.buffer[head&q.mask] = zero
	q.head.StoreRelease(head + 1)
}

// Dequeue removes and returns an element (consumer only).
// Returns (zero-value, ErrWouldBlock) if the queue is empty.
func (q *SPSC[T]) Dequeue() (T, error) {
	slot := q.Front()
	if slot == nil {
		var zero T
		return zero, ErrWouldBlock
	}
	elem := *slot
	q.Pop()
	return elem, nil
}

// Drain removes every remaining element, passing each to release in FIFO
// order, and returns how many were removed (consumer only).
// release may be nil. The producer must have stopped.
func (q *SPSC[T]) Drain(release func(T)) int {
	n := 0
	for slot := q.Front(); slot != nil; slot = q.Front() {
		if release != nil {
			release(*slot)
		}
		q.Pop()
		n++
	}
	return n
}

// Cap returns the queue capacity.
func (q *SPSC[T]) Cap() int {
	return int(q.mask + 1)
}

// Handles returns the producer and consumer views of q.
//
// Each handle exposes only the methods of its role, so a goroutine given
// the producer handle cannot consume and vice versa. Handles may be
// obtained once per queue; a second call panics.
func (q *SPSC[T]) Handles() (*SPSCProducer[T], *SPSCConsumer[T]) {
	if q.claimed.Add(1) != 1 {
		panic("lfsync: SPSC handles already claimed")
	}
	return &SPSCProducer[T]{q: q}, &SPSCConsumer[T]{q: q}
}

// SPSCProducer is the producer role of an SPSC queue.
// It must be used from a single goroutine at a time.
type SPSCProducer[T any] struct {
	q *SPSC[T]
}

// Push copies item into the queue. Returns false if the queue is full.
func (p *SPSCProducer[T]) Push(item T) bool { return p.q.Push(item) }

// Transfer moves *item into the queue, zeroing *item on success.
func (p *SPSCProducer[T]) Transfer(item *T) bool { return p.q.Transfer(item) }

// Emplace constructs an element in place. Returns false if the queue is full.
func (p *SPSCProducer[T]) Emplace(init func(*T)) bool { return p.q.Emplace(init) }

// Enqueue adds an element. Returns ErrWouldBlock if the queue is full.
func (p *SPSCProducer[T]) Enqueue(elem *T) error { return p.q.Enqueue(elem) }

// Cap returns the queue capacity.
func (p *SPSCProducer[T]) Cap() int { return p.q.Cap() }

// SPSCConsumer is the consumer role of an SPSC queue.
// It must be used from a single goroutine at a time.
type SPSCConsumer[T any] struct {
	q *SPSC[T]
}

// Front returns the oldest element or nil if the queue is empty.
func (c *SPSCConsumer[T]) Front() *T { return c.q.Front() }

// Pop removes the element returned by the preceding non-nil Front.
func (c *SPSCConsumer[T]) Pop() { c.q.Pop() }

// Dequeue removes and returns an element, or ErrWouldBlock if empty.
func (c *SPSCConsumer[T]) Dequeue() (T, error) { return c.q.Dequeue() }

// Drain removes all remaining elements. See [SPSC.Drain].
func (c *SPSCConsumer[T]) Drain(release func(T)) int { return c.q.Drain(release) }

// Cap returns the queue capacity.
func (c *SPSCConsumer[T]) Cap() int { return c.q.Cap() }

var (
	_ Producer[int] = (*SPSCProducer[int])(nil)
	_ Consumer[int] = (*SPSCConsumer[int])(nil)
)
