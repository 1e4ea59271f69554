// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfsync

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// MPMC is a CAS-based multi-producer multi-consumer bounded queue.
//
// Based on Vyukov's bounded MPMC queue. Each cell carries a sequence
// number that encodes both its state and its generation:
//
//	seq == pos              free, ready for the producer claiming pos
//	seq == pos+1            full, ready for the consumer claiming pos
//	seq == pos+capacity     released, free for the producer claiming pos+capacity
//
// Comparing seq against the claimed position gives ABA safety without
// separate generation counters.
//
// All operations are lock-free: an individual call may retry under
// contention, but some call always completes. Elements leave the queue in
// the order their positions were claimed.
//
// Capacity must be at least 2: with a single cell the full and free marks
// of consecutive generations coincide.
//
// An MPMC must not be copied after first use.
//
// Memory: n cells of at least one cache line each
type MPMC[T any] struct {
	_        noCopy
	_        pad
	tail     atomix.Uint64 // Producer index
	_        pad
	head     atomix.Uint64 // Consumer index
	_        pad
	buffer   []Cell[T]
	mask     uint64
	capacity uint64
}

// Cell is one slot of an MPMC ring: a sequence number and the element
// storage, padded so that the sequence numbers of neighbouring cells never
// share a cache line.
//
// Cell is exported only so that an [Allocator] can provide []Cell[T]
// storage; its fields are private to the queue.
type Cell[T any] struct {
	seq  atomix.Uint64
	data T
	_    padShort // Pad to cache line
}

// NewMPMC creates a new MPMC queue.
// Returns ErrInvalidCapacity unless capacity is a power of 2 and >= 2.
func NewMPMC[T any](capacity int) (*MPMC[T], error) {
	return NewMPMCWithAllocator[T](capacity, HeapAllocator[Cell[T]]{})
}

// NewMPMCWithAllocator creates a new MPMC queue whose cells come from alloc.
func NewMPMCWithAllocator[T any](capacity int, alloc Allocator[Cell[T]]) (*MPMC[T], error) {
	if err := validateMPMCCapacity(capacity); err != nil {
		return nil, err
	}

	n := uint64(capacity)
	q := &MPMC[T]{
		buffer:   allocate(alloc, capacity),
		mask:     n - 1,
		capacity: n,
	}

	for i := uint64(0); i < n; i++ {
		q.buffer[i].seq.StoreRelaxed(i)
	}

	return q, nil
}

// claim reserves the next free cell for a producer.
// Returns (nil, 0) if the queue is full.
func (q *MPMC[T]) claim() (*Cell[T], uint64) {
	sw := spin.Wait{}
	pos := q.tail.LoadRelaxed()
	for {
		cell := &q.buffer[pos&q.mask]
		seq := cell.seq.LoadAcquire()
		diff := int64(seq - pos)

		if diff == 0 {
			if q.tail.CompareAndSwapRelaxed(pos, pos+1) {
				return cell, pos
			}
		} else if diff < 0 {
			return nil, 0 // Queue full
		}
		// Lost the race or the cell belongs to a newer generation.
		pos = q.tail.LoadRelaxed()
		sw.Once()
	}
}

// take reserves the oldest full cell for a consumer.
// Returns (nil, 0) if the queue is empty.
func (q *MPMC[T]) take() (*Cell[T], uint64) {
	sw := spin.Wait{}
	pos := q.head.LoadRelaxed()
	for {
		cell := &q.buffer[pos&q.mask]
		seq := cell.seq.LoadAcquire()
		diff := int64(seq - (pos + 1))

		if diff == 0 {
			if q.head.CompareAndSwapRelaxed(pos, pos+1) {
				return cell, pos
			}
		} else if diff < 0 {
			return nil, 0 // Queue empty
		}
		pos = q.head.LoadRelaxed()
		sw.Once()
	}
}

// publish marks a claimed cell as full.
func (q *MPMC[T]) publish(cell *Cell[T], pos uint64) {
	cell.seq.StoreRelease(pos + 1)
}

// release clears a taken cell and arms it for the next generation.
func (q *MPMC[T]) release(cell *Cell[T], pos uint64) T {
	elem := cell.data
	var zero T
	cell.data = zero
	cell.seq.StoreRelease(pos + q.capacity)
	return elem
}

// Push copies item into the queue.
// Returns false if the queue is full.
func (q *MPMC[T]) Push(item T) bool {
	cell, pos := q.claim()
	if cell == nil {
		return false
	}
	cell.data = item
	q.publish(cell, pos)
	return true
}

// Transfer moves *item into the queue.
// On success *item is reset to its zero value; on failure it is untouched.
func (q *MPMC[T]) Transfer(item *T) bool {
	cell, pos := q.claim()
	if cell == nil {
		return false
	}
	cell.data = *item
	var zero T
	*item = zero
	q.publish(cell, pos)
	return true
}

// Emplace constructs an element directly in a claimed cell.
// init receives a pointer to zero-valued storage and must not retain it.
// Returns false without calling init if the queue is full.
func (q *MPMC[T]) Emplace(init func(*T)) bool {
	cell, pos := q.claim()
	if cell == nil {
		return false
	}
	init(&cell.data)
	q.publish(cell, pos)
	return true
}

// Enqueue adds an element to the queue.
// Returns ErrWouldBlock if the queue is full.
func (q *MPMC[T]) Enqueue(elem *T) error {
	if !q.Push(*elem) {
		return ErrWouldBlock
	}
	return nil
}

// Pop moves the oldest element into *out.
// Returns false, leaving *out untouched, if the queue is empty.
func (q *MPMC[T]) Pop(out *T) bool {
	cell, pos := q.take()
	if cell == nil {
		return false
	}
	*out = q.release(cell, pos)
	return true
}

// Dequeue removes and returns an element from the queue.
// Returns (zero-value, ErrWouldBlock) if the queue is empty.
func (q *MPMC[T]) Dequeue() (T, error) {
	cell, pos := q.take()
	if cell == nil {
		var zero T
		return zero, ErrWouldBlock
	}
	return q.release(cell, pos), nil
}

// Drain scans the ring from the consumer index and removes every occupied
// cell, passing each element to release in FIFO order. It returns the
// number of elements removed. release may be nil.
//
// Drain is for teardown: no producer or consumer may run concurrently.
func (q *MPMC[T]) Drain(release func(T)) int {
	head := q.head.LoadRelaxed()
	n := uint64(0)
	for ; n < q.capacity; n++ {
		pos := head + n
		cell := &q.buffer[pos&q.mask]
		if cell.seq.LoadAcquire() != pos+1 {
			break
		}
		elem := q.release(cell, pos)
		if release != nil {
			release(elem)
		}
	}
	q.head.StoreRelease(head + n)
	return int(n)
}

// Cap returns the queue capacity.
func (q *MPMC[T]) Cap() int {
	return int(q.capacity)
}
