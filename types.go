// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfsync

// Queue is the combined producer-consumer interface for a FIFO queue.
//
// Queue provides non-blocking Enqueue and Dequeue operations. Both operations
// return ErrWouldBlock when they cannot proceed (queue full or empty).
// Both *SPSC[T] and *MPMC[T] implement it; for the SPSC queue the usual
// single-producer/single-consumer restriction still applies.
//
// The interface intentionally excludes length because accurate counts in
// lock-free algorithms require expensive cross-core synchronization.
// Track counts in application logic when needed.
//
// Example:
//
//	q, _ := lfsync.NewMPMC[int](1024)
//
//	// Enqueue
//	val := 42
//	if err := q.Enqueue(&val); err != nil {
//	    // Handle full queue
//	}
//
//	// Dequeue
//	elem, err := q.Dequeue()
//	if err == nil {
//	    fmt.Println(elem)
//	}
type Queue[T any] interface {
	Producer[T]
	Consumer[T]
	Cap() int
}

// Producer is the interface for enqueueing elements.
//
// The element is passed by pointer to avoid copying large structs. The queue
// stores a copy of the pointed-to value, so the original can be modified
// after Enqueue returns.
type Producer[T any] interface {
	// Enqueue adds an element to the queue (non-blocking).
	// Returns nil on success, ErrWouldBlock if the queue is full.
	Enqueue(elem *T) error
}

// Consumer is the interface for dequeueing elements.
//
// The element is returned by value and the slot is cleared so the queue
// does not keep referenced objects alive.
type Consumer[T any] interface {
	// Dequeue removes and returns an element from the queue (non-blocking).
	// Returns (zero-value, ErrWouldBlock) if the queue is empty.
	Dequeue() (T, error)
}

var (
	_ Queue[int] = (*SPSC[int])(nil)
	_ Queue[int] = (*MPMC[int])(nil)
)
