// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfsync

// Options configures queue creation and algorithm selection.
type Options struct {
	// Producer/Consumer constraints (determines queue type)
	singleProducer bool
	singleConsumer bool

	// Round capacity up to the next power of 2 instead of rejecting it
	roundUp bool

	capacity int
}

// Builder creates queues with fluent configuration.
//
// The builder selects the algorithm from the producer/consumer
// constraints:
//
//	SingleProducer + SingleConsumer → SPSC (Lamport ring buffer)
//	anything else                   → MPMC (per-cell sequence numbers)
//
// Example:
//
//	// SPSC queue (optimal for single producer/consumer)
//	q, err := lfsync.BuildSPSC[Event](lfsync.New(1024).SingleProducer().SingleConsumer())
//
//	// MPMC queue, capacity rounded up to 1024
//	q, err := lfsync.BuildMPMC[Request](lfsync.New(1000).RoundUp())
type Builder struct {
	opts Options
}

// New creates a queue builder with the given capacity.
//
// Capacity must be a power of 2 and > 0 unless RoundUp is used; the check
// happens when the queue is built.
func New(capacity int) *Builder {
	return &Builder{opts: Options{capacity: capacity}}
}

// SingleProducer declares that only one goroutine will enqueue.
func (b *Builder) SingleProducer() *Builder {
	b.opts.singleProducer = true
	return b
}

// SingleConsumer declares that only one goroutine will dequeue.
func (b *Builder) SingleConsumer() *Builder {
	b.opts.singleConsumer = true
	return b
}

// RoundUp rounds a positive capacity up to the next power of 2
// instead of failing with ErrInvalidCapacity.
//
//	lfsync.New(3).RoundUp()    // capacity 4
//	lfsync.New(1000).RoundUp() // capacity 1024
func (b *Builder) RoundUp() *Builder {
	b.opts.roundUp = true
	return b
}

// Capacity returns the capacity the queue chosen by Build will have.
// With RoundUp, an MPMC queue gets at least 2 cells.
func (b *Builder) Capacity() int {
	return b.capacity(!b.opts.singleProducer || !b.opts.singleConsumer)
}

func (b *Builder) capacity(mpmc bool) int {
	if !b.opts.roundUp || b.opts.capacity <= 0 {
		return b.opts.capacity
	}
	n := roundToPow2(b.opts.capacity)
	if mpmc && n < 2 {
		n = 2
	}
	return n
}

// Build creates a Queue[T] with automatic algorithm selection.
// Returns ErrInvalidCapacity if the capacity is invalid.
//
// For concrete return types, use:
//   - BuildSPSC[T](b) → *SPSC[T]
//   - BuildMPMC[T](b) → *MPMC[T]
func Build[T any](b *Builder) (Queue[T], error) {
	if b.opts.singleProducer && b.opts.singleConsumer {
		q, err := NewSPSC[T](b.capacity(false))
		if err != nil {
			return nil, err
		}
		return q, nil
	}
	q, err := NewMPMC[T](b.capacity(true))
	if err != nil {
		return nil, err
	}
	return q, nil
}

// BuildSPSC creates an SPSC queue.
// Panics if builder is not configured with SingleProducer().SingleConsumer().
func BuildSPSC[T any](b *Builder) (*SPSC[T], error) {
	if !b.opts.singleProducer || !b.opts.singleConsumer {
		panic("lfsync: BuildSPSC requires SingleProducer().SingleConsumer()")
	}
	return NewSPSC[T](b.capacity(false))
}

// BuildMPMC creates an MPMC queue.
// Constraints are accepted and ignored: MPMC serves every access pattern.
func BuildMPMC[T any](b *Builder) (*MPMC[T], error) {
	return NewMPMC[T](b.capacity(true))
}

// roundToPow2 rounds n up to the next power of 2.
func roundToPow2(n int) int {
	if n < 2 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
