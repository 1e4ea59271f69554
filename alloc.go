// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfsync

import "fmt"

// Allocator provides the backing storage for a ring buffer.
//
// Allocate must return a slice of at least n zero-valued elements that no
// other code retains. The queue takes exclusive ownership of the storage for
// its lifetime and never reallocates it.
//
// SPSC[T] allocates []T; MPMC[T] allocates []Cell[T].
type Allocator[E any] interface {
	Allocate(n int) []E
}

// AllocatorFunc adapts a function to the Allocator interface.
//
// Example (carving rings out of one preallocated block):
//
//	block := make([]lfsync.Cell[Event], 4*1024)
//	next := 0
//	alloc := lfsync.AllocatorFunc[lfsync.Cell[Event]](func(n int) []lfsync.Cell[Event] {
//	    s := block[next : next+n : next+n]
//	    next += n
//	    return s
//	})
//	q, err := lfsync.NewMPMCWithAllocator[Event](1024, alloc)
type AllocatorFunc[E any] func(n int) []E

// Allocate calls f(n).
func (f AllocatorFunc[E]) Allocate(n int) []E {
	return f(n)
}

// HeapAllocator allocates storage with make. It is the default.
type HeapAllocator[E any] struct{}

// Allocate returns make([]E, n).
func (HeapAllocator[E]) Allocate(n int) []E {
	return make([]E, n)
}

// allocate obtains n elements from a and trims the result to exactly n.
func allocate[E any](a Allocator[E], n int) []E {
	buf := a.Allocate(n)
	if len(buf) < n {
		panic(fmt.Sprintf("lfsync: allocator returned %d elements, want %d", len(buf), n))
	}
	return buf[:n:n]
}
