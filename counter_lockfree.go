// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfsync

import "code.hybscloud.com/atomix"

// LockFreeCounter is a lock-free zero-sticky reference counter.
//
// IncrementIfNotZero is a compare-and-swap loop that refuses to move the
// counter off zero; Decrement is a single fetch-and-subtract. The word is
// padded to a full cache line so arrays of counters do not false-share.
//
// The zero value is a counter that has already reached zero. Use
// [NewLockFreeCounter] or [LockFreeCounter.Init] for a live one.
type LockFreeCounter struct {
	_ noCopy
	n atomix.Uint64
	_ counterPad
}

// NewLockFreeCounter returns a counter holding one reference.
func NewLockFreeCounter() *LockFreeCounter {
	return NewLockFreeCounterFrom(1)
}

// NewLockFreeCounterFrom returns a counter holding n references.
func NewLockFreeCounterFrom(n uint64) *LockFreeCounter {
	c := &LockFreeCounter{}
	c.Init(n)
	return c
}

// Init sets the count to n. It must not race with other methods.
func (c *LockFreeCounter) Init(n uint64) {
	c.n.StoreRelaxed(n)
}

// IncrementIfNotZero increments the counter unless it is zero.
// Returns true if the increment happened.
func (c *LockFreeCounter) IncrementIfNotZero() bool {
	v := c.n.LoadRelaxed()
	for v != 0 {
		if c.n.CompareAndSwapRelaxed(v, v+1) {
			return true
		}
		v = c.n.LoadRelaxed()
	}
	return false
}

// Decrement decrements the counter and reports whether it reached zero.
// Decrementing a counter that is already zero is a caller error.
func (c *LockFreeCounter) Decrement() bool {
	return c.n.AddRelaxed(^uint64(0)) == 0
}

// Read returns the current count.
func (c *LockFreeCounter) Read() uint64 {
	return c.n.LoadRelaxed()
}
