// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfsync

import "code.hybscloud.com/atomix"

// Word layout of WaitFreeCounter:
//
//	bit 63      zero     counter has reached zero; the low bits are meaningless
//	bit 62      helped   zero was installed by Read on behalf of a Decrement
//	bits 0..61  count    live reference count while zero is clear
//
// A word with zero set is retired. helped is only ever set together with
// zero, and is cleared by the single Decrement that takes credit for the
// transition.
const (
	wfZero   uint64 = 1 << 63
	wfHelped uint64 = 1 << 62
)

// WaitFreeMaxCount is the largest count a WaitFreeCounter can represent.
//
// Counts at or above 1<<62 would run into the flag bits. Initializing past
// this ceiling panics; incrementing past it is a caller error that is not
// checked at runtime.
const WaitFreeMaxCount = wfHelped - 1

// WaitFreeCounter is a wait-free zero-sticky reference counter.
//
// Every method completes in a bounded number of atomic steps. The
// transition to zero is recorded with a flag bit instead of a retry loop:
// IncrementIfNotZero adds blindly and fails if the flag was already set,
// Decrement installs the flag after reaching zero, and Read helps a
// Decrement that has not installed it yet. See the word layout above.
//
// The zero value is not ready for use. An all-zero word is how a Decrement
// that just reached zero looks before it installs the flag, so an
// increment on it would succeed. Obtain counters from [NewWaitFreeCounter]
// or call [WaitFreeCounter.Init] before sharing one; Init(0) gives a
// retired counter.
type WaitFreeCounter struct {
	_ noCopy
	n atomix.Uint64
	_ counterPad
}

// NewWaitFreeCounter returns a counter holding one reference.
func NewWaitFreeCounter() *WaitFreeCounter {
	return NewWaitFreeCounterFrom(1)
}

// NewWaitFreeCounterFrom returns a counter holding n references.
// Panics if n exceeds WaitFreeMaxCount.
func NewWaitFreeCounterFrom(n uint64) *WaitFreeCounter {
	c := &WaitFreeCounter{}
	c.Init(n)
	return c
}

// Init sets the count to n. It must not race with other methods.
// Panics if n exceeds WaitFreeMaxCount.
func (c *WaitFreeCounter) Init(n uint64) {
	if n > WaitFreeMaxCount {
		panic("lfsync: WaitFreeCounter initial count exceeds WaitFreeMaxCount")
	}
	if n == 0 {
		n = wfZero
	}
	c.n.StoreRelaxed(n)
}

// IncrementIfNotZero increments the counter unless it has reached zero.
// Returns true if the increment happened.
//
// On a retired counter the add still lands in the low bits, where it is
// ignored.
func (c *WaitFreeCounter) IncrementIfNotZero() bool {
	prev := c.n.AddRelaxed(1) - 1
	return prev&wfZero == 0
}

// Decrement decrements the counter and reports whether this call took it
// to zero. Across racing Decrement and Read calls exactly one Decrement
// returns true. Decrementing a retired counter is a caller error.
func (c *WaitFreeCounter) Decrement() bool {
	if c.n.AddRelaxed(^uint64(0)) != 0 {
		return false
	}
	return c.settleZero()
}

// settleZero flags the counter as retired after a Decrement observed the
// count reach zero, and reports whether the caller gets the credit.
func (c *WaitFreeCounter) settleZero() bool {
	// An increment may revive the count before the flag lands; that is
	// indistinguishable from the increment happening first.
	if c.n.CompareAndSwapRelaxed(0, wfZero) {
		return true
	}
	// A Read installed zero|helped for us: take the credit, once.
	if c.n.LoadRelaxed()&wfHelped != 0 {
		return c.n.SwapRelaxed(wfZero)&wfHelped != 0
	}
	return false
}

// Read returns the current count, or 0 once the counter reached zero.
func (c *WaitFreeCounter) Read() uint64 {
	v := c.n.LoadRelaxed()
	if v == 0 {
		// A Decrement reached zero but has not flagged it yet.
		if c.n.CompareAndSwapRelaxed(0, wfZero|wfHelped) {
			return 0
		}
		v = c.n.LoadRelaxed()
	}
	if v&wfZero != 0 {
		return 0
	}
	return v
}
