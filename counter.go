// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfsync

// ZeroStickyCounter is a reference count that can never be revived once it
// has reached zero.
//
// Callers pair every successful IncrementIfNotZero (and the initial
// reference) with exactly one Decrement. Under that discipline the count
// never goes negative, exactly one Decrement reports the transition to
// zero, and IncrementIfNotZero fails forever afterwards.
//
// Counters use relaxed memory ordering. They order nothing but themselves:
// publish the guarded object through some other synchronization.
//
// Example (shared handle):
//
//	type handle struct {
//	    refs lfsync.WaitFreeCounter
//	    conn net.Conn
//	}
//
//	func (h *handle) acquire() bool { return h.refs.IncrementIfNotZero() }
//
//	func (h *handle) release() {
//	    if h.refs.Decrement() {
//	        h.conn.Close() // last reference
//	    }
//	}
type ZeroStickyCounter interface {
	// IncrementIfNotZero adds one reference and returns true, or returns
	// false if the counter has already reached zero.
	IncrementIfNotZero() bool

	// Decrement drops one reference and returns true exactly when it
	// drove the counter from one to zero.
	Decrement() bool

	// Read returns the current count, 0 once the counter reached zero.
	Read() uint64
}

var (
	_ ZeroStickyCounter = (*LockFreeCounter)(nil)
	_ ZeroStickyCounter = (*WaitFreeCounter)(nil)
)
