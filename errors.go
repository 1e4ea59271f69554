// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfsync

import (
	"errors"
	"fmt"

	"code.hybscloud.com/iox"
)

// ErrInvalidCapacity is returned by queue constructors when the requested
// capacity is zero, negative, or not a power of two.
//
// It is the only hard error in the package. Every other outcome (full,
// empty, retired counter) is reported through a return value.
//
//	q, err := lfsync.NewMPMC[int](1000)
//	if errors.Is(err, lfsync.ErrInvalidCapacity) {
//	    // use 1024, or lfsync.New(1000).RoundUp()
//	}
var ErrInvalidCapacity = errors.New("lfsync: capacity must be a power of 2 and > 0")

// ErrWouldBlock indicates the operation cannot proceed immediately.
//
// For Enqueue: the queue is full (backpressure)
// For Dequeue: the queue is empty (no data available)
//
// ErrWouldBlock is a control flow signal, not a failure. It is returned
// only by the error-style Enqueue/Dequeue methods; Push and Pop report the
// same condition as false.
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
var ErrWouldBlock = iox.ErrWouldBlock

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
// Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}

// validateCapacity checks that capacity is a non-zero power of two.
func validateCapacity(capacity int) error {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity)
	}
	return nil
}

// validateMPMCCapacity additionally requires two cells. With one cell the
// full mark pos+1 equals the free mark of the next position, so a producer
// could overwrite an element that was never consumed.
func validateMPMCCapacity(capacity int) error {
	if err := validateCapacity(capacity); err != nil {
		return err
	}
	if capacity < 2 {
		return fmt.Errorf("%w: MPMC needs at least 2 cells, got %d", ErrInvalidCapacity, capacity)
	}
	return nil
}
