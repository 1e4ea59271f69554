// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfsync

import (
	"reflect"
	"runtime"
	"unsafe"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// SeqLock publishes snapshots of a single value from one writer to any
// number of readers.
//
// The sequence counter is even while the value is stable and odd while a
// write is in progress. A read copies the value between two loads of the
// counter and accepts the copy only if both loads returned the same even
// number; otherwise it retries. Writes are wait-free. Reads never observe
// a value torn by a concurrent write, but may retry indefinitely if the
// writer never finishes.
//
// The value is stored as a sequence of 64-bit words accessed atomically,
// so T must be plain data: types containing pointers, slices, strings,
// maps, channels, functions or interfaces are rejected by [NewSeqLock].
//
// Only one goroutine may call Write at a time. A SeqLock must not be
// copied after first use.
type SeqLock[T any] struct {
	_     noCopy
	_     pad
	seq   atomix.Uint64
	words []atomix.Uint64
	size  uintptr
	_     [(CacheLineSize - unsafe.Sizeof(seqLockHeader{})%CacheLineSize) % CacheLineSize]byte
}

// seqLockHeader mirrors the hot fields of SeqLock for padding arithmetic.
type seqLockHeader struct {
	seq   uint64
	words []uint64
	size  uintptr
}

// NewSeqLock creates a SeqLock holding the zero value of T.
// Panics if T contains pointers.
func NewSeqLock[T any]() *SeqLock[T] {
	var zero T
	return NewSeqLockOf(zero)
}

// NewSeqLockOf creates a SeqLock holding initial.
// Panics if T contains pointers.
func NewSeqLockOf[T any](initial T) *SeqLock[T] {
	typ := reflect.TypeFor[T]()
	if hasPointers(typ) {
		panic("lfsync: SeqLock value type " + typ.String() + " must not contain pointers")
	}

	size := typ.Size()
	l := &SeqLock[T]{
		words: make([]atomix.Uint64, (size+7)/8),
		size:  size,
	}
	l.store(&initial)
	return l
}

// Write installs v as the current value (single writer only).
// It completes in a fixed number of steps.
func (l *SeqLock[T]) Write(v T) {
	s := l.seq.LoadRelaxed()
	l.seq.StoreRelaxed(s + 1)
	// Release stores below keep the odd sequence ordered before the data.
	l.store(&v)
	l.seq.StoreRelease(s + 2)
}

// readYieldEvery is the number of failed read attempts between yields.
const readYieldEvery = 64

// Read returns a consistent snapshot of the value, retrying while a
// write is in progress. Between attempts it spins, and every
// readYieldEvery failures it yields the processor so a descheduled writer
// can finish.
func (l *SeqLock[T]) Read() T {
	sw := spin.Wait{}
	for i := 1; ; i++ {
		if v, ok := l.TryRead(); ok {
			return v
		}
		if i%readYieldEvery == 0 {
			runtime.Gosched()
			continue
		}
		sw.Once()
	}
}

// TryRead makes a single read attempt. It returns false if the attempt
// overlapped a write, in which case the returned value must be discarded.
func (l *SeqLock[T]) TryRead() (T, bool) {
	var v T
	s1 := l.seq.LoadAcquire()
	if s1&1 != 0 {
		return v, false
	}
	l.load(&v)
	s2 := l.seq.LoadRelaxed()
	return v, s1 == s2
}

// store copies *v into the word buffer with release stores.
func (l *SeqLock[T]) store(v *T) {
	src := unsafe.Slice((*byte)(unsafe.Pointer(v)), l.size)
	for i := range l.words {
		var w uint64
		copy((*[8]byte)(unsafe.Pointer(&w))[:], src[i*8:])
		l.words[i].StoreRelease(w)
	}
}

// load copies the word buffer into *v with acquire loads.
func (l *SeqLock[T]) load(v *T) {
	dst := unsafe.Slice((*byte)(unsafe.Pointer(v)), l.size)
	for i := range l.words {
		w := l.words[i].LoadAcquire()
		copy(dst[i*8:], (*[8]byte)(unsafe.Pointer(&w))[:])
	}
}

// hasPointers reports whether values of t contain anything the garbage
// collector must trace.
func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Slice,
		reflect.String, reflect.Interface, reflect.Chan, reflect.Func:
		return true
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := range t.NumField() {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
