// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package lfsync provides lock-free and wait-free shared-memory primitives
// for passing data and sharing state between goroutines without mutexes.
//
// The package offers five independent primitives:
//
//   - SPSC: bounded Single-Producer Single-Consumer queue (wait-free)
//   - MPMC: bounded Multi-Producer Multi-Consumer queue (lock-free)
//   - SeqLock: single-writer multi-reader snapshot of a plain value
//   - LockFreeCounter: zero-sticky reference counter (CAS loop)
//   - WaitFreeCounter: zero-sticky reference counter (bounded steps)
//
// None of them blocks. Full, empty and retired conditions are reported as
// return values; the caller decides whether to retry, back off or give up.
//
// # Quick Start
//
//	q, err := lfsync.NewSPSC[Event](1024)
//	q, err := lfsync.NewMPMC[*Request](4096)
//
//	lock := lfsync.NewSeqLockOf(Quote{Bid: 100, Ask: 101})
//	refs := lfsync.NewWaitFreeCounter()
//
// Builder API selects the queue from the access pattern:
//
//	q, err := lfsync.Build[Event](lfsync.New(1024).SingleProducer().SingleConsumer()) // → SPSC
//	q, err := lfsync.Build[Event](lfsync.New(1024))                                   // → MPMC
//
// # Capacity
//
// Queue capacity must be a power of 2 and > 0, and MPMC needs at least 2
// cells. Constructors return [ErrInvalidCapacity] otherwise:
//
//	_, err := lfsync.NewMPMC[int](1000)
//	errors.Is(err, lfsync.ErrInvalidCapacity) // true
//
// Builder.RoundUp rounds up instead:
//
//	q, _ := lfsync.BuildMPMC[int](lfsync.New(1000).RoundUp()) // Cap() == 1024
//
// Storage is allocated once at construction and never resized. Supply an
// [Allocator] to control where it comes from.
//
// # Queues
//
// Both queues expose a boolean API and an error API:
//
//	ok := q.Push(v)          // false if full
//	ok := q.Transfer(&v)     // moves v in, zeroes v on success
//	ok := q.Emplace(func(slot *T) { slot.ID = id }) // builds in place
//	err := q.Enqueue(&v)     // ErrWouldBlock if full
//
// SPSC consumes through Front/Pop so the consumer can inspect an element
// in place before releasing it:
//
//	if v := q.Front(); v != nil {
//	    handle(v)
//	    q.Pop()
//	}
//
// MPMC consumes into a caller-owned variable:
//
//	var v Event
//	if q.Pop(&v) {
//	    handle(&v)
//	}
//
// Both queues also provide Dequeue() (T, error), and both implement [Queue].
//
// Pipeline Stage (SPSC):
//
//	q, _ := lfsync.NewSPSC[Data](1024)
//	prod, cons := q.Handles()
//
//	go func() { // Producer (Stage 1)
//	    backoff := iox.Backoff{}
//	    for data := range input {
//	        for !prod.Push(data) {
//	            backoff.Wait()
//	        }
//	        backoff.Reset()
//	    }
//	}()
//
//	go func() { // Consumer (Stage 2)
//	    backoff := iox.Backoff{}
//	    for {
//	        d := cons.Front()
//	        if d == nil {
//	            backoff.Wait()
//	            continue
//	        }
//	        backoff.Reset()
//	        process(d)
//	        cons.Pop()
//	    }
//	}()
//
// Worker Pool (MPMC):
//
//	q, _ := lfsync.NewMPMC[Job](4096)
//
//	for range numWorkers {
//	    go func() {
//	        var job Job
//	        for {
//	            if q.Pop(&job) {
//	                job.Run()
//	            }
//	        }
//	    }()
//	}
//
// Before discarding a queue that may still hold elements with resources
// attached, stop all producers and consumers and call Drain:
//
//	q.Drain(func(c *Conn) { c.Close() })
//
// # SeqLock
//
// One goroutine writes, any number read consistent snapshots:
//
//	lock := lfsync.NewSeqLock[Quote]()
//
//	go func() { // writer
//	    for q := range feed {
//	        lock.Write(q)
//	    }
//	}()
//
//	quote := lock.Read() // never torn
//
// The value type must be plain data (no pointers, strings, slices, maps or
// interfaces). Use TryRead to bound the number of attempts yourself.
//
// # Zero-Sticky Counters
//
// A zero-sticky counter is a reference count that cannot be revived after
// it reaches zero. Exactly one Decrement observes the transition:
//
//	refs := lfsync.NewWaitFreeCounter() // one reference
//
//	if refs.IncrementIfNotZero() { // acquire, fails once retired
//	    use(resource)
//	    if refs.Decrement() {
//	        resource.Close() // this call dropped the last reference
//	    }
//	}
//
// [LockFreeCounter] retries a compare-and-swap; [WaitFreeCounter] finishes
// every call in a bounded number of steps at the cost of two reserved bits
// (see [WaitFreeMaxCount]). Counters use relaxed ordering and order nothing
// but themselves.
//
// # Error Handling
//
// Construction with an invalid capacity is the only error.
// The error API of the queues returns [ErrWouldBlock], sourced from
// [code.hybscloud.com/iox] for ecosystem consistency:
//
//	backoff := iox.Backoff{}
//	for {
//	    err := q.Enqueue(&item)
//	    if err == nil {
//	        break
//	    }
//	    if !lfsync.IsWouldBlock(err) {
//	        return err
//	    }
//	    backoff.Wait()
//	}
//
// # Thread Safety
//
//   - SPSC: one producer goroutine, one consumer goroutine
//   - MPMC: any number of producer and consumer goroutines
//   - SeqLock: one writer goroutine, any number of readers
//   - Counters: any number of goroutines
//
// Violating these constraints (e.g., two producers on SPSC, two writers on
// a SeqLock, Pop without a non-nil Front) causes undefined behavior.
// Building with -tags lfsync_debug turns the SPSC Pop precondition into a
// panic. No primitive may be copied after first use; go vet reports copies.
//
// # Cache Lines
//
// Every atomic written by one role and read by another sits on its own
// cache line. [CacheLineSize] is 64 by default; build with
// -tags lfsync_cacheline128 for 128-byte lines. [Padding] computes the
// fill needed to round a size to a whole number of lines.
//
// # Race Detection
//
// Go's race detector cannot observe happens-before relationships
// established through atomix acquire-release operations. Queue cells and
// SeqLock words are correctly synchronized, but the detector may report
// false positives. Concurrent tests skip themselves when [RaceEnabled] is
// true.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/atomix] for atomic primitives with
// explicit memory ordering, [code.hybscloud.com/spin] for CPU pause
// instructions in retry loops, and [code.hybscloud.com/iox] for semantic
// errors.
package lfsync
