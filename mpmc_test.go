// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfsync_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfsync"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// MPMC - Construction
// =============================================================================

// TestMPMCCapacityValidation tests that only powers of 2 of at least 2 are
// accepted.
func TestMPMCCapacityValidation(t *testing.T) {
	for c := range slices.Values([]int{3, 5, 7, 9, 0, -1, 1, 1000}) {
		q, err := lfsync.NewMPMC[int](c)
		if !errors.Is(err, lfsync.ErrInvalidCapacity) {
			t.Fatalf("NewMPMC(%d): got err %v, want ErrInvalidCapacity", c, err)
		}
		if q != nil {
			t.Fatalf("NewMPMC(%d): got non-nil queue with error", c)
		}
	}

	for c := range slices.Values([]int{2, 4, 8, 16, 4096}) {
		q, err := lfsync.NewMPMC[int](c)
		if err != nil {
			t.Fatalf("NewMPMC(%d): %v", c, err)
		}
		if q.Cap() != c {
			t.Fatalf("NewMPMC(%d).Cap() = %d", c, q.Cap())
		}
	}
}

// =============================================================================
// MPMC - Basic Operations
// =============================================================================

// TestMPMCFIFO tests sequential FIFO ordering and the full/empty boundaries.
func TestMPMCFIFO(t *testing.T) {
	q, _ := lfsync.NewMPMC[int](8)

	var v int
	if q.Pop(&v) {
		t.Fatal("Pop on new queue: want false")
	}

	for i := range 8 {
		if !q.Push(i) {
			t.Fatalf("Push(%d): want true", i)
		}
	}
	if q.Push(8) {
		t.Fatal("Push on full: want false")
	}

	for i := range 8 {
		if !q.Pop(&v) {
			t.Fatalf("Pop(%d): want true", i)
		}
		if v != i {
			t.Fatalf("Pop: got %d, want %d", v, i)
		}
	}

	v = -7
	if q.Pop(&v) {
		t.Fatal("Pop on empty: want false")
	}
	if v != -7 {
		t.Fatalf("failed Pop modified out: got %d", v)
	}
}

// TestMPMCWraparound cycles the ring several times to exercise generation
// numbers.
func TestMPMCWraparound(t *testing.T) {
	for c := range slices.Values([]int{2, 4, 8}) {
		q, _ := lfsync.NewMPMC[int](c)
		next := 0
		for round := range 5 {
			for i := range c {
				if !q.Push(round*100 + i) {
					t.Fatalf("cap %d round %d: Push(%d): want true", c, round, i)
				}
			}
			if q.Push(-1) {
				t.Fatalf("cap %d round %d: Push on full: want false", c, round)
			}
			for i := range c {
				var v int
				if !q.Pop(&v) {
					t.Fatalf("cap %d round %d: Pop(%d): want true", c, round, i)
				}
				if v != round*100+i {
					t.Fatalf("cap %d: Pop: got %d, want %d", c, v, round*100+i)
				}
				next++
			}
			var v int
			if q.Pop(&v) {
				t.Fatalf("cap %d round %d: Pop on empty: want false", c, round)
			}
		}
		if next != 5*c {
			t.Fatalf("cap %d: popped %d, want %d", c, next, 5*c)
		}
	}
}

// TestMPMCTransfer tests that Transfer clears the source on success only.
func TestMPMCTransfer(t *testing.T) {
	q, _ := lfsync.NewMPMC[*owned](2)

	a := &owned{id: 1}
	want := a
	if !q.Transfer(&a) {
		t.Fatal("Transfer: want true")
	}
	if a != nil {
		t.Fatal("Transfer: source not cleared")
	}
	filler := &owned{id: 3}
	if !q.Transfer(&filler) {
		t.Fatal("Transfer: want true")
	}

	b := &owned{id: 2}
	if q.Transfer(&b) {
		t.Fatal("Transfer on full: want false")
	}
	if b == nil {
		t.Fatal("failed Transfer cleared the source")
	}

	var got *owned
	if !q.Pop(&got) || got != want {
		t.Fatalf("Pop: got %p, want %p", got, want)
	}
}

// TestMPMCEmplace tests in-place construction into a claimed cell.
func TestMPMCEmplace(t *testing.T) {
	q, _ := lfsync.NewMPMC[owned](2)

	for i := range 2 {
		if !q.Emplace(func(o *owned) { o.id = i + 10 }) {
			t.Fatalf("Emplace(%d): want true", i)
		}
	}
	called := false
	if q.Emplace(func(*owned) { called = true }) || called {
		t.Fatal("Emplace on full: want false without calling init")
	}

	for i := range 2 {
		o, err := q.Dequeue()
		if err != nil {
			t.Fatal(err)
		}
		if o.id != i+10 {
			t.Fatalf("Dequeue: got id %d, want %d", o.id, i+10)
		}
	}
}

// TestMPMCEnqueueDequeue tests the error-style API.
func TestMPMCEnqueueDequeue(t *testing.T) {
	q, _ := lfsync.NewMPMC[int](2)

	for i := range 2 {
		v := i
		if err := q.Enqueue(&v); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}
	v := 2
	if err := q.Enqueue(&v); !errors.Is(err, iox.ErrWouldBlock) {
		t.Fatalf("Enqueue on full: got %v, want ErrWouldBlock", err)
	}

	for i := range 2 {
		got, err := q.Dequeue()
		if err != nil || got != i {
			t.Fatalf("Dequeue: got (%d, %v), want (%d, nil)", got, err, i)
		}
	}
	got, err := q.Dequeue()
	if !lfsync.IsWouldBlock(err) {
		t.Fatalf("Dequeue on empty: got %v, want ErrWouldBlock", err)
	}
	if got != 0 {
		t.Fatalf("Dequeue on empty: got %d, want zero value", got)
	}
}

// TestMPMCDrain tests draining after wraparound, including a full ring.
func TestMPMCDrain(t *testing.T) {
	q, _ := lfsync.NewMPMC[int](4)
	var v int
	for i := range 3 {
		q.Push(i)
	}
	for range 3 {
		q.Pop(&v)
	}
	for i := 3; i < 7; i++ {
		if !q.Push(i) {
			t.Fatalf("Push(%d): want true", i)
		}
	}
	if q.Push(7) {
		t.Fatal("Push on full: want false")
	}

	var released []int
	n := q.Drain(func(v int) { released = append(released, v) })
	if n != 4 {
		t.Fatalf("Drain: got %d, want 4", n)
	}
	if !slices.Equal(released, []int{3, 4, 5, 6}) {
		t.Fatalf("Drain order: got %v", released)
	}
	if q.Pop(&v) {
		t.Fatal("Pop after Drain: want false")
	}

	// The queue stays usable after Drain.
	if !q.Push(42) || !q.Pop(&v) || v != 42 {
		t.Fatalf("reuse after Drain: got %d", v)
	}
	if q.Drain(nil) != 0 {
		t.Fatal("Drain on empty: want 0")
	}
}

// TestMPMCDrainPartial tests that Drain stops at the first unfilled cell
// and leaves the remaining elements of a partly consumed ring in order.
func TestMPMCDrainPartial(t *testing.T) {
	q, _ := lfsync.NewMPMC[int](4)
	var v int
	for i := range 3 {
		q.Push(i)
	}
	q.Pop(&v)
	q.Pop(&v)
	for i := 3; i < 6; i++ {
		if !q.Push(i) {
			t.Fatalf("Push(%d): want true", i)
		}
	}
	if q.Push(6) {
		t.Fatal("Push on full: want false")
	}

	var released []int
	if n := q.Drain(func(v int) { released = append(released, v) }); n != 4 {
		t.Fatalf("Drain: got %d, want 4", n)
	}
	if !slices.Equal(released, []int{2, 3, 4, 5}) {
		t.Fatalf("Drain order: got %v", released)
	}
}

// TestMPMCSingleCellRejected tests that a one-cell ring is refused, since
// a second Push would otherwise overwrite the unconsumed first element.
func TestMPMCSingleCellRejected(t *testing.T) {
	q, err := lfsync.NewMPMC[int](1)
	if !errors.Is(err, lfsync.ErrInvalidCapacity) {
		t.Fatalf("NewMPMC(1): got err %v, want ErrInvalidCapacity", err)
	}
	if q != nil {
		t.Fatal("NewMPMC(1): got non-nil queue with error")
	}
	if _, err := lfsync.NewMPMCWithAllocator[int](1, lfsync.HeapAllocator[lfsync.Cell[int]]{}); !errors.Is(err, lfsync.ErrInvalidCapacity) {
		t.Fatalf("NewMPMCWithAllocator(1): got err %v, want ErrInvalidCapacity", err)
	}

	// Two cells hold exactly two elements and no more.
	q, _ = lfsync.NewMPMC[int](2)
	if !q.Push(1) || !q.Push(2) {
		t.Fatal("Push: want true")
	}
	if q.Push(3) {
		t.Fatal("Push on full: want false")
	}
	var v int
	for want := range slices.Values([]int{1, 2}) {
		if !q.Pop(&v) || v != want {
			t.Fatalf("Pop: got %d, want %d", v, want)
		}
	}
	if q.Pop(&v) {
		t.Fatal("Pop on empty: want false")
	}
}

// =============================================================================
// MPMC - Concurrency
// =============================================================================

// TestMPMCConcurrentSum tests that every element pushed by several
// producers is popped exactly once by several consumers.
func TestMPMCConcurrentSum(t *testing.T) {
	if lfsync.RaceEnabled {
		t.Skip("skip: atomix ordering is invisible to the race detector")
	}

	const (
		producers   = 4
		consumers   = 4
		perProducer = 25000
		total       = producers * perProducer
	)

	q, _ := lfsync.NewMPMC[int](1024)
	seen := make([]atomix.Int32, total)
	var popped atomix.Int64
	var sum atomix.Int64

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	for p := range producers {
		g.Go(func() error {
			backoff := iox.Backoff{}
			for i := range perProducer {
				v := p*perProducer + i
				for !q.Push(v) {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					backoff.Wait()
				}
				backoff.Reset()
			}
			return nil
		})
	}

	for range consumers {
		g.Go(func() error {
			backoff := iox.Backoff{}
			var v int
			for popped.Load() < total {
				if !q.Pop(&v) {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					backoff.Wait()
					continue
				}
				backoff.Reset()
				seen[v].Add(1)
				sum.Add(int64(v))
				popped.Add(1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		t.Fatalf("timed out: popped %d of %d", popped.Load(), total)
	}

	if want := int64(total) * (total - 1) / 2; sum.Load() != want {
		t.Fatalf("sum: got %d, want %d", sum.Load(), want)
	}
	for i := range seen {
		if c := seen[i].Load(); c != 1 {
			t.Fatalf("element %d seen %d times", i, c)
		}
	}
}

// TestMPMCPerProducerOrder tests that elements of each producer are
// consumed in the order that producer pushed them.
func TestMPMCPerProducerOrder(t *testing.T) {
	if lfsync.RaceEnabled {
		t.Skip("skip: atomix ordering is invisible to the race detector")
	}

	type item struct {
		producer int
		seq      int
	}
	const (
		producers   = 3
		perProducer = 20000
	)

	q, _ := lfsync.NewMPMC[item](64)

	var g errgroup.Group
	for p := range producers {
		g.Go(func() error {
			backoff := iox.Backoff{}
			for i := range perProducer {
				for !q.Push(item{producer: p, seq: i}) {
					backoff.Wait()
				}
				backoff.Reset()
			}
			return nil
		})
	}

	// Single consumer: positions are taken in claim order.
	last := []int{-1, -1, -1}
	backoff := iox.Backoff{}
	for n := 0; n < producers*perProducer; {
		var it item
		if !q.Pop(&it) {
			backoff.Wait()
			continue
		}
		backoff.Reset()
		if it.seq <= last[it.producer] {
			t.Fatalf("producer %d: got seq %d after %d", it.producer, it.seq, last[it.producer])
		}
		last[it.producer] = it.seq
		n++
	}

	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
}
