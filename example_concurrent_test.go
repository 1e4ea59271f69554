// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !race

// Examples in this file run producers and consumers on separate goroutines.
// The race detector cannot see atomix acquire/release ordering, so they are
// excluded from race builds.

package lfsync_test

import (
	"fmt"
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfsync"
)

// Example_workerPool demonstrates a worker pool fed by an MPMC queue.
func Example_workerPool() {
	type job struct {
		ID    int
		Input int
	}

	jobs, _ := lfsync.NewMPMC[job](16)
	var results [5]atomix.Int64
	var completed atomix.Int32
	var wg sync.WaitGroup

	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			backoff := iox.Backoff{}
			var j job
			for completed.Load() < 5 {
				if !jobs.Pop(&j) {
					backoff.Wait()
					continue
				}
				backoff.Reset()
				results[j.ID].Store(int64(j.Input * j.Input))
				completed.Add(1)
			}
		}()
	}

	backoff := iox.Backoff{}
	for i := range 5 {
		for !jobs.Push(job{ID: i, Input: i + 1}) {
			backoff.Wait()
		}
		backoff.Reset()
	}

	wg.Wait()

	for i := range results {
		fmt.Printf("job %d: %d\n", i, results[i].Load())
	}

	// Output:
	// job 0: 1
	// job 1: 4
	// job 2: 9
	// job 3: 16
	// job 4: 25
}

// Example_pipeline demonstrates two pipeline stages joined by SPSC queues,
// each stage holding only the role handles it needs.
func Example_pipeline() {
	raw, _ := lfsync.NewSPSC[int](8)
	doubled, _ := lfsync.NewSPSC[int](8)
	rawIn, rawOut := raw.Handles()
	doubledIn, doubledOut := doubled.Handles()

	var wg sync.WaitGroup

	// Stage 1: generate 1..5
	wg.Add(1)
	go func() {
		defer wg.Done()
		backoff := iox.Backoff{}
		for i := 1; i <= 5; i++ {
			for !rawIn.Push(i) {
				backoff.Wait()
			}
			backoff.Reset()
		}
	}()

	// Stage 2: double in place of the next stage's slot
	wg.Add(1)
	go func() {
		defer wg.Done()
		backoff := iox.Backoff{}
		for processed := 0; processed < 5; {
			v := rawOut.Front()
			if v == nil {
				backoff.Wait()
				continue
			}
			for !doubledIn.Emplace(func(slot *int) { *slot = *v * 2 }) {
				backoff.Wait()
			}
			backoff.Reset()
			rawOut.Pop()
			processed++
		}
	}()

	// Stage 3: collect on this goroutine
	backoff := iox.Backoff{}
	for n := 0; n < 5; {
		v, err := doubledOut.Dequeue()
		if err != nil {
			backoff.Wait()
			continue
		}
		backoff.Reset()
		fmt.Println(v)
		n++
	}
	wg.Wait()

	// Output:
	// 2
	// 4
	// 6
	// 8
	// 10
}

// Example_sharedResource demonstrates retiring a shared resource once the
// last goroutine using it lets go.
func Example_sharedResource() {
	refs := lfsync.NewWaitFreeCounter()
	var closed atomix.Int32
	var wg sync.WaitGroup

	release := func() {
		if refs.Decrement() {
			closed.Add(1)
		}
	}

	for range 4 {
		if !refs.IncrementIfNotZero() {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer release()
			// use the resource
		}()
	}

	release() // owner's reference
	wg.Wait()

	fmt.Println("closed:", closed.Load())
	fmt.Println("revivable:", refs.IncrementIfNotZero())

	// Output:
	// closed: 1
	// revivable: false
}

// Example_snapshotPublisher demonstrates one writer publishing
// configuration snapshots to concurrent readers.
func Example_snapshotPublisher() {
	type limits struct {
		MaxConns int32
		Rate     int32
	}

	lock := lfsync.NewSeqLockOf(limits{MaxConns: 10, Rate: 100})
	var wg sync.WaitGroup

	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 1000 {
				l := lock.Read()
				if l.Rate != l.MaxConns*10 {
					panic("torn snapshot")
				}
			}
		}()
	}

	for i := int32(11); i <= 20; i++ {
		lock.Write(limits{MaxConns: i, Rate: i * 10})
	}
	wg.Wait()

	fmt.Printf("%+v\n", lock.Read())

	// Output:
	// {MaxConns:20 Rate:200}
}
