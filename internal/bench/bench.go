// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package bench runs timed throughput scenarios against the lfsync
// primitives. It backs the lfbench command.
package bench

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfsync"
	"github.com/valyala/fastrand"
	"golang.org/x/sync/errgroup"
)

// Scenario names a benchmark workload.
type Scenario string

const (
	SPSC            Scenario = "spsc"
	MPMC            Scenario = "mpmc"
	SeqLock         Scenario = "seqlock"
	RWMutex         Scenario = "rwmutex"
	LockFreeCounter Scenario = "lockfree-counter"
	WaitFreeCounter Scenario = "waitfree-counter"
)

// Scenarios lists every scenario in the order lfbench runs them.
var Scenarios = []Scenario{SPSC, MPMC, SeqLock, RWMutex, LockFreeCounter, WaitFreeCounter}

// ErrUnknownScenario is returned by Run for a scenario it does not know.
var ErrUnknownScenario = errors.New("bench: unknown scenario")

// Config describes one run.
type Config struct {
	Scenario Scenario
	Duration time.Duration

	// Queue scenarios
	Capacity  int
	Producers int
	Consumers int

	// SeqLock and RWMutex: one writer, Readers readers.
	// WritePercent is the chance per writer iteration that it writes.
	Readers      int
	WritePercent uint32

	// Counter scenarios: Workers goroutines pick increment with
	// IncPercent, decrement with DecPercent, read otherwise.
	Workers    int
	IncPercent uint32
	DecPercent uint32
}

// DefaultConfig returns a Config for s with the defaults lfbench uses.
func DefaultConfig(s Scenario) Config {
	return Config{
		Scenario:     s,
		Duration:     time.Second,
		Capacity:     1024,
		Producers:    1,
		Consumers:    1,
		Readers:      3,
		WritePercent: 5,
		Workers:      4,
		IncPercent:   10,
		DecPercent:   10,
	}
}

// Result reports the outcome of one run.
type Result struct {
	Scenario Scenario      `json:"scenario"`
	Elapsed  time.Duration `json:"elapsed"`

	// Ops counts completed operations: dequeued elements for queues,
	// successful reads for SeqLock, all calls for counters.
	Ops uint64 `json:"ops"`

	// Writes counts SeqLock writes, or enqueued elements for queues.
	Writes uint64 `json:"writes,omitempty"`

	// Retries counts full/empty/torn attempts that had to back off.
	Retries uint64 `json:"retries"`
}

// OpsPerSecond returns the throughput of the run.
func (r Result) OpsPerSecond() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Ops) / r.Elapsed.Seconds()
}

func (c Config) validate() error {
	if c.Duration <= 0 {
		return fmt.Errorf("bench: duration must be > 0, got %v", c.Duration)
	}
	switch c.Scenario {
	case SPSC:
		if c.Producers != 1 || c.Consumers != 1 {
			return fmt.Errorf("bench: spsc needs exactly 1 producer and 1 consumer, got %d/%d", c.Producers, c.Consumers)
		}
	case MPMC:
		if c.Producers < 1 || c.Consumers < 1 {
			return fmt.Errorf("bench: mpmc needs producers and consumers > 0, got %d/%d", c.Producers, c.Consumers)
		}
	case SeqLock, RWMutex:
		if c.Readers < 1 || c.WritePercent > 100 {
			return fmt.Errorf("bench: %s needs readers > 0 and write%% <= 100, got %d/%d", c.Scenario, c.Readers, c.WritePercent)
		}
	case LockFreeCounter, WaitFreeCounter:
		if c.Workers < 1 || c.IncPercent+c.DecPercent > 100 {
			return fmt.Errorf("bench: %s needs workers > 0 and inc%%+dec%% <= 100, got %d/%d/%d",
				c.Scenario, c.Workers, c.IncPercent, c.DecPercent)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownScenario, c.Scenario)
	}
	return nil
}

// Run executes cfg until cfg.Duration elapses or ctx is cancelled.
func Run(ctx context.Context, cfg Config) (Result, error) {
	if err := cfg.validate(); err != nil {
		return Result{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	var (
		r   Result
		err error
	)
	start := time.Now()
	switch cfg.Scenario {
	case SPSC:
		r, err = runSPSC(ctx, cfg)
	case MPMC:
		r, err = runMPMC(ctx, cfg)
	case SeqLock:
		r, err = runSeqLock(ctx, cfg)
	case RWMutex:
		r, err = runRWMutex(ctx, cfg)
	case LockFreeCounter:
		r, err = runCounter(ctx, cfg, lfsync.NewLockFreeCounter())
	case WaitFreeCounter:
		r, err = runCounter(ctx, cfg, lfsync.NewWaitFreeCounter())
	}
	r.Scenario = cfg.Scenario
	r.Elapsed = time.Since(start)
	return r, err
}

// stopped reports whether the run is over. Hot loops poll it every
// pollEvery iterations.
func stopped(ctx context.Context) bool {
	return ctx.Err() != nil
}

const pollEvery = 256

// =============================================================================
// Queues
// =============================================================================

func runSPSC(ctx context.Context, cfg Config) (Result, error) {
	q, err := lfsync.NewSPSC[uint64](cfg.Capacity)
	if err != nil {
		return Result{}, err
	}
	prod, cons := q.Handles()

	var pushed, popped, retries atomix.Uint64
	var done atomix.Bool
	g := new(errgroup.Group)

	g.Go(func() error {
		defer done.StoreRelease(true)
		backoff := iox.Backoff{}
		var n, miss uint64
		for i := uint64(0); ; i++ {
			if i%pollEvery == 0 && stopped(ctx) {
				break
			}
			if !prod.Push(n) {
				miss++
				backoff.Wait()
				continue
			}
			backoff.Reset()
			n++
		}
		pushed.Add(n)
		retries.Add(miss)
		return nil
	})

	g.Go(func() error {
		backoff := iox.Backoff{}
		var want, miss uint64
		for {
			v := cons.Front()
			if v == nil {
				if done.LoadAcquire() {
					want += uint64(cons.Drain(nil))
					break
				}
				miss++
				backoff.Wait()
				continue
			}
			backoff.Reset()
			if *v != want {
				return fmt.Errorf("bench: spsc order violated: got %d, want %d", *v, want)
			}
			cons.Pop()
			want++
		}
		popped.Add(want)
		retries.Add(miss)
		return nil
	})

	err = g.Wait()
	r := Result{Ops: popped.Load(), Writes: pushed.Load(), Retries: retries.Load()}
	if err == nil && r.Ops != r.Writes {
		err = fmt.Errorf("bench: spsc lost elements: pushed %d, popped %d", r.Writes, r.Ops)
	}
	return r, err
}

func runMPMC(ctx context.Context, cfg Config) (Result, error) {
	q, err := lfsync.NewMPMC[uint64](cfg.Capacity)
	if err != nil {
		return Result{}, err
	}

	var pushed, popped, retries, sumIn, sumOut atomix.Uint64
	var producersLeft atomix.Int64
	producersLeft.Store(int64(cfg.Producers))

	g := new(errgroup.Group)
	for range cfg.Producers {
		g.Go(func() error {
			defer producersLeft.Add(-1)
			backoff := iox.Backoff{}
			var n, sum, miss uint64
			for i := uint64(0); ; i++ {
				if i%pollEvery == 0 && stopped(ctx) {
					break
				}
				if !q.Push(n) {
					miss++
					backoff.Wait()
					continue
				}
				backoff.Reset()
				sum += n
				n++
			}
			pushed.Add(n)
			sumIn.Add(sum)
			retries.Add(miss)
			return nil
		})
	}

	for range cfg.Consumers {
		g.Go(func() error {
			backoff := iox.Backoff{}
			var n, sum, miss uint64
			var v uint64
			for {
				if q.Pop(&v) {
					backoff.Reset()
					sum += v
					n++
					continue
				}
				if producersLeft.Load() == 0 {
					// Producers are done; one more pass catches a
					// publish that raced with the check.
					if !q.Pop(&v) {
						break
					}
					sum += v
					n++
					continue
				}
				miss++
				backoff.Wait()
			}
			popped.Add(n)
			sumOut.Add(sum)
			retries.Add(miss)
			return nil
		})
	}

	err = g.Wait()
	r := Result{Ops: popped.Load(), Writes: pushed.Load(), Retries: retries.Load()}
	if err == nil && (r.Ops != r.Writes || sumIn.Load() != sumOut.Load()) {
		err = fmt.Errorf("bench: mpmc mismatch: pushed %d (sum %d), popped %d (sum %d)",
			r.Writes, sumIn.Load(), r.Ops, sumOut.Load())
	}
	return r, err
}

// =============================================================================
// SeqLock
// =============================================================================

// snapshot carries the same number in every field so a torn read is
// detectable.
type snapshot struct {
	A, B, C, D uint64
}

func (s snapshot) consistent() bool {
	return s.A == s.B && s.B == s.C && s.C == s.D
}

// readWriter abstracts the lock under test so SeqLock and the RWMutex
// baseline run the same loop.
type readWriter interface {
	write(snapshot)
	tryRead() (snapshot, bool)
}

type seqLockRW struct{ l *lfsync.SeqLock[snapshot] }

func (s seqLockRW) write(v snapshot) { s.l.Write(v) }
func (s seqLockRW) tryRead() (snapshot, bool) { return s.l.TryRead() }

type rwMutexRW struct {
	mu sync.RWMutex
	v  snapshot
}

func (m *rwMutexRW) write(v snapshot) {
	m.mu.Lock()
	m.v = v
	m.mu.Unlock()
}

func (m *rwMutexRW) tryRead() (snapshot, bool) {
	m.mu.RLock()
	v := m.v
	m.mu.RUnlock()
	return v, true
}

func runSeqLock(ctx context.Context, cfg Config) (Result, error) {
	return runReadWrite(ctx, cfg, seqLockRW{lfsync.NewSeqLock[snapshot]()})
}

func runRWMutex(ctx context.Context, cfg Config) (Result, error) {
	return runReadWrite(ctx, cfg, &rwMutexRW{})
}

func runReadWrite(ctx context.Context, cfg Config, rw readWriter) (Result, error) {
	var reads, writes, retries atomix.Uint64
	g := new(errgroup.Group)

	g.Go(func() error {
		var rng fastrand.RNG
		var n uint64
		for i := uint64(0); ; i++ {
			if i%pollEvery == 0 && stopped(ctx) {
				break
			}
			if rng.Uint32n(100) < cfg.WritePercent {
				n++
				rw.write(snapshot{n, n, n, n})
			}
		}
		writes.Add(n)
		return nil
	})

	for range cfg.Readers {
		g.Go(func() error {
			var n, miss, last uint64
			for i := uint64(0); ; i++ {
				if i%pollEvery == 0 && stopped(ctx) {
					break
				}
				v, ok := rw.tryRead()
				if !ok {
					miss++
					continue
				}
				if !v.consistent() {
					return fmt.Errorf("bench: torn read %+v", v)
				}
				if v.A < last {
					return fmt.Errorf("bench: read went backwards: %d after %d", v.A, last)
				}
				last = v.A
				n++
			}
			reads.Add(n)
			retries.Add(miss)
			return nil
		})
	}

	err := g.Wait()
	return Result{Ops: reads.Load(), Writes: writes.Load(), Retries: retries.Load()}, err
}

// =============================================================================
// Counters
// =============================================================================

func runCounter(ctx context.Context, cfg Config, c lfsync.ZeroStickyCounter) (Result, error) {
	var ops, failed atomix.Uint64
	g := new(errgroup.Group)

	for range cfg.Workers {
		g.Go(func() error {
			var rng fastrand.RNG
			var n, miss uint64
			held := 0
			for ; ; n++ {
				if n%pollEvery == 0 && stopped(ctx) {
					break
				}
				r := rng.Uint32n(100)
				switch {
				case r < cfg.IncPercent:
					if c.IncrementIfNotZero() {
						held++
					} else {
						miss++
					}
				case r < cfg.IncPercent+cfg.DecPercent && held > 0:
					if c.Decrement() {
						return errors.New("bench: counter reached zero while a reference was held")
					}
					held--
				default:
					if c.Read() == 0 {
						return errors.New("bench: counter read zero while the initial reference was held")
					}
				}
			}
			for ; held > 0; held-- {
				c.Decrement()
			}
			ops.Add(n)
			failed.Add(miss)
			return nil
		})
	}

	err := g.Wait()
	if err == nil && !c.Decrement() {
		err = errors.New("bench: final Decrement did not report zero")
	}
	return Result{Ops: ops.Load(), Retries: failed.Load()}, err
}
