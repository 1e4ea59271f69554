// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command lfbench measures the throughput of the lfsync primitives.
//
// Usage:
//
//	lfbench [flags]
//
// With no -scenario, every scenario runs in turn. Results are logged one
// line per scenario; -json switches the log output to JSON.
//
//	lfbench -scenario mpmc -producers 4 -consumers 4 -duration 5s
//	lfbench -scenario waitfree-counter -workers 16 -inc 45 -dec 10
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"time"
	"unsafe"

	"code.hybscloud.com/lfsync"
	"code.hybscloud.com/lfsync/internal/bench"
	"github.com/rs/zerolog"
	"golang.org/x/sys/cpu"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("lfbench", flag.ContinueOnError)
	var (
		scenario  = fs.String("scenario", "", "scenario to run ("+scenarioNames()+"); empty runs all")
		duration  = fs.Duration("duration", time.Second, "run time per scenario")
		capacity  = fs.Int("capacity", 1024, "queue capacity (power of 2)")
		producers = fs.Int("producers", 1, "MPMC producer goroutines")
		consumers = fs.Int("consumers", 1, "MPMC consumer goroutines")
		readers   = fs.Int("readers", 3, "SeqLock reader goroutines")
		writePct  = fs.Uint("write", 5, "SeqLock write percentage of writer iterations")
		workers   = fs.Int("workers", runtime.GOMAXPROCS(0), "counter worker goroutines")
		incPct    = fs.Uint("inc", 10, "counter increment percentage")
		decPct    = fs.Uint("dec", 10, "counter decrement percentage")
		jsonOut   = fs.Bool("json", false, "log JSON instead of console output")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	log := newLogger(*jsonOut)

	log.Info().
		Int("cache_line", lfsync.CacheLineSize).
		Uint64("hw_cache_line_pad", uint64(unsafe.Sizeof(cpu.CacheLinePad{}))).
		Int("gomaxprocs", runtime.GOMAXPROCS(0)).
		Bool("race", lfsync.RaceEnabled).
		Msg("lfbench")

	scenarios := bench.Scenarios
	if *scenario != "" {
		scenarios = []bench.Scenario{bench.Scenario(*scenario)}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	status := 0
	for _, s := range scenarios {
		cfg := bench.DefaultConfig(s)
		cfg.Duration = *duration
		cfg.Capacity = *capacity
		cfg.Readers = *readers
		cfg.WritePercent = uint32(*writePct)
		cfg.Workers = *workers
		cfg.IncPercent = uint32(*incPct)
		cfg.DecPercent = uint32(*decPct)
		if s == bench.MPMC {
			cfg.Producers = *producers
			cfg.Consumers = *consumers
		}

		r, err := bench.Run(ctx, cfg)
		if err != nil {
			log.Error().Err(err).Str("scenario", string(s)).Msg("run failed")
			status = 1
			continue
		}
		log.Info().
			Str("scenario", string(r.Scenario)).
			Dur("elapsed", r.Elapsed).
			Uint64("ops", r.Ops).
			Uint64("writes", r.Writes).
			Uint64("retries", r.Retries).
			Str("throughput", fmt.Sprintf("%.2f Mops/s", r.OpsPerSecond()/1e6)).
			Msg("done")

		if ctx.Err() != nil {
			log.Warn().Msg("interrupted")
			return 130
		}
	}
	return status
}

func newLogger(jsonOut bool) zerolog.Logger {
	if jsonOut {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()
}

func scenarioNames() string {
	names := make([]string, len(bench.Scenarios))
	for i, s := range bench.Scenarios {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
