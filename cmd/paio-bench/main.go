// Command paio-bench drives a data plane stage directly (no control
// plane) with a configurable number of concurrent workers, the way the
// original's benchmark/test binaries exercise the core in isolation
// (spec.md §6's CLI surface: log path, ops, threads, size).
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dsrhaslab/paio-stage/internal/core"
	"github.com/dsrhaslab/paio-stage/internal/logging"
	"github.com/dsrhaslab/paio-stage/internal/stage"
)

func main() {
	logPath := flag.String("log", "", "log file path (default stdout)")
	ops := flag.Int64("ops", 100_000, "number of enforcement iterations")
	threads := flag.Uint("threads", 4, "number of concurrent workers")
	size := flag.Int64("size", 4096, "per-operation payload in bytes")
	channels := flag.Int("channels", 1, "number of channels to pre-create")
	flag.Parse()

	closeLog, err := logging.Configure(logging.Options{FilePath: *logPath})
	if err != nil {
		fmt.Printf("paio-bench: %v\n", err)
		return
	}
	defer closeLog()

	st := stage.NewStage(*channels, "paio-bench", "benchmark")

	slog.Info("paio-bench: starting", "ops", *ops, "threads", *threads, "size", *size, "channels", *channels)
	stats := run(st, *ops, uint(*threads), *size)
	report(stats)
}

type benchStats struct {
	completed   atomic.Uint64
	errored     atomic.Uint64
	totalLatency atomic.Uint64 // nanoseconds, summed
}

func run(st *stage.Stage, totalOps int64, threads uint, size int64) *benchStats {
	stats := &benchStats{}
	buffer := make([]byte, size)

	var perWorker int64
	if threads > 0 {
		perWorker = totalOps / int64(threads)
	}

	var wg sync.WaitGroup
	start := time.Now()
	for w := uint(0); w < threads; w++ {
		wg.Add(1)
		go func(workerID uint) {
			defer wg.Done()
			ctx := core.NewContext(int64(workerID), 0, 0, uint64(size), 1)
			for i := int64(0); i < perWorker; i++ {
				opStart := time.Now()
				_, outcome := st.EnforceRequest(ctx, buffer, false)
				stats.totalLatency.Add(uint64(time.Since(opStart).Nanoseconds()))
				if outcome.IsError() {
					stats.errored.Add(1)
				} else {
					stats.completed.Add(1)
				}
			}
		}(w)
	}
	wg.Wait()
	slog.Info("paio-bench: finished", "elapsed", time.Since(start))
	return stats
}

func report(stats *benchStats) {
	completed := stats.completed.Load()
	errored := stats.errored.Load()
	var avgLatency time.Duration
	if completed > 0 {
		avgLatency = time.Duration(stats.totalLatency.Load() / completed)
	}
	fmt.Printf("completed=%d errored=%d avg_latency=%s\n", completed, errored, avgLatency)
}
