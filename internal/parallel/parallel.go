// Package parallel provides the size-gated data-parallel loop used by kernels.
//
// Work is only split for contiguous, independent element ranges; results must
// not depend on whether parallelism is enabled.
package parallel

import (
	"os"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Environment overrides read by DefaultConfig.
const (
	EnvNumWorkers = "NDARRAY_NUM_WORKERS"
	EnvParallel   = "NDARRAY_PARALLEL"
)

// DefaultMinChunkBytes is the least work handed to one goroutine (1 MiB).
const DefaultMinChunkBytes = 1 << 20

// Config controls parallel execution behavior.
type Config struct {
	Enabled       bool // Whether parallel execution is enabled.
	NumWorkers    int  // Maximum number of goroutines per call.
	MinChunkBytes int  // Minimum bytes of work per goroutine.
}

// Sequential returns a config that never spawns goroutines.
func Sequential() Config {
	return Config{NumWorkers: 1, MinChunkBytes: DefaultMinChunkBytes}
}

// DefaultConfig returns defaults based on CPU count, adjusted by
// NDARRAY_NUM_WORKERS and NDARRAY_PARALLEL=off.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	if v := os.Getenv(EnvNumWorkers); v != "" {
		if w, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && w > 0 {
			n = w
		}
	}
	cfg := Config{
		Enabled:       n > 1,
		NumWorkers:    n,
		MinChunkBytes: DefaultMinChunkBytes,
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv(EnvParallel))) {
	case "off", "0", "false", "no":
		cfg.Enabled = false
	}
	return cfg
}

// Chunks returns how many goroutines For would use for n items of itemSize bytes.
func Chunks(n, itemSize int, cfg Config) int {
	if !cfg.Enabled || cfg.NumWorkers <= 1 || n <= 1 {
		return 1
	}
	minBytes := max(cfg.MinChunkBytes, 1)
	k := (n * itemSize) / minBytes
	return max(min(k, cfg.NumWorkers, n), 1)
}

// Bounds returns the half-open item range of chunk i out of k over n items.
func Bounds(n, k, i int) (lo, hi int) {
	return i * n / k, (i + 1) * n / k
}

// For executes f over disjoint sub-ranges covering [0, n).
// Falls back to one sequential call if parallelism is disabled or n is too small.
func For(n, itemSize int, f func(lo, hi int), cfg Config) {
	k := Chunks(n, itemSize, cfg)
	if k == 1 {
		f(0, n)
		return
	}
	ForEach(k, func(i int) {
		lo, hi := Bounds(n, k, i)
		f(lo, hi)
	}, cfg)
}

// ForEach executes f(i) for i in [0, k), at most cfg.NumWorkers at a time.
func ForEach(k int, f func(i int), cfg Config) {
	if k <= 0 {
		return
	}
	if !cfg.Enabled || cfg.NumWorkers <= 1 || k == 1 {
		for i := 0; i < k; i++ {
			f(i)
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(cfg.NumWorkers)
	for i := 0; i < k; i++ {
		g.Go(func() error {
			f(i)
			return nil
		})
	}
	_ = g.Wait() // tasks never fail
}
