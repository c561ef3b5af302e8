// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/born-ml/ndarray/internal/backend/cpu"
	"github.com/born-ml/ndarray/internal/parallel"
	"github.com/born-ml/ndarray/tensor"
)

// Backend represents the CPU backend implementation.
//
// CPU backend provides pure Go implementations of all array operations,
// splitting large contiguous work across goroutines.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// Option configures New.
type Option = internalcpu.Option

// ParallelConfig controls how large operations are split across goroutines.
type ParallelConfig = parallel.Config

// CapabilityReport describes the host CPU.
type CapabilityReport = internalcpu.CapabilityReport

// New creates a new CPU backend.
//
// Example:
//
//	import (
//	    "github.com/born-ml/ndarray/backend/cpu"
//	    "github.com/born-ml/ndarray/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New(cpu.WithParallel(cpu.Sequential()))
//	    ...
//	}
func New(opts ...Option) *Backend {
	return internalcpu.New(opts...)
}

// WithParallel sets the parallel loop configuration.
func WithParallel(cfg ParallelConfig) Option {
	return internalcpu.WithParallel(cfg)
}

// WithLogger sets the backend logger, used for failures on arrays that carry none.
func WithLogger(l *tensor.Logger) Option {
	return internalcpu.WithLogger(l)
}

// DefaultParallel returns the environment-derived parallel configuration.
func DefaultParallel() ParallelConfig {
	return parallel.DefaultConfig()
}

// Sequential returns a configuration that never spawns goroutines.
func Sequential() ParallelConfig {
	return parallel.Sequential()
}

// Capabilities reports the host CPU features.
func Capabilities() CapabilityReport {
	return internalcpu.Capabilities()
}
