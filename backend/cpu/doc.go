// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides a pure Go CPU backend for array operations.
//
// # Overview
//
// This package implements a CPU backend with:
//   - Pure Go implementation (no CGO)
//   - All ten element types, one kernel per operation and type
//   - NumPy-compatible broadcasting over arbitrary strides
//   - Pairwise floating-point summation
//   - Row-parallel matrix product (MatMul) for 2D arrays
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/ndarray/backend/cpu"
//	    "github.com/born-ml/ndarray/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//
//	    x, _ := tensor.FromSlice(ctx, []int32{3, 1, 5, 2, 6, 4}, tensor.Shape{6})
//	    idx, _ := tensor.Zeros(ctx, tensor.Shape{1}, tensor.Int64)
//	    _ = backend.Argmax(idx, x) // idx holds 4
//	}
//
// # Performance
//
// Contiguous and scalar-broadcast operations above a size threshold are
// split into disjoint chunks and run in parallel. Strided operations walk
// the array once with dimensions sorted and merged. Parallel float sums
// split along the pairwise tree, so results do not depend on the worker count.
//
// # Thread Safety
//
// The CPU backend holds no mutable state and is safe for concurrent use.
// Callers must not write an array while another goroutine reads it.
package cpu
