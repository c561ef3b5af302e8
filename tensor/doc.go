// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides N-dimensional numeric arrays backed by an arena.
//
// # Overview
//
// Arrays live in a Context. The context owns a bump-pointer arena; arrays are
// never freed one by one. Checkpoint and Restore roll back temporaries, and
// Free releases everything at once. This package provides:
//   - Ten element types (signed and unsigned integers of 8 to 64 bits, float32, float64)
//   - Views: Transpose, Slice and Reshape share the owner's buffer
//   - NumPy-style broadcasting rules via BroadcastShapes
//   - Typed access with FromSlice, ToSlice, AsSlice and Item
//   - Nested-bracket printing with Sprint and Fprint
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/ndarray/backend/cpu"
//	    "github.com/born-ml/ndarray/tensor"
//	)
//
//	func main() {
//	    ctx, err := tensor.NewContext()
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer ctx.Free()
//
//	    x, _ := tensor.FromSlice(ctx, []float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
//	    col, _ := tensor.FromSlice(ctx, []float64{10, 20}, tensor.Shape{2, 1})
//	    out, _ := tensor.Zeros(ctx, tensor.Shape{2, 3}, tensor.Float64)
//
//	    b := cpu.New()
//	    if err := b.Add(out, x, col); err != nil { // broadcast (2,3) + (2,1)
//	        log.Fatal(err)
//	    }
//	}
//
// # Errors
//
// Every fallible call returns an error wrapping one of the Err* kinds. Code
// maps an error to a stable negative integer for callers that need one.
//
// # Numeric Semantics
//
// Integer arithmetic wraps, except division, which saturates on division by
// zero and on MIN / -1. Conversions from float64 (scalars, fill values, clip
// bounds) saturate to the element type and map NaN to 0.
//
// # Thread Safety
//
// A Context is not safe for concurrent allocation. Use one context per
// goroutine, or share a MemoryBudget between contexts.
package tensor
