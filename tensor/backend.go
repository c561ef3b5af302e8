// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/born-ml/ndarray/internal/tensor"

// Backend defines the operations a compute backend provides over arrays.
//
// Every operation writes into a caller-provided output array; InPlace
// variants use their first operand as the output. Validation happens before
// any write, so a failed call leaves its output untouched.
//
// Implementations:
//   - backend/cpu: Pure Go, parallel over disjoint chunks
//
// Example:
//
//	import (
//	    "github.com/born-ml/ndarray/backend/cpu"
//	    "github.com/born-ml/ndarray/tensor"
//	)
//
//	b := cpu.New()
//	x, _ := tensor.FromSlice(ctx, []float32{1, 2, 3}, tensor.Shape{3})
//	y, _ := tensor.Zeros(ctx, tensor.Shape{3}, tensor.Float32)
//	err := b.Add(y, x, x)
type Backend = tensor.Backend
