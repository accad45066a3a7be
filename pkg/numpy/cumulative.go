// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package numpy

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/npreduce/backends"
	"github.com/gomlx/npreduce/pkg/core/dtypes"
	"github.com/gomlx/npreduce/pkg/core/graph"
)

// CumulativeConfig holds the configuration of the cumulative reductions (CumSum, CumProd, their NaN
// counterparts and CumulativeSum), created by those functions and finalized with Done.
type CumulativeConfig struct {
	x          *graph.Node
	opName     string
	reduceType backends.ReduceOpType

	// fillNaN replaces NaN values by the identity of the reduction before accumulating.
	fillNaN bool

	promoteIntegers bool
	strictAxis      bool

	axis           int
	axisSet        bool
	dtype          dtypes.DType
	includeInitial bool
	out            any
}

func newCumulativeConfig(x *graph.Node, opName string, reduceType backends.ReduceOpType) *CumulativeConfig {
	x.AssertValid()
	return &CumulativeConfig{x: x, opName: opName, reduceType: reduceType}
}

// Axis along which to accumulate. Negative values are counted from the end.
// If not set, the input is flattened and accumulated along its only axis.
func (c *CumulativeConfig) Axis(axis int) *CumulativeConfig {
	c.axis = axis
	c.axisSet = true
	return c
}

// DType of the accumulation and of the result. Booleans are accumulated as integers and converted back.
func (c *CumulativeConfig) DType(dtype dtypes.DType) *CumulativeConfig {
	c.dtype = dtype
	return c
}

// IncludeInitial prepends the identity (zero) to the accumulated axis, so the result has one more element
// along it. Only supported by CumulativeSum.
func (c *CumulativeConfig) IncludeInitial() *CumulativeConfig {
	c.includeInitial = true
	return c
}

// Out is not supported: results are always new values. Done panics if it is set.
func (c *CumulativeConfig) Out(out any) *CumulativeConfig {
	c.out = out
	return c
}

// Done builds the cumulative reduction and returns its result.
func (c *CumulativeConfig) Done() *graph.Node {
	opName := "numpy." + c.opName
	if c.out != nil {
		exceptions.Panicf("the Out argument to %s is not supported", opName)
	}
	x := c.x
	g := x.Graph()
	if c.strictAxis {
		if x.IsScalar() {
			exceptions.Panicf("%s: the input must be non-scalar to take a cumulative sum, however a scalar "+
				"value was given", opName)
		}
		if !c.axisSet && x.Rank() > 1 {
			exceptions.Panicf("%s: the input array has rank %d, however Axis was not set to an explicit value: "+
				"it is only optional for one-dimensional arrays", opName, x.Rank())
		}
	} else if c.includeInitial {
		exceptions.Panicf("%s does not support IncludeInitial", opName)
	}

	axis := c.axis
	if !c.axisSet || x.IsScalar() {
		x = graph.Reshape(x, x.Shape().Size())
		if !c.axisSet {
			axis = 0
		}
	}
	axis = canonicalizeAxis(opName, axis, x.Rank())

	identity := 0.0
	if c.reduceType == backends.ReduceOpProduct {
		identity = 1
	}
	if c.fillNaN && x.DType().IsInexact() {
		x = graph.Where(graph.IsNaN(x), graph.Scalar(g, x.DType(), identity), x)
	}

	resultDType := x.DType()
	if c.dtype != dtypes.InvalidDType {
		resultDType = c.dtype
	}
	if (c.dtype == dtypes.InvalidDType && c.promoteIntegers) || resultDType == dtypes.Bool {
		resultDType = PromoteInteger(resultDType)
	}
	resultDType = CanonicalizeDType(resultDType)
	if c.dtype == dtypes.Bool {
		x = graph.ConvertDType(x, dtypes.Bool)
	}
	x = graph.ConvertDType(x, resultDType)
	result := graph.Cumulative(x, c.reduceType, axis, false)
	if c.dtype == dtypes.Bool {
		result = graph.ConvertDType(result, dtypes.Bool)
	}

	if c.includeInitial {
		initialDims := result.Shape().Clone().Dimensions
		initialDims[axis] = 1
		initial := graph.BroadcastToDims(graph.ScalarZero(g, result.DType()), initialDims...)
		result = graph.Concatenate([]*graph.Node{initial, result}, axis)
	}
	return result
}

// CumSum returns the cumulative sum of the elements along the given axis, or of the flattened input
// if no axis is set. Booleans are accumulated as the default int.
func CumSum(x *graph.Node) *CumulativeConfig {
	return newCumulativeConfig(x, "CumSum", backends.ReduceOpSum)
}

// CumProd returns the cumulative product of the elements along the given axis, or of the flattened input
// if no axis is set. Booleans are accumulated as the default int.
func CumProd(x *graph.Node) *CumulativeConfig {
	return newCumulativeConfig(x, "CumProd", backends.ReduceOpProduct)
}

// NanCumSum is like CumSum, but NaN values are treated as zero.
func NanCumSum(x *graph.Node) *CumulativeConfig {
	c := newCumulativeConfig(x, "NanCumSum", backends.ReduceOpSum)
	c.fillNaN = true
	return c
}

// NanCumProd is like CumProd, but NaN values are treated as one.
func NanCumProd(x *graph.Node) *CumulativeConfig {
	c := newCumulativeConfig(x, "NanCumProd", backends.ReduceOpProduct)
	c.fillNaN = true
	return c
}

// CumulativeSum is the Array API version of CumSum: the input can't be a scalar, the Axis can only be omitted
// for 1D inputs, and narrow integers are accumulated in the default int/uint.
//
// With IncludeInitial the result starts with a zero: CumulativeSum(x).IncludeInitial().Done() for x=[1, 2, 3]
// returns [0, 1, 3, 6].
func CumulativeSum(x *graph.Node) *CumulativeConfig {
	c := newCumulativeConfig(x, "CumulativeSum", backends.ReduceOpSum)
	c.promoteIntegers = true
	c.strictAxis = true
	return c
}
