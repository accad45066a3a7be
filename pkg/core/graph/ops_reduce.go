// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"fmt"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/npreduce/backends"
	"github.com/gomlx/npreduce/pkg/core/dtypes"
	"github.com/pkg/errors"
)

// adjustAxesToRank returns an adjusted copy of the given axesWithNegatives: negative axes are counted from the end.
// It panics if any of the axes is out-of-range for given rank.
func adjustAxesToRank(rank int, axesWithNegatives []int, paramName string) []int {
	axes := slices.Clone(axesWithNegatives)
	for ii := range axes {
		if axes[ii] < 0 {
			axes[ii] = rank + axes[ii]
		}
		if axes[ii] < 0 || axes[ii] >= rank {
			exceptions.Panicf("%s's axis #%d of %v = %v given is out-of-range for rank %d",
				paramName, ii, axesWithNegatives, axesWithNegatives[ii], rank)
		}
	}
	return axes
}

// adjustAxesToRankAndSort is like adjustAxesToRank, but it also sorts the axes and checks for duplicates.
// If no axes are given, it returns all axes.
func adjustAxesToRankAndSort(rank int, axesWithNegatives []int, paramName string) []int {
	if len(axesWithNegatives) == 0 {
		axes := make([]int, rank)
		for ii := range axes {
			axes[ii] = ii
		}
		return axes
	}
	axes := adjustAxesToRank(rank, axesWithNegatives, paramName)
	slices.Sort(axes)
	for ii := 1; ii < len(axes); ii++ {
		if axes[ii] == axes[ii-1] {
			exceptions.Panicf("%s has duplicate axes %v", paramName, axesWithNegatives)
		}
	}
	return axes
}

// ReduceIdentity returns a scalar constant with the identity value of the reduction for the dtype:
// 0 for sums, 1 for products, the lowest value (-Inf for floats) for max, the highest value for min,
// true for logical-and and false for logical-or.
func ReduceIdentity(g *Graph, reduceType backends.ReduceOpType, dtype dtypes.DType) *Node {
	switch reduceType {
	case backends.ReduceOpSum:
		return ScalarZero(g, dtype)
	case backends.ReduceOpProduct:
		return ScalarOne(g, dtype)
	case backends.ReduceOpMax:
		return Infinity(g, dtype, -1)
	case backends.ReduceOpMin:
		return Infinity(g, dtype, 1)
	case backends.ReduceOpLogicalAnd:
		return Scalar(g, dtypes.Bool, true)
	case backends.ReduceOpLogicalOr:
		return Scalar(g, dtypes.Bool, false)
	}
	exceptions.Panicf("ReduceIdentity: invalid reduction type %s", reduceType)
	return nil
}

// Reduce x over the given axes using the backend reduction primitive, starting from init.
//
// The init value must be a scalar constant holding the algebraic identity of the reduction for x's dtype
// (see ReduceIdentity): backends are free to reject anything else. Values that are not identities
// (e.g. NumPy's "initial") must be combined with the result after the reduction.
//
// If no axes are given, it reduces over all axes. The reduced axes are removed from the output.
func Reduce(x *Node, reduceType backends.ReduceOpType, init *Node, reduceAxes ...int) *Node {
	g := validateBuildingGraphFromInputs(x, init)
	axes := adjustAxesToRankAndSort(x.Rank(), reduceAxes, fmt.Sprintf("Reduce%s", reduceType))
	if len(axes) == 0 {
		// Scalar input: nothing to reduce.
		return x
	}
	op, err := g.builder.Reduce(x.op, reduceType, init.op, axes...)
	if err != nil {
		panic(errors.WithMessagef(err, "Reduce%s(%s, axes=%v) failed", reduceType, x.Shape(), axes))
	}
	return newNode(g, backends.OpTypeReduce, op, fmt.Sprintf("type=%s, axes=%v", reduceType, axes), x, init)
}

func reduceWithIdentity(x *Node, reduceType backends.ReduceOpType, reduceAxes []int) *Node {
	_ = validateBuildingGraphFromInputs(x)
	return Reduce(x, reduceType, ReduceIdentity(x.Graph(), reduceType, x.DType()), reduceAxes...)
}

// ReduceSum reduces by summing over x elements over the selected axes.
// If reduceAxes is nil, reduce over all dimensions to a scalar.
//
// The reduced axes of `x` are removed in the output -- so the rank is reduced.
func ReduceSum(x *Node, reduceAxes ...int) *Node {
	return reduceWithIdentity(x, backends.ReduceOpSum, reduceAxes)
}

// ReduceAllSum reduces all dimensions to a scalar by summing.
func ReduceAllSum(x *Node) *Node {
	return ReduceSum(x)
}

// ReduceMultiply reduces by multiplying over the elements of the selected axes.
// If reduceAxes is nil, reduce over all dimensions to a scalar.
func ReduceMultiply(x *Node, reduceAxes ...int) *Node {
	return reduceWithIdentity(x, backends.ReduceOpProduct, reduceAxes)
}

// ReduceMax reduces by taking the max over the elements of the selected axes.
// If reduceAxes is nil, reduce over all dimensions to a scalar.
//
// NaN values are propagated. Reducing empty axes returns the lowest value of the dtype (-Inf for floats).
func ReduceMax(x *Node, reduceAxes ...int) *Node {
	return reduceWithIdentity(x, backends.ReduceOpMax, reduceAxes)
}

// ReduceMin reduces by taking the min over the elements of the selected axes.
// If reduceAxes is nil, reduce over all dimensions to a scalar.
//
// NaN values are propagated. Reducing empty axes returns the highest value of the dtype (+Inf for floats).
func ReduceMin(x *Node, reduceAxes ...int) *Node {
	return reduceWithIdentity(x, backends.ReduceOpMin, reduceAxes)
}

// ReduceLogicalAnd reduces a boolean x by "and"-ing its values over the selected axes.
// If reduceAxes is nil, reduce over all dimensions to a scalar.
func ReduceLogicalAnd(x *Node, reduceAxes ...int) *Node {
	return reduceWithIdentity(x, backends.ReduceOpLogicalAnd, reduceAxes)
}

// ReduceLogicalOr reduces a boolean x by "or"-ing its values over the selected axes.
// If reduceAxes is nil, reduce over all dimensions to a scalar.
func ReduceLogicalOr(x *Node, reduceAxes ...int) *Node {
	return reduceWithIdentity(x, backends.ReduceOpLogicalOr, reduceAxes)
}

// Cumulative returns the inclusive prefix reduction of x along the axis: output[i] = op(x[0], ..., x[i]).
// If reverse is true, the prefix is taken from the end of the axis: output[i] = op(x[i], ..., x[n-1]).
func Cumulative(x *Node, reduceType backends.ReduceOpType, axis int, reverse bool) *Node {
	g := validateBuildingGraphFromInputs(x)
	if x.IsScalar() {
		exceptions.Panicf("Cumulative%s requires a non-scalar input, got %s", reduceType, x.Shape())
	}
	axis = adjustAxisToRank(axis, x.Rank(), fmt.Sprintf("Cumulative%s", reduceType))
	op, err := g.builder.Cumulative(x.op, reduceType, axis, reverse)
	if err != nil {
		panic(errors.WithMessagef(err, "Cumulative%s(%s, axis=%d) failed", reduceType, x.Shape(), axis))
	}
	return newNode(g, backends.OpTypeCumulative, op,
		fmt.Sprintf("type=%s, axis=%d, reverse=%v", reduceType, axis, reverse), x)
}

// CumSum returns the cumulative sum of x along the given axis. Negative axes are counted from the end.
func CumSum(x *Node, axis int) *Node {
	return Cumulative(x, backends.ReduceOpSum, axis, false)
}

// CumProd returns the cumulative product of x along the given axis. Negative axes are counted from the end.
func CumProd(x *Node, axis int) *Node {
	return Cumulative(x, backends.ReduceOpProduct, axis, false)
}

// Sort x in ascending order along the axis. The sort is stable, and NaN values are sorted to the end.
// Complex values are not supported.
func Sort(x *Node, axis int) *Node {
	g := validateBuildingGraphFromInputs(x)
	axis = adjustAxisToRank(axis, x.Rank(), "Sort")
	op, err := g.builder.Sort(x.op, axis)
	if err != nil {
		panic(errors.WithMessagef(err, "Sort(%s, axis=%d) failed", x.Shape(), axis))
	}
	return newNode(g, backends.OpTypeSort, op, fmt.Sprintf("axis=%d", axis), x)
}

// TakeAlongAxis gathers values of x along the axis, at the positions given by indices.
//
// The indices must have the same rank as x, and the same dimensions on every axis but the given one.
// The output has the dimensions of indices. Out-of-range indices are clamped.
func TakeAlongAxis(x, indices *Node, axis int) *Node {
	g := validateBuildingGraphFromInputs(x, indices)
	axis = adjustAxisToRank(axis, x.Rank(), "TakeAlongAxis")
	op, err := g.builder.TakeAlongAxis(x.op, indices.op, axis)
	if err != nil {
		panic(errors.WithMessagef(err, "TakeAlongAxis(%s, %s, axis=%d) failed", x.Shape(), indices.Shape(), axis))
	}
	return newNode(g, backends.OpTypeTakeAlongAxis, op, fmt.Sprintf("axis=%d", axis), x, indices)
}

// AllReduce reduces the operands across the replicas participating in the computation, and returns the
// reduced values to every replica.
//
// The replicaGroups lists the groups of replicas reduced together. If nil, all replicas form one group.
func AllReduce(operands []*Node, reduceType backends.ReduceOpType, replicaGroups [][]int) []*Node {
	g := validateBuildingGraphFromInputs(operands...)
	ops := make([]backends.Op, len(operands))
	for ii, operand := range operands {
		ops[ii] = operand.op
	}
	outputOps, err := g.builder.AllReduce(ops, reduceType, replicaGroups)
	if err != nil {
		panic(errors.WithMessagef(err, "AllReduce%s failed", reduceType))
	}
	outputs := make([]*Node, len(outputOps))
	for ii, op := range outputOps {
		outputs[ii] = newNode(g, backends.OpTypeAllReduce, op,
			fmt.Sprintf("type=%s, groups=%v", reduceType, replicaGroups), operands[ii])
	}
	return outputs
}
