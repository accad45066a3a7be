// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"cmp"
	"math"
	"slices"

	"github.com/gomlx/npreduce/backends"
	"github.com/gomlx/npreduce/pkg/core/dtypes"
	"github.com/gomlx/npreduce/pkg/core/shapes"
	"github.com/pkg/errors"
)

func init() {
	nodeExecutors[backends.OpTypeReduce] = execReduce
	nodeExecutors[backends.OpTypeCumulative] = execCumulative
	nodeExecutors[backends.OpTypeSort] = execSort
	nodeExecutors[backends.OpTypeAllReduce] = execAllReduce
}

// reduceIdentity returns a one-element wide slice with the identity of the reduction for dtype.
func reduceIdentity(reduceType backends.ReduceOpType, dtype dtypes.DType) any {
	kind := kindOf(dtype)
	switch reduceType {
	case backends.ReduceOpSum:
		return newWide(kind, 1)
	case backends.ReduceOpProduct:
		identity := newWide(kind, 1)
		setWideOne(identity, 0)
		return identity
	case backends.ReduceOpLogicalAnd:
		return []bool{true}
	case backends.ReduceOpLogicalOr:
		return []bool{false}
	case backends.ReduceOpMax, backends.ReduceOpMin:
		lowest, highest := intRange(dtype)
		isMax := reduceType == backends.ReduceOpMax
		switch kind {
		case wideInt:
			if isMax {
				return []int64{lowest}
			}
			return []int64{int64(highest)}
		case wideUint:
			if isMax {
				return []uint64{0}
			}
			return []uint64{highest}
		case wideFloat:
			if isMax {
				return []float64{math.Inf(-1)}
			}
			return []float64{math.Inf(1)}
		}
	}
	return nil
}

// wideEqualAt returns whether both wide slices have the same type and value at position ii.
func wideEqualAt(a, b any, ii int) bool {
	switch va := a.(type) {
	case []bool:
		vb, ok := b.([]bool)
		return ok && va[ii] == vb[ii]
	case []int64:
		vb, ok := b.([]int64)
		return ok && va[ii] == vb[ii]
	case []uint64:
		vb, ok := b.([]uint64)
		return ok && va[ii] == vb[ii]
	case []float64:
		vb, ok := b.([]float64)
		return ok && va[ii] == vb[ii]
	case []complex128:
		vb, ok := b.([]complex128)
		return ok && va[ii] == vb[ii]
	}
	return false
}

// reduceFn returns the binary function that combines values for the reduction.
func reduceFn[T wideTypes](reduceType backends.ReduceOpType) func(a, b T) T {
	var fn any
	var zero T
	switch any(zero).(type) {
	case bool:
		switch reduceType {
		case backends.ReduceOpLogicalAnd:
			fn = boolBinaryFn(backends.OpTypeLogicalAnd)
		case backends.ReduceOpLogicalOr:
			fn = boolBinaryFn(backends.OpTypeLogicalOr)
		}
	case int64:
		fn = intBinaryFn[int64](reduceOpToBinaryOp(reduceType))
	case uint64:
		fn = intBinaryFn[uint64](reduceOpToBinaryOp(reduceType))
	case float64:
		fn = floatBinaryFn(reduceOpToBinaryOp(reduceType))
	case complex128:
		fn = complexBinaryFn(reduceOpToBinaryOp(reduceType))
	}
	typedFn, _ := fn.(func(a, b T) T)
	return typedFn
}

func reduceOpToBinaryOp(reduceType backends.ReduceOpType) backends.OpType {
	switch reduceType {
	case backends.ReduceOpSum:
		return backends.OpTypeAdd
	case backends.ReduceOpProduct:
		return backends.OpTypeMul
	case backends.ReduceOpMax:
		return backends.OpTypeMax
	case backends.ReduceOpMin:
		return backends.OpTypeMin
	}
	return backends.OpTypeInvalid
}

// reduceValues reduces the values over the given axes, starting from the identity.
func reduceValues[T wideTypes](values []T, shape shapes.Shape, outputSize int, axes []int, identity T, fn func(a, b T) T) []T {
	out := make([]T, outputSize)
	for ii := range out {
		out[ii] = identity
	}

	// outputStrides holds, for each input axis, the stride in the output: 0 for reduced axes.
	outputStrides := make([]int, shape.Rank())
	stride := 1
	for axis := shape.Rank() - 1; axis >= 0; axis-- {
		if slices.Contains(axes, axis) {
			continue
		}
		outputStrides[axis] = stride
		stride *= shape.Dimensions[axis]
	}
	for flatIdx, indices := range shape.Iter() {
		outIdx := shapes.FlatIndex(outputStrides, indices)
		out[outIdx] = fn(out[outIdx], values[flatIdx])
	}
	return out
}

func reduceWide[T wideTypes](values []T, node *Node, shape shapes.Shape, reduceType backends.ReduceOpType) (any, error) {
	fn := reduceFn[T](reduceType)
	identity, ok := reduceIdentity(reduceType, shape.DType).([]T)
	if fn == nil || !ok {
		return nil, errors.Errorf("reduction %s not supported for %s", reduceType, shape)
	}
	data := node.data.(*reduceNode)
	return reduceValues(values, shape, node.shape.Size(), data.axes, identity[0], fn), nil
}

func execReduce(backend *Backend, node *Node, inputs []*Buffer, _ []bool) (*Buffer, error) {
	reduceType := node.data.(*reduceNode).reduceType
	shape := inputs[0].shape
	var out any
	var err error
	switch values := widen(inputs[0]).(type) {
	case []bool:
		out, err = reduceWide(values, node, shape, reduceType)
	case []int64:
		out, err = reduceWide(values, node, shape, reduceType)
	case []uint64:
		out, err = reduceWide(values, node, shape, reduceType)
	case []float64:
		out, err = reduceWide(values, node, shape, reduceType)
	case []complex128:
		out, err = reduceWide(values, node, shape, reduceType)
	}
	if err != nil {
		return nil, err
	}
	return newOutput(backend, node, out), nil
}

// cumulativeValues computes the inclusive prefix reduction along the axis.
func cumulativeValues[T wideTypes](values []T, layout axisLayout, reverse bool, fn func(a, b T) T) []T {
	out := make([]T, len(values))
	for outer := range layout.outer {
		for inner := range layout.inner {
			var acc T
			for step := range layout.dim {
				k := step
				if reverse {
					k = layout.dim - 1 - step
				}
				idx := layout.index(outer, k, inner)
				if step == 0 {
					acc = values[idx]
				} else {
					acc = fn(acc, values[idx])
				}
				out[idx] = acc
			}
		}
	}
	return out
}

func cumulativeWide[T wideTypes](values []T, node *Node, shape shapes.Shape) (any, error) {
	data := node.data.(*cumulativeNode)
	fn := reduceFn[T](data.reduceType)
	if fn == nil {
		return nil, errors.Errorf("cumulative %s not supported for %s", data.reduceType, shape)
	}
	return cumulativeValues(values, newAxisLayout(shape, data.axis), data.reverse, fn), nil
}

func execCumulative(backend *Backend, node *Node, inputs []*Buffer, _ []bool) (*Buffer, error) {
	shape := inputs[0].shape
	var out any
	var err error
	switch values := widen(inputs[0]).(type) {
	case []bool:
		out, err = cumulativeWide(values, node, shape)
	case []int64:
		out, err = cumulativeWide(values, node, shape)
	case []uint64:
		out, err = cumulativeWide(values, node, shape)
	case []float64:
		out, err = cumulativeWide(values, node, shape)
	case []complex128:
		out, err = cumulativeWide(values, node, shape)
	}
	if err != nil {
		return nil, err
	}
	return newOutput(backend, node, out), nil
}

// compareNaNLast orders floats ascending, with NaNs after every other value.
func compareNaNLast(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	case bNaN:
		return -1
	}
	return cmp.Compare(a, b)
}

func compareBools(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return 1
	}
	return -1
}

// sortValues sorts each lane along the axis, stable.
func sortValues[T any](values []T, layout axisLayout, compare func(a, b T) int) []T {
	out := make([]T, len(values))
	lane := make([]T, layout.dim)
	for outer := range layout.outer {
		for inner := range layout.inner {
			for k := range layout.dim {
				lane[k] = values[layout.index(outer, k, inner)]
			}
			slices.SortStableFunc(lane, compare)
			for k := range layout.dim {
				out[layout.index(outer, k, inner)] = lane[k]
			}
		}
	}
	return out
}

func execSort(backend *Backend, node *Node, inputs []*Buffer, _ []bool) (*Buffer, error) {
	layout := newAxisLayout(inputs[0].shape, node.data.(int))
	var out any
	switch values := widen(inputs[0]).(type) {
	case []bool:
		out = sortValues(values, layout, compareBools)
	case []int64:
		out = sortValues(values, layout, cmp.Compare[int64])
	case []uint64:
		out = sortValues(values, layout, cmp.Compare[uint64])
	case []float64:
		out = sortValues(values, layout, compareNaNLast)
	default:
		return nil, errors.Errorf("Sort not supported for %s", inputs[0].shape)
	}
	return newOutput(backend, node, out), nil
}

// execAllReduce with a single replica: the reduction of one participant is its own value.
func execAllReduce(backend *Backend, node *Node, inputs []*Buffer, inputsOwned []bool) (*Buffer, error) {
	if inputsOwned[0] {
		return inputs[0], nil
	}
	return backend.cloneBuffer(inputs[0])
}
