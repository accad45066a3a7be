// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"cmp"
	"math"
	"math/cmplx"

	"github.com/gomlx/npreduce/backends"
	"github.com/pkg/errors"
)

func init() {
	for _, opType := range []backends.OpType{
		backends.OpTypeAbs, backends.OpTypeCeil, backends.OpTypeConj, backends.OpTypeFloor, backends.OpTypeImag,
		backends.OpTypeLogicalNot, backends.OpTypeNeg, backends.OpTypeReal, backends.OpTypeSqrt,
	} {
		nodeExecutors[opType] = execUnary
	}
	for _, opType := range []backends.OpType{
		backends.OpTypeAdd, backends.OpTypeSub, backends.OpTypeMul, backends.OpTypeDiv, backends.OpTypeMax,
		backends.OpTypeMin, backends.OpTypeLogicalAnd, backends.OpTypeLogicalOr,
	} {
		nodeExecutors[opType] = execBinary
	}
	for _, opType := range []backends.OpType{
		backends.OpTypeEqual, backends.OpTypeNotEqual, backends.OpTypeGreaterOrEqual, backends.OpTypeGreaterThan,
		backends.OpTypeLessOrEqual, backends.OpTypeLessThan,
	} {
		nodeExecutors[opType] = execComparison
	}
	nodeExecutors[backends.OpTypeIsNaN] = execIsNaN
	nodeExecutors[backends.OpTypeWhere] = execWhere
	nodeExecutors[backends.OpTypeClamp] = execClamp
	nodeExecutors[backends.OpTypeConvertDType] = execConvertDType
	nodeExecutors[backends.OpTypeIota] = execIota
}

// newOutput allocates the output buffer for the node, and writes the wide values into it.
func newOutput(backend *Backend, node *Node, wide any) *Buffer {
	output := backend.NewBuffer(node.shape)
	narrow(wide, output)
	return output
}

func mapValues[T, R any](values []T, fn func(T) R) []R {
	out := make([]R, len(values))
	for ii, v := range values {
		out[ii] = fn(v)
	}
	return out
}

func execUnary(backend *Backend, node *Node, inputs []*Buffer, _ []bool) (*Buffer, error) {
	opType := node.opType
	var out any
	switch values := widen(inputs[0]).(type) {
	case []bool:
		if opType == backends.OpTypeLogicalNot {
			out = mapValues(values, func(v bool) bool { return !v })
		}
	case []int64:
		switch opType {
		case backends.OpTypeAbs:
			out = mapValues(values, func(v int64) int64 {
				if v < 0 {
					return -v
				}
				return v
			})
		case backends.OpTypeNeg:
			out = mapValues(values, func(v int64) int64 { return -v })
		}
	case []uint64:
		if opType == backends.OpTypeAbs {
			out = values
		}
	case []float64:
		switch opType {
		case backends.OpTypeAbs:
			out = mapValues(values, math.Abs)
		case backends.OpTypeNeg:
			out = mapValues(values, func(v float64) float64 { return -v })
		case backends.OpTypeCeil:
			out = mapValues(values, math.Ceil)
		case backends.OpTypeFloor:
			out = mapValues(values, math.Floor)
		case backends.OpTypeSqrt:
			out = mapValues(values, math.Sqrt)
		case backends.OpTypeReal, backends.OpTypeConj:
			out = values
		case backends.OpTypeImag:
			out = make([]float64, len(values))
		}
	case []complex128:
		switch opType {
		case backends.OpTypeAbs:
			out = mapValues(values, cmplx.Abs)
		case backends.OpTypeNeg:
			out = mapValues(values, func(v complex128) complex128 { return -v })
		case backends.OpTypeSqrt:
			out = mapValues(values, cmplx.Sqrt)
		case backends.OpTypeConj:
			out = mapValues(values, cmplx.Conj)
		case backends.OpTypeReal:
			out = mapValues(values, func(v complex128) float64 { return real(v) })
		case backends.OpTypeImag:
			out = mapValues(values, func(v complex128) float64 { return imag(v) })
		}
	}
	if out == nil {
		return nil, errors.Errorf("%s not supported for %s", opType, inputs[0].shape)
	}
	return newOutput(backend, node, out), nil
}

// binaryValues applies fn element-wise, where either operand can be a scalar.
func binaryValues[T, R any](lhs, rhs []T, size int, fn func(a, b T) R) []R {
	out := make([]R, size)
	for ii := range out {
		out[ii] = fn(scalarAt(lhs, ii), scalarAt(rhs, ii))
	}
	return out
}

// floatMax returns the maximum, propagating NaNs.
func floatMax(a, b float64) float64 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.NaN()
	}
	return max(a, b)
}

// floatMin returns the minimum, propagating NaNs.
func floatMin(a, b float64) float64 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.NaN()
	}
	return min(a, b)
}

// intBinaryFn returns the function for integer (signed or unsigned) binary ops.
// Integer division truncates, and division by zero returns 0.
func intBinaryFn[T int64 | uint64](opType backends.OpType) func(a, b T) T {
	switch opType {
	case backends.OpTypeAdd:
		return func(a, b T) T { return a + b }
	case backends.OpTypeSub:
		return func(a, b T) T { return a - b }
	case backends.OpTypeMul:
		return func(a, b T) T { return a * b }
	case backends.OpTypeDiv:
		return func(a, b T) T {
			if b == 0 {
				return 0
			}
			return a / b
		}
	case backends.OpTypeMax:
		return func(a, b T) T { return max(a, b) }
	case backends.OpTypeMin:
		return func(a, b T) T { return min(a, b) }
	}
	return nil
}

func floatBinaryFn(opType backends.OpType) func(a, b float64) float64 {
	switch opType {
	case backends.OpTypeAdd:
		return func(a, b float64) float64 { return a + b }
	case backends.OpTypeSub:
		return func(a, b float64) float64 { return a - b }
	case backends.OpTypeMul:
		return func(a, b float64) float64 { return a * b }
	case backends.OpTypeDiv:
		return func(a, b float64) float64 { return a / b }
	case backends.OpTypeMax:
		return floatMax
	case backends.OpTypeMin:
		return floatMin
	}
	return nil
}

func complexBinaryFn(opType backends.OpType) func(a, b complex128) complex128 {
	switch opType {
	case backends.OpTypeAdd:
		return func(a, b complex128) complex128 { return a + b }
	case backends.OpTypeSub:
		return func(a, b complex128) complex128 { return a - b }
	case backends.OpTypeMul:
		return func(a, b complex128) complex128 { return a * b }
	case backends.OpTypeDiv:
		return func(a, b complex128) complex128 { return a / b }
	}
	return nil
}

func boolBinaryFn(opType backends.OpType) func(a, b bool) bool {
	switch opType {
	case backends.OpTypeLogicalAnd:
		return func(a, b bool) bool { return a && b }
	case backends.OpTypeLogicalOr:
		return func(a, b bool) bool { return a || b }
	}
	return nil
}

// applyBinary applies fn if it is defined, otherwise it returns nil.
func applyBinary[T, R any](lhs, rhs []T, size int, fn func(a, b T) R) any {
	if fn == nil {
		return nil
	}
	return binaryValues(lhs, rhs, size, fn)
}

func execBinary(backend *Backend, node *Node, inputs []*Buffer, _ []bool) (*Buffer, error) {
	size := node.shape.Size()
	var out any
	switch lhs := widen(inputs[0]).(type) {
	case []bool:
		out = applyBinary(lhs, widen(inputs[1]).([]bool), size, boolBinaryFn(node.opType))
	case []int64:
		out = applyBinary(lhs, widen(inputs[1]).([]int64), size, intBinaryFn[int64](node.opType))
	case []uint64:
		out = applyBinary(lhs, widen(inputs[1]).([]uint64), size, intBinaryFn[uint64](node.opType))
	case []float64:
		out = applyBinary(lhs, widen(inputs[1]).([]float64), size, floatBinaryFn(node.opType))
	case []complex128:
		out = applyBinary(lhs, widen(inputs[1]).([]complex128), size, complexBinaryFn(node.opType))
	}
	if out == nil {
		return nil, errors.Errorf("%s not supported for %s", node.opType, inputs[0].shape)
	}
	return newOutput(backend, node, out), nil
}

// orderedComparisonFn returns the comparison function for ordered values.
// Any comparison with a NaN is false, except NotEqual.
func orderedComparisonFn[T cmp.Ordered](opType backends.OpType) func(a, b T) bool {
	switch opType {
	case backends.OpTypeEqual:
		return func(a, b T) bool { return a == b }
	case backends.OpTypeNotEqual:
		return func(a, b T) bool { return a != b }
	case backends.OpTypeGreaterOrEqual:
		return func(a, b T) bool { return a >= b }
	case backends.OpTypeGreaterThan:
		return func(a, b T) bool { return a > b }
	case backends.OpTypeLessOrEqual:
		return func(a, b T) bool { return a <= b }
	case backends.OpTypeLessThan:
		return func(a, b T) bool { return a < b }
	}
	return nil
}

func equalityFn[T comparable](opType backends.OpType) func(a, b T) bool {
	switch opType {
	case backends.OpTypeEqual:
		return func(a, b T) bool { return a == b }
	case backends.OpTypeNotEqual:
		return func(a, b T) bool { return a != b }
	}
	return nil
}

func execComparison(backend *Backend, node *Node, inputs []*Buffer, _ []bool) (*Buffer, error) {
	size := node.shape.Size()
	var out any
	switch lhs := widen(inputs[0]).(type) {
	case []bool:
		out = applyBinary(lhs, widen(inputs[1]).([]bool), size, equalityFn[bool](node.opType))
	case []int64:
		out = applyBinary(lhs, widen(inputs[1]).([]int64), size, orderedComparisonFn[int64](node.opType))
	case []uint64:
		out = applyBinary(lhs, widen(inputs[1]).([]uint64), size, orderedComparisonFn[uint64](node.opType))
	case []float64:
		out = applyBinary(lhs, widen(inputs[1]).([]float64), size, orderedComparisonFn[float64](node.opType))
	case []complex128:
		out = applyBinary(lhs, widen(inputs[1]).([]complex128), size, equalityFn[complex128](node.opType))
	}
	if out == nil {
		return nil, errors.Errorf("%s not supported for %s", node.opType, inputs[0].shape)
	}
	return newOutput(backend, node, out), nil
}

func execIsNaN(backend *Backend, node *Node, inputs []*Buffer, _ []bool) (*Buffer, error) {
	var out []bool
	switch values := widen(inputs[0]).(type) {
	case []float64:
		out = mapValues(values, func(v float64) bool { return math.IsNaN(v) })
	case []complex128:
		out = mapValues(values, cmplx.IsNaN)
	default:
		// Integers and booleans are never NaN.
		out = make([]bool, node.shape.Size())
	}
	return newOutput(backend, node, out), nil
}

func whereValues[T any](condition []bool, onTrue, onFalse []T, size int) []T {
	out := make([]T, size)
	for ii := range out {
		if scalarAt(condition, ii) {
			out[ii] = scalarAt(onTrue, ii)
		} else {
			out[ii] = scalarAt(onFalse, ii)
		}
	}
	return out
}

func execWhere(backend *Backend, node *Node, inputs []*Buffer, _ []bool) (*Buffer, error) {
	condition := inputs[0].flat.([]bool)
	size := node.shape.Size()
	var out any
	switch onTrue := widen(inputs[1]).(type) {
	case []bool:
		out = whereValues(condition, onTrue, widen(inputs[2]).([]bool), size)
	case []int64:
		out = whereValues(condition, onTrue, widen(inputs[2]).([]int64), size)
	case []uint64:
		out = whereValues(condition, onTrue, widen(inputs[2]).([]uint64), size)
	case []float64:
		out = whereValues(condition, onTrue, widen(inputs[2]).([]float64), size)
	case []complex128:
		out = whereValues(condition, onTrue, widen(inputs[2]).([]complex128), size)
	}
	return newOutput(backend, node, out), nil
}

// clampValues clamps each value of x to [lower, upper]. NaN values of x are kept.
func clampValues[T cmp.Ordered](lower, x, upper []T) []T {
	out := make([]T, len(x))
	for ii, v := range x {
		lo, hi := scalarAt(lower, ii), scalarAt(upper, ii)
		switch {
		case v < lo:
			out[ii] = lo
		case v > hi:
			out[ii] = hi
		default:
			out[ii] = v
		}
	}
	return out
}

func execClamp(backend *Backend, node *Node, inputs []*Buffer, _ []bool) (*Buffer, error) {
	var out any
	switch x := widen(inputs[1]).(type) {
	case []int64:
		out = clampValues(widen(inputs[0]).([]int64), x, widen(inputs[2]).([]int64))
	case []uint64:
		out = clampValues(widen(inputs[0]).([]uint64), x, widen(inputs[2]).([]uint64))
	case []float64:
		out = clampValues(widen(inputs[0]).([]float64), x, widen(inputs[2]).([]float64))
	default:
		return nil, errors.Errorf("Clamp not supported for %s", inputs[1].shape)
	}
	return newOutput(backend, node, out), nil
}

func execConvertDType(backend *Backend, node *Node, inputs []*Buffer, _ []bool) (*Buffer, error) {
	return newOutput(backend, node, convertWide(widen(inputs[0]), node.shape.DType)), nil
}

func execIota(backend *Backend, node *Node, _ []*Buffer, _ []bool) (*Buffer, error) {
	iotaAxis := node.data.(int)
	counters := make([]int64, node.shape.Size())
	for flatIdx, indices := range node.shape.Iter() {
		counters[flatIdx] = int64(indices[iotaAxis])
	}
	return newOutput(backend, node, convertWide(counters, node.shape.DType)), nil
}
