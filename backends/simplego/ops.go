// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"slices"

	"github.com/gomlx/npreduce/backends"
	"github.com/gomlx/npreduce/backends/shapeinference"
	"github.com/gomlx/npreduce/pkg/core/dtypes"
	"github.com/gomlx/npreduce/pkg/core/shapes"
	"github.com/pkg/errors"
)

// addUnaryOp adds a generic unary op.
func (b *Builder) addUnaryOp(opType backends.OpType, operandOp backends.Op) (*Node, error) {
	inputs, err := b.checkOps(opType.String(), operandOp)
	if err != nil {
		return nil, err
	}
	operand := inputs[0]
	shape, err := shapeinference.UnaryOp(opType, operand.shape)
	if err != nil {
		return nil, err
	}
	return b.newNode(opType, shape, operand), nil
}

// addBinaryOp adds a generic binary op.
func (b *Builder) addBinaryOp(opType backends.OpType, lhsOp, rhsOp backends.Op) (*Node, error) {
	inputs, err := b.checkOps(opType.String(), lhsOp, rhsOp)
	if err != nil {
		return nil, err
	}
	lhs, rhs := inputs[0], inputs[1]
	shape, err := shapeinference.BinaryOp(opType, lhs.shape, rhs.shape)
	if err != nil {
		return nil, err
	}
	return b.newNode(opType, shape, lhs, rhs), nil
}

// addComparisonOp adds a generic comparison binary op.
func (b *Builder) addComparisonOp(opType backends.OpType, lhsOp, rhsOp backends.Op) (*Node, error) {
	inputs, err := b.checkOps(opType.String(), lhsOp, rhsOp)
	if err != nil {
		return nil, err
	}
	lhs, rhs := inputs[0], inputs[1]
	shape, err := shapeinference.ComparisonOp(opType, lhs.shape, rhs.shape)
	if err != nil {
		return nil, err
	}
	return b.newNode(opType, shape, lhs, rhs), nil
}

// Abs implements backends.Builder.
func (b *Builder) Abs(x backends.Op) (backends.Op, error) { return b.addUnaryOp(backends.OpTypeAbs, x) }

// Ceil implements backends.Builder.
func (b *Builder) Ceil(x backends.Op) (backends.Op, error) { return b.addUnaryOp(backends.OpTypeCeil, x) }

// Conj implements backends.Builder.
func (b *Builder) Conj(x backends.Op) (backends.Op, error) { return b.addUnaryOp(backends.OpTypeConj, x) }

// Floor implements backends.Builder.
func (b *Builder) Floor(x backends.Op) (backends.Op, error) { return b.addUnaryOp(backends.OpTypeFloor, x) }

// Imag implements backends.Builder.
func (b *Builder) Imag(x backends.Op) (backends.Op, error) { return b.addUnaryOp(backends.OpTypeImag, x) }

// LogicalNot implements backends.Builder.
func (b *Builder) LogicalNot(x backends.Op) (backends.Op, error) {
	return b.addUnaryOp(backends.OpTypeLogicalNot, x)
}

// Neg implements backends.Builder.
func (b *Builder) Neg(x backends.Op) (backends.Op, error) { return b.addUnaryOp(backends.OpTypeNeg, x) }

// Real implements backends.Builder.
func (b *Builder) Real(x backends.Op) (backends.Op, error) { return b.addUnaryOp(backends.OpTypeReal, x) }

// Sqrt implements backends.Builder.
func (b *Builder) Sqrt(x backends.Op) (backends.Op, error) { return b.addUnaryOp(backends.OpTypeSqrt, x) }

// IsNaN implements backends.Builder.
func (b *Builder) IsNaN(x backends.Op) (backends.Op, error) {
	inputs, err := b.checkOps("IsNaN", x)
	if err != nil {
		return nil, err
	}
	shape, err := shapeinference.IsNaNOp(inputs[0].shape)
	if err != nil {
		return nil, err
	}
	return b.newNode(backends.OpTypeIsNaN, shape, inputs[0]), nil
}

// Add implements backends.Builder.
func (b *Builder) Add(lhs, rhs backends.Op) (backends.Op, error) {
	return b.addBinaryOp(backends.OpTypeAdd, lhs, rhs)
}

// Sub implements backends.Builder.
func (b *Builder) Sub(lhs, rhs backends.Op) (backends.Op, error) {
	return b.addBinaryOp(backends.OpTypeSub, lhs, rhs)
}

// Mul implements backends.Builder.
func (b *Builder) Mul(lhs, rhs backends.Op) (backends.Op, error) {
	return b.addBinaryOp(backends.OpTypeMul, lhs, rhs)
}

// Div implements backends.Builder.
func (b *Builder) Div(lhs, rhs backends.Op) (backends.Op, error) {
	return b.addBinaryOp(backends.OpTypeDiv, lhs, rhs)
}

// Max implements backends.Builder.
func (b *Builder) Max(lhs, rhs backends.Op) (backends.Op, error) {
	return b.addBinaryOp(backends.OpTypeMax, lhs, rhs)
}

// Min implements backends.Builder.
func (b *Builder) Min(lhs, rhs backends.Op) (backends.Op, error) {
	return b.addBinaryOp(backends.OpTypeMin, lhs, rhs)
}

// LogicalAnd implements backends.Builder.
func (b *Builder) LogicalAnd(lhs, rhs backends.Op) (backends.Op, error) {
	return b.addBinaryOp(backends.OpTypeLogicalAnd, lhs, rhs)
}

// LogicalOr implements backends.Builder.
func (b *Builder) LogicalOr(lhs, rhs backends.Op) (backends.Op, error) {
	return b.addBinaryOp(backends.OpTypeLogicalOr, lhs, rhs)
}

// Equal implements backends.Builder.
func (b *Builder) Equal(lhs, rhs backends.Op) (backends.Op, error) {
	return b.addComparisonOp(backends.OpTypeEqual, lhs, rhs)
}

// NotEqual implements backends.Builder.
func (b *Builder) NotEqual(lhs, rhs backends.Op) (backends.Op, error) {
	return b.addComparisonOp(backends.OpTypeNotEqual, lhs, rhs)
}

// GreaterOrEqual implements backends.Builder.
func (b *Builder) GreaterOrEqual(lhs, rhs backends.Op) (backends.Op, error) {
	return b.addComparisonOp(backends.OpTypeGreaterOrEqual, lhs, rhs)
}

// GreaterThan implements backends.Builder.
func (b *Builder) GreaterThan(lhs, rhs backends.Op) (backends.Op, error) {
	return b.addComparisonOp(backends.OpTypeGreaterThan, lhs, rhs)
}

// LessOrEqual implements backends.Builder.
func (b *Builder) LessOrEqual(lhs, rhs backends.Op) (backends.Op, error) {
	return b.addComparisonOp(backends.OpTypeLessOrEqual, lhs, rhs)
}

// LessThan implements backends.Builder.
func (b *Builder) LessThan(lhs, rhs backends.Op) (backends.Op, error) {
	return b.addComparisonOp(backends.OpTypeLessThan, lhs, rhs)
}

// Where implements backends.Builder.
func (b *Builder) Where(condition, onTrue, onFalse backends.Op) (backends.Op, error) {
	inputs, err := b.checkOps("Where", condition, onTrue, onFalse)
	if err != nil {
		return nil, err
	}
	shape, err := shapeinference.WhereOp(inputs[0].shape, inputs[1].shape, inputs[2].shape)
	if err != nil {
		return nil, err
	}
	return b.newNode(backends.OpTypeWhere, shape, inputs...), nil
}

// Clamp implements backends.Builder.
func (b *Builder) Clamp(lower, x, upper backends.Op) (backends.Op, error) {
	inputs, err := b.checkOps("Clamp", lower, x, upper)
	if err != nil {
		return nil, err
	}
	shape, err := shapeinference.ClampOp(inputs[0].shape, inputs[1].shape, inputs[2].shape)
	if err != nil {
		return nil, err
	}
	return b.newNode(backends.OpTypeClamp, shape, inputs...), nil
}

// ConvertDType implements backends.Builder.
func (b *Builder) ConvertDType(x backends.Op, dtype dtypes.DType) (backends.Op, error) {
	inputs, err := b.checkOps("ConvertDType", x)
	if err != nil {
		return nil, err
	}
	if !Capabilities.DTypes[dtype] {
		return nil, errors.Errorf("ConvertDType: dtype %s not supported by backend %q", dtype, BackendName)
	}
	shape, err := shapeinference.ConvertDTypeOp(inputs[0].shape, dtype)
	if err != nil {
		return nil, err
	}
	return b.newNode(backends.OpTypeConvertDType, shape, inputs[0]), nil
}

// Iota implements backends.Builder.
func (b *Builder) Iota(shape shapes.Shape, iotaAxis int) (backends.Op, error) {
	if _, err := b.checkOps("Iota"); err != nil {
		return nil, err
	}
	if err := shapeinference.IotaOp(shape, iotaAxis); err != nil {
		return nil, err
	}
	n := b.newNode(backends.OpTypeIota, shape.Clone())
	n.data = iotaAxis
	return n, nil
}

// Reshape implements backends.Builder.
func (b *Builder) Reshape(x backends.Op, dimensions ...int) (backends.Op, error) {
	inputs, err := b.checkOps("Reshape", x)
	if err != nil {
		return nil, err
	}
	shape, err := shapeinference.ReshapeOp(inputs[0].shape, dimensions)
	if err != nil {
		return nil, err
	}
	return b.newNode(backends.OpTypeReshape, shape, inputs[0]), nil
}

// Transpose implements backends.Builder.
func (b *Builder) Transpose(x backends.Op, permutation ...int) (backends.Op, error) {
	inputs, err := b.checkOps("Transpose", x)
	if err != nil {
		return nil, err
	}
	shape, err := shapeinference.TransposeOp(inputs[0].shape, permutation)
	if err != nil {
		return nil, err
	}
	n := b.newNode(backends.OpTypeTranspose, shape, inputs[0])
	n.data = slices.Clone(permutation)
	return n, nil
}

// BroadcastInDim implements backends.Builder.
func (b *Builder) BroadcastInDim(x backends.Op, outputShape shapes.Shape, broadcastAxes []int) (backends.Op, error) {
	inputs, err := b.checkOps("BroadcastInDim", x)
	if err != nil {
		return nil, err
	}
	if err = shapeinference.BroadcastInDimOp(inputs[0].shape, outputShape, broadcastAxes); err != nil {
		return nil, err
	}
	n := b.newNode(backends.OpTypeBroadcastInDim, outputShape.Clone(), inputs[0])
	n.data = slices.Clone(broadcastAxes)
	return n, nil
}

// Concatenate implements backends.Builder.
func (b *Builder) Concatenate(axis int, operands ...backends.Op) (backends.Op, error) {
	inputs, err := b.checkOps("Concatenate", operands...)
	if err != nil {
		return nil, err
	}
	inputShapes := make([]shapes.Shape, len(inputs))
	for ii, input := range inputs {
		inputShapes[ii] = input.shape
	}
	shape, err := shapeinference.ConcatenateOp(inputShapes, axis)
	if err != nil {
		return nil, err
	}
	n := b.newNode(backends.OpTypeConcatenate, shape, inputs...)
	n.data = axis
	return n, nil
}

// reduceNode is attached to the Node.data field for Reduce.
type reduceNode struct {
	reduceType backends.ReduceOpType
	axes       []int
}

// Reduce implements backends.Builder.
//
// The init value must be a scalar constant holding the identity of the reduction: 0 for sums, 1 for products,
// the lowest (highest) value of the dtype for Max (Min), true for LogicalAnd and false for LogicalOr.
// Any other init value is rejected.
func (b *Builder) Reduce(x backends.Op, reduceType backends.ReduceOpType, init backends.Op, axes ...int) (backends.Op, error) {
	inputs, err := b.checkOps("Reduce", x, init)
	if err != nil {
		return nil, err
	}
	operand, initNode := inputs[0], inputs[1]
	if err = shapeinference.ReduceOpTypeForDType(reduceType, operand.shape.DType); err != nil {
		return nil, err
	}
	if err = checkReduceInit(reduceType, operand.shape.DType, initNode); err != nil {
		return nil, err
	}
	shape, err := shapeinference.ReduceOp(operand.shape, axes)
	if err != nil {
		return nil, err
	}
	n := b.newNode(backends.OpTypeReduce, shape, operand)
	n.data = &reduceNode{reduceType: reduceType, axes: slices.Clone(axes)}
	return n, nil
}

// checkReduceInit verifies that the init node is a scalar constant with the identity of the reduction.
func checkReduceInit(reduceType backends.ReduceOpType, dtype dtypes.DType, initNode *Node) error {
	if !initNode.shape.IsScalar() || initNode.shape.DType != dtype {
		return errors.Errorf("Reduce(%s): init value must be a scalar of dtype %s, got %s", reduceType, dtype, initNode.shape)
	}
	if initNode.opType != backends.OpTypeConstant {
		return errors.Errorf("Reduce(%s): init value must be a constant, got a %s op", reduceType, initNode.opType)
	}
	got := widen(initNode.data.(*Buffer))
	want := reduceIdentity(reduceType, dtype)
	if !wideEqualAt(got, want, 0) {
		return errors.Errorf("Reduce(%s): init value must be the identity of the reduction for dtype %s (%v), got %v",
			reduceType, dtype, want, got)
	}
	return nil
}

// cumulativeNode is attached to the Node.data field for Cumulative.
type cumulativeNode struct {
	reduceType backends.ReduceOpType
	axis       int
	reverse    bool
}

// Cumulative implements backends.Builder.
func (b *Builder) Cumulative(x backends.Op, reduceType backends.ReduceOpType, axis int, reverse bool) (backends.Op, error) {
	inputs, err := b.checkOps("Cumulative", x)
	if err != nil {
		return nil, err
	}
	shape, err := shapeinference.CumulativeOp(inputs[0].shape, reduceType, axis)
	if err != nil {
		return nil, err
	}
	n := b.newNode(backends.OpTypeCumulative, shape, inputs[0])
	n.data = &cumulativeNode{reduceType: reduceType, axis: axis, reverse: reverse}
	return n, nil
}

// Sort implements backends.Builder.
func (b *Builder) Sort(x backends.Op, axis int) (backends.Op, error) {
	inputs, err := b.checkOps("Sort", x)
	if err != nil {
		return nil, err
	}
	shape, err := shapeinference.SortOp(inputs[0].shape, axis)
	if err != nil {
		return nil, err
	}
	n := b.newNode(backends.OpTypeSort, shape, inputs[0])
	n.data = axis
	return n, nil
}

// TakeAlongAxis implements backends.Builder.
func (b *Builder) TakeAlongAxis(x, indices backends.Op, axis int) (backends.Op, error) {
	inputs, err := b.checkOps("TakeAlongAxis", x, indices)
	if err != nil {
		return nil, err
	}
	shape, err := shapeinference.TakeAlongAxisOp(inputs[0].shape, inputs[1].shape, axis)
	if err != nil {
		return nil, err
	}
	n := b.newNode(backends.OpTypeTakeAlongAxis, shape, inputs...)
	n.data = axis
	return n, nil
}

// AllReduce implements backends.CollectiveOps.
//
// SimpleGo runs a single replica, so the reduction of each operand is the operand itself.
// The replica groups, if given, can only refer to replica 0.
func (b *Builder) AllReduce(operands []backends.Op, reductionType backends.ReduceOpType, replicaGroups [][]int) ([]backends.Op, error) {
	inputs, err := b.checkOps("AllReduce", operands...)
	if err != nil {
		return nil, err
	}
	for _, group := range replicaGroups {
		for _, replica := range group {
			if replica != 0 {
				return nil, errors.Errorf("AllReduce: backend %q has a single replica, invalid replica %d in groups %v",
					BackendName, replica, replicaGroups)
			}
		}
	}
	outputs := make([]backends.Op, len(inputs))
	for ii, input := range inputs {
		if err = shapeinference.ReduceOpTypeForDType(reductionType, input.shape.DType); err != nil {
			return nil, errors.WithMessagef(err, "AllReduce operand #%d", ii)
		}
		n := b.newNode(backends.OpTypeAllReduce, input.shape.Clone(), input)
		n.data = reductionType
		outputs[ii] = n
	}
	return outputs, nil
}
