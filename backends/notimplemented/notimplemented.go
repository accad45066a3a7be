// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package notimplemented implements a backends.Builder interface that returns a "not implemented"
// error for all operations.
//
// It can be embedded by backends that only implement a subset of the operations, and it serves as a
// mock backend in tests.
package notimplemented

import (
	"github.com/gomlx/npreduce/backends"
	"github.com/gomlx/npreduce/pkg/core/dtypes"
	"github.com/gomlx/npreduce/pkg/core/shapes"
	"github.com/pkg/errors"
)

// NotImplementedError is returned by every method.
//
// It doesn't contain a stack, attach one with errors.Wrapf(NotImplementedError, "...") when using it.
var NotImplementedError = backends.ErrNotImplemented

// Backend is a dummy backend that can be used to create mock backends.
type Backend struct{}

var _ backends.Backend = &Backend{}

// Name returns the short name of the backend.
func (b *Backend) Name() string { return "notimplemented" }

// String returns the same as Name.
func (b *Backend) String() string { return b.Name() }

// Description is a longer description of the Backend.
func (b *Backend) Description() string { return "Not Implemented Backend (mock backend for testing)" }

// NumReplicas returns 1.
func (b *Backend) NumReplicas() int { return 1 }

// Capabilities returns empty capabilities.
func (b *Backend) Capabilities() backends.Capabilities {
	return backends.Capabilities{
		Operations: make(map[backends.OpType]bool),
		DTypes:     make(map[dtypes.DType]bool),
	}
}

// Builder creates a new builder.
func (b *Backend) Builder(name string) backends.Builder { return Builder{} }

// BufferFinalize returns NotImplementedError.
func (b *Backend) BufferFinalize(buffer backends.Buffer) error {
	return errors.Wrapf(NotImplementedError, "in BufferFinalize()")
}

// BufferShape returns NotImplementedError.
func (b *Backend) BufferShape(buffer backends.Buffer) (shapes.Shape, error) {
	return shapes.Invalid(), errors.Wrapf(NotImplementedError, "in BufferShape()")
}

// BufferToFlatData returns NotImplementedError.
func (b *Backend) BufferToFlatData(buffer backends.Buffer, flat any) error {
	return errors.Wrapf(NotImplementedError, "in BufferToFlatData()")
}

// BufferFromFlatData returns NotImplementedError.
func (b *Backend) BufferFromFlatData(flat any, shape shapes.Shape) (backends.Buffer, error) {
	return nil, errors.Wrapf(NotImplementedError, "in BufferFromFlatData()")
}

// Finalize does nothing for this dummy backend.
func (b *Backend) Finalize() {}

// Builder implements backends.Builder and returns NotImplementedError, wrapped with a stack-trace and the
// operation name, for every operation.
type Builder struct {
	// ErrFn is called to generate the error returned, if not nil. Otherwise NotImplementedError is returned,
	// wrapped with the op name.
	//
	// For non-ops methods (like Builder.Name and Builder.Compile) you will have to override them.
	ErrFn func(op backends.OpType) error
}

var _ backends.Builder = Builder{}

// baseErrFn returns the error corresponding to the op.
func (b Builder) baseErrFn(op backends.OpType) error {
	if b.ErrFn == nil {
		return errors.Wrapf(NotImplementedError, "op %s", op)
	}
	return b.ErrFn(op)
}

func (b Builder) Name() string {
	return "Dummy \"not implemented\" backend, please override this method"
}

func (b Builder) Compile(outputs ...backends.Op) (backends.Executable, error) {
	return nil, errors.Wrapf(NotImplementedError, "in Compile()")
}

func (b Builder) OpShape(op backends.Op) (shapes.Shape, error) {
	return shapes.Invalid(), errors.Wrapf(NotImplementedError, "in OpShape()")
}

func (b Builder) Parameter(name string, shape shapes.Shape) (backends.Op, error) {
	return nil, b.baseErrFn(backends.OpTypeParameter)
}

func (b Builder) Constant(flat any, dims ...int) (backends.Op, error) {
	return nil, b.baseErrFn(backends.OpTypeConstant)
}

func (b Builder) Abs(x backends.Op) (backends.Op, error) {
	return nil, b.baseErrFn(backends.OpTypeAbs)
}

func (b Builder) Add(lhs, rhs backends.Op) (backends.Op, error) {
	return nil, b.baseErrFn(backends.OpTypeAdd)
}

func (b Builder) BroadcastInDim(x backends.Op, outputShape shapes.Shape, broadcastAxes []int) (backends.Op, error) {
	return nil, b.baseErrFn(backends.OpTypeBroadcastInDim)
}

func (b Builder) Ceil(x backends.Op) (backends.Op, error) {
	return nil, b.baseErrFn(backends.OpTypeCeil)
}

func (b Builder) Clamp(lower, x, upper backends.Op) (backends.Op, error) {
	return nil, b.baseErrFn(backends.OpTypeClamp)
}

func (b Builder) Concatenate(axis int, operands ...backends.Op) (backends.Op, error) {
	return nil, b.baseErrFn(backends.OpTypeConcatenate)
}

func (b Builder) Conj(x backends.Op) (backends.Op, error) {
	return nil, b.baseErrFn(backends.OpTypeConj)
}

func (b Builder) ConvertDType(x backends.Op, dtype dtypes.DType) (backends.Op, error) {
	return nil, b.baseErrFn(backends.OpTypeConvertDType)
}

func (b Builder) Cumulative(x backends.Op, reduceType backends.ReduceOpType, axis int, reverse bool) (backends.Op, error) {
	return nil, b.baseErrFn(backends.OpTypeCumulative)
}

func (b Builder) Div(lhs, rhs backends.Op) (backends.Op, error) {
	return nil, b.baseErrFn(backends.OpTypeDiv)
}

func (b Builder) Equal(lhs, rhs backends.Op) (backends.Op, error) {
	return nil, b.baseErrFn(backends.OpTypeEqual)
}

func (b Builder) Floor(x backends.Op) (backends.Op, error) {
	return nil, b.baseErrFn(backends.OpTypeFloor)
}

func (b Builder) GreaterOrEqual(lhs, rhs backends.Op) (backends.Op, error) {
	return nil, b.baseErrFn(backends.OpTypeGreaterOrEqual)
}

func (b Builder) GreaterThan(lhs, rhs backends.Op) (backends.Op, error) {
	return nil, b.baseErrFn(backends.OpTypeGreaterThan)
}

func (b Builder) Imag(x backends.Op) (backends.Op, error) {
	return nil, b.baseErrFn(backends.OpTypeImag)
}

func (b Builder) Iota(shape shapes.Shape, iotaAxis int) (backends.Op, error) {
	return nil, b.baseErrFn(backends.OpTypeIota)
}

func (b Builder) IsNaN(x backends.Op) (backends.Op, error) {
	return nil, b.baseErrFn(backends.OpTypeIsNaN)
}

func (b Builder) LessOrEqual(lhs, rhs backends.Op) (backends.Op, error) {
	return nil, b.baseErrFn(backends.OpTypeLessOrEqual)
}

func (b Builder) LessThan(lhs, rhs backends.Op) (backends.Op, error) {
	return nil, b.baseErrFn(backends.OpTypeLessThan)
}

func (b Builder) LogicalAnd(lhs, rhs backends.Op) (backends.Op, error) {
	return nil, b.baseErrFn(backends.OpTypeLogicalAnd)
}

func (b Builder) LogicalNot(x backends.Op) (backends.Op, error) {
	return nil, b.baseErrFn(backends.OpTypeLogicalNot)
}

func (b Builder) LogicalOr(lhs, rhs backends.Op) (backends.Op, error) {
	return nil, b.baseErrFn(backends.OpTypeLogicalOr)
}

func (b Builder) Max(lhs, rhs backends.Op) (backends.Op, error) {
	return nil, b.baseErrFn(backends.OpTypeMax)
}

func (b Builder) Min(lhs, rhs backends.Op) (backends.Op, error) {
	return nil, b.baseErrFn(backends.OpTypeMin)
}

func (b Builder) Mul(lhs, rhs backends.Op) (backends.Op, error) {
	return nil, b.baseErrFn(backends.OpTypeMul)
}

func (b Builder) Neg(x backends.Op) (backends.Op, error) {
	return nil, b.baseErrFn(backends.OpTypeNeg)
}

func (b Builder) NotEqual(lhs, rhs backends.Op) (backends.Op, error) {
	return nil, b.baseErrFn(backends.OpTypeNotEqual)
}

func (b Builder) Real(x backends.Op) (backends.Op, error) {
	return nil, b.baseErrFn(backends.OpTypeReal)
}

func (b Builder) Reduce(x backends.Op, reduceType backends.ReduceOpType, init backends.Op, axes ...int) (backends.Op, error) {
	return nil, b.baseErrFn(backends.OpTypeReduce)
}

func (b Builder) Reshape(x backends.Op, dimensions ...int) (backends.Op, error) {
	return nil, b.baseErrFn(backends.OpTypeReshape)
}

func (b Builder) Sort(x backends.Op, axis int) (backends.Op, error) {
	return nil, b.baseErrFn(backends.OpTypeSort)
}

func (b Builder) Sqrt(x backends.Op) (backends.Op, error) {
	return nil, b.baseErrFn(backends.OpTypeSqrt)
}

func (b Builder) Sub(lhs, rhs backends.Op) (backends.Op, error) {
	return nil, b.baseErrFn(backends.OpTypeSub)
}

func (b Builder) TakeAlongAxis(x, indices backends.Op, axis int) (backends.Op, error) {
	return nil, b.baseErrFn(backends.OpTypeTakeAlongAxis)
}

func (b Builder) Transpose(x backends.Op, permutation ...int) (backends.Op, error) {
	return nil, b.baseErrFn(backends.OpTypeTranspose)
}

func (b Builder) Where(condition, onTrue, onFalse backends.Op) (backends.Op, error) {
	return nil, b.baseErrFn(backends.OpTypeWhere)
}

func (b Builder) AllReduce(operands []backends.Op, reductionType backends.ReduceOpType, replicaGroups [][]int) ([]backends.Op, error) {
	return nil, b.baseErrFn(backends.OpTypeAllReduce)
}
