package backends

import (
	"github.com/gomlx/npreduce/pkg/core/dtypes"
	"github.com/gomlx/npreduce/pkg/core/shapes"
)

// StandardOps lists the bulk of the operations that a backends.Builder must support.
//
// Binary operations (Add, Mul, comparisons, etc.) require operands of the same dtype, and either the same
// dimensions or one of them a scalar. Broadcasting other shapes is done by the caller with BroadcastInDim.
type StandardOps interface {
	// Abs returns the element-wise absolute value. For complex numbers it returns the magnitude, with the
	// corresponding real dtype.
	Abs(x Op) (Op, error)

	// Add returns the element-wise sum of the two values.
	Add(lhs, rhs Op) (Op, error)

	// BroadcastInDim broadcasts x to an output with the given shape.
	// broadcastAxes has an output axes value for each x axis (len(broadcastAxes) == x.Shape.Rank()).
	// The i-th axis of x is mapped to the broadcastAxes[i]-th dimension of the output.
	// broadcastAxes must also be increasing: this operation cannot be used to transpose axes, it will only
	// broadcast and introduce new axes in-between.
	//
	// The axes of x must either have dimension 1 (broadcast) or the same dimension of the output axis
	// it is mapped to.
	BroadcastInDim(x Op, outputShape shapes.Shape, broadcastAxes []int) (Op, error)

	// Ceil returns the element-wise smallest integer greater than or equal to x.
	Ceil(x Op) (Op, error)

	// Clamp returns the element-wise clamping operation: min(max(x, lower), upper).
	// lower and upper can be scalars or have the same shape as x.
	Clamp(lower, x, upper Op) (Op, error)

	// Concatenate operands on the given axis.
	//
	// All axes that are not being concatenated must match dimensions.
	// It doesn't work with scalars -- use ExpandDims.
	Concatenate(axis int, operands ...Op) (Op, error)

	// Conj returns the conjugate of a complex number. E.g: Conj(1+3i) = 1-3i
	Conj(x Op) (Op, error)

	// ConvertDType of x to dtype.
	//
	// Float to integer conversion truncates towards zero and saturates at the integer range, with NaN converted
	// to 0. Complex to real conversion keeps the real part. Any value to Bool is "x != 0".
	ConvertDType(x Op, dtype dtypes.DType) (Op, error)

	// Cumulative returns the inclusive prefix reduction (e.g. cumulative sum) of x along the given axis.
	// If reverse is true the prefix runs from the end of the axis.
	Cumulative(x Op, reduceType ReduceOpType, axis int, reverse bool) (Op, error)

	// Div returns the element-wise division of the two values. Integer division truncates towards zero,
	// and integer division by zero returns 0.
	Div(lhs, rhs Op) (Op, error)

	// Equal performs element-wise equality check, returns boolean results with the same dimensions as input.
	Equal(lhs, rhs Op) (Op, error)

	// Floor returns the element-wise largest integer less than or equal to x.
	Floor(x Op) (Op, error)

	// GreaterOrEqual performs element-wise comparison, returns boolean results with the same dimensions as input.
	GreaterOrEqual(lhs, rhs Op) (Op, error)

	// GreaterThan performs element-wise comparison, returns boolean results with the same dimensions as input.
	GreaterThan(lhs, rhs Op) (Op, error)

	// Imag returns the imaginary part of a complex number. It returns 0 if x is a float number.
	Imag(x Op) (Op, error)

	// Iota creates a constant of the given shape with increasing numbers (starting from 0)
	// on the given axis. So Iota([2,2], 1) returns [[0 1][0 1]], while Iota([2,2], 0)
	// returns [[0 0][1 1]].
	Iota(shape shapes.Shape, iotaAxis int) (Op, error)

	// IsNaN tests whether each element of x is NaN. Integer and boolean values are never NaN.
	// Complex values are NaN if either component is NaN.
	IsNaN(x Op) (Op, error)

	// LessOrEqual performs element-wise comparison, returns boolean results with the same dimensions as input.
	LessOrEqual(lhs, rhs Op) (Op, error)

	// LessThan performs element-wise comparison, returns boolean results with the same dimensions as input.
	LessThan(lhs, rhs Op) (Op, error)

	// LogicalAnd returns the element-wise logical AND operation.
	LogicalAnd(lhs, rhs Op) (Op, error)

	// LogicalNot returns the Op that represents the output of the corresponding operation.
	LogicalNot(x Op) (Op, error)

	// LogicalOr returns the element-wise logical OR operation.
	LogicalOr(lhs, rhs Op) (Op, error)

	// Max returns the element-wise highest value among the two. NaN values propagate.
	Max(lhs, rhs Op) (Op, error)

	// Min returns the element-wise smallest value among the two. NaN values propagate.
	Min(lhs, rhs Op) (Op, error)

	// Mul returns the element-wise multiplication of the two values.
	Mul(lhs, rhs Op) (Op, error)

	// Neg returns the element-wise negation of x.
	Neg(x Op) (Op, error)

	// NotEqual performs element-wise inequality check, returns boolean results with the same dimensions as input.
	NotEqual(lhs, rhs Op) (Op, error)

	// Real returns the real part of a complex number. It returns x if x is a float number.
	Real(x Op) (Op, error)

	// Reduce x over the axes selected, with the operation given by reduceType.
	//
	// init is a scalar of the same dtype as x with the initial value of the reduction. Backends may require
	// init to be the exact algebraic identity of reduceType for the dtype (0 for sum, 1 for product, the
	// lowest value for max, etc.), and return an error otherwise.
	//
	// Max/Min reductions propagate NaNs. If no axes are given, x is returned unchanged.
	Reduce(x Op, reduceType ReduceOpType, init Op, axes ...int) (Op, error)

	// Reshape reshapes x to the new dimensions.
	// Total size cannot change, it's just a "reinterpretation" of the same flat data.
	Reshape(x Op, dimensions ...int) (Op, error)

	// Sort x in ascending order along the given axis. NaN values are placed at the end, and the sort is
	// stable. Complex values are not supported.
	Sort(x Op, axis int) (Op, error)

	// Sqrt returns the Op that represents the output of the corresponding operation.
	Sqrt(x Op) (Op, error)

	// Sub returns the element-wise subtraction of the two values.
	Sub(lhs, rhs Op) (Op, error)

	// TakeAlongAxis gathers values of x along the given axis, using the integer indices given.
	// indices must have the same rank as x, and the same dimensions on every axis except the gathered axis.
	// The output has the dimensions of indices and the dtype of x:
	//
	//	output[i_0, ..., i_axis, ..., i_n] = x[i_0, ..., indices[i_0, ..., i_axis, ..., i_n], ..., i_n]
	//
	// Out-of-range indices are clamped to the valid range.
	TakeAlongAxis(x, indices Op, axis int) (Op, error)

	// Transpose axes of x.
	// There should be one value in permutations for each axis in x.
	// The output will have: output.Shape.Dimension[ii] = x.Shape.Dimension[permutations[i]].
	Transpose(x Op, permutation ...int) (Op, error)

	// Where takes element-wise values from onTrue or onFalse depending on the value of condition (expected
	// to be boolean). condition, onTrue and onFalse can be scalars.
	Where(condition, onTrue, onFalse Op) (Op, error)
}
