// Package shapeinference calculates the shape resulting from operations and validates its inputs.
//
// It is used by backends to validate the operations and plan the space for their outputs.
//
// It defines a BinaryOp function for shape inference of the majority of binary functions, and a UnaryOp
// for the element-wise unary functions. For the remainder ops, it defines one function per OpType.
package shapeinference

import (
	"slices"

	"github.com/gomlx/npreduce/backends"
	"github.com/gomlx/npreduce/pkg/core/dtypes"
	"github.com/gomlx/npreduce/pkg/core/shapes"
	"github.com/gomlx/npreduce/pkg/support/sets"
	"github.com/pkg/errors"
)

var (
	// BooleanOperations take booleans as input, aka. logical operations.
	BooleanOperations = sets.MakeWith(
		backends.OpTypeLogicalAnd,
		backends.OpTypeLogicalOr,
		backends.OpTypeLogicalNot,
	)

	// NumberOperations can take any type of number as input: integers, floats, or complex numbers.
	NumberOperations = sets.MakeWith(
		backends.OpTypeAdd,
		backends.OpTypeSub,
		backends.OpTypeMul,
		backends.OpTypeDiv,
		backends.OpTypeAbs,
		backends.OpTypeEqual,
		backends.OpTypeNotEqual,
	)

	// OrderedOperations require an ordering of the values: they work on integers and floats, but not on
	// complex numbers or booleans.
	OrderedOperations = sets.MakeWith(
		backends.OpTypeMax,
		backends.OpTypeMin,
		backends.OpTypeGreaterOrEqual,
		backends.OpTypeGreaterThan,
		backends.OpTypeLessOrEqual,
		backends.OpTypeLessThan,
	)

	// SignedNumberOperations don't work on unsigned integers.
	SignedNumberOperations = sets.MakeWith(
		backends.OpTypeNeg,
	)

	// FloatOperations operates only on float (and not on complex numbers).
	FloatOperations = sets.MakeWith(
		backends.OpTypeCeil,
		backends.OpTypeFloor,
	)

	// FloatOrComplexOperations operates only on float or complex numbers and won't work on integer or boolean values.
	FloatOrComplexOperations = sets.MakeWith(
		backends.OpTypeSqrt,
		backends.OpTypeReal,
		backends.OpTypeImag,
		backends.OpTypeConj,
	)

	// RealOutputOperations return the real dtype counterpart when given complex numbers.
	RealOutputOperations = sets.MakeWith(
		backends.OpTypeAbs,
		backends.OpTypeReal,
		backends.OpTypeImag,
	)

	// StandardBinaryOperations include all operations that have two operands usually named lhs (left-hand-side) and
	// rhs (right-hand-side) and return the same dtype.
	StandardBinaryOperations = sets.MakeWith(
		backends.OpTypeAdd,
		backends.OpTypeSub,
		backends.OpTypeMul,
		backends.OpTypeDiv,
		backends.OpTypeLogicalAnd,
		backends.OpTypeLogicalOr,
		backends.OpTypeMax,
		backends.OpTypeMin,
	)

	// ComparisonOperations include all operations that take two inputs and returns booleans with the results of
	// a comparison.
	ComparisonOperations = sets.MakeWith(
		backends.OpTypeEqual,
		backends.OpTypeNotEqual,
		backends.OpTypeGreaterOrEqual,
		backends.OpTypeGreaterThan,
		backends.OpTypeLessOrEqual,
		backends.OpTypeLessThan,
	)

	// StandardUnaryOperations include all operations that have a single operand as input, and the return shape is the
	// same as the input (so no reductions).
	StandardUnaryOperations = sets.MakeWith(
		backends.OpTypeLogicalNot,
		backends.OpTypeCeil,
		backends.OpTypeFloor,
		backends.OpTypeSqrt,
		backends.OpTypeImag,
		backends.OpTypeReal,
		backends.OpTypeConj,
		backends.OpTypeAbs,
		backends.OpTypeNeg,
	)
)

// checkDTypeForOp validates the dtype against the categories the opType belongs to.
func checkDTypeForOp(opType backends.OpType, dtype dtypes.DType, shape shapes.Shape) error {
	isNumber := dtype.IsInt() || dtype.IsFloat() || dtype.IsComplex()
	switch {
	case BooleanOperations.Has(opType) && dtype != dtypes.Bool:
		return errors.Errorf("logical op %s must have boolean (dtype.Bool) data types as input, got %s", opType, shape)
	case NumberOperations.Has(opType) && !isNumber:
		return errors.Errorf("numeric op %s must have a number (Int32, Float32, Complex64, ...) data type as input, got %s", opType, shape)
	case OrderedOperations.Has(opType) && !(dtype.IsInt() || dtype.IsFloat()):
		return errors.Errorf("op %s requires ordered values (integers or floats), got %s", opType, shape)
	case SignedNumberOperations.Has(opType) && (dtype.IsUnsigned() || !isNumber):
		return errors.Errorf("signed op %s must have a signed data type as input, got %s", opType, shape)
	case FloatOperations.Has(opType) && !dtype.IsFloat():
		return errors.Errorf("float op %s must have a float (Float32, Float64, ...) data type as input, got %s", opType, shape)
	case FloatOrComplexOperations.Has(opType) && !dtype.IsInexact():
		return errors.Errorf("float/complex op %s must have a float or complex (Float32, Complex64, ...) data type as input, got %s", opType, shape)
	}
	return nil
}

// BinaryOp returns the expected output shape for ops in the StandardBinaryOperations set.
//
// Operands must have the same dtype, and either the same dimensions or one of them must be a scalar.
func BinaryOp(opType backends.OpType, lhsShape, rhsShape shapes.Shape) (output shapes.Shape, err error) {
	if !StandardBinaryOperations.Has(opType) {
		err = errors.Errorf("operation %s is not in the StandardBinaryOperations set, cannot process it with BinaryOp", opType)
		return
	}
	if err = checkBinaryOperands(opType, lhsShape, rhsShape); err != nil {
		return
	}
	if err = checkDTypeForOp(opType, lhsShape.DType, lhsShape); err != nil {
		return
	}
	return binaryOpImpl(opType, lhsShape, rhsShape)
}

func checkBinaryOperands(opType backends.OpType, lhsShape, rhsShape shapes.Shape) error {
	if !lhsShape.Ok() || !rhsShape.Ok() {
		return errors.Errorf("invalid shape for %s or %s for %s", lhsShape, rhsShape, opType)
	}
	if lhsShape.DType != rhsShape.DType {
		return errors.Errorf("data types (DType) for %s must match, got %s and %s", opType, lhsShape, rhsShape)
	}
	return nil
}

func binaryOpImpl(opType backends.OpType, lhsShape, rhsShape shapes.Shape) (output shapes.Shape, err error) {
	// Trivial cases: if one of the sides is a scalar, return the other side shape.
	if lhsShape.IsScalar() {
		return rhsShape.Clone(), nil
	}
	if rhsShape.IsScalar() {
		return lhsShape.Clone(), nil
	}
	if !lhsShape.EqualDimensions(rhsShape) {
		err = errors.Errorf("operands of %s must have the same dimensions (or one be a scalar), got shapes %s and %s",
			opType, lhsShape, rhsShape)
		return
	}
	return lhsShape.Clone(), nil
}

// ComparisonOp returns the broadcast shape with dtype set to Bool, for comparison operations (Equal, LessThan,
// GreaterOrEqual, etc.)
func ComparisonOp(opType backends.OpType, lhsShape, rhsShape shapes.Shape) (output shapes.Shape, err error) {
	if !ComparisonOperations.Has(opType) {
		err = errors.Errorf("operation %s is not in the ComparisonOperations set, cannot process it with ComparisonOp", opType)
		return
	}
	if err = checkBinaryOperands(opType, lhsShape, rhsShape); err != nil {
		return
	}
	if opType != backends.OpTypeEqual && opType != backends.OpTypeNotEqual {
		if err = checkDTypeForOp(opType, lhsShape.DType, lhsShape); err != nil {
			return
		}
	}
	output, err = binaryOpImpl(opType, lhsShape, rhsShape)
	if err != nil {
		return
	}
	output.DType = dtypes.Bool
	return
}

// UnaryOp checks the validity of the data type for StandardUnaryOperations and returns either an error or
// the output shape, which is the same as the operand, except for Abs, Real and Imag of complex numbers,
// which return the real counterpart dtype.
func UnaryOp(opType backends.OpType, operand shapes.Shape) (output shapes.Shape, err error) {
	if !StandardUnaryOperations.Has(opType) {
		err = errors.Errorf("operation %s is not in the StandardUnaryOperations set, cannot process it with UnaryOp", opType)
		return
	}
	if !operand.Ok() {
		err = errors.Errorf("invalid shape %s for UnaryOp %s", operand, opType)
		return
	}
	if err = checkDTypeForOp(opType, operand.DType, operand); err != nil {
		return
	}
	output = operand.Clone()
	if RealOutputOperations.Has(opType) && operand.DType.IsComplex() {
		output.DType = operand.DType.RealDType()
	}
	return
}

// IsNaNOp returns the output shape of IsNaN: same dimensions, with Bool dtype.
func IsNaNOp(operand shapes.Shape) (output shapes.Shape, err error) {
	if !operand.Ok() {
		return shapes.Invalid(), errors.Errorf("invalid shape %s for IsNaN", operand)
	}
	return operand.WithDType(dtypes.Bool), nil
}

// WhereOp returns the shape resulting from the Where operation.
//
// Shape constraints for the operation:
//
//  1. The onTrue and onFalse must have the exact same shape, or one can be a scalar.
//  2. The condition must either be a scalar or match the shape of onTrue or onFalse, except for the DType that
//     must be Bool.
func WhereOp(condition, onTrue, onFalse shapes.Shape) (output shapes.Shape, err error) {
	if condition.DType != dtypes.Bool {
		err = errors.Errorf("condition for Where() must be a boolean, got %s instead", condition)
		return
	}
	if onTrue.DType != onFalse.DType {
		err = errors.Errorf("onTrue (%s) and onFalse (%s) values for Where() must have the same dtype", onTrue, onFalse)
		return
	}
	if !onTrue.IsScalar() && !onFalse.IsScalar() && !onTrue.Equal(onFalse) {
		err = errors.Errorf("onTrue (%s) and onFalse (%s) values for Where() must either be scalar or match each other's shape",
			onTrue, onFalse)
		return
	}

	output = onTrue.Clone()
	if output.IsScalar() {
		output = onFalse.Clone()
		if output.IsScalar() && !condition.IsScalar() {
			output = condition.WithDType(onTrue.DType)
		}
	}
	if !condition.IsScalar() && !slices.Equal(condition.Dimensions, output.Dimensions) {
		err = errors.Errorf("condition for Where() must either be a scalar or match the output shape (not the DType), instead got shapes condition=%s, onTrue=%s and onFalse=%s",
			condition, onTrue, onFalse)
		return
	}
	return
}

// ClampOp returns the output shape of Clamp: lower and upper must be scalars or match x's shape.
func ClampOp(lower, x, upper shapes.Shape) (output shapes.Shape, err error) {
	for _, bound := range []shapes.Shape{lower, upper} {
		if bound.DType != x.DType {
			return shapes.Invalid(), errors.Errorf("Clamp() bounds must have the same dtype as x (%s), got %s", x, bound)
		}
		if !bound.IsScalar() && !bound.Equal(x) {
			return shapes.Invalid(), errors.Errorf("Clamp() bounds must be scalars or have the same shape as x (%s), got %s", x, bound)
		}
	}
	if err = checkDTypeForOp(backends.OpTypeMax, x.DType, x); err != nil {
		return
	}
	return x.Clone(), nil
}

// ConvertDTypeOp returns the shape of x converted to dtype.
func ConvertDTypeOp(operand shapes.Shape, dtype dtypes.DType) (output shapes.Shape, err error) {
	if !operand.Ok() || !dtype.IsSupported() {
		return shapes.Invalid(), errors.Errorf("invalid ConvertDType(%s, %s)", operand, dtype)
	}
	return operand.WithDType(dtype), nil
}

// ReshapeOp to the given dimensions: trivial output shape, but this function also checks
// that the sizes are the same.
func ReshapeOp(operand shapes.Shape, dims []int) (output shapes.Shape, err error) {
	for _, dim := range dims {
		if dim < 0 {
			return shapes.Invalid(), errors.Errorf("Reshape() cannot reshape %s to negative dimensions %v", operand, dims)
		}
	}
	output = shapes.Make(operand.DType, dims...)
	if operand.Size() != output.Size() {
		err = errors.Errorf("Reshape() cannot reshape %s to dimensions %v, their size don't match",
			operand, dims)
		return shapes.Invalid(), err
	}
	return
}

// TransposeOp all axes of the operand.
// There must be one value in permutations for each axis in the operand.
// The output will have: output.Shape.Dimension[ii] = operand.Shape.Dimension[permutations[i]].
func TransposeOp(operand shapes.Shape, permutations []int) (output shapes.Shape, err error) {
	rank := operand.Rank()
	if len(permutations) != rank {
		err = errors.Errorf("Transpose() requires all axes permutations to be defined, operand has shape %s, but %d permutations were given",
			operand, len(permutations))
		return
	}
	if rank == 0 {
		return operand, nil
	}

	// Check permutation axes are within range and unique.
	axesSet := slices.Clone(permutations)
	slices.Sort(axesSet)
	for ii, srcAxis := range axesSet {
		if srcAxis < 0 || srcAxis >= rank {
			err = errors.Errorf("invalid permutation axis %d given to Transpose(%s), it must be within the range of its rank",
				srcAxis, operand)
			return
		}
		if ii > 0 && srcAxis == axesSet[ii-1] {
			err = errors.Errorf("invalid permutations given to Transpose(%s, %v), there cannot be any repeated axis, each must appear exactly once",
				operand, permutations)
			return
		}
	}

	output = operand.Clone()
	for axis := range output.Dimensions {
		output.Dimensions[axis] = operand.Dimensions[permutations[axis]]
	}
	return
}

// BroadcastInDimOp verifies that the arguments are valid. The output shape is already known, so nothing is returned.
func BroadcastInDimOp(operand, outputShape shapes.Shape, broadcastAxes []int) error {
	if operand.DType != outputShape.DType {
		return errors.Errorf("BroadcastInDim() can't change the dtype of operand %s to %s", operand, outputShape)
	}
	if len(broadcastAxes) != operand.Rank() {
		return errors.Errorf("there must be exactly one broadcastAxes (%v) per axis in the operand (%s)",
			broadcastAxes, operand)
	}
	for axisInOperand, axisInOutput := range broadcastAxes {
		if axisInOutput < 0 || axisInOutput >= outputShape.Rank() {
			return errors.Errorf("broadcastAxes (%v) defines a value out-of-range (%d-th value -> %d), they must be between 0 and outputShape.Rank()-1=%d",
				broadcastAxes, axisInOperand, axisInOutput, outputShape.Rank()-1)
		}
		if axisInOperand > 0 && axisInOutput <= broadcastAxes[axisInOperand-1] {
			return errors.Errorf("broadcastAxes (%v) must be strictly increasing", broadcastAxes)
		}
		if operand.Dimensions[axisInOperand] != 1 && operand.Dimensions[axisInOperand] != outputShape.Dimensions[axisInOutput] {
			return errors.Errorf("the dimensions of outputShape (%s) that are being broadcast (listed in broadcastAxes=%v) "+
				"must match the corresponding operand (%s) dimension or the operand dimension must be 1",
				outputShape, broadcastAxes, operand)
		}
	}
	return nil
}

// ReduceOp returns the shape of x reduced over the given axes. Axes must be unique and within range.
func ReduceOp(operand shapes.Shape, axes []int) (output shapes.Shape, err error) {
	if len(axes) == 0 {
		return operand.Clone(), nil
	}
	axesSet := sets.Make[int](len(axes))
	for _, axis := range axes {
		if axis < 0 || axis >= operand.Rank() {
			return shapes.Invalid(), errors.Errorf("Reduce operation require each axis to be 0 <= axis < rank, but got invalid axis %d for shape %s", axis, operand)
		}
		if !axesSet.Add(axis) {
			return shapes.Invalid(), errors.Errorf("Reduce operation got duplicate axis %d in %v", axis, axes)
		}
	}
	output = shapes.Make(operand.DType)
	for axis, dim := range operand.Dimensions {
		if !axesSet.Has(axis) {
			output.Dimensions = append(output.Dimensions, dim)
		}
	}
	return
}

// ReduceOpTypeForDType validates that the reduction type can be used with the dtype.
func ReduceOpTypeForDType(reduceType backends.ReduceOpType, dtype dtypes.DType) error {
	switch reduceType {
	case backends.ReduceOpSum, backends.ReduceOpProduct:
		if dtype == dtypes.Bool {
			return errors.Errorf("reduction %s not supported for booleans, use LogicalOr/LogicalAnd", reduceType)
		}
	case backends.ReduceOpMax, backends.ReduceOpMin:
		if dtype.IsComplex() || dtype == dtypes.Bool {
			return errors.Errorf("reduction %s not supported for dtype %s", reduceType, dtype)
		}
	case backends.ReduceOpLogicalAnd, backends.ReduceOpLogicalOr:
		if dtype != dtypes.Bool {
			return errors.Errorf("reduction %s requires booleans, got %s", reduceType, dtype)
		}
	default:
		return errors.Errorf("invalid reduction type %s", reduceType)
	}
	return nil
}

// CumulativeOp validates a cumulative reduction of operand along axis. The output shape is the same as the operand.
func CumulativeOp(operand shapes.Shape, reduceType backends.ReduceOpType, axis int) (output shapes.Shape, err error) {
	if err = ReduceOpTypeForDType(reduceType, operand.DType); err != nil {
		return
	}
	if axis < 0 || axis >= operand.Rank() {
		return shapes.Invalid(), errors.Errorf("Cumulative() axis %d out of range for shape %s", axis, operand)
	}
	return operand.Clone(), nil
}

// SortOp validates sorting operand along axis. The output shape is the same as the operand.
func SortOp(operand shapes.Shape, axis int) (output shapes.Shape, err error) {
	if operand.DType.IsComplex() {
		return shapes.Invalid(), errors.Errorf("Sort() doesn't support complex values, got %s", operand)
	}
	if axis < 0 || axis >= operand.Rank() {
		return shapes.Invalid(), errors.Errorf("Sort() axis %d out of range for shape %s", axis, operand)
	}
	return operand.Clone(), nil
}

// TakeAlongAxisOp returns the output shape of gathering operand values along axis using indices.
func TakeAlongAxisOp(operand, indices shapes.Shape, axis int) (output shapes.Shape, err error) {
	if !indices.DType.IsInt() {
		return shapes.Invalid(), errors.Errorf("TakeAlongAxis() indices must be integers, got %s", indices)
	}
	if operand.Rank() != indices.Rank() {
		return shapes.Invalid(), errors.Errorf("TakeAlongAxis() operand (%s) and indices (%s) must have the same rank", operand, indices)
	}
	if axis < 0 || axis >= operand.Rank() {
		return shapes.Invalid(), errors.Errorf("TakeAlongAxis() axis %d out of range for shape %s", axis, operand)
	}
	if operand.Dimensions[axis] == 0 && indices.Dimensions[axis] > 0 {
		return shapes.Invalid(), errors.Errorf("TakeAlongAxis() can't gather from empty axis %d of %s", axis, operand)
	}
	for ii, dim := range indices.Dimensions {
		if ii != axis && dim != operand.Dimensions[ii] {
			return shapes.Invalid(), errors.Errorf("TakeAlongAxis() indices (%s) must match operand (%s) dimensions on every axis but %d",
				indices, operand, axis)
		}
	}
	return indices.WithDType(operand.DType), nil
}

// IotaOp validates the Iota operation.
func IotaOp(shape shapes.Shape, iotaAxis int) error {
	if shape.IsScalar() {
		return errors.Errorf("Iota() requires a non-scalar shape, got %s", shape)
	}
	if iotaAxis < 0 || iotaAxis >= shape.Rank() {
		return errors.Errorf("Iota() axis %d out of range for shape %s", iotaAxis, shape)
	}
	if !(shape.DType.IsInt() || shape.DType.IsFloat() || shape.DType.IsComplex()) {
		return errors.Errorf("Iota() requires a numeric dtype, got %s", shape)
	}
	return nil
}

// ConcatenateOp calculates the output shape of a Concatenate operation.
// It takes a slice of input shapes and the dimension along which to concatenate.
func ConcatenateOp(inputs []shapes.Shape, axis int) (output shapes.Shape, err error) {
	if len(inputs) == 0 {
		return shapes.Invalid(), errors.Errorf("ConcatenateOp requires at least one input shape")
	}
	firstShape := inputs[0]
	dtype := firstShape.DType
	rank := firstShape.Rank()
	if !firstShape.Ok() {
		return shapes.Invalid(), errors.Errorf("invalid shape %s for first input of ConcatenateOp", firstShape)
	}
	if axis < 0 || axis >= rank {
		return shapes.Invalid(), errors.Errorf("invalid concatenation axis %d for shapes with rank %d", axis, rank)
	}
	output = firstShape.Clone()
	for i := 1; i < len(inputs); i++ {
		currentShape := inputs[i]
		if currentShape.DType != dtype {
			return shapes.Invalid(), errors.Errorf("mismatched DTypes for ConcatenateOp: input #0 has %s, input #%d has %s",
				dtype, i, currentShape.DType)
		}
		if currentShape.Rank() != rank {
			return shapes.Invalid(), errors.Errorf("mismatched ranks for ConcatenateOp: input #0 has rank %d, input #%d has rank %d",
				rank, i, currentShape.Rank())
		}
		for d := range rank {
			if d == axis {
				output.Dimensions[d] += currentShape.Dimensions[d]
			} else if currentShape.Dimensions[d] != output.Dimensions[d] {
				return shapes.Invalid(), errors.Errorf("mismatched dimensions for ConcatenateOp at axis %d (non-concatenation axis): input #0 has %d, input #%d has %d",
					d, output.Dimensions[d], i, currentShape.Dimensions[d])
			}
		}
	}
	return output, nil
}
