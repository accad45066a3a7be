package graph

import (
	"fmt"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/npreduce/backends"
	"github.com/gomlx/npreduce/pkg/core/dtypes"
	"github.com/gomlx/npreduce/pkg/core/shapes"
	"github.com/gomlx/npreduce/pkg/core/tensors"
	"github.com/pkg/errors"
)

// mustNoError converts an error to a panic.
func mustNoError[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// newNode registers a node for the backend op in the graph, with the shape reported by the backend.
func newNode(g *Graph, opType backends.OpType, op backends.Op, params string, inputs ...*Node) *Node {
	shape, err := g.builder.OpShape(op)
	if err != nil {
		panic(errors.WithMessagef(err, "failed to get shape of %s", opType))
	}
	node := &Node{
		graph:           g,
		shape:           shape,
		op:              op,
		opType:          opType,
		inputNodes:      inputs,
		params:          params,
		parameterHandle: InvalidParameterHandle,
	}
	g.registerNode(node)
	return node
}

// validateBuildingGraphFromInputs checks that all inputNodes are of the same Graph and that
// the Graph is valid for building.
// It panics with a corresponding error message in case of issues.
// Otherwise, it returns the Graph common to all inputNodes.
func validateBuildingGraphFromInputs(inputs ...*Node) (g *Graph) {
	if len(inputs) == 0 {
		exceptions.Panicf("no input nodes provided, at least one is required")
	}
	for ii, n := range inputs {
		if err := exceptions.TryCatch[error](n.AssertValid); err != nil {
			panic(errors.WithMessagef(err, "invalid input[%d]", ii))
		}
		if g == nil {
			g = n.Graph()
			g.AssertBuilding()
		} else if n.Graph() != g {
			exceptions.Panicf("combining nodes from different graphs not allowed: "+
				"input[0] graph is %q, input[%d] graph is %q", g.Name(), ii, n.Graph().Name())
		}
	}
	return
}

// Parameter registers an input parameter for a computation Graph (e.g: a feature used as input).
//
// When created they get a handle (a plain index), which is the order in which the values must be
// given to Graph.Run.
func Parameter(g *Graph, name string, shape shapes.Shape) (node *Node) {
	g.AssertBuilding()
	handle := ParameterHandle(len(g.parameters))
	if name == "" {
		name = fmt.Sprintf("parameter_#%d", handle)
	}
	if _, ok := g.parameterNameToHandle[name]; ok {
		exceptions.Panicf("requested parameter with name %q for graph %q already exists", name, g.name)
	}
	op, err := g.builder.Parameter(name, shape)
	if err != nil {
		panic(errors.WithMessagef(err, "failed to create parameter %q", name))
	}
	node = newNode(g, backends.OpTypeParameter, op, "")
	node.parameterHandle = handle
	node.parameterName = name
	g.parameters = append(g.parameters, node)
	g.parameterNameToHandle[name] = handle
	return
}

// ConstTensor returns a newly created constant node for the tensor t.
//
// The value of t is copied into the graph.
func ConstTensor(g *Graph, t *tensors.Tensor) (node *Node) {
	g.AssertBuilding()
	op, err := g.builder.Constant(t.Flat(), t.Shape().Dimensions...)
	if err != nil {
		panic(errors.WithMessagef(err, "ConstTensor failed to create a constant in the backend"))
	}
	node = newNode(g, backends.OpTypeConstant, op, "")
	if t.Size() < MinConstValueSizeToKeep {
		node.constValue = t.Clone()
	}
	return
}

// Const creates constant nodes in the Graph. It can take a tensor as well as
// multidimensional slices (or scalars).
//
// It uses tensors.FromAnyValue to figure out the shape given a Go scalar/slice.
// If the value is unsupported, it panics.
func Const(g *Graph, x any) *Node {
	if _, ok := x.(*Node); ok {
		exceptions.Panicf(
			"Const(g, x) can only take actual values, not another computation graph `*Node` -- " +
				"for that you don't need Const(), just use it directly.")
	}
	return ConstTensor(g, tensors.FromAnyValue(x))
}

// ConstAsDType creates a constant of the given DType. It adds the convenience
// of converting x (slice or scalar) to the appropriate type.
// E.g.:
//
//	Pi := ConstAsDType(g, myDType, math.Pi)
//	PiAndE := ConstAsDType(g, myDType, []float64{math.Pi, math.E})
func ConstAsDType(g *Graph, dtype dtypes.DType, x any) *Node {
	if dtype == dtypes.InvalidDType {
		exceptions.Panicf("invalid DType given for ConstAsDType")
	}
	t := tensors.FromAnyValue(x)
	if t.IsScalar() {
		return Scalar(g, dtype, t.Value())
	}
	if t.DType() != dtype {
		t = t.AsDType(dtype)
	}
	return ConstTensor(g, t)
}

// Scalar returns a constant scalar with the given value converted to dtype.
// Scalars are cached per graph, so repeated values return the same node.
func Scalar(g *Graph, dtype dtypes.DType, value any) (output *Node) {
	g.AssertBuilding()
	t := tensors.FromAnyValue(value)
	if !t.IsScalar() {
		exceptions.Panicf("Scalar(g, %s, value) requires a scalar value, got %s", dtype, t.Shape())
	}
	if t.DType() != dtype {
		t = t.AsDType(dtype)
	}
	key := t.Value()
	dtypeMap, found := g.scalars[dtype]
	if !found {
		dtypeMap = make(map[any]*Node)
		g.scalars[dtype] = dtypeMap
	}
	if output, found = dtypeMap[key]; found {
		return
	}
	output = ConstTensor(g, t)
	dtypeMap[key] = output
	return
}

// ScalarZero returns a scalar constant 0 for the given DType.
func ScalarZero(g *Graph, dtype dtypes.DType) *Node {
	if dtype == dtypes.Bool {
		return Scalar(g, dtype, false)
	}
	return Scalar(g, dtype, 0)
}

// ScalarOne returns a scalar constant 1 for the given DType.
func ScalarOne(g *Graph, dtype dtypes.DType) *Node {
	if dtype == dtypes.Bool {
		return Scalar(g, dtype, true)
	}
	return Scalar(g, dtype, 1)
}

// ZerosLike returns a Node with zeros with the same shape as x.
func ZerosLike(x *Node) *Node {
	return BroadcastToShape(ScalarZero(x.Graph(), x.DType()), x.Shape())
}

// Infinity returns the positive/negative (depending on the value of sign, which must be 1 or -1) infinity for
// the given dtype.
// For integer dtypes, it returns the highest/lowest values.
func Infinity(g *Graph, dtype dtypes.DType, sign int) *Node {
	switch sign {
	case 1:
		return Scalar(g, dtype, dtype.HighestValue())
	case -1:
		return Scalar(g, dtype, dtype.LowestValue())
	}
	exceptions.Panicf("Infinity(g, %s, sign=%d): sign must be 1 or -1", dtype, sign)
	return nil
}

// Iota creates a constant of the given shape with increasing numbers (starting from 0)
// on the given axis. So Iota([2,2], 1) returns [[0 1][0 1]], while Iota([2,2], 0)
// returns [[0 0][1 1]].
func Iota(g *Graph, shape shapes.Shape, iotaAxis int) *Node {
	g.AssertBuilding()
	axis := adjustAxisToRank(iotaAxis, shape.Rank(), "Iota")
	op := mustNoError(g.builder.Iota(shape, axis))
	return newNode(g, backends.OpTypeIota, op, fmt.Sprintf("axis=%d", axis))
}

// IotaFull creates a constant of the given shape with increasing numbers for all values.
// So `IotaFull([2,2])` returns `[[0 1][2 3]]`.
func IotaFull(g *Graph, shape shapes.Shape) *Node {
	if !shape.Ok() {
		panic(errors.New("invalid shape"))
	}
	return Reshape(Iota(g, shapes.Make(shape.DType, shape.Size()), 0), shape.Dimensions...)
}

// adjustAxisToRank returns the axis adjusted to the rank: negative values are counted from the end.
// It panics if the axis is out of range.
func adjustAxisToRank(axis, rank int, paramName string) int {
	adjusted, err := shapes.AdjustAxisToRank(axis, rank)
	if err != nil {
		panic(errors.WithMessagef(err, "invalid axis for %s", paramName))
	}
	return adjusted
}

// unaryOp creates the node for a backend unary operation.
func unaryOp(opType backends.OpType, fn func(x backends.Op) (backends.Op, error), x *Node) *Node {
	g := validateBuildingGraphFromInputs(x)
	op, err := fn(x.op)
	if err != nil {
		panic(errors.WithMessagef(err, "%s(%s) failed", opType, x.Shape()))
	}
	return newNode(g, opType, op, "", x)
}

// Abs returns the absolute value of x. For complex numbers it returns the magnitude, with the real dtype.
func Abs(x *Node) *Node { return unaryOp(backends.OpTypeAbs, x.Graph().build().Abs, x) }

// Neg returns -x.
func Neg(x *Node) *Node { return unaryOp(backends.OpTypeNeg, x.Graph().build().Neg, x) }

// Sqrt returns the square root of x.
func Sqrt(x *Node) *Node { return unaryOp(backends.OpTypeSqrt, x.Graph().build().Sqrt, x) }

// Floor rounds x towards -Inf.
func Floor(x *Node) *Node { return unaryOp(backends.OpTypeFloor, x.Graph().build().Floor, x) }

// Ceil rounds x towards +Inf.
func Ceil(x *Node) *Node { return unaryOp(backends.OpTypeCeil, x.Graph().build().Ceil, x) }

// Real returns the real part of a complex number. For real numbers it returns x.
func Real(x *Node) *Node {
	if !x.DType().IsComplex() {
		return x
	}
	return unaryOp(backends.OpTypeReal, x.Graph().build().Real, x)
}

// Imag returns the imaginary part of a complex number. For real numbers it returns zeros.
func Imag(x *Node) *Node {
	if !x.DType().IsComplex() {
		return ZerosLike(x)
	}
	return unaryOp(backends.OpTypeImag, x.Graph().build().Imag, x)
}

// Conj returns the complex conjugate of x. For real numbers it returns x.
func Conj(x *Node) *Node {
	if !x.DType().IsComplex() {
		return x
	}
	return unaryOp(backends.OpTypeConj, x.Graph().build().Conj, x)
}

// IsNaN returns a boolean node indicating which values of x are NaN.
// For non-float values it is always false.
func IsNaN(x *Node) *Node {
	if !x.DType().IsInexact() {
		return BroadcastToShape(Scalar(x.Graph(), dtypes.Bool, false), x.Shape().WithDType(dtypes.Bool))
	}
	return unaryOp(backends.OpTypeIsNaN, x.Graph().build().IsNaN, x)
}

// LogicalNot returns the boolean negation of x.
func LogicalNot(x *Node) *Node {
	return unaryOp(backends.OpTypeLogicalNot, x.Graph().build().LogicalNot, x)
}

// Square returns x*x.
func Square(x *Node) *Node { return Mul(x, x) }

// BroadcastDimensions returns the dimensions resulting of broadcasting the given shapes together,
// following NumPy rules: shapes are aligned on the trailing axes, and axes of dimension 1 are broadcast.
//
// It returns an error if the shapes are not compatible.
func BroadcastDimensions(shapesToBroadcast ...shapes.Shape) ([]int, error) {
	rank := 0
	for _, shape := range shapesToBroadcast {
		rank = max(rank, shape.Rank())
	}
	dims := slices.Repeat([]int{1}, rank)
	for _, shape := range shapesToBroadcast {
		offset := rank - shape.Rank()
		for axis, dim := range shape.Dimensions {
			outputAxis := axis + offset
			switch {
			case dim == dims[outputAxis] || dim == 1:
			case dims[outputAxis] == 1:
				dims[outputAxis] = dim
			default:
				return nil, errors.Errorf("operands could not be broadcast together with shapes %v",
					shapeDimensionsList(shapesToBroadcast))
			}
		}
	}
	return dims, nil
}

func shapeDimensionsList(shapesList []shapes.Shape) [][]int {
	dims := make([][]int, len(shapesList))
	for ii, shape := range shapesList {
		dims[ii] = shape.Dimensions
	}
	return dims
}

// BroadcastToDims broadcasts x to the given dimensions, following NumPy rules: x axes are aligned
// to the trailing dimensions, and must either match or be 1.
func BroadcastToDims(x *Node, dimensions ...int) *Node {
	g := validateBuildingGraphFromInputs(x)
	if slices.Equal(x.Shape().Dimensions, dimensions) {
		return x
	}
	if x.Rank() > len(dimensions) {
		exceptions.Panicf("BroadcastToDims(%s, %v): cannot broadcast to a lower rank", x.Shape(), dimensions)
	}
	offset := len(dimensions) - x.Rank()
	broadcastAxes := make([]int, x.Rank())
	for axis := range broadcastAxes {
		broadcastAxes[axis] = axis + offset
	}
	outputShape := shapes.Make(x.DType(), dimensions...)
	op, err := g.builder.BroadcastInDim(x.op, outputShape, broadcastAxes)
	if err != nil {
		panic(errors.WithMessagef(err, "BroadcastToDims(%s, %v) failed", x.Shape(), dimensions))
	}
	return newNode(g, backends.OpTypeBroadcastInDim, op, fmt.Sprintf("dims=%v", dimensions), x)
}

// BroadcastToShape broadcasts x to the dimensions of the given shape. The dtype of the shape is ignored.
func BroadcastToShape(x *Node, shape shapes.Shape) *Node {
	return BroadcastToDims(x, shape.Dimensions...)
}

// broadcastOperands broadcasts the non-scalar operands to their common dimensions.
// Scalars are left untouched, since backend binary operations accept them directly.
func broadcastOperands(opName string, operands ...*Node) []*Node {
	allShapes := make([]shapes.Shape, len(operands))
	for ii, operand := range operands {
		allShapes[ii] = operand.Shape()
	}
	dims, err := BroadcastDimensions(allShapes...)
	if err != nil {
		panic(errors.WithMessagef(err, "%s", opName))
	}
	broadcast := make([]*Node, len(operands))
	for ii, operand := range operands {
		if operand.IsScalar() {
			broadcast[ii] = operand
		} else {
			broadcast[ii] = BroadcastToDims(operand, dims...)
		}
	}
	return broadcast
}

// binaryOp creates the node for a backend binary operation, broadcasting the operands as needed.
func binaryOp(opType backends.OpType, fn func(lhs, rhs backends.Op) (backends.Op, error), lhs, rhs *Node) *Node {
	g := validateBuildingGraphFromInputs(lhs, rhs)
	if lhs.DType() != rhs.DType() {
		exceptions.Panicf("%s(lhs, rhs) requires operands of the same dtype, got lhs=%s and rhs=%s",
			opType, lhs.Shape(), rhs.Shape())
	}
	operands := broadcastOperands(opType.String(), lhs, rhs)
	op, err := fn(operands[0].op, operands[1].op)
	if err != nil {
		panic(errors.WithMessagef(err, "%s(%s, %s) failed", opType, lhs.Shape(), rhs.Shape()))
	}
	return newNode(g, opType, op, "", operands...)
}

// Add returns lhs + rhs, with broadcasting.
func Add(lhs, rhs *Node) *Node { return binaryOp(backends.OpTypeAdd, lhs.Graph().build().Add, lhs, rhs) }

// Sub returns lhs - rhs, with broadcasting.
func Sub(lhs, rhs *Node) *Node { return binaryOp(backends.OpTypeSub, lhs.Graph().build().Sub, lhs, rhs) }

// Mul returns lhs * rhs, with broadcasting.
func Mul(lhs, rhs *Node) *Node { return binaryOp(backends.OpTypeMul, lhs.Graph().build().Mul, lhs, rhs) }

// Div returns lhs / rhs, with broadcasting. Integer division truncates towards zero.
func Div(lhs, rhs *Node) *Node { return binaryOp(backends.OpTypeDiv, lhs.Graph().build().Div, lhs, rhs) }

// Max returns the element-wise maximum of lhs and rhs, with broadcasting. NaN values are propagated.
func Max(lhs, rhs *Node) *Node { return binaryOp(backends.OpTypeMax, lhs.Graph().build().Max, lhs, rhs) }

// Min returns the element-wise minimum of lhs and rhs, with broadcasting. NaN values are propagated.
func Min(lhs, rhs *Node) *Node { return binaryOp(backends.OpTypeMin, lhs.Graph().build().Min, lhs, rhs) }

// LogicalAnd returns the boolean lhs && rhs, with broadcasting.
func LogicalAnd(lhs, rhs *Node) *Node {
	return binaryOp(backends.OpTypeLogicalAnd, lhs.Graph().build().LogicalAnd, lhs, rhs)
}

// LogicalOr returns the boolean lhs || rhs, with broadcasting.
func LogicalOr(lhs, rhs *Node) *Node {
	return binaryOp(backends.OpTypeLogicalOr, lhs.Graph().build().LogicalOr, lhs, rhs)
}

// Equal returns the boolean lhs == rhs, with broadcasting.
func Equal(lhs, rhs *Node) *Node {
	return binaryOp(backends.OpTypeEqual, lhs.Graph().build().Equal, lhs, rhs)
}

// NotEqual returns the boolean lhs != rhs, with broadcasting.
func NotEqual(lhs, rhs *Node) *Node {
	return binaryOp(backends.OpTypeNotEqual, lhs.Graph().build().NotEqual, lhs, rhs)
}

// GreaterThan returns the boolean lhs > rhs, with broadcasting.
func GreaterThan(lhs, rhs *Node) *Node {
	return binaryOp(backends.OpTypeGreaterThan, lhs.Graph().build().GreaterThan, lhs, rhs)
}

// GreaterOrEqual returns the boolean lhs >= rhs, with broadcasting.
func GreaterOrEqual(lhs, rhs *Node) *Node {
	return binaryOp(backends.OpTypeGreaterOrEqual, lhs.Graph().build().GreaterOrEqual, lhs, rhs)
}

// LessThan returns the boolean lhs < rhs, with broadcasting.
func LessThan(lhs, rhs *Node) *Node {
	return binaryOp(backends.OpTypeLessThan, lhs.Graph().build().LessThan, lhs, rhs)
}

// LessOrEqual returns the boolean lhs <= rhs, with broadcasting.
func LessOrEqual(lhs, rhs *Node) *Node {
	return binaryOp(backends.OpTypeLessOrEqual, lhs.Graph().build().LessOrEqual, lhs, rhs)
}

// Where takes element-wise values from onTrue or onFalse depending on the value of condition (expected to be boolean).
//
// The three operands are broadcast together, scalars are used as is.
func Where(condition, onTrue, onFalse *Node) *Node {
	g := validateBuildingGraphFromInputs(condition, onTrue, onFalse)
	if condition.DType() != dtypes.Bool {
		exceptions.Panicf("Where(condition=%s, ...) requires a boolean condition", condition.Shape())
	}
	operands := broadcastOperands("Where", condition, onTrue, onFalse)
	op, err := g.builder.Where(operands[0].op, operands[1].op, operands[2].op)
	if err != nil {
		panic(errors.WithMessagef(err, "Where(%s, %s, %s) failed", condition.Shape(), onTrue.Shape(), onFalse.Shape()))
	}
	return newNode(g, backends.OpTypeWhere, op, "", operands...)
}

// Clamp returns the element-wise clamping operation: max(lower, min(x, upper)).
// The bounds must be scalars or broadcastable to x. NaN values of x are kept.
func Clamp(lower, x, upper *Node) *Node {
	g := validateBuildingGraphFromInputs(lower, x, upper)
	if !lower.IsScalar() {
		lower = BroadcastToShape(lower, x.Shape())
	}
	if !upper.IsScalar() {
		upper = BroadcastToShape(upper, x.Shape())
	}
	op, err := g.builder.Clamp(lower.op, x.op, upper.op)
	if err != nil {
		panic(errors.WithMessagef(err, "Clamp(%s, %s, %s) failed", lower.Shape(), x.Shape(), upper.Shape()))
	}
	return newNode(g, backends.OpTypeClamp, op, "", lower, x, upper)
}

// ConvertDType converts x to the given dtype. It is a no-op if x already has the dtype.
//
// Float to integer conversions truncate (and saturate), complex to real conversions keep the real part,
// and conversion to booleans is equivalent to x != 0.
func ConvertDType(x *Node, dtype dtypes.DType) *Node {
	g := validateBuildingGraphFromInputs(x)
	if x.DType() == dtype {
		return x
	}
	op, err := g.builder.ConvertDType(x.op, dtype)
	if err != nil {
		panic(errors.WithMessagef(err, "ConvertDType(%s, %s) failed", x.Shape(), dtype))
	}
	return newNode(g, backends.OpTypeConvertDType, op, fmt.Sprintf("dtype=%s", dtype), x)
}

// Reshape x to the given dimensions. Total size cannot change. One dimension can be left as -1,
// in which case it will be set to match the size, if possible.
func Reshape(x *Node, dimensions ...int) *Node {
	g := validateBuildingGraphFromInputs(x)
	dimensions = slices.Clone(dimensions)
	totalSize := x.Shape().Size()
	newSize := 1
	missingIdx := -1
	for idx, dim := range dimensions {
		if dim != -1 {
			newSize *= dim
		} else {
			if missingIdx != -1 {
				exceptions.Panicf("only one dimension can be missing (that is, set to -1) for Reshape, %v given",
					dimensions)
			}
			missingIdx = idx
		}
	}
	if missingIdx != -1 {
		if newSize == 0 || totalSize%newSize != 0 {
			exceptions.Panicf("cannot infer the missing dimension in Reshape(%s, %v)", x.Shape(), dimensions)
		}
		dimensions[missingIdx] = totalSize / newSize
	}
	op, err := g.builder.Reshape(x.op, dimensions...)
	if err != nil {
		panic(errors.WithMessagef(err, "Reshape(%s, %v) failed", x.Shape(), dimensions))
	}
	return newNode(g, backends.OpTypeReshape, op, fmt.Sprintf("dims=%v", dimensions), x)
}

// Identity returns a new node with the same value as x.
func Identity(x *Node) *Node {
	g := validateBuildingGraphFromInputs(x)
	op := mustNoError(g.builder.Reshape(x.op, x.Shape().Dimensions...))
	return newNode(g, backends.OpTypeReshape, op, "identity", x)
}

// ExpandAxes expands x creating new axes of dimension 1 at the positions given by newAxes -- the positions are
// given in the target shape.
//
// If newAxes[ii] < 0, then they are counted from the end of the new shape -- -1 represents the last axis in
// the new shape. There should be no repeated values in newAxes.
func ExpandAxes(x *Node, newAxes ...int) *Node {
	_ = validateBuildingGraphFromInputs(x)
	if len(newAxes) == 0 {
		return x
	}
	toRank := x.Rank() + len(newAxes)
	adjusted := make([]int, len(newAxes))
	for ii, axis := range newAxes {
		adjusted[ii] = adjustAxisToRank(axis, toRank, "ExpandAxes")
	}
	slices.Sort(adjusted)
	if len(slices.Compact(slices.Clone(adjusted))) != len(adjusted) {
		exceptions.Panicf("ExpandAxes(%s, %v): repeated axes", x.Shape(), newAxes)
	}
	dims := make([]int, 0, toRank)
	srcAxis := 0
	for axis := range toRank {
		if _, found := slices.BinarySearch(adjusted, axis); found {
			dims = append(dims, 1)
		} else {
			dims = append(dims, x.Shape().Dimensions[srcAxis])
			srcAxis++
		}
	}
	return Reshape(x, dims...)
}

// TransposeAllAxes allows one to transpose any or all dimensions.
// It permutes the operand axes with the given permutations, so the output axis ii is the input axis
// permutations[ii].
func TransposeAllAxes(x *Node, permutations ...int) *Node {
	g := validateBuildingGraphFromInputs(x)
	isIdentity := len(permutations) == x.Rank()
	for axis, srcAxis := range permutations {
		isIdentity = isIdentity && axis == srcAxis
	}
	if isIdentity {
		return x
	}
	op, err := g.builder.Transpose(x.op, permutations...)
	if err != nil {
		panic(errors.WithMessagef(err, "TransposeAllAxes(%s, %v) failed", x.Shape(), permutations))
	}
	return newNode(g, backends.OpTypeTranspose, op, fmt.Sprintf("permutations=%v", permutations), x)
}

// Concatenate a list of *Node on the given axis. All operands must have the same dtype and rank, and
// the same dimensions on all other axes.
func Concatenate(operands []*Node, axis int) *Node {
	g := validateBuildingGraphFromInputs(operands...)
	if len(operands) == 1 {
		return operands[0]
	}
	axis = adjustAxisToRank(axis, operands[0].Rank(), "Concatenate")
	ops := make([]backends.Op, len(operands))
	for ii, operand := range operands {
		ops[ii] = operand.op
	}
	op, err := g.builder.Concatenate(axis, ops...)
	if err != nil {
		panic(errors.WithMessagef(err, "Concatenate(axis=%d) failed", axis))
	}
	return newNode(g, backends.OpTypeConcatenate, op, fmt.Sprintf("axis=%d", axis), operands...)
}
