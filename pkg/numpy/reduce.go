// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package numpy

import (
	"math"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/npreduce/backends"
	"github.com/gomlx/npreduce/pkg/core/dtypes"
	"github.com/gomlx/npreduce/pkg/core/graph"
)

// reduction describes one of the basic reductions all others are built upon.
type reduction struct {
	name       string
	reduceType backends.ReduceOpType

	// boolReduceType is used instead of reduceType when the computation is done on booleans.
	boolReduceType backends.ReduceOpType

	// identity of the reduction, converted to the computation dtype by reductionInitValue.
	// Booleans take identity > 0.
	identity float64

	// hasIdentity is false for max and min: the identity (-Inf or +Inf) is not a valid result for empty reductions.
	hasIdentity bool

	// upcastFloat16 accumulates 16-bit floats as Float32.
	upcastFloat16 bool

	// promoteIntegers accumulates booleans and narrow integers in the default int/uint, if not disabled
	// by ReduceConfig.PromoteIntegers.
	promoteIntegers bool

	// preprocess converts the input before the dtype resolution.
	preprocess func(x *graph.Node) *graph.Node
}

// castToNumeric converts booleans to the default int.
func castToNumeric(x *graph.Node) *graph.Node {
	return graph.ConvertDType(x, ToNumeric(x.DType()))
}

// castToBool converts values to booleans, "x != 0".
func castToBool(x *graph.Node) *graph.Node {
	return graph.ConvertDType(x, dtypes.Bool)
}

var (
	sumReduction = &reduction{
		name: "Sum", reduceType: backends.ReduceOpSum, boolReduceType: backends.ReduceOpLogicalOr,
		identity: 0, hasIdentity: true, upcastFloat16: true, promoteIntegers: true, preprocess: castToNumeric,
	}
	prodReduction = &reduction{
		name: "Prod", reduceType: backends.ReduceOpProduct, boolReduceType: backends.ReduceOpLogicalAnd,
		identity: 1, hasIdentity: true, upcastFloat16: true, promoteIntegers: true, preprocess: castToNumeric,
	}
	maxReduction = &reduction{
		name: "Max", reduceType: backends.ReduceOpMax, boolReduceType: backends.ReduceOpLogicalOr,
		identity: math.Inf(-1), hasIdentity: false,
	}
	minReduction = &reduction{
		name: "Min", reduceType: backends.ReduceOpMin, boolReduceType: backends.ReduceOpLogicalAnd,
		identity: math.Inf(1), hasIdentity: false,
	}
	allReduction = &reduction{
		name: "All", reduceType: backends.ReduceOpLogicalAnd, boolReduceType: backends.ReduceOpLogicalAnd,
		identity: 1, hasIdentity: true, preprocess: castToBool,
	}
	anyReduction = &reduction{
		name: "Any", reduceType: backends.ReduceOpLogicalOr, boolReduceType: backends.ReduceOpLogicalOr,
		identity: 0, hasIdentity: true, preprocess: castToBool,
	}
)

// reductionInitValue returns the identity of the reduction as a value for dtype, to be used as the backend
// reduction initial value.
//
// Booleans take the identity by its sign, and integers saturate infinities to their lowest/highest value.
func reductionInitValue(dtype dtypes.DType, identity float64) any {
	switch {
	case dtype == dtypes.Bool:
		return identity > 0
	case math.IsInf(identity, -1):
		return dtype.LowestValue()
	case math.IsInf(identity, 1):
		return dtype.HighestValue()
	}
	return identity
}

// combine applies the reduction operator element-wise.
func combine(reduceType backends.ReduceOpType, lhs, rhs *graph.Node) *graph.Node {
	switch reduceType {
	case backends.ReduceOpSum:
		return graph.Add(lhs, rhs)
	case backends.ReduceOpProduct:
		return graph.Mul(lhs, rhs)
	case backends.ReduceOpMax:
		return graph.Max(lhs, rhs)
	case backends.ReduceOpMin:
		return graph.Min(lhs, rhs)
	case backends.ReduceOpLogicalAnd:
		return graph.LogicalAnd(lhs, rhs)
	case backends.ReduceOpLogicalOr:
		return graph.LogicalOr(lhs, rhs)
	}
	exceptions.Panicf("invalid reduction type %s", reduceType)
	return nil
}

// ReduceConfig holds the configuration of one of the basic reductions (Sum, Prod, Max, Min, All, Any and
// their NaN counterparts). It is created by the reduction functions, configured with its methods and
// finalized with Done.
type ReduceConfig struct {
	x       *graph.Node
	opName  string
	doneFn  func(c *ReduceConfig) *graph.Node
	axes    axesSpec
	dtype   dtypes.DType
	keep    bool
	initial any
	where   any
	out     any

	promoteIntegers bool
	collective      CollectiveReducer
}

func newReduceConfig(x *graph.Node, opName string, doneFn func(c *ReduceConfig) *graph.Node) *ReduceConfig {
	x.AssertValid()
	return &ReduceConfig{x: x, opName: opName, doneFn: doneFn, promoteIntegers: true}
}

// Axes to reduce over. Negative values are counted from the end. If not set, all axes are reduced.
// If set to an empty list, no axes are reduced.
func (c *ReduceConfig) Axes(axes ...int) *ReduceConfig {
	c.axes.set(axes)
	return c
}

// NamedAxes adds named axes to reduce over: they refer to the axes of the replicas of a distributed
// computation, and are reduced by the CollectiveReducer configured with Collective.
func (c *ReduceConfig) NamedAxes(names ...string) *ReduceConfig {
	c.axes.names = slices.Clone(names)
	return c
}

// Collective configures the reducer used for NamedAxes.
func (c *ReduceConfig) Collective(collective CollectiveReducer) *ReduceConfig {
	c.collective = collective
	return c
}

// DType of the result and of the accumulation. By default, it is derived from the input dtype.
func (c *ReduceConfig) DType(dtype dtypes.DType) *ReduceConfig {
	c.dtype = dtype
	return c
}

// KeepDims keeps the reduced axes in the result, with dimension 1.
func (c *ReduceConfig) KeepDims() *ReduceConfig {
	c.keep = true
	return c
}

// Initial sets a starting value for the reduction: a Go scalar or a scalar *graph.Node.
// It is combined with the result after the reduction.
func (c *ReduceConfig) Initial(initial any) *ReduceConfig {
	c.initial = initial
	return c
}

// Where sets a mask selecting the elements included in the reduction: a *graph.Node, a tensor or a Go value,
// that must be broadcastable to the input shape. Non-boolean values are compared to zero.
func (c *ReduceConfig) Where(where any) *ReduceConfig {
	c.where = where
	return c
}

// PromoteIntegers configures whether booleans and narrow integers are accumulated in the default
// int/uint dtypes by Sum and Prod. Default is true.
func (c *ReduceConfig) PromoteIntegers(promote bool) *ReduceConfig {
	c.promoteIntegers = promote
	return c
}

// Out is not supported: results are always new values. Done panics if it is set.
func (c *ReduceConfig) Out(out any) *ReduceConfig {
	c.out = out
	return c
}

// Done builds the reduction and returns its result.
func (c *ReduceConfig) Done() *graph.Node {
	if c.out != nil {
		exceptions.Panicf("the Out argument to numpy.%s is not supported", c.opName)
	}
	return c.doneFn(c)
}

// reduce is the generic reduction algorithm, parametrized by the reduction r.
func reduce(x *graph.Node, r *reduction, c *ReduceConfig) *graph.Node {
	opName := "numpy." + c.opName
	if c.initial == nil && !r.hasIdentity && c.where != nil {
		exceptions.Panicf("reduction operation %s does not have an identity, so to use a where mask one "+
			"has to specify Initial", opName)
	}
	if r.reduceType.IsLogical() && c.dtype != dtypes.InvalidDType && c.dtype != dtypes.Bool {
		exceptions.Panicf("%s: the result of logical reductions is always boolean, got DType(%s)", opName, c.dtype)
	}
	g := x.Graph()
	if r.preprocess != nil {
		x = r.preprocess(x)
	}
	shape := x.Shape()
	axes := c.axes.resolve(opName, shape.Rank())
	if c.initial == nil && !r.hasIdentity {
		for _, axis := range axes {
			if shape.Dimensions[axis] < 1 {
				exceptions.Panicf("zero-size array to reduction operation %s which has no identity", opName)
			}
		}
	}

	// Resolve result and computation dtypes.
	var resultDType dtypes.DType
	if c.dtype != dtypes.InvalidDType {
		resultDType = canonicalizeUserDType(opName, c.dtype)
	} else {
		resultDType = x.DType()
		if c.promoteIntegers && r.promoteIntegers {
			resultDType = PromoteInteger(resultDType)
		}
		resultDType = CanonicalizeDType(resultDType)
	}
	computationDType := resultDType
	if r.upcastFloat16 && resultDType.IsInexact() {
		computationDType = UpcastFloat16(resultDType)
	}
	x = graph.ConvertDType(x, computationDType)
	reduceType := r.reduceType
	if computationDType == dtypes.Bool {
		reduceType = r.boolReduceType
	}
	if computationDType.IsComplex() && (reduceType == backends.ReduceOpMax || reduceType == backends.ReduceOpMin) {
		exceptions.Panicf("%s: complex values are not ordered, got input dtype %s", opName, computationDType)
	}
	init := graph.Scalar(g, computationDType, reductionInitValue(computationDType, r.identity))

	if c.where != nil {
		x = graph.Where(asMask(opName, x, c.where), x, init)
	}

	result := x
	if len(axes) > 0 {
		result = graph.Reduce(x, reduceType, init, axes...)
	}
	if c.axes.kind() == namedAxes {
		if c.collective == nil {
			exceptions.Panicf("named reductions not implemented for %s(): a Collective reducer must be "+
				"configured to reduce over named axes %q", opName, c.axes.names)
		}
		result = c.collective.Reduce(result, reduceType, c.axes.names)
	}

	if c.initial != nil {
		initial := asNode(g, c.initial, computationDType)
		if !initial.IsScalar() {
			exceptions.Panicf("%s: initial value must be a scalar, got array of shape %s", opName, initial.Shape())
		}
		result = combine(reduceType, initial, result)
	}
	if c.keep {
		result = keepReducedAxes(result, shape, axes)
	}
	return graph.ConvertDType(result, resultDType)
}

// Sum of the elements over the given axes.
//
// Booleans and narrow integers are accumulated in the default int (or uint), see ReduceConfig.PromoteIntegers,
// and 16-bit floats are accumulated in Float32.
//
// Example:
//
//	a := graph.Const(g, [][]float32{{1, 3, 4, 2}, {5, 2, 6, 3}, {8, 1, 3, 9}})
//	numpy.Sum(a).Done()  // 47
//	numpy.Sum(a).Axes(1).Done()  // [10, 16, 21]
func Sum(x *graph.Node) *ReduceConfig {
	return newReduceConfig(x, "Sum", func(c *ReduceConfig) *graph.Node { return reduce(c.x, sumReduction, c) })
}

// Prod returns the product of the elements over the given axes. See Sum for the dtype promotion.
func Prod(x *graph.Node) *ReduceConfig {
	return newReduceConfig(x, "Prod", func(c *ReduceConfig) *graph.Node { return reduce(c.x, prodReduction, c) })
}

// Max returns the maximum of the elements over the given axes. NaNs are propagated.
//
// Max has no identity: reducing empty axes requires an Initial value, and so does a Where mask.
// Complex values are not supported.
func Max(x *graph.Node) *ReduceConfig {
	return newReduceConfig(x, "Max", func(c *ReduceConfig) *graph.Node { return reduce(c.x, maxReduction, c) })
}

// AMax is an alias to Max.
func AMax(x *graph.Node) *ReduceConfig {
	return Max(x)
}

// Min returns the minimum of the elements over the given axes. NaNs are propagated.
//
// Min has no identity: reducing empty axes requires an Initial value, and so does a Where mask.
// Complex values are not supported.
func Min(x *graph.Node) *ReduceConfig {
	return newReduceConfig(x, "Min", func(c *ReduceConfig) *graph.Node { return reduce(c.x, minReduction, c) })
}

// AMin is an alias to Min.
func AMin(x *graph.Node) *ReduceConfig {
	return Min(x)
}

// All returns whether all elements over the given axes are true (non-zero). The result is boolean.
func All(x *graph.Node) *ReduceConfig {
	return newReduceConfig(x, "All", func(c *ReduceConfig) *graph.Node { return reduce(c.x, allReduction, c) })
}

// Any returns whether any element over the given axes is true (non-zero). The result is boolean.
func Any(x *graph.Node) *ReduceConfig {
	return newReduceConfig(x, "Any", func(c *ReduceConfig) *graph.Node { return reduce(c.x, anyReduction, c) })
}
