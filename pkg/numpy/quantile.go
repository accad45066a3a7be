// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package numpy

import (
	"fmt"
	"math"
	"reflect"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/npreduce/pkg/core/graph"
	"github.com/gomlx/npreduce/pkg/core/tensors"
	"github.com/gomlx/npreduce/pkg/support/xslices"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// QuantileMethod selects how a quantile falling between two order statistics is estimated.
type QuantileMethod int

const (
	// QuantileLinear interpolates linearly between the two closest order statistics. This is the default.
	QuantileLinear QuantileMethod = iota

	// QuantileLower takes the lower of the two closest order statistics.
	QuantileLower

	// QuantileHigher takes the higher of the two closest order statistics.
	QuantileHigher

	// QuantileMidpoint takes the mean of the two closest order statistics.
	QuantileMidpoint

	// QuantileNearest takes the closest order statistic. Ties (exactly half-way) take the lower one.
	QuantileNearest
)

var quantileMethodNames = []string{"linear", "lower", "higher", "midpoint", "nearest"}

// String implements fmt.Stringer.
func (m QuantileMethod) String() string {
	if m < 0 || int(m) >= len(quantileMethodNames) {
		return fmt.Sprintf("QuantileMethod(%d)", int(m))
	}
	return quantileMethodNames[m]
}

// ParseQuantileMethod converts the name of a method (e.g. "linear") to a QuantileMethod.
func ParseQuantileMethod(name string) (QuantileMethod, error) {
	idx := slices.Index(quantileMethodNames, strings.ToLower(name))
	if idx < 0 {
		return QuantileLinear, errors.Errorf("unknown quantile method %q, valid values are %q", name, quantileMethodNames)
	}
	return QuantileMethod(idx), nil
}

// QuantileConfig holds the configuration of the order statistics (Quantile, Percentile, Median and their NaN
// counterparts), created by those functions and finalized with Done.
type QuantileConfig struct {
	x       *graph.Node
	q       any
	opName  string
	scale   float64
	skipNaN bool
	axes    axesSpec
	method  QuantileMethod
	keep    bool
	out     any
}

func newQuantileConfig(x *graph.Node, q any, opName string, scale float64, skipNaN bool) *QuantileConfig {
	x.AssertValid()
	return &QuantileConfig{x: x, q: q, opName: opName, scale: scale, skipNaN: skipNaN}
}

// Axes to reduce over. Negative values are counted from the end. If not set, all axes are reduced.
func (c *QuantileConfig) Axes(axes ...int) *QuantileConfig {
	c.axes.set(axes)
	return c
}

// Method used to estimate quantiles between order statistics. Default is QuantileLinear.
func (c *QuantileConfig) Method(method QuantileMethod) *QuantileConfig {
	c.method = method
	return c
}

// Interpolation is the deprecated name of Method.
//
// Deprecated: use Method instead.
func (c *QuantileConfig) Interpolation(method QuantileMethod) *QuantileConfig {
	klog.Warningf("numpy.%s: the Interpolation argument is deprecated, use Method instead", c.opName)
	return c.Method(method)
}

// KeepDims keeps the reduced axes in the result, with dimension 1. If q is 1D, its axis is still the first one.
func (c *QuantileConfig) KeepDims() *QuantileConfig {
	c.keep = true
	return c
}

// Out is not supported: results are always new values. Done panics if it is set.
func (c *QuantileConfig) Out(out any) *QuantileConfig {
	c.out = out
	return c
}

// Quantile returns the q-th quantiles of the elements over the given axes.
//
// The quantiles q are given as a Go scalar or slice of values in [0, 1], or as a *graph.Node (or tensor) of rank 0 or 1.
// If q is 1D, the quantiles index the first axis of the result.
//
// NaNs are propagated: a selection with any NaN yields NaN. Complex values are not supported.
//
// Example:
//
//	x := graph.Const(g, []float32{1, 2, 3, 4})
//	numpy.Quantile(x, 0.5).Done()  // 2.5
//	numpy.Quantile(x, 0.5).Method(numpy.QuantileLower).Done()  // 2
func Quantile(x *graph.Node, q any) *QuantileConfig {
	return newQuantileConfig(x, q, "Quantile", 1, false)
}

// NanQuantile is like Quantile, but NaN values are ignored. A selection with only NaN values yields NaN.
func NanQuantile(x *graph.Node, q any) *QuantileConfig {
	return newQuantileConfig(x, q, "NanQuantile", 1, true)
}

// Percentile is like Quantile, but with q given in the range [0, 100].
func Percentile(x *graph.Node, q any) *QuantileConfig {
	return newQuantileConfig(x, q, "Percentile", 100, false)
}

// NanPercentile is like NanQuantile, but with q given in the range [0, 100].
func NanPercentile(x *graph.Node, q any) *QuantileConfig {
	return newQuantileConfig(x, q, "NanPercentile", 100, true)
}

// Median returns the median of the elements over the given axes: the 0.5 quantile, taking the midpoint of the
// two central values for selections with an even number of elements.
func Median(x *graph.Node) *QuantileConfig {
	return newQuantileConfig(x, 0.5, "Median", 1, false).Method(QuantileMidpoint)
}

// NanMedian is like Median, but NaN values are ignored.
func NanMedian(x *graph.Node) *QuantileConfig {
	return newQuantileConfig(x, 0.5, "NanMedian", 1, true).Method(QuantileMidpoint)
}

// checkQuantileRange validates q values given as Go values, which are known when building the graph.
func checkQuantileRange(opName string, q any, scale float64) {
	qValue := reflect.ValueOf(q)
	var values []float64
	if qValue.Kind() == reflect.Slice {
		values = make([]float64, qValue.Len())
		for ii := range values {
			values[ii] = toFloat64(qValue.Index(ii))
		}
	} else {
		values = []float64{toFloat64(qValue)}
	}
	for _, v := range values {
		if !(v >= 0 && v <= scale) {
			exceptions.Panicf("%s: quantiles must be in the range [0, %g], got %v", opName, scale, q)
		}
	}
}

func toFloat64(v reflect.Value) float64 {
	switch {
	case v.CanFloat():
		return v.Float()
	case v.CanInt():
		return float64(v.Int())
	case v.CanUint():
		return float64(v.Uint())
	}
	return math.NaN()
}

// Done builds the order statistic and returns its result.
func (c *QuantileConfig) Done() *graph.Node {
	opName := "numpy." + c.opName
	if c.out != nil {
		exceptions.Panicf("the Out argument to %s is not supported", opName)
	}
	if c.method < QuantileLinear || c.method > QuantileNearest {
		exceptions.Panicf("%s: method can only be one of %q, got %s", opName, quantileMethodNames, c.method)
	}
	x := c.x
	g := x.Graph()
	dtype := ToInexact(CanonicalizeDType(x.DType()))
	if dtype.IsComplex() {
		exceptions.Panicf("%s does not support complex input, as the operation is poorly defined", opName)
	}
	computationDType := UpcastFloat16(dtype)
	x = graph.ConvertDType(x, computationDType)

	// Move the untouched axes to the front, in order, and flatten the reduced axes into the last one.
	shape := x.Shape()
	axes := c.axes.resolve(opName, shape.Rank())
	batchDims := reducedDimensions(shape, axes)
	n := reducedSize(shape, axes)
	if n == 0 {
		exceptions.Panicf("%s: cannot take the quantile of an empty selection, got shape %s reducing axes %v",
			opName, shape, axes)
	}
	permutation := make([]int, 0, shape.Rank())
	for axis := range shape.Rank() {
		if !slices.Contains(axes, axis) {
			permutation = append(permutation, axis)
		}
	}
	permutation = append(permutation, axes...)
	x = graph.TransposeAllAxes(x, permutation...)
	x = graph.Reshape(x, append(slices.Clone(batchDims), n)...)

	// Quantiles are converted to shape [1, ..., 1, numQ].
	switch c.q.(type) {
	case *graph.Node, *tensors.Tensor:
	default:
		checkQuantileRange(opName, c.q, c.scale)
	}
	q := asNode(g, c.q, computationDType)
	if q.Rank() > 1 {
		exceptions.Panicf("%s: q must have rank <= 1, got shape %s", opName, q.Shape())
	}
	qIsScalar := q.IsScalar()
	if c.scale != 1 {
		q = graph.Div(q, graph.Scalar(g, computationDType, c.scale))
	}
	numQ := q.Shape().Size()
	qDims := xslices.SliceWithValue(len(batchDims)+1, 1)
	qDims[len(batchDims)] = numQ
	q = graph.Reshape(q, qDims...)

	var counts *graph.Node
	isNaN := graph.IsNaN(x)
	if c.skipNaN {
		x = graph.Sort(x, -1)
		counts = Sum(graph.LogicalNot(isNaN)).Axes(-1).KeepDims().DType(computationDType).Done()
	} else {
		anyNaN := Any(isNaN).Axes(-1).KeepDims().Done()
		x = graph.Sort(graph.Where(anyNaN, graph.Scalar(g, computationDType, math.NaN()), x), -1)
		counts = graph.Scalar(g, computationDType, n)
	}
	lastIndex := graph.Sub(counts, graph.ScalarOne(g, computationDType))
	position := graph.BroadcastToDims(graph.Mul(q, lastIndex), append(slices.Clone(batchDims), numQ)...)
	low := graph.Floor(position)
	high := graph.Ceil(position)
	highWeight := graph.Sub(position, low)
	lowWeight := graph.Sub(graph.ScalarOne(g, computationDType), highWeight)
	toIndex := func(v *graph.Node) *graph.Node {
		v = graph.Max(graph.ScalarZero(g, computationDType), graph.Min(v, lastIndex))
		return graph.ConvertDType(v, DefaultInt())
	}
	lowValue := graph.TakeAlongAxis(x, toIndex(low), -1)
	highValue := graph.TakeAlongAxis(x, toIndex(high), -1)

	var result *graph.Node
	switch c.method {
	case QuantileLinear:
		result = graph.Add(graph.Mul(lowValue, lowWeight), graph.Mul(highValue, highWeight))
	case QuantileLower:
		result = lowValue
	case QuantileHigher:
		result = highValue
	case QuantileMidpoint:
		result = graph.Mul(graph.Add(lowValue, highValue), graph.Scalar(g, computationDType, 0.5))
	case QuantileNearest:
		result = graph.Where(graph.LessOrEqual(highWeight, graph.Scalar(g, computationDType, 0.5)), lowValue, highValue)
	}

	// Result has shape batchDims + [numQ]: move the quantiles axis to the front.
	rank := result.Rank()
	result = graph.TransposeAllAxes(result, append([]int{rank - 1}, xslices.Iota(0, rank-1)...)...)
	var outputDims []int
	if !qIsScalar {
		outputDims = append(outputDims, numQ)
	}
	if c.keep {
		outputDims = append(outputDims, keptDimensions(shape, axes)...)
	} else {
		outputDims = append(outputDims, batchDims...)
	}
	result = graph.Reshape(result, outputDims...)
	return graph.ConvertDType(result, dtype)
}
