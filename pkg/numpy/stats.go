// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package numpy

import (
	"math"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/npreduce/pkg/core/dtypes"
	"github.com/gomlx/npreduce/pkg/core/graph"
	"github.com/gomlx/npreduce/pkg/support/xslices"
)

// StatsConfig holds the configuration of the statistics Mean, Var, Std and their NaN counterparts.
// It is created by the statistics functions, configured with its methods and finalized with Done.
type StatsConfig struct {
	x      *graph.Node
	opName string
	doneFn func(c *StatsConfig) *graph.Node
	axes   axesSpec
	dtype  dtypes.DType
	keep   bool
	where  any
	out    any

	ddof                   int
	ddofSet, correctionSet bool
	correction             float64
}

func newStatsConfig(x *graph.Node, opName string, doneFn func(c *StatsConfig) *graph.Node) *StatsConfig {
	x.AssertValid()
	return &StatsConfig{x: x, opName: opName, doneFn: doneFn}
}

// Axes to reduce over. Negative values are counted from the end. If not set, all axes are reduced.
// If set to an empty list, no axes are reduced.
func (c *StatsConfig) Axes(axes ...int) *StatsConfig {
	c.axes.set(axes)
	return c
}

// DType of the result. By default, booleans and integers yield the default float, and inexact inputs
// keep their dtype (the real dtype for the variance of complex values).
func (c *StatsConfig) DType(dtype dtypes.DType) *StatsConfig {
	c.dtype = dtype
	return c
}

// KeepDims keeps the reduced axes in the result, with dimension 1.
func (c *StatsConfig) KeepDims() *StatsConfig {
	c.keep = true
	return c
}

// Where sets a mask selecting the elements included: a *graph.Node, a tensor or a Go value,
// that must be broadcastable to the input shape.
func (c *StatsConfig) Where(where any) *StatsConfig {
	c.where = where
	return c
}

// DDof sets the "delta degrees of freedom" of the variance: the divisor used is N - ddof, where N is the number
// of elements reduced. Default is 0. Only used by Var, Std, NanVar and NanStd.
func (c *StatsConfig) DDof(ddof int) *StatsConfig {
	c.ddof = ddof
	c.ddofSet = true
	return c
}

// Correction is the Array API name for DDof, and accepts fractional values.
// It can't be used together with DDof.
func (c *StatsConfig) Correction(correction float64) *StatsConfig {
	c.correction = correction
	c.correctionSet = true
	return c
}

// Out is not supported: results are always new values. Done panics if it is set.
func (c *StatsConfig) Out(out any) *StatsConfig {
	c.out = out
	return c
}

// Done builds the statistic and returns its result.
func (c *StatsConfig) Done() *graph.Node {
	if c.out != nil {
		exceptions.Panicf("the Out argument to numpy.%s is not supported", c.opName)
	}
	return c.doneFn(c)
}

// sum configures a Sum over the same axes, mask and KeepDims of the statistic.
func (c *StatsConfig) sum(x *graph.Node, dtype dtypes.DType) *graph.Node {
	return c.configure(Sum(x)).DType(dtype).Done()
}

// configure copies the axes, mask and KeepDims of the statistic to a reduction.
func (c *StatsConfig) configure(rc *ReduceConfig) *ReduceConfig {
	rc.axes = c.axes
	rc.where = c.where
	rc.keep = c.keep
	return rc
}

// derive returns a copy of the configuration for an intermediary statistic of x.
func (c *StatsConfig) derive(x *graph.Node, dtype dtypes.DType, keep bool) *StatsConfig {
	derived := *c
	derived.x = x
	derived.dtype = dtype
	derived.keep = keep
	return &derived
}

// ddofValue returns the correction to use for the variance.
func (c *StatsConfig) ddofValue(opName string) float64 {
	if c.ddofSet && c.correctionSet {
		exceptions.Panicf("%s: ddof and correction can't be provided simultaneously", opName)
	}
	if c.correctionSet {
		return c.correction
	}
	return float64(c.ddof)
}

// Mean returns the arithmetic mean of the elements over the given axes.
//
// Booleans and integers are averaged as the default float, and 16-bit floats are accumulated as Float32.
// The mean of an empty selection is NaN.
func Mean(x *graph.Node) *StatsConfig {
	return newStatsConfig(x, "Mean", mean)
}

func mean(c *StatsConfig) *graph.Node {
	opName := "numpy." + c.opName
	x := c.x
	g := x.Graph()
	var dtype dtypes.DType
	if c.dtype != dtypes.InvalidDType {
		dtype = canonicalizeUserDType(opName, c.dtype)
	} else {
		dtype = ToInexact(CanonicalizeDType(x.DType()))
	}
	computationDType := UpcastFloat16(dtype)

	var normalizer *graph.Node
	if c.where == nil {
		axes := c.axes.resolve(opName, x.Rank())
		normalizer = graph.Scalar(g, computationDType, reducedSize(x.Shape(), axes))
	} else {
		normalizer = c.sum(asMask(opName, x, c.where), computationDType)
	}
	return graph.ConvertDType(graph.Div(c.sum(x, computationDType), normalizer), dtype)
}

// varPromoteTypes returns the computation dtype and the result dtype of the variance of values of dtype aDType.
func varPromoteTypes(opName string, aDType, dtype dtypes.DType) (computationDType, resultDType dtypes.DType) {
	if dtype != dtypes.InvalidDType {
		if !dtype.IsComplex() && aDType.IsComplex() {
			exceptions.Panicf("%s does not support real dtype parameters when computing the variance of an "+
				"array of complex values, got DType(%s) for input dtype %s", opName, dtype, aDType)
		}
		dtype = canonicalizeUserDType(opName, dtype)
		return UpcastFloat16(dtype), dtype
	}
	aDType = CanonicalizeDType(aDType)
	if !aDType.IsInexact() {
		return DefaultFloat(), DefaultFloat()
	}
	return UpcastFloat16(aDType), aDType.RealDType()
}

// Var returns the variance of the elements over the given axes: the mean of the squared absolute deviations
// from the mean, divided by N - ddof (see StatsConfig.DDof).
//
// The variance of complex values is real. If N - ddof is not positive the result is NaN.
func Var(x *graph.Node) *StatsConfig {
	return newStatsConfig(x, "Var", func(c *StatsConfig) *graph.Node { return variance(c, false) })
}

// Std returns the standard deviation of the elements over the given axes, the square root of Var.
func Std(x *graph.Node) *StatsConfig {
	return newStatsConfig(x, "Std", func(c *StatsConfig) *graph.Node { return stdDev(c, false) })
}

func stdDev(c *StatsConfig, skipNaN bool) *graph.Node {
	if c.dtype != dtypes.InvalidDType && !c.dtype.IsInexact() {
		exceptions.Panicf("dtype argument to numpy.%s must be inexact, got %s", c.opName, c.dtype)
	}
	return graph.Sqrt(variance(c, skipNaN))
}

// variance implements Var and NanVar: if skipNaN is true, NaN values are excluded from the mean
// and from the number of elements.
func variance(c *StatsConfig, skipNaN bool) *graph.Node {
	opName := "numpy." + c.opName
	correction := c.ddofValue(opName)
	computationDType, dtype := varPromoteTypes(opName, c.x.DType(), c.dtype)
	x := graph.ConvertDType(c.x, computationDType)
	g := x.Graph()

	var center *graph.Node
	if skipNaN {
		center = nanMean(c.derive(x, computationDType, true))
	} else {
		center = mean(c.derive(x, computationDType, true))
	}
	centered := graph.Sub(x, center)
	if skipNaN {
		centered = graph.Where(graph.IsNaN(x), graph.ScalarZero(g, computationDType), centered)
	}
	if computationDType.IsComplex() {
		centered = graph.Real(graph.Mul(centered, graph.Conj(centered)))
	} else {
		centered = graph.Square(centered)
	}
	sumDType := centered.DType()

	var count *graph.Node
	switch {
	case skipNaN:
		count = c.sum(graph.LogicalNot(graph.IsNaN(x)), sumDType)
	case c.where == nil:
		count = graph.Scalar(g, sumDType, reducedSize(x.Shape(), c.axes.resolve(opName, x.Rank())))
	default:
		count = c.sum(asMask(opName, x, c.where), sumDType)
	}
	normalizer := graph.Sub(count, graph.Scalar(g, sumDType, correction))
	sum := c.sum(centered, sumDType)

	// Non-positive degrees of freedom yield NaN: the divisor is replaced by 1 to keep the division valid.
	noDegrees := graph.LessOrEqual(normalizer, graph.ScalarZero(g, sumDType))
	result := graph.Div(sum, graph.Where(noDegrees, graph.ScalarOne(g, sumDType), normalizer))
	if sumDType.SupportsNaN() {
		result = graph.Where(noDegrees, graph.Scalar(g, sumDType, math.NaN()), result)
	}
	return graph.ConvertDType(result, dtype)
}

// AverageConfig holds the configuration of Average, created by Average, configured with its methods and
// finalized with Done or DoneWithWeightsSum.
type AverageConfig struct {
	x       *graph.Node
	axes    axesSpec
	weights any
	keep    bool
}

// Average returns the weighted average of the elements over the given axes.
// Without weights it is the same as Mean.
func Average(x *graph.Node) *AverageConfig {
	x.AssertValid()
	return &AverageConfig{x: x}
}

// Axes to reduce over. Negative values are counted from the end. If not set, all axes are reduced.
func (c *AverageConfig) Axes(axes ...int) *AverageConfig {
	c.axes.set(axes)
	return c
}

// Weights associated with the values: a *graph.Node, a tensor or a Go value.
//
// They must have the same shape as the input, or be 1D with the dimension of the single reduced axis.
func (c *AverageConfig) Weights(weights any) *AverageConfig {
	c.weights = weights
	return c
}

// KeepDims keeps the reduced axes in the result, with dimension 1.
func (c *AverageConfig) KeepDims() *AverageConfig {
	c.keep = true
	return c
}

// Done returns the weighted average.
func (c *AverageConfig) Done() *graph.Node {
	avg, _ := c.DoneWithWeightsSum()
	return avg
}

// DoneWithWeightsSum returns the weighted average and the sum of the weights, broadcast to the shape of
// the average.
func (c *AverageConfig) DoneWithWeightsSum() (avg, weightsSum *graph.Node) {
	const opName = "numpy.Average"
	x := c.x
	g := x.Graph()
	if c.weights == nil {
		meanCfg := Mean(x)
		meanCfg.axes = c.axes
		meanCfg.keep = c.keep
		avg = meanCfg.Done()
		axes := c.axes.resolve(opName, x.Rank())
		weightsSum = graph.BroadcastToShape(graph.Scalar(g, avg.DType(), reducedSize(x.Shape(), axes)), avg.Shape())
		return
	}

	weights := asNode(g, c.weights, dtypes.InvalidDType)
	dtype := PromoteTypes(ToInexact(x.DType()), ToInexact(weights.DType()))
	x = graph.ConvertDType(x, dtype)
	weights = graph.ConvertDType(weights, dtype)
	axes := c.axes.resolve(opName, x.Rank())
	if !slices.Equal(x.Shape().Dimensions, weights.Shape().Dimensions) {
		if !c.axes.isSet {
			exceptions.Panicf("%s: axis must be specified when shapes of a (%s) and weights (%s) differ",
				opName, x.Shape(), weights.Shape())
		}
		if len(axes) != 1 {
			exceptions.Panicf("%s: single axis expected when shapes of a (%s) and weights (%s) differ",
				opName, x.Shape(), weights.Shape())
		}
		if weights.Rank() != 1 {
			exceptions.Panicf("%s: 1D weights expected when shapes of a (%s) and weights (%s) differ",
				opName, x.Shape(), weights.Shape())
		}
		axis := axes[0]
		if weights.Shape().Dimensions[0] != x.Shape().Dimensions[axis] {
			exceptions.Panicf("%s: length of weights (%d) not compatible with specified axis %d of a (%s)",
				opName, weights.Shape().Dimensions[0], axis, x.Shape())
		}
		dims := xslices.SliceWithValue(x.Rank(), 1)
		dims[axis] = weights.Shape().Dimensions[0]
		weights = graph.BroadcastToShape(graph.Reshape(weights, dims...), x.Shape())
	}

	sumOver := func(v *graph.Node) *graph.Node {
		sumCfg := Sum(v)
		sumCfg.axes = c.axes
		sumCfg.keep = c.keep
		return sumCfg.Done()
	}
	weightsSum = sumOver(weights)
	avg = graph.Div(sumOver(graph.Mul(x, weights)), weightsSum)
	weightsSum = graph.BroadcastToShape(weightsSum, avg.Shape())
	return
}

// AxesConfig holds the configuration of the reductions that only take axes, like Ptp and CountNonzero.
type AxesConfig struct {
	x      *graph.Node
	opName string
	doneFn func(c *AxesConfig) *graph.Node
	axes   axesSpec
	keep   bool
	out    any
}

func newAxesConfig(x *graph.Node, opName string, doneFn func(c *AxesConfig) *graph.Node) *AxesConfig {
	x.AssertValid()
	return &AxesConfig{x: x, opName: opName, doneFn: doneFn}
}

// Axes to reduce over. Negative values are counted from the end. If not set, all axes are reduced.
func (c *AxesConfig) Axes(axes ...int) *AxesConfig {
	c.axes.set(axes)
	return c
}

// KeepDims keeps the reduced axes in the result, with dimension 1.
func (c *AxesConfig) KeepDims() *AxesConfig {
	c.keep = true
	return c
}

// Out is not supported: results are always new values. Done panics if it is set.
func (c *AxesConfig) Out(out any) *AxesConfig {
	c.out = out
	return c
}

// Done builds the reduction and returns its result.
func (c *AxesConfig) Done() *graph.Node {
	if c.out != nil {
		exceptions.Panicf("the Out argument to numpy.%s is not supported", c.opName)
	}
	return c.doneFn(c)
}

// configure copies the axes and KeepDims to a reduction.
func (c *AxesConfig) configure(rc *ReduceConfig) *ReduceConfig {
	rc.axes = c.axes
	rc.keep = c.keep
	return rc
}

// Ptp returns the range of values ("peak to peak"), Max - Min, over the given axes.
// Booleans are not supported.
func Ptp(x *graph.Node) *AxesConfig {
	return newAxesConfig(x, "Ptp", func(c *AxesConfig) *graph.Node {
		if c.x.DType() == dtypes.Bool {
			exceptions.Panicf("numpy.Ptp does not support boolean values, convert them to an integer dtype first")
		}
		return graph.Sub(c.configure(Max(c.x)).Done(), c.configure(Min(c.x)).Done())
	})
}

// CountNonzero returns the number of non-zero values over the given axes, as the default int dtype.
func CountNonzero(x *graph.Node) *AxesConfig {
	return newAxesConfig(x, "CountNonzero", func(c *AxesConfig) *graph.Node {
		return c.configure(Sum(graph.ConvertDType(c.x, dtypes.Bool))).DType(DefaultInt()).Done()
	})
}
