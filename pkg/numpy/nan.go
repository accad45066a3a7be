// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package numpy

import (
	"math"

	"github.com/gomlx/npreduce/pkg/core/dtypes"
	"github.com/gomlx/npreduce/pkg/core/graph"
)

// nanReduction returns the Done function of the NaN-skipping version of the reduction r: NaN values are replaced
// by the identity of the reduction. If nanIfAllNaN is set, a selection with only NaN values yields NaN, unless an
// Initial value is given.
//
// Values that can't hold NaN are reduced directly.
func nanReduction(r *reduction, nanIfAllNaN bool) func(c *ReduceConfig) *graph.Node {
	return func(c *ReduceConfig) *graph.Node {
		x := c.x
		if !x.DType().IsInexact() {
			return reduce(x, r, c)
		}
		g := x.Graph()
		isNaN := graph.IsNaN(x)
		fill := graph.Scalar(g, x.DType(), reductionInitValue(x.DType(), r.identity))
		result := reduce(graph.Where(isNaN, fill, x), r, c)
		if !nanIfAllNaN || c.initial != nil || !result.DType().SupportsNaN() {
			return result
		}
		allCfg := All(isNaN)
		allCfg.axes = c.axes
		allCfg.keep = c.keep
		allCfg.collective = c.collective
		return graph.Where(allCfg.Done(), graph.Scalar(g, result.DType(), math.NaN()), result)
	}
}

// NanSum is like Sum, but NaN values are treated as zero. A selection with only NaN values sums to 0.
func NanSum(x *graph.Node) *ReduceConfig {
	return newReduceConfig(x, "NanSum", nanReduction(sumReduction, false))
}

// NanProd is like Prod, but NaN values are treated as one.
func NanProd(x *graph.Node) *ReduceConfig {
	return newReduceConfig(x, "NanProd", nanReduction(prodReduction, false))
}

// NanMax is like Max, but NaN values are ignored. A selection with only NaN values yields NaN,
// unless an Initial value is given.
func NanMax(x *graph.Node) *ReduceConfig {
	return newReduceConfig(x, "NanMax", nanReduction(maxReduction, true))
}

// NanMin is like Min, but NaN values are ignored. A selection with only NaN values yields NaN,
// unless an Initial value is given.
func NanMin(x *graph.Node) *ReduceConfig {
	return newReduceConfig(x, "NanMin", nanReduction(minReduction, true))
}

// NanMean is like Mean, but NaN values are ignored. A selection with only NaN values yields NaN.
func NanMean(x *graph.Node) *StatsConfig {
	return newStatsConfig(x, "NanMean", nanMean)
}

func nanMean(c *StatsConfig) *graph.Node {
	x := c.x
	if !x.DType().IsInexact() {
		return mean(c)
	}
	dtype := c.dtype
	if dtype == dtypes.InvalidDType {
		dtype = ToInexact(CanonicalizeDType(x.DType()))
	} else {
		dtype = canonicalizeUserDType("numpy."+c.opName, dtype)
	}
	count := c.sum(graph.LogicalNot(graph.IsNaN(x)), dtype)
	nanSum := c.configure(NanSum(x)).DType(dtype).Done()
	return graph.Div(nanSum, count)
}

// NanVar is like Var, but NaN values are ignored. If the number of non-NaN values is not larger than
// ddof, the result is NaN.
func NanVar(x *graph.Node) *StatsConfig {
	return newStatsConfig(x, "NanVar", func(c *StatsConfig) *graph.Node { return variance(c, true) })
}

// NanStd is like Std, but NaN values are ignored. See NanVar.
func NanStd(x *graph.Node) *StatsConfig {
	return newStatsConfig(x, "NanStd", func(c *StatsConfig) *graph.Node { return stdDev(c, true) })
}
