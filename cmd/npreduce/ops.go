// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/npreduce/backends"
	"github.com/gomlx/npreduce/pkg/core/dtypes"
	"github.com/gomlx/npreduce/pkg/core/graph"
	"github.com/gomlx/npreduce/pkg/core/tensors"
	"github.com/gomlx/npreduce/pkg/numpy"
	"github.com/pkg/errors"
)

// Options of the reduction selected on the command line.
type Options struct {
	Op       string
	Axes     []int
	AxesSet  bool
	KeepDims bool
	DType    dtypes.DType
	DDof     int
	Q        []float64
	Method   numpy.QuantileMethod
}

// String describes the options that apply to the selected reduction.
func (opts *Options) String() string {
	parts := []string{opts.Op}
	if opts.AxesSet {
		parts = append(parts, fmt.Sprintf("axes=%v", opts.Axes))
	}
	r := reductions[opts.Op]
	if opts.KeepDims && r.kind != cumulativeKind {
		parts = append(parts, "keepdims")
	}
	if opts.DType != dtypes.InvalidDType && r.acceptsDType {
		parts = append(parts, fmt.Sprintf("dtype=%s", opts.DType))
	}
	switch r.kind {
	case varianceKind:
		parts = append(parts, fmt.Sprintf("ddof=%d", opts.DDof))
	case quantileKind:
		parts = append(parts, fmt.Sprintf("q=%v", opts.Q), fmt.Sprintf("method=%s", opts.Method))
	}
	return strings.Join(parts, " ")
}

// q returns the quantiles as a scalar if only one is given.
func (opts *Options) q() any {
	if len(opts.Q) == 1 {
		return opts.Q[0]
	}
	return opts.Q
}

type reductionKind int

const (
	reduceKind reductionKind = iota
	statsKind
	varianceKind
	axesKind
	cumulativeKind
	quantileKind
	medianKind
	averageKind
)

type reductionEntry struct {
	kind         reductionKind
	acceptsDType bool
	help         string
	build        func(x *graph.Node, opts *Options) *graph.Node
}

// reductions maps the command line name of each reduction to how it is built.
var reductions = map[string]reductionEntry{
	"sum":     reduceEntry(numpy.Sum, "Sum of the elements."),
	"prod":    reduceEntry(numpy.Prod, "Product of the elements."),
	"max":     reduceEntry(numpy.Max, "Maximum of the elements, NaN if any is NaN."),
	"min":     reduceEntry(numpy.Min, "Minimum of the elements, NaN if any is NaN."),
	"all":     reduceEntry(numpy.All, "Whether all elements are non-zero."),
	"any":     reduceEntry(numpy.Any, "Whether any element is non-zero."),
	"nansum":  reduceEntry(numpy.NanSum, "Sum of the elements, ignoring NaNs."),
	"nanprod": reduceEntry(numpy.NanProd, "Product of the elements, ignoring NaNs."),
	"nanmax":  reduceEntry(numpy.NanMax, "Maximum of the elements, ignoring NaNs."),
	"nanmin":  reduceEntry(numpy.NanMin, "Minimum of the elements, ignoring NaNs."),

	"mean":    statsEntry(numpy.Mean, statsKind, "Arithmetic mean of the elements."),
	"nanmean": statsEntry(numpy.NanMean, statsKind, "Arithmetic mean of the elements, ignoring NaNs."),
	"var":     statsEntry(numpy.Var, varianceKind, "Variance of the elements, dividing by N - ddof."),
	"std":     statsEntry(numpy.Std, varianceKind, "Standard deviation of the elements, dividing by N - ddof."),
	"nanvar":  statsEntry(numpy.NanVar, varianceKind, "Variance of the elements, ignoring NaNs."),
	"nanstd":  statsEntry(numpy.NanStd, varianceKind, "Standard deviation of the elements, ignoring NaNs."),

	"average": {kind: averageKind, help: "Average of the elements (unweighted).",
		build: func(x *graph.Node, opts *Options) *graph.Node {
			c := numpy.Average(x)
			if opts.AxesSet {
				c.Axes(opts.Axes...)
			}
			if opts.KeepDims {
				c.KeepDims()
			}
			return c.Done()
		}},
	"ptp":           axesEntry(numpy.Ptp, "Range of the values, max - min."),
	"count_nonzero": axesEntry(numpy.CountNonzero, "Number of non-zero elements."),

	"cumsum":         cumulativeEntry(numpy.CumSum, "Cumulative sum along an axis."),
	"cumprod":        cumulativeEntry(numpy.CumProd, "Cumulative product along an axis."),
	"nancumsum":      cumulativeEntry(numpy.NanCumSum, "Cumulative sum along an axis, NaNs counted as zero."),
	"nancumprod":     cumulativeEntry(numpy.NanCumProd, "Cumulative product along an axis, NaNs counted as one."),
	"cumulative_sum": cumulativeEntry(numpy.CumulativeSum, "Cumulative sum along an axis, promoting narrow integers."),

	"quantile":      quantileEntry(numpy.Quantile, "Quantiles q (in [0, 1]) of the elements."),
	"nanquantile":   quantileEntry(numpy.NanQuantile, "Quantiles q (in [0, 1]) of the elements, ignoring NaNs."),
	"percentile":    quantileEntry(numpy.Percentile, "Percentiles q (in [0, 100]) of the elements."),
	"nanpercentile": quantileEntry(numpy.NanPercentile, "Percentiles q (in [0, 100]) of the elements, ignoring NaNs."),
	"median":        medianEntry(numpy.Median, "Median of the elements."),
	"nanmedian":     medianEntry(numpy.NanMedian, "Median of the elements, ignoring NaNs."),
}

func reduceEntry(newConfig func(x *graph.Node) *numpy.ReduceConfig, help string) reductionEntry {
	return reductionEntry{kind: reduceKind, acceptsDType: true, help: help,
		build: func(x *graph.Node, opts *Options) *graph.Node {
			c := newConfig(x)
			if opts.AxesSet {
				c.Axes(opts.Axes...)
			}
			if opts.KeepDims {
				c.KeepDims()
			}
			if opts.DType != dtypes.InvalidDType {
				c.DType(opts.DType)
			}
			return c.Done()
		}}
}

func statsEntry(newConfig func(x *graph.Node) *numpy.StatsConfig, kind reductionKind, help string) reductionEntry {
	return reductionEntry{kind: kind, acceptsDType: true, help: help,
		build: func(x *graph.Node, opts *Options) *graph.Node {
			c := newConfig(x)
			if opts.AxesSet {
				c.Axes(opts.Axes...)
			}
			if opts.KeepDims {
				c.KeepDims()
			}
			if opts.DType != dtypes.InvalidDType {
				c.DType(opts.DType)
			}
			if kind == varianceKind {
				c.DDof(opts.DDof)
			}
			return c.Done()
		}}
}

func axesEntry(newConfig func(x *graph.Node) *numpy.AxesConfig, help string) reductionEntry {
	return reductionEntry{kind: axesKind, help: help,
		build: func(x *graph.Node, opts *Options) *graph.Node {
			c := newConfig(x)
			if opts.AxesSet {
				c.Axes(opts.Axes...)
			}
			if opts.KeepDims {
				c.KeepDims()
			}
			return c.Done()
		}}
}

func cumulativeEntry(newConfig func(x *graph.Node) *numpy.CumulativeConfig, help string) reductionEntry {
	return reductionEntry{kind: cumulativeKind, acceptsDType: true, help: help,
		build: func(x *graph.Node, opts *Options) *graph.Node {
			c := newConfig(x)
			if opts.AxesSet {
				if len(opts.Axes) != 1 {
					exceptions.Panicf("%s accumulates along one axis, got axes %v", opts.Op, opts.Axes)
				}
				c.Axis(opts.Axes[0])
			}
			if opts.DType != dtypes.InvalidDType {
				c.DType(opts.DType)
			}
			return c.Done()
		}}
}

func quantileEntry(newConfig func(x *graph.Node, q any) *numpy.QuantileConfig, help string) reductionEntry {
	return reductionEntry{kind: quantileKind, help: help,
		build: func(x *graph.Node, opts *Options) *graph.Node {
			return configureQuantile(newConfig(x, opts.q()), opts).Method(opts.Method).Done()
		}}
}

func medianEntry(newConfig func(x *graph.Node) *numpy.QuantileConfig, help string) reductionEntry {
	return reductionEntry{kind: medianKind, help: help,
		build: func(x *graph.Node, opts *Options) *graph.Node {
			return configureQuantile(newConfig(x), opts).Done()
		}}
}

func configureQuantile(c *numpy.QuantileConfig, opts *Options) *numpy.QuantileConfig {
	if opts.AxesSet {
		c.Axes(opts.Axes...)
	}
	if opts.KeepDims {
		c.KeepDims()
	}
	return c
}

// Reduce executes the reduction selected by opts on the input.
func Reduce(backend backends.Backend, input *tensors.Tensor, opts *Options) (*tensors.Tensor, error) {
	r, found := reductions[opts.Op]
	if !found {
		return nil, errors.Errorf("unknown reduction %q", opts.Op)
	}
	result, err := numpy.Eval(backend, func(x *graph.Node) *graph.Node {
		return r.build(x, opts)
	}, input)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to compute %s of %s", opts, input.Shape())
	}
	return result, nil
}
