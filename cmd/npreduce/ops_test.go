// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"math"
	"testing"

	"github.com/gomlx/npreduce/pkg/core/dtypes"
	"github.com/gomlx/npreduce/pkg/core/graph/graphtest"
	"github.com/gomlx/npreduce/pkg/core/tensors"
	"github.com/gomlx/npreduce/pkg/numpy"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReduce(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	input := tensors.FromValue([][]float64{{1, 3, 4, 2}, {5, 2, 6, 3}, {8, 1, 3, 9}})
	tests := []struct {
		opts *Options
		want any
	}{
		{&Options{Op: "sum"}, 47.0},
		{&Options{Op: "sum", Axes: []int{1}, AxesSet: true}, []float64{10, 16, 21}},
		{&Options{Op: "max", Axes: []int{0}, AxesSet: true, KeepDims: true}, [][]float64{{8, 3, 6, 9}}},
		{&Options{Op: "mean", Axes: []int{1}, AxesSet: true}, []float64{2.5, 4, 5.25}},
		{&Options{Op: "var", Axes: []int{1}, AxesSet: true, DDof: 1}, []float64{5.0 / 3.0, 10.0 / 3.0, 44.75 / 3.0}},
		{&Options{Op: "sum", DType: dtypes.Float32}, float32(47)},
		{&Options{Op: "count_nonzero"}, int64(12)},
		{&Options{Op: "ptp", Axes: []int{1}, AxesSet: true}, []float64{3, 4, 8}},
		{&Options{Op: "average"}, 47.0 / 12.0},
		{&Options{Op: "cumsum", Axes: []int{1}, AxesSet: true},
			[][]float64{{1, 4, 8, 10}, {5, 7, 13, 16}, {8, 9, 12, 21}}},
		{&Options{Op: "quantile", Q: []float64{0.5}, Axes: []int{1}, AxesSet: true}, []float64{2.5, 4, 5.5}},
		{&Options{Op: "percentile", Q: []float64{0, 100}}, []float64{1, 9}},
		{&Options{Op: "quantile", Q: []float64{0.5}, Method: numpy.QuantileLower, Axes: []int{1}, AxesSet: true},
			[]float64{2, 3, 3}},
		{&Options{Op: "median", Axes: []int{0}, AxesSet: true}, []float64{5, 2, 4, 3}},
	}
	for _, test := range tests {
		t.Run(test.opts.String(), func(t *testing.T) {
			got, err := Reduce(backend, input, test.opts)
			require.NoError(t, err)
			want := tensors.FromAnyValue(test.want)
			require.Truef(t, want.InDelta(got, 1e-9), "got %s, want %s", got, want)
		})
	}
}

func TestReduceErrors(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	input := tensors.FromValue([][]float32{{1, 2}, {3, 4}})
	for _, opts := range []*Options{
		{Op: "no_such_reduction"},
		{Op: "sum", Axes: []int{2}, AxesSet: true},
		{Op: "cumsum", Axes: []int{0, 1}, AxesSet: true},
		{Op: "quantile", Q: []float64{2}},
		{Op: "std", DType: dtypes.Int32},
	} {
		_, err := Reduce(backend, input, opts)
		require.Errorf(t, err, "reduction %+v should have failed", opts)
	}
}

func TestEveryReduction(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	input := tensors.FromValue([]float32{1, float32(math.NaN()), 3, 2})
	for _, name := range []string{"sum", "nansum", "nanprod", "nanmax", "nanmin", "nanmean", "nanvar", "nanstd",
		"nancumsum", "nancumprod", "nanquantile", "nanpercentile", "nanmedian", "all", "any", "cumulative_sum"} {
		r, found := reductions[name]
		require.Truef(t, found, "reduction %q not registered", name)
		assert.NotEmpty(t, r.help)
		opts := &Options{Op: name, Q: []float64{0.5}}
		if name == "nanpercentile" {
			opts.Q = []float64{50}
		}
		got := must.M1(Reduce(backend, input, opts))
		assert.NotNil(t, got, name)
	}
}

func TestListReductions(t *testing.T) {
	configureStyle(false)
	var buf bytes.Buffer
	listReductions(&buf)
	output := buf.String()
	for name := range reductions {
		assert.Contains(t, output, name)
	}
}

func TestReport(t *testing.T) {
	configureStyle(false)
	input := tensors.FromValue([][]int32{{1, 2}, {3, 4}})
	result := tensors.FromValue([]int64{4, 6})
	opts := &Options{Op: "sum", Axes: []int{0}, AxesSet: true, KeepDims: false}
	var buf bytes.Buffer
	report(&buf, "x.npy", input, opts, result, 6)
	output := buf.String()
	assert.Contains(t, output, "x.npy")
	assert.Contains(t, output, "sum axes=[0]")
	assert.Contains(t, output, "Result")
}
