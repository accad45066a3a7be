// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package numpy_test

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/gomlx/npreduce/pkg/core/dtypes"
	. "github.com/gomlx/npreduce/pkg/core/graph"
	"github.com/gomlx/npreduce/pkg/core/graph/graphtest"
	"github.com/gomlx/npreduce/pkg/core/tensors"
	"github.com/gomlx/npreduce/pkg/numpy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

func TestMean(t *testing.T) {
	graphtest.RunTestGraphFn(t, "Mean", func(g *Graph) (inputs, outputs []*Node) {
		a := Const(g, testA)
		x := Const(g, testX)
		where := Const(g, [][]bool{{false, false, true, false}, {false, false, true, true}, {true, true, true, false}})
		inputs = []*Node{a, x}
		outputs = []*Node{
			numpy.Mean(a).Done(),
			numpy.Mean(a).Axes(1).Done(),
			numpy.Mean(x).Done(),
			numpy.Mean(a).Axes(1).Where(where).Done(),
			numpy.Mean(x).Axes(0).KeepDims().DType(dtypes.Float32).Done(),
		}
		return
	}, []any{
		47.0 / 12.0,
		[]float64{2.5, 4, 5.25},
		4.75,
		[]float64{4, 4.5, 4},
		[][]float32{{22.0 / 3.0, 2, 14.0 / 3.0, 5}},
	}, 1e-5)
}

func TestVarStd(t *testing.T) {
	graphtest.RunTestGraphFn(t, "Var and Std", func(g *Graph) (inputs, outputs []*Node) {
		a := Const(g, testA)
		c := Const(g, []complex64{1 + 1i, 3 + 3i})
		inputs = []*Node{a, c}
		outputs = []*Node{
			numpy.Var(a).Axes(1).Done(),
			numpy.Var(a).Axes(1).DDof(1).Done(),
			numpy.Var(a).Axes(1).Correction(1.5).KeepDims().Done(),
			numpy.Std(a).Axes(1).Done(),
			numpy.Var(c).Done(),
			numpy.Var(Const(g, []float32{3})).DDof(1).Done(),
			numpy.Var(a).Axes(1).Where(Const(g, []bool{true, true, false, false})).Done(),
		}
		return
	}, []any{
		[]float64{1.25, 2.5, 11.1875},
		[]float64{5.0 / 3.0, 10.0 / 3.0, 44.75 / 3.0},
		[][]float64{{2}, {4}, {17.9}},
		[]float64{math.Sqrt(1.25), math.Sqrt(2.5), math.Sqrt(11.1875)},
		float32(2),
		float32(math.NaN()),
		[]float64{1, 2.25, 12.25},
	}, 1e-5)
}

func TestAverage(t *testing.T) {
	graphtest.RunTestGraphFn(t, "Average", func(g *Graph) (inputs, outputs []*Node) {
		a := Const(g, testA)
		x := Const(g, testX)
		inputs = []*Node{a, x}
		avg, weightsSum := numpy.Average(a).Axes(1).Weights([]float64{1, 0, 0, 1}).DoneWithWeightsSum()
		unweighted, count := numpy.Average(a).DoneWithWeightsSum()
		outputs = []*Node{
			avg, weightsSum,
			unweighted, count,
			numpy.Average(x).Weights(x).Done(),
			numpy.Average(a).Axes(-1).Weights([]float32{1, 1, 1, 1}).KeepDims().Done(),
		}
		return
	}, []any{
		[]float64{1.5, 4, 8.5}, []float64{2, 2, 2},
		47.0 / 12.0, 12.0,
		335.0 / 57.0,
		[][]float64{{2.5}, {4}, {5.25}},
	}, 1e-5)
}

func TestPtpAndCountNonzero(t *testing.T) {
	graphtest.RunTestGraphFn(t, "Ptp and CountNonzero", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, testX)
		z := Const(g, [][]float32{{1, 0, 2}, {0, 0, 5}})
		inputs = []*Node{x, z}
		outputs = []*Node{
			numpy.Ptp(x).Axes(1).Done(),
			numpy.Ptp(x).Done(),
			numpy.CountNonzero(z).Done(),
			numpy.CountNonzero(z).Axes(0).Done(),
			numpy.CountNonzero(z).Axes(1).KeepDims().Done(),
			numpy.CountNonzero(Const(g, []bool{true, false, true})).Done(),
		}
		return
	}, []any{
		[]int32{6, 5, 7},
		int32(8),
		int64(3),
		[]int64{1, 0, 2},
		[][]int64{{2}, {1}},
		int64(2),
	}, -1)
}

// TestStatsOracle compares the statistics with gonum's implementations on random data.
func TestStatsOracle(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	rng := rand.New(rand.NewPCG(42, 7))
	for _, size := range []int{1, 2, 7, 100} {
		data := make([]float64, size)
		for ii := range data {
			data[ii] = rng.NormFloat64()*3 + 1
		}
		eval := func(fn func(x *Node) *Node) float64 {
			return tensors.ToScalar[float64](numpy.MustEval(backend, fn, data))
		}
		assert.InDelta(t, floats.Sum(data), eval(func(x *Node) *Node { return numpy.Sum(x).Done() }), 1e-9)
		assert.InDelta(t, stat.Mean(data, nil), eval(func(x *Node) *Node { return numpy.Mean(x).Done() }), 1e-9)
		assert.InDelta(t, stat.PopVariance(data, nil), eval(func(x *Node) *Node { return numpy.Var(x).Done() }), 1e-9)
		assert.InDelta(t, floats.Max(data), eval(func(x *Node) *Node { return numpy.Max(x).Done() }), 0)
		assert.InDelta(t, floats.Min(data), eval(func(x *Node) *Node { return numpy.Min(x).Done() }), 0)
		if size > 1 {
			assert.InDelta(t, stat.Variance(data, nil), eval(func(x *Node) *Node { return numpy.Var(x).DDof(1).Done() }), 1e-9)
			assert.InDelta(t, stat.StdDev(data, nil), eval(func(x *Node) *Node { return numpy.Std(x).DDof(1).Done() }), 1e-9)
		}
		weights := make([]float64, size)
		for ii := range weights {
			weights[ii] = rng.Float64()
		}
		assert.InDelta(t, stat.Mean(data, weights), eval(func(x *Node) *Node {
			return numpy.Average(x).Weights(weights).Done()
		}), 1e-9)
	}
}

// TestReductionProperties checks identities between reductions on random data.
func TestReductionProperties(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	rng := rand.New(rand.NewPCG(1, 2))
	data := make([][][]float32, 3)
	for ii := range data {
		data[ii] = make([][]float32, 4)
		for jj := range data[ii] {
			data[ii][jj] = make([]float32, 5)
			for kk := range data[ii][jj] {
				data[ii][jj][kk] = float32(rng.IntN(5) - 2)
			}
		}
	}
	got := numpy.MustEval(backend, func(x *Node) *Node {
		nested := numpy.Sum(numpy.Sum(numpy.Sum(x).Axes(2).Done()).Axes(0).Done()).Done()
		mask := GreaterThan(x, ScalarZero(x.Graph(), dtypes.Float32))
		differences := []*Node{
			// Decomposability of sums.
			Sub(numpy.Sum(x).Done(), nested),
			// Counting non-zeros.
			ConvertDType(Sub(numpy.CountNonzero(x).Done(), numpy.Sum(NotEqual(x, ScalarZero(x.Graph(), dtypes.Float32))).Done()), dtypes.Float32),
			// Masked sums.
			Sub(numpy.Sum(x).Where(mask).Done(), numpy.Sum(Where(mask, x, ScalarZero(x.Graph(), dtypes.Float32))).Done()),
			// Variance as the mean of squared deviations.
			Sub(numpy.Var(x).Done(), numpy.Mean(Square(Sub(x, numpy.Mean(x).Done()))).Done()),
			// Standard deviation as the square root of the variance.
			Sub(numpy.Std(x).Axes(1).DDof(1).Done(), Sqrt(numpy.Var(x).Axes(1).DDof(1).Done())),
			// Median as the midpoint quantile.
			Sub(numpy.Median(x).Axes(0, 2).Done(), numpy.Quantile(x, 0.5).Axes(0, 2).Method(numpy.QuantileMidpoint).Done()),
		}
		for ii, diff := range differences {
			differences[ii] = Reshape(diff, -1)
		}
		return Concatenate(differences, 0)
	}, data)
	tensors.ConstFlatData(got, func(flat []float32) {
		for ii, v := range flat {
			assert.InDeltaf(t, 0, v, 1e-4, "property #%d", ii)
		}
	})
}

func TestStatsErrors(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	tests := []struct {
		name string
		fn   func(x *Node) *Node
	}{
		{"ddof and correction", func(x *Node) *Node { return numpy.Var(x).DDof(1).Correction(1).Done() }},
		{"real dtype for complex variance", func(x *Node) *Node {
			return numpy.Var(ConvertDType(x, dtypes.Complex64)).DType(dtypes.Float32).Done()
		}},
		{"integer std", func(x *Node) *Node { return numpy.Std(x).DType(dtypes.Int32).Done() }},
		{"mean out", func(x *Node) *Node { return numpy.Mean(x).Out(x).Done() }},
		{"average weights without axis", func(x *Node) *Node {
			return numpy.Average(x).Weights([]float64{1, 2, 3, 4}).Done()
		}},
		{"average weights with many axes", func(x *Node) *Node {
			return numpy.Average(x).Axes(0, 1).Weights([]float64{1, 2, 3, 4}).Done()
		}},
		{"average weights length", func(x *Node) *Node {
			return numpy.Average(x).Axes(0).Weights([]float64{1, 2, 3, 4}).Done()
		}},
		{"average 2D weights", func(x *Node) *Node {
			return numpy.Average(x).Axes(1).Weights([][]float64{{1, 2, 3, 4}}).Done()
		}},
		{"ptp of booleans", func(x *Node) *Node { return numpy.Ptp(ConvertDType(x, dtypes.Bool)).Done() }},
		{"count nonzero out", func(x *Node) *Node { return numpy.CountNonzero(x).Out(x).Done() }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := numpy.Eval(backend, test.fn, testA)
			require.Error(t, err)
		})
	}
}
