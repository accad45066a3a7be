// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package numpy_test

import (
	"math"
	"testing"

	. "github.com/gomlx/npreduce/pkg/core/graph"
	"github.com/gomlx/npreduce/pkg/core/graph/graphtest"
	"github.com/gomlx/npreduce/pkg/numpy"
)

var nan = math.NaN()

func TestNanReductions(t *testing.T) {
	graphtest.RunTestGraphFn(t, "NaN-skipping reductions", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, []float64{1, nan, 2, 4})
		m := Const(g, [][]float32{{1, float32(nan)}, {float32(nan), float32(nan)}})
		inputs = []*Node{x, m}
		outputs = []*Node{
			numpy.NanSum(x).Done(),
			numpy.NanProd(x).Done(),
			numpy.NanMax(x).Done(),
			numpy.NanMin(x).Done(),
			numpy.NanMax(m).Axes(1).Done(),
			numpy.NanMin(m).Axes(0).KeepDims().Done(),
			numpy.NanSum(m).Axes(1).Done(),
			numpy.NanMax(m).Axes(1).Initial(float32(3)).Done(),
			numpy.Sum(x).Done(),
		}
		return
	}, []any{
		7.0,
		8.0,
		4.0,
		1.0,
		[]float32{1, float32(nan)},
		[][]float32{{1, float32(nan)}},
		[]float32{1, 0},
		[]float32{3, 3},
		nan,
	}, 1e-6)
}

func TestNanReductionsOfIntegers(t *testing.T) {
	graphtest.RunTestGraphFn(t, "NaN-skipping reductions of integers", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, []int32{1, 2, 6})
		inputs = []*Node{x}
		outputs = []*Node{
			numpy.NanSum(x).Done(),
			numpy.NanMax(x).Done(),
			numpy.NanMean(x).Done(),
			numpy.NanVar(x).Done(),
		}
		return
	}, []any{
		int64(9),
		int32(6),
		3.0,
		14.0 / 3.0,
	}, 1e-6)
}

func TestNanStats(t *testing.T) {
	graphtest.RunTestGraphFn(t, "NaN-skipping statistics", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, []float64{1, nan, 2, 4})
		allNaN := Const(g, []float32{float32(nan), float32(nan)})
		m := Const(g, [][]float64{{1, nan, 3}, {nan, 5, nan}})
		inputs = []*Node{x, allNaN, m}
		outputs = []*Node{
			numpy.NanMean(x).Done(),
			numpy.NanVar(x).Done(),
			numpy.NanVar(x).DDof(1).Done(),
			numpy.NanStd(x).Done(),
			numpy.NanMean(allNaN).Done(),
			numpy.NanSum(allNaN).Done(),
			numpy.NanMax(allNaN).Done(),
			numpy.NanMean(m).Axes(1).Done(),
			numpy.NanVar(m).Axes(1).DDof(1).Done(),
			numpy.NanStd(m).Axes(-1).KeepDims().Done(),
		}
		return
	}, []any{
		7.0 / 3.0,
		14.0 / 9.0,
		7.0 / 3.0,
		math.Sqrt(14.0 / 9.0),
		float32(nan),
		float32(0),
		float32(nan),
		[]float64{2, 5},
		[]float64{2, nan},
		[][]float64{{1}, {0}},
	}, 1e-6)
}
