// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph_test

import (
	"math"
	"testing"

	"github.com/gomlx/npreduce/backends"
	"github.com/gomlx/npreduce/pkg/core/dtypes"
	. "github.com/gomlx/npreduce/pkg/core/graph"
	"github.com/gomlx/npreduce/pkg/core/graph/graphtest"
	"github.com/gomlx/npreduce/pkg/core/shapes"
	"github.com/gomlx/npreduce/pkg/core/tensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Epsilon used for float comparisons in tests.
const Epsilon = 1e-4

func TestBroadcastDimensions(t *testing.T) {
	dims, err := BroadcastDimensions(shapes.Make(dtypes.F32, 3, 1), shapes.Make(dtypes.F32, 4))
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4}, dims)

	dims, err = BroadcastDimensions(shapes.Make(dtypes.F32, 2, 1, 5), shapes.Make(dtypes.F32, 3, 1), shapes.Scalar(dtypes.F32))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 5}, dims)

	_, err = BroadcastDimensions(shapes.Make(dtypes.F32, 3), shapes.Make(dtypes.F32, 4))
	require.Error(t, err)
}

func TestBinaryOps(t *testing.T) {
	graphtest.RunTestGraphFn(t, "Add with broadcasting", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, [][]float32{{1, 2, 3}, {4, 5, 6}})
		y := Const(g, []float32{10, 20, 30})
		inputs = []*Node{x, y}
		outputs = []*Node{Add(x, y), Sub(y, x), Mul(x, Const(g, float32(2)))}
		return
	}, []any{
		[][]float32{{11, 22, 33}, {14, 25, 36}},
		[][]float32{{9, 18, 27}, {6, 15, 24}},
		[][]float32{{2, 4, 6}, {8, 10, 12}},
	}, -1)

	graphtest.RunTestGraphFn(t, "Outer broadcasting", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, [][]int32{{1}, {2}, {3}})
		y := Const(g, [][]int32{{10, 20}})
		inputs = []*Node{x, y}
		outputs = []*Node{Mul(x, y)}
		return
	}, []any{
		[][]int32{{10, 20}, {20, 40}, {30, 60}},
	}, -1)

	graphtest.RunTestGraphFn(t, "Max/Min with NaN", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, []float64{1, math.NaN(), 5})
		y := Const(g, []float64{3, 2, math.NaN()})
		inputs = []*Node{x, y}
		outputs = []*Node{Max(x, y), Min(x, y)}
		return
	}, []any{
		[]float64{3, math.NaN(), math.NaN()},
		[]float64{1, math.NaN(), math.NaN()},
	}, -1)

	graphtest.RunTestGraphFn(t, "Comparisons", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, []int64{1, 2, 3})
		two := Const(g, int64(2))
		inputs = []*Node{x}
		outputs = []*Node{Equal(x, two), NotEqual(x, two), LessThan(x, two), GreaterOrEqual(x, two)}
		return
	}, []any{
		[]bool{false, true, false},
		[]bool{true, false, true},
		[]bool{true, false, false},
		[]bool{false, true, true},
	}, -1)

	backend := graphtest.BuildTestBackend()
	_, err := ExecOnce(backend, func(x, y *Node) *Node { return Add(x, y) }, []float32{1, 2, 3}, []float32{1, 2})
	require.Error(t, err, "incompatible shapes should fail to broadcast")
	_, err = ExecOnce(backend, func(x, y *Node) *Node { return Add(x, y) }, []float32{1, 2}, []float64{1, 2})
	require.Error(t, err, "different dtypes should fail")
}

func TestUnaryOps(t *testing.T) {
	graphtest.RunTestGraphFn(t, "Unary", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, []float64{-2.5, 4, math.NaN()})
		inputs = []*Node{x}
		outputs = []*Node{Abs(x), Neg(x), Floor(x), Ceil(x), IsNaN(x)}
		return
	}, []any{
		[]float64{2.5, 4, math.NaN()},
		[]float64{2.5, -4, math.NaN()},
		[]float64{-3, 4, math.NaN()},
		[]float64{-2, 4, math.NaN()},
		[]bool{false, false, true},
	}, -1)

	graphtest.RunTestGraphFn(t, "Complex", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, []complex128{3 + 4i, -1i})
		inputs = []*Node{x}
		outputs = []*Node{Abs(x), Real(x), Imag(x), Conj(x)}
		return
	}, []any{
		[]float64{5, 1},
		[]float64{3, 0},
		[]float64{4, -1},
		[]complex128{3 - 4i, 1i},
	}, Epsilon)

	graphtest.RunTestGraphFn(t, "IsNaN of integers", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, []int32{1, 2})
		inputs = []*Node{x}
		outputs = []*Node{IsNaN(x), Sqrt(Const(g, []float32{4, 9}))}
		return
	}, []any{
		[]bool{false, false},
		[]float32{2, 3},
	}, -1)
}

func TestWhereAndClamp(t *testing.T) {
	graphtest.RunTestGraphFn(t, "Where", func(g *Graph) (inputs, outputs []*Node) {
		cond := Const(g, [][]bool{{true, false}, {false, true}})
		x := Const(g, []float32{1, 2})
		inputs = []*Node{cond, x}
		outputs = []*Node{
			Where(cond, x, Const(g, float32(0))),
			Where(Const(g, []bool{true, false}), Const(g, float32(7)), Const(g, float32(-7))),
		}
		return
	}, []any{
		[][]float32{{1, 0}, {0, 2}},
		[]float32{7, -7},
	}, -1)

	graphtest.RunTestGraphFn(t, "Clamp", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, []float64{-5, 0.5, 5, math.NaN()})
		inputs = []*Node{x}
		outputs = []*Node{Clamp(Const(g, 0.0), x, Const(g, 1.0))}
		return
	}, []any{
		[]float64{0, 0.5, 1, math.NaN()},
	}, -1)
}

func TestShapeOps(t *testing.T) {
	graphtest.RunTestGraphFn(t, "Reshape and ExpandAxes", func(g *Graph) (inputs, outputs []*Node) {
		x := IotaFull(g, shapes.Make(dtypes.Int32, 2, 3))
		inputs = []*Node{x}
		outputs = []*Node{Reshape(x, 3, -1), ExpandAxes(x, 0, -1), ExpandAxes(x, 1)}
		return
	}, []any{
		[][]int32{{0, 1}, {2, 3}, {4, 5}},
		[][][][]int32{{{{0}, {1}, {2}}, {{3}, {4}, {5}}}},
		[][][]int32{{{0, 1, 2}}, {{3, 4, 5}}},
	}, -1)

	graphtest.RunTestGraphFn(t, "Transpose and Concatenate", func(g *Graph) (inputs, outputs []*Node) {
		x := IotaFull(g, shapes.Make(dtypes.Float32, 2, 3))
		inputs = []*Node{x}
		outputs = []*Node{
			TransposeAllAxes(x, 1, 0),
			Concatenate([]*Node{x, x}, 0),
			Concatenate([]*Node{x, Const(g, [][]float32{{9}, {9}})}, -1),
		}
		return
	}, []any{
		[][]float32{{0, 3}, {1, 4}, {2, 5}},
		[][]float32{{0, 1, 2}, {3, 4, 5}, {0, 1, 2}, {3, 4, 5}},
		[][]float32{{0, 1, 2, 9}, {3, 4, 5, 9}},
	}, -1)

	graphtest.RunTestGraphFn(t, "ConvertDType and BroadcastToDims", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, []float64{-1.7, 0, 2.9})
		inputs = []*Node{x}
		outputs = []*Node{
			ConvertDType(x, dtypes.Int32),
			ConvertDType(x, dtypes.Bool),
			BroadcastToDims(Const(g, []int8{1, 2}), 2, 2),
		}
		return
	}, []any{
		[]int32{-1, 0, 2},
		[]bool{true, false, true},
		[][]int8{{1, 2}, {1, 2}},
	}, -1)
}

func TestReduce(t *testing.T) {
	graphtest.RunTestGraphFn(t, "Reductions", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, [][]float64{{1, 3, 4, 2}, {5, 2, 6, 3}, {8, 1, 3, 9}})
		inputs = []*Node{x}
		outputs = []*Node{
			ReduceAllSum(x),
			ReduceSum(x, 1),
			ReduceSum(x, -2),
			ReduceMax(x, 0),
			ReduceMin(x),
			ReduceMultiply(x, 1),
		}
		return
	}, []any{
		47.0,
		[]float64{10, 16, 21},
		[]float64{14, 6, 13, 14},
		[]float64{8, 3, 6, 9},
		1.0,
		[]float64{24, 180, 216},
	}, -1)

	graphtest.RunTestGraphFn(t, "Empty and NaN reductions", func(g *Graph) (inputs, outputs []*Node) {
		empty := ConstTensor(g, tensors.FromShape(shapes.Make(dtypes.Float32, 2, 0)))
		x := Const(g, []float32{1, float32(math.NaN()), 3})
		inputs = []*Node{x}
		outputs = []*Node{ReduceMax(x), ReduceSum(x), ReduceSum(empty, 1)}
		return
	}, []any{
		float32(math.NaN()),
		float32(math.NaN()),
		[]float32{0, 0},
	}, -1)

	graphtest.RunTestGraphFn(t, "Logical reductions", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, [][]bool{{true, false}, {true, true}})
		inputs = []*Node{x}
		outputs = []*Node{ReduceLogicalAnd(x, 1), ReduceLogicalOr(x, 0), ReduceLogicalAnd(x)}
		return
	}, []any{
		[]bool{false, true},
		[]bool{true, true},
		false,
	}, -1)

	graphtest.RunTestGraphFn(t, "Integer identities", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, []int8{-3, 7})
		inputs = []*Node{x}
		outputs = []*Node{ReduceMax(x), ReduceMin(x), ReduceIdentity(g, backends.ReduceOpMax, dtypes.Uint16)}
		return
	}, []any{
		int8(7),
		int8(-3),
		uint16(0),
	}, -1)

	backend := graphtest.BuildTestBackend()
	_, err := ExecOnce(backend, func(x *Node) *Node {
		return Reduce(x, backends.ReduceOpSum, Const(x.Graph(), float32(1)))
	}, []float32{1, 2})
	require.Error(t, err, "Reduce should reject an init value that is not the identity")
	_, err = ExecOnce(backend, func(x *Node) *Node { return ReduceSum(x, 0, 0) }, [][]float32{{1, 2}})
	require.Error(t, err, "duplicate axes should fail")
	_, err = ExecOnce(backend, func(x *Node) *Node { return ReduceSum(x, 2) }, [][]float32{{1, 2}})
	require.Error(t, err, "out-of-range axes should fail")
}

func TestCumulative(t *testing.T) {
	graphtest.RunTestGraphFn(t, "CumSum and CumProd", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, [][]int32{{1, 2, 3}, {4, 5, 6}})
		inputs = []*Node{x}
		outputs = []*Node{
			CumSum(x, 1),
			CumSum(x, 0),
			CumProd(x, -1),
			Cumulative(x, backends.ReduceOpSum, 1, true),
		}
		return
	}, []any{
		[][]int32{{1, 3, 6}, {4, 9, 15}},
		[][]int32{{1, 2, 3}, {5, 7, 9}},
		[][]int32{{1, 2, 6}, {4, 20, 120}},
		[][]int32{{6, 5, 3}, {15, 11, 6}},
	}, -1)
}

func TestSortAndTakeAlongAxis(t *testing.T) {
	graphtest.RunTestGraphFn(t, "Sort", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, [][]float64{{3, math.NaN(), 1}, {2, 0, -1}})
		inputs = []*Node{x}
		outputs = []*Node{Sort(x, -1), Sort(x, 0)}
		return
	}, []any{
		[][]float64{{1, 3, math.NaN()}, {-1, 0, 2}},
		[][]float64{{2, 0, -1}, {3, math.NaN(), 1}},
	}, -1)

	graphtest.RunTestGraphFn(t, "TakeAlongAxis", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, [][]float32{{10, 20, 30}, {40, 50, 60}})
		indices := Const(g, [][]int32{{2}, {0}})
		inputs = []*Node{x, indices}
		outputs = []*Node{
			TakeAlongAxis(x, indices, 1),
			TakeAlongAxis(x, Const(g, [][]int64{{1, 0, 5}}), 0),
		}
		return
	}, []any{
		[][]float32{{30}, {40}},
		[][]float32{{40, 20, 60}},
	}, -1)
}

func TestAllReduce(t *testing.T) {
	graphtest.RunTestGraphFn(t, "AllReduce single replica", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, []float32{1, 2})
		y := Const(g, int64(3))
		inputs = []*Node{x, y}
		outputs = AllReduce([]*Node{x, y}, backends.ReduceOpSum, nil)
		return
	}, []any{
		[]float32{1, 2},
		int64(3),
	}, -1)
}

func TestScalarCache(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	g := NewGraph(backend, "scalars")
	defer g.Finalize()
	g.AssertBuilding()
	a := Scalar(g, dtypes.Float32, 2)
	b := Scalar(g, dtypes.Float32, 2.0)
	c := Scalar(g, dtypes.Float64, 2)
	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, dtypes.Float64, c.DType())
	assert.Equal(t, backends.OpTypeConstant, a.Type())
	assert.Contains(t, g.String(), "Constant")
}
