// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package numpy_test

import (
	"math"
	"testing"

	"github.com/gomlx/npreduce/pkg/core/dtypes"
	. "github.com/gomlx/npreduce/pkg/core/graph"
	"github.com/gomlx/npreduce/pkg/core/graph/graphtest"
	"github.com/gomlx/npreduce/pkg/core/shapes"
	"github.com/gomlx/npreduce/pkg/core/tensors"
	"github.com/gomlx/npreduce/pkg/numpy"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

var (
	testA = [][]float64{{1, 3, 4, 2}, {5, 2, 6, 3}, {8, 1, 3, 9}}
	testX = [][]int32{{9, 3, 4, 5}, {5, 2, 7, 4}, {8, 1, 3, 6}}
)

func TestSum(t *testing.T) {
	graphtest.RunTestGraphFn(t, "Sum", func(g *Graph) (inputs, outputs []*Node) {
		a := Const(g, testA)
		where := Const(g, [][]bool{{false, false, true, false}, {false, false, true, true}, {true, true, true, false}})
		inputs = []*Node{a, where}
		outputs = []*Node{
			numpy.Sum(a).Done(),
			numpy.Sum(a).Axes(1).Done(),
			numpy.Sum(a).Axes(1).KeepDims().Where(where).Done(),
			numpy.Sum(a).Axes(-2).Done(),
			numpy.Sum(a).Axes(0, 1).KeepDims().Done(),
			numpy.Sum(a).Axes().Done(),
			numpy.Sum(a).Axes(1).Initial(10.0).Done(),
			numpy.Sum(a).Where([]int{0, 1, 1, 0}).Done(),
		}
		return
	}, []any{
		47.0,
		[]float64{10, 16, 21},
		[][]float64{{4}, {9}, {12}},
		[]float64{14, 6, 13, 14},
		[][]float64{{47}},
		testA,
		[]float64{20, 26, 31},
		19.0,
	}, -1)

	graphtest.RunTestGraphFn(t, "Sum dtypes", func(g *Graph) (inputs, outputs []*Node) {
		i8 := Const(g, []int8{100, 100, 100})
		u8 := Const(g, []uint8{200, 200})
		b := Const(g, []bool{true, false, true})
		f16 := Const(g, []float16.Float16{float16.Fromfloat32(1.5), float16.Fromfloat32(2)})
		inputs = []*Node{i8, u8, b, f16}
		outputs = []*Node{
			numpy.Sum(i8).Done(),
			numpy.Sum(i8).PromoteIntegers(false).Done(),
			numpy.Sum(u8).Done(),
			numpy.Sum(b).Done(),
			numpy.Sum(f16).Done(),
			numpy.Sum(i8).DType(dtypes.Float32).Done(),
			numpy.Sum(b).DType(dtypes.Bool).Done(),
		}
		return
	}, []any{
		int64(300),
		int8(44), // Wraps around.
		uint64(400),
		int64(2),
		float16.Fromfloat32(3.5),
		float32(300),
		true,
	}, -1)

	graphtest.RunTestGraphFn(t, "Sum complex and empty", func(g *Graph) (inputs, outputs []*Node) {
		c := Const(g, []complex64{1 + 2i, 3 - 1i})
		empty := ConstTensor(g, tensors.FromShape(shapes.Make(dtypes.Float32, 0, 3)))
		inputs = []*Node{c}
		outputs = []*Node{numpy.Sum(c).Done(), numpy.Sum(empty).Axes(0).Done(), numpy.Prod(empty).Done()}
		return
	}, []any{
		complex64(4 + 1i),
		[]float32{0, 0, 0},
		float32(1),
	}, -1)
}

func TestProd(t *testing.T) {
	graphtest.RunTestGraphFn(t, "Prod", func(g *Graph) (inputs, outputs []*Node) {
		a := Const(g, testA)
		i := Const(g, []int16{2, 3, 4})
		inputs = []*Node{a, i}
		outputs = []*Node{
			numpy.Prod(a).Axes(1).Done(),
			numpy.Prod(i).Done(),
			numpy.Prod(i).Initial(2).Done(),
			numpy.Prod(a).Axes(1).Where(Const(g, []bool{true, false, false, true})).Done(),
		}
		return
	}, []any{
		[]float64{24, 180, 216},
		int64(24),
		int64(48),
		[]float64{2, 15, 72},
	}, -1)
}

func TestMaxMin(t *testing.T) {
	graphtest.RunTestGraphFn(t, "Max and Min", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, testX)
		inputs = []*Node{x}
		outputs = []*Node{
			numpy.Max(x).Done(),
			numpy.Max(x).Axes(1).Done(),
			numpy.AMax(x).Axes(0).KeepDims().Done(),
			numpy.Min(x).Done(),
			numpy.AMin(x).Axes(-1).Done(),
			numpy.Max(x).Axes(1).Initial(int32(8)).Done(),
			numpy.Min(x).Axes(1).Where(Const(g, []bool{true, false, false, true})).Initial(int32(100)).Done(),
		}
		return
	}, []any{
		int32(9),
		[]int32{9, 7, 8},
		[][]int32{{9, 3, 7, 6}},
		int32(1),
		[]int32{3, 2, 1},
		[]int32{9, 8, 8},
		[]int32{5, 4, 6},
	}, -1)

	graphtest.RunTestGraphFn(t, "Max and Min special values", func(g *Graph) (inputs, outputs []*Node) {
		f := Const(g, []float32{1, float32(math.NaN()), 3})
		b := Const(g, [][]bool{{true, false}, {false, false}})
		empty := ConstTensor(g, tensors.FromShape(shapes.Make(dtypes.Float32, 0)))
		inputs = []*Node{f, b}
		outputs = []*Node{
			numpy.Max(f).Done(),
			numpy.Max(b).Axes(1).Done(),
			numpy.Min(b).Axes(0).Done(),
			numpy.Max(empty).Initial(float32(-1)).Done(),
		}
		return
	}, []any{
		float32(math.NaN()),
		[]bool{true, false},
		[]bool{false, false},
		float32(-1),
	}, -1)
}

func TestAllAny(t *testing.T) {
	graphtest.RunTestGraphFn(t, "All and Any", func(g *Graph) (inputs, outputs []*Node) {
		x := Const(g, [][]float32{{1, 0, 2}, {3, 4, 5}})
		inputs = []*Node{x}
		outputs = []*Node{
			numpy.All(x).Done(),
			numpy.All(x).Axes(1).Done(),
			numpy.Any(x).Axes(0).KeepDims().Done(),
			numpy.All(x).Where(Const(g, []bool{true, false, true})).Done(),
			numpy.Any(ConstTensor(g, tensors.FromShape(shapes.Make(dtypes.Int32, 0)))).Done(),
		}
		return
	}, []any{
		false,
		[]bool{false, true},
		[][]bool{{true, true, true}},
		true,
		false,
	}, -1)
}

func TestNamedAxes(t *testing.T) {
	collective, err := numpy.NewMeshCollective([]int{1}, []string{"batch"})
	require.NoError(t, err)
	graphtest.RunTestGraphFn(t, "Named axes", func(g *Graph) (inputs, outputs []*Node) {
		a := Const(g, testA)
		inputs = []*Node{a}
		outputs = []*Node{
			numpy.Sum(a).NamedAxes("batch").Collective(collective).Done(),
			numpy.Max(a).Axes(1).NamedAxes("batch").Collective(collective).Done(),
		}
		return
	}, []any{
		testA,
		[]float64{4, 6, 9},
	}, -1)
}

func TestReduceErrors(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	collective, err := numpy.NewMeshCollective([]int{1}, []string{"batch"})
	require.NoError(t, err)
	tests := []struct {
		name string
		fn   func(x *Node) *Node
	}{
		{"out argument", func(x *Node) *Node { return numpy.Sum(x).Out(x).Done() }},
		{"duplicate axes", func(x *Node) *Node { return numpy.Sum(x).Axes(1, -1).Done() }},
		{"axis out of range", func(x *Node) *Node { return numpy.Sum(x).Axes(2).Done() }},
		{"where without identity", func(x *Node) *Node { return numpy.Max(x).Where(true).Done() }},
		{"non-scalar initial", func(x *Node) *Node { return numpy.Sum(x).Initial([]float64{1, 2}).Done() }},
		{"zero-size max", func(x *Node) *Node {
			return numpy.Max(ConstTensor(x.Graph(), tensors.FromShape(shapes.Make(dtypes.Float32, 0)))).Done()
		}},
		{"complex max", func(x *Node) *Node { return numpy.Max(ConvertDType(x, dtypes.Complex64)).Done() }},
		{"named axes without collective", func(x *Node) *Node { return numpy.Sum(x).NamedAxes("batch").Done() }},
		{"unknown named axis", func(x *Node) *Node {
			return numpy.Sum(x).NamedAxes("model").Collective(collective).Done()
		}},
		{"logical reduction dtype", func(x *Node) *Node { return numpy.All(x).DType(dtypes.Int32).Done() }},
		{"where shape", func(x *Node) *Node { return numpy.Sum(x).Where([]bool{true, false, true}).Done() }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := numpy.Eval(backend, test.fn, testA)
			require.Error(t, err)
		})
	}
}
