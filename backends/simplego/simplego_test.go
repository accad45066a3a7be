// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"math"
	"testing"

	"github.com/gomlx/npreduce/backends"
	"github.com/gomlx/npreduce/pkg/core/dtypes"
	"github.com/gomlx/npreduce/pkg/core/shapes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

var backend = newBackend()

func must1[T any](value T, err error) T {
	if err != nil {
		panic(err)
	}
	return value
}

// execOne builds a graph with buildFn, compiles and executes it with the given flat inputs, and returns
// the flat values of the single output.
func execOne(t *testing.T, inputs []any, inputShapes []shapes.Shape, buildFn func(b *Builder, params []backends.Op) backends.Op) (any, shapes.Shape) {
	b := backend.Builder(t.Name()).(*Builder)
	params := make([]backends.Op, len(inputs))
	buffers := make([]backends.Buffer, len(inputs))
	for ii, shape := range inputShapes {
		params[ii] = must1(b.Parameter("x", shape))
		buffers[ii] = must1(backend.BufferFromFlatData(inputs[ii], shape))
	}
	exec := must1(b.Compile(buildFn(b, params)))
	outputs, err := exec.Execute(buffers, nil)
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	shape := must1(backend.BufferShape(outputs[0]))
	flat := outputs[0].(*Buffer).flat
	return flat, shape
}

func TestNew(t *testing.T) {
	b, err := New("ops_sequential")
	require.NoError(t, err)
	assert.Equal(t, opsExecutionSequential, b.(*Backend).opsExecutionType)
	_, err = New("fast_please")
	require.Error(t, err)

	b, err = backends.NewWithConfig("go:ops_parallel")
	require.NoError(t, err)
	assert.Equal(t, "go", b.Name())
	assert.Equal(t, 1, b.NumReplicas())
	assert.True(t, b.Capabilities().Supports(backends.OpTypeReduce))
}

func TestBuffers(t *testing.T) {
	shape := shapes.Make(dtypes.Float32, 2)
	buf := must1(backend.BufferFromFlatData([]float32{1, 2}, shape))
	got := make([]float32, 2)
	require.NoError(t, backend.BufferToFlatData(buf, got))
	assert.Equal(t, []float32{1, 2}, got)
	require.Error(t, backend.BufferToFlatData(buf, make([]float64, 2)))
	require.NoError(t, backend.BufferFinalize(buf))
	require.Error(t, backend.BufferFinalize(buf))

	_, err := backend.BufferFromFlatData([]int32{1, 2}, shape)
	require.Error(t, err)
	_, err = backend.BufferFromFlatData([]float32{1, 2, 3}, shape)
	require.Error(t, err)
}

func TestBinaryAndUnaryOps(t *testing.T) {
	f32 := shapes.Make(dtypes.Float32, 3)
	flat, _ := execOne(t, []any{[]float32{1, 4, 9}, []float32{2}}, []shapes.Shape{f32, shapes.Make(dtypes.Float32)},
		func(b *Builder, p []backends.Op) backends.Op {
			return must1(b.Add(must1(b.Sqrt(p[0])), p[1]))
		})
	assert.Equal(t, []float32{3, 4, 5}, flat)

	// Integer division truncates, and division by zero is 0.
	i32 := shapes.Make(dtypes.Int32, 3)
	flat, _ = execOne(t, []any{[]int32{7, -7, 5}, []int32{2, 2, 0}}, []shapes.Shape{i32, i32},
		func(b *Builder, p []backends.Op) backends.Op { return must1(b.Div(p[0], p[1])) })
	assert.Equal(t, []int32{3, -3, 0}, flat)

	// Max propagates NaN.
	f64 := shapes.Make(dtypes.Float64, 2)
	flat, _ = execOne(t, []any{[]float64{1, math.NaN()}, []float64{2, 0}}, []shapes.Shape{f64, f64},
		func(b *Builder, p []backends.Op) backends.Op { return must1(b.Max(p[0], p[1])) })
	got := flat.([]float64)
	assert.Equal(t, 2.0, got[0])
	assert.True(t, math.IsNaN(got[1]))

	// Abs of complex returns the real dtype.
	c64 := shapes.Make(dtypes.Complex64, 1)
	flat, shape := execOne(t, []any{[]complex64{3 + 4i}}, []shapes.Shape{c64},
		func(b *Builder, p []backends.Op) backends.Op { return must1(b.Abs(p[0])) })
	assert.Equal(t, dtypes.Float32, shape.DType)
	assert.Equal(t, []float32{5}, flat)

	// Float16 values are computed in float64 and rounded back.
	f16 := shapes.Make(dtypes.Float16, 2)
	flat, _ = execOne(t, []any{[]float16.Float16{float16.Fromfloat32(1.5), float16.Fromfloat32(-2)}}, []shapes.Shape{f16},
		func(b *Builder, p []backends.Op) backends.Op { return must1(b.Neg(p[0])) })
	assert.Equal(t, []float16.Float16{float16.Fromfloat32(-1.5), float16.Fromfloat32(2)}, flat)
}

func TestComparisonAndWhere(t *testing.T) {
	f64 := shapes.Make(dtypes.Float64, 3)
	flat, _ := execOne(t, []any{[]float64{1, math.NaN(), 3}}, []shapes.Shape{f64},
		func(b *Builder, p []backends.Op) backends.Op {
			isNaN := must1(b.IsNaN(p[0]))
			zero := must1(b.Constant([]float64{0}))
			return must1(b.Where(isNaN, zero, p[0]))
		})
	assert.Equal(t, []float64{1, 0, 3}, flat)

	flat, _ = execOne(t, []any{[]float64{1, math.NaN(), 3}}, []shapes.Shape{f64},
		func(b *Builder, p []backends.Op) backends.Op {
			return must1(b.GreaterThan(p[0], must1(b.Constant([]float64{2}))))
		})
	assert.Equal(t, []bool{false, false, true}, flat)
}

func TestConvertDType(t *testing.T) {
	f64 := shapes.Make(dtypes.Float64, 5)
	flat, _ := execOne(t, []any{[]float64{1.7, -1.7, 300, math.NaN(), -300}}, []shapes.Shape{f64},
		func(b *Builder, p []backends.Op) backends.Op { return must1(b.ConvertDType(p[0], dtypes.Int8)) })
	assert.Equal(t, []int8{1, -1, 127, 0, -128}, flat)

	flat, _ = execOne(t, []any{[]float64{0, 2, math.NaN()}}, []shapes.Shape{shapes.Make(dtypes.Float64, 3)},
		func(b *Builder, p []backends.Op) backends.Op { return must1(b.ConvertDType(p[0], dtypes.Bool)) })
	assert.Equal(t, []bool{false, true, true}, flat)

	flat, _ = execOne(t, []any{[]complex128{1 + 2i}}, []shapes.Shape{shapes.Make(dtypes.Complex128, 1)},
		func(b *Builder, p []backends.Op) backends.Op { return must1(b.ConvertDType(p[0], dtypes.Float32)) })
	assert.Equal(t, []float32{1}, flat)
}

func TestReduce(t *testing.T) {
	x := []int32{1, 2, 3, 4, 5, 6}
	shape := shapes.Make(dtypes.Int32, 2, 3)
	flat, outShape := execOne(t, []any{x}, []shapes.Shape{shape},
		func(b *Builder, p []backends.Op) backends.Op {
			return must1(b.Reduce(p[0], backends.ReduceOpSum, must1(b.Constant([]int32{0})), 0))
		})
	assert.Equal(t, []int32{5, 7, 9}, flat)
	assert.Equal(t, []int{3}, outShape.Dimensions)

	flat, _ = execOne(t, []any{x}, []shapes.Shape{shape},
		func(b *Builder, p []backends.Op) backends.Op {
			return must1(b.Reduce(p[0], backends.ReduceOpMax, must1(b.Constant([]int32{math.MinInt32})), 1))
		})
	assert.Equal(t, []int32{3, 6}, flat)

	flat, _ = execOne(t, []any{x}, []shapes.Shape{shape},
		func(b *Builder, p []backends.Op) backends.Op {
			return must1(b.Reduce(p[0], backends.ReduceOpProduct, must1(b.Constant([]int32{1})), 0, 1))
		})
	assert.Equal(t, []int32{720}, flat)

	// Empty reductions return the identity.
	flat, _ = execOne(t, []any{[]float32{}}, []shapes.Shape{shapes.Make(dtypes.Float32, 0, 2)},
		func(b *Builder, p []backends.Op) backends.Op {
			return must1(b.Reduce(p[0], backends.ReduceOpMin, must1(b.Constant([]float32{float32(math.Inf(1))})), 0))
		})
	assert.Equal(t, []float32{float32(math.Inf(1)), float32(math.Inf(1))}, flat)

	// Init values other than the identity are rejected.
	b := backend.Builder("reject").(*Builder)
	p := must1(b.Parameter("x", shape))
	_, err := b.Reduce(p, backends.ReduceOpSum, must1(b.Constant([]int32{3})), 0)
	require.Error(t, err)
	_, err = b.Reduce(p, backends.ReduceOpSum, must1(b.Constant([]float32{0})), 0)
	require.Error(t, err)
	_, err = b.Reduce(p, backends.ReduceOpLogicalAnd, must1(b.Constant([]bool{true})), 0)
	require.Error(t, err)
}

func TestCumulativeAndSort(t *testing.T) {
	shape := shapes.Make(dtypes.Float64, 2, 3)
	x := []float64{1, 2, 3, 4, 5, 6}
	flat, _ := execOne(t, []any{x}, []shapes.Shape{shape},
		func(b *Builder, p []backends.Op) backends.Op {
			return must1(b.Cumulative(p[0], backends.ReduceOpSum, 1, false))
		})
	assert.Equal(t, []float64{1, 3, 6, 4, 9, 15}, flat)

	flat, _ = execOne(t, []any{x}, []shapes.Shape{shape},
		func(b *Builder, p []backends.Op) backends.Op {
			return must1(b.Cumulative(p[0], backends.ReduceOpProduct, 0, true))
		})
	assert.Equal(t, []float64{4, 10, 18, 4, 5, 6}, flat)

	flat, _ = execOne(t, []any{[]float64{3, math.NaN(), 1, 2}}, []shapes.Shape{shapes.Make(dtypes.Float64, 4)},
		func(b *Builder, p []backends.Op) backends.Op { return must1(b.Sort(p[0], 0)) })
	sorted := flat.([]float64)
	assert.Equal(t, []float64{1, 2, 3}, sorted[:3])
	assert.True(t, math.IsNaN(sorted[3]))
}

func TestShapeOps(t *testing.T) {
	shape := shapes.Make(dtypes.Int64, 2, 3)
	x := []int64{1, 2, 3, 4, 5, 6}
	flat, outShape := execOne(t, []any{x}, []shapes.Shape{shape},
		func(b *Builder, p []backends.Op) backends.Op { return must1(b.Transpose(p[0], 1, 0)) })
	assert.Equal(t, []int64{1, 4, 2, 5, 3, 6}, flat)
	assert.Equal(t, []int{3, 2}, outShape.Dimensions)

	flat, _ = execOne(t, []any{[]int64{1, 2, 3}}, []shapes.Shape{shapes.Make(dtypes.Int64, 3)},
		func(b *Builder, p []backends.Op) backends.Op {
			return must1(b.BroadcastInDim(p[0], shapes.Make(dtypes.Int64, 2, 3), []int{1}))
		})
	assert.Equal(t, []int64{1, 2, 3, 1, 2, 3}, flat)

	flat, _ = execOne(t, []any{x, []int64{7, 8}}, []shapes.Shape{shape, shapes.Make(dtypes.Int64, 2, 1)},
		func(b *Builder, p []backends.Op) backends.Op { return must1(b.Concatenate(1, p[0], p[1])) })
	assert.Equal(t, []int64{1, 2, 3, 7, 4, 5, 6, 8}, flat)

	// Out-of-range indices are clamped.
	flat, _ = execOne(t, []any{x, []int32{2, 0, -1, 9}}, []shapes.Shape{shape, shapes.Make(dtypes.Int32, 2, 2)},
		func(b *Builder, p []backends.Op) backends.Op { return must1(b.TakeAlongAxis(p[0], p[1], 1)) })
	assert.Equal(t, []int64{3, 1, 4, 6}, flat)

	flat, _ = execOne(t, []any{x}, []shapes.Shape{shape},
		func(b *Builder, p []backends.Op) backends.Op {
			counter := must1(b.Iota(shapes.Make(dtypes.Int64, 2, 3), 0))
			return must1(b.Add(must1(b.Reshape(p[0], 2, 3)), counter))
		})
	assert.Equal(t, []int64{1, 2, 3, 5, 6, 7}, flat)

	flat, _ = execOne(t, []any{[]float32{-1, 0.5, 9}}, []shapes.Shape{shapes.Make(dtypes.Float32, 3)},
		func(b *Builder, p []backends.Op) backends.Op {
			return must1(b.Clamp(must1(b.Constant([]float32{0})), p[0], must1(b.Constant([]float32{1}))))
		})
	assert.Equal(t, []float32{0, 0.5, 1}, flat)
}

func TestAllReduce(t *testing.T) {
	flat, _ := execOne(t, []any{[]float32{1, 2}}, []shapes.Shape{shapes.Make(dtypes.Float32, 2)},
		func(b *Builder, p []backends.Op) backends.Op {
			return must1(b.AllReduce([]backends.Op{p[0]}, backends.ReduceOpSum, [][]int{{0}}))[0]
		})
	assert.Equal(t, []float32{1, 2}, flat)

	b := backend.Builder("all_reduce").(*Builder)
	p := must1(b.Parameter("x", shapes.Make(dtypes.Float32, 2)))
	_, err := b.AllReduce([]backends.Op{p}, backends.ReduceOpSum, [][]int{{0, 1}})
	require.Error(t, err)
}

func TestExecutionModes(t *testing.T) {
	for _, config := range []string{"ops_sequential", "ops_parallel"} {
		t.Run(config, func(t *testing.T) {
			be := must1(New(config)).(*Backend)
			b := be.Builder("modes").(*Builder)
			x := must1(b.Parameter("x", shapes.Make(dtypes.Float64, 4)))
			// x is used by several ops, and the output is also an input of another op.
			sq := must1(b.Mul(x, x))
			sum := must1(b.Reduce(sq, backends.ReduceOpSum, must1(b.Constant([]float64{0})), 0))
			exec := must1(b.Compile(sum, sq))
			for range 3 {
				buf := must1(be.BufferFromFlatData([]float64{1, 2, 3, 4}, shapes.Make(dtypes.Float64, 4)))
				outputs, err := exec.Execute([]backends.Buffer{buf}, []bool{true})
				require.NoError(t, err)
				assert.Equal(t, []float64{30}, outputs[0].(*Buffer).flat)
				assert.Equal(t, []float64{1, 4, 9, 16}, outputs[1].(*Buffer).flat)
			}
			names, inputShapes := exec.Inputs()
			assert.Equal(t, []string{"x"}, names)
			assert.Len(t, inputShapes, 1)
			assert.Len(t, exec.Outputs(), 2)
		})
	}
}
