package tensors

import (
	"math"
	"strconv"
	"testing"

	"github.com/gomlx/npreduce/pkg/core/dtypes"
	"github.com/gomlx/npreduce/pkg/core/dtypes/bfloat16"
	"github.com/gomlx/npreduce/pkg/core/shapes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func TestShapeForValue(t *testing.T) {
	shape, err := shapeForValue([][]float32{{0, 0}, {1, 1}, {2, 2}})
	require.NoError(t, err)
	assert.True(t, shapes.Make(dtypes.Float32, 3, 2).Equal(shape), "got %s", shape)

	shape, err = shapeForValue([][][]float64{{{1}}})
	require.NoError(t, err)
	assert.True(t, shapes.Make(dtypes.Float64, 1, 1, 1).Equal(shape), "got %s", shape)

	shape, err = shapeForValue(5)
	require.NoError(t, err)
	if strconv.IntSize == 64 {
		assert.Equal(t, dtypes.Int64, shape.DType)
	} else {
		assert.Equal(t, dtypes.Int32, shape.DType)
	}
	assert.Equal(t, 0, shape.Rank())

	_, err = shapeForValue([][]int{{1, 2}, {3}})
	require.Error(t, err)
	_, err = shapeForValue([]float32{})
	require.Error(t, err)
	_, err = shapeForValue("string")
	require.Error(t, err)
}

func TestFromValue(t *testing.T) {
	tensor := FromValue([][]int{{1, 2, 3}, {4, 5, 6}})
	assert.Equal(t, []int{2, 3}, tensor.Shape().Dimensions)
	if strconv.IntSize == 64 {
		assert.Equal(t, []int64{1, 2, 3, 4, 5, 6}, tensor.Flat())
		assert.Equal(t, [][]int64{{1, 2, 3}, {4, 5, 6}}, tensor.Value())
	}

	tensor = FromValue(float32(7))
	assert.True(t, tensor.IsScalar())
	assert.Equal(t, float32(7), tensor.Value())
	assert.Equal(t, 7.0, ToScalar[float64](tensor))

	tensor = FromValue([]bool{true, false})
	assert.Equal(t, dtypes.Bool, tensor.DType())
	assert.Equal(t, []bool{true, false}, tensor.Value())

	assert.Panics(t, func() { _ = FromAnyValue([][]float64{{1}, {2, 3}}) })
	same := FromValue([]float64{1})
	assert.Same(t, same, FromAnyValue(same))
}

func TestFromFlatDataAndDimensions(t *testing.T) {
	tensor := FromFlatDataAndDimensions([]float64{1, 2, 3, 4, 5, 6}, 3, 2)
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}, {5, 6}}, tensor.Value())
	assert.Equal(t, 6, tensor.Size())
	assert.Equal(t, 2, tensor.Rank())
	assert.Panics(t, func() { _ = FromFlatDataAndDimensions([]float64{1, 2, 3}, 2, 2) })

	// Zero-sized axes.
	tensor = FromFlatDataAndDimensions([]float32{}, 0, 3)
	assert.True(t, tensor.Shape().IsZeroSize())
	assert.Len(t, tensor.Flat(), 0)
	assert.Equal(t, "(Float32)[0 3]", tensor.String())
}

func TestFromScalarAndDimensions(t *testing.T) {
	tensor := FromScalarAndDimensions(int8(3), 2, 2)
	assert.Equal(t, [][]int8{{3, 3}, {3, 3}}, tensor.Value())
	tensor = FromScalarAndDimensions(float32(1), 0)
	assert.Equal(t, 0, tensor.Size())
	tensor = FromScalar(complex(1.0, 2.0))
	assert.Equal(t, dtypes.Complex128, tensor.DType())
}

func TestFromFlat(t *testing.T) {
	tensor, err := FromFlat(shapes.Make(dtypes.Int32, 2), []int32{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2}, tensor.Value())
	_, err = FromFlat(shapes.Make(dtypes.Int32, 3), []int32{1, 2})
	require.Error(t, err)
	_, err = FromFlat(shapes.Make(dtypes.Int64, 2), []int32{1, 2})
	require.Error(t, err)
}

func TestFlatData(t *testing.T) {
	tensor := FromShape(shapes.Make(dtypes.Float64, 2, 2))
	MutableFlatData(tensor, func(flat []float64) {
		for ii := range flat {
			flat[ii] = float64(ii)
		}
	})
	ConstFlatData(tensor, func(flat []float64) {
		assert.Equal(t, []float64{0, 1, 2, 3}, flat)
	})
	copied := CopyFlatData[float64](tensor)
	copied[0] = 100
	assert.Equal(t, 0.0, tensor.Flat().([]float64)[0])
	assert.Panics(t, func() { ConstFlatData(tensor, func(flat []float32) {}) })
}

func TestBytes(t *testing.T) {
	tensor := FromValue([]int32{1, 2})
	tensor.ConstBytes(func(data []byte) {
		assert.Len(t, data, 8)
	})
	tensor.MutableBytes(func(data []byte) {
		for ii := range data {
			data[ii] = 0
		}
	})
	assert.Equal(t, []int32{0, 0}, tensor.Value())

	empty := FromShape(shapes.Make(dtypes.Float64, 0))
	empty.ConstBytes(func(data []byte) {
		assert.Empty(t, data)
	})
}

func TestEqualAndInDelta(t *testing.T) {
	nan := math.NaN()
	t0 := FromValue([]float64{1, nan, math.Inf(1)})
	t1 := FromValue([]float64{1, nan, math.Inf(1)})
	assert.True(t, t0.Equal(t1))
	t2 := FromValue([]float64{1.001, nan, math.Inf(1)})
	assert.False(t, t0.Equal(t2))
	assert.True(t, t0.InDelta(t2, 0.01))
	assert.False(t, t0.InDelta(FromValue([]float64{1, 0, math.Inf(1)}), 10))
	assert.False(t, t0.InDelta(FromValue([]float64{1, nan, math.Inf(-1)}), 10))
	assert.False(t, t0.Equal(FromValue([]float32{1, 2, 3})))

	assert.True(t, FromValue([]int64{1, 2}).Equal(FromValue([]int64{1, 2})))
	assert.False(t, FromValue([]int64{1, 2}).Equal(FromValue([]int64{1, 3})))
	assert.True(t, FromValue([]complex64{1 + 1i}).InDelta(FromValue([]complex64{1 + 1.001i}), 0.01))
	assert.False(t, t0.IsFinite())
	assert.True(t, FromValue([]float64{1, 2}).IsFinite())
}

func TestAsDType(t *testing.T) {
	tensor := FromValue([]float64{1.5, -2.7, 0})
	assert.Equal(t, []int32{1, -2, 0}, tensor.AsDType(dtypes.Int32).Value())
	assert.Equal(t, []bool{true, true, false}, tensor.AsDType(dtypes.Bool).Value())
	f16 := tensor.AsDType(dtypes.Float16).Flat().([]float16.Float16)
	assert.Equal(t, float32(1.5), f16[0].Float32())
	bf16 := tensor.AsDType(dtypes.BFloat16).Flat().([]bfloat16.BFloat16)
	assert.Equal(t, float32(1.5), bf16[0].Float32())
	assert.Equal(t, []complex64{1.5, -2.7, 0}, tensor.AsDType(dtypes.Complex64).Value())
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "float64(3)", FromValue(3.0).String())
	assert.Equal(t, "[3]int32{1, 2, 3}", FromValue([]int32{1, 2, 3}).String())
	assert.Equal(t, "[2][2]bool\n{{true, false},\n {false, true}}",
		FromValue([][]bool{{true, false}, {false, true}}).String())
	long := FromFlatDataAndDimensions([]float32{0, 1, 2, 3, 4, 5, 6, 7}, 8)
	assert.Equal(t, "[8]float32{0, 1, 2, ..., 5, 6, 7}", long.String())
	assert.Equal(t, "(Float64)[2]: [1 2]", FromValue([]float64{1, 2}).GoStr())
	assert.Equal(t, "int8(3)", FromValue(int8(3)).GoStr())
}

func TestClone(t *testing.T) {
	tensor := FromValue([]float64{1, 2})
	cloned := tensor.Clone()
	cloned.Flat().([]float64)[0] = 7
	assert.Equal(t, []float64{1, 2}, tensor.Value())
	assert.Equal(t, []float64{7, 2}, cloned.Value())
}
