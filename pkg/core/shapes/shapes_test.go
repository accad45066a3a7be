// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"testing"

	"github.com/gomlx/npreduce/pkg/core/dtypes"
	"github.com/stretchr/testify/require"
)

func TestShape(t *testing.T) {
	invalidShape := Invalid()
	require.False(t, invalidShape.Ok())

	shape0 := Make(dtypes.Float64)
	require.True(t, shape0.Ok())
	require.True(t, shape0.IsScalar())
	require.Equal(t, 0, shape0.Rank())
	require.Len(t, shape0.Dimensions, 0)
	require.Equal(t, 1, shape0.Size())
	require.Equal(t, 8, int(shape0.Memory()))
	require.Equal(t, "(Float64)", shape0.String())

	shape1 := Make(dtypes.Float32, 4, 3, 2)
	require.True(t, shape1.Ok())
	require.False(t, shape1.IsScalar())
	require.Equal(t, 3, shape1.Rank())
	require.Equal(t, 4*3*2, shape1.Size())
	require.Equal(t, 4*4*3*2, int(shape1.Memory()))
	require.Equal(t, "(Float32)[4 3 2]", shape1.String())
	require.False(t, shape1.IsZeroSize())

	empty := Make(dtypes.Int32, 3, 0)
	require.True(t, empty.IsZeroSize())
	require.Equal(t, 0, empty.Size())

	require.Panics(t, func() { _ = Make(dtypes.Int32, -1) })
}

func TestDim(t *testing.T) {
	shape := Make(dtypes.Float32, 4, 3, 2)
	require.Equal(t, 4, shape.Dim(0))
	require.Equal(t, 2, shape.Dim(2))
	require.Equal(t, 4, shape.Dim(-3))
	require.Equal(t, 2, shape.Dim(-1))
	require.Panics(t, func() { _ = shape.Dim(3) })
	require.Panics(t, func() { _ = shape.Dim(-4) })
}

func TestEqualAndClone(t *testing.T) {
	s := Make(dtypes.Int64, 2, 3)
	c := s.Clone()
	require.True(t, s.Equal(c))
	c.Dimensions[0] = 5
	require.False(t, s.Equal(c))
	require.Equal(t, 2, s.Dimensions[0])
	f := s.WithDType(dtypes.Float32)
	require.False(t, s.Equal(f))
	require.True(t, s.EqualDimensions(f))
}

func TestAdjustAxisToRank(t *testing.T) {
	axis, err := AdjustAxisToRank(-1, 3)
	require.NoError(t, err)
	require.Equal(t, 2, axis)
	_, err = AdjustAxisToRank(3, 3)
	require.Error(t, err)
	_, err = AdjustAxisToRank(-4, 3)
	require.Error(t, err)
}

func TestShape_Strides(t *testing.T) {
	require.Equal(t, []int{6, 2, 1}, Make(dtypes.Float32, 4, 3, 2).Strides())
	require.Nil(t, Make(dtypes.Float32).Strides())
}

func TestShape_Iter(t *testing.T) {
	shape := Make(dtypes.Float32, 2, 3)
	var got [][]int
	var flats []int
	for flat, indices := range shape.Iter() {
		flats = append(flats, flat)
		got = append(got, append([]int(nil), indices...))
	}
	require.Equal(t, []int{0, 1, 2, 3, 4, 5}, flats)
	require.Equal(t, [][]int{{0, 0}, {0, 1}, {0, 2}, {1, 0}, {1, 1}, {1, 2}}, got)
	strides := shape.Strides()
	for flat, indices := range shape.Iter() {
		require.Equal(t, flat, FlatIndex(strides, indices))
	}

	// Scalar: exactly one iteration.
	count := 0
	for range Make(dtypes.Float32).Iter() {
		count++
	}
	require.Equal(t, 1, count)

	// Zero-size: no iteration.
	for range Make(dtypes.Float32, 3, 0).Iter() {
		t.Fatal("zero-sized shape should not iterate")
	}
}
