// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package dtypes

import (
	"math"
	"testing"

	"github.com/gomlx/npreduce/pkg/core/dtypes/bfloat16"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func TestDType_HighestLowestValues(t *testing.T) {
	assert.True(t, math.IsInf(Float64.HighestValue().(float64), 1))
	assert.True(t, math.IsInf(float64(Float32.LowestValue().(float32)), -1))
	assert.Equal(t, int8(math.MinInt8), Int8.LowestValue())
	assert.Equal(t, uint16(math.MaxUint16), Uint16.HighestValue())

	// Complex numbers are not ordered: zero is returned.
	assert.Equal(t, complex64(0), Complex64.HighestValue())
	assert.Equal(t, complex128(0), Complex128.LowestValue())
}

func TestDType_FiniteBounds(t *testing.T) {
	assert.Equal(t, 65504.0, Float16.FiniteHighest())
	assert.Equal(t, -65504.0, Float16.FiniteLowest())
	assert.Equal(t, float64(math.MaxFloat32), Float32.FiniteHighest())
	assert.Equal(t, 0.0, Uint8.FiniteLowest())
	assert.Equal(t, 255.0, Uint8.FiniteHighest())
	assert.Equal(t, -128.0, Int8.FiniteLowest())
	assert.Equal(t, 127.0, Int8.FiniteHighest())
	assert.InDelta(t, 3.3895e38, BFloat16.FiniteHighest(), 1e35)
}

func TestDType_Classification(t *testing.T) {
	for _, dtype := range []DType{Float16, BFloat16, Float32, Float64} {
		assert.True(t, dtype.IsFloat(), dtype.String())
		assert.True(t, dtype.IsInexact(), dtype.String())
		assert.True(t, dtype.SupportsInfinity(), dtype.String())
		assert.Equal(t, dtype, dtype.RealDType())
	}
	for _, dtype := range []DType{Bool, Int8, Uint32, Int64} {
		assert.False(t, dtype.IsInexact(), dtype.String())
		assert.False(t, dtype.SupportsInfinity(), dtype.String())
		assert.False(t, dtype.SupportsNaN(), dtype.String())
	}
	assert.True(t, Complex64.IsInexact())
	assert.Equal(t, Float32, Complex64.RealDType())
	assert.Equal(t, Float64, Complex128.RealDType())
	assert.Equal(t, Complex64, BFloat16.ComplexDType())
	assert.Equal(t, Complex128, Float64.ComplexDType())
	assert.Equal(t, InvalidDType, Int32.ComplexDType())
	assert.True(t, Float16.IsFloat16())
	assert.True(t, BFloat16.IsFloat16())
	assert.False(t, Float32.IsFloat16())
}

func TestMapOfNames(t *testing.T) {
	for _, name := range []string{"Float16", "float16", "F16", "f16", "half"} {
		assert.Equal(t, Float16, MapOfNames[name], name)
	}
	for _, name := range []string{"BFloat16", "bfloat16", "BF16", "bf16"} {
		assert.Equal(t, BFloat16, MapOfNames[name], name)
	}
	dtype, err := FromName("complex128")
	require.NoError(t, err)
	assert.Equal(t, Complex128, dtype)
	_, err = FromName("float8")
	require.Error(t, err)
}

func TestString(t *testing.T) {
	assert.Equal(t, "Float32", Float32.String())
	assert.Equal(t, "Uint64", Uint64.String())
	assert.Equal(t, "DType(99)", DType(99).String())
}

func TestFromAny(t *testing.T) {
	assert.Equal(t, Int64, FromAny(int64(7)))
	assert.Equal(t, Float32, FromAny(float32(13)))
	assert.Equal(t, BFloat16, FromAny(bfloat16.FromFloat32(1.0)))
	assert.Equal(t, Float16, FromAny(float16.Fromfloat32(3.0)))
	assert.Equal(t, InvalidDType, FromAny("string"))
	assert.Equal(t, InvalidDType, FromAny(nil))
	assert.Equal(t, Complex64, FromGenericsType[complex64]())
}

func TestSize(t *testing.T) {
	assert.Equal(t, 8, Int64.Size())
	assert.Equal(t, 4, Float32.Size())
	assert.Equal(t, 2, BFloat16.Size())
	assert.Equal(t, 16, Complex128.Bits()/8)
	assert.Equal(t, 2*3*8, Int64.SizeForDimensions(2, 3))
	assert.Equal(t, 4, Float32.SizeForDimensions())
}

func TestIsPromotableTo(t *testing.T) {
	assert.True(t, Float32.IsPromotableTo(Float64))
	assert.False(t, Float64.IsPromotableTo(Float32))
	assert.False(t, Int8.IsPromotableTo(Float32))
	assert.False(t, Int32.IsPromotableTo(Uint64))
	assert.True(t, Uint8.IsPromotableTo(Uint32))
}

func TestBFloat16Rounding(t *testing.T) {
	// 1 + 2^-8 is exactly halfway between two bfloat16 values: rounds to even (1.0).
	assert.Equal(t, float32(1.0), bfloat16.FromFloat32(1+1.0/256).Float32())
	// Slightly above the midpoint rounds up.
	assert.Equal(t, float32(1+1.0/128), bfloat16.FromFloat32(1+1.0/256+1.0/4096).Float32())
	assert.True(t, bfloat16.FromFloat32(float32(math.NaN())).IsNaN())
	assert.True(t, math.IsInf(float64(bfloat16.Inf(-1).Float32()), -1))
	assert.False(t, bfloat16.Inf(1).IsNaN())
}
