// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package numpy_test

import (
	"testing"

	"github.com/gomlx/npreduce/pkg/core/dtypes"
	"github.com/gomlx/npreduce/pkg/numpy"
	"github.com/stretchr/testify/assert"
)

func TestPromoteInteger(t *testing.T) {
	assert.Equal(t, dtypes.Int64, numpy.PromoteInteger(dtypes.Bool))
	assert.Equal(t, dtypes.Int64, numpy.PromoteInteger(dtypes.Int8))
	assert.Equal(t, dtypes.Int64, numpy.PromoteInteger(dtypes.Int32))
	assert.Equal(t, dtypes.Uint64, numpy.PromoteInteger(dtypes.Uint16))
	assert.Equal(t, dtypes.Uint64, numpy.PromoteInteger(dtypes.Uint64))
	assert.Equal(t, dtypes.Float16, numpy.PromoteInteger(dtypes.Float16))
	assert.Equal(t, dtypes.Complex64, numpy.PromoteInteger(dtypes.Complex64))
}

func TestUpcastAndInexact(t *testing.T) {
	assert.Equal(t, dtypes.Float32, numpy.UpcastFloat16(dtypes.Float16))
	assert.Equal(t, dtypes.Float32, numpy.UpcastFloat16(dtypes.BFloat16))
	assert.Equal(t, dtypes.Float64, numpy.UpcastFloat16(dtypes.Float64))
	assert.Equal(t, dtypes.Int8, numpy.UpcastFloat16(dtypes.Int8))

	assert.Equal(t, dtypes.Float64, numpy.ToInexact(dtypes.Int32))
	assert.Equal(t, dtypes.Float64, numpy.ToInexact(dtypes.Bool))
	assert.Equal(t, dtypes.Float16, numpy.ToInexact(dtypes.Float16))
	assert.Equal(t, dtypes.Complex64, numpy.ToInexact(dtypes.Complex64))
	assert.Equal(t, dtypes.Int64, numpy.ToNumeric(dtypes.Bool))
	assert.Equal(t, dtypes.Uint8, numpy.ToNumeric(dtypes.Uint8))
}

func TestPromoteTypes(t *testing.T) {
	tests := []struct {
		a, b, want dtypes.DType
	}{
		{dtypes.Bool, dtypes.Bool, dtypes.Bool},
		{dtypes.Bool, dtypes.Int8, dtypes.Int8},
		{dtypes.Float32, dtypes.Bool, dtypes.Float32},
		{dtypes.Uint8, dtypes.Uint32, dtypes.Uint32},
		{dtypes.Int16, dtypes.Int8, dtypes.Int16},
		{dtypes.Uint8, dtypes.Int8, dtypes.Int16},
		{dtypes.Uint16, dtypes.Int32, dtypes.Int32},
		{dtypes.Int16, dtypes.Uint32, dtypes.Int64},
		{dtypes.Uint64, dtypes.Int8, dtypes.Float64},
		{dtypes.Int64, dtypes.Float16, dtypes.Float16},
		{dtypes.Float16, dtypes.BFloat16, dtypes.Float32},
		{dtypes.Float32, dtypes.Float64, dtypes.Float64},
		{dtypes.Float32, dtypes.Complex64, dtypes.Complex64},
		{dtypes.Complex64, dtypes.Float64, dtypes.Complex128},
		{dtypes.Int64, dtypes.Complex64, dtypes.Complex128},
		{dtypes.Int16, dtypes.Complex64, dtypes.Complex64},
	}
	for _, test := range tests {
		assert.Equalf(t, test.want, numpy.PromoteTypes(test.a, test.b), "PromoteTypes(%s, %s)", test.a, test.b)
		assert.Equalf(t, test.want, numpy.PromoteTypes(test.b, test.a), "PromoteTypes(%s, %s)", test.b, test.a)
	}
}

func TestPrecision(t *testing.T) {
	assert.Equal(t, numpy.X64, numpy.CurrentPrecision())
	assert.Equal(t, "x64", numpy.X64.String())
	numpy.SetPrecision(numpy.X32)
	defer numpy.SetPrecision(numpy.X64)
	assert.Equal(t, "x32", numpy.CurrentPrecision().String())
	assert.Equal(t, dtypes.Int32, numpy.DefaultInt())
	assert.Equal(t, dtypes.Uint32, numpy.DefaultUint())
	assert.Equal(t, dtypes.Float32, numpy.DefaultFloat())
	assert.Equal(t, dtypes.Complex64, numpy.CanonicalizeDType(dtypes.Complex128))
	assert.Equal(t, dtypes.Int16, numpy.CanonicalizeDType(dtypes.Int16))
	assert.Equal(t, dtypes.Int32, numpy.PromoteInteger(dtypes.Int8))
	assert.Equal(t, dtypes.Float32, numpy.PromoteTypes(dtypes.Uint64, dtypes.Int8))
}
