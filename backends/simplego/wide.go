// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"math"

	"github.com/gomlx/npreduce/pkg/core/dtypes"
	"github.com/gomlx/npreduce/pkg/core/dtypes/bfloat16"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// wideKind is the class of Go type used to compute values of a dtype.
//
// Every dtype is widened to one of []bool, []int64, []uint64, []float64 or []complex128 before any
// computation, and the results are narrowed back to the output dtype.
type wideKind int

const (
	wideBool wideKind = iota
	wideInt
	wideUint
	wideFloat
	wideComplex
)

// wideTypes are the Go types values are computed with.
type wideTypes interface {
	bool | int64 | uint64 | float64 | complex128
}

func kindOf(dtype dtypes.DType) wideKind {
	switch {
	case dtype == dtypes.Bool:
		return wideBool
	case dtype.IsUnsigned():
		return wideUint
	case dtype.IsInt():
		return wideInt
	case dtype.IsComplex():
		return wideComplex
	}
	return wideFloat
}

func widenInts[T int8 | int16 | int32 | int64](flat []T) []int64 {
	out := make([]int64, len(flat))
	for ii, v := range flat {
		out[ii] = int64(v)
	}
	return out
}

func widenUints[T uint8 | uint16 | uint32 | uint64](flat []T) []uint64 {
	out := make([]uint64, len(flat))
	for ii, v := range flat {
		out[ii] = uint64(v)
	}
	return out
}

// widen returns the values of the buffer in their wide type. The returned slice must not be modified,
// since it may share the buffer's storage.
func widen(buffer *Buffer) any {
	switch flat := buffer.flat.(type) {
	case []bool:
		return flat
	case []int64:
		return flat
	case []uint64:
		return flat
	case []float64:
		return flat
	case []complex128:
		return flat
	case []int8:
		return widenInts(flat)
	case []int16:
		return widenInts(flat)
	case []int32:
		return widenInts(flat)
	case []uint8:
		return widenUints(flat)
	case []uint16:
		return widenUints(flat)
	case []uint32:
		return widenUints(flat)
	case []float32:
		out := make([]float64, len(flat))
		for ii, v := range flat {
			out[ii] = float64(v)
		}
		return out
	case []float16.Float16:
		out := make([]float64, len(flat))
		for ii, v := range flat {
			out[ii] = float64(v.Float32())
		}
		return out
	case []bfloat16.BFloat16:
		out := make([]float64, len(flat))
		for ii, v := range flat {
			out[ii] = v.Float64()
		}
		return out
	case []complex64:
		out := make([]complex128, len(flat))
		for ii, v := range flat {
			out[ii] = complex128(v)
		}
		return out
	}
	panic(errors.Errorf("simplego: unsupported buffer data type %T", buffer.flat))
}

func narrowInts[T int8 | int16 | int32 | int64](dst []T, src []int64) {
	for ii, v := range src {
		dst[ii] = T(v)
	}
}

func narrowUints[T uint8 | uint16 | uint32 | uint64](dst []T, src []uint64) {
	for ii, v := range src {
		dst[ii] = T(v)
	}
}

// narrow writes the wide values into the buffer, converting them to the buffer dtype.
// The wide kind must match the buffer dtype kind.
func narrow(wide any, buffer *Buffer) {
	switch src := wide.(type) {
	case []bool:
		copy(buffer.flat.([]bool), src)
	case []int64:
		switch dst := buffer.flat.(type) {
		case []int8:
			narrowInts(dst, src)
		case []int16:
			narrowInts(dst, src)
		case []int32:
			narrowInts(dst, src)
		case []int64:
			copy(dst, src)
		}
	case []uint64:
		switch dst := buffer.flat.(type) {
		case []uint8:
			narrowUints(dst, src)
		case []uint16:
			narrowUints(dst, src)
		case []uint32:
			narrowUints(dst, src)
		case []uint64:
			copy(dst, src)
		}
	case []float64:
		switch dst := buffer.flat.(type) {
		case []float16.Float16:
			for ii, v := range src {
				dst[ii] = float16.Fromfloat32(float32(v))
			}
		case []bfloat16.BFloat16:
			for ii, v := range src {
				dst[ii] = bfloat16.FromFloat64(v)
			}
		case []float32:
			for ii, v := range src {
				dst[ii] = float32(v)
			}
		case []float64:
			copy(dst, src)
		}
	case []complex128:
		switch dst := buffer.flat.(type) {
		case []complex64:
			for ii, v := range src {
				dst[ii] = complex64(v)
			}
		case []complex128:
			copy(dst, src)
		}
	default:
		panic(errors.Errorf("simplego: unsupported wide data type %T", wide))
	}
}

// newWide allocates a wide slice of the given kind.
func newWide(kind wideKind, length int) any {
	switch kind {
	case wideBool:
		return make([]bool, length)
	case wideInt:
		return make([]int64, length)
	case wideUint:
		return make([]uint64, length)
	case wideComplex:
		return make([]complex128, length)
	}
	return make([]float64, length)
}

// intRange returns the range of the integer dtype.
func intRange(dtype dtypes.DType) (lowest int64, highest uint64) {
	switch dtype {
	case dtypes.Int8:
		return math.MinInt8, math.MaxInt8
	case dtypes.Int16:
		return math.MinInt16, math.MaxInt16
	case dtypes.Int32:
		return math.MinInt32, math.MaxInt32
	case dtypes.Int64:
		return math.MinInt64, math.MaxInt64
	case dtypes.Uint8:
		return 0, math.MaxUint8
	case dtypes.Uint16:
		return 0, math.MaxUint16
	case dtypes.Uint32:
		return 0, math.MaxUint32
	}
	return 0, math.MaxUint64
}

// saturateToInt converts a float to a signed integer of dtype, truncating and clamping to its range.
// NaN converts to 0.
func saturateToInt(v float64, dtype dtypes.DType) int64 {
	if math.IsNaN(v) {
		return 0
	}
	lowest, highest := intRange(dtype)
	// float64(MaxInt64) rounds up to 2^63, hence the ">=".
	if v >= float64(highest) {
		return int64(highest)
	}
	if v <= float64(lowest) {
		return lowest
	}
	return int64(v)
}

// saturateToUint converts a float to an unsigned integer of dtype, truncating and clamping to its range.
// NaN converts to 0.
func saturateToUint(v float64, dtype dtypes.DType) uint64 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	_, highest := intRange(dtype)
	if v >= float64(highest) {
		return highest
	}
	return uint64(v)
}

// convertWide converts wide values to the wide kind of the target dtype.
//
// Float to integer conversions truncate towards zero and saturate, with NaN converted to 0.
// Complex to real conversions keep the real part, and any value converted to bool is "v != 0".
// Integer to integer conversions keep Go semantics (wrap around), they are narrowed later.
func convertWide(src any, dtype dtypes.DType) any {
	kind := kindOf(dtype)
	switch s := src.(type) {
	case []bool:
		out := newWide(kind, len(s))
		for ii, v := range s {
			if v {
				setWideOne(out, ii)
			}
		}
		return out
	case []int64:
		switch kind {
		case wideInt:
			return s
		case wideUint:
			out := make([]uint64, len(s))
			for ii, v := range s {
				out[ii] = uint64(v)
			}
			return out
		}
		return convertFromComplex(len(s), kind, dtype, func(ii int) complex128 { return complex(float64(s[ii]), 0) })
	case []uint64:
		switch kind {
		case wideUint:
			return s
		case wideInt:
			out := make([]int64, len(s))
			for ii, v := range s {
				out[ii] = int64(v)
			}
			return out
		}
		return convertFromComplex(len(s), kind, dtype, func(ii int) complex128 { return complex(float64(s[ii]), 0) })
	case []float64:
		return convertFromComplex(len(s), kind, dtype, func(ii int) complex128 { return complex(s[ii], 0) })
	case []complex128:
		return convertFromComplex(len(s), kind, dtype, func(ii int) complex128 { return s[ii] })
	}
	panic(errors.Errorf("simplego: unsupported wide data type %T", src))
}

// setWideOne sets the ii-th element of a wide slice to one (or true).
func setWideOne(wide any, ii int) {
	switch w := wide.(type) {
	case []bool:
		w[ii] = true
	case []int64:
		w[ii] = 1
	case []uint64:
		w[ii] = 1
	case []float64:
		w[ii] = 1
	case []complex128:
		w[ii] = 1
	}
}

// convertFromComplex converts values given by valueFn (as complex128) to the kind of dtype.
func convertFromComplex(length int, kind wideKind, dtype dtypes.DType, valueFn func(ii int) complex128) any {
	switch kind {
	case wideBool:
		out := make([]bool, length)
		for ii := range out {
			out[ii] = valueFn(ii) != 0
		}
		return out
	case wideInt:
		out := make([]int64, length)
		for ii := range out {
			out[ii] = saturateToInt(real(valueFn(ii)), dtype)
		}
		return out
	case wideUint:
		out := make([]uint64, length)
		for ii := range out {
			out[ii] = saturateToUint(real(valueFn(ii)), dtype)
		}
		return out
	case wideComplex:
		out := make([]complex128, length)
		for ii := range out {
			out[ii] = valueFn(ii)
		}
		return out
	}
	out := make([]float64, length)
	for ii := range out {
		out[ii] = real(valueFn(ii))
	}
	return out
}

// scalarAt returns the ii-th element, or the only element if the slice holds a scalar.
func scalarAt[T any](values []T, ii int) T {
	if len(values) == 1 {
		return values[0]
	}
	return values[ii]
}
