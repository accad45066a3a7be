package tensors

import (
	"math"
	"math/cmplx"
	"reflect"
	"unsafe"

	"github.com/gomlx/npreduce/pkg/core/dtypes"
	"github.com/gomlx/npreduce/pkg/core/dtypes/bfloat16"
	"github.com/x448/float16"
)

// ConstBytes calls accessFn with the tensor data viewed as raw bytes, in the host's native byte order.
//
// The data shouldn't be changed. For zero-size tensors accessFn is called with an empty slice.
func (t *Tensor) ConstBytes(accessFn func(data []byte)) {
	accessFn(t.rawBytes())
}

// MutableBytes calls accessFn with the tensor data viewed as raw bytes, which can be changed.
// Used to load tensors from binary formats.
func (t *Tensor) MutableBytes(accessFn func(data []byte)) {
	accessFn(t.rawBytes())
}

func (t *Tensor) rawBytes() []byte {
	flatV := reflect.ValueOf(t.flat)
	if flatV.Len() == 0 {
		return []byte{}
	}
	element0 := flatV.Index(0)
	sizeBytes := uintptr(flatV.Len()) * element0.Type().Size()
	return unsafe.Slice((*byte)(element0.Addr().UnsafePointer()), sizeBytes)
}

// FlatToComplex128 converts any supported flat slice to []complex128. Booleans become 0 or 1,
// and float16/bfloat16 are converted exactly.
//
// Integer values above 2^53 lose precision.
func FlatToComplex128(flat any) []complex128 {
	switch f := flat.(type) {
	case []complex128:
		return append([]complex128(nil), f...)
	case []complex64:
		out := make([]complex128, len(f))
		for ii, v := range f {
			out[ii] = complex128(v)
		}
		return out
	case []float16.Float16:
		out := make([]complex128, len(f))
		for ii, v := range f {
			out[ii] = complex(float64(v.Float32()), 0)
		}
		return out
	case []bfloat16.BFloat16:
		out := make([]complex128, len(f))
		for ii, v := range f {
			out[ii] = complex(v.Float64(), 0)
		}
		return out
	case []bool:
		out := make([]complex128, len(f))
		for ii, v := range f {
			if v {
				out[ii] = 1
			}
		}
		return out
	}
	flatV := reflect.ValueOf(flat)
	out := make([]complex128, flatV.Len())
	for ii := range out {
		e := flatV.Index(ii)
		switch {
		case e.CanInt():
			out[ii] = complex(float64(e.Int()), 0)
		case e.CanUint():
			out[ii] = complex(float64(e.Uint()), 0)
		case e.CanFloat():
			out[ii] = complex(e.Float(), 0)
		}
	}
	return out
}

// Equal checks whether t == otherTensor: same shape and same values.
// NaN values are considered equal to other NaN values in the same position.
//
// Slow implementation: fine for small tensors (tests).
func (t *Tensor) Equal(otherTensor *Tensor) bool {
	if t == otherTensor {
		return true
	}
	if t == nil || otherTensor == nil || !t.shape.Equal(otherTensor.shape) {
		return false
	}
	if t.shape.DType.IsInexact() {
		return t.InDelta(otherTensor, 0)
	}
	t0V, t1V := reflect.ValueOf(t.flat), reflect.ValueOf(otherTensor.flat)
	for ii := range t0V.Len() {
		if !t0V.Index(ii).Equal(t1V.Index(ii)) {
			return false
		}
	}
	return true
}

// InDelta checks whether Abs(t - otherTensor) <= delta for every element.
// NaNs only match NaNs, and infinities only match infinities of the same sign.
// If the shapes are different, it returns false.
//
// Slow implementation: fine for small tensors (tests).
func (t *Tensor) InDelta(otherTensor *Tensor, delta float64) bool {
	if t == otherTensor {
		return true
	}
	if t == nil || otherTensor == nil || !t.shape.Equal(otherTensor.shape) {
		return false
	}
	values0, values1 := FlatToComplex128(t.flat), FlatToComplex128(otherTensor.flat)
	for ii, v0 := range values0 {
		v1 := values1[ii]
		if !floatInDelta(real(v0), real(v1), delta) || !floatInDelta(imag(v0), imag(v1), delta) {
			return false
		}
	}
	return true
}

func floatInDelta(v0, v1, delta float64) bool {
	if math.IsNaN(v0) || math.IsNaN(v1) {
		return math.IsNaN(v0) && math.IsNaN(v1)
	}
	if math.IsInf(v0, 0) || math.IsInf(v1, 0) {
		return v0 == v1
	}
	return math.Abs(v0-v1) <= delta
}

// IsFinite returns whether all values of the tensor are finite. Non-float tensors are always finite.
func (t *Tensor) IsFinite() bool {
	if !t.shape.DType.IsInexact() {
		return true
	}
	for _, v := range FlatToComplex128(t.flat) {
		if cmplx.IsNaN(v) || cmplx.IsInf(v) {
			return false
		}
	}
	return true
}

// AsDType returns a new tensor with the values converted to dtype, with Go conversion semantics
// (truncation towards zero for float to integer).
//
// Complex values converted to a real dtype keep only the real part.
func (t *Tensor) AsDType(dtype dtypes.DType) *Tensor {
	if dtype == t.shape.DType {
		return t.Clone()
	}
	out := FromShape(t.shape.WithDType(dtype))
	values := FlatToComplex128(t.flat)
	outV := reflect.ValueOf(out.flat)
	goType := dtype.GoType()
	for ii, v := range values {
		outV.Index(ii).Set(reflect.ValueOf(fromComplex128(v, dtype)).Convert(goType))
	}
	return out
}

// fromComplex128 converts v to a Go value of the given dtype.
func fromComplex128(v complex128, dtype dtypes.DType) any {
	switch dtype {
	case dtypes.Bool:
		return v != 0
	case dtypes.Float16:
		return float16.Fromfloat32(float32(real(v)))
	case dtypes.BFloat16:
		return bfloat16.FromFloat64(real(v))
	case dtypes.Complex64:
		return complex64(v)
	case dtypes.Complex128:
		return v
	case dtypes.Float32:
		return float32(real(v))
	case dtypes.Float64:
		return real(v)
	}
	if dtype.IsUnsigned() {
		return uint64(real(v))
	}
	return int64(real(v))
}
