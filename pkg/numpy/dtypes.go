// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package numpy

import (
	"os"
	"strings"
	"sync/atomic"

	"github.com/gomlx/npreduce/pkg/core/dtypes"
	"k8s.io/klog/v2"
)

// Precision selects the default width of the dtypes produced by promotion: NumPy's "platform default" int,
// uint, float and complex types.
type Precision int32

const (
	// X64 uses 64-bit defaults (Int64, Uint64, Float64, Complex128). This is the default.
	X64 Precision = iota

	// X32 uses 32-bit defaults, and canonicalizes every 64-bit dtype to its 32-bit counterpart.
	X32
)

// PrecisionEnvVar is the environment variable used to initialize the Precision: it accepts "x64" or "x32".
const PrecisionEnvVar = "NPREDUCE_PRECISION"

var currentPrecision atomic.Int32

func init() {
	if value, found := os.LookupEnv(PrecisionEnvVar); found {
		switch strings.ToLower(value) {
		case "x64", "64":
			SetPrecision(X64)
		case "x32", "32":
			SetPrecision(X32)
		default:
			klog.Warningf("%s=%q is invalid, it must be \"x64\" or \"x32\": using x64", PrecisionEnvVar, value)
		}
	}
}

// SetPrecision sets the default precision used by the dtype promotion of every reduction.
// It affects only graphs built after the call.
func SetPrecision(precision Precision) {
	currentPrecision.Store(int32(precision))
}

// CurrentPrecision returns the precision used for dtype promotion. See SetPrecision.
func CurrentPrecision() Precision {
	return Precision(currentPrecision.Load())
}

// String implements fmt.Stringer.
func (p Precision) String() string {
	if p == X32 {
		return "x32"
	}
	return "x64"
}

// DefaultInt returns the default signed integer dtype for the current precision.
func DefaultInt() dtypes.DType {
	return CanonicalizeDType(dtypes.Int64)
}

// DefaultUint returns the default unsigned integer dtype for the current precision.
func DefaultUint() dtypes.DType {
	return CanonicalizeDType(dtypes.Uint64)
}

// DefaultFloat returns the default float dtype for the current precision.
func DefaultFloat() dtypes.DType {
	return CanonicalizeDType(dtypes.Float64)
}

// CanonicalizeDType maps 64-bit dtypes to their 32-bit counterparts when the current precision is X32.
// Other dtypes are returned unchanged.
func CanonicalizeDType(dtype dtypes.DType) dtypes.DType {
	if CurrentPrecision() != X32 {
		return dtype
	}
	switch dtype {
	case dtypes.Int64:
		return dtypes.Int32
	case dtypes.Uint64:
		return dtypes.Uint32
	case dtypes.Float64:
		return dtypes.Float32
	case dtypes.Complex128:
		return dtypes.Complex64
	}
	return dtype
}

// canonicalizeUserDType is like CanonicalizeDType, but logs a warning when an explicitly requested dtype
// is truncated.
func canonicalizeUserDType(opName string, dtype dtypes.DType) dtypes.DType {
	canonical := CanonicalizeDType(dtype)
	if canonical != dtype {
		klog.Warningf("explicitly requested dtype %s requested in %s is not available with precision %s, "+
			"and will be truncated to dtype %s", dtype, opName, CurrentPrecision(), canonical)
	}
	return canonical
}

// PromoteInteger returns the dtype used to accumulate sums and products of the given dtype:
// booleans become the default int, narrow unsigned integers the default uint, and narrow signed integers
// the default int. Other dtypes are returned unchanged.
func PromoteInteger(dtype dtypes.DType) dtypes.DType {
	switch {
	case dtype == dtypes.Bool:
		return DefaultInt()
	case dtype.IsUnsigned():
		if dtype.Bits() < DefaultUint().Bits() {
			return DefaultUint()
		}
	case dtype.IsInt():
		if dtype.Bits() < DefaultInt().Bits() {
			return DefaultInt()
		}
	}
	return dtype
}

// UpcastFloat16 returns Float32 for the 16-bit floats (Float16 and BFloat16), and dtype otherwise.
// Used to accumulate reductions of 16-bit floats in higher precision.
func UpcastFloat16(dtype dtypes.DType) dtypes.DType {
	if dtype.IsFloat16() {
		return dtypes.Float32
	}
	return dtype
}

// ToInexact returns the smallest inexact (float or complex) dtype that can represent values of dtype:
// booleans and integers become the default float, and inexact dtypes are returned unchanged.
func ToInexact(dtype dtypes.DType) dtypes.DType {
	if dtype.IsInexact() {
		return dtype
	}
	return DefaultFloat()
}

// ToNumeric returns the default int for booleans, and dtype otherwise.
func ToNumeric(dtype dtypes.DType) dtypes.DType {
	if dtype == dtypes.Bool {
		return DefaultInt()
	}
	return dtype
}

// PromoteTypes returns the dtype both a and b can be safely converted to, following NumPy's lattice
// bool < unsigned < signed < float < complex. The result is canonicalized to the current precision.
//
// Mixing Uint64 with signed integers gives the default float, and mixing Float16 with BFloat16 gives Float32.
func PromoteTypes(a, b dtypes.DType) dtypes.DType {
	return CanonicalizeDType(promoteTypes(a, b))
}

func promoteTypes(a, b dtypes.DType) dtypes.DType {
	if a == b {
		return a
	}
	if a == dtypes.Bool {
		return b
	}
	if b == dtypes.Bool {
		return a
	}
	rank := func(dtype dtypes.DType) int {
		switch {
		case dtype.IsComplex():
			return 4
		case dtype.IsFloat():
			return 3
		case dtype.IsUnsigned():
			return 1
		}
		return 2
	}
	if rank(a) > rank(b) {
		a, b = b, a
	}
	ra, rb := rank(a), rank(b)
	switch {
	case rb == 4:
		// Complex absorbs everything, but needs Complex128 to hold a Float64 or a 64-bit integer.
		if b == dtypes.Complex128 || a == dtypes.Float64 || (ra <= 2 && a.Bits() > 32) {
			return dtypes.Complex128
		}
		return dtypes.Complex64
	case rb == 3:
		if ra == 3 {
			if a.IsFloat16() && b.IsFloat16() {
				return dtypes.Float32
			}
			if a.Bits() > b.Bits() {
				return a
			}
			return b
		}
		// Integers mixed with floats take the float dtype.
		return b
	case ra == rb:
		if a.Bits() > b.Bits() {
			return a
		}
		return b
	}
	// a is unsigned, b is signed.
	if a.Bits() < b.Bits() {
		return b
	}
	switch a.Bits() {
	case 8:
		return dtypes.Int16
	case 16:
		return dtypes.Int32
	case 32:
		return dtypes.Int64
	}
	return dtypes.Float64
}
