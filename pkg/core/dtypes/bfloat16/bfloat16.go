// Package bfloat16 implements the "brain floating point" 16-bit type: the upper half of an IEEE 754 float32,
// with 8 bits of exponent and 7 bits of mantissa.
//
// Conversions from float32/float64 round to the nearest even value, so reductions that accumulate in float32
// and narrow the result back to BFloat16 match what accelerators produce.
package bfloat16

import (
	"math"
	"strconv"
)

// BFloat16 holds the raw bits of a bfloat16 value.
type BFloat16 uint16

// Float32 widens the value to float32. It is exact.
func (f BFloat16) Float32() float32 {
	return math.Float32frombits(uint32(f) << 16)
}

// Float64 widens the value to float64. It is exact.
func (f BFloat16) Float64() float64 {
	return float64(f.Float32())
}

// FromFloat32 converts a float32 to BFloat16, rounding to nearest even.
// NaNs are kept as (quiet) NaNs.
func FromFloat32(x float32) BFloat16 {
	bits := math.Float32bits(x)
	if x != x {
		// Keep the sign and force a quiet NaN, the rounding below could otherwise turn it into an infinity.
		return BFloat16((bits >> 16) | 0x0040)
	}
	lsb := (bits >> 16) & 1
	bits += 0x7FFF + lsb
	return BFloat16(bits >> 16)
}

// FromFloat64 converts a float64 to BFloat16, going through float32.
func FromFloat64(x float64) BFloat16 {
	return FromFloat32(float32(x))
}

// FromBits converts the raw bits to a BFloat16.
func FromBits(bits uint16) BFloat16 {
	return BFloat16(bits)
}

// Bits returns the raw bits.
func (f BFloat16) Bits() uint16 {
	return uint16(f)
}

// IsNaN reports whether f is a "not-a-number" value.
func (f BFloat16) IsNaN() bool {
	return f&0x7F80 == 0x7F80 && f&0x007F != 0
}

// String implements fmt.Stringer.
func (f BFloat16) String() string {
	return strconv.FormatFloat(float64(f.Float32()), 'g', -1, 32)
}

// Inf returns positive infinity if sign >= 0, negative infinity otherwise.
func Inf(sign int) BFloat16 {
	if sign >= 0 {
		return BFloat16(0x7F80)
	}
	return BFloat16(0xFF80)
}

// NaN returns a quiet NaN.
func NaN() BFloat16 {
	return BFloat16(0x7FC0)
}

const (
	// SmallestNonzero is the smallest positive denormal value.
	SmallestNonzero = BFloat16(0x0001)

	// MaxValue is the largest finite value (about 3.39e38).
	MaxValue = BFloat16(0x7F7F)
)
