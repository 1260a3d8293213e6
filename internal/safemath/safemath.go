package safemath

import (
	"errors"
	"math/bits"

	"lukechampine.com/uint128"
)

var ErrOverflow = errors.New("number overflow")

type Unsigned interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Add returns a+b and false when the result does not fit in T.
func Add[T Unsigned](a, b T) (T, bool) {
	v := a + b
	return v, v >= a
}

// Sub returns a-b and false when b > a.
func Sub[T Unsigned](a, b T) (T, bool) {
	return a - b, b <= a
}

// Mul returns a*b and false when the result does not fit in T.
func Mul[T Unsigned](a, b T) (T, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	v := a * b
	return v, v/b == a
}

func Add32(a, b uint32) (uint32, bool) {
	v, carry := bits.Add32(a, b, 0)
	return v, carry == 0
}

func Add64(a, b uint64) (uint64, bool) {
	v, carry := bits.Add64(a, b, 0)
	return v, carry == 0
}

func Sub64(a, b uint64) (uint64, bool) {
	v, borrow := bits.Sub64(a, b, 0)
	return v, borrow == 0
}

func Mul64(a, b uint64) (uint64, bool) {
	hi, lo := bits.Mul64(a, b)
	return lo, hi == 0
}

// Add128 adds two 128-bit values without panicking on overflow.
func Add128(a, b uint128.Uint128) (uint128.Uint128, bool) {
	lo, carry := bits.Add64(a.Lo, b.Lo, 0)
	hi, carry := bits.Add64(a.Hi, b.Hi, carry)
	return uint128.New(lo, hi), carry == 0
}

// SaturatingSub128 returns a-b, or zero when b >= a.
func SaturatingSub128(a, b uint128.Uint128) uint128.Uint128 {
	if a.Cmp(b) <= 0 {
		return uint128.Zero
	}
	return a.Sub(b)
}
