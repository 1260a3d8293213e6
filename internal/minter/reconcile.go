package minter

import (
	"lukechampine.com/uint128"

	"github.com/eigerco/hashmint/internal/records"
	"github.com/eigerco/hashmint/internal/runtime"
	"github.com/eigerco/hashmint/internal/safemath"
)

// Reconcile returns how many points of kind have not been converted into
// tokens yet and marks them as converted. Points below the counter mint
// nothing.
func Reconcile(kind uint8, points uint128.Uint128, rec *records.UserTokens) (uint128.Uint128, error) {
	if kind >= records.Kinds {
		return uint128.Zero, ErrBadParam
	}
	mintable := safemath.SaturatingSub128(points, rec.PointsCounters[kind])
	if mintable.IsZero() {
		return uint128.Zero, nil
	}
	counter, ok := safemath.Add128(rec.PointsCounters[kind], mintable)
	if !ok {
		return uint128.Zero, runtime.ErrArithmeticOverflow
	}
	minted, ok := safemath.Add128(rec.TokensMinted, mintable)
	if !ok {
		return uint128.Zero, runtime.ErrArithmeticOverflow
	}
	rec.PointsCounters[kind] = counter
	rec.TokensMinted = minted
	return mintable, nil
}

// Units converts points into token units.
func Units(mintable uint128.Uint128, divisor uint64) (uint64, error) {
	if divisor == 0 {
		return 0, ErrBadParam
	}
	units := mintable.Div64(divisor)
	if units.Hi != 0 {
		return 0, runtime.ErrArithmeticOverflow
	}
	return units.Lo, nil
}
