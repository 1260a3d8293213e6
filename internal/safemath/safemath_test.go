package safemath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"lukechampine.com/uint128"
)

func TestAdd_uint32(t *testing.T) {
	tests := []struct {
		name   string
		a, b   uint32
		want   uint32
		wantOk bool
	}{
		{"zero plus zero", 0, 0, 0, true},
		{"small", 1, 2, 3, true},
		{"max boundary", math.MaxUint32 - 1, 1, math.MaxUint32, true},
		{"overflow by one", math.MaxUint32, 1, 0, false},
		{"overflow max plus max", math.MaxUint32, math.MaxUint32, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Add(tt.a, tt.b)
			assert.Equal(t, tt.wantOk, ok)
			if tt.wantOk {
				assert.Equal(t, tt.want, got)
			}

			got32, ok32 := Add32(tt.a, tt.b)
			assert.Equal(t, ok, ok32)
			assert.Equal(t, got, got32)
		})
	}
}

func TestAdd_uint64(t *testing.T) {
	tests := []struct {
		name   string
		a, b   uint64
		wantOk bool
	}{
		{"small", 40, 2, true},
		{"max boundary", math.MaxUint64 - 1, 1, true},
		{"overflow", math.MaxUint64, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g1, ok1 := Add(tt.a, tt.b)
			g2, ok2 := Add64(tt.a, tt.b)
			assert.Equal(t, tt.wantOk, ok1)
			assert.Equal(t, tt.wantOk, ok2)
			assert.Equal(t, g1, g2)
		})
	}
}

func TestSub_uint16(t *testing.T) {
	got, ok := Sub[uint16](300, 1)
	assert.True(t, ok)
	assert.Equal(t, uint16(299), got)

	_, ok = Sub[uint16](0, 1)
	assert.False(t, ok)

	v, ok := Sub64(5, 6)
	assert.False(t, ok)
	assert.Equal(t, uint64(math.MaxUint64), v)
}

func TestMul(t *testing.T) {
	tests := []struct {
		name   string
		a, b   uint64
		want   uint64
		wantOk bool
	}{
		{"zero", 0, math.MaxUint64, 0, true},
		{"points for two hashes", 1_000_000_000 * 300, 2, 600_000_000_000, true},
		{"boundary", math.MaxUint64 / 2, 2, math.MaxUint64 - 1, true},
		{"overflow", math.MaxUint64/2 + 1, 2, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Mul(tt.a, tt.b)
			assert.Equal(t, tt.wantOk, ok)
			got64, ok64 := Mul64(tt.a, tt.b)
			assert.Equal(t, ok, ok64)
			if tt.wantOk {
				assert.Equal(t, tt.want, got)
				assert.Equal(t, tt.want, got64)
			}
		})
	}

	_, ok := Mul[uint8](16, 16)
	assert.False(t, ok)
}

func TestAdd128(t *testing.T) {
	sum, ok := Add128(uint128.From64(math.MaxUint64), uint128.From64(1))
	assert.True(t, ok)
	assert.Equal(t, uint128.New(0, 1), sum)

	_, ok = Add128(uint128.Max, uint128.From64(1))
	assert.False(t, ok)
}

func TestSaturatingSub128(t *testing.T) {
	assert.Equal(t, uint128.From64(5), SaturatingSub128(uint128.From64(10), uint128.From64(5)))
	assert.True(t, SaturatingSub128(uint128.From64(5), uint128.From64(10)).IsZero())
	assert.True(t, SaturatingSub128(uint128.From64(5), uint128.From64(5)).IsZero())
}
