package miner

import (
	"math"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"

	"github.com/eigerco/hashmint/internal/records"
	"github.com/eigerco/hashmint/internal/runtime"
	"github.com/eigerco/hashmint/internal/scorer"
)

func sequentialKey() solana.PublicKey {
	var k solana.PublicKey
	for i := range k {
		k[i] = byte(i + 1)
	}
	return k
}

func TestAdvanceAmp(t *testing.T) {
	tests := []struct {
		name        string
		global      records.Global
		current     uint64
		wantAmp     uint16
		wantLast    uint64
		wantChanged bool
	}{
		{"within cycle", records.Global{Amp: 300, LastAmpSlot: 2}, 50, 300, 2, false},
		{"exactly one cycle", records.Global{Amp: 300, LastAmpSlot: 2}, 100_002, 300, 2, false},
		{"past one cycle", records.Global{Amp: 300, LastAmpSlot: 2}, 100_003, 299, 100_003, true},
		{"many cycles still one step", records.Global{Amp: 300, LastAmpSlot: 2}, 1_000_000, 299, 1_000_000, true},
		{"amp exhausted", records.Global{Amp: 0, LastAmpSlot: 2}, 1_000_000, 0, 2, false},
		{"slot behind last change", records.Global{Amp: 10, LastAmpSlot: 500_000}, 10, 10, 500_000, false},
		{"same slot", records.Global{Amp: 10, LastAmpSlot: 500_000}, 500_000, 10, 500_000, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := tt.global
			changed := AdvanceAmp(&g, tt.current, DefaultCycleSlots)
			assert.Equal(t, tt.wantChanged, changed)
			assert.Equal(t, tt.wantAmp, g.Amp)
			assert.Equal(t, tt.wantLast, g.LastAmpSlot)
		})
	}
}

func TestAmpNeverIncreases(t *testing.T) {
	g := records.Global{Amp: 3, LastAmpSlot: 1}
	prev := g.Amp
	for current := uint64(0); current < 1_000_000; current += 25_000 {
		AdvanceAmp(&g, current, DefaultCycleSlots)
		assert.LessOrEqual(t, g.Amp, prev)
		prev = g.Amp
	}
	assert.Equal(t, uint16(0), g.Amp)
}

func TestPoints(t *testing.T) {
	points, err := Points(300, 2, 0, DefaultSuperhashMultiplier)
	require.NoError(t, err)
	assert.Equal(t, uint64(600_000_000_000), points)

	points, err = Points(300, 1, 1, DefaultSuperhashMultiplier)
	require.NoError(t, err)
	assert.Equal(t, uint64(300_000_000_000+75_000_000_000_000), points)

	points, err = Points(0, 10, 10, DefaultSuperhashMultiplier)
	require.NoError(t, err)
	assert.Zero(t, points)

	_, err = Points(math.MaxUint16, 255, 255, math.MaxUint64)
	assert.ErrorIs(t, err, runtime.ErrArithmeticOverflow)
}

func TestApplyResult(t *testing.T) {
	g := records.Global{Hashes: 10, Superhashes: 1, Points: uint128.From64(5)}
	eth := records.UserEth{Hashes: 1}
	sol := records.UserSol{Hashes: 2, Points: uint128.From64(7)}

	require.NoError(t, ApplyResult(&g, &eth, &sol, 2, 1, 100))

	assert.Equal(t, records.Global{Hashes: 12, Superhashes: 2, Points: uint128.From64(105)}, g)
	assert.Equal(t, records.UserEth{Hashes: 3, Superhashes: 1}, eth)
	assert.Equal(t, records.UserSol{Hashes: 4, Superhashes: 1, Points: uint128.From64(107)}, sol)
}

func TestApplyResultOverflowChangesNothing(t *testing.T) {
	g := records.Global{Superhashes: math.MaxUint32}
	eth := records.UserEth{Hashes: 1}
	sol := records.UserSol{Hashes: 2}

	err := ApplyResult(&g, &eth, &sol, 0, 1, 0)
	require.ErrorIs(t, err, runtime.ErrArithmeticOverflow)
	assert.Equal(t, records.Global{Superhashes: math.MaxUint32}, g)
	assert.Equal(t, records.UserEth{Hashes: 1}, eth)
	assert.Equal(t, records.UserSol{Hashes: 2}, sol)

	g = records.Global{}
	sol = records.UserSol{Points: uint128.Max}
	err = ApplyResult(&g, &eth, &sol, 1, 0, 1)
	require.ErrorIs(t, err, runtime.ErrArithmeticOverflow)
	assert.Zero(t, g.Hashes)
}

func TestNextNonce(t *testing.T) {
	next := NextNonce(sequentialKey(), 2, 0, 3)
	assert.Equal(t, scorer.Nonce{89, 62, 23, 222}, next)

	// the chained nonce changes what the next slot scores
	hashes, superhashes := scorer.ScoreBatch(4, next, scorer.DefaultBatchSize, scorer.DefaultPatterns())
	assert.Equal(t, uint8(1), hashes)
	assert.Equal(t, uint8(0), superhashes)

	assert.NotEqual(t, next, NextNonce(solana.PublicKey{}, 2, 0, 3))
	assert.NotEqual(t, next, NextNonce(sequentialKey(), 2, 0, 4))
}

func TestHashEventEncoding(t *testing.T) {
	event := HashEvent{
		Slot:        3,
		User:        sequentialKey(),
		EthAccount:  [20]byte{0x5a, 0xae},
		Hashes:      2,
		Superhashes: 0,
		Points:      600_000_000_000,
	}
	data, err := event.Bytes()
	require.NoError(t, err)
	assert.Len(t, data, 8+8+32+20+1+1+8)
	assert.Equal(t, []byte{72, 165, 108, 28, 78, 144, 127, 138}, data[:8])
	assert.True(t, IsHashEvent(data))

	decoded, err := DecodeHashEvent(data)
	require.NoError(t, err)
	assert.Equal(t, event, decoded)

	_, err = DecodeHashEvent([]byte("not an event"))
	assert.Error(t, err)
}

func TestProfileValidate(t *testing.T) {
	for kind := uint8(0); kind < records.Kinds; kind++ {
		p := DefaultProfile(kind)
		require.NoError(t, p.Validate())
		assert.Equal(t, ProgramIDs[kind], p.ProgramID)
	}

	assert.Error(t, DefaultProfile(4).Validate())

	p := DefaultProfile(0)
	p.BatchSize = 0
	assert.Error(t, p.Validate())
}
