package miner

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"

	"github.com/eigerco/hashmint/internal/address"
	"github.com/eigerco/hashmint/internal/identity"
	"github.com/eigerco/hashmint/internal/records"
	"github.com/eigerco/hashmint/internal/runtime"
	"github.com/eigerco/hashmint/internal/slot"
	"github.com/eigerco/hashmint/internal/store"
	"github.com/eigerco/hashmint/pkg/db/pebble"
)

const ethAddress = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

// adminKey starts with four zero bytes so the pool nonce starts at zero.
func adminKey() solana.PublicKey {
	var k solana.PublicKey
	for i := 4; i < len(k); i++ {
		k[i] = 0xee
	}
	return k
}

type harness struct {
	t       *testing.T
	clock   *slot.ManualClock
	rt      *runtime.Runtime
	program *Program
	eth     identity.EthAccount
	user    solana.PublicKey
}

func newHarness(t *testing.T) *harness {
	kv, err := pebble.NewKVStore()
	require.NoError(t, err)
	accounts, err := store.NewAccounts(kv)
	require.NoError(t, err)
	t.Cleanup(func() { accounts.Close() })

	clock := slot.NewManualClock(0)
	rt := runtime.New(accounts, clock)
	program, err := New(DefaultProfile(0))
	require.NoError(t, err)
	require.NoError(t, rt.Register(program))

	eth, err := identity.NewEthAccount(ethAddress)
	require.NoError(t, err)

	return &harness{t: t, clock: clock, rt: rt, program: program, eth: eth, user: sequentialKey()}
}

func (h *harness) init(at uint64) error {
	h.clock.Set(at)
	tx, err := InitMiner(h.program.ID(), adminKey(), 0)
	require.NoError(h.t, err)
	_, err = h.rt.Execute(context.Background(), tx)
	return err
}

func (h *harness) mine(at uint64, eth identity.EthAccount) (runtime.Receipt, error) {
	h.clock.Set(at)
	tx, err := MineHashes(h.program.ID(), h.user, eth, 0)
	require.NoError(h.t, err)
	return h.rt.Execute(context.Background(), tx)
}

func (h *harness) global() records.Global {
	addr, err := address.Global(h.program.ID(), 0)
	require.NoError(h.t, err)
	var g records.Global
	require.NoError(h.t, records.Fetch(h.rt.Accounts(), addr.Address, h.program.ID(), &g))
	return g
}

func (h *harness) userSol() records.UserSol {
	addr, err := address.BySol(h.program.ID(), h.user, 0)
	require.NoError(h.t, err)
	var u records.UserSol
	require.NoError(h.t, records.Fetch(h.rt.Accounts(), addr.Address, h.program.ID(), &u))
	return u
}

func (h *harness) userEth() records.UserEth {
	addr, err := address.ByEth(h.program.ID(), h.eth.Address, 0)
	require.NoError(h.t, err)
	var u records.UserEth
	require.NoError(h.t, records.Fetch(h.rt.Accounts(), addr.Address, h.program.ID(), &u))
	return u
}

func TestInitMiner(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.init(2))

	g := h.global()
	assert.Equal(t, DefaultAmpStart, g.Amp)
	assert.Equal(t, uint64(2), g.LastAmpSlot)
	assert.Equal(t, [4]byte{}, g.Nonce)
	assert.Equal(t, uint8(0), g.Kind)
	assert.True(t, g.Initialized())

	err := h.init(5)
	assert.ErrorIs(t, err, ErrMintIsAlreadyActive)
	assert.Equal(t, uint64(2), h.global().LastAmpSlot)
}

func TestInitMinerRejections(t *testing.T) {
	t.Run("zero slot", func(t *testing.T) {
		h := newHarness(t)
		assert.ErrorIs(t, h.init(0), ErrZeroSlotValue)
	})
	t.Run("kind of another pool", func(t *testing.T) {
		h := newHarness(t)
		h.clock.Set(2)
		tx, err := InitMiner(h.program.ID(), adminKey(), 1)
		require.NoError(t, err)
		_, err = h.rt.Execute(context.Background(), tx)
		assert.ErrorIs(t, err, ErrInvalidMinerKind)
	})
	t.Run("wrong global account", func(t *testing.T) {
		h := newHarness(t)
		h.clock.Set(2)
		tx, err := InitMiner(h.program.ID(), adminKey(), 0)
		require.NoError(t, err)
		tx.Accounts[0] = h.user
		_, err = h.rt.Execute(context.Background(), tx)
		assert.ErrorIs(t, err, runtime.ErrConstraintSeeds)
	})
	t.Run("missing instruction data", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.rt.Execute(context.Background(), runtime.Transaction{ProgramID: h.program.ID()})
		assert.ErrorIs(t, err, runtime.ErrInstructionMissing)
	})
	t.Run("unknown instruction", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.rt.Execute(context.Background(), runtime.Transaction{
			ProgramID: h.program.ID(),
			Data:      []byte{1, 2, 3, 4, 5, 6, 7, 8},
		})
		assert.ErrorIs(t, err, runtime.ErrInstructionFallbackNotFound)
	})
	t.Run("truncated arguments", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.rt.Execute(context.Background(), runtime.Transaction{
			ProgramID: h.program.ID(),
			Data:      InitMinerDiscriminator[:],
		})
		assert.ErrorIs(t, err, runtime.ErrInstructionDidNotDeserialize)
	})
}

func TestMineHashesScoresBatch(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.init(2))

	receipt, err := h.mine(3, h.eth)
	require.NoError(t, err)

	g := h.global()
	assert.Equal(t, uint64(2), g.Hashes)
	assert.Equal(t, uint32(0), g.Superhashes)
	assert.Equal(t, uint128.From64(600_000_000_000), g.Points)
	assert.Equal(t, [4]byte{89, 62, 23, 222}, g.Nonce)

	sol := h.userSol()
	assert.Equal(t, uint64(2), sol.Hashes)
	assert.Equal(t, uint128.From64(600_000_000_000), sol.Points)

	eth := h.userEth()
	assert.Equal(t, records.UserEth{Hashes: 2}, eth)

	require.Len(t, receipt.Events, 1)
	event, err := DecodeHashEvent(receipt.Events[0].Data)
	require.NoError(t, err)
	assert.Equal(t, HashEvent{
		Slot:       3,
		User:       h.user,
		EthAccount: h.eth.Address,
		Hashes:     2,
		Points:     600_000_000_000,
	}, event)

	// the next batch uses the chained nonce
	_, err = h.mine(4, h.eth)
	require.NoError(t, err)
	g = h.global()
	assert.Equal(t, uint64(3), g.Hashes)
	assert.Equal(t, uint128.From64(900_000_000_000), g.Points)
	assert.Equal(t, uint128.From64(900_000_000_000), h.userSol().Points)
}

func TestMineHashesAmpDecayAppliesToSameBatch(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.init(2))

	_, err := h.mine(100_003, h.eth)
	require.NoError(t, err)

	g := h.global()
	assert.Equal(t, DefaultAmpStart-1, g.Amp)
	assert.Equal(t, uint64(100_003), g.LastAmpSlot)
	assert.Equal(t, uint64(1), g.Hashes)
	assert.Equal(t, uint128.From64(299_000_000_000), g.Points)
}

func TestMineHashesRejectsMismatchedIdentity(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.init(2))

	forged := h.eth
	forged.Address[0] ^= 0x01
	_, err := h.mine(3, forged)
	require.ErrorIs(t, err, ErrInvalidEthAddressData)

	unchecksummed := h.eth
	unchecksummed.AddressStr = "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"
	_, err = h.mine(3, unchecksummed)
	require.ErrorIs(t, err, ErrInvalidEthAddressChecksum)

	g := h.global()
	assert.Zero(t, g.Hashes)
	assert.True(t, g.Points.IsZero())

	addr, err := address.BySol(h.program.ID(), h.user, 0)
	require.NoError(t, err)
	_, err = h.rt.Accounts().Get(addr.Address)
	assert.ErrorIs(t, err, store.ErrAccountNotFound)
}

func TestMineHashesRequiresPool(t *testing.T) {
	h := newHarness(t)
	_, err := h.mine(3, h.eth)
	assert.ErrorIs(t, err, runtime.ErrAccountNotInitialized)
}

func TestMineHashesStartSlot(t *testing.T) {
	kv, err := pebble.NewKVStore()
	require.NoError(t, err)
	accounts, err := store.NewAccounts(kv)
	require.NoError(t, err)
	defer accounts.Close()

	clock := slot.NewManualClock(2)
	rt := runtime.New(accounts, clock)
	profile := DefaultProfile(0)
	profile.StartSlot = 10
	program, err := New(profile)
	require.NoError(t, err)
	require.NoError(t, rt.Register(program))

	tx, err := InitMiner(program.ID(), adminKey(), 0)
	require.NoError(t, err)
	_, err = rt.Execute(context.Background(), tx)
	require.NoError(t, err)

	eth, err := identity.NewEthAccount(ethAddress)
	require.NoError(t, err)
	tx, err = MineHashes(program.ID(), sequentialKey(), eth, 0)
	require.NoError(t, err)

	clock.Set(10)
	_, err = rt.Execute(context.Background(), tx)
	assert.ErrorIs(t, err, ErrMintIsNotActive)

	clock.Set(11)
	_, err = rt.Execute(context.Background(), tx)
	assert.NoError(t, err)
}

func TestMineHashesWrongKind(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.init(2))

	h.clock.Set(3)
	tx, err := MineHashes(h.program.ID(), h.user, h.eth, 2)
	require.NoError(t, err)
	_, err = h.rt.Execute(context.Background(), tx)
	assert.ErrorIs(t, err, ErrInvalidMinerKind)
}

func TestMineHashesSubstitutedRecord(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.init(2))

	h.clock.Set(3)
	tx, err := MineHashes(h.program.ID(), h.user, h.eth, 0)
	require.NoError(t, err)
	other, err := address.BySol(h.program.ID(), adminKey(), 0)
	require.NoError(t, err)
	tx.Accounts[2] = other.Address

	_, err = h.rt.Execute(context.Background(), tx)
	assert.ErrorIs(t, err, runtime.ErrConstraintSeeds)
}
