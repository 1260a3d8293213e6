package runtime

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/hashmint/internal/slot"
	"github.com/eigerco/hashmint/internal/store"
	"github.com/eigerco/hashmint/pkg/db/pebble"
)

var (
	programID = solana.MustPublicKeyFromBase58("B8HwMYCk1o7EaJhooM4P43BHSk5M8zZHsTeJixqw7LMN")
	signer    = solana.MustPublicKeyFromBase58("4wBqpZM9xaSheZzJSMawUKKwhdpChKbZ5eu5ky4Vigw")
	target    = solana.MustPublicKeyFromBase58("H18mNr8Hca2v163xBx4qwcHxDj99GsCsMUrZuW8jD4b8")
	second    = solana.MustPublicKeyFromBase58("B8emFMG91JJsBELV4XVkTNe3YTs85x4nCqub7dRZUY1p")
)

type mockProgram struct {
	mock.Mock
}

func (m *mockProgram) ID() solana.PublicKey { return programID }
func (m *mockProgram) Name() string         { return "mock" }
func (m *mockProgram) Execute(inv *Invocation) error {
	args := m.Called(inv)
	return args.Error(0)
}

func newRuntime(t *testing.T, clock slot.Clock) *Runtime {
	kv, err := pebble.NewKVStore()
	require.NoError(t, err)
	accounts, err := store.NewAccounts(kv)
	require.NoError(t, err)
	t.Cleanup(func() { accounts.Close() })
	return New(accounts, clock)
}

func TestExecuteCommits(t *testing.T) {
	clock := slot.NewManualClock(42)
	rt := newRuntime(t, clock)

	prog := new(mockProgram)
	prog.On("Execute", mock.Anything).Run(func(args mock.Arguments) {
		inv := args.Get(0).(*Invocation)
		assert.Equal(t, uint64(42), inv.Slot)
		assert.Equal(t, signer, inv.Signer)
		require.NoError(t, inv.Txn.Put(target, store.Account{Owner: programID, Data: []byte{1}}))
		inv.Emit([]byte("hello"))
	}).Return(nil)
	require.NoError(t, rt.Register(prog))

	receipt, err := rt.Execute(context.Background(), Transaction{
		ProgramID: programID,
		Signer:    signer,
		Accounts:  []solana.PublicKey{target},
		Data:      []byte{1, 2, 3},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(42), receipt.Slot)
	require.Len(t, receipt.Events, 1)
	assert.Equal(t, store.Event{Seq: 0, Slot: 42, Program: programID, Data: []byte("hello")}, receipt.Events[0])

	acc, err := rt.Accounts().Get(target)
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, acc.Data)
	prog.AssertExpectations(t)
}

func TestExecuteRejectionIsAtomic(t *testing.T) {
	rt := newRuntime(t, slot.NewManualClock(5))
	failure := NewError(6000, "MintIsAlreadyActive", "already active")

	committed := false
	prog := new(mockProgram)
	prog.On("Execute", mock.Anything).Run(func(args mock.Arguments) {
		inv := args.Get(0).(*Invocation)
		require.NoError(t, inv.Txn.Put(target, store.Account{Owner: programID, Data: []byte{1}}))
		require.NoError(t, inv.Txn.Put(second, store.Account{Owner: programID, Data: []byte{2}}))
		inv.Emit([]byte("never"))
		inv.OnCommit(func() { committed = true })
	}).Return(failure)
	require.NoError(t, rt.Register(prog))

	_, err := rt.Execute(context.Background(), Transaction{
		ProgramID: programID,
		Signer:    signer,
		Accounts:  []solana.PublicKey{target, second},
	})
	require.ErrorIs(t, err, failure)
	assert.Equal(t, uint32(6000), Code(err))
	assert.False(t, committed)

	for _, addr := range []solana.PublicKey{target, second} {
		_, err := rt.Accounts().Get(addr)
		assert.ErrorIs(t, err, store.ErrAccountNotFound)
	}
	assert.Zero(t, rt.Accounts().NextSeq())
}

func TestExecuteRunsCommitHooks(t *testing.T) {
	rt := newRuntime(t, slot.NewManualClock(5))
	committed := 0
	prog := new(mockProgram)
	prog.On("Execute", mock.Anything).Run(func(args mock.Arguments) {
		args.Get(0).(*Invocation).OnCommit(func() { committed++ })
	}).Return(nil)
	require.NoError(t, rt.Register(prog))

	_, err := rt.Execute(context.Background(), Transaction{ProgramID: programID, Signer: signer})
	require.NoError(t, err)
	assert.Equal(t, 1, committed)
}

func TestExecuteUnknownProgram(t *testing.T) {
	rt := newRuntime(t, slot.NewManualClock(1))
	_, err := rt.Execute(context.Background(), Transaction{ProgramID: target})
	assert.ErrorIs(t, err, ErrProgramNotFound)
}

func TestRegisterTwice(t *testing.T) {
	rt := newRuntime(t, slot.NewManualClock(1))
	require.NoError(t, rt.Register(new(mockProgram)))
	assert.Error(t, rt.Register(new(mockProgram)))
}

func TestInvocationAccount(t *testing.T) {
	inv := &Invocation{Accounts: []solana.PublicKey{target}}
	got, err := inv.Account(0)
	require.NoError(t, err)
	assert.Equal(t, target, got)

	_, err = inv.Account(1)
	assert.ErrorIs(t, err, ErrAccountNotDeclared)
}

func TestGenesis(t *testing.T) {
	rt := newRuntime(t, slot.NewManualClock(0))
	err := rt.Genesis(context.Background(), []solana.PublicKey{target}, func(txn *store.Txn) error {
		return txn.Put(target, store.Account{Owner: programID})
	})
	require.NoError(t, err)

	err = rt.Genesis(context.Background(), nil, func(txn *store.Txn) error {
		return txn.Put(target, store.Account{Owner: programID})
	})
	assert.ErrorIs(t, err, store.ErrAccountNotDeclared)
}

func TestErrorCodes(t *testing.T) {
	assert.Zero(t, Code(nil))
	assert.Equal(t, uint32(2006), Code(fmt.Errorf("wrapped: %w", ErrConstraintSeeds)))
	assert.Equal(t, ErrAccountNotDeclared.Code, Code(store.ErrAccountNotDeclared))
	assert.Equal(t, ErrInternal.Code, Code(errors.New("disk on fire")))

	// an error rebuilt from its wire form matches the sentinel
	remote := &Error{Code: 3012, Name: "AccountNotInitialized", Msg: "from the wire"}
	assert.ErrorIs(t, remote, ErrAccountNotInitialized)
	assert.NotErrorIs(t, remote, ErrConstraintSeeds)

	internal := AsError(errors.New("disk on fire"))
	assert.Equal(t, ErrInternal.Code, internal.Code)
	assert.Equal(t, "disk on fire", internal.Msg)
	assert.Same(t, ErrConstraintSeeds, AsError(ErrConstraintSeeds))
	assert.Nil(t, AsError(nil))
}

func TestDiscriminators(t *testing.T) {
	assert.Equal(t, Discriminator{144, 159, 202, 208, 234, 154, 242, 55}, InstructionDiscriminator("init_miner"))
	assert.Equal(t, Discriminator{192, 6, 168, 29, 123, 183, 150, 48}, InstructionDiscriminator("mine_hashes"))
	assert.Equal(t, Discriminator{59, 132, 24, 246, 122, 39, 8, 243}, InstructionDiscriminator("mint_tokens"))
	assert.Equal(t, Discriminator{72, 165, 108, 28, 78, 144, 127, 138}, EventDiscriminator("HashEvent"))

	d, args, err := SplitInstruction([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9})
	require.NoError(t, err)
	assert.Equal(t, Discriminator{1, 2, 3, 4, 5, 6, 7, 8}, d)
	assert.Equal(t, []byte{9}, args)

	_, _, err = SplitInstruction([]byte{1})
	assert.ErrorIs(t, err, ErrInstructionMissing)
}
