package token

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/hashmint/internal/address"
	"github.com/eigerco/hashmint/internal/store"
	"github.com/eigerco/hashmint/pkg/db/pebble"
)

var (
	minter = solana.MustPublicKeyFromBase58("EPAdVJ5S317jJr2ejgxoA52iptvphGXjPLbqXhZH4n8o")
	wallet = solana.MustPublicKeyFromBase58("4wBqpZM9xaSheZzJSMawUKKwhdpChKbZ5eu5ky4Vigw")
)

type fixture struct {
	accounts *store.Accounts
	mint     address.Derived
	holder   solana.PublicKey
}

func newFixture(t *testing.T) fixture {
	kv, err := pebble.NewKVStore()
	require.NoError(t, err)
	accounts, err := store.NewAccounts(kv)
	require.NoError(t, err)
	t.Cleanup(func() { accounts.Close() })

	mint, err := address.Mint(minter)
	require.NoError(t, err)
	holder, err := address.AssociatedToken(wallet, mint.Address)
	require.NoError(t, err)
	return fixture{accounts: accounts, mint: mint, holder: holder}
}

func (f fixture) update(t *testing.T, fn func(txn *store.Txn) error) error {
	_, err := f.accounts.Update(context.Background(), []solana.PublicKey{f.mint.Address, f.holder}, fn)
	return err
}

func TestMintLifecycle(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.update(t, func(txn *store.Txn) error {
		return InitializeMint(txn, f.mint.Address, f.mint.Address, 9)
	}))

	err := f.update(t, func(txn *store.Txn) error {
		return InitializeMint(txn, f.mint.Address, f.mint.Address, 9)
	})
	assert.ErrorIs(t, err, ErrAlreadyInUse)

	require.NoError(t, f.update(t, func(txn *store.Txn) error {
		addr, err := CreateAssociatedAccount(txn, wallet, f.mint.Address)
		require.NoError(t, err)
		assert.Equal(t, f.holder, addr)
		return MintTo(txn, f.mint.Address, addr, 600_000_000, minter, f.mint.SignerSeeds())
	}))

	// creating again reuses the account and keeps the balance
	require.NoError(t, f.update(t, func(txn *store.Txn) error {
		_, err := CreateAssociatedAccount(txn, wallet, f.mint.Address)
		return err
	}))

	acc, err := f.accounts.Get(f.holder)
	require.NoError(t, err)
	require.Len(t, acc.Data, AccountSize)
	holder, err := DecodeAccount(acc)
	require.NoError(t, err)
	assert.Equal(t, uint64(600_000_000), holder.Amount)
	assert.Equal(t, wallet, holder.Owner)

	acc, err = f.accounts.Get(f.mint.Address)
	require.NoError(t, err)
	require.Len(t, acc.Data, MintSize)
	m, err := DecodeMint(acc)
	require.NoError(t, err)
	assert.Equal(t, uint64(600_000_000), m.Supply)
	assert.Equal(t, uint8(9), m.Decimals)
	assert.Equal(t, f.mint.Address, m.Authority)
}

func TestMintToRequiresProgramSigner(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.update(t, func(txn *store.Txn) error {
		if err := InitializeMint(txn, f.mint.Address, f.mint.Address, 9); err != nil {
			return err
		}
		_, err := CreateAssociatedAccount(txn, wallet, f.mint.Address)
		return err
	}))

	t.Run("wrong program", func(t *testing.T) {
		err := f.update(t, func(txn *store.Txn) error {
			return MintTo(txn, f.mint.Address, f.holder, 1, wallet, f.mint.SignerSeeds())
		})
		assert.ErrorIs(t, err, ErrOwnerMismatch)
	})
	t.Run("wrong bump", func(t *testing.T) {
		seeds := [][]byte{address.SeedMint, {f.mint.Bump - 1}}
		err := f.update(t, func(txn *store.Txn) error {
			return MintTo(txn, f.mint.Address, f.holder, 1, minter, seeds)
		})
		assert.ErrorIs(t, err, ErrOwnerMismatch)
	})
}

func TestMintToFixedSupply(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.update(t, func(txn *store.Txn) error {
		if err := InitializeMint(txn, f.mint.Address, solana.PublicKey{}, 9); err != nil {
			return err
		}
		_, err := CreateAssociatedAccount(txn, wallet, f.mint.Address)
		return err
	}))

	err := f.update(t, func(txn *store.Txn) error {
		return MintTo(txn, f.mint.Address, f.holder, 1, minter, f.mint.SignerSeeds())
	})
	assert.ErrorIs(t, err, ErrFixedSupply)
}

func TestCreateAssociatedAccountNeedsMint(t *testing.T) {
	f := newFixture(t)
	err := f.update(t, func(txn *store.Txn) error {
		_, err := CreateAssociatedAccount(txn, wallet, f.mint.Address)
		return err
	})
	assert.ErrorIs(t, err, ErrUninitializedState)
}

func TestMintToOverflow(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.update(t, func(txn *store.Txn) error {
		if err := InitializeMint(txn, f.mint.Address, f.mint.Address, 9); err != nil {
			return err
		}
		addr, err := CreateAssociatedAccount(txn, wallet, f.mint.Address)
		if err != nil {
			return err
		}
		return MintTo(txn, f.mint.Address, addr, ^uint64(0), minter, f.mint.SignerSeeds())
	}))

	err := f.update(t, func(txn *store.Txn) error {
		return MintTo(txn, f.mint.Address, f.holder, 1, minter, f.mint.SignerSeeds())
	})
	assert.ErrorIs(t, err, ErrOverflow)
}
