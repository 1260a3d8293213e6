// Package token is the host's fungible token primitive: mints, token
// accounts and program-authorized minting. Account data follows the
// widely used 82 byte mint and 165 byte token account layouts so existing
// tooling can read balances.
package token

import (
	"github.com/gagliardetto/solana-go"

	"github.com/eigerco/hashmint/internal/address"
	"github.com/eigerco/hashmint/internal/runtime"
	"github.com/eigerco/hashmint/internal/safemath"
	"github.com/eigerco/hashmint/internal/store"
	"github.com/eigerco/hashmint/pkg/serialization/codec"
)

const (
	MintSize    = 82
	AccountSize = 165
)

// ProgramID owns every mint and token account.
var ProgramID = solana.TokenProgramID

var (
	ErrInvalidMint        = runtime.NewError(2, "InvalidMint", "Invalid Mint")
	ErrMintMismatch       = runtime.NewError(3, "MintMismatch", "Account not associated with this Mint")
	ErrOwnerMismatch      = runtime.NewError(4, "OwnerMismatch", "Owner does not match")
	ErrFixedSupply        = runtime.NewError(5, "FixedSupply", "Fixed supply")
	ErrAlreadyInUse       = runtime.NewError(6, "AlreadyInUse", "Already in use")
	ErrUninitializedState = runtime.NewError(9, "UninitializedState", "State is uninitialized")
	ErrOverflow           = runtime.NewError(14, "Overflow", "Operation overflowed")
)

type AccountState uint8

const (
	AccountUninitialized AccountState = iota
	AccountInitialized
	AccountFrozen
)

// Mint describes a token. A zero Authority means no more tokens can be minted.
type Mint struct {
	Authority       solana.PublicKey
	Supply          uint64
	Decimals        uint8
	Initialized     bool
	FreezeAuthority solana.PublicKey
}

func writeOption(e *codec.Encoder, key solana.PublicKey) {
	if key.IsZero() {
		e.U32(0).Fixed(make([]byte, solana.PublicKeyLength))
		return
	}
	e.U32(1).Fixed(key[:])
}

func readOption(d *codec.Decoder) solana.PublicKey {
	tag := d.U32()
	var key solana.PublicKey
	d.Fixed(key[:])
	if tag == 0 {
		return solana.PublicKey{}
	}
	return key
}

func (m Mint) Bytes() ([]byte, error) {
	e := codec.NewEncoder()
	writeOption(e, m.Authority)
	e.U64(m.Supply).U8(m.Decimals).Bool(m.Initialized)
	writeOption(e, m.FreezeAuthority)
	return e.Bytes()
}

func DecodeMint(acc store.Account) (Mint, error) {
	if !acc.Owner.Equals(ProgramID) {
		return Mint{}, runtime.ErrAccountOwnedByWrongProgram
	}
	if len(acc.Data) != MintSize {
		return Mint{}, ErrInvalidMint
	}
	d := codec.NewDecoder(acc.Data)
	m := Mint{Authority: readOption(d)}
	m.Supply = d.U64()
	m.Decimals = d.U8()
	m.Initialized = d.Bool()
	m.FreezeAuthority = readOption(d)
	if err := d.Err(); err != nil {
		return Mint{}, ErrInvalidMint
	}
	if !m.Initialized {
		return Mint{}, ErrUninitializedState
	}
	return m, nil
}

// Account holds a balance of one mint for one owner.
type Account struct {
	Mint   solana.PublicKey
	Owner  solana.PublicKey
	Amount uint64
	State  AccountState
}

func (a Account) Bytes() ([]byte, error) {
	e := codec.NewEncoder().Fixed(a.Mint[:]).Fixed(a.Owner[:]).U64(a.Amount)
	writeOption(e, solana.PublicKey{}) // delegate
	e.U8(uint8(a.State))
	e.U32(0).U64(0)                    // is_native
	e.U64(0)                           // delegated amount
	writeOption(e, solana.PublicKey{}) // close authority
	return e.Bytes()
}

func DecodeAccount(acc store.Account) (Account, error) {
	if !acc.Owner.Equals(ProgramID) {
		return Account{}, runtime.ErrAccountOwnedByWrongProgram
	}
	if len(acc.Data) != AccountSize {
		return Account{}, ErrUninitializedState
	}
	d := codec.NewDecoder(acc.Data)
	var a Account
	d.Fixed(a.Mint[:])
	d.Fixed(a.Owner[:])
	a.Amount = d.U64()
	readOption(d)
	a.State = AccountState(d.U8())
	if err := d.Err(); err != nil {
		return Account{}, ErrUninitializedState
	}
	if a.State == AccountUninitialized {
		return Account{}, ErrUninitializedState
	}
	return a, nil
}

func save(txn *store.Txn, addr solana.PublicKey, v interface{ Bytes() ([]byte, error) }) error {
	data, err := v.Bytes()
	if err != nil {
		return err
	}
	return txn.Put(addr, store.Account{Owner: ProgramID, Data: data})
}

func loadMint(txn *store.Txn, addr solana.PublicKey) (Mint, error) {
	acc, exists, err := txn.Get(addr)
	if err != nil {
		return Mint{}, err
	}
	if !exists {
		return Mint{}, ErrUninitializedState
	}
	return DecodeMint(acc)
}

// InitializeMint creates a mint at addr. It fails when one already exists.
func InitializeMint(txn *store.Txn, addr, authority solana.PublicKey, decimals uint8) error {
	_, exists, err := txn.Get(addr)
	if err != nil {
		return err
	}
	if exists {
		return ErrAlreadyInUse
	}
	return save(txn, addr, Mint{Authority: authority, Decimals: decimals, Initialized: true})
}

// CreateAssociatedAccount returns the wallet's token account for mint,
// creating it when absent. An existing account is reused as is.
func CreateAssociatedAccount(txn *store.Txn, wallet, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, err := address.AssociatedToken(wallet, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	acc, exists, err := txn.Get(addr)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if exists {
		existing, err := DecodeAccount(acc)
		if err != nil {
			return solana.PublicKey{}, err
		}
		if !existing.Mint.Equals(mint) {
			return solana.PublicKey{}, ErrMintMismatch
		}
		if !existing.Owner.Equals(wallet) {
			return solana.PublicKey{}, ErrOwnerMismatch
		}
		return addr, nil
	}
	if _, err := loadMint(txn, mint); err != nil {
		return solana.PublicKey{}, err
	}
	return addr, save(txn, addr, Account{Mint: mint, Owner: wallet, State: AccountInitialized})
}

// MintTo credits amount new units of mint to dest. The mint authority must
// be an address the calling program derives from signerSeeds.
func MintTo(txn *store.Txn, mint, dest solana.PublicKey, amount uint64, program solana.PublicKey, signerSeeds [][]byte) error {
	m, err := loadMint(txn, mint)
	if err != nil {
		return err
	}
	if m.Authority.IsZero() {
		return ErrFixedSupply
	}
	if !address.VerifySigner(m.Authority, program, signerSeeds) {
		return ErrOwnerMismatch
	}

	acc, exists, err := txn.Get(dest)
	if err != nil {
		return err
	}
	if !exists {
		return ErrUninitializedState
	}
	holder, err := DecodeAccount(acc)
	if err != nil {
		return err
	}
	if !holder.Mint.Equals(mint) {
		return ErrMintMismatch
	}

	var ok bool
	if m.Supply, ok = safemath.Add64(m.Supply, amount); !ok {
		return ErrOverflow
	}
	if holder.Amount, ok = safemath.Add64(holder.Amount, amount); !ok {
		return ErrOverflow
	}
	if err := save(txn, mint, m); err != nil {
		return err
	}
	if err := save(txn, dest, holder); err != nil {
		return err
	}
	return nil
}
