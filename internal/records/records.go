// Package records holds the persistent score and mint records and their
// account layout: an 8 byte type tag followed by fixed width little endian
// fields.
package records

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"

	"github.com/eigerco/hashmint/internal/runtime"
	"github.com/eigerco/hashmint/internal/store"
	"github.com/eigerco/hashmint/pkg/serialization/codec"
)

// Kinds is the number of independent mining pools.
const Kinds = 4

// Account sizes, type tag included.
const (
	GlobalSize     = runtime.DiscriminatorSize + 2 + 8 + 4 + 1 + 8 + 4 + 16
	UserEthSize    = runtime.DiscriminatorSize + 8 + 4
	UserSolSize    = runtime.DiscriminatorSize + 8 + 4 + 16
	UserTokensSize = runtime.DiscriminatorSize + Kinds*16 + 16
)

var (
	GlobalDiscriminator     = runtime.AccountDiscriminator("GlobalXnRecord")
	UserEthDiscriminator    = runtime.AccountDiscriminator("UserEthXnRecord")
	UserSolDiscriminator    = runtime.AccountDiscriminator("UserSolXnRecord")
	UserTokensDiscriminator = runtime.AccountDiscriminator("UserTokensRecord")
)

// Record is implemented by every persistent record type.
type Record interface {
	Discriminator() runtime.Discriminator
	encode(*codec.Encoder)
	decode(*codec.Decoder)
}

// Global is the per pool state shared by every miner of one kind.
type Global struct {
	Amp         uint16
	LastAmpSlot uint64
	Nonce       [4]byte
	Kind        uint8
	Hashes      uint64
	Superhashes uint32
	Points      uint128.Uint128
}

func (*Global) Discriminator() runtime.Discriminator { return GlobalDiscriminator }

func (g *Global) encode(e *codec.Encoder) {
	e.U16(g.Amp).U64(g.LastAmpSlot).Fixed(g.Nonce[:]).U8(g.Kind).
		U64(g.Hashes).U32(g.Superhashes).U128(g.Points)
}

func (g *Global) decode(d *codec.Decoder) {
	g.Amp = d.U16()
	g.LastAmpSlot = d.U64()
	d.Fixed(g.Nonce[:])
	g.Kind = d.U8()
	g.Hashes = d.U64()
	g.Superhashes = d.U32()
	g.Points = d.U128()
}

// Initialized reports whether the pool has been started.
func (g *Global) Initialized() bool {
	return g.LastAmpSlot != 0
}

// UserEth accumulates the score of one external identity.
type UserEth struct {
	Hashes      uint64
	Superhashes uint32
}

func (*UserEth) Discriminator() runtime.Discriminator { return UserEthDiscriminator }

func (u *UserEth) encode(e *codec.Encoder) {
	e.U64(u.Hashes).U32(u.Superhashes)
}

func (u *UserEth) decode(d *codec.Decoder) {
	u.Hashes = d.U64()
	u.Superhashes = d.U32()
}

// UserSol accumulates the score and convertible points of one signer.
type UserSol struct {
	Hashes      uint64
	Superhashes uint32
	Points      uint128.Uint128
}

func (*UserSol) Discriminator() runtime.Discriminator { return UserSolDiscriminator }

func (u *UserSol) encode(e *codec.Encoder) {
	e.U64(u.Hashes).U32(u.Superhashes).U128(u.Points)
}

func (u *UserSol) decode(d *codec.Decoder) {
	u.Hashes = d.U64()
	u.Superhashes = d.U32()
	u.Points = d.U128()
}

// UserTokens tracks, per kind, how many points of a signer were already
// converted into tokens.
type UserTokens struct {
	PointsCounters [Kinds]uint128.Uint128
	TokensMinted   uint128.Uint128
}

func (*UserTokens) Discriminator() runtime.Discriminator { return UserTokensDiscriminator }

func (u *UserTokens) encode(e *codec.Encoder) {
	for _, c := range u.PointsCounters {
		e.U128(c)
	}
	e.U128(u.TokensMinted)
}

func (u *UserTokens) decode(d *codec.Decoder) {
	for i := range u.PointsCounters {
		u.PointsCounters[i] = d.U128()
	}
	u.TokensMinted = d.U128()
}

// Marshal renders the record as account data.
func Marshal(r Record) ([]byte, error) {
	disc := r.Discriminator()
	e := codec.NewEncoder().Fixed(disc[:])
	r.encode(e)
	return e.Bytes()
}

// Unmarshal decodes account data into r after checking the type tag.
func Unmarshal(data []byte, r Record) error {
	want := r.Discriminator()
	if len(data) < len(want) || runtime.Discriminator(data[:len(want)]) != want {
		return runtime.ErrAccountDiscriminatorMismatch
	}
	d := codec.NewDecoder(data[len(want):])
	r.decode(d)
	if err := d.Err(); err != nil {
		return fmt.Errorf("%w: %v", runtime.ErrAccountDidNotDeserialize, err)
	}
	return nil
}

// Decode checks the owner of a committed account and decodes its data.
func Decode(acc store.Account, owner solana.PublicKey, r Record) error {
	if !acc.Owner.Equals(owner) {
		return runtime.ErrAccountOwnedByWrongProgram
	}
	return Unmarshal(acc.Data, r)
}

// Load reads the record at addr within a transition. A missing account
// leaves r untouched and reports false, which is how records get created on
// first use.
func Load(txn *store.Txn, addr, owner solana.PublicKey, r Record) (bool, error) {
	acc, exists, err := txn.Get(addr)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}
	if err := Decode(acc, owner, r); err != nil {
		return true, err
	}
	return true, nil
}

// Save writes the record at addr, owned by owner.
func Save(txn *store.Txn, addr, owner solana.PublicKey, r Record) error {
	data, err := Marshal(r)
	if err != nil {
		return err
	}
	return txn.Put(addr, store.Account{Owner: owner, Data: data})
}

// Fetch reads a committed record outside of any transition.
func Fetch(accounts *store.Accounts, addr, owner solana.PublicKey, r Record) error {
	acc, err := accounts.Get(addr)
	if err != nil {
		return err
	}
	return Decode(acc, owner, r)
}

// IsNotFound reports whether err means the record has never been written.
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrAccountNotFound)
}
