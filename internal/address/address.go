// Package address derives the storage location of every record.
//
// Addresses are program-derived: SHA-256 over the seeds, a bump byte, the
// owning program and a fixed marker, with the bump searched from 255 down
// until the result is not a valid ed25519 point. The seed order below is a
// wire contract shared with every client.
package address

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var (
	SeedGlobal      = []byte("xn-miner-global")
	SeedByEth       = []byte("xn-by-eth")
	SeedBySol       = []byte("xn-by-sol")
	SeedTokenRecord = []byte("sol-xen-minted")
	SeedMint        = []byte("mint")
)

// Derived is a program-derived address together with its bump seed.
type Derived struct {
	Address solana.PublicKey
	Bump    uint8
	Seeds   [][]byte
	Program solana.PublicKey
}

// SignerSeeds are the seeds plus bump, as used to sign for the address.
func (d Derived) SignerSeeds() [][]byte {
	seeds := make([][]byte, 0, len(d.Seeds)+1)
	seeds = append(seeds, d.Seeds...)
	return append(seeds, []byte{d.Bump})
}

func derive(program solana.PublicKey, seeds ...[]byte) (Derived, error) {
	addr, bump, err := solana.FindProgramAddress(seeds, program)
	if err != nil {
		return Derived{}, fmt.Errorf("derive address under %s: %w", program, err)
	}
	return Derived{Address: addr, Bump: bump, Seeds: seeds, Program: program}, nil
}

// Global is the pool record of a miner program.
func Global(miner solana.PublicKey, kind uint8) (Derived, error) {
	return derive(miner, SeedGlobal, []byte{kind})
}

// ByEth is the per external identity record of a miner program.
func ByEth(miner solana.PublicKey, eth [20]byte, kind uint8) (Derived, error) {
	return derive(miner, SeedByEth, eth[:], []byte{kind}, miner.Bytes())
}

// BySol is the per signing key record of a miner program.
func BySol(miner, signer solana.PublicKey, kind uint8) (Derived, error) {
	return derive(miner, SeedBySol, signer.Bytes(), []byte{kind}, miner.Bytes())
}

// TokenRecord is the minter's per signer record of already minted points.
func TokenRecord(minter, signer solana.PublicKey) (Derived, error) {
	return derive(minter, SeedTokenRecord, signer.Bytes())
}

// Mint is both the token mint and its minting authority.
func Mint(minter solana.PublicKey) (Derived, error) {
	return derive(minter, SeedMint)
}

// AssociatedToken is the signer's token account for the given mint.
func AssociatedToken(wallet, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindAssociatedTokenAddress(wallet, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive associated token account: %w", err)
	}
	return addr, nil
}

// VerifySigner checks that seeds (bump included) create the given address
// under the program, which is how a program proves it controls an address.
func VerifySigner(addr, program solana.PublicKey, signerSeeds [][]byte) bool {
	got, err := solana.CreateProgramAddress(signerSeeds, program)
	if err != nil {
		return false
	}
	return got.Equals(addr)
}
