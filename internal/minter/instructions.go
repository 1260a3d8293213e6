package minter

import (
	"github.com/gagliardetto/solana-go"

	"github.com/eigerco/hashmint/internal/address"
	"github.com/eigerco/hashmint/internal/runtime"
)

// MintTokens converts the user's unconverted points of kind into tokens.
func MintTokens(minter, minerProgram, user solana.PublicKey, kind uint8) (runtime.Transaction, error) {
	userRecord, err := address.BySol(minerProgram, user, kind)
	if err != nil {
		return runtime.Transaction{}, err
	}
	tokensRecord, err := address.TokenRecord(minter, user)
	if err != nil {
		return runtime.Transaction{}, err
	}
	mint, err := address.Mint(minter)
	if err != nil {
		return runtime.Transaction{}, err
	}
	tokenAccount, err := address.AssociatedToken(user, mint.Address)
	if err != nil {
		return runtime.Transaction{}, err
	}

	data := make([]byte, 0, runtime.DiscriminatorSize+1)
	data = append(data, MintTokensDiscriminator[:]...)
	data = append(data, kind)
	return runtime.Transaction{
		ProgramID: minter,
		Signer:    user,
		Accounts: []solana.PublicKey{
			userRecord.Address,
			tokensRecord.Address,
			tokenAccount,
			mint.Address,
			minerProgram,
		},
		Data: data,
	}, nil
}
