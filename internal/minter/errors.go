package minter

import "github.com/eigerco/hashmint/internal/runtime"

var (
	ErrMintIsAlreadyActive = runtime.NewError(6000, "MintIsAlreadyActive", "solXEN Mint has been already initialized")
	ErrMintIsNotActive     = runtime.NewError(6001, "MintIsNotActive", "solXEN Mint has not yet started or is over")
	ErrZeroSlotValue       = runtime.NewError(6002, "ZeroSlotValue", "Slot value is Zero")
	ErrBadOwner            = runtime.NewError(6003, "BadOwner", "Bad account owner")
	ErrBadParam            = runtime.NewError(6004, "BadParam", "Bad param value")
)
