package miner

import "github.com/eigerco/hashmint/internal/runtime"

var (
	ErrMintIsAlreadyActive       = runtime.NewError(6000, "MintIsAlreadyActive", "solXEN Mint has been already initialized")
	ErrMintIsNotActive           = runtime.NewError(6001, "MintIsNotActive", "solXEN Mint has not yet started or is over")
	ErrZeroSlotValue             = runtime.NewError(6002, "ZeroSlotValue", "Slot value is Zero")
	ErrInvalidMinerKind          = runtime.NewError(6003, "InvalidMinerKind", "Invalid miner kind")
	ErrInvalidEthAddressChecksum = runtime.NewError(6004, "InvalidEthAddressChecksum", "Invalid Ethereum address checksum")
	ErrInvalidEthAddressData     = runtime.NewError(6005, "InvalidEthAddressData", "Ethereum address data doesnt match")
)
