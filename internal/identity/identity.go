// Package identity validates the external (Ethereum) identity a miner
// accumulates score under.
package identity

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

const AddressLength = common.AddressLength

var (
	ErrInvalidChecksum = errors.New("invalid checksummed address")
	ErrDataMismatch    = errors.New("address bytes do not match checksummed string")
)

// EthAccount is the identity as supplied by a client: the raw bytes and the
// EIP-55 string they were derived from.
type EthAccount struct {
	Address    [AddressLength]byte
	AddressStr string
}

// ParseChecksummed decodes a 0x-prefixed EIP-55 address string.
// An all-lowercase or all-uppercase string is rejected unless it happens to
// be its own checksum encoding.
func ParseChecksummed(s string) ([AddressLength]byte, error) {
	if !strings.HasPrefix(s, "0x") || !common.IsHexAddress(s) {
		return [AddressLength]byte{}, ErrInvalidChecksum
	}
	addr := common.HexToAddress(s)
	if addr.Hex() != s {
		return [AddressLength]byte{}, ErrInvalidChecksum
	}
	return addr, nil
}

// NewEthAccount builds an account from a checksummed string.
func NewEthAccount(s string) (EthAccount, error) {
	addr, err := ParseChecksummed(s)
	if err != nil {
		return EthAccount{}, err
	}
	return EthAccount{Address: addr, AddressStr: s}, nil
}

// Validate checks that AddressStr is checksummed and encodes Address.
func (a EthAccount) Validate() error {
	addr, err := ParseChecksummed(a.AddressStr)
	if err != nil {
		return err
	}
	if addr != a.Address {
		return ErrDataMismatch
	}
	return nil
}

// Checksum renders raw address bytes in EIP-55 form.
func Checksum(addr [AddressLength]byte) string {
	return common.Address(addr).Hex()
}
