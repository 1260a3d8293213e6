package crypto

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

type Hash [HashSize]byte

// KeccakData hashes the concatenation of the given chunks using Keccak-256
// (the pre-standard padding, not SHA3-256).
func KeccakData(chunks ...[]byte) Hash {
	hash := sha3.NewLegacyKeccak256()
	for _, c := range chunks {
		hash.Write(c)
	}

	var result Hash
	hash.Sum(result[:0])
	return result
}

// Hex renders the digest as lowercase hexadecimal without a prefix.
func (h Hash) Hex() string {
	return hex.EncodeToString(h[:])
}

func (h Hash) String() string {
	return h.Hex()
}
