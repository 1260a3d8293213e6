package miner

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"

	"github.com/eigerco/hashmint/internal/crypto"
	"github.com/eigerco/hashmint/internal/scorer"
)

// NextNonce chains the pool nonce to the outcome of the last batch and to
// the key that mined it.
func NextNonce(signer solana.PublicKey, hashes, superhashes uint8, slot uint64) scorer.Nonce {
	var s [8]byte
	binary.LittleEndian.PutUint64(s[:], slot)
	digest := crypto.KeccakData(signer[:], []byte{hashes}, []byte{superhashes}, s[:])

	var next scorer.Nonce
	copy(next[:], digest[:len(next)])
	return next
}
