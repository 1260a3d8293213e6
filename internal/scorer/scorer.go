// Package scorer counts pattern hits in a batch of keyed Keccak digests.
//
// Every digest in a batch is Keccak-256(nonce || slot || index) rendered as
// lowercase hex. A digest containing the superhash pattern counts as a
// superhash; otherwise a digest containing the hash pattern counts as a hash.
package scorer

import (
	"encoding/binary"
	"strings"

	"github.com/eigerco/hashmint/internal/crypto"
)

const (
	DefaultBatchSize        uint8 = 72
	DefaultHashPattern            = "420"
	DefaultSuperhashPattern       = "42069"
)

type Nonce [4]byte

// Patterns are the substrings searched for in each hex digest.
type Patterns struct {
	Hash      string
	Superhash string
}

func DefaultPatterns() Patterns {
	return Patterns{Hash: DefaultHashPattern, Superhash: DefaultSuperhashPattern}
}

// Match is a single digest in a batch that hit one of the patterns.
type Match struct {
	Index     uint8
	Digest    crypto.Hash
	Superhash bool
}

// Digest computes the i-th digest of a batch.
func Digest(slot uint64, nonce Nonce, i uint8) crypto.Hash {
	var s [8]byte
	binary.LittleEndian.PutUint64(s[:], slot)
	return crypto.KeccakData(nonce[:], s[:], []byte{i})
}

// ScoreBatch returns how many of the batchSize digests matched the hash and
// the superhash pattern. hashes+superhashes never exceeds batchSize.
func ScoreBatch(slot uint64, nonce Nonce, batchSize uint8, p Patterns) (hashes, superhashes uint8) {
	for _, m := range Matches(slot, nonce, batchSize, p) {
		if m.Superhash {
			superhashes++
		} else {
			hashes++
		}
	}
	return hashes, superhashes
}

// Matches lists every matching digest of the batch in index order.
func Matches(slot uint64, nonce Nonce, batchSize uint8, p Patterns) []Match {
	var matches []Match
	for i := uint8(0); i < batchSize; i++ {
		digest := Digest(slot, nonce, i)
		hexDigest := digest.Hex()
		switch {
		case p.Superhash != "" && strings.Contains(hexDigest, p.Superhash):
			matches = append(matches, Match{Index: i, Digest: digest, Superhash: true})
		case p.Hash != "" && strings.Contains(hexDigest, p.Hash):
			matches = append(matches, Match{Index: i, Digest: digest})
		}
	}
	return matches
}
